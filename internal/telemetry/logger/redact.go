package logger

import (
	"log/slog"
	"strings"
)

// payloadKeys name attributes that carry cached payloads or personal data.
// Their values are dropped whatever their kind.
var payloadKeys = map[string]struct{}{
	"data":        {},
	"payload":     {},
	"card_number": {},
	"passport":    {},
	"email":       {},
}

// secretKeyPatterns mark attributes holding credentials. Non-empty string
// values are replaced.
var secretKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"credential",
	"encryption_key",
	"api_key",
	"bearer",
}

// redactedValue is the placeholder for redacted data.
const redactedValue = "***REDACTED***"

// redactSensitive replaces payloads, secrets and card-number-like values.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	if IsPayloadKey(a.Key) {
		return slog.String(a.Key, redactedValue)
	}

	if a.Value.Kind() != slog.KindString {
		return a
	}
	strVal := a.Value.String()
	if strVal == "" {
		return a
	}
	if IsSensitiveKey(a.Key) {
		return slog.String(a.Key, redactedValue)
	}
	if IsCardNumber(strVal) {
		return slog.String(a.Key, maskCardNumber(strVal))
	}
	return a
}

// IsPayloadKey reports whether key names a payload-bearing attribute.
func IsPayloadKey(key string) bool {
	_, ok := payloadKeys[strings.ToLower(key)]
	return ok
}

// IsSensitiveKey checks if a key name suggests a credential.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range secretKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// IsCardNumber reports whether value looks like a payment card number:
// 13 to 19 digits, optionally grouped with spaces or dashes.
func IsCardNumber(value string) bool {
	digits := 0
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '-':
		default:
			return false
		}
	}
	return digits >= 13 && digits <= 19
}

// maskCardNumber keeps only the last four digits.
func maskCardNumber(value string) string {
	var digits []byte
	for i := 0; i < len(value); i++ {
		if value[i] >= '0' && value[i] <= '9' {
			digits = append(digits, value[i])
		}
	}
	return strings.Repeat("*", len(digits)-4) + string(digits[len(digits)-4:])
}

// RedactString masks a value before it is logged by other means.
func RedactString(value string) string {
	if IsCardNumber(value) {
		return maskCardNumber(value)
	}
	return value
}
