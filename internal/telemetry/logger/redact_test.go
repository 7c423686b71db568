package logger

import (
	"log/slog"
	"testing"
)

func TestRedactSensitive_PayloadKeys(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")

	tests := []struct {
		key   string
		value any
	}{
		{"data", map[string]any{"seat": "12A"}},
		{"payload", `{"from":"LHR"}`},
		{"card_number", "4111 1111 1111 1111"},
		{"passport", "X1234567"},
		{"email", "traveller@example.com"},
		{"Email", "traveller@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			buf.Reset()
			l.Info("test", tt.key, tt.value)

			entry := decodeEntry(t, buf)
			if entry[tt.key] != redactedValue {
				t.Errorf("%s = %v, want %s", tt.key, entry[tt.key], redactedValue)
			}
		})
	}
}

func TestRedactSensitive_SecretKeys(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")

	for _, key := range []string{"password", "redis_password", "encryption_key", "api_key", "auth_token", "credential"} {
		t.Run(key, func(t *testing.T) {
			buf.Reset()
			l.Info("test", key, "value")

			if entry := decodeEntry(t, buf); entry[key] != redactedValue {
				t.Errorf("%s = %v, want redacted", key, entry[key])
			}
		})
	}
}

func TestRedactSensitive_NormalValues(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")

	l.Info("stored", "key", "booking:42", "tier", "memory", "bytes", 128)

	entry := decodeEntry(t, buf)
	if entry["key"] != "booking:42" {
		t.Errorf("entry key must stay readable, got %v", entry["key"])
	}
	if entry["tier"] != "memory" {
		t.Errorf("tier = %v", entry["tier"])
	}
	if entry["bytes"] != float64(128) {
		t.Errorf("bytes = %v", entry["bytes"])
	}
}

func TestRedactSensitive_CardNumberValue(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")

	l.Info("checkout", "note", "4111-1111-1111-1234")

	if entry := decodeEntry(t, buf); entry["note"] != "************1234" {
		t.Errorf("note = %v, want masked card number", entry["note"])
	}
}

func TestRedactSensitive_Group(t *testing.T) {
	a := slog.Group("request", slog.String("email", "a@b.c"), slog.String("route", "/v1/stats"))
	got := redactSensitive(a)

	attrs := got.Value.Group()
	if attrs[0].Value.String() != redactedValue {
		t.Errorf("nested email = %v", attrs[0].Value)
	}
	if attrs[1].Value.String() != "/v1/stats" {
		t.Errorf("nested route = %v", attrs[1].Value)
	}
}

func TestIsCardNumber(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"4111111111111111", true},
		{"4111 1111 1111 1111", true},
		{"4111-1111-1111-1111", true},
		{"378282246310005", true},
		{"123456789012", false},         // 12 digits
		{"12345678901234567890", false}, // 20 digits
		{"4111x1111x1111x1111", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			if got := IsCardNumber(tt.value); got != tt.want {
				t.Errorf("IsCardNumber(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestRedactString(t *testing.T) {
	if got := RedactString("5500 0000 0000 0004"); got != "************0004" {
		t.Errorf("RedactString(card) = %q", got)
	}
	if got := RedactString("booking:42"); got != "booking:42" {
		t.Errorf("RedactString(plain) = %q", got)
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"password", true},
		{"REDIS_PASSWORD", true},
		{"encryption_key", true},
		{"key", false},
		{"key_prefix", false},
		{"tier", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := IsSensitiveKey(tt.key); got != tt.want {
				t.Errorf("IsSensitiveKey(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}
