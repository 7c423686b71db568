// Package domain defines the core domain models for bookcache.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a classified failure with a structured error code.
//
// Message is user-facing and is surfaced verbatim in operation results,
// so it is phrased for the calling UI rather than for operators.
type DomainError struct {
	Code    string // Error code (e.g., "BC-ENV-4100")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithMessage returns a copy of the error with a different message.
// The code is preserved so errors.Is keeps matching.
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: message,
		Details: e.Details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// UserMessage returns the message to surface to callers for err.
// Non-domain errors are reported with their own text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

// ============================================================================
// Envelope Errors (ENV)
//
// All envelope errors are resolved locally: the entry is unusable, it is
// purged from the tier that held it and the read falls through.
// ============================================================================

var (
	// ErrStructureInvalid indicates required envelope fields are missing.
	ErrStructureInvalid = NewDomainError("BC-ENV-4000", "Invalid data structure")

	// ErrParseFailure indicates the stored value is not a well-formed envelope.
	ErrParseFailure = NewDomainError("BC-ENV-4001", "Failed to parse stored data")

	// ErrTypeMismatch indicates the envelope carries a different data type.
	ErrTypeMismatch = NewDomainError("BC-ENV-4090", "Data type mismatch")

	// ErrExpired indicates the envelope is past its expiry time.
	ErrExpired = NewDomainError("BC-ENV-4100", "Data expired")

	// ErrChecksumMismatch indicates the payload no longer matches its checksum.
	ErrChecksumMismatch = NewDomainError("BC-ENV-4220", "Data integrity check failed")
)

// ============================================================================
// Storage Errors (STO)
// ============================================================================

var (
	// ErrNotFound indicates no tier holds a usable entry for the key.
	ErrNotFound = NewDomainError("BC-STO-4040", "Data not found in any storage location")

	// ErrCapacityExceeded indicates a tier rejected a write for lack of space.
	ErrCapacityExceeded = NewDomainError("BC-STO-5070", "Storage capacity exceeded")

	// ErrStoreFailed indicates no tier accepted a write.
	ErrStoreFailed = NewDomainError("BC-STO-5001", "Failed to store data in any storage location")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternal indicates an unexpected failure caught at the facade boundary.
	ErrInternal = NewDomainError("BC-SYS-5000", "Unexpected storage failure")

	// ErrSerialization indicates the payload could not be serialized.
	ErrSerialization = NewDomainError("BC-SYS-5002", "Failed to serialize data")

	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("BC-ARG-1001", "Invalid argument")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("BC-SYS-4290", "Too many requests")
)

// IsEnvelopeError reports whether err is one of the locally resolved
// envelope failures (structure, parse, type, expiry, checksum).
func IsEnvelopeError(err error) bool {
	switch {
	case errors.Is(err, ErrStructureInvalid),
		errors.Is(err, ErrParseFailure),
		errors.Is(err, ErrTypeMismatch),
		errors.Is(err, ErrExpired),
		errors.Is(err, ErrChecksumMismatch):
		return true
	}
	return false
}

// Reason returns a short label for an envelope failure, used in logs and
// metric labels.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrStructureInvalid):
		return "structure_invalid"
	case errors.Is(err, ErrParseFailure):
		return "parse_failure"
	case errors.Is(err, ErrTypeMismatch):
		return "type_mismatch"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrChecksumMismatch):
		return "checksum_mismatch"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity_exceeded"
	default:
		return "error"
	}
}
