package domain

import (
	"errors"
	"fmt"
)

// Error codes for resolution failures. Every code except CodeInvalidDate
// and CodeInvalidPlace is an expected failure mode that the coordinator
// recovers from by synthesizing a fallback record; those two are programmer
// errors and surface to the caller.
const (
	CodeInvalidDate          = "INVALID_DATE"
	CodeInvalidPlace         = "INVALID_PLACE"
	CodeGeocodingUnavailable = "GEOCODING_UNAVAILABLE"
	CodeProviderUnavailable  = "PROVIDER_UNAVAILABLE"
	CodeTimeout              = "TIMEOUT"
	CodeNoAPIKey             = "NO_API_KEY"
	CodeNoUsableMatch        = "NO_USABLE_MATCH"
)

// ResolutionError is the structured error type of the engine. It carries a
// machine-readable code, a human-readable message, and an optional cause.
type ResolutionError struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// NewInvalidDateError reports an unparseable or out-of-domain date input.
func NewInvalidDateError(cause error) error {
	return &ResolutionError{
		Code:    CodeInvalidDate,
		Message: "the provided date is invalid",
		Cause:   cause,
	}
}

// NewInvalidPlaceError reports an empty or unusable place name.
func NewInvalidPlaceError(place string) error {
	return &ResolutionError{
		Code:    CodeInvalidPlace,
		Message: fmt.Sprintf("the provided place %q is invalid", place),
	}
}

// ErrorCode extracts the resolution error code from err, or "" if err is
// not a ResolutionError.
func ErrorCode(err error) string {
	var re *ResolutionError

	if errors.As(err, &re) {
		return re.Code
	}

	return ""
}

// IsRecoverable reports whether err is an expected failure mode that the
// fallback path absorbs. Programmer errors (invalid date or place) and
// non-ResolutionError values are not recoverable.
func IsRecoverable(err error) bool {
	switch ErrorCode(err) {
	case CodeGeocodingUnavailable, CodeProviderUnavailable, CodeTimeout,
		CodeNoAPIKey, CodeNoUsableMatch:
		return true
	default:
		return false
	}
}
