package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for the storefront error taxonomy.
var (
	ErrConnectivity      = errors.New("no network connection")
	ErrRequestFailed     = errors.New("request failed")
	ErrTimeout           = fmt.Errorf("request timed out: %w", ErrRequestFailed)
	ErrValidationFailed  = errors.New("validation failed")
	ErrPersistenceFailed = errors.New("local persistence failed")
	ErrNotFound          = errors.New("resource not found")
	ErrUnauthorized      = errors.New("unauthorized")
)

// Error codes carried by AppError.
const (
	CodeConnectivity      = "CONNECTIVITY"
	CodeRequestFailed     = "REQUEST_FAILED"
	CodeTimeout           = "TIMEOUT"
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodePersistenceFailed = "PERSISTENCE_FAILED"
	CodeNotFound          = "NOT_FOUND"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInternal          = "INTERNAL_ERROR"
)

// AppError is a classified storefront error. Status carries the upstream HTTP
// status for request failures and is zero otherwise.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Status  int               `json:"status,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Connectivity reports that the network was unreachable before a request was sent.
func Connectivity(cause error) *AppError {
	return &AppError{
		Code:    CodeConnectivity,
		Message: "no internet connection",
		Err:     errors.Join(ErrConnectivity, cause),
	}
}

// RequestFailed reports a non-2xx response, a transport failure or a malformed body.
func RequestFailed(status int, reason string) *AppError {
	return &AppError{
		Code:    CodeRequestFailed,
		Message: reason,
		Status:  status,
		Err:     ErrRequestFailed,
	}
}

// Timeout reports that op exceeded its request budget.
func Timeout(op string) *AppError {
	return &AppError{
		Code:    CodeTimeout,
		Message: fmt.Sprintf("%s timed out", op),
		Err:     ErrTimeout,
	}
}

// ValidationFailed carries per-field messages for inline display.
func ValidationFailed(fields map[string]string) *AppError {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, fmt.Sprintf("%s %s", k, fields[k]))
	}

	return &AppError{
		Code:    CodeValidationFailed,
		Message: strings.Join(msgs, "; "),
		Fields:  fields,
		Err:     ErrValidationFailed,
	}
}

// PersistenceFailed wraps a local key-value store failure.
func PersistenceFailed(op string, cause error) *AppError {
	return &AppError{
		Code:    CodePersistenceFailed,
		Message: op,
		Err:     errors.Join(ErrPersistenceFailed, cause),
	}
}

// NotFound reports a missing resource.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Err:     ErrNotFound,
	}
}

// Unauthorized reports a missing or rejected session.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
		Err:     ErrUnauthorized,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// Code returns the taxonomy code for err, falling back to the sentinel it wraps.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	switch {
	case errors.Is(err, ErrConnectivity):
		return CodeConnectivity
	case errors.Is(err, ErrTimeout):
		return CodeTimeout
	case errors.Is(err, ErrRequestFailed):
		return CodeRequestFailed
	case errors.Is(err, ErrValidationFailed):
		return CodeValidationFailed
	case errors.Is(err, ErrPersistenceFailed):
		return CodePersistenceFailed
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	default:
		return CodeInternal
	}
}

// StatusCode returns the upstream HTTP status recorded on err, or 0.
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return 0
}

// FieldErrors returns the per-field messages of a validation failure, or nil.
func FieldErrors(err error) map[string]string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Fields
	}
	return nil
}
