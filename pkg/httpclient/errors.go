package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	apperrors "github.com/gaarage/storefront/pkg/errors"
)

// errorBody covers the shapes the storefront API uses for failures. Laravel
// validation errors carry "message", the legacy endpoints "Message" or "error".
type errorBody struct {
	Message      string `json:"message"`
	LegacyMsg    string `json:"Message"`
	ErrorMessage string `json:"error"`
}

func (b errorBody) text() string {
	for _, s := range []string{b.Message, b.LegacyMsg, b.ErrorMessage} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into a request failure that carries the status code. A 401 also matches
// apperrors.ErrUnauthorized.
//
// The caller should only invoke this when resp.StatusCode indicates an error.
// The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()

	reason := fmt.Sprintf("HTTP error! status: %d", resp.StatusCode)

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err == nil {
		var body errorBody
		if json.Unmarshal(bodyBytes, &body) == nil && body.text() != "" {
			reason = body.text()
		}
	}

	appErr := apperrors.RequestFailed(resp.StatusCode, reason)
	if resp.StatusCode == http.StatusUnauthorized {
		appErr.Err = errors.Join(apperrors.ErrRequestFailed, apperrors.ErrUnauthorized)
	}
	return appErr
}

// ClassifyError maps a transport-level failure of op into the storefront
// taxonomy. Errors that are already classified pass through unchanged.
func ClassifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeout(op)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.Timeout(op)
	}

	if errors.Is(err, ErrCircuitOpen) {
		return apperrors.RequestFailed(http.StatusServiceUnavailable, fmt.Sprintf("%s: upstream unavailable", op))
	}

	return &apperrors.AppError{
		Code:    apperrors.CodeRequestFailed,
		Message: op,
		Err:     errors.Join(apperrors.ErrRequestFailed, err),
	}
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
