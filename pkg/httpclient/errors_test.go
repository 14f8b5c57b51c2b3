package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/gaarage/storefront/pkg/errors"
)

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestParseResponseError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"laravel message", 422, `{"message":"The email has already been taken."}`, "The email has already been taken."},
		{"legacy Message", 400, `{"Message":"Panier vide"}`, "Panier vide"},
		{"error field", 404, `{"error":"zone not found"}`, "zone not found"},
		{"blank message", 500, `{"message":"  "}`, "HTTP error! status: 500"},
		{"html body", 502, `<html>Bad Gateway</html>`, "HTTP error! status: 502"},
		{"empty body", 503, ``, "HTTP error! status: 503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseResponseError(response(tt.status, tt.body))
			assert.True(t, errors.Is(err, apperrors.ErrRequestFailed))
			assert.Equal(t, tt.status, apperrors.StatusCode(err))

			var appErr *apperrors.AppError
			assert.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.message, appErr.Message)
		})
	}
}

func TestParseResponseError_Unauthorized(t *testing.T) {
	err := ParseResponseError(response(http.StatusUnauthorized, `{"message":"Unauthenticated."}`))
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
	assert.True(t, errors.Is(err, apperrors.ErrRequestFailed))
	assert.Equal(t, apperrors.CodeRequestFailed, apperrors.Code(err))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyError(t *testing.T) {
	assert.Nil(t, ClassifyError("GET zones", nil))

	err := ClassifyError("GET zones", fmt.Errorf("wrapped: %w", context.DeadlineExceeded))
	assert.Equal(t, apperrors.CodeTimeout, apperrors.Code(err))
	assert.True(t, errors.Is(err, apperrors.ErrRequestFailed))

	err = ClassifyError("GET zones", timeoutErr{})
	assert.True(t, errors.Is(err, apperrors.ErrTimeout))

	err = ClassifyError("GET zones", ErrCircuitOpen)
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.StatusCode(err))

	cause := errors.New("connection reset by peer")
	err = ClassifyError("GET zones", cause)
	assert.True(t, errors.Is(err, apperrors.ErrRequestFailed))
	assert.True(t, errors.Is(err, cause))

	already := apperrors.Unauthorized("no session")
	assert.Same(t, already, ClassifyError("GET profile", already))
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(400))
	assert.True(t, IsClientError(499))
	assert.False(t, IsClientError(500))
	assert.False(t, IsClientError(200))
}
