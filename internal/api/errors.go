package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoToken is returned by user-initiated operations attempted without a
// bearer token. Background fetches treat a missing token as a silent no-op
// instead.
var ErrNoToken = errors.New("not authenticated")

type ApiError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

func lower(s string) string {
	return strings.ToLower(s)
}

// NewStatusError builds an ApiError from a non-2xx response status.
func NewStatusError(statusCode int) *ApiError {
	return &ApiError{
		StatusCode: statusCode,
		Message:    lower(http.StatusText(statusCode)),
	}
}

func NewRequestError(err error) *ApiError {
	return &ApiError{
		Message: "request failed",
		Err:     err,
	}
}

func NewDecodeError(err error) *ApiError {
	return &ApiError{
		Message: "decode response",
		Err:     err,
	}
}
