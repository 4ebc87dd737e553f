package apierr

import (
	"errors"
	"fmt"
	"net/http"

	domainagg "github.com/yungbote/dineops-backend/internal/domain/aggregates"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// FromError classifies err by its aggregate code. Errors that already carry
// an *Error are returned unchanged.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	code := domainagg.CodeOf(err)
	switch code {
	case domainagg.CodeNotFound:
		return New(http.StatusNotFound, string(code), err)
	case domainagg.CodeValidation, domainagg.CodePreconditionFailed, domainagg.CodeInvariantViolation:
		return New(http.StatusBadRequest, string(code), err)
	case domainagg.CodeConflict, domainagg.CodeRetryable:
		return New(http.StatusConflict, string(code), err)
	case "":
		return New(http.StatusInternalServerError, string(domainagg.CodeInternal), err)
	default:
		return New(http.StatusInternalServerError, string(code), err)
	}
}

// Message returns the caller-facing text for err. Aggregate errors expose
// their message without the op prefix.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) && aggErr.Message != "" {
		return aggErr.Message
	}
	return err.Error()
}
