package aggregates

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies aggregate failures. Transport layers map codes to
// status codes; they never inspect the message.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation"
	CodeNotFound           ErrorCode = "not_found"
	CodeConflict           ErrorCode = "conflict"
	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodePreconditionFailed ErrorCode = "precondition_failed"
	CodeRetryable          ErrorCode = "retryable"
	CodeInternal           ErrorCode = "internal"
)

// Error is returned by every aggregate write. Message is safe to show to a
// caller; Cause keeps the underlying store error for logs.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s [%s]", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s [%s]", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s [%s]", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// Retryable reports whether a caller may re-issue the same request unchanged.
func (e *Error) Retryable() bool {
	return e != nil && (e.Code == CodeConflict || e.Code == CodeRetryable)
}

func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates err with a code, using err's text as the message.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

func NotFound(op, message string) error {
	return NewError(CodeNotFound, op, message, nil)
}

func Validation(op, message string) error {
	return NewError(CodeValidation, op, message, nil)
}

func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf returns the code of the outermost aggregate error in err's chain.
func CodeOf(err error) ErrorCode {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return ""
	}
	return aggErr.Code
}

func IsRetryable(err error) bool {
	var aggErr *Error
	return errors.As(err, &aggErr) && aggErr.Retryable()
}
