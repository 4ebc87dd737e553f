package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	domainagg "github.com/yungbote/dineops-backend/internal/domain/aggregates"
	"gorm.io/gorm"
)

var (
	// ErrValidation indicates caller input validation failure.
	ErrValidation = errors.New("aggregate validation")
	// ErrNotFound indicates a missing row the operation depends on.
	ErrNotFound = errors.New("aggregate not found")
	// ErrInvariant indicates invariant rule violation.
	ErrInvariant = errors.New("aggregate invariant violation")
	// ErrConflict indicates optimistic/concurrency conflict.
	ErrConflict = errors.New("aggregate conflict")
	// ErrRetryable indicates transient retryable failure.
	ErrRetryable = errors.New("aggregate retryable")
)

// taggedError carries a caller-facing message and matches its sentinel with errors.Is.
type taggedError struct {
	tag error
	msg string
}

func (e *taggedError) Error() string        { return e.msg }
func (e *taggedError) Is(target error) bool { return target == e.tag }

func tagged(tag error, msg string) error {
	return &taggedError{tag: tag, msg: strings.TrimSpace(msg)}
}

func ValidationError(msg string) error { return tagged(ErrValidation, msg) }

func NotFoundError(msg string) error { return tagged(ErrNotFound, msg) }

func InvariantError(msg string) error { return tagged(ErrInvariant, msg) }

func ConflictError(msg string) error { return tagged(ErrConflict, msg) }

func RetryableError(msg string) error { return tagged(ErrRetryable, msg) }

// MapError maps infrastructure/domain failures into aggregate error codes.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) {
		return aggErr
	}
	switch {
	case errors.Is(err, ErrValidation):
		return domainagg.Wrap(domainagg.CodeValidation, op, err)
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return domainagg.Wrap(domainagg.CodeNotFound, op, err)
	case errors.Is(err, ErrInvariant):
		return domainagg.Wrap(domainagg.CodeInvariantViolation, op, err)
	case errors.Is(err, ErrConflict):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case errors.Is(err, ErrRetryable):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return domainagg.NewError(domainagg.CodeConflict, op, "concurrent update, please retry", err) // unique_violation
		case "23503":
			return domainagg.NewError(domainagg.CodePreconditionFailed, op, "referenced row does not exist", err) // foreign_key_violation
		case "40001", "40P01", "55P03":
			return domainagg.NewError(domainagg.CodeRetryable, op, "transient database contention, please retry", err)
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "duplicate key"),
		strings.Contains(msg, "already exists"),
		strings.Contains(msg, "unique constraint"):
		return domainagg.NewError(domainagg.CodeConflict, op, "concurrent update, please retry", err)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "temporar"):
		return domainagg.NewError(domainagg.CodeRetryable, op, "transient database contention, please retry", err)
	default:
		return domainagg.NewError(domainagg.CodeInternal, op, "internal error", err)
	}
}
