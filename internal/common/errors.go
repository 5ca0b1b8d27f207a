package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound           = errors.New("requested resource not found")
	ErrUnauthorized       = errors.New("unauthorized access")
	ErrForbidden          = errors.New("forbidden access")
	ErrBadRequest         = errors.New("bad request")
	ErrConflict           = errors.New("resource conflict") // e.g., username already exists
	ErrInternalServer     = errors.New("internal server error")
	ErrValidation         = errors.New("validation failed")
	ErrServiceUnavailable = errors.New("service unavailable")

	// Evaluation configuration errors. Nothing is persisted when these occur.
	ErrProblemNotFound     = fmt.Errorf("problem not found: %w", ErrNotFound)
	ErrUnsupportedLanguage = errors.New("language not supported for this problem")
	ErrNoTestCases         = errors.New("problem has no test cases for this mode")

	// Per-test sandbox failures, recovered locally into a test verdict.
	ErrSandboxTransport = errors.New("sandbox transport error")
	ErrSandboxTimeout   = errors.New("sandbox call timed out")

	// ErrPersistenceConflict is returned when a keyed read-modify-write lost a
	// race and may be retried.
	ErrPersistenceConflict = errors.New("persistence conflict")
	// ErrAlreadyFinalized marks a repeat finalization of the same submission id.
	ErrAlreadyFinalized = errors.New("submission already finalized")
)

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrValidation) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrUnsupportedLanguage) {
		return http.StatusUnprocessableEntity
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrAlreadyFinalized) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrPersistenceConflict) {
		return http.StatusServiceUnavailable
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" { // Unique violation
			return http.StatusConflict
		}
	}

	// ErrNoTestCases is a catalog misconfiguration, not a client mistake.
	return http.StatusInternalServerError
}

// ClassifyPgError turns retryable Postgres failures into ErrPersistenceConflict.
func ClassifyPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %s", ErrPersistenceConflict, pgErr.Message)
		case "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
		}
	}
	return err
}

// Errorf creates a new error with formatting, useful for wrapping.
func Errorf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
