// Package apperr defines the HTTP-status-coded errors returned by services
// and rendered by the transport layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/repository/db"
)

// Error is an application error with a status and a machine code / Erreur applicative avec statut et code
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on status and code so sentinels work with errors.Is / Compare statut et code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Status == t.Status && e.Code == t.Code
}

// WithDetails returns a copy carrying field details / Retourne une copie avec des détails
func (e *Error) WithDetails(details map[string]string) *Error {
	c := *e
	c.Details = details
	return &c
}

// Wrap returns a copy wrapping the cause / Retourne une copie enveloppant la cause
func (e *Error) Wrap(err error) *Error {
	c := *e
	c.Err = err
	return &c
}

// Withf returns a copy with a formatted message / Retourne une copie avec un message formaté
func (e *Error) Withf(format string, args ...any) *Error {
	c := *e
	c.Message = fmt.Sprintf(format, args...)
	return &c
}

// New builds an error for any status / Construit une erreur pour un statut quelconque
func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func newError(status int, code, message string) *Error {
	return New(status, code, message)
}

func BadRequest(code, message string) *Error {
	return newError(http.StatusBadRequest, code, message)
}

func Unauthorized(code, message string) *Error {
	return newError(http.StatusUnauthorized, code, message)
}

func Forbidden(code, message string) *Error {
	return newError(http.StatusForbidden, code, message)
}

func NotFound(code, message string) *Error {
	return newError(http.StatusNotFound, code, message)
}

func Conflict(code, message string) *Error {
	return newError(http.StatusConflict, code, message)
}

func Unprocessable(code, message string) *Error {
	return newError(http.StatusUnprocessableEntity, code, message)
}

func TooManyRequests(code, message string) *Error {
	return newError(http.StatusTooManyRequests, code, message)
}

// Internal hides the cause behind a generic message / Masque la cause derrière un message générique
func Internal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: "internal_error", Message: "internal server error", Err: err}
}

func Unavailable(code, message string) *Error {
	return newError(http.StatusServiceUnavailable, code, message)
}

// Validation builds a 422 with per-field rules / Construit une 422 avec les règles par champ
func Validation(details map[string]string) *Error {
	return &Error{
		Status:  http.StatusUnprocessableEntity,
		Code:    "validation_failed",
		Message: "validation failed",
		Details: details,
	}
}

// Op tells FromRepository which write produced the error / Indique l'opération d'origine
type Op int

const (
	OpRead Op = iota
	OpWrite
	OpDelete
)

// FromRepository maps store errors to application errors / Traduit les erreurs du store
func FromRepository(err error, entity string, op Op) error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	var verrs domain.ValidationErrors
	if errors.As(err, &verrs) {
		return Validation(verrs)
	}

	switch {
	case errors.Is(err, db.ErrNoRecord):
		return NotFound("not_found", entity+" not found").Wrap(err)
	case errors.Is(err, db.ErrDup):
		return Conflict("already_exists", entity+" already exists").Wrap(err)
	case errors.Is(err, db.ErrForeignKeyViolation):
		if op == OpDelete {
			return Conflict("foreign_key_violation", entity+" is still referenced by other records").Wrap(err)
		}
		return Unprocessable("foreign_key_violation", entity+" references a record that does not exist").Wrap(err)
	case errors.Is(err, db.ErrInvalidSort):
		return BadRequest("invalid_sort", err.Error()).Wrap(err)
	case errors.Is(err, db.ErrInvalidFilter):
		return BadRequest("invalid_filter", err.Error()).Wrap(err)
	case errors.Is(err, db.ErrBusy), errors.Is(err, db.ErrLocked):
		return Unavailable("database_busy", "database is busy, retry later").Wrap(err)
	}
	return Internal(err)
}

// As extracts an application error, defaulting to 500 / Extrait l'erreur applicative, 500 par défaut
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	var verrs domain.ValidationErrors
	if errors.As(err, &verrs) {
		return Validation(verrs)
	}
	return Internal(err)
}
