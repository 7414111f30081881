package postgres

import (
	"database/sql"
	"errors"
	"log/slog"

	"github.com/lib/pq"
	"github.com/orientamada/orientamada/internal/repository/db"
)

// handleError translates PostgreSQL errors to typed errors / Traduit les erreurs PostgreSQL en erreurs typées
func handleError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return db.ErrNoRecord
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case "23505": // unique_violation
		return db.ErrDup
	case "23503": // foreign_key_violation
		return db.ErrForeignKeyViolation
	case "55P03": // lock_not_available
		return db.ErrLocked
	case "40001", "40P01": // serialization_failure, deadlock_detected
		slog.Warn("postgres transaction conflict", "code", string(pqErr.Code), "error", pqErr.Message)
		return db.ErrBusy
	}
	return err
}
