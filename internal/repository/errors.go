package repository

import (
	"github.com/orientamada/orientamada/internal/repository/db"
)

// Re-export common errors so callers need not import the db package
// Réexporte les erreurs communes
var (
	ErrNoRecord            = db.ErrNoRecord
	ErrDup                 = db.ErrDup
	ErrForeignKeyViolation = db.ErrForeignKeyViolation
	ErrBusy                = db.ErrBusy
	ErrLocked              = db.ErrLocked
	ErrInvalidSort         = db.ErrInvalidSort
	ErrInvalidFilter       = db.ErrInvalidFilter
)
