package mysql

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/orientamada/orientamada/internal/repository/db"
)

// handleError translates MySQL errors to typed errors / Traduit les erreurs MySQL en erreurs typées
func handleError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return db.ErrNoRecord
	}

	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) {
		return err
	}

	switch mysqlErr.Number {
	case 1062: // ER_DUP_ENTRY
		return db.ErrDup
	case 1451, 1452: // ER_ROW_IS_REFERENCED_2, ER_NO_REFERENCED_ROW_2
		return db.ErrForeignKeyViolation
	case 1205: // ER_LOCK_WAIT_TIMEOUT
		return db.ErrLocked
	case 1213: // ER_LOCK_DEADLOCK
		return db.ErrBusy
	}
	return err
}
