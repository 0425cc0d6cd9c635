package sqlite

import (
	"database/sql"
	"errors"
	"strings"

	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// constraintKind reports which constraint an error violated. It prefers the
// extended result code and falls back to the message when the driver only
// returns the primary SQLITE_CONSTRAINT code.
func constraintKind(err error) int {
	var serr *sqlitedrv.Error
	if !errors.As(err, &serr) {
		return 0
	}
	code := serr.Code()
	if code == sqlite3.SQLITE_CONSTRAINT {
		msg := serr.Error()
		switch {
		case strings.Contains(msg, "UNIQUE constraint failed"):
			return sqlite3.SQLITE_CONSTRAINT_UNIQUE
		case strings.Contains(msg, "FOREIGN KEY constraint failed"):
			return sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
		}
	}
	return code
}

// isUniqueViolation reports a duplicate on a unique index or primary key.
func isUniqueViolation(err error) bool {
	switch constraintKind(err) {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

// isForeignKeyViolation reports a missing referenced row.
func isForeignKeyViolation(err error) bool {
	return constraintKind(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
