package sqlstore

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	puresqlite "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/martinhantha/kutt/internal/errx"
)

// ErrLinkNotFound describes a filter that matched no link
var ErrLinkNotFound = errors.New("could not find the link")

var (
	pgConflictCodes = map[string]bool{
		"23505": true, // unique_violation
	}
	pgInvalidCodes = map[string]bool{
		"22001": true, // string_data_right_truncation
		"23502": true, // not_null_violation
		"23503": true, // foreign_key_violation
		"23514": true, // check_violation
	}
)

// mapError classifies a store failure. Anything that is not a constraint
// rejection, including deadlines, is reported as Unavailable.
func mapError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case isConflict(err):
		return errx.E(op, errx.Conflict, err)
	case isInvalid(err):
		return errx.E(op, errx.Invalid, err)
	default:
		return errx.E(op, errx.Unavailable, err)
	}
}

func isConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgConflictCodes[pgErr.Code]
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pureErr *puresqlite.Error
	if errors.As(err, &pureErr) {
		return pureErr.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE ||
			pureErr.Code() == sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	// libsql reports sqlite constraint failures as plain text
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isInvalid(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgInvalidCodes[pgErr.Code]
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrConstraint
	}
	var pureErr *puresqlite.Error
	if errors.As(err, &pureErr) {
		// the primary result code is the low byte of the extended code
		return pureErr.Code()&0xff == sqlitelib.SQLITE_CONSTRAINT
	}
	msg := err.Error()
	return strings.Contains(msg, "CHECK constraint failed") ||
		strings.Contains(msg, "NOT NULL constraint failed") ||
		strings.Contains(msg, "FOREIGN KEY constraint failed")
}
