package sqlexec

import (
	"errors"

	"github.com/mattn/go-sqlite3"

	"github.com/margauxdb/margaux/pkg/types"
)

// mapSQLiteError converts a driver error into a typed Error so constraint
// failures keep their kind at the surface.
func mapSQLiteError(err error, message string) *types.Error {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return types.WrapError(types.SqlError, message, err)
	}

	kind := types.SqlError
	switch se.Code {
	case sqlite3.ErrConstraint:
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintForeignKey:
			kind = types.ForeignKeyViolation
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			kind = types.UniqueViolation
		case sqlite3.ErrConstraintNotNull:
			kind = types.NotNullViolation
		default:
			kind = types.ConstraintViolation
		}
	case sqlite3.ErrError:
		kind = types.SqlSyntaxError
	case sqlite3.ErrCantOpen, sqlite3.ErrNotFound:
		kind = types.FileNotFound
	case sqlite3.ErrPerm, sqlite3.ErrAuth, sqlite3.ErrReadonly:
		kind = types.PermissionDenied
	case sqlite3.ErrFull:
		kind = types.DiskFull
	}
	return types.WrapError(kind, message, err)
}
