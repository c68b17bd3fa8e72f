package apperr

import (
	"context"
	"database/sql"
	"net"
	"strings"

	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Classify derives a kind from err. Backend result codes are consulted
// first, then the error message, and KindUnknown is the fallback.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	if kind, ok := classifyCode(err); ok {
		return kind
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "fetch"),
		strings.Contains(msg, "network"),
		strings.Contains(msg, "connection"):
		return KindNetwork
	case strings.Contains(msg, "auth"):
		return KindAuth
	}
	return KindUnknown
}

func classifyCode(err error) (Kind, bool) {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return sqliteKind(se.Code()), true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork, true
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) {
		return KindStore, true
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return KindNetwork, true
	}
	return KindUnknown, false
}

// sqliteKind maps a SQLite result code. Extended codes carry the primary
// code in their low byte.
func sqliteKind(code int) Kind {
	switch code & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_IOERR,
		sqlite3.SQLITE_FULL, sqlite3.SQLITE_PROTOCOL, sqlite3.SQLITE_NOMEM,
		sqlite3.SQLITE_CANTOPEN:
		return KindStore
	case sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_MISMATCH, sqlite3.SQLITE_RANGE,
		sqlite3.SQLITE_TOOBIG:
		return KindValidation
	case sqlite3.SQLITE_PERM, sqlite3.SQLITE_READONLY, sqlite3.SQLITE_AUTH:
		return KindPermission
	case sqlite3.SQLITE_CORRUPT, sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_INTERNAL:
		return KindUnknown
	}
	return KindStore
}
