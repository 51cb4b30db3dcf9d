// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// token authority and the handlers to distinguish between different
// failure scenarios without inspecting driver errors themselves.
package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"
)

// ErrConflict is returned when a write violates a unique key, such as a
// second session row for the same user or a duplicate username.
var ErrConflict = errors.New("conflict")

// ErrUnavailable is returned when the database cannot be reached or the
// connection broke mid-call. It must never be reported as "not found" or
// as an authentication failure; handlers translate it into HTTP 503.
var ErrUnavailable = errors.New("store unavailable")

// MySQL server and client error numbers that mean the database is not
// reachable rather than that the statement was wrong.
const (
	erDupEntry          = 1062
	erConCount          = 1040 // too many connections
	erServerShutdown    = 1053
	crConnectionError   = 2002
	crConnHostError     = 2003
	crServerGone        = 2006
	crServerLost        = 2013
	erLockWaitTimeout   = 1205
	erQueryInterrupted  = 1317
	erClientInteraction = 4031 // disconnected by the server because of inactivity
)

// classify maps driver errors onto the package sentinels. Errors that are
// not recognised are returned unchanged.
func classify(err error) error {
	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return err
	}

	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case erDupEntry:
			return fmt.Errorf("%w: %s", ErrConflict, me.Message)
		case erConCount, erServerShutdown, crConnectionError, crConnHostError,
			crServerGone, crServerLost, erLockWaitTimeout, erQueryInterrupted, erClientInteraction:
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return err
	}

	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

// Ping checks that the database answers. Used by the readiness probe.
func Ping(ctx context.Context, db *sql.DB) error {
	return classify(db.PingContext(ctx))
}
