package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		conflict    bool
		unavailable bool
	}{
		{"nil", nil, false, false},
		{"no rows passes through", sql.ErrNoRows, false, false},
		{"duplicate key", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true, false},
		{"server gone", &mysql.MySQLError{Number: 2006, Message: "gone away"}, false, true},
		{"too many connections", &mysql.MySQLError{Number: 1040}, false, true},
		{"syntax error", &mysql.MySQLError{Number: 1064}, false, false},
		{"bad conn", driver.ErrBadConn, false, true},
		{"invalid conn", mysql.ErrInvalidConn, false, true},
		{"deadline", context.DeadlineExceeded, false, true},
		{"dial refused", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, false, true},
		{"plain", errors.New("boom"), false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.err)
			assert.Equal(t, tc.conflict, errors.Is(got, ErrConflict))
			assert.Equal(t, tc.unavailable, errors.Is(got, ErrUnavailable))
			if tc.err != nil && !tc.conflict {
				assert.ErrorIs(t, got, tc.err)
			}
		})
	}
}
