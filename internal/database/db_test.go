package database

import (
	"io/fs"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AurLemon/course-android-mockapi/internal/auth"
	"github.com/AurLemon/course-android-mockapi/internal/database/migrations"
)

func TestDSNRoundTrip(t *testing.T) {
	dsn := Options{User: "mock", Pass: "p@ss", Host: "db", Port: "3307", Name: "mockapi"}.DSN()

	c, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "mock", c.User)
	assert.Equal(t, "p@ss", c.Passwd)
	assert.Equal(t, "db:3307", c.Addr)
	assert.Equal(t, "mockapi", c.DBName)
	assert.True(t, c.ParseTime)
	assert.Equal(t, time.UTC, c.Loc)
}

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations.Migrations, "*.sql")
	require.NoError(t, err)
	assert.Contains(t, files, "00002_create_session_tokens.sql")
	assert.Len(t, files, 4)
}

func TestAccessTokenColumnHoldsMintedTokens(t *testing.T) {
	ddl, err := fs.ReadFile(migrations.Migrations, "00002_create_session_tokens.sql")
	require.NoError(t, err)

	m := regexp.MustCompile(`access_token\s+VARCHAR\((\d+)\)`).FindSubmatch(ddl)
	require.NotNil(t, m)
	width, err := strconv.Atoi(string(m[1]))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, width, auth.MaxAccessTokenLen)
}
