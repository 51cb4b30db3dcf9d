package database

import (
	"context"
	"database/sql"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Options carries the connection settings taken from config.Config.
type Options struct {
	User string
	Pass string
	Host string
	Port string
	Name string
}

// DSN renders the driver connection string.  parseTime maps DATETIME to
// time.Time and loc=UTC keeps stored instants consistent.
func (o Options) DSN() string {
	c := mysql.NewConfig()
	c.User = o.User
	c.Passwd = o.Pass
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(o.Host, o.Port)
	c.DBName = o.Name
	c.ParseTime = true
	c.Loc = time.UTC
	c.ClientFoundRows = true // RowsAffected counts matched rows, not changed ones
	c.MultiStatements = true // goose runs multi-statement migration files
	c.Params = map[string]string{"charset": "utf8mb4"}
	return c.FormatDSN()
}

// Open connects to MySQL and verifies the connection.
func Open(o Options) (*sql.DB, error) {
	db, err := sql.Open("mysql", o.DSN())
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
