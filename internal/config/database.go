package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/AurLemon/course-android-mockapi/internal/database"
)

// DatabaseConfig holds the MySQL connection settings.  It is embedded in
// Config and loaded on its own by the admin CLI, which needs no JWT secret.
type DatabaseConfig struct {
	DBUser      string `env:"DB_USER,required,notEmpty"`            // database username
	DBPass      string `env:"DB_PASS"`                              // database password (optional)
	DBHost      string `env:"DB_HOST"          envDefault:"127.0.0.1"`
	DBPort      string `env:"DB_PORT"          envDefault:"3306"`
	DBName      string `env:"DB_NAME,required,notEmpty"`            // database name
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE"  envDefault:"false"` // run goose migrations at startup
}

// LoadDatabaseConfig reads the optional .env file and parses the MySQL
// settings.
func LoadDatabaseConfig() (DatabaseConfig, error) {
	if err := LoadDotEnv(); err != nil {
		return DatabaseConfig{}, err
	}
	var c DatabaseConfig
	if err := env.Parse(&c); err != nil {
		return DatabaseConfig{}, fmt.Errorf("config: parse database env: %w", err)
	}
	return c, nil
}

// Options converts the settings for database.Open.
func (c DatabaseConfig) Options() database.Options {
	return database.Options{User: c.DBUser, Pass: c.DBPass, Host: c.DBHost, Port: c.DBPort, Name: c.DBName}
}
