package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/AurLemon/course-android-mockapi/internal/database/migrations"
)

// gooseLogger routes goose progress output through zap.
type gooseLogger struct{ s *zap.SugaredLogger }

func (l gooseLogger) Printf(format string, v ...interface{}) { l.s.Infof(format, v...) }
func (l gooseLogger) Fatalf(format string, v ...interface{}) { l.s.Fatalf(format, v...) }

func prepare(log *zap.Logger) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(gooseLogger{s: log.Sugar().Named("goose")})
	if err := goose.SetDialect("mysql"); err != nil {
		return fmt.Errorf("migrate: dialect: %w", err)
	}
	return nil
}

// Migrate applies every pending migration.
func Migrate(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	if err := prepare(log); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate: up: %w", err)
	}
	return nil
}

// Rollback reverts the most recent migration.
func Rollback(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	if err := prepare(log); err != nil {
		return err
	}
	if err := goose.DownContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate: down: %w", err)
	}
	return nil
}

// Status logs the applied state of every migration.
func Status(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	if err := prepare(log); err != nil {
		return err
	}
	if err := goose.StatusContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate: status: %w", err)
	}
	return nil
}
