// Command mockapi is the admin CLI: schema migrations, seed accounts,
// roster imports and session housekeeping.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/AurLemon/course-android-mockapi/internal/config"
	"github.com/AurLemon/course-android-mockapi/internal/database"
	"github.com/AurLemon/course-android-mockapi/internal/logging"
	"github.com/AurLemon/course-android-mockapi/internal/repository"
)

const usage = `usage: mockapi [--log-level LEVEL] <command> [args]

commands:
  migrate up|down|status   apply, roll back or list schema migrations
  seed                     create the admin and test accounts if missing
  import --file PATH       create users from a .yaml/.yml or .csv roster
  sessions purge           delete sessions whose refresh token expired
`

// errUsage marks command line mistakes; main prints the usage text for them.
var errUsage = errors.New("invalid usage")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	flags := pflag.NewFlagSet("mockapi", pflag.ContinueOnError)
	flags.SetInterspersed(false) // flags after the command belong to it
	level := flags.String("log-level", "info", "zap log level")
	cost := flags.Int("bcrypt-cost", 10, "bcrypt cost for created passwords")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprint(out, usage)
			return nil
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	rest := flags.Args()
	if len(rest) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}

	log, err := logging.New("dev", *level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "migrate", "seed", "import", "sessions":
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	// parse command flags before touching the database
	var (
		migrateOp  string
		rosterPath string
	)
	switch cmd {
	case "migrate":
		if len(cmdArgs) != 1 {
			return fmt.Errorf("%w: migrate needs one of up, down, status", errUsage)
		}
		migrateOp = cmdArgs[0]
		if migrateOp != "up" && migrateOp != "down" && migrateOp != "status" {
			return fmt.Errorf("%w: unknown migrate direction %q", errUsage, migrateOp)
		}
	case "import":
		fs := pflag.NewFlagSet("import", pflag.ContinueOnError)
		fs.StringVarP(&rosterPath, "file", "f", "", "roster file (.yaml, .yml or .csv)")
		if err := fs.Parse(cmdArgs); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		if rosterPath == "" {
			return fmt.Errorf("%w: import needs --file", errUsage)
		}
	case "sessions":
		if len(cmdArgs) != 1 || cmdArgs[0] != "purge" {
			return fmt.Errorf("%w: sessions supports only purge", errUsage)
		}
	}

	db, err := connect()
	if err != nil {
		return err
	}
	defer db.Close()

	switch cmd {
	case "migrate":
		return migrate(ctx, db, log, migrateOp)
	case "seed":
		return seedUsers(ctx, repository.NewUserRepo(db), *cost, out)
	case "import":
		entries, err := readRoster(rosterPath)
		if err != nil {
			return err
		}
		res, err := importRoster(ctx, repository.NewUserRepo(db), entries, *cost, log)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "导入完成! 成功: %d, 已存在: %d, 失败: %d\n", res.Created, res.Skipped, res.Failed)
		return nil
	default: // sessions purge
		n, err := repository.NewTokenRepo(db).DeleteExpired(ctx, time.Now())
		if err != nil {
			return err
		}
		log.Info("expired sessions purged", zap.Int64("rows", n))
		fmt.Fprintf(out, "purged %d expired sessions\n", n)
		return nil
	}
}

func connect() (*sql.DB, error) {
	cfg, err := config.LoadDatabaseConfig()
	if err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.Options())
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB, log *zap.Logger, op string) error {
	switch op {
	case "up":
		return database.Migrate(ctx, db, log)
	case "down":
		return database.Rollback(ctx, db, log)
	case "status":
		return database.Status(ctx, db, log)
	default:
		return fmt.Errorf("%w: unknown migrate direction %q", errUsage, op)
	}
}
