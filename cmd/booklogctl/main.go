// Command booklogctl runs schema migrations and manages admin accounts from the shell
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/booklog/backend/internal/config"
	"github.com/booklog/backend/internal/database"
	"github.com/booklog/backend/internal/logger"
	"github.com/booklog/backend/internal/metrics"
	"github.com/booklog/backend/internal/repositories"
	"github.com/booklog/backend/internal/services"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"
)

const migrationsDir = "migrations"

func main() {
	if err := newRootCmd(newEnv()).Execute(); err != nil {
		os.Exit(1)
	}
}

// newEnv connects the commands to the configured database
func newEnv() *env {
	var db *sql.DB

	connect := func() (*sql.DB, error) {
		if db != nil {
			return db, nil
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if err := logger.Init(cfg.Logging.Level); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		if db, err = database.Connect(cfg.DSN()); err != nil {
			return nil, err
		}
		return db, nil
	}

	return &env{
		migrate: func(ctx context.Context) (uint, error) {
			db, err := connect()
			if err != nil {
				return 0, err
			}
			if err := database.RunMigrations(db, migrationsDir); err != nil {
				return 0, err
			}
			version, _, err := database.MigrationVersion(db, migrationsDir)
			return version, err
		},
		accounts: func(ctx context.Context) (adminAccounts, error) {
			db, err := connect()
			if err != nil {
				return nil, err
			}
			userRepo := repositories.NewUserRepository(db, logger.Logger)
			return services.NewAuthService(userRepo, metrics.New(prometheus.NewRegistry()), logger.Logger), nil
		},
		readPassword: readPassword,
		close: func() {
			if db != nil {
				db.Close()
			}
			logger.Sync()
		},
	}
}

// readPassword reads a password from the terminal without echoing it
func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(string(bytePassword)), nil
}
