// internal/repository/migrate.go
package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// MigrationCommands lists the goose commands exposed by cmd/migrate.
var MigrationCommands = []string{"up", "down", "status", "redo", "version"}

// RunMigrations applies a goose command against the embedded wallet schema.
func RunMigrations(ctx context.Context, db *sql.DB, command string) error {
	if !isMigrationCommand(command) {
		return fmt.Errorf("unknown migration command %q", command)
	}

	migrationCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	if err := goose.RunContext(migrationCtx, command, db, "migrations"); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

func isMigrationCommand(command string) bool {
	for _, c := range MigrationCommands {
		if c == command {
			return true
		}
	}
	return false
}
