// cmd/migrate/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"wallet-ledger/internal/config"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
	"wallet-ledger/pkg/db"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: migrate <command>")
		fmt.Fprintf(os.Stderr, "Commands: %s\n", strings.Join(repository.MigrationCommands, ", "))
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	command := flag.Arg(0)

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	util.InitLogger(cfg.LogLevel)
	logger := util.GetLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	database, err := db.NewPostgresDB(ctx, cfg.DB)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	logger.Info("Starting migration", "command", command)
	if err := repository.RunMigrations(ctx, database.DB, command); err != nil {
		logger.Error("Migration failed", "command", command, "error", err)
		database.Close()
		os.Exit(1)
	}
	logger.Info("Migration finished successfully", "command", command)
}
