package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cardvault/cmd"
	"cardvault/config"
	"cardvault/database"

	log "github.com/sirupsen/logrus"
)

func main() {
	if len(os.Args) > 1 {
		if err := handleSubcommand(os.Args[1], os.Args[2:]); err != nil {
			log.Fatalf("%s error: %v", os.Args[1], err)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	if err := cmd.Run(ctx); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func handleSubcommand(name string, args []string) error {
	switch name {
	case "migrate":
		return handleMigrationCommand(args)
	case "backup":
		return cmd.Backup(context.Background())
	case "inspect":
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		return cmd.Inspect(path)
	default:
		return fmt.Errorf("unknown command %q (want migrate, backup or inspect)", name)
	}
}

func handleMigrationCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: cardvault migrate [up|down|status] [args...]")
	}

	cfg := config.Get()
	cmd.ConfigureLogging(cfg)
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for migrations")
	}
	url := cfg.GetDatabaseURL()

	switch args[0] {
	case "up":
		return database.MigrateUp(url)
	case "down":
		steps := "1"
		if len(args) > 1 {
			steps = args[1]
		}
		return database.MigrateDown(url, steps)
	case "status":
		return database.MigrateStatus(url)
	default:
		return fmt.Errorf("unknown migration command: %s", args[0])
	}
}
