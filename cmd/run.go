package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"cardvault/clock"
	"cardvault/config"
	"cardvault/engine"
	"cardvault/models"
	"cardvault/persistence"

	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 30 * time.Second

// ConfigureLogging applies the configured level and format to the global logger
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(cfg.LogFormat, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.SetOutput(os.Stdout)
}

// Run starts the engine and blocks until ctx is cancelled, then saves and shuts down
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	log.WithField("environment", cfg.Environment).Info("Starting cardvault engine...")

	e, err := engine.New(ctx, cfg, clock.Real{})
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	if err := restore(ctx, e, cfg); err != nil {
		// Skip the final save so the unreadable snapshot is not overwritten
		if closeErr := e.Close(context.Background()); closeErr != nil {
			log.WithError(closeErr).Warn("Failed to release engine resources")
		}
		return err
	}

	e.StartWorkers(ctx)
	accounts, auctions, err := e.Store.Counts(ctx)
	if err == nil {
		log.WithFields(log.Fields{
			"accounts":        accounts,
			"active_auctions": auctions,
		}).Info("Engine is running")
	}

	<-ctx.Done()
	log.Info("Shutting down engine...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown incomplete: %w", err)
	}

	log.Info("Shutdown completed")
	return nil
}

// restore loads the snapshot and applies the restore failure policy
func restore(ctx context.Context, e *engine.Engine, cfg *config.Config) error {
	_, err := e.Restore(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, persistence.ErrPersistenceFailure) || cfg.RestoreFailurePolicy != "empty" {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}

	// Keep the unreadable file for inspection before the first autosave replaces it
	if path, backupErr := e.Persistence.Backup(ctx); backupErr == nil {
		log.WithField("path", path).Warn("Preserved unreadable snapshot as backup")
	}
	log.WithError(err).Warn("Snapshot unreadable, starting with empty state")
	return nil
}

// Backup writes a one-shot backup of the canonical snapshot
func Backup(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	files := persistence.NewFileStore(cfg.SnapshotPath(), cfg.BackupPath(), cfg.BackupRetention)
	path, size, err := files.Backup(clock.Real{}.Now())
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"path":  path,
		"bytes": size,
	}).Info("Backup written")
	return nil
}

// Inspect decodes a snapshot file and logs a summary. An empty path inspects the canonical file.
func Inspect(path string) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	if path == "" {
		path = cfg.SnapshotPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	doc, err := persistence.Inspect(data)
	if err != nil {
		return err
	}

	var coins int64
	var cards, active int
	for _, account := range doc.Accounts {
		coins += account.Balance
		cards += len(account.Inventory)
	}
	for _, auction := range doc.Auctions {
		if auction.Active {
			active++
		}
	}

	log.WithFields(log.Fields{
		"path":             path,
		"version":          doc.Version,
		"saved_at":         doc.SavedAt.Format(time.RFC3339),
		"starting_balance": doc.Settings.StartingBalance,
		"accounts":         len(doc.Accounts),
		"coins":            coins,
		"cards":            cards,
		"auctions":         len(doc.Auctions),
		"active_auctions":  active,
		"gamenight_links":  len(doc.GamenightLinks),
	}).Info("Snapshot summary")

	for _, account := range topAccounts(doc.Accounts, 5) {
		log.WithFields(log.Fields{
			"account": account.ID,
			"balance": account.Balance,
			"cards":   len(account.Inventory),
		}).Info("Top account")
	}
	return nil
}

func topAccounts(accounts []*models.Account, n int) []*models.Account {
	top := append([]*models.Account(nil), accounts...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Balance > top[j].Balance })
	if len(top) > n {
		top = top[:n]
	}
	return top
}
