package engine

import (
	"context"
	"errors"
	"fmt"

	"cardvault/application"
	"cardvault/catalog"
	"cardvault/clock"
	"cardvault/config"
	"cardvault/database"
	"cardvault/events"
	"cardvault/infrastructure"
	"cardvault/infrastructure/observability"
	"cardvault/models"
	"cardvault/persistence"
	"cardvault/repository"
	"cardvault/service"

	log "github.com/sirupsen/logrus"
)

const journalBuffer = 1024

// Engine wires the economy services to their state, persistence and workers
type Engine struct {
	Config  *config.Config
	Catalog *catalog.Catalog
	Clock   clock.Clock
	Store   *repository.Store
	Bus     *events.Bus

	Ledger    service.LedgerService
	Inventory service.InventoryService
	Shop      service.ShopService
	Auctions  service.AuctionService
	Trades    service.TradeService
	Income    service.IncomeService
	Community service.CommunityService

	Persistence *persistence.Manager

	journal service.HistoryJournal
	writer  *repository.JournalWriter
	metrics *observability.MetricsProvider
	nats    *infrastructure.NATSClient

	stops []func()
}

// New builds an engine with empty state. Call Restore to load the snapshot.
func New(ctx context.Context, cfg *config.Config, clk clock.Clock) (*Engine, error) {
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	log.WithField("cards", cat.Len()).Info("Catalog loaded")

	e := &Engine{
		Config:  cfg,
		Catalog: cat,
		Clock:   clk,
		Store:   repository.NewStore(models.Settings{StartingBalance: cfg.StartingBalance}, cfg.InventoryCapacity),
		Bus:     events.NewBus(),
	}

	if err := e.openJournal(ctx); err != nil {
		e.closeResources(ctx)
		return nil, err
	}

	e.metrics = observability.NewMetricsProvider(cfg)
	if err := e.metrics.Initialize(ctx); err != nil {
		e.closeResources(ctx)
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	e.metrics.Attach(e.Bus)

	if cfg.NATSServers != "" {
		if err := e.connectNATS(ctx); err != nil {
			e.closeResources(ctx)
			return nil, err
		}
	}

	var recorder service.HistoryRecorder
	if e.writer != nil {
		recorder = e.writer
	}
	uowFactory := repository.NewUnitOfWorkFactory(e.Store, e.Bus, recorder)

	e.Ledger = service.NewLedgerService(uowFactory, cfg, clk)
	e.Inventory = service.NewInventoryService(uowFactory, cfg, clk)
	e.Shop = service.NewShopService(uowFactory, cat, cfg, clk)
	e.Auctions = service.NewAuctionService(uowFactory, cat, cfg, clk)
	e.Trades = service.NewTradeService(uowFactory, cfg, clk)
	e.Income = service.NewIncomeService(uowFactory, cat, clk)
	e.Community = service.NewCommunityService(uowFactory, clk)

	var snapshotJournal persistence.SnapshotJournal
	if e.journal != nil {
		snapshotJournal = e.journal
	}
	files := persistence.NewFileStore(cfg.SnapshotPath(), cfg.BackupPath(), cfg.BackupRetention)
	e.Persistence = persistence.NewManager(e.Store, files, clk, e.Bus, snapshotJournal)

	return e, nil
}

func (e *Engine) openJournal(ctx context.Context) error {
	switch e.Config.HistoryDriver {
	case "postgres":
		url := e.Config.GetDatabaseURL()
		if err := database.MigrateUp(url); err != nil {
			return fmt.Errorf("failed to migrate history journal: %w", err)
		}
		db, err := database.NewConnection(ctx, url)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		e.journal = repository.NewPostgresHistoryJournal(db)
	case "sqlite":
		journal, err := repository.OpenSQLiteHistoryJournal(e.Config.SQLiteFile())
		if err != nil {
			return fmt.Errorf("failed to open sqlite history journal: %w", err)
		}
		e.journal = journal
	default:
		log.Info("Balance history journal disabled")
		return nil
	}

	e.writer = repository.NewJournalWriter(e.journal, journalBuffer)
	log.WithField("driver", e.Config.HistoryDriver).Info("Balance history journal enabled")
	return nil
}

func (e *Engine) connectNATS(ctx context.Context) error {
	client := infrastructure.NewNATSClient(e.Config.NATSServers)
	if err := client.Connect(ctx); err != nil {
		return err
	}
	e.nats = client

	mapper := infrastructure.NewEventSubjectMapper()
	if err := client.EnsureStream(infrastructure.DomainEventStream, mapper.GetAllSubjects()); err != nil {
		return err
	}
	infrastructure.NewNATSEventForwarder(client, mapper, e.Clock, e.metrics).Attach(e.Bus)
	return nil
}

// Restore loads the canonical snapshot. A missing snapshot leaves the engine empty.
func (e *Engine) Restore(ctx context.Context) (bool, error) {
	loaded, err := e.Persistence.Load(ctx)
	if err != nil {
		return false, err
	}
	if loaded {
		_, auctions, err := e.Store.Counts(ctx)
		if err == nil {
			e.metrics.SetActiveAuctions(auctions)
		}
	}
	return loaded, nil
}

// StartWorkers launches autosave, backup, income and expiry workers
func (e *Engine) StartWorkers(ctx context.Context) {
	e.stops = append(e.stops,
		application.NewExpiryReaper(e.Auctions, e.Trades, e.Config.ReaperInterval).Start(ctx),
		application.NewIncomeWorker(e.Income, e.Config.IncomeInterval).Start(ctx),
		application.NewAutosaveWorker(e.Persistence, e.Config.AutosaveInterval).Start(ctx),
		application.NewBackupWorker(e.Persistence, e.Config.BackupInterval).Start(ctx),
	)
}

// History returns recent journal entries for an account, newest first.
// It returns nothing when no journal is configured.
func (e *Engine) History(ctx context.Context, id models.AccountID, limit int) ([]*models.BalanceHistory, error) {
	if e.journal == nil {
		return nil, nil
	}
	return e.journal.GetByAccount(ctx, id, limit)
}

// Shutdown stops the workers, writes a final snapshot and releases every resource
func (e *Engine) Shutdown(ctx context.Context) error {
	for i := len(e.stops) - 1; i >= 0; i-- {
		e.stops[i]()
	}
	e.stops = nil

	var errs []error
	if err := e.Persistence.Save(ctx); err != nil {
		errs = append(errs, fmt.Errorf("final save failed: %w", err))
	} else {
		log.WithField("path", e.Persistence.Files().Path()).Info("Final snapshot saved")
	}

	errs = append(errs, e.closeResources(ctx)...)
	return errors.Join(errs...)
}

// Close releases every resource without saving. Use Shutdown for a normal stop.
func (e *Engine) Close(ctx context.Context) error {
	for i := len(e.stops) - 1; i >= 0; i-- {
		e.stops[i]()
	}
	e.stops = nil
	return errors.Join(e.closeResources(ctx)...)
}

func (e *Engine) closeResources(ctx context.Context) []error {
	var errs []error
	if e.writer != nil {
		if err := e.writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close journal writer: %w", err))
		}
		e.writer = nil
	} else if e.journal != nil {
		if err := e.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close history journal: %w", err))
		}
	}
	e.journal = nil
	if e.nats != nil {
		if err := e.nats.Close(); err != nil {
			errs = append(errs, err)
		}
		e.nats = nil
	}
	if e.metrics != nil {
		if err := e.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down metrics: %w", err))
		}
	}
	return errs
}
