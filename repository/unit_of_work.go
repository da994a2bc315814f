package repository

import (
	"context"
	"errors"
	"fmt"

	"cardvault/events"
	"cardvault/models"
	"cardvault/service"
)

var errNotActive = errors.New("unit of work is not active")

// tx is the state shared by the repositories of one unit of work
type tx struct {
	store   *Store
	active  bool
	undo    []func()
	history []*models.BalanceHistory
}

// onUndo registers a compensating action run by Rollback in reverse order
func (t *tx) onUndo(fn func()) {
	t.undo = append(t.undo, fn)
}

func (t *tx) check() error {
	if !t.active {
		return errNotActive
	}
	return nil
}

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	tx               *tx
	recorder         service.HistoryRecorder
	transactionalBus *events.TransactionalBus

	accountRepo        service.AccountRepository
	auctionRepo        service.AuctionRepository
	tradeRepo          service.TradeRepository
	incomeReportRepo   service.IncomeReportRepository
	gamenightRepo      service.GamenightRepository
	settingsRepo       service.SettingsRepository
	balanceHistoryRepo service.BalanceHistoryRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory. recorder may be nil, in which case
// committed history is dropped.
func NewUnitOfWorkFactory(store *Store, eventBus *events.Bus, recorder service.HistoryRecorder) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		store:    store,
		eventBus: eventBus,
		recorder: recorder,
	}
}

type unitOfWorkFactory struct {
	store    *Store
	eventBus *events.Bus
	recorder service.HistoryRecorder
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		tx:               &tx{store: f.store},
		recorder:         f.recorder,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin acquires the engine lock
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx.active {
		return fmt.Errorf("transaction already started")
	}

	if err := u.tx.store.acquire(ctx); err != nil {
		return fmt.Errorf("failed to acquire engine lock: %w", err)
	}
	u.tx.active = true

	u.accountRepo = &accountRepository{tx: u.tx}
	u.auctionRepo = &auctionRepository{tx: u.tx}
	u.tradeRepo = &tradeRepository{tx: u.tx}
	u.incomeReportRepo = &incomeReportRepository{tx: u.tx}
	u.gamenightRepo = &gamenightRepository{tx: u.tx}
	u.settingsRepo = &settingsRepository{tx: u.tx}
	u.balanceHistoryRepo = &balanceHistoryRepository{tx: u.tx}
	return nil
}

// Commit keeps all changes and releases the engine lock
func (u *unitOfWork) Commit() error {
	if !u.tx.active {
		return fmt.Errorf("no transaction to commit")
	}

	history := u.tx.history
	u.tx.undo = nil
	u.tx.history = nil
	u.tx.active = false
	u.tx.store.release()

	if u.recorder != nil && len(history) > 0 {
		u.recorder.Enqueue(history)
	}

	// Flush pending events after successful commit
	if u.transactionalBus != nil {
		u.transactionalBus.Flush()
	}
	return nil
}

// Rollback undoes all changes and releases the engine lock
func (u *unitOfWork) Rollback() error {
	if !u.tx.active {
		return nil // Nothing to rollback
	}

	for i := len(u.tx.undo) - 1; i >= 0; i-- {
		u.tx.undo[i]()
	}
	u.tx.undo = nil
	u.tx.history = nil
	u.tx.active = false
	u.tx.store.release()

	// Discard pending events on rollback
	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}
	return nil
}

// AccountRepository returns the account repository for this unit of work
func (u *unitOfWork) AccountRepository() service.AccountRepository {
	if u.accountRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.accountRepo
}

// AuctionRepository returns the auction repository for this unit of work
func (u *unitOfWork) AuctionRepository() service.AuctionRepository {
	if u.auctionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.auctionRepo
}

// TradeRepository returns the trade repository for this unit of work
func (u *unitOfWork) TradeRepository() service.TradeRepository {
	if u.tradeRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.tradeRepo
}

// IncomeReportRepository returns the income report repository for this unit of work
func (u *unitOfWork) IncomeReportRepository() service.IncomeReportRepository {
	if u.incomeReportRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.incomeReportRepo
}

// GamenightRepository returns the gamenight repository for this unit of work
func (u *unitOfWork) GamenightRepository() service.GamenightRepository {
	if u.gamenightRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.gamenightRepo
}

// SettingsRepository returns the settings repository for this unit of work
func (u *unitOfWork) SettingsRepository() service.SettingsRepository {
	if u.settingsRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.settingsRepo
}

// BalanceHistoryRepository returns the balance history repository for this unit of work
func (u *unitOfWork) BalanceHistoryRepository() service.BalanceHistoryRepository {
	if u.balanceHistoryRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.balanceHistoryRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
