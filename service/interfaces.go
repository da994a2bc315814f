package service

import (
	"context"
	"time"

	"cardvault/events"
	"cardvault/models"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	// Get retrieves an account by id, returning nil if it does not exist
	Get(ctx context.Context, id models.AccountID) (*models.Account, error)

	// Create creates a new account with the initial balance
	Create(ctx context.Context, id models.AccountID, initialBalance int64, createdAt time.Time) (*models.Account, error)

	// UpdateBalance sets an account's balance. Negative balances are rejected.
	UpdateBalance(ctx context.Context, id models.AccountID, newBalance int64) error

	// UpdatePoints sets an account's points
	UpdatePoints(ctx context.Context, id models.AccountID, newPoints int64) error

	// UpdateXP sets an account's experience
	UpdateXP(ctx context.Context, id models.AccountID, newXP int64) error

	// AppendCard adds a card instance to the end of the inventory
	AppendCard(ctx context.Context, id models.AccountID, card models.CardInstance) error

	// RemoveCardAt removes the card at index, preserving the order of the remaining cards
	RemoveCardAt(ctx context.Context, id models.AccountID, index int) (models.CardInstance, error)

	// Reset sets the balance and clears points, xp and inventory
	Reset(ctx context.Context, id models.AccountID, balance int64) error

	// GetAll returns all accounts ordered by id
	GetAll(ctx context.Context) ([]*models.Account, error)
}

// AuctionRepository defines the interface for auction data access. Auctions are keyed by
// case-insensitive card name.
type AuctionRepository interface {
	// Get retrieves the auction for a card, returning nil if none was ever started
	Get(ctx context.Context, cardName string) (*models.Auction, error)

	// Save inserts or replaces the auction for its card
	Save(ctx context.Context, auction *models.Auction) error

	// GetActive returns all active auctions ordered by expiry
	GetActive(ctx context.Context) ([]*models.Auction, error)

	// GetExpiredActive returns active auctions whose deadline has passed
	GetExpiredActive(ctx context.Context, now time.Time) ([]*models.Auction, error)
}

// TradeRepository defines the interface for pending trade offers
type TradeRepository interface {
	Create(ctx context.Context, offer *models.TradeOffer) error
	Get(ctx context.Context, id models.TradeID) (*models.TradeOffer, error)
	Delete(ctx context.Context, id models.TradeID) error

	// GetPendingByAccount returns offers the account sent or received
	GetPendingByAccount(ctx context.Context, id models.AccountID) ([]*models.TradeOffer, error)

	// GetExpired returns pending offers whose deadline has passed
	GetExpired(ctx context.Context, now time.Time) ([]*models.TradeOffer, error)
}

// IncomeReportRepository defines the interface for accrual bookkeeping
type IncomeReportRepository interface {
	NextCycle(ctx context.Context) (int64, error)
	SaveReport(ctx context.Context, report *models.IncomeReport) error
	GetLastReport(ctx context.Context, id models.AccountID) (*models.IncomeReport, error)
	AddLifetime(ctx context.Context, id models.AccountID, amount int64) (int64, error)
	GetLifetime(ctx context.Context, id models.AccountID) (int64, error)
}

// GamenightRepository defines the interface for shared gamenight links
type GamenightRepository interface {
	Add(ctx context.Context, link models.GamenightLink) error
	List(ctx context.Context) ([]models.GamenightLink, error)
	RemoveAt(ctx context.Context, index int) (models.GamenightLink, error)
}

// SettingsRepository defines the interface for runtime settings
type SettingsRepository interface {
	Get(ctx context.Context) (models.Settings, error)
	Update(ctx context.Context, settings models.Settings) error
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record buffers a history entry. It is persisted only if the unit of work commits.
	Record(ctx context.Context, history *models.BalanceHistory) error
}

// HistoryJournal is the durable sink for committed balance history
type HistoryJournal interface {
	// Append writes committed history entries
	Append(ctx context.Context, entries []*models.BalanceHistory) error

	// GetByAccount returns the most recent entries for an account, newest first
	GetByAccount(ctx context.Context, id models.AccountID, limit int) ([]*models.BalanceHistory, error)

	// RecordSnapshot logs a written snapshot or backup file
	RecordSnapshot(ctx context.Context, record *models.SnapshotRecord) error

	Close() error
}

// HistoryRecorder accepts committed history for asynchronous journaling
type HistoryRecorder interface {
	Enqueue(entries []*models.BalanceHistory)
}

// LedgerService defines balance, points and experience operations
type LedgerService interface {
	// GetAccount returns the account, creating it on first reference
	GetAccount(ctx context.Context, id models.AccountID) (*models.Account, error)

	GetBalance(ctx context.Context, id models.AccountID) (int64, error)
	GetPoints(ctx context.Context, id models.AccountID) (int64, error)
	GetXP(ctx context.Context, id models.AccountID) (int64, error)

	// Credit adds a non-negative amount to the balance
	Credit(ctx context.Context, id models.AccountID, amount int64) (*models.Account, error)

	// Debit removes a non-negative amount, failing if it exceeds the balance
	Debit(ctx context.Context, id models.AccountID, amount int64) (*models.Account, error)

	// AddXP adds experience and pays the level reward once per crossed threshold
	AddXP(ctx context.Context, id models.AccountID, amount int64) (*models.LevelProgress, error)

	// RecordActivity grants the per-message experience
	RecordActivity(ctx context.Context, id models.AccountID) (*models.LevelProgress, error)

	// Transfer moves currency between two accounts
	Transfer(ctx context.Context, from, to models.AccountID, amount int64) (*models.TransferResult, error)

	// Leaderboard returns the richest accounts, balance descending then id
	Leaderboard(ctx context.Context, limit int) ([]*models.Account, error)

	// ResetAccount restores the starting balance and clears points, xp and inventory
	ResetAccount(ctx context.Context, id models.AccountID) (*models.Account, error)

	// AdjustBalance sets the balance to an exact value
	AdjustBalance(ctx context.Context, id models.AccountID, newBalance int64) (*models.Account, error)
}

// InventoryService defines card collection operations
type InventoryService interface {
	List(ctx context.Context, id models.AccountID) ([]models.CardInstance, error)
	Add(ctx context.Context, id models.AccountID, card models.CardInstance) error
	Remove(ctx context.Context, id models.AccountID, cardName string) error
	Has(ctx context.Context, id models.AccountID, cardName string) (bool, error)
}

// ShopService defines catalog purchase and sale operations
type ShopService interface {
	Buy(ctx context.Context, id models.AccountID, cardName string) (*models.PurchaseResult, error)

	// QuoteSale prices the card at index without changing state
	QuoteSale(ctx context.Context, id models.AccountID, index int) (*models.SaleQuote, error)

	// ConfirmSale executes a quote if the inventory still matches it
	ConfirmSale(ctx context.Context, quote *models.SaleQuote) (*models.SaleResult, error)
}

// AuctionService defines auction lifecycle operations
type AuctionService interface {
	Spawn(ctx context.Context, cardName string, creator models.AccountID) (*models.Auction, error)
	Bid(ctx context.Context, cardName string, bidder models.AccountID, amount int64) (*models.Auction, error)
	Close(ctx context.Context, cardName string, closer models.AccountID) (*models.AuctionResult, error)
	Get(ctx context.Context, cardName string) (*models.Auction, error)
	ListActive(ctx context.Context) ([]*models.Auction, error)

	// CloseExpired settles every active auction past its deadline
	CloseExpired(ctx context.Context) ([]*models.AuctionResult, error)
}

// TradeService defines peer to peer card trade operations
type TradeService interface {
	Propose(ctx context.Context, sender, recipient models.AccountID, cardIndex int) (*models.TradeOffer, error)
	Accept(ctx context.Context, id models.TradeID, acceptor models.AccountID) (*models.TradeOffer, error)
	Decline(ctx context.Context, id models.TradeID, acceptor models.AccountID) (*models.TradeOffer, error)
	Get(ctx context.Context, id models.TradeID) (*models.TradeOffer, error)
	ListPending(ctx context.Context, id models.AccountID) ([]*models.TradeOffer, error)

	// ExpireStale marks pending offers past their deadline as expired and purges them
	ExpireStale(ctx context.Context) (int, error)
}

// IncomeService defines passive income accrual
type IncomeService interface {
	RunCycle(ctx context.Context) (*models.CycleSummary, error)
	LastReport(ctx context.Context, id models.AccountID) (*models.IncomeReport, error)
	LifetimeIncome(ctx context.Context, id models.AccountID) (int64, error)
}

// CommunityService defines gamenight links and settings operations
type CommunityService interface {
	AddGamenightLink(ctx context.Context, url, title string, addedBy models.AccountID) (*models.GamenightLink, error)
	ListGamenightLinks(ctx context.Context) ([]models.GamenightLink, error)
	RemoveGamenightLink(ctx context.Context, index int) (*models.GamenightLink, error)
	GetSettings(ctx context.Context) (models.Settings, error)
	SetStartingBalance(ctx context.Context, amount int64) (models.Settings, error)
}

// UnitOfWork manages an atomic section over the economy state
type UnitOfWork interface {
	// Begin acquires the engine lock. It returns ctx.Err() if the context ends first.
	Begin(ctx context.Context) error

	// Commit keeps all changes, releases the lock and flushes buffered events and history
	Commit() error

	// Rollback undoes all changes and releases the lock. It is a no-op after Commit.
	Rollback() error

	// Repository getters
	AccountRepository() AccountRepository
	AuctionRepository() AuctionRepository
	TradeRepository() TradeRepository
	IncomeReportRepository() IncomeReportRepository
	GamenightRepository() GamenightRepository
	SettingsRepository() SettingsRepository
	BalanceHistoryRepository() BalanceHistoryRepository

	// EventBus returns the transactional event bus for this unit of work
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates new UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}
