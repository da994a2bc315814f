package events

import (
	"context"
	"sync"

	"cardvault/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange   EventType = "balance_change"
	EventTypeAccountCreated  EventType = "account_created"
	EventTypeLevelUp         EventType = "level_up"
	EventTypeCardPurchased   EventType = "card_purchased"
	EventTypeCardSold        EventType = "card_sold"
	EventTypeAuctionStarted  EventType = "auction_started"
	EventTypeBidPlaced       EventType = "bid_placed"
	EventTypeAuctionClosed   EventType = "auction_closed"
	EventTypeTradeProposed   EventType = "trade_proposed"
	EventTypeTradeResolved   EventType = "trade_resolved"
	EventTypeIncomeCycle     EventType = "income_cycle"
	EventTypeSnapshotWritten EventType = "snapshot_written"
)

// AllEventTypes lists every event type the engine emits
func AllEventTypes() []EventType {
	return []EventType{
		EventTypeBalanceChange,
		EventTypeAccountCreated,
		EventTypeLevelUp,
		EventTypeCardPurchased,
		EventTypeCardSold,
		EventTypeAuctionStarted,
		EventTypeBidPlaced,
		EventTypeAuctionClosed,
		EventTypeTradeProposed,
		EventTypeTradeResolved,
		EventTypeIncomeCycle,
		EventTypeSnapshotWritten,
	}
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	AccountID       models.AccountID       `json:"account_id"`
	OldBalance      int64                  `json:"old_balance"`
	NewBalance      int64                  `json:"new_balance"`
	TransactionType models.TransactionType `json:"transaction_type"`
	ChangeAmount    int64                  `json:"change_amount"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// AccountCreatedEvent is emitted when an account is first referenced
type AccountCreatedEvent struct {
	AccountID      models.AccountID `json:"account_id"`
	InitialBalance int64            `json:"initial_balance"`
}

func (e AccountCreatedEvent) Type() EventType {
	return EventTypeAccountCreated
}

// LevelUpEvent is emitted once per crossed xp threshold batch
type LevelUpEvent struct {
	AccountID    models.AccountID `json:"account_id"`
	NewLevel     int64            `json:"new_level"`
	LevelsGained int64            `json:"levels_gained"`
	CoinReward   int64            `json:"coin_reward"`
	PointsReward int64            `json:"points_reward"`
}

func (e LevelUpEvent) Type() EventType {
	return EventTypeLevelUp
}

// CardPurchasedEvent represents a card bought from the shop
type CardPurchasedEvent struct {
	AccountID models.AccountID `json:"account_id"`
	CardName  string           `json:"card_name"`
	Price     int64            `json:"price"`
}

func (e CardPurchasedEvent) Type() EventType {
	return EventTypeCardPurchased
}

// CardSoldEvent represents a card sold back to the shop
type CardSoldEvent struct {
	AccountID models.AccountID `json:"account_id"`
	CardName  string           `json:"card_name"`
	Price     int64            `json:"price"`
}

func (e CardSoldEvent) Type() EventType {
	return EventTypeCardSold
}

// AuctionStartedEvent represents a newly spawned auction
type AuctionStartedEvent struct {
	CardName  string           `json:"card_name"`
	Creator   models.AccountID `json:"creator"`
	ExpiresAt int64            `json:"expires_at_unix"`
}

func (e AuctionStartedEvent) Type() EventType {
	return EventTypeAuctionStarted
}

// BidPlacedEvent represents an accepted bid
type BidPlacedEvent struct {
	CardName  string           `json:"card_name"`
	Bidder    models.AccountID `json:"bidder"`
	Amount    int64            `json:"amount"`
	ExpiresAt int64            `json:"expires_at_unix"`
	Extended  bool             `json:"extended"`
}

func (e BidPlacedEvent) Type() EventType {
	return EventTypeBidPlaced
}

// AuctionClosedEvent represents a settled auction
type AuctionClosedEvent struct {
	CardName    string            `json:"card_name"`
	Winner      *models.AccountID `json:"winner,omitempty"`
	Amount      int64             `json:"amount"`
	Transferred bool              `json:"transferred"`
	Reason      string            `json:"reason"`
}

func (e AuctionClosedEvent) Type() EventType {
	return EventTypeAuctionClosed
}

// TradeProposedEvent represents a new pending trade offer
type TradeProposedEvent struct {
	TradeID   models.TradeID   `json:"trade_id"`
	Sender    models.AccountID `json:"sender"`
	Recipient models.AccountID `json:"recipient"`
	CardName  string           `json:"card_name"`
}

func (e TradeProposedEvent) Type() EventType {
	return EventTypeTradeProposed
}

// TradeResolvedEvent represents a trade leaving the pending state
type TradeResolvedEvent struct {
	TradeID   models.TradeID     `json:"trade_id"`
	Sender    models.AccountID   `json:"sender"`
	Recipient models.AccountID   `json:"recipient"`
	CardName  string             `json:"card_name"`
	Status    models.TradeStatus `json:"status"`
}

func (e TradeResolvedEvent) Type() EventType {
	return EventTypeTradeResolved
}

// IncomeCycleEvent summarises one accrual cycle
type IncomeCycleEvent struct {
	Cycle         int64 `json:"cycle"`
	AccountsPaid  int   `json:"accounts_paid"`
	TotalCredited int64 `json:"total_credited"`
}

func (e IncomeCycleEvent) Type() EventType {
	return EventTypeIncomeCycle
}

// SnapshotWrittenEvent is emitted after the canonical snapshot or a backup is written
type SnapshotWrittenEvent struct {
	Kind      string `json:"kind"` // "save" or "backup"
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	Accounts  int    `json:"accounts"`
	Auctions  int    `json:"auctions"`
}

func (e SnapshotWrittenEvent) Type() EventType {
	return EventTypeSnapshotWritten
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// SubscribeAll adds a handler for every event type the engine emits
func (b *Bus) SubscribeAll(handler Handler) {
	for _, eventType := range AllEventTypes() {
		b.Subscribe(eventType, handler)
	}
}

// Publish emits the event immediately, for publishers outside a unit of work
func (b *Bus) Publish(event Event) {
	b.Emit(context.Background(), event)
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds events raised inside a unit of work until it commits
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

// NewTransactionalBus creates a transactional bus flushing into real
func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

// Publish stashes the event until Flush
func (b *TransactionalBus) Publish(e Event) {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Adding event to transactional bus pending queue")
	b.pending = append(b.pending, e)
}

// Pending returns the number of stashed events
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}

// Flush emits stashed events; called after a successful commit
func (b *TransactionalBus) Flush() {
	if b.real == nil {
		b.pending = nil
		return
	}
	// Handlers run independently of the unit of work's context
	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard drops stashed events; called after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
