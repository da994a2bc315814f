package models

import "time"

// LevelProgress is the outcome of an xp increment
type LevelProgress struct {
	AccountID     AccountID `json:"account_id"`
	XP            int64     `json:"xp"`
	Level         int64     `json:"level"`
	LevelsGained  int64     `json:"levels_gained"`
	CoinsAwarded  int64     `json:"coins_awarded"`
	PointsAwarded int64     `json:"points_awarded"`
}

// LeveledUp returns true if at least one threshold was crossed
func (p *LevelProgress) LeveledUp() bool {
	return p.LevelsGained > 0
}

// TransferResult is the outcome of a currency transfer between accounts
type TransferResult struct {
	From                AccountID `json:"from"`
	To                  AccountID `json:"to"`
	Amount              int64     `json:"amount"`
	NewBalance          int64     `json:"new_balance"`
	RecipientNewBalance int64     `json:"recipient_new_balance"`
}

// PurchaseResult is the outcome of buying a card
type PurchaseResult struct {
	Card          CardInstance `json:"card"`
	Price         int64        `json:"price"`
	NewBalance    int64        `json:"new_balance"`
	InventorySize int          `json:"inventory_size"`
}

// SaleQuote is the first phase of a sale. It must be confirmed to take effect.
type SaleQuote struct {
	AccountID AccountID    `json:"account_id"`
	CardIndex int          `json:"card_index"`
	Card      CardInstance `json:"card"`
	Price     int64        `json:"price"`
	QuotedAt  time.Time    `json:"quoted_at"`
}

// SaleResult is the outcome of a confirmed sale
type SaleResult struct {
	Card          CardInstance `json:"card"`
	Price         int64        `json:"price"`
	NewBalance    int64        `json:"new_balance"`
	InventorySize int          `json:"inventory_size"`
}

// SettlementReason explains how an auction closed
type SettlementReason string

const (
	SettlementTransferred       SettlementReason = "transferred"
	SettlementNoBids            SettlementReason = "no_bids"
	SettlementInsufficientFunds SettlementReason = "insufficient_funds"
	SettlementCollectionFull    SettlementReason = "collection_full"
	SettlementAlreadyOwned      SettlementReason = "already_owned"
	SettlementUnknownCard       SettlementReason = "unknown_card"
)

// AuctionResult is the outcome of closing an auction
type AuctionResult struct {
	Auction     *Auction         `json:"auction"`
	Winner      *AccountID       `json:"winner,omitempty"`
	Amount      int64            `json:"amount"`
	Transferred bool             `json:"transferred"`
	Reason      SettlementReason `json:"reason"`
	ClosedBy    *AccountID       `json:"closed_by,omitempty"` // nil when closed by expiry
}

// CycleSummary is the outcome of one income accrual cycle
type CycleSummary struct {
	Cycle         int64           `json:"cycle"`
	AccountsPaid  int             `json:"accounts_paid"`
	TotalCredited int64           `json:"total_credited"`
	Reports       []*IncomeReport `json:"reports"`
	RanAt         time.Time       `json:"ran_at"`
}

// SnapshotRecord describes a written snapshot or backup file
type SnapshotRecord struct {
	Kind       string    `json:"kind"`
	Path       string    `json:"path"`
	SizeBytes  int64     `json:"size_bytes"`
	Accounts   int       `json:"accounts"`
	Auctions   int       `json:"auctions"`
	RecordedAt time.Time `json:"recorded_at"`
}
