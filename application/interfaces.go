package application

import (
	"context"

	"cardvault/models"
)

// SnapshotSaver writes the canonical snapshot
type SnapshotSaver interface {
	Save(ctx context.Context) error
}

// SnapshotBackuper copies the canonical snapshot into the backup directory
type SnapshotBackuper interface {
	Backup(ctx context.Context) (string, error)
}

// IncomeRunner pays one accrual cycle
type IncomeRunner interface {
	RunCycle(ctx context.Context) (*models.CycleSummary, error)
}

// AuctionCloser settles auctions past their deadline
type AuctionCloser interface {
	CloseExpired(ctx context.Context) ([]*models.AuctionResult, error)
}

// TradeExpirer purges pending trades past their deadline
type TradeExpirer interface {
	ExpireStale(ctx context.Context) (int, error)
}
