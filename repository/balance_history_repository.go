package repository

import (
	"context"
	"fmt"

	"cardvault/models"
)

// balanceHistoryRepository buffers history for the unit of work. Entries reach the
// journal only after Commit.
type balanceHistoryRepository struct {
	tx *tx
}

// Record validates and buffers a history entry
func (r *balanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	if err := r.tx.check(); err != nil {
		return err
	}
	if err := history.ValidateTransaction(); err != nil {
		return fmt.Errorf("invalid balance history for account %d: %w", history.AccountID, err)
	}
	r.tx.history = append(r.tx.history, history)
	return nil
}
