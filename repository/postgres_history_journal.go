package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"cardvault/database"
	"cardvault/models"

	"github.com/jackc/pgx/v5"
)

// PostgresHistoryJournal stores committed balance history in postgres
type PostgresHistoryJournal struct {
	db *database.DB
}

// NewPostgresHistoryJournal creates a journal over an open pool. The schema comes from
// database.MigrateUp.
func NewPostgresHistoryJournal(db *database.DB) *PostgresHistoryJournal {
	return &PostgresHistoryJournal{db: db}
}

// Append writes entries in a single transaction
func (j *PostgresHistoryJournal) Append(ctx context.Context, entries []*models.BalanceHistory) error {
	if len(entries) == 0 {
		return nil
	}

	query := `
		INSERT INTO balance_history
		(account_id, balance_before, balance_after, change_amount, transaction_type, transaction_metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	return j.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		for _, history := range entries {
			metadataJSON, err := marshalMetadata(history.TransactionMetadata)
			if err != nil {
				return err
			}
			err = tx.QueryRow(ctx, query,
				int64(history.AccountID),
				history.BalanceBefore,
				history.BalanceAfter,
				history.ChangeAmount,
				string(history.TransactionType),
				metadataJSON,
				history.CreatedAt,
			).Scan(&history.ID)
			if err != nil {
				return fmt.Errorf("failed to record balance history for account %d: %w", history.AccountID, err)
			}
		}
		return nil
	})
}

// GetByAccount returns the most recent entries for an account
func (j *PostgresHistoryJournal) GetByAccount(ctx context.Context, id models.AccountID, limit int) ([]*models.BalanceHistory, error) {
	query := `
		SELECT id, account_id, balance_before, balance_after, change_amount,
		       transaction_type, transaction_metadata, created_at
		FROM balance_history
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := j.db.Query(ctx, query, int64(id), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history for account %d: %w", id, err)
	}
	defer rows.Close()

	var histories []*models.BalanceHistory
	for rows.Next() {
		var history models.BalanceHistory
		var accountID int64
		var txType string
		var metadataJSON []byte

		err := rows.Scan(
			&history.ID,
			&accountID,
			&history.BalanceBefore,
			&history.BalanceAfter,
			&history.ChangeAmount,
			&txType,
			&metadataJSON,
			&history.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance history: %w", err)
		}
		history.AccountID = models.AccountID(accountID)
		history.TransactionType = models.TransactionType(txType)
		history.CreatedAt = history.CreatedAt.UTC()

		if err := unmarshalMetadata(metadataJSON, &history); err != nil {
			return nil, err
		}
		histories = append(histories, &history)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance history: %w", err)
	}
	return histories, nil
}

// RecordSnapshot logs a written snapshot or backup
func (j *PostgresHistoryJournal) RecordSnapshot(ctx context.Context, record *models.SnapshotRecord) error {
	query := `
		INSERT INTO snapshot_log (kind, path, size_bytes, accounts, auctions, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := j.db.Exec(ctx, query,
		record.Kind, record.Path, record.SizeBytes, record.Accounts, record.Auctions, record.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to record snapshot %s: %w", record.Path, err)
	}
	return nil
}

// Close closes the pool
func (j *PostgresHistoryJournal) Close() error {
	j.db.Close()
	return nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}
	return data, nil
}

func unmarshalMetadata(data []byte, history *models.BalanceHistory) error {
	if len(data) == 0 || string(data) == "{}" {
		return nil
	}
	if err := json.Unmarshal(data, &history.TransactionMetadata); err != nil {
		return fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
	}
	return nil
}
