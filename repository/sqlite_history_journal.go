package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cardvault/database"
	"cardvault/models"
)

// SQLiteHistoryJournal stores committed balance history in a local sqlite file
type SQLiteHistoryJournal struct {
	db *sql.DB
}

// OpenSQLiteHistoryJournal opens or creates the journal database at path
func OpenSQLiteHistoryJournal(path string) (*SQLiteHistoryJournal, error) {
	db, err := database.OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite journal: %w", err)
	}
	return &SQLiteHistoryJournal{db: db}, nil
}

// Append writes entries in a single transaction
func (j *SQLiteHistoryJournal) Append(ctx context.Context, entries []*models.BalanceHistory) (err error) {
	if len(entries) == 0 {
		return nil
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO balance_history
		(account_id, balance_before, balance_after, change_amount, transaction_type, transaction_metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, history := range entries {
		metadataJSON, err := marshalMetadata(history.TransactionMetadata)
		if err != nil {
			return err
		}
		res, err := stmt.ExecContext(ctx,
			int64(history.AccountID),
			history.BalanceBefore,
			history.BalanceAfter,
			history.ChangeAmount,
			string(history.TransactionType),
			string(metadataJSON),
			history.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("failed to record balance history for account %d: %w", history.AccountID, err)
		}
		if id, idErr := res.LastInsertId(); idErr == nil {
			history.ID = id
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetByAccount returns the most recent entries for an account
func (j *SQLiteHistoryJournal) GetByAccount(ctx context.Context, id models.AccountID, limit int) ([]*models.BalanceHistory, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, account_id, balance_before, balance_after, change_amount,
		       transaction_type, transaction_metadata, created_at
		FROM balance_history
		WHERE account_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, int64(id), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history for account %d: %w", id, err)
	}
	defer rows.Close()

	var histories []*models.BalanceHistory
	for rows.Next() {
		var history models.BalanceHistory
		var accountID int64
		var txType, metadataJSON, createdAt string

		err := rows.Scan(
			&history.ID,
			&accountID,
			&history.BalanceBefore,
			&history.BalanceAfter,
			&history.ChangeAmount,
			&txType,
			&metadataJSON,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance history: %w", err)
		}
		history.AccountID = models.AccountID(accountID)
		history.TransactionType = models.TransactionType(txType)
		history.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at %q: %w", createdAt, err)
		}
		if err := unmarshalMetadata([]byte(metadataJSON), &history); err != nil {
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
func (j *SQLiteHistoryJournal) RecordSnapshot(ctx context.Context, record *models.SnapshotRecord) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO snapshot_log (kind, path, size_bytes, accounts, auctions, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, record.Kind, record.Path, record.SizeBytes, record.Accounts, record.Auctions,
		record.RecordedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to record snapshot %s: %w", record.Path, err)
	}
	return nil
}

// SnapshotCount returns the number of logged snapshot writes of a kind
func (j *SQLiteHistoryJournal) SnapshotCount(ctx context.Context, kind string) (int, error) {
	var count int
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshot_log WHERE kind = ?`, kind).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return count, nil
}

// Close closes the database
func (j *SQLiteHistoryJournal) Close() error {
	return j.db.Close()
}
