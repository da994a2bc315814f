package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cardvault/models"
	"cardvault/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteHistoryJournal_AppendAndQuery(t *testing.T) {
	ctx := context.Background()
	journal, err := OpenSQLiteHistoryJournal(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer journal.Close()

	older := testutil.CreateTestBalanceHistoryWithAmounts(1, 50000, 30000, -20000, models.TransactionTypePurchase)
	older.CreatedAt = testNow
	newer := testutil.CreateTestBalanceHistoryWithAmounts(1, 30000, 38000, 8000, models.TransactionTypeSale)
	newer.CreatedAt = testNow.Add(time.Second)
	newer.TransactionMetadata = map[string]any{"card": "Ironclad Titan"}
	other := testutil.CreateTestBalanceHistory(2, models.TransactionTypeDebit)

	require.NoError(t, journal.Append(ctx, []*models.BalanceHistory{older, newer, other}))
	assert.NotZero(t, older.ID)

	histories, err := journal.GetByAccount(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, histories, 2)
	assert.Equal(t, models.TransactionTypeSale, histories[0].TransactionType, "newest first")
	assert.Equal(t, int64(38000), histories[0].BalanceAfter)
	assert.Equal(t, "Ironclad Titan", histories[0].TransactionMetadata["card"])
	assert.True(t, testNow.Equal(histories[1].CreatedAt))

	limited, err := journal.GetByAccount(ctx, 1, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteHistoryJournal_RecordSnapshot(t *testing.T) {
	ctx := context.Background()
	journal, err := OpenSQLiteHistoryJournal(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	defer journal.Close()

	for _, kind := range []string{"save", "save", "backup"} {
		require.NoError(t, journal.RecordSnapshot(ctx, &models.SnapshotRecord{
			Kind: kind, Path: "/data/economy.json.zst", SizeBytes: 512, Accounts: 3, Auctions: 1, RecordedAt: testNow,
		}))
	}

	saves, err := journal.SnapshotCount(ctx, "save")
	require.NoError(t, err)
	assert.Equal(t, 2, saves)
}
