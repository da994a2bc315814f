package cmd

import (
	"context"
	"os"
	"testing"
	"time"

	"cardvault/clock"
	"cardvault/config"
	"cardvault/engine"
	"cardvault/models"
	"cardvault/persistence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCorruptEngine(t *testing.T, policy string) (*engine.Engine, *config.Config) {
	t.Helper()
	cfg := config.NewTestConfig()
	cfg.DataDir = t.TempDir()
	cfg.RestoreFailurePolicy = policy

	e, err := engine.New(context.Background(), cfg, clock.NewFake(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close(context.Background()) })
	require.NoError(t, os.WriteFile(cfg.SnapshotPath(), []byte("corrupt"), 0o644))
	return e, cfg
}

func TestRestore_FailurePolicy(t *testing.T) {
	t.Run("abort", func(t *testing.T) {
		e, cfg := newCorruptEngine(t, "abort")

		err := restore(context.Background(), e, cfg)
		assert.ErrorIs(t, err, persistence.ErrPersistenceFailure)
	})

	t.Run("empty keeps a copy of the unreadable file", func(t *testing.T) {
		e, cfg := newCorruptEngine(t, "empty")

		require.NoError(t, restore(context.Background(), e, cfg))

		backups, err := e.Persistence.Files().ListBackups()
		require.NoError(t, err)
		require.Len(t, backups, 1)
		data, err := os.ReadFile(backups[0])
		require.NoError(t, err)
		assert.Equal(t, []byte("corrupt"), data)
	})
}

func TestTopAccounts(t *testing.T) {
	accounts := []*models.Account{
		{ID: 1, Balance: 10},
		{ID: 2, Balance: 300},
		{ID: 3, Balance: 20},
		{ID: 4, Balance: 300},
	}

	top := topAccounts(accounts, 3)
	require.Len(t, top, 3)
	assert.Equal(t, []models.AccountID{2, 4, 3}, []models.AccountID{top[0].ID, top[1].ID, top[2].ID})
	assert.Len(t, topAccounts(accounts[:1], 5), 1)
}
