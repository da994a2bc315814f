package service_test

import (
	"testing"

	"cardvault/models"
	"cardvault/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerService_LazyAccountCreation(t *testing.T) {
	env := newTestEnv(t)

	account, err := env.ledger.GetAccount(env.ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), account.Balance)
	assert.Zero(t, account.Points)
	assert.Zero(t, account.XP)
	assert.Empty(t, account.Inventory)
	assert.Equal(t, testStart, account.CreatedAt)

	initial := env.history.ofType(models.TransactionTypeInitial)
	require.Len(t, initial, 1)
	assert.Equal(t, int64(50000), initial[0].BalanceAfter)

	// Second reference does not create again
	_, err = env.ledger.GetBalance(env.ctx, alice)
	require.NoError(t, err)
	assert.Len(t, env.history.ofType(models.TransactionTypeInitial), 1)
}

func TestLedgerService_CreditDebit(t *testing.T) {
	tests := []struct {
		name        string
		credit      int64
		debit       int64
		wantErr     error
		wantBalance int64
	}{
		{name: "credit then debit", credit: 500, debit: 200, wantBalance: 50300},
		{name: "debit entire balance", debit: 50000, wantBalance: 0},
		{name: "debit more than balance", debit: 50001, wantErr: service.ErrInsufficientFunds, wantBalance: 50000},
		{name: "zero amounts are no-ops", wantBalance: 50000},
		{name: "negative credit", credit: -1, wantErr: service.ErrInvalidAmount, wantBalance: 50000},
		{name: "negative debit", debit: -1, wantErr: service.ErrInvalidAmount, wantBalance: 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			_, err := env.ledger.Credit(env.ctx, alice, tt.credit)
			if err == nil {
				_, err = env.ledger.Debit(env.ctx, alice, tt.debit)
			}
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantBalance, env.balance(t, alice))
		})
	}
}

func TestLedgerService_AddXP(t *testing.T) {
	tests := []struct {
		name        string
		increments  []int64
		wantLevel   int64
		wantGained  int64 // for the last increment
		wantBalance int64
		wantPoints  int64
	}{
		{name: "below threshold", increments: []int64{99}, wantLevel: 0, wantGained: 0, wantBalance: 50000},
		{name: "exactly one crossing", increments: []int64{99, 1}, wantLevel: 1, wantGained: 1, wantBalance: 51000, wantPoints: 10},
		{name: "multiple crossings in one increment", increments: []int64{250}, wantLevel: 2, wantGained: 2, wantBalance: 52000, wantPoints: 20},
		{name: "rewards never repeat", increments: []int64{150, 10, 40}, wantLevel: 2, wantGained: 1, wantBalance: 52000, wantPoints: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			var progress *models.LevelProgress
			for _, inc := range tt.increments {
				var err error
				progress, err = env.ledger.AddXP(env.ctx, alice, inc)
				require.NoError(t, err)
			}

			assert.Equal(t, tt.wantLevel, progress.Level)
			assert.Equal(t, tt.wantGained, progress.LevelsGained)
			assert.Equal(t, tt.wantBalance, env.balance(t, alice))
			points, err := env.ledger.GetPoints(env.ctx, alice)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPoints, points)
		})
	}
}

func TestLedgerService_RecordActivity(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 100; i++ {
		_, err := env.ledger.RecordActivity(env.ctx, alice)
		require.NoError(t, err)
	}

	xp, err := env.ledger.GetXP(env.ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(100), xp)
	assert.Len(t, env.history.ofType(models.TransactionTypeLevelUp), 1)
}

func TestLedgerService_Transfer(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.ledger.Transfer(env.ctx, alice, bob, 1500)
	require.NoError(t, err)
	assert.Equal(t, int64(48500), result.NewBalance)
	assert.Equal(t, int64(51500), result.RecipientNewBalance)

	_, err = env.ledger.Transfer(env.ctx, alice, alice, 1)
	assert.ErrorIs(t, err, service.ErrSelfTransfer)

	_, err = env.ledger.Transfer(env.ctx, alice, bob, 48501)
	assert.ErrorIs(t, err, service.ErrInsufficientFunds)

	_, err = env.ledger.Transfer(env.ctx, alice, bob, 0)
	assert.ErrorIs(t, err, service.ErrInvalidAmount)

	assert.Equal(t, int64(48500), env.balance(t, alice))
	assert.Equal(t, int64(51500), env.balance(t, bob))
	assert.Len(t, env.history.ofType(models.TransactionTypeTransferOut), 1)
	assert.Len(t, env.history.ofType(models.TransactionTypeTransferIn), 1)
}

func TestLedgerService_Leaderboard(t *testing.T) {
	env := newTestEnv(t)
	env.setBalance(t, carol, 70000)
	env.setBalance(t, bob, 10)
	env.setBalance(t, alice, 70000)

	top, err := env.ledger.Leaderboard(env.ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, alice, top[0].ID, "ties broken by id")
	assert.Equal(t, carol, top[1].ID)
}

func TestLedgerService_ResetAccount(t *testing.T) {
	env := newTestEnv(t)
	env.give(t, alice, "Tavern Cat")
	_, err := env.ledger.AddXP(env.ctx, alice, 120)
	require.NoError(t, err)
	env.setBalance(t, alice, 3)

	account, err := env.ledger.ResetAccount(env.ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), account.Balance)
	assert.Zero(t, account.XP)
	assert.Zero(t, account.Points)
	assert.Empty(t, account.Inventory)

	resets := env.history.ofType(models.TransactionTypeAdminReset)
	require.Len(t, resets, 1)
	assert.Equal(t, int64(49997), resets[0].ChangeAmount)
}

func TestLedgerService_AdjustBalance(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.ledger.AdjustBalance(env.ctx, alice, -1)
	assert.ErrorIs(t, err, service.ErrInvalidAmount)

	account, err := env.ledger.AdjustBalance(env.ctx, alice, 123)
	require.NoError(t, err)
	assert.Equal(t, int64(123), account.Balance)
}
