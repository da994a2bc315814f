package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cardvault/events"
	"cardvault/models"
	"cardvault/repository/testutil"
	"cardvault/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestStore() *Store {
	return NewStore(models.Settings{StartingBalance: 50000}, 3)
}

func TestUnitOfWork_CommitKeepsChangesAndFlushes(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	bus := events.NewBus()
	recorder := new(service.MockHistoryRecorder)
	recorder.On("Enqueue", mock.MatchedBy(func(entries []*models.BalanceHistory) bool {
		return len(entries) == 1 && entries[0].AccountID == 7
	})).Return().Once()

	received := make(chan events.Event, 1)
	bus.Subscribe(events.EventTypeBalanceChange, func(ctx context.Context, e events.Event) {
		received <- e
	})

	factory := NewUnitOfWorkFactory(store, bus, recorder)
	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))

	_, err := uow.AccountRepository().Create(ctx, 7, 0, testNow)
	require.NoError(t, err)
	require.NoError(t, uow.AccountRepository().UpdateBalance(ctx, 7, 100))
	history := testutil.CreateTestBalanceHistoryWithAmounts(7, 0, 100, 100, models.TransactionTypeCredit)
	require.NoError(t, uow.BalanceHistoryRepository().Record(ctx, history))
	uow.EventBus().Publish(events.BalanceChangeEvent{AccountID: 7, NewBalance: 100})

	require.NoError(t, uow.Commit())
	require.NoError(t, uow.Rollback(), "rollback after commit is a no-op")

	select {
	case e := <-received:
		assert.Equal(t, int64(100), e.(events.BalanceChangeEvent).NewBalance)
	case <-time.After(time.Second):
		t.Fatal("event was not flushed on commit")
	}
	recorder.AssertExpectations(t)

	check := factory.Create()
	require.NoError(t, check.Begin(ctx))
	defer check.Rollback()
	account, err := check.AccountRepository().Get(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, int64(100), account.Balance)
}

func TestUnitOfWork_RollbackUndoesEverything(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	factory := NewUnitOfWorkFactory(store, events.NewBus(), nil)
	card := testutil.CreateTestCard("Tavern Cat", models.RarityCommon, 2000, 20)
	other := testutil.CreateTestCard("Ironclad Titan", models.RarityLegendary, 20000, 220)

	seed := factory.Create()
	require.NoError(t, seed.Begin(ctx))
	_, err := seed.AccountRepository().Create(ctx, 1, 500, testNow)
	require.NoError(t, err)
	require.NoError(t, seed.AccountRepository().AppendCard(ctx, 1, card))
	require.NoError(t, seed.GamenightRepository().Add(ctx, models.GamenightLink{URL: "https://a.example"}))
	require.NoError(t, seed.AuctionRepository().Save(ctx, &models.Auction{CardName: "Tavern Cat", Active: true, ExpiresAt: testNow}))
	require.NoError(t, seed.Commit())

	before, err := store.Export(ctx)
	require.NoError(t, err)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	accounts := uow.AccountRepository()
	require.NoError(t, accounts.UpdateBalance(ctx, 1, 10))
	require.NoError(t, accounts.UpdatePoints(ctx, 1, 5))
	require.NoError(t, accounts.UpdateXP(ctx, 1, 250))
	require.NoError(t, accounts.AppendCard(ctx, 1, other))
	_, err = accounts.RemoveCardAt(ctx, 1, 0)
	require.NoError(t, err)
	_, err = accounts.Create(ctx, 2, 50000, testNow)
	require.NoError(t, err)
	require.NoError(t, accounts.Reset(ctx, 1, 50000))
	require.NoError(t, uow.AuctionRepository().Save(ctx, &models.Auction{CardName: "tavern cat", Active: false}))
	require.NoError(t, uow.AuctionRepository().Save(ctx, &models.Auction{CardName: "Ironclad Titan", Active: true}))
	_, err = uow.GamenightRepository().RemoveAt(ctx, 0)
	require.NoError(t, err)
	require.NoError(t, uow.SettingsRepository().Update(ctx, models.Settings{StartingBalance: 1}))
	offer := &models.TradeOffer{ID: models.NewTradeID(), Sender: 1, Recipient: 2, Status: models.TradeStatusPending}
	require.NoError(t, uow.TradeRepository().Create(ctx, offer))
	_, err = uow.IncomeReportRepository().NextCycle(ctx)
	require.NoError(t, err)
	_, err = uow.IncomeReportRepository().AddLifetime(ctx, 1, 99)
	require.NoError(t, err)
	require.NoError(t, uow.IncomeReportRepository().SaveReport(ctx, &models.IncomeReport{AccountID: 1, Payout: 99}))
	require.NoError(t, uow.Rollback())

	after, err := store.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Empty(t, store.trades)
	assert.Empty(t, store.lastReports)
	assert.Empty(t, store.lifetime)
	assert.Zero(t, store.incomeCycle)
}

func TestUnitOfWork_RepositoriesRejectUseAfterCommit(t *testing.T) {
	ctx := context.Background()
	factory := NewUnitOfWorkFactory(newTestStore(), events.NewBus(), nil)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	accounts := uow.AccountRepository()
	require.NoError(t, uow.Commit())

	_, err := accounts.Create(ctx, 1, 0, testNow)
	assert.ErrorIs(t, err, errNotActive)
	assert.Error(t, uow.Commit())
}

func TestUnitOfWork_BeginHonoursContext(t *testing.T) {
	factory := NewUnitOfWorkFactory(newTestStore(), events.NewBus(), nil)

	holder := factory.Create()
	require.NoError(t, holder.Begin(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	waiter := factory.Create()
	err := waiter.Begin(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	require.NoError(t, holder.Rollback())
	require.NoError(t, waiter.Begin(context.Background()))
	require.NoError(t, waiter.Rollback())
}

func TestUnitOfWork_SerialisesReadModifyWrite(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	factory := NewUnitOfWorkFactory(store, events.NewBus(), nil)

	seed := factory.Create()
	require.NoError(t, seed.Begin(ctx))
	_, err := seed.AccountRepository().Create(ctx, 1, 0, testNow)
	require.NoError(t, err)
	require.NoError(t, seed.Commit())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			uow := factory.Create()
			if err := uow.Begin(ctx); err != nil {
				return
			}
			defer uow.Rollback()
			account, _ := uow.AccountRepository().Get(ctx, 1)
			_ = uow.AccountRepository().UpdateBalance(ctx, 1, account.Balance+1)
			_ = uow.Commit()
		}()
	}
	wg.Wait()

	state, err := store.Export(ctx)
	require.NoError(t, err)
	require.Len(t, state.Accounts, 1)
	assert.Equal(t, int64(50), state.Accounts[0].Balance)
}

func TestAccountRepository_Guards(t *testing.T) {
	ctx := context.Background()
	factory := NewUnitOfWorkFactory(newTestStore(), events.NewBus(), nil)
	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()
	accounts := uow.AccountRepository()

	_, err := accounts.Create(ctx, 1, 100, testNow)
	require.NoError(t, err)

	tests := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{
			name:    "negative balance",
			run:     func() error { return accounts.UpdateBalance(ctx, 1, -1) },
			wantErr: service.ErrInsufficientFunds,
		},
		{
			name: "remove out of range",
			run: func() error {
				_, err := accounts.RemoveCardAt(ctx, 1, 0)
				return err
			},
			wantErr: service.ErrInvalidIndex,
		},
		{
			name: "capacity",
			run: func() error {
				for i, name := range []string{"a", "b", "c", "d"} {
					if err := accounts.AppendCard(ctx, 1, testutil.CreateTestCard(name, models.RarityCommon, 1, 1)); err != nil {
						if i < 3 {
							return errors.New("append failed below capacity")
						}
						return err
					}
				}
				return nil
			},
			wantErr: service.ErrCollectionFull,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), tt.wantErr)
		})
	}

	_, err = accounts.Create(ctx, 1, 0, testNow)
	assert.Error(t, err, "duplicate account")
}

func TestAccountRepository_GetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	factory := NewUnitOfWorkFactory(newTestStore(), events.NewBus(), nil)
	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	_, err := uow.AccountRepository().Create(ctx, 1, 100, testNow)
	require.NoError(t, err)
	require.NoError(t, uow.AccountRepository().AppendCard(ctx, 1, testutil.CreateTestCard("x", models.RarityEpic, 1, 1)))

	account, err := uow.AccountRepository().Get(ctx, 1)
	require.NoError(t, err)
	account.Balance = 0
	account.Inventory[0].Name = "mutated"

	again, err := uow.AccountRepository().Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), again.Balance)
	assert.Equal(t, "x", again.Inventory[0].Name)
}

func TestTradeRepository_Queries(t *testing.T) {
	ctx := context.Background()
	factory := NewUnitOfWorkFactory(newTestStore(), events.NewBus(), nil)
	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()
	trades := uow.TradeRepository()

	fresh := &models.TradeOffer{ID: models.NewTradeID(), Sender: 1, Recipient: 2, Status: models.TradeStatusPending,
		CreatedAt: testNow, ExpiresAt: testNow.Add(time.Minute)}
	stale := &models.TradeOffer{ID: models.NewTradeID(), Sender: 3, Recipient: 1, Status: models.TradeStatusPending,
		CreatedAt: testNow.Add(-2 * time.Minute), ExpiresAt: testNow.Add(-time.Minute)}
	require.NoError(t, trades.Create(ctx, fresh))
	require.NoError(t, trades.Create(ctx, stale))

	pending, err := trades.GetPendingByAccount(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, stale.ID, pending[0].ID, "oldest first")

	expired, err := trades.GetExpired(ctx, testNow)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, stale.ID, expired[0].ID)

	require.NoError(t, trades.Delete(ctx, stale.ID))
	got, err := trades.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	require.NoError(t, trades.Delete(ctx, stale.ID), "deleting a purged offer is a no-op")
}

func TestAuctionRepository_CaseInsensitiveAndExpiry(t *testing.T) {
	ctx := context.Background()
	factory := NewUnitOfWorkFactory(newTestStore(), events.NewBus(), nil)
	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()
	auctions := uow.AuctionRepository()

	require.NoError(t, auctions.Save(ctx, &models.Auction{CardName: "Tavern Cat", Active: true, ExpiresAt: testNow.Add(time.Minute)}))
	require.NoError(t, auctions.Save(ctx, &models.Auction{CardName: "Ironclad Titan", Active: true, ExpiresAt: testNow.Add(-time.Second)}))
	require.NoError(t, auctions.Save(ctx, &models.Auction{CardName: "The Last Card", Active: false, ExpiresAt: testNow.Add(-time.Hour)}))

	got, err := auctions.Get(ctx, "TAVERN CAT")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Tavern Cat", got.CardName)

	active, err := auctions.GetActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Ironclad Titan", active[0].CardName, "ordered by expiry")

	expired, err := auctions.GetExpiredActive(ctx, testNow)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "Ironclad Titan", expired[0].CardName)
}
