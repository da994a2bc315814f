package application

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"cardvault/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestStartTicker_StopsOnStopFunc(t *testing.T) {
	var ticks atomic.Int32
	stop := startTicker(context.Background(), "test", 5*time.Millisecond, func(context.Context) {
		ticks.Add(1)
	})

	assert.Eventually(t, func() bool { return ticks.Load() >= 2 }, time.Second, 5*time.Millisecond)
	stop()
	stop()

	after := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, ticks.Load(), "no ticks after stop")
}

func TestStartTicker_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ticks atomic.Int32
	stop := startTicker(ctx, "test", 5*time.Millisecond, func(context.Context) {
		ticks.Add(1)
	})

	assert.Eventually(t, func() bool { return ticks.Load() >= 1 }, time.Second, 5*time.Millisecond)
	cancel()
	stop()

	after := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, ticks.Load())
}

func TestAutosaveWorker_RetriesAfterFailure(t *testing.T) {
	var saves atomic.Int32
	count := func(mock.Arguments) { saves.Add(1) }
	saver := new(mockSaver)
	saver.On("Save", mock.Anything).Return(errors.New("disk full")).Run(count).Once()
	saver.On("Save", mock.Anything).Return(nil).Run(count)

	worker := NewAutosaveWorker(saver, 5*time.Millisecond)
	stop := worker.Start(context.Background())

	assert.Eventually(t, func() bool {
		return saves.Load() >= 2
	}, time.Second, 5*time.Millisecond)
	stop()
}

func TestBackupWorker_Tick(t *testing.T) {
	tests := []struct {
		name string
		path string
		err  error
	}{
		{name: "success", path: "backups/economy.json-20260314T120000.000Z.zst"},
		{name: "failure is logged", err: errors.New("persistence failure")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backuper := new(mockBackuper)
			backuper.On("Backup", mock.Anything).Return(tt.path, tt.err).Once()

			NewBackupWorker(backuper, time.Hour).Tick(context.Background())

			backuper.AssertExpectations(t)
		})
	}
}

func TestIncomeWorker_Tick(t *testing.T) {
	ctx := context.Background()
	income := new(mockIncomeRunner)
	income.On("RunCycle", ctx).Return(&models.CycleSummary{Cycle: 3, AccountsPaid: 2, TotalCredited: 344}, nil).Once()
	income.On("RunCycle", ctx).Return(nil, errors.New("lock timeout")).Once()

	worker := NewIncomeWorker(income, time.Hour)
	worker.Tick(ctx)
	worker.Tick(ctx)

	income.AssertNumberOfCalls(t, "RunCycle", 2)
}

func TestExpiryReaper_Sweep(t *testing.T) {
	winner := models.AccountID(7)

	tests := []struct {
		name       string
		results    []*models.AuctionResult
		auctionErr error
	}{
		{
			name: "closes auctions and trades",
			results: []*models.AuctionResult{
				{Auction: &models.Auction{CardName: "Ember Drake"}, Winner: &winner, Amount: 150, Transferred: true, Reason: models.SettlementTransferred},
				{Auction: &models.Auction{CardName: "Tavern Cat"}, Reason: models.SettlementNoBids},
			},
		},
		{
			name:       "auction failure still expires trades",
			auctionErr: errors.New("lock timeout"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			auctions := new(mockAuctionCloser)
			trades := new(mockTradeExpirer)
			auctions.On("CloseExpired", ctx).Return(tt.results, tt.auctionErr).Once()
			trades.On("ExpireStale", ctx).Return(2, nil).Once()

			NewExpiryReaper(auctions, trades, time.Hour).Sweep(ctx)

			auctions.AssertExpectations(t)
			trades.AssertExpectations(t)
		})
	}
}

func TestExpiryReaper_Start(t *testing.T) {
	var sweeps atomic.Int32
	auctions := new(mockAuctionCloser)
	trades := new(mockTradeExpirer)
	auctions.On("CloseExpired", mock.Anything).Return([]*models.AuctionResult{}, nil)
	trades.On("ExpireStale", mock.Anything).Return(0, nil).Run(func(mock.Arguments) { sweeps.Add(1) })

	stop := NewExpiryReaper(auctions, trades, 5*time.Millisecond).Start(context.Background())
	assert.Eventually(t, func() bool {
		return sweeps.Load() >= 2
	}, time.Second, 5*time.Millisecond)
	stop()
}
