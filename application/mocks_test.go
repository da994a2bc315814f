package application

import (
	"context"

	"cardvault/models"

	"github.com/stretchr/testify/mock"
)

type mockSaver struct {
	mock.Mock
}

func (m *mockSaver) Save(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type mockBackuper struct {
	mock.Mock
}

func (m *mockBackuper) Backup(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

type mockIncomeRunner struct {
	mock.Mock
}

func (m *mockIncomeRunner) RunCycle(ctx context.Context) (*models.CycleSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CycleSummary), args.Error(1)
}

type mockAuctionCloser struct {
	mock.Mock
}

func (m *mockAuctionCloser) CloseExpired(ctx context.Context) ([]*models.AuctionResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AuctionResult), args.Error(1)
}

type mockTradeExpirer struct {
	mock.Mock
}

func (m *mockTradeExpirer) ExpireStale(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
