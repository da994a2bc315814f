package service

import (
	"context"

	"cardvault/events"
	"cardvault/models"

	"github.com/stretchr/testify/mock"
)

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockHistoryJournal is a mock implementation of HistoryJournal
type MockHistoryJournal struct {
	mock.Mock
}

func (m *MockHistoryJournal) Append(ctx context.Context, entries []*models.BalanceHistory) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockHistoryJournal) GetByAccount(ctx context.Context, id models.AccountID, limit int) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, id, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

func (m *MockHistoryJournal) RecordSnapshot(ctx context.Context, record *models.SnapshotRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockHistoryJournal) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockHistoryRecorder is a mock implementation of HistoryRecorder
type MockHistoryRecorder struct {
	mock.Mock
}

func (m *MockHistoryRecorder) Enqueue(entries []*models.BalanceHistory) {
	m.Called(entries)
}

// MockUnitOfWork is a mock implementation of UnitOfWork for helpers that only record history
type MockUnitOfWork struct {
	mock.Mock
	BalanceHistoryRepo *MockBalanceHistoryRepository
	Events             *MockEventPublisher
}

// NewMockUnitOfWork creates a mock unit of work with fresh history and event mocks
func NewMockUnitOfWork() *MockUnitOfWork {
	return &MockUnitOfWork{
		BalanceHistoryRepo: new(MockBalanceHistoryRepository),
		Events:             new(MockEventPublisher),
	}
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) AccountRepository() AccountRepository           { return nil }
func (m *MockUnitOfWork) AuctionRepository() AuctionRepository           { return nil }
func (m *MockUnitOfWork) TradeRepository() TradeRepository               { return nil }
func (m *MockUnitOfWork) IncomeReportRepository() IncomeReportRepository { return nil }
func (m *MockUnitOfWork) GamenightRepository() GamenightRepository       { return nil }
func (m *MockUnitOfWork) SettingsRepository() SettingsRepository         { return nil }

func (m *MockUnitOfWork) BalanceHistoryRepository() BalanceHistoryRepository {
	return m.BalanceHistoryRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.Events
}
