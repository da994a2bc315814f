package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"cardvault/catalog"
	"cardvault/clock"
	"cardvault/config"
	"cardvault/events"
	"cardvault/models"
	"cardvault/repository"
	"cardvault/service"

	"github.com/stretchr/testify/require"
)

// Test IDs
const (
	alice models.AccountID = 111111
	bob   models.AccountID = 222222
	carol models.AccountID = 333333
)

var testStart = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// historySink captures committed balance history
type historySink struct {
	mu      sync.Mutex
	entries []*models.BalanceHistory
}

func (h *historySink) Enqueue(entries []*models.BalanceHistory) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entries...)
}

func (h *historySink) ofType(txType models.TransactionType) []*models.BalanceHistory {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*models.BalanceHistory
	for _, e := range h.entries {
		if e.TransactionType == txType {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	ctx     context.Context
	clock   *clock.Fake
	config  *config.Config
	store   *repository.Store
	bus     *events.Bus
	history *historySink
	catalog *catalog.Catalog

	ledger    service.LedgerService
	inventory service.InventoryService
	shop      service.ShopService
	auctions  service.AuctionService
	trades    service.TradeService
	income    service.IncomeService
	community service.CommunityService
}

func testCatalog() *catalog.Catalog {
	return catalog.New([]models.CardDefinition{
		{Name: "Tavern Cat", Rarity: models.RarityCommon, BasePrice: 2000, IncomeRate: 20},
		{Name: "Gilded Relic", Rarity: models.RarityCommon, BasePrice: 20000, IncomeRate: 100},
		{Name: "Ember Drake", Rarity: models.RarityEpic, BasePrice: 5000, IncomeRate: 55},
		{Name: "Ironclad Titan", Rarity: models.RarityLegendary, BasePrice: 20000, IncomeRate: 220},
		{Name: "Paper Crown", Rarity: models.RarityCommon, BasePrice: 100, IncomeRate: 0},
		{Name: "The Last Card", Rarity: models.RaritySecret, BasePrice: 500000, IncomeRate: 5250},
	}, catalog.DefaultPolicy())
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.NewTestConfig()
	cfg.InventoryCapacity = 3
	clk := clock.NewFake(testStart)
	cat := testCatalog()
	store := repository.NewStore(models.Settings{StartingBalance: cfg.StartingBalance}, cfg.InventoryCapacity)
	bus := events.NewBus()
	history := &historySink{}
	uowFactory := repository.NewUnitOfWorkFactory(store, bus, history)

	return &testEnv{
		ctx:       context.Background(),
		clock:     clk,
		config:    cfg,
		store:     store,
		bus:       bus,
		history:   history,
		catalog:   cat,
		ledger:    service.NewLedgerService(uowFactory, cfg, clk),
		inventory: service.NewInventoryService(uowFactory, cfg, clk),
		shop:      service.NewShopService(uowFactory, cat, cfg, clk),
		auctions:  service.NewAuctionService(uowFactory, cat, cfg, clk),
		trades:    service.NewTradeService(uowFactory, cfg, clk),
		income:    service.NewIncomeService(uowFactory, cat, clk),
		community: service.NewCommunityService(uowFactory, clk),
	}
}

// give puts catalog cards straight into an inventory
func (e *testEnv) give(t *testing.T, id models.AccountID, names ...string) {
	t.Helper()
	for _, name := range names {
		def, ok := e.catalog.Lookup(name)
		require.True(t, ok, name)
		require.NoError(t, e.inventory.Add(e.ctx, id, def.NewInstance(e.clock.Now())))
	}
}

func (e *testEnv) setBalance(t *testing.T, id models.AccountID, balance int64) {
	t.Helper()
	_, err := e.ledger.AdjustBalance(e.ctx, id, balance)
	require.NoError(t, err)
}

func (e *testEnv) balance(t *testing.T, id models.AccountID) int64 {
	t.Helper()
	balance, err := e.ledger.GetBalance(e.ctx, id)
	require.NoError(t, err)
	return balance
}

func (e *testEnv) cardNames(t *testing.T, id models.AccountID) []string {
	t.Helper()
	cards, err := e.inventory.List(e.ctx, id)
	require.NoError(t, err)
	names := make([]string, 0, len(cards))
	for _, c := range cards {
		names = append(names, c.Name)
	}
	return names
}
