package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cardvault/models"
)

// Store holds the whole economy state in memory behind one engine lock.
// All access goes through a unit of work or through Export/Import.
type Store struct {
	lock     chan struct{}
	capacity int

	accounts    map[models.AccountID]*models.Account
	auctions    map[string]*models.Auction
	trades      map[models.TradeID]*models.TradeOffer
	gamenights  []models.GamenightLink
	settings    models.Settings
	lastReports map[models.AccountID]*models.IncomeReport
	lifetime    map[models.AccountID]int64
	incomeCycle int64
}

// State is a consistent copy of the persisted part of the store
type State struct {
	Settings       models.Settings
	Accounts       []*models.Account
	Auctions       []*models.Auction
	GamenightLinks []models.GamenightLink
}

// NewStore creates an empty store. capacity bounds every inventory; zero disables the bound.
func NewStore(settings models.Settings, capacity int) *Store {
	s := &Store{
		lock:     make(chan struct{}, 1),
		capacity: capacity,
		settings: settings,
	}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.accounts = make(map[models.AccountID]*models.Account)
	s.auctions = make(map[string]*models.Auction)
	s.trades = make(map[models.TradeID]*models.TradeOffer)
	s.gamenights = nil
	s.lastReports = make(map[models.AccountID]*models.IncomeReport)
	s.lifetime = make(map[models.AccountID]int64)
	s.incomeCycle = 0
}

// acquire takes the engine lock, giving up when ctx ends
func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() {
	<-s.lock
}

// Export copies the persisted state while holding the engine lock
func (s *Store) Export(ctx context.Context) (*State, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, fmt.Errorf("failed to acquire engine lock: %w", err)
	}
	defer s.release()

	state := &State{
		Settings:       s.settings,
		Accounts:       make([]*models.Account, 0, len(s.accounts)),
		Auctions:       make([]*models.Auction, 0, len(s.auctions)),
		GamenightLinks: append([]models.GamenightLink(nil), s.gamenights...),
	}
	for _, account := range s.accounts {
		state.Accounts = append(state.Accounts, account.Clone())
	}
	sort.Slice(state.Accounts, func(i, j int) bool { return state.Accounts[i].ID < state.Accounts[j].ID })

	for _, auction := range s.auctions {
		state.Auctions = append(state.Auctions, auction.Clone())
	}
	sort.Slice(state.Auctions, func(i, j int) bool {
		return auctionKey(state.Auctions[i].CardName) < auctionKey(state.Auctions[j].CardName)
	})
	return state, nil
}

// Import replaces the persisted state while holding the engine lock.
// Pending trades and income bookkeeping do not survive an import.
func (s *Store) Import(ctx context.Context, state *State) error {
	if err := validateState(state, s.capacity); err != nil {
		return err
	}
	if err := s.acquire(ctx); err != nil {
		return fmt.Errorf("failed to acquire engine lock: %w", err)
	}
	defer s.release()

	s.reset()
	s.settings = state.Settings
	for _, account := range state.Accounts {
		s.accounts[account.ID] = account.Clone()
	}
	for _, auction := range state.Auctions {
		s.auctions[auctionKey(auction.CardName)] = auction.Clone()
	}
	s.gamenights = append([]models.GamenightLink(nil), state.GamenightLinks...)
	return nil
}

// Counts returns the number of accounts and active auctions without copying state
func (s *Store) Counts(ctx context.Context) (accounts, activeAuctions int, err error) {
	if err := s.acquire(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to acquire engine lock: %w", err)
	}
	defer s.release()

	for _, auction := range s.auctions {
		if auction.Active {
			activeAuctions++
		}
	}
	return len(s.accounts), activeAuctions, nil
}

func validateState(state *State, capacity int) error {
	if state == nil {
		return fmt.Errorf("state is nil")
	}
	if state.Settings.StartingBalance < 0 {
		return fmt.Errorf("starting balance cannot be negative")
	}
	seen := make(map[models.AccountID]bool, len(state.Accounts))
	for _, account := range state.Accounts {
		if account == nil {
			return fmt.Errorf("nil account in state")
		}
		if seen[account.ID] {
			return fmt.Errorf("duplicate account %d", account.ID)
		}
		seen[account.ID] = true
		if account.Balance < 0 {
			return fmt.Errorf("account %d has negative balance %d", account.ID, account.Balance)
		}
		if account.Points < 0 || account.XP < 0 {
			return fmt.Errorf("account %d has negative points or xp", account.ID)
		}
		if capacity > 0 && len(account.Inventory) > capacity {
			return fmt.Errorf("account %d holds %d cards, capacity is %d", account.ID, len(account.Inventory), capacity)
		}
		names := make(map[string]bool, len(account.Inventory))
		for _, card := range account.Inventory {
			key := strings.ToLower(card.Name)
			if names[key] {
				return fmt.Errorf("account %d holds %q more than once", account.ID, card.Name)
			}
			names[key] = true
		}
	}
	auctions := make(map[string]bool, len(state.Auctions))
	for _, auction := range state.Auctions {
		if auction == nil || auction.CardName == "" {
			return fmt.Errorf("auction without card name in state")
		}
		key := auctionKey(auction.CardName)
		if auctions[key] {
			return fmt.Errorf("duplicate auction for %q", auction.CardName)
		}
		auctions[key] = true
	}
	return nil
}

func auctionKey(cardName string) string {
	return strings.ToLower(strings.TrimSpace(cardName))
}
