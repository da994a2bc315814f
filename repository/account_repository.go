package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cardvault/models"
	"cardvault/service"
)

// accountRepository implements the AccountRepository interface over the store
type accountRepository struct {
	tx *tx
}

func (r *accountRepository) lookup(id models.AccountID) (*models.Account, error) {
	if err := r.tx.check(); err != nil {
		return nil, err
	}
	account, ok := r.tx.store.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %d not found", id)
	}
	return account, nil
}

// Get retrieves an account by id
func (r *accountRepository) Get(ctx context.Context, id models.AccountID) (*models.Account, error) {
	if err := r.tx.check(); err != nil {
		return nil, err
	}
	account, ok := r.tx.store.accounts[id]
	if !ok {
		return nil, nil
	}
	return account.Clone(), nil
}

// Create creates a new account with the initial balance
func (r *accountRepository) Create(ctx context.Context, id models.AccountID, initialBalance int64, createdAt time.Time) (*models.Account, error) {
	if err := r.tx.check(); err != nil {
		return nil, err
	}
	if initialBalance < 0 {
		return nil, fmt.Errorf("initial balance cannot be negative")
	}
	if _, exists := r.tx.store.accounts[id]; exists {
		return nil, fmt.Errorf("account %d already exists", id)
	}

	account := &models.Account{
		ID:        id,
		Balance:   initialBalance,
		Inventory: []models.CardInstance{},
		CreatedAt: createdAt,
	}
	r.tx.store.accounts[id] = account
	r.tx.onUndo(func() { delete(r.tx.store.accounts, id) })
	return account.Clone(), nil
}

// UpdateBalance sets an account's balance
func (r *accountRepository) UpdateBalance(ctx context.Context, id models.AccountID, newBalance int64) error {
	if newBalance < 0 {
		return fmt.Errorf("%w: balance cannot go negative", service.ErrInsufficientFunds)
	}
	account, err := r.lookup(id)
	if err != nil {
		return err
	}
	previous := account.Balance
	account.Balance = newBalance
	r.tx.onUndo(func() { account.Balance = previous })
	return nil
}

// UpdatePoints sets an account's points
func (r *accountRepository) UpdatePoints(ctx context.Context, id models.AccountID, newPoints int64) error {
	account, err := r.lookup(id)
	if err != nil {
		return err
	}
	previous := account.Points
	account.Points = newPoints
	r.tx.onUndo(func() { account.Points = previous })
	return nil
}

// UpdateXP sets an account's experience
func (r *accountRepository) UpdateXP(ctx context.Context, id models.AccountID, newXP int64) error {
	account, err := r.lookup(id)
	if err != nil {
		return err
	}
	previous := account.XP
	account.XP = newXP
	r.tx.onUndo(func() { account.XP = previous })
	return nil
}

// AppendCard adds a card instance to the end of the inventory
func (r *accountRepository) AppendCard(ctx context.Context, id models.AccountID, card models.CardInstance) error {
	account, err := r.lookup(id)
	if err != nil {
		return err
	}
	if capacity := r.tx.store.capacity; capacity > 0 && len(account.Inventory) >= capacity {
		return fmt.Errorf("%w: %d/%d cards", service.ErrCollectionFull, len(account.Inventory), capacity)
	}
	account.Inventory = append(account.Inventory, card)
	r.tx.onUndo(func() { account.Inventory = account.Inventory[:len(account.Inventory)-1] })
	return nil
}

// RemoveCardAt removes the card at index, preserving order
func (r *accountRepository) RemoveCardAt(ctx context.Context, id models.AccountID, index int) (models.CardInstance, error) {
	account, err := r.lookup(id)
	if err != nil {
		return models.CardInstance{}, err
	}
	card, ok := account.CardAt(index)
	if !ok {
		return models.CardInstance{}, fmt.Errorf("%w: %d", service.ErrInvalidIndex, index)
	}

	previous := account.Inventory
	remaining := make([]models.CardInstance, 0, len(previous)-1)
	remaining = append(remaining, previous[:index]...)
	remaining = append(remaining, previous[index+1:]...)
	account.Inventory = remaining
	r.tx.onUndo(func() { account.Inventory = previous })
	return card, nil
}

// Reset sets the balance and clears points, xp and inventory
func (r *accountRepository) Reset(ctx context.Context, id models.AccountID, balance int64) error {
	if balance < 0 {
		return fmt.Errorf("balance cannot be negative")
	}
	account, err := r.lookup(id)
	if err != nil {
		return err
	}
	previous := account.Clone()
	account.Balance = balance
	account.Points = 0
	account.XP = 0
	account.Inventory = []models.CardInstance{}
	r.tx.onUndo(func() {
		account.Balance = previous.Balance
		account.Points = previous.Points
		account.XP = previous.XP
		account.Inventory = previous.Inventory
	})
	return nil
}

// GetAll returns all accounts ordered by id
func (r *accountRepository) GetAll(ctx context.Context) ([]*models.Account, error) {
	if err := r.tx.check(); err != nil {
		return nil, err
	}
	accounts := make([]*models.Account, 0, len(r.tx.store.accounts))
	for _, account := range r.tx.store.accounts {
		accounts = append(accounts, account.Clone())
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}
