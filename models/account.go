package models

import (
	"strconv"
	"strings"
	"time"
)

// AccountID identifies a user's economic record. It is the chat platform's user id.
type AccountID int64

// String returns the decimal form of the id
func (id AccountID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Account represents a user's balance, points, experience and card collection
type Account struct {
	ID        AccountID      `json:"id"`
	Balance   int64          `json:"balance"`
	Points    int64          `json:"points"`
	XP        int64          `json:"xp"`
	Inventory []CardInstance `json:"inventory"`
	CreatedAt time.Time      `json:"created_at"`
}

// Clone returns a deep copy of the account
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.Inventory = make([]CardInstance, len(a.Inventory))
	copy(c.Inventory, a.Inventory)
	return &c
}

// HasSufficientBalance checks if the account can pay the given amount
func (a *Account) HasSufficientBalance(amount int64) bool {
	return a.Balance >= amount
}

// IndexOfCard returns the inventory position of the named card, or -1
func (a *Account) IndexOfCard(name string) int {
	for i, card := range a.Inventory {
		if strings.EqualFold(card.Name, name) {
			return i
		}
	}
	return -1
}

// OwnsCard reports whether the named card is in the inventory
func (a *Account) OwnsCard(name string) bool {
	return a.IndexOfCard(name) >= 0
}

// CardAt returns the card at the given inventory position
func (a *Account) CardAt(index int) (CardInstance, bool) {
	if index < 0 || index >= len(a.Inventory) {
		return CardInstance{}, false
	}
	return a.Inventory[index], true
}

// Level returns the level reached for the given xp threshold
func (a *Account) Level(threshold int64) int64 {
	if threshold <= 0 {
		return 0
	}
	return a.XP / threshold
}
