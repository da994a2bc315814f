package models

import (
	"time"

	"github.com/google/uuid"
)

// TradeID identifies a trade offer
type TradeID uuid.UUID

// NewTradeID generates a random trade id
func NewTradeID() TradeID {
	return TradeID(uuid.New())
}

// ParseTradeID parses the textual form of a trade id
func ParseTradeID(s string) (TradeID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return TradeID{}, err
	}
	return TradeID(id), nil
}

// String returns the canonical textual form
func (id TradeID) String() string {
	return uuid.UUID(id).String()
}

// MarshalText encodes the id in its canonical textual form
func (id TradeID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

// UnmarshalText decodes a textual trade id
func (id *TradeID) UnmarshalText(text []byte) error {
	var u uuid.UUID
	if err := u.UnmarshalText(text); err != nil {
		return err
	}
	*id = TradeID(u)
	return nil
}

// TradeStatus represents the lifecycle state of a trade offer
type TradeStatus string

const (
	TradeStatusPending  TradeStatus = "pending"
	TradeStatusAccepted TradeStatus = "accepted"
	TradeStatusDeclined TradeStatus = "declined"
	TradeStatusExpired  TradeStatus = "expired"
)

// TradeOffer is a proposal to give one card to another account
type TradeOffer struct {
	ID        TradeID      `json:"id"`
	Sender    AccountID    `json:"sender"`
	Recipient AccountID    `json:"recipient"`
	Card      CardInstance `json:"card"`
	CardIndex int          `json:"card_index"`
	Status    TradeStatus  `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Clone returns a copy of the offer
func (t *TradeOffer) Clone() *TradeOffer {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// IsPending returns true while the offer awaits a response
func (t *TradeOffer) IsPending() bool {
	return t.Status == TradeStatusPending
}

// IsExpired checks whether the offer deadline passed at the given instant
func (t *TradeOffer) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
