package models

import (
	"time"
)

// Auction is the bidding state for one catalog card
type Auction struct {
	CardName      string     `json:"card_name"`
	Active        bool       `json:"active"`
	HighestBid    int64      `json:"highest_bid"`
	HighestBidder *AccountID `json:"highest_bidder,omitempty"`
	Creator       AccountID  `json:"creator"`
	StartedAt     time.Time  `json:"started_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
	BidCount      int        `json:"bid_count"`
}

// Clone returns a deep copy of the auction
func (a *Auction) Clone() *Auction {
	if a == nil {
		return nil
	}
	c := *a
	if a.HighestBidder != nil {
		bidder := *a.HighestBidder
		c.HighestBidder = &bidder
	}
	if a.ClosedAt != nil {
		closedAt := *a.ClosedAt
		c.ClosedAt = &closedAt
	}
	return &c
}

// HasBidder returns true if at least one valid bid was placed
func (a *Auction) HasBidder() bool {
	return a.HighestBidder != nil
}

// IsExpired checks whether the deadline passed at the given instant
func (a *Auction) IsExpired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

// TimeRemaining returns the time left before expiry, never negative
func (a *Auction) TimeRemaining(now time.Time) time.Duration {
	remaining := a.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ExtendForBid pushes the deadline so at least window remains after now.
// A deadline already further out is left untouched.
func (a *Auction) ExtendForBid(now time.Time, window time.Duration) {
	if floor := now.Add(window); floor.After(a.ExpiresAt) {
		a.ExpiresAt = floor
	}
}

// MarkClosed transitions the auction to closed
func (a *Auction) MarkClosed(now time.Time) {
	a.Active = false
	a.ClosedAt = &now
}
