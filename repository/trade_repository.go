package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cardvault/models"
)

// tradeRepository implements the TradeRepository interface over the store
type tradeRepository struct {
	tx *tx
}

// Create stores a new pending offer
func (r *tradeRepository) Create(ctx context.Context, offer *models.TradeOffer) error {
	if err := r.tx.check(); err != nil {
		return err
	}
	if _, exists := r.tx.store.trades[offer.ID]; exists {
		return fmt.Errorf("trade %s already exists", offer.ID)
	}
	r.tx.store.trades[offer.ID] = offer.Clone()
	r.tx.onUndo(func() { delete(r.tx.store.trades, offer.ID) })
	return nil
}

// Get retrieves an offer, returning nil if it is unknown or purged
func (r *tradeRepository) Get(ctx context.Context, id models.TradeID) (*models.TradeOffer, error) {
	if err := r.tx.check(); err != nil {
		return nil, err
	}
	offer, ok := r.tx.store.trades[id]
	if !ok {
		return nil, nil
	}
	return offer.Clone(), nil
}

// Delete purges an offer
func (r *tradeRepository) Delete(ctx context.Context, id models.TradeID) error {
	if err := r.tx.check(); err != nil {
		return err
	}
	offer, ok := r.tx.store.trades[id]
	if !ok {
		return nil
	}
	delete(r.tx.store.trades, id)
	r.tx.onUndo(func() { r.tx.store.trades[id] = offer })
	return nil
}

// GetPendingByAccount returns offers the account sent or received, oldest first
func (r *tradeRepository) GetPendingByAccount(ctx context.Context, id models.AccountID) ([]*models.TradeOffer, error) {
	return r.collect(func(o *models.TradeOffer) bool {
		return o.IsPending() && (o.Sender == id || o.Recipient == id)
	})
}

// GetExpired returns pending offers whose deadline has passed
func (r *tradeRepository) GetExpired(ctx context.Context, now time.Time) ([]*models.TradeOffer, error) {
	return r.collect(func(o *models.TradeOffer) bool {
		return o.IsPending() && o.IsExpired(now)
	})
}

func (r *tradeRepository) collect(keep func(*models.TradeOffer) bool) ([]*models.TradeOffer, error) {
	if err := r.tx.check(); err != nil {
		return nil, err
	}
	var offers []*models.TradeOffer
	for _, offer := range r.tx.store.trades {
		if keep(offer) {
			offers = append(offers, offer.Clone())
		}
	}
	sort.Slice(offers, func(i, j int) bool {
		if !offers[i].CreatedAt.Equal(offers[j].CreatedAt) {
			return offers[i].CreatedAt.Before(offers[j].CreatedAt)
		}
		return offers[i].ID.String() < offers[j].ID.String()
	})
	return offers, nil
}
