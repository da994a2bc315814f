package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cardvault/models"
)

// auctionRepository implements the AuctionRepository interface over the store
type auctionRepository struct {
	tx *tx
}

// Get retrieves the auction for a card
func (r *auctionRepository) Get(ctx context.Context, cardName string) (*models.Auction, error) {
	if err := r.tx.check(); err != nil {
		return nil, err
	}
	auction, ok := r.tx.store.auctions[auctionKey(cardName)]
	if !ok {
		return nil, nil
	}
	return auction.Clone(), nil
}

// Save inserts or replaces the auction for its card
func (r *auctionRepository) Save(ctx context.Context, auction *models.Auction) error {
	if err := r.tx.check(); err != nil {
		return err
	}
	if auction == nil || auction.CardName == "" {
		return fmt.Errorf("auction must name a card")
	}

	key := auctionKey(auction.CardName)
	previous, existed := r.tx.store.auctions[key]
	r.tx.store.auctions[key] = auction.Clone()
	r.tx.onUndo(func() {
		if existed {
			r.tx.store.auctions[key] = previous
		} else {
			delete(r.tx.store.auctions, key)
		}
	})
	return nil
}

// GetActive returns all active auctions ordered by expiry
func (r *auctionRepository) GetActive(ctx context.Context) ([]*models.Auction, error) {
	return r.collect(func(a *models.Auction) bool { return a.Active })
}

// GetExpiredActive returns active auctions whose deadline has passed
func (r *auctionRepository) GetExpiredActive(ctx context.Context, now time.Time) ([]*models.Auction, error) {
	return r.collect(func(a *models.Auction) bool { return a.Active && a.IsExpired(now) })
}

func (r *auctionRepository) collect(keep func(*models.Auction) bool) ([]*models.Auction, error) {
	if err := r.tx.check(); err != nil {
		return nil, err
	}
	var auctions []*models.Auction
	for _, auction := range r.tx.store.auctions {
		if keep(auction) {
			auctions = append(auctions, auction.Clone())
		}
	}
	sort.Slice(auctions, func(i, j int) bool {
		if !auctions[i].ExpiresAt.Equal(auctions[j].ExpiresAt) {
			return auctions[i].ExpiresAt.Before(auctions[j].ExpiresAt)
		}
		return auctionKey(auctions[i].CardName) < auctionKey(auctions[j].CardName)
	})
	return auctions, nil
}
