package application

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// ExpiryReaper is the single periodic sweeper for auction and trade deadlines.
// Operations re-check deadlines themselves, so sweep latency only delays cleanup.
type ExpiryReaper struct {
	auctions AuctionCloser
	trades   TradeExpirer
	interval time.Duration
}

// NewExpiryReaper creates a new expiry reaper
func NewExpiryReaper(auctions AuctionCloser, trades TradeExpirer, interval time.Duration) *ExpiryReaper {
	return &ExpiryReaper{
		auctions: auctions,
		trades:   trades,
		interval: interval,
	}
}

// Start begins the sweep loop
func (r *ExpiryReaper) Start(ctx context.Context) func() {
	return startTicker(ctx, "expiry_reaper", r.interval, r.Sweep)
}

// Sweep closes expired auctions and purges expired trades
func (r *ExpiryReaper) Sweep(ctx context.Context) {
	results, err := r.auctions.CloseExpired(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to close expired auctions")
	}
	if len(results) > 0 {
		transferred := 0
		for _, result := range results {
			if result.Transferred {
				transferred++
			}
		}
		log.WithFields(log.Fields{
			"closed":      len(results),
			"transferred": transferred,
		}).Info("Reaper closed expired auctions")
	}

	expired, err := r.trades.ExpireStale(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to expire stale trades")
		return
	}
	if expired > 0 {
		log.WithField("count", expired).Info("Reaper expired stale trades")
	}
}
