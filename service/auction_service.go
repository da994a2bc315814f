package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cardvault/catalog"
	"cardvault/clock"
	"cardvault/config"
	"cardvault/events"
	"cardvault/models"

	log "github.com/sirupsen/logrus"
)

type auctionService struct {
	uowFactory UnitOfWorkFactory
	catalog    *catalog.Catalog
	config     *config.Config
	clock      clock.Clock
}

// NewAuctionService creates a new auction service
func NewAuctionService(uowFactory UnitOfWorkFactory, cat *catalog.Catalog, cfg *config.Config, clk clock.Clock) AuctionService {
	return &auctionService{
		uowFactory: uowFactory,
		catalog:    cat,
		config:     cfg,
		clock:      clk,
	}
}

func (s *auctionService) Spawn(ctx context.Context, cardName string, creator models.AccountID) (*models.Auction, error) {
	definition, ok := s.catalog.Lookup(cardName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCard, cardName)
	}

	var auction *models.Auction
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		now := s.clock.Now()
		existing, err := uow.AuctionRepository().Get(ctx, definition.Name)
		if err != nil {
			return fmt.Errorf("failed to get auction: %w", err)
		}
		if existing != nil && existing.Active {
			if !existing.IsExpired(now) {
				return fmt.Errorf("%w: %s", ErrAuctionAlreadyActive, definition.Name)
			}
			// The reaper has not reached it yet
			if _, err := s.settle(ctx, uow, existing, nil, now); err != nil {
				return err
			}
		}

		auction = &models.Auction{
			CardName:  definition.Name,
			Active:    true,
			Creator:   creator,
			StartedAt: now,
			ExpiresAt: now.Add(s.config.AuctionDuration),
		}
		if err := uow.AuctionRepository().Save(ctx, auction); err != nil {
			return fmt.Errorf("failed to save auction: %w", err)
		}

		uow.EventBus().Publish(events.AuctionStartedEvent{
			CardName:  auction.CardName,
			Creator:   creator,
			ExpiresAt: auction.ExpiresAt.Unix(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"card":       auction.CardName,
		"creator":    creator,
		"expires_at": auction.ExpiresAt,
	}).Info("Auction started")
	return auction, nil
}

func (s *auctionService) Bid(ctx context.Context, cardName string, bidder models.AccountID, amount int64) (*models.Auction, error) {
	var auction *models.Auction
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		now := s.clock.Now()
		current, err := s.getActive(ctx, uow, cardName)
		if err != nil {
			return err
		}

		if current.IsExpired(now) {
			if _, err := s.settle(ctx, uow, current, nil, now); err != nil {
				return err
			}
			return commitAndFail(fmt.Errorf("%w: %s closed at %s", ErrAuctionExpired, current.CardName, current.ExpiresAt.Format(time.RFC3339)))
		}

		if amount <= current.HighestBid {
			return fmt.Errorf("%w: current highest bid is %d", ErrBidTooLow, current.HighestBid)
		}

		account, err := ensureAccount(ctx, uow, bidder, now)
		if err != nil {
			return err
		}
		if !account.HasSufficientBalance(amount) {
			return fmt.Errorf("%w: have %d, bid %d", ErrInsufficientFunds, account.Balance, amount)
		}

		previousExpiry := current.ExpiresAt
		current.HighestBid = amount
		current.HighestBidder = &bidder
		current.BidCount++
		current.ExtendForBid(now, s.config.AntiSnipeWindow)

		if err := uow.AuctionRepository().Save(ctx, current); err != nil {
			return fmt.Errorf("failed to save auction: %w", err)
		}

		uow.EventBus().Publish(events.BidPlacedEvent{
			CardName:  current.CardName,
			Bidder:    bidder,
			Amount:    amount,
			ExpiresAt: current.ExpiresAt.Unix(),
			Extended:  current.ExpiresAt.After(previousExpiry),
		})
		auction = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return auction, nil
}

func (s *auctionService) Close(ctx context.Context, cardName string, closer models.AccountID) (*models.AuctionResult, error) {
	var result *models.AuctionResult
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		auction, err := s.getActive(ctx, uow, cardName)
		if err != nil {
			return err
		}
		result, err = s.settle(ctx, uow, auction, &closer, s.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *auctionService) Get(ctx context.Context, cardName string) (*models.Auction, error) {
	var auction *models.Auction
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		var err error
		auction, err = uow.AuctionRepository().Get(ctx, cardName)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	return auction, nil
}

func (s *auctionService) ListActive(ctx context.Context) ([]*models.Auction, error) {
	var auctions []*models.Auction
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		var err error
		auctions, err = uow.AuctionRepository().GetActive(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w", err)
	}
	return auctions, nil
}

func (s *auctionService) CloseExpired(ctx context.Context) ([]*models.AuctionResult, error) {
	var results []*models.AuctionResult
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		now := s.clock.Now()
		expired, err := uow.AuctionRepository().GetExpiredActive(ctx, now)
		if err != nil {
			return fmt.Errorf("failed to get expired auctions: %w", err)
		}
		for _, auction := range expired {
			result, err := s.settle(ctx, uow, auction, nil, now)
			if err != nil {
				return err
			}
			results = append(results, result)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *auctionService) getActive(ctx context.Context, uow UnitOfWork, cardName string) (*models.Auction, error) {
	auction, err := uow.AuctionRepository().Get(ctx, cardName)
	if err != nil {
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	if auction == nil || !auction.Active {
		return nil, fmt.Errorf("%w: %s", ErrNoActiveAuction, cardName)
	}
	return auction, nil
}

// settle closes the auction and transfers the card if the winner can still take it.
// A winner that cannot pay, hold, or legally own the card gets nothing and pays nothing.
func (s *auctionService) settle(ctx context.Context, uow UnitOfWork, auction *models.Auction, closer *models.AccountID, now time.Time) (*models.AuctionResult, error) {
	auction.MarkClosed(now)
	result := &models.AuctionResult{
		Auction:  auction,
		Winner:   auction.HighestBidder,
		Amount:   auction.HighestBid,
		ClosedBy: closer,
		Reason:   models.SettlementNoBids,
	}

	if auction.HasBidder() {
		reason, err := s.transferToWinner(ctx, uow, auction, now)
		if err != nil {
			return nil, err
		}
		result.Reason = reason
		result.Transferred = reason == models.SettlementTransferred
	}

	if err := uow.AuctionRepository().Save(ctx, auction); err != nil {
		return nil, fmt.Errorf("failed to save auction: %w", err)
	}

	uow.EventBus().Publish(events.AuctionClosedEvent{
		CardName:    auction.CardName,
		Winner:      result.Winner,
		Amount:      result.Amount,
		Transferred: result.Transferred,
		Reason:      string(result.Reason),
	})

	fields := log.Fields{
		"card":   auction.CardName,
		"amount": result.Amount,
		"reason": result.Reason,
	}
	if result.Winner != nil {
		fields["winner"] = *result.Winner
	}
	log.WithFields(fields).Info("Auction closed")
	return result, nil
}

func (s *auctionService) transferToWinner(ctx context.Context, uow UnitOfWork, auction *models.Auction, now time.Time) (models.SettlementReason, error) {
	definition, ok := s.catalog.Lookup(auction.CardName)
	if !ok {
		return models.SettlementUnknownCard, nil
	}

	winner, err := ensureAccount(ctx, uow, *auction.HighestBidder, now)
	if err != nil {
		return "", err
	}
	if !winner.HasSufficientBalance(auction.HighestBid) {
		return models.SettlementInsufficientFunds, nil
	}

	// Checked before the debit so a failed transfer leaves the balance untouched
	err = addCard(ctx, uow, winner, definition.NewInstance(now), s.config.InventoryCapacity)
	switch {
	case errors.Is(err, ErrAlreadyOwned):
		return models.SettlementAlreadyOwned, nil
	case errors.Is(err, ErrCollectionFull):
		return models.SettlementCollectionFull, nil
	case err != nil:
		return "", err
	}

	metadata := map[string]any{"card": definition.Name, "bid_count": auction.BidCount}
	if err := applyBalanceChange(ctx, uow, winner, -auction.HighestBid, models.TransactionTypeAuctionWin, metadata, now); err != nil {
		return "", err
	}
	return models.SettlementTransferred, nil
}
