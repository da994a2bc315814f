package service

import (
	"context"
	"fmt"
	"time"

	"cardvault/clock"
	"cardvault/config"
	"cardvault/events"
	"cardvault/models"
)

type tradeService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
	clock      clock.Clock
}

// NewTradeService creates a new trade service
func NewTradeService(uowFactory UnitOfWorkFactory, cfg *config.Config, clk clock.Clock) TradeService {
	return &tradeService{
		uowFactory: uowFactory,
		config:     cfg,
		clock:      clk,
	}
}

// Propose offers the card at cardIndex as a gift to recipient. The card stays with the
// sender until the offer is accepted.
func (s *tradeService) Propose(ctx context.Context, sender, recipient models.AccountID, cardIndex int) (*models.TradeOffer, error) {
	if sender == recipient {
		return nil, ErrSelfTrade
	}

	var offer *models.TradeOffer
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		now := s.clock.Now()
		account, err := ensureAccount(ctx, uow, sender, now)
		if err != nil {
			return err
		}
		card, ok := account.CardAt(cardIndex)
		if !ok {
			return fmt.Errorf("%w: %d (inventory has %d cards)", ErrInvalidIndex, cardIndex, len(account.Inventory))
		}
		if _, err := ensureAccount(ctx, uow, recipient, now); err != nil {
			return err
		}

		offer = &models.TradeOffer{
			ID:        models.NewTradeID(),
			Sender:    sender,
			Recipient: recipient,
			Card:      card,
			CardIndex: cardIndex,
			Status:    models.TradeStatusPending,
			CreatedAt: now,
			ExpiresAt: now.Add(s.config.TradeExpiry),
		}
		if err := uow.TradeRepository().Create(ctx, offer); err != nil {
			return fmt.Errorf("failed to create trade: %w", err)
		}

		uow.EventBus().Publish(events.TradeProposedEvent{
			TradeID:   offer.ID,
			Sender:    sender,
			Recipient: recipient,
			CardName:  card.Name,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return offer, nil
}

func (s *tradeService) Accept(ctx context.Context, id models.TradeID, acceptor models.AccountID) (*models.TradeOffer, error) {
	var offer *models.TradeOffer
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		now := s.clock.Now()
		var err error
		offer, err = s.getPendingFor(ctx, uow, id, acceptor, now)
		if err != nil {
			return err
		}

		sender, err := ensureAccount(ctx, uow, offer.Sender, now)
		if err != nil {
			return err
		}
		card, ok := sender.CardAt(offer.CardIndex)
		if !ok || !card.SameCard(offer.Card) {
			return fmt.Errorf("%w: sender no longer holds %s at position %d", ErrStaleOffer, offer.Card.Name, offer.CardIndex)
		}

		recipient, err := ensureAccount(ctx, uow, offer.Recipient, now)
		if err != nil {
			return err
		}

		if _, err := uow.AccountRepository().RemoveCardAt(ctx, sender.ID, offer.CardIndex); err != nil {
			return fmt.Errorf("failed to remove card from sender: %w", err)
		}
		card.AcquiredAt = now
		if err := addCard(ctx, uow, recipient, card, s.config.InventoryCapacity); err != nil {
			return err
		}

		return s.resolve(ctx, uow, offer, models.TradeStatusAccepted)
	})
	if err != nil {
		return nil, err
	}
	return offer, nil
}

func (s *tradeService) Decline(ctx context.Context, id models.TradeID, acceptor models.AccountID) (*models.TradeOffer, error) {
	var offer *models.TradeOffer
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		var err error
		offer, err = s.getPendingFor(ctx, uow, id, acceptor, s.clock.Now())
		if err != nil {
			return err
		}
		return s.resolve(ctx, uow, offer, models.TradeStatusDeclined)
	})
	if err != nil {
		return nil, err
	}
	return offer, nil
}

func (s *tradeService) Get(ctx context.Context, id models.TradeID) (*models.TradeOffer, error) {
	var offer *models.TradeOffer
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		var err error
		offer, err = uow.TradeRepository().Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	if offer == nil {
		return nil, fmt.Errorf("%w: %s", ErrTradeNotFound, id)
	}
	return offer, nil
}

func (s *tradeService) ListPending(ctx context.Context, id models.AccountID) ([]*models.TradeOffer, error) {
	var offers []*models.TradeOffer
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		var err error
		offers, err = uow.TradeRepository().GetPendingByAccount(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return offers, nil
}

func (s *tradeService) ExpireStale(ctx context.Context) (int, error) {
	expiredCount := 0
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		expired, err := uow.TradeRepository().GetExpired(ctx, s.clock.Now())
		if err != nil {
			return fmt.Errorf("failed to get expired trades: %w", err)
		}
		for _, offer := range expired {
			if err := s.resolve(ctx, uow, offer, models.TradeStatusExpired); err != nil {
				return err
			}
		}
		expiredCount = len(expired)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return expiredCount, nil
}

// getPendingFor loads an offer the acceptor may resolve. An offer found past its deadline
// is expired on the spot and the caller sees ErrNotPending.
func (s *tradeService) getPendingFor(ctx context.Context, uow UnitOfWork, id models.TradeID, acceptor models.AccountID, now time.Time) (*models.TradeOffer, error) {
	offer, err := uow.TradeRepository().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	if offer == nil {
		return nil, fmt.Errorf("%w: %s", ErrTradeNotFound, id)
	}
	if offer.Recipient != acceptor {
		return nil, ErrNotRecipient
	}
	if !offer.IsPending() {
		return nil, fmt.Errorf("%w: status is %s", ErrNotPending, offer.Status)
	}
	if offer.IsExpired(now) {
		if err := s.resolve(ctx, uow, offer, models.TradeStatusExpired); err != nil {
			return nil, err
		}
		return nil, commitAndFail(fmt.Errorf("%w: offer expired at %s", ErrNotPending, offer.ExpiresAt.Format(time.RFC3339)))
	}
	return offer, nil
}

// resolve moves the offer to a terminal status and purges it
func (s *tradeService) resolve(ctx context.Context, uow UnitOfWork, offer *models.TradeOffer, status models.TradeStatus) error {
	offer.Status = status
	if err := uow.TradeRepository().Delete(ctx, offer.ID); err != nil {
		return fmt.Errorf("failed to purge trade: %w", err)
	}
	uow.EventBus().Publish(events.TradeResolvedEvent{
		TradeID:   offer.ID,
		Sender:    offer.Sender,
		Recipient: offer.Recipient,
		CardName:  offer.Card.Name,
		Status:    status,
	})
	return nil
}
