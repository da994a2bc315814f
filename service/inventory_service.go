package service

import (
	"context"
	"fmt"

	"cardvault/clock"
	"cardvault/config"
	"cardvault/models"
)

type inventoryService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
	clock      clock.Clock
}

// NewInventoryService creates a new inventory service
func NewInventoryService(uowFactory UnitOfWorkFactory, cfg *config.Config, clk clock.Clock) InventoryService {
	return &inventoryService{
		uowFactory: uowFactory,
		config:     cfg,
		clock:      clk,
	}
}

func (s *inventoryService) List(ctx context.Context, id models.AccountID) ([]models.CardInstance, error) {
	var cards []models.CardInstance
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		account, err := ensureAccount(ctx, uow, id, s.clock.Now())
		if err != nil {
			return err
		}
		cards = account.Inventory
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cards, nil
}

// Add appends an instance. Duplicates are the caller's concern; only capacity is enforced.
func (s *inventoryService) Add(ctx context.Context, id models.AccountID, card models.CardInstance) error {
	return withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		account, err := ensureAccount(ctx, uow, id, s.clock.Now())
		if err != nil {
			return err
		}
		if len(account.Inventory) >= s.config.InventoryCapacity {
			return fmt.Errorf("%w: %d/%d cards", ErrCollectionFull, len(account.Inventory), s.config.InventoryCapacity)
		}
		if err := uow.AccountRepository().AppendCard(ctx, id, card); err != nil {
			return fmt.Errorf("failed to add card: %w", err)
		}
		return nil
	})
}

func (s *inventoryService) Remove(ctx context.Context, id models.AccountID, cardName string) error {
	return withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		account, err := ensureAccount(ctx, uow, id, s.clock.Now())
		if err != nil {
			return err
		}
		index := account.IndexOfCard(cardName)
		if index < 0 {
			return fmt.Errorf("%w: %s", ErrNotOwned, cardName)
		}
		if _, err := uow.AccountRepository().RemoveCardAt(ctx, id, index); err != nil {
			return fmt.Errorf("failed to remove card: %w", err)
		}
		return nil
	})
}

func (s *inventoryService) Has(ctx context.Context, id models.AccountID, cardName string) (bool, error) {
	cards, err := s.List(ctx, id)
	if err != nil {
		return false, err
	}
	account := models.Account{Inventory: cards}
	return account.OwnsCard(cardName), nil
}
