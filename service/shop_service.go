package service

import (
	"context"
	"fmt"

	"cardvault/catalog"
	"cardvault/clock"
	"cardvault/config"
	"cardvault/events"
	"cardvault/models"
)

type shopService struct {
	uowFactory UnitOfWorkFactory
	catalog    *catalog.Catalog
	config     *config.Config
	clock      clock.Clock
}

// NewShopService creates a new shop service
func NewShopService(uowFactory UnitOfWorkFactory, cat *catalog.Catalog, cfg *config.Config, clk clock.Clock) ShopService {
	return &shopService{
		uowFactory: uowFactory,
		catalog:    cat,
		config:     cfg,
		clock:      clk,
	}
}

func (s *shopService) Buy(ctx context.Context, id models.AccountID, cardName string) (*models.PurchaseResult, error) {
	definition, ok := s.catalog.Lookup(cardName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCard, cardName)
	}

	var result *models.PurchaseResult
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		now := s.clock.Now()
		account, err := ensureAccount(ctx, uow, id, now)
		if err != nil {
			return err
		}

		// Ownership and space are checked before funds so a failed purchase never debits
		if account.OwnsCard(definition.Name) {
			return fmt.Errorf("%w: %s", ErrAlreadyOwned, definition.Name)
		}
		if len(account.Inventory) >= s.config.InventoryCapacity {
			return fmt.Errorf("%w: %d/%d cards", ErrCollectionFull, len(account.Inventory), s.config.InventoryCapacity)
		}
		if !account.HasSufficientBalance(definition.BasePrice) {
			return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, account.Balance, definition.BasePrice)
		}

		card := definition.NewInstance(now)
		metadata := map[string]any{"card": definition.Name, "rarity": definition.Rarity.String()}
		if err := applyBalanceChange(ctx, uow, account, -definition.BasePrice, models.TransactionTypePurchase, metadata, now); err != nil {
			return err
		}
		if err := addCard(ctx, uow, account, card, s.config.InventoryCapacity); err != nil {
			return err
		}

		uow.EventBus().Publish(events.CardPurchasedEvent{
			AccountID: id,
			CardName:  definition.Name,
			Price:     definition.BasePrice,
		})

		result = &models.PurchaseResult{
			Card:          card,
			Price:         definition.BasePrice,
			NewBalance:    account.Balance,
			InventorySize: len(account.Inventory),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// QuoteSale prices the card at index. The quote holds no lock and reserves nothing.
func (s *shopService) QuoteSale(ctx context.Context, id models.AccountID, index int) (*models.SaleQuote, error) {
	var quote *models.SaleQuote
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		now := s.clock.Now()
		account, err := ensureAccount(ctx, uow, id, now)
		if err != nil {
			return err
		}
		card, ok := account.CardAt(index)
		if !ok {
			return fmt.Errorf("%w: %d (inventory has %d cards)", ErrInvalidIndex, index, len(account.Inventory))
		}
		quote = &models.SaleQuote{
			AccountID: id,
			CardIndex: index,
			Card:      card,
			Price:     s.catalog.Policy().SellPrice(card),
			QuotedAt:  now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

func (s *shopService) ConfirmSale(ctx context.Context, quote *models.SaleQuote) (*models.SaleResult, error) {
	if quote == nil {
		return nil, fmt.Errorf("%w: missing quote", ErrStaleOffer)
	}

	var result *models.SaleResult
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		now := s.clock.Now()
		account, err := ensureAccount(ctx, uow, quote.AccountID, now)
		if err != nil {
			return err
		}

		card, ok := account.CardAt(quote.CardIndex)
		if !ok || !card.SameCard(quote.Card) {
			return fmt.Errorf("%w: %s is no longer at position %d", ErrStaleOffer, quote.Card.Name, quote.CardIndex)
		}

		// The policy is fixed for the process lifetime, so this matches the quoted price
		price := s.catalog.Policy().SellPrice(card)

		if _, err := uow.AccountRepository().RemoveCardAt(ctx, account.ID, quote.CardIndex); err != nil {
			return fmt.Errorf("failed to remove card: %w", err)
		}
		metadata := map[string]any{"card": card.Name, "rarity": card.Rarity.String()}
		if price > 0 {
			if err := applyBalanceChange(ctx, uow, account, price, models.TransactionTypeSale, metadata, now); err != nil {
				return err
			}
		}

		uow.EventBus().Publish(events.CardSoldEvent{
			AccountID: account.ID,
			CardName:  card.Name,
			Price:     price,
		})

		result = &models.SaleResult{
			Card:          card,
			Price:         price,
			NewBalance:    account.Balance,
			InventorySize: len(account.Inventory) - 1,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
