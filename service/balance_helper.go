package service

import (
	"context"
	"fmt"
	"time"

	"cardvault/events"
	"cardvault/models"
)

// RecordBalanceChange records a balance history entry and emits appropriate events.
// This is the single entry point for all balance changes in the system.
func RecordBalanceChange(ctx context.Context, uow UnitOfWork, history *models.BalanceHistory) error {
	if err := uow.BalanceHistoryRepository().Record(ctx, history); err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}

	// Flushed after the unit of work commits
	uow.EventBus().Publish(events.BalanceChangeEvent{
		AccountID:       history.AccountID,
		OldBalance:      history.BalanceBefore,
		NewBalance:      history.BalanceAfter,
		TransactionType: history.TransactionType,
		ChangeAmount:    history.ChangeAmount,
	})

	if history.TransactionType == models.TransactionTypeInitial {
		uow.EventBus().Publish(events.AccountCreatedEvent{
			AccountID:      history.AccountID,
			InitialBalance: history.BalanceAfter,
		})
	}
	return nil
}

// ensureAccount returns the account, creating it with the current starting balance on first reference
func ensureAccount(ctx context.Context, uow UnitOfWork, id models.AccountID, now time.Time) (*models.Account, error) {
	account, err := uow.AccountRepository().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", id, err)
	}
	if account != nil {
		return account, nil
	}

	settings, err := uow.SettingsRepository().Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	account, err = uow.AccountRepository().Create(ctx, id, settings.StartingBalance, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create account %d: %w", id, err)
	}

	if settings.StartingBalance > 0 {
		history := &models.BalanceHistory{
			AccountID:       id,
			BalanceBefore:   0,
			BalanceAfter:    settings.StartingBalance,
			ChangeAmount:    settings.StartingBalance,
			TransactionType: models.TransactionTypeInitial,
			CreatedAt:       now,
		}
		if err := RecordBalanceChange(ctx, uow, history); err != nil {
			return nil, err
		}
	} else {
		uow.EventBus().Publish(events.AccountCreatedEvent{AccountID: id})
	}
	return account, nil
}

// applyBalanceChange moves the balance by delta, records history and updates the passed copy
func applyBalanceChange(ctx context.Context, uow UnitOfWork, account *models.Account, delta int64,
	txType models.TransactionType, metadata map[string]any, now time.Time) error {
	newBalance := account.Balance + delta
	if newBalance < 0 {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, account.Balance, -delta)
	}

	if err := uow.AccountRepository().UpdateBalance(ctx, account.ID, newBalance); err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}

	history := &models.BalanceHistory{
		AccountID:           account.ID,
		BalanceBefore:       account.Balance,
		BalanceAfter:        newBalance,
		ChangeAmount:        delta,
		TransactionType:     txType,
		TransactionMetadata: metadata,
		CreatedAt:           now,
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return err
	}

	account.Balance = newBalance
	return nil
}

// addCard appends a card after the duplicate and capacity checks every acquisition path shares
func addCard(ctx context.Context, uow UnitOfWork, account *models.Account, card models.CardInstance, capacity int) error {
	if account.OwnsCard(card.Name) {
		return fmt.Errorf("%w: %s", ErrAlreadyOwned, card.Name)
	}
	if len(account.Inventory) >= capacity {
		return fmt.Errorf("%w: %d/%d cards", ErrCollectionFull, len(account.Inventory), capacity)
	}
	if err := uow.AccountRepository().AppendCard(ctx, account.ID, card); err != nil {
		return fmt.Errorf("failed to add card: %w", err)
	}
	account.Inventory = append(account.Inventory, card)
	return nil
}
