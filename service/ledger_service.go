package service

import (
	"context"
	"fmt"
	"sort"

	"cardvault/clock"
	"cardvault/config"
	"cardvault/events"
	"cardvault/models"
)

// activityXP is the experience granted per recorded chat message
const activityXP = 1

type ledgerService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
	clock      clock.Clock
}

// NewLedgerService creates a new ledger service
func NewLedgerService(uowFactory UnitOfWorkFactory, cfg *config.Config, clk clock.Clock) LedgerService {
	return &ledgerService{
		uowFactory: uowFactory,
		config:     cfg,
		clock:      clk,
	}
}

// withAccount runs fn against the account inside one unit of work and commits on success
func (s *ledgerService) withAccount(ctx context.Context, id models.AccountID, fn func(uow UnitOfWork, account *models.Account) error) error {
	return withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		account, err := ensureAccount(ctx, uow, id, s.clock.Now())
		if err != nil {
			return err
		}
		return fn(uow, account)
	})
}

func (s *ledgerService) GetAccount(ctx context.Context, id models.AccountID) (*models.Account, error) {
	var result *models.Account
	err := s.withAccount(ctx, id, func(_ UnitOfWork, account *models.Account) error {
		result = account
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ledgerService) GetBalance(ctx context.Context, id models.AccountID) (int64, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

func (s *ledgerService) GetPoints(ctx context.Context, id models.AccountID) (int64, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return 0, err
	}
	return account.Points, nil
}

func (s *ledgerService) GetXP(ctx context.Context, id models.AccountID) (int64, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return 0, err
	}
	return account.XP, nil
}

func (s *ledgerService) Credit(ctx context.Context, id models.AccountID, amount int64) (*models.Account, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: credit amount cannot be negative", ErrInvalidAmount)
	}

	var result *models.Account
	err := s.withAccount(ctx, id, func(uow UnitOfWork, account *models.Account) error {
		if amount > 0 {
			if err := applyBalanceChange(ctx, uow, account, amount, models.TransactionTypeCredit, nil, s.clock.Now()); err != nil {
				return err
			}
		}
		result = account
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ledgerService) Debit(ctx context.Context, id models.AccountID, amount int64) (*models.Account, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: debit amount cannot be negative", ErrInvalidAmount)
	}

	var result *models.Account
	err := s.withAccount(ctx, id, func(uow UnitOfWork, account *models.Account) error {
		if amount > 0 {
			if err := applyBalanceChange(ctx, uow, account, -amount, models.TransactionTypeDebit, nil, s.clock.Now()); err != nil {
				return err
			}
		}
		result = account
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ledgerService) AddXP(ctx context.Context, id models.AccountID, amount int64) (*models.LevelProgress, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: xp amount cannot be negative", ErrInvalidAmount)
	}

	var progress *models.LevelProgress
	err := s.withAccount(ctx, id, func(uow UnitOfWork, account *models.Account) error {
		var err error
		progress, err = s.addXP(ctx, uow, account, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return progress, nil
}

func (s *ledgerService) RecordActivity(ctx context.Context, id models.AccountID) (*models.LevelProgress, error) {
	return s.AddXP(ctx, id, activityXP)
}

// addXP pays the level reward once for every threshold crossed by this increment
func (s *ledgerService) addXP(ctx context.Context, uow UnitOfWork, account *models.Account, amount int64) (*models.LevelProgress, error) {
	threshold := s.config.LevelXPThreshold
	before := account.XP
	after := before + amount

	if err := uow.AccountRepository().UpdateXP(ctx, account.ID, after); err != nil {
		return nil, fmt.Errorf("failed to update xp: %w", err)
	}
	account.XP = after

	progress := &models.LevelProgress{
		AccountID:    account.ID,
		XP:           after,
		Level:        after / threshold,
		LevelsGained: after/threshold - before/threshold,
	}
	if progress.LevelsGained == 0 {
		return progress, nil
	}

	progress.CoinsAwarded = progress.LevelsGained * s.config.LevelUpCoinReward
	progress.PointsAwarded = progress.LevelsGained * s.config.LevelUpPointsReward

	if progress.CoinsAwarded > 0 {
		metadata := map[string]any{"level": progress.Level, "levels_gained": progress.LevelsGained}
		if err := applyBalanceChange(ctx, uow, account, progress.CoinsAwarded, models.TransactionTypeLevelUp, metadata, s.clock.Now()); err != nil {
			return nil, err
		}
	}
	if progress.PointsAwarded > 0 {
		if err := uow.AccountRepository().UpdatePoints(ctx, account.ID, account.Points+progress.PointsAwarded); err != nil {
			return nil, fmt.Errorf("failed to update points: %w", err)
		}
		account.Points += progress.PointsAwarded
	}

	uow.EventBus().Publish(events.LevelUpEvent{
		AccountID:    account.ID,
		NewLevel:     progress.Level,
		LevelsGained: progress.LevelsGained,
		CoinReward:   progress.CoinsAwarded,
		PointsReward: progress.PointsAwarded,
	})
	return progress, nil
}

func (s *ledgerService) Transfer(ctx context.Context, from, to models.AccountID, amount int64) (*models.TransferResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: transfer amount must be positive", ErrInvalidAmount)
	}
	if from == to {
		return nil, ErrSelfTransfer
	}

	var result *models.TransferResult
	err := s.withAccount(ctx, from, func(uow UnitOfWork, sender *models.Account) error {
		if !sender.HasSufficientBalance(amount) {
			return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, sender.Balance, amount)
		}
		now := s.clock.Now()
		recipient, err := ensureAccount(ctx, uow, to, now)
		if err != nil {
			return err
		}

		if err := applyBalanceChange(ctx, uow, sender, -amount, models.TransactionTypeTransferOut,
			map[string]any{"recipient_id": int64(to)}, now); err != nil {
			return err
		}
		if err := applyBalanceChange(ctx, uow, recipient, amount, models.TransactionTypeTransferIn,
			map[string]any{"sender_id": int64(from)}, now); err != nil {
			return err
		}

		result = &models.TransferResult{
			From:                from,
			To:                  to,
			Amount:              amount,
			NewBalance:          sender.Balance,
			RecipientNewBalance: recipient.Balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ledgerService) Leaderboard(ctx context.Context, limit int) ([]*models.Account, error) {
	var accounts []*models.Account
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		var err error
		accounts, err = uow.AccountRepository().GetAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to get accounts: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(accounts, func(i, j int) bool {
		if accounts[i].Balance != accounts[j].Balance {
			return accounts[i].Balance > accounts[j].Balance
		}
		return accounts[i].ID < accounts[j].ID
	})
	if limit > 0 && len(accounts) > limit {
		accounts = accounts[:limit]
	}
	return accounts, nil
}

func (s *ledgerService) ResetAccount(ctx context.Context, id models.AccountID) (*models.Account, error) {
	var result *models.Account
	err := s.withAccount(ctx, id, func(uow UnitOfWork, account *models.Account) error {
		settings, err := uow.SettingsRepository().Get(ctx)
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		if err := uow.AccountRepository().Reset(ctx, id, settings.StartingBalance); err != nil {
			return fmt.Errorf("failed to reset account: %w", err)
		}

		history := &models.BalanceHistory{
			AccountID:       id,
			BalanceBefore:   account.Balance,
			BalanceAfter:    settings.StartingBalance,
			ChangeAmount:    settings.StartingBalance - account.Balance,
			TransactionType: models.TransactionTypeAdminReset,
			TransactionMetadata: map[string]any{
				"cards_removed": len(account.Inventory),
				"xp_removed":    account.XP,
			},
			CreatedAt: s.clock.Now(),
		}
		if err := RecordBalanceChange(ctx, uow, history); err != nil {
			return err
		}

		result, err = uow.AccountRepository().Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ledgerService) AdjustBalance(ctx context.Context, id models.AccountID, newBalance int64) (*models.Account, error) {
	if newBalance < 0 {
		return nil, fmt.Errorf("%w: balance cannot be negative", ErrInvalidAmount)
	}

	var result *models.Account
	err := s.withAccount(ctx, id, func(uow UnitOfWork, account *models.Account) error {
		if err := uow.AccountRepository().UpdateBalance(ctx, id, newBalance); err != nil {
			return fmt.Errorf("failed to update balance: %w", err)
		}
		history := &models.BalanceHistory{
			AccountID:       id,
			BalanceBefore:   account.Balance,
			BalanceAfter:    newBalance,
			ChangeAmount:    newBalance - account.Balance,
			TransactionType: models.TransactionTypeAdminAdjust,
			CreatedAt:       s.clock.Now(),
		}
		if err := RecordBalanceChange(ctx, uow, history); err != nil {
			return err
		}
		account.Balance = newBalance
		result = account
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
