package service

import (
	"context"
	"fmt"

	"cardvault/catalog"
	"cardvault/clock"
	"cardvault/events"
	"cardvault/models"

	log "github.com/sirupsen/logrus"
)

type incomeService struct {
	uowFactory UnitOfWorkFactory
	catalog    *catalog.Catalog
	clock      clock.Clock
}

// NewIncomeService creates a new income service
func NewIncomeService(uowFactory UnitOfWorkFactory, cat *catalog.Catalog, clk clock.Clock) IncomeService {
	return &incomeService{
		uowFactory: uowFactory,
		catalog:    cat,
		clock:      clk,
	}
}

// RunCycle credits every card holder the truncated per-card income of their inventory
func (s *incomeService) RunCycle(ctx context.Context) (*models.CycleSummary, error) {
	var summary *models.CycleSummary
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		now := s.clock.Now()
		cycle, err := uow.IncomeReportRepository().NextCycle(ctx)
		if err != nil {
			return fmt.Errorf("failed to advance income cycle: %w", err)
		}
		summary = &models.CycleSummary{Cycle: cycle, RanAt: now}

		accounts, err := uow.AccountRepository().GetAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to get accounts: %w", err)
		}

		for _, account := range accounts {
			if len(account.Inventory) == 0 {
				continue
			}
			report := s.buildReport(account, cycle)
			if report.Payout == 0 {
				continue
			}
			report.PaidAt = now

			metadata := map[string]any{"cycle": cycle, "cards": len(report.Lines)}
			if err := applyBalanceChange(ctx, uow, account, report.Payout, models.TransactionTypeIncome, metadata, now); err != nil {
				return err
			}
			if err := uow.IncomeReportRepository().SaveReport(ctx, report); err != nil {
				return fmt.Errorf("failed to save income report: %w", err)
			}
			if _, err := uow.IncomeReportRepository().AddLifetime(ctx, account.ID, report.Payout); err != nil {
				return fmt.Errorf("failed to update lifetime income: %w", err)
			}

			summary.AccountsPaid++
			summary.TotalCredited += report.Payout
			summary.Reports = append(summary.Reports, report)
		}

		uow.EventBus().Publish(events.IncomeCycleEvent{
			Cycle:         cycle,
			AccountsPaid:  summary.AccountsPaid,
			TotalCredited: summary.TotalCredited,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"cycle":          summary.Cycle,
		"accounts_paid":  summary.AccountsPaid,
		"total_credited": summary.TotalCredited,
	}).Info("Income cycle completed")
	return summary, nil
}

func (s *incomeService) buildReport(account *models.Account, cycle int64) *models.IncomeReport {
	policy := s.catalog.Policy()
	report := &models.IncomeReport{
		AccountID: account.ID,
		Cycle:     cycle,
		Lines:     make([]models.IncomeLine, 0, len(account.Inventory)),
	}
	for _, card := range account.Inventory {
		payout := policy.IncomeFor(card)
		report.Lines = append(report.Lines, models.IncomeLine{
			CardName: card.Name,
			Rarity:   card.Rarity,
			Rate:     card.IncomeRate,
			Payout:   payout,
		})
		report.Payout += payout
	}
	return report
}

func (s *incomeService) LastReport(ctx context.Context, id models.AccountID) (*models.IncomeReport, error) {
	var report *models.IncomeReport
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		var err error
		report, err = uow.IncomeReportRepository().GetLastReport(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get income report: %w", err)
	}
	return report, nil
}

func (s *incomeService) LifetimeIncome(ctx context.Context, id models.AccountID) (int64, error) {
	var total int64
	err := withUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		var err error
		total, err = uow.IncomeReportRepository().GetLifetime(ctx, id)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get lifetime income: %w", err)
	}
	return total, nil
}
