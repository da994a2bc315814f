package repository

import (
	"context"
	"fmt"

	"cardvault/models"
)

// incomeReportRepository implements the IncomeReportRepository interface over the store
type incomeReportRepository struct {
	tx *tx
}

// NextCycle advances and returns the accrual cycle counter
func (r *incomeReportRepository) NextCycle(ctx context.Context) (int64, error) {
	if err := r.tx.check(); err != nil {
		return 0, err
	}
	previous := r.tx.store.incomeCycle
	r.tx.store.incomeCycle++
	r.tx.onUndo(func() { r.tx.store.incomeCycle = previous })
	return r.tx.store.incomeCycle, nil
}

// SaveReport replaces the last report of the report's account
func (r *incomeReportRepository) SaveReport(ctx context.Context, report *models.IncomeReport) error {
	if err := r.tx.check(); err != nil {
		return err
	}
	if report == nil {
		return fmt.Errorf("report is nil")
	}
	id := report.AccountID
	previous, existed := r.tx.store.lastReports[id]
	r.tx.store.lastReports[id] = report.Clone()
	r.tx.onUndo(func() {
		if existed {
			r.tx.store.lastReports[id] = previous
		} else {
			delete(r.tx.store.lastReports, id)
		}
	})
	return nil
}

// GetLastReport returns the most recent report for an account, or nil
func (r *incomeReportRepository) GetLastReport(ctx context.Context, id models.AccountID) (*models.IncomeReport, error) {
	if err := r.tx.check(); err != nil {
		return nil, err
	}
	return r.tx.store.lastReports[id].Clone(), nil
}

// AddLifetime adds to an account's lifetime income and returns the new total
func (r *incomeReportRepository) AddLifetime(ctx context.Context, id models.AccountID, amount int64) (int64, error) {
	if err := r.tx.check(); err != nil {
		return 0, err
	}
	previous, existed := r.tx.store.lifetime[id]
	r.tx.store.lifetime[id] = previous + amount
	r.tx.onUndo(func() {
		if existed {
			r.tx.store.lifetime[id] = previous
		} else {
			delete(r.tx.store.lifetime, id)
		}
	})
	return previous + amount, nil
}

// GetLifetime returns an account's lifetime income
func (r *incomeReportRepository) GetLifetime(ctx context.Context, id models.AccountID) (int64, error) {
	if err := r.tx.check(); err != nil {
		return 0, err
	}
	return r.tx.store.lifetime[id], nil
}
