package application

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// IncomeWorker pays passive income every interval
type IncomeWorker struct {
	income   IncomeRunner
	interval time.Duration
}

// NewIncomeWorker creates a new income worker
func NewIncomeWorker(income IncomeRunner, interval time.Duration) *IncomeWorker {
	return &IncomeWorker{income: income, interval: interval}
}

// Start begins the income loop
func (w *IncomeWorker) Start(ctx context.Context) func() {
	return startTicker(ctx, "income", w.interval, w.Tick)
}

// Tick runs one accrual cycle
func (w *IncomeWorker) Tick(ctx context.Context) {
	summary, err := w.income.RunCycle(ctx)
	if err != nil {
		log.WithError(err).Error("Income cycle failed")
		return
	}

	log.WithFields(log.Fields{
		"cycle":          summary.Cycle,
		"accounts_paid":  summary.AccountsPaid,
		"total_credited": summary.TotalCredited,
	}).Info("Completed income cycle")
}
