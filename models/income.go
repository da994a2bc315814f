package models

import "time"

// IncomeLine is the payout of a single card in one accrual cycle
type IncomeLine struct {
	CardName string `json:"card_name"`
	Rarity   Rarity `json:"rarity"`
	Rate     int64  `json:"rate"`
	Payout   int64  `json:"payout"`
}

// IncomeReport is the outcome of one accrual cycle for one account
type IncomeReport struct {
	AccountID AccountID    `json:"account_id"`
	Cycle     int64        `json:"cycle"`
	Payout    int64        `json:"payout"`
	Lines     []IncomeLine `json:"lines"`
	PaidAt    time.Time    `json:"paid_at"`
}

// Clone returns a deep copy of the report
func (r *IncomeReport) Clone() *IncomeReport {
	if r == nil {
		return nil
	}
	c := *r
	c.Lines = make([]IncomeLine, len(r.Lines))
	copy(c.Lines, r.Lines)
	return &c
}
