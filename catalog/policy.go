package catalog

import (
	"fmt"

	"cardvault/models"

	"github.com/shopspring/decimal"
)

// Policy holds the per-rarity multipliers for income and resale
type Policy struct {
	IncomeMultipliers map[models.Rarity]decimal.Decimal
	SellMultipliers   map[models.Rarity]decimal.Decimal
}

// DefaultPolicy returns the built-in multiplier tables
func DefaultPolicy() Policy {
	return Policy{
		IncomeMultipliers: map[models.Rarity]decimal.Decimal{
			models.RarityCommon:    decimal.RequireFromString("1.0"),
			models.RarityEpic:      decimal.RequireFromString("1.1"),
			models.RarityLegendary: decimal.RequireFromString("1.2"),
			models.RarityMythic:    decimal.RequireFromString("1.3"),
			models.RarityExpensive: decimal.RequireFromString("1.0"),
			models.RaritySecret:    decimal.RequireFromString("1.5"),
		},
		SellMultipliers: map[models.Rarity]decimal.Decimal{
			models.RarityCommon:    decimal.RequireFromString("0.40"),
			models.RarityEpic:      decimal.RequireFromString("0.45"),
			models.RarityLegendary: decimal.RequireFromString("0.50"),
			models.RarityMythic:    decimal.RequireFromString("0.55"),
			models.RarityExpensive: decimal.RequireFromString("0.60"),
			models.RaritySecret:    decimal.RequireFromString("0.65"),
		},
	}
}

// IncomeMultiplier returns the income multiplier for a rarity, 1 when unset
func (p Policy) IncomeMultiplier(r models.Rarity) decimal.Decimal {
	if m, ok := p.IncomeMultipliers[r]; ok {
		return m
	}
	return decimal.NewFromInt(1)
}

// SellMultiplier returns the resale fraction for a rarity, 0.5 when unset
func (p Policy) SellMultiplier(r models.Rarity) decimal.Decimal {
	if m, ok := p.SellMultipliers[r]; ok {
		return m
	}
	return decimal.RequireFromString("0.5")
}

// IncomeFor returns one cycle's payout for a card, truncated to an integer
func (p Policy) IncomeFor(card models.CardInstance) int64 {
	return decimal.NewFromInt(card.IncomeRate).Mul(p.IncomeMultiplier(card.Rarity)).IntPart()
}

// SellPrice returns the resale value of a card, truncated to an integer
func (p Policy) SellPrice(card models.CardInstance) int64 {
	return decimal.NewFromInt(card.BasePrice).Mul(p.SellMultiplier(card.Rarity)).IntPart()
}

func parsePolicy(income, sell map[string]string) (Policy, error) {
	policy := DefaultPolicy()
	if err := mergeTable(policy.IncomeMultipliers, income, "income_multipliers"); err != nil {
		return Policy{}, err
	}
	if err := mergeTable(policy.SellMultipliers, sell, "sell_multipliers"); err != nil {
		return Policy{}, err
	}
	for r, m := range policy.SellMultipliers {
		if m.GreaterThan(decimal.NewFromInt(1)) {
			return Policy{}, fmt.Errorf("sell_multipliers: %s exceeds 1", r)
		}
	}
	return policy, nil
}

func mergeTable(dst map[models.Rarity]decimal.Decimal, src map[string]string, section string) error {
	for name, raw := range src {
		rarity, err := models.ParseRarity(name)
		if err != nil {
			return fmt.Errorf("%s: %w", section, err)
		}
		m, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("%s: %s: %w", section, name, err)
		}
		if m.IsNegative() {
			return fmt.Errorf("%s: %s cannot be negative", section, name)
		}
		dst[rarity] = m
	}
	return nil
}
