package models

import (
	"fmt"
	"strings"
	"time"
)

// Rarity is the ordered tier of a collectible
type Rarity int

const (
	RarityCommon Rarity = iota
	RarityEpic
	RarityLegendary
	RarityMythic
	RarityExpensive
	RaritySecret
)

var rarityNames = []string{"Common", "Epic", "Legendary", "Mythic", "Expensive", "Secret"}

// AllRarities returns every rarity in ascending order
func AllRarities() []Rarity {
	return []Rarity{RarityCommon, RarityEpic, RarityLegendary, RarityMythic, RarityExpensive, RaritySecret}
}

// ParseRarity parses a rarity name case-insensitively
func ParseRarity(s string) (Rarity, error) {
	for i, name := range rarityNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Rarity(i), nil
		}
	}
	return RarityCommon, fmt.Errorf("unknown rarity %q", s)
}

// String returns the display name of the rarity
func (r Rarity) String() string {
	if r < 0 || int(r) >= len(rarityNames) {
		return fmt.Sprintf("Rarity(%d)", int(r))
	}
	return rarityNames[r]
}

// MarshalText encodes the rarity by name
func (r Rarity) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a rarity name
func (r *Rarity) UnmarshalText(text []byte) error {
	parsed, err := ParseRarity(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// CardDefinition is an immutable catalog entry
type CardDefinition struct {
	Name       string `json:"name" yaml:"name"`
	Rarity     Rarity `json:"rarity" yaml:"rarity"`
	BasePrice  int64  `json:"base_price" yaml:"base_price"`
	IncomeRate int64  `json:"income_rate" yaml:"income_rate"`
}

// NewInstance creates an ownable copy of the definition
func (d CardDefinition) NewInstance(acquiredAt time.Time) CardInstance {
	return CardInstance{
		Name:       d.Name,
		Rarity:     d.Rarity,
		BasePrice:  d.BasePrice,
		IncomeRate: d.IncomeRate,
		AcquiredAt: acquiredAt,
	}
}

// CardInstance is a single copy of a catalog card held in one inventory
type CardInstance struct {
	Name       string    `json:"name"`
	Rarity     Rarity    `json:"rarity"`
	BasePrice  int64     `json:"base_price"`
	IncomeRate int64     `json:"income_rate"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// SameCard reports whether two instances refer to the same catalog entry
func (c CardInstance) SameCard(other CardInstance) bool {
	return strings.EqualFold(c.Name, other.Name)
}
