package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"cardvault/models"

	"gopkg.in/yaml.v3"
)

//go:embed cards.yaml
var defaultCatalog []byte

// Catalog is the immutable reference data for every collectible.
// It is loaded once at startup and safe for concurrent reads.
type Catalog struct {
	byName map[string]models.CardDefinition
	cards  []models.CardDefinition
	policy Policy
}

type fileFormat struct {
	Policy struct {
		IncomeMultipliers map[string]string `yaml:"income_multipliers"`
		SellMultipliers   map[string]string `yaml:"sell_multipliers"`
	} `yaml:"policy"`
	Cards []struct {
		Name       string `yaml:"name"`
		Rarity     string `yaml:"rarity"`
		BasePrice  int64  `yaml:"base_price"`
		IncomeRate int64  `yaml:"income_rate"`
	} `yaml:"cards"`
}

// Default returns the catalog compiled into the binary
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file. An empty path yields the default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML catalog document
func Parse(raw []byte) (*Catalog, error) {
	var f fileFormat
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	policy, err := parsePolicy(f.Policy.IncomeMultipliers, f.Policy.SellMultipliers)
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		byName: make(map[string]models.CardDefinition, len(f.Cards)),
		policy: policy,
	}
	for i, entry := range f.Cards {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, fmt.Errorf("card %d: name is required", i)
		}
		rarity, err := models.ParseRarity(entry.Rarity)
		if err != nil {
			return nil, fmt.Errorf("card %q: %w", name, err)
		}
		if entry.BasePrice <= 0 {
			return nil, fmt.Errorf("card %q: base_price must be positive", name)
		}
		if entry.IncomeRate < 0 {
			return nil, fmt.Errorf("card %q: income_rate cannot be negative", name)
		}
		key := normalize(name)
		if _, exists := c.byName[key]; exists {
			return nil, fmt.Errorf("card %q: duplicate name", name)
		}
		def := models.CardDefinition{
			Name:       name,
			Rarity:     rarity,
			BasePrice:  entry.BasePrice,
			IncomeRate: entry.IncomeRate,
		}
		c.byName[key] = def
		c.cards = append(c.cards, def)
	}
	if len(c.cards) == 0 {
		return nil, fmt.Errorf("catalog has no cards")
	}

	sort.SliceStable(c.cards, func(i, j int) bool {
		if c.cards[i].Rarity != c.cards[j].Rarity {
			return c.cards[i].Rarity < c.cards[j].Rarity
		}
		return c.cards[i].BasePrice < c.cards[j].BasePrice
	})
	return c, nil
}

// New builds a catalog from definitions, mainly for tests
func New(cards []models.CardDefinition, policy Policy) *Catalog {
	c := &Catalog{
		byName: make(map[string]models.CardDefinition, len(cards)),
		policy: policy,
	}
	for _, def := range cards {
		c.byName[normalize(def.Name)] = def
		c.cards = append(c.cards, def)
	}
	return c
}

// Lookup finds a card by name, ignoring case
func (c *Catalog) Lookup(name string) (models.CardDefinition, bool) {
	def, ok := c.byName[normalize(name)]
	return def, ok
}

// All returns every card sorted by rarity then price
func (c *Catalog) All() []models.CardDefinition {
	out := make([]models.CardDefinition, len(c.cards))
	copy(out, c.cards)
	return out
}

// ByRarity returns the cards of one rarity tier
func (c *Catalog) ByRarity(r models.Rarity) []models.CardDefinition {
	var out []models.CardDefinition
	for _, def := range c.cards {
		if def.Rarity == r {
			out = append(out, def)
		}
	}
	return out
}

// Len returns the number of cards
func (c *Catalog) Len() int {
	return len(c.cards)
}

// Policy returns the rarity multiplier policy
func (c *Catalog) Policy() Policy {
	return c.policy
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
