package config

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"furnish-service/internal/matcher"
)

// TablesFile is the YAML shape of matcher table overrides. Every section is optional;
// entries present in the file replace the built-in entry with the same key.
type TablesFile struct {
	Tiers        map[string]TierFile             `mapstructure:"tiers"`
	Allocation   map[string]map[string]RangeFile `mapstructure:"allocation"`
	Requirements map[string]PlanFile             `mapstructure:"requirements"`
	RoomWeights  map[string]float64              `mapstructure:"room_weights"`
	WidthLimits  map[string]WidthLimitFile       `mapstructure:"width_limits"`
	SlotZones    map[string]string               `mapstructure:"slot_zones"`

	DefaultAllocation *RangeFile `mapstructure:"default_allocation"`
	DefaultRoomWeight *float64   `mapstructure:"default_room_weight"`
	MinSlotBudget     *float64   `mapstructure:"min_slot_budget"`
	OptionalShare     *float64   `mapstructure:"optional_share"`
	MinPriceFraction  *float64   `mapstructure:"min_price_fraction"`
	CandidateLimit    *int       `mapstructure:"candidate_limit"`
}

type RangeFile struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

type TierFile struct {
	Label             string    `mapstructure:"label"`
	PerSqmEUR         RangeFile `mapstructure:"per_sqm_eur"`
	PreferredSources  []string  `mapstructure:"preferred_sources"`
	MaxSingleItemFrac float64   `mapstructure:"max_single_item_pct"`
	StyleKeywords     []string  `mapstructure:"style_keywords"`
}

type PlanFile struct {
	Required []SlotFile `mapstructure:"required"`
	Optional []SlotFile `mapstructure:"optional"`
}

// SlotFile describes one slot. A positive max_quantity makes the quantity a range.
type SlotFile struct {
	Slot        string   `mapstructure:"slot"`
	Categories  []string `mapstructure:"categories"`
	Quantity    int      `mapstructure:"quantity"`
	MinQuantity int      `mapstructure:"min_quantity"`
	MaxQuantity int      `mapstructure:"max_quantity"`
}

type WidthLimitFile struct {
	Fraction float64 `mapstructure:"fraction"`
	CapCM    float64 `mapstructure:"cap_cm"`
}

// LoadTables builds the matcher tables: built-in defaults, then the optional YAML file at
// cfg.TablesPath, then the env-level overrides. The result is validated and never mutated afterwards.
func LoadTables(cfg MatcherConfig) (matcher.Tables, error) {
	tables := matcher.DefaultTables()

	if cfg.TablesPath != "" {
		file, err := ReadTablesFile(cfg.TablesPath)
		if err != nil {
			return matcher.Tables{}, err
		}
		file.Apply(&tables)
	}

	if cfg.CandidateLimit > 0 {
		tables.CandidateLimit = cfg.CandidateLimit
	}
	if cfg.MinSlotBudget > 0 {
		tables.MinSlotBudget = decimal.NewFromFloat(cfg.MinSlotBudget)
	}

	if err := ValidateTables(tables); err != nil {
		return matcher.Tables{}, err
	}
	return tables, nil
}

// ReadTablesFile decodes a YAML overrides file
func ReadTablesFile(path string) (*TablesFile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading matcher tables file, %w", err)
	}

	var file TablesFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("unable to decode matcher tables, %w", err)
	}
	return &file, nil
}

// Apply merges the file into t
func (f *TablesFile) Apply(t *matcher.Tables) {
	for name, tf := range f.Tiers {
		t.Tiers[matcher.Tier(name)] = matcher.TierProfile{
			Label:             tf.Label,
			PerSqmEUR:         matcher.Range{Min: tf.PerSqmEUR.Min, Max: tf.PerSqmEUR.Max},
			PreferredSources:  tf.PreferredSources,
			MaxSingleItemFrac: tf.MaxSingleItemFrac,
			StyleKeywords:     tf.StyleKeywords,
		}
	}

	for roomType, slots := range f.Allocation {
		key := matcher.NormalizeRoomType(roomType)
		if t.Allocation[key] == nil {
			t.Allocation[key] = map[string]matcher.Range{}
		}
		for slot, r := range slots {
			t.Allocation[key][slot] = matcher.Range{Min: r.Min, Max: r.Max}
		}
	}

	for roomType, pf := range f.Requirements {
		t.Requirements[matcher.NormalizeRoomType(roomType)] = matcher.Plan{
			Required: slotRequirements(pf.Required),
			Optional: slotRequirements(pf.Optional),
		}
	}

	for roomType, w := range f.RoomWeights {
		t.RoomWeights[matcher.NormalizeRoomType(roomType)] = w
	}
	for slot, wl := range f.WidthLimits {
		t.WidthLimits[slot] = matcher.WidthLimit{Fraction: wl.Fraction, CapCM: wl.CapCM}
	}
	for slot, zone := range f.SlotZones {
		t.SlotZones[slot] = zone
	}

	if f.DefaultAllocation != nil {
		t.DefaultAllocation = matcher.Range{Min: f.DefaultAllocation.Min, Max: f.DefaultAllocation.Max}
	}
	if f.DefaultRoomWeight != nil {
		t.DefaultRoomWeight = *f.DefaultRoomWeight
	}
	if f.MinSlotBudget != nil {
		t.MinSlotBudget = decimal.NewFromFloat(*f.MinSlotBudget)
	}
	if f.OptionalShare != nil {
		t.OptionalShare = *f.OptionalShare
	}
	if f.MinPriceFraction != nil {
		t.MinPriceFraction = *f.MinPriceFraction
	}
	if f.CandidateLimit != nil {
		t.CandidateLimit = *f.CandidateLimit
	}
}

func slotRequirements(slots []SlotFile) []matcher.SlotRequirement {
	out := make([]matcher.SlotRequirement, 0, len(slots))
	for _, s := range slots {
		q := matcher.Fixed(s.Quantity)
		if s.MaxQuantity > 0 {
			q = matcher.Between(s.MinQuantity, s.MaxQuantity)
		}
		out = append(out, matcher.SlotRequirement{Slot: s.Slot, Categories: s.Categories, Quantity: q})
	}
	return out
}

// ValidateTables rejects tables the matcher cannot run against
func ValidateTables(t matcher.Tables) error {
	if _, ok := t.Tiers[matcher.TierStandard]; !ok {
		return fmt.Errorf("matcher tables: standard tier is required as the fallback tier")
	}
	if err := validRange("default allocation", t.DefaultAllocation); err != nil {
		return err
	}
	for roomType, slots := range t.Allocation {
		for slot, r := range slots {
			if err := validRange(roomType+"/"+slot, r); err != nil {
				return err
			}
		}
	}
	for roomType, plan := range t.Requirements {
		for _, req := range append(append([]matcher.SlotRequirement{}, plan.Required...), plan.Optional...) {
			if req.Slot == "" || len(req.Categories) == 0 {
				return fmt.Errorf("matcher tables: %s has a slot without name or categories", roomType)
			}
		}
	}
	for roomType, w := range t.RoomWeights {
		if w < 0 {
			return fmt.Errorf("matcher tables: negative weight for %s", roomType)
		}
	}
	if t.OptionalShare <= 0 || t.OptionalShare > 1 {
		return fmt.Errorf("matcher tables: optional share %.2f outside (0, 1]", t.OptionalShare)
	}
	if t.MinPriceFraction < 0 || t.MinPriceFraction >= 1 {
		return fmt.Errorf("matcher tables: min price fraction %.2f outside [0, 1)", t.MinPriceFraction)
	}
	if t.CandidateLimit <= 0 {
		return fmt.Errorf("matcher tables: candidate limit must be positive")
	}
	if t.MinSlotBudget.IsNegative() {
		return fmt.Errorf("matcher tables: negative min slot budget")
	}
	return nil
}

func validRange(name string, r matcher.Range) error {
	if r.Min < 0 || r.Max > 1 || r.Min > r.Max {
		return fmt.Errorf("matcher tables: allocation range %s (%.2f, %.2f) is invalid", name, r.Min, r.Max)
	}
	return nil
}
