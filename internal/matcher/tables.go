package matcher

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Tier is a budget quality band
type Tier string

const (
	TierBudget   Tier = "budget"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
	TierLuxury   Tier = "luxury"
)

// Room types
const (
	RoomLivingRoom = "living_room"
	RoomBedroom    = "bedroom"
	RoomKitchen    = "kitchen"
	RoomDiningRoom = "dining_room"
	RoomOffice     = "office"
	RoomKidsRoom   = "kids_room"
	RoomBathroom   = "bathroom"
)

// Range is a closed [Min, Max] interval
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// TierProfile shapes spend ceilings and sourcing for one tier
type TierProfile struct {
	Label             string   `json:"label"`
	PerSqmEUR         Range    `json:"per_sqm_eur"`
	PreferredSources  []string `json:"preferred_sources"`
	MaxSingleItemFrac float64  `json:"max_single_item_pct"`
	StyleKeywords     []string `json:"style_keywords"`
}

// BudgetRange returns the suggested EUR range for furnishing areaSqm square meters
func (p TierProfile) BudgetRange(areaSqm float64) Range {
	if areaSqm <= 0 {
		return Range{}
	}
	return Range{Min: p.PerSqmEUR.Min * areaSqm, Max: p.PerSqmEUR.Max * areaSqm}
}

// SlotRequirement is a named furniture role for a room type
type SlotRequirement struct {
	Slot       string
	Categories []string
	Quantity   Quantity
}

// Plan lists the slots of one room type in fill order
type Plan struct {
	Required []SlotRequirement
	Optional []SlotRequirement
}

// WidthLimit bounds a slot's width relative to the room. CapCM of zero means no absolute cap.
type WidthLimit struct {
	Fraction float64
	CapCM    float64
}

// Tables is the static configuration the matcher runs against.
// It is built once at start-up and passed by value; nothing in this package mutates it.
type Tables struct {
	Tiers        map[Tier]TierProfile
	Allocation   map[string]map[string]Range
	Requirements map[string]Plan
	RoomWeights  map[string]float64
	WidthLimits  map[string]WidthLimit
	SlotZones    map[string]string

	DefaultAllocation     Range
	DefaultRoomWeight     float64
	MinSlotBudget         decimal.Decimal
	OptionalShare         float64
	MinPriceFraction      float64
	FallbackWidthFraction float64
	ReferenceAreaSqm      float64
	CandidateLimit        int
}

// DefaultTables returns a fresh copy of the built-in configuration
func DefaultTables() Tables {
	return Tables{
		Tiers: map[Tier]TierProfile{
			TierBudget: {
				Label:             "Budget",
				PerSqmEUR:         Range{Min: 40, Max: 80},
				PreferredSources:  []string{"ikea.bg", "jysk.bg", "emag.bg"},
				MaxSingleItemFrac: 0.30,
				StyleKeywords:     []string{"minimalist", "scandinavian", "modern", "functional", "simple"},
			},
			TierStandard: {
				Label:             "Standard",
				PerSqmEUR:         Range{Min: 80, Max: 150},
				PreferredSources:  []string{"ikea.bg", "aiko-bg.com", "videnov.bg", "jysk.bg"},
				MaxSingleItemFrac: 0.25,
				StyleKeywords:     []string{"contemporary", "transitional", "mid-century", "scandinavian", "modern"},
			},
			TierPremium: {
				Label:             "Premium",
				PerSqmEUR:         Range{Min: 150, Max: 300},
				PreferredSources:  []string{"aiko-bg.com", "videnov.bg", "ikea.bg"},
				MaxSingleItemFrac: 0.20,
				StyleKeywords:     []string{"contemporary", "mid-century modern", "industrial chic", "art deco", "japandi"},
			},
			TierLuxury: {
				Label:             "Luxury",
				PerSqmEUR:         Range{Min: 300, Max: 600},
				PreferredSources:  []string{"aiko-bg.com", "videnov.bg"},
				MaxSingleItemFrac: 0.15,
				StyleKeywords:     []string{"luxury modern", "designer", "bespoke", "art deco", "contemporary classic", "high-end minimalist"},
			},
		},
		Allocation: map[string]map[string]Range{
			RoomLivingRoom: {
				"sofa":         {0.35, 0.45},
				"coffee_table": {0.15, 0.20},
				"armchair":     {0.10, 0.20},
				"tv_stand":     {0.10, 0.15},
				"floor_lamp":   {0.05, 0.10},
				"rug":          {0.05, 0.10},
				"bookcase":     {0.10, 0.15},
				"side_table":   {0.03, 0.06},
				"mirror":       {0.03, 0.06},
			},
			RoomBedroom: {
				"bed":          {0.30, 0.40},
				"mattress":     {0.20, 0.30},
				"wardrobe":     {0.20, 0.30},
				"nightstand":   {0.05, 0.10},
				"dresser":      {0.10, 0.15},
				"bedside_lamp": {0.03, 0.06},
				"mirror":       {0.03, 0.05},
				"rug":          {0.05, 0.08},
				"armchair":     {0.05, 0.10},
			},
			RoomKitchen: {
				"dining_table":    {0.25, 0.35},
				"dining_chairs":   {0.20, 0.30},
				"storage_cabinet": {0.15, 0.25},
				"shelf_unit":      {0.10, 0.15},
				"pendant_light":   {0.05, 0.10},
			},
			RoomDiningRoom: {
				"dining_table":  {0.30, 0.40},
				"dining_chairs": {0.25, 0.35},
				"sideboard":     {0.10, 0.20},
				"pendant_light": {0.05, 0.10},
				"rug":           {0.05, 0.10},
				"mirror":        {0.03, 0.05},
			},
			RoomOffice: {
				"desk":           {0.30, 0.40},
				"office_chair":   {0.25, 0.35},
				"bookcase":       {0.10, 0.20},
				"filing_cabinet": {0.05, 0.15},
				"desk_lamp":      {0.05, 0.10},
				"rug":            {0.03, 0.07},
			},
			RoomKidsRoom: {
				"bed":        {0.25, 0.35},
				"mattress":   {0.15, 0.20},
				"desk":       {0.10, 0.20},
				"desk_chair": {0.05, 0.10},
				"wardrobe":   {0.15, 0.25},
				"shelf_unit": {0.05, 0.10},
				"rug":        {0.05, 0.10},
			},
		},
		Requirements: map[string]Plan{
			RoomLivingRoom: {
				Required: []SlotRequirement{
					{Slot: "sofa", Categories: []string{"sofa", "corner sofa", "sofa bed"}, Quantity: Fixed(1)},
					{Slot: "coffee_table", Categories: []string{"coffee table", "table"}, Quantity: Fixed(1)},
				},
				Optional: []SlotRequirement{
					{Slot: "armchair", Categories: []string{"armchair", "chair"}, Quantity: Between(0, 2)},
					{Slot: "tv_stand", Categories: []string{"tv stand", "cabinet"}, Quantity: Fixed(1)},
					{Slot: "floor_lamp", Categories: []string{"floor lamp", "lamp"}, Quantity: Fixed(1)},
					{Slot: "rug", Categories: []string{"rug"}, Quantity: Fixed(1)},
					{Slot: "bookcase", Categories: []string{"bookcase", "shelf", "shelf unit"}, Quantity: Fixed(1)},
					{Slot: "side_table", Categories: []string{"side table", "table", "coffee table"}, Quantity: Fixed(1)},
					{Slot: "mirror", Categories: []string{"mirror"}, Quantity: Fixed(1)},
				},
			},
			RoomBedroom: {
				Required: []SlotRequirement{
					{Slot: "bed", Categories: []string{"bed", "double bed", "single bed"}, Quantity: Fixed(1)},
					{Slot: "mattress", Categories: []string{"mattress"}, Quantity: Fixed(1)},
					{Slot: "wardrobe", Categories: []string{"wardrobe"}, Quantity: Fixed(1)},
				},
				Optional: []SlotRequirement{
					{Slot: "nightstand", Categories: []string{"nightstand"}, Quantity: Fixed(2)},
					{Slot: "dresser", Categories: []string{"dresser", "cabinet"}, Quantity: Fixed(1)},
					{Slot: "bedside_lamp", Categories: []string{"table lamp", "lamp"}, Quantity: Fixed(2)},
					{Slot: "mirror", Categories: []string{"mirror"}, Quantity: Fixed(1)},
					{Slot: "rug", Categories: []string{"rug"}, Quantity: Fixed(1)},
					{Slot: "armchair", Categories: []string{"armchair", "chair"}, Quantity: Between(0, 1)},
				},
			},
			RoomKitchen: {
				Required: []SlotRequirement{
					{Slot: "dining_table", Categories: []string{"dining table", "table"}, Quantity: Fixed(1)},
					{Slot: "dining_chairs", Categories: []string{"dining chair", "chair"}, Quantity: Fixed(4)},
				},
				Optional: []SlotRequirement{
					{Slot: "storage_cabinet", Categories: []string{"cabinet"}, Quantity: Fixed(1)},
					{Slot: "shelf_unit", Categories: []string{"shelf", "shelf unit"}, Quantity: Fixed(1)},
					{Slot: "pendant_light", Categories: []string{"pendant lamp", "lamp"}, Quantity: Fixed(1)},
				},
			},
			RoomDiningRoom: {
				Required: []SlotRequirement{
					{Slot: "dining_table", Categories: []string{"dining table", "table"}, Quantity: Fixed(1)},
					{Slot: "dining_chairs", Categories: []string{"dining chair", "chair"}, Quantity: Between(4, 6)},
				},
				Optional: []SlotRequirement{
					{Slot: "sideboard", Categories: []string{"sideboard", "cabinet"}, Quantity: Fixed(1)},
					{Slot: "pendant_light", Categories: []string{"pendant lamp", "lamp"}, Quantity: Fixed(1)},
					{Slot: "rug", Categories: []string{"rug"}, Quantity: Fixed(1)},
					{Slot: "mirror", Categories: []string{"mirror"}, Quantity: Fixed(1)},
				},
			},
			RoomOffice: {
				Required: []SlotRequirement{
					{Slot: "desk", Categories: []string{"desk"}, Quantity: Fixed(1)},
					{Slot: "office_chair", Categories: []string{"office chair", "chair"}, Quantity: Fixed(1)},
				},
				Optional: []SlotRequirement{
					{Slot: "bookcase", Categories: []string{"bookcase", "shelf", "shelf unit"}, Quantity: Fixed(1)},
					{Slot: "filing_cabinet", Categories: []string{"cabinet"}, Quantity: Fixed(1)},
					{Slot: "desk_lamp", Categories: []string{"table lamp", "lamp"}, Quantity: Fixed(1)},
					{Slot: "rug", Categories: []string{"rug"}, Quantity: Fixed(1)},
				},
			},
			RoomKidsRoom: {
				Required: []SlotRequirement{
					{Slot: "bed", Categories: []string{"single bed", "bed"}, Quantity: Fixed(1)},
					{Slot: "mattress", Categories: []string{"mattress"}, Quantity: Fixed(1)},
				},
				Optional: []SlotRequirement{
					{Slot: "wardrobe", Categories: []string{"wardrobe"}, Quantity: Fixed(1)},
					{Slot: "desk", Categories: []string{"desk"}, Quantity: Fixed(1)},
					{Slot: "desk_chair", Categories: []string{"chair", "office chair"}, Quantity: Fixed(1)},
					{Slot: "shelf_unit", Categories: []string{"shelf", "shelf unit", "bookcase"}, Quantity: Fixed(1)},
					{Slot: "rug", Categories: []string{"rug"}, Quantity: Fixed(1)},
				},
			},
			RoomBathroom: {
				Required: []SlotRequirement{
					{Slot: "mirror", Categories: []string{"mirror"}, Quantity: Fixed(1)},
				},
				Optional: []SlotRequirement{
					{Slot: "storage_cabinet", Categories: []string{"cabinet"}, Quantity: Fixed(1)},
					{Slot: "shelf_unit", Categories: []string{"shelf", "shelf unit"}, Quantity: Fixed(1)},
					{Slot: "rug", Categories: []string{"bath mat", "rug"}, Quantity: Fixed(1)},
				},
			},
		},
		RoomWeights: map[string]float64{
			RoomLivingRoom: 0.30,
			RoomBedroom:    0.25,
			RoomKitchen:    0.20,
			RoomKidsRoom:   0.20,
			RoomDiningRoom: 0.15,
			RoomOffice:     0.15,
			RoomBathroom:   0.10,
		},
		WidthLimits: map[string]WidthLimit{
			"sofa":         {Fraction: 0.75},
			"bed":          {Fraction: 0.70, CapCM: 220},
			"coffee_table": {Fraction: 0.40, CapCM: 140},
			"dining_table": {Fraction: 0.60, CapCM: 240},
			"desk":         {Fraction: 0.50, CapCM: 180},
			"wardrobe":     {Fraction: 0.60, CapCM: 250},
			"tv_stand":     {Fraction: 0.50, CapCM: 200},
			"sideboard":    {Fraction: 0.50, CapCM: 200},
			"dresser":      {Fraction: 0.40, CapCM: 160},
			"bookcase":     {Fraction: 0.40, CapCM: 120},
			"rug":          {Fraction: 0.70, CapCM: 300},
		},
		SlotZones: map[string]string{
			"sofa":           "seating_area",
			"armchair":       "seating_area",
			"coffee_table":   "seating_area",
			"side_table":     "seating_area",
			"floor_lamp":     "seating_area",
			"rug":            "seating_area",
			"bed":            "sleeping_area",
			"mattress":       "sleeping_area",
			"nightstand":     "sleeping_area",
			"bedside_lamp":   "sleeping_area",
			"desk":           "work_area",
			"office_chair":   "work_area",
			"desk_chair":     "work_area",
			"desk_lamp":      "work_area",
			"filing_cabinet": "work_area",
			"dining_table":   "dining_area",
			"dining_chairs":  "dining_area",
			"pendant_light":  "dining_area",
			"sideboard":      "dining_area",
			"wardrobe":       "storage_area",
		},
		DefaultAllocation:     Range{Min: 0.15, Max: 0.25},
		DefaultRoomWeight:     0.10,
		MinSlotBudget:         decimal.NewFromInt(15),
		OptionalShare:         0.4,
		MinPriceFraction:      0.3,
		FallbackWidthFraction: 0.6,
		ReferenceAreaSqm:      15,
		CandidateLimit:        10,
	}
}

// TierProfile returns the profile for tier, falling back to standard for unknown tiers.
// The second return value is the tier actually used.
func (t Tables) TierProfile(tier Tier) (TierProfile, Tier) {
	if p, ok := t.Tiers[tier]; ok {
		return p, tier
	}
	return t.Tiers[TierStandard], TierStandard
}

// NormalizeRoomType maps free-form labels like "Living Room" or "kids-room" onto table keys
func NormalizeRoomType(roomType string) string {
	s := strings.ToLower(strings.TrimSpace(roomType))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// KnownRoomType reports whether a slot plan exists for roomType
func (t Tables) KnownRoomType(roomType string) bool {
	_, ok := t.Requirements[NormalizeRoomType(roomType)]
	return ok
}

// FindSlot looks a slot up across every room plan, preferring roomType when given
func (t Tables) FindSlot(roomType, slot string) (SlotRequirement, bool) {
	if plan, ok := t.Requirements[roomType]; ok {
		if req, ok := plan.find(slot); ok {
			return req, true
		}
	}
	for _, rt := range sortedKeys(t.Requirements) {
		if req, ok := t.Requirements[rt].find(slot); ok {
			return req, true
		}
	}
	return SlotRequirement{}, false
}

func (p Plan) find(slot string) (SlotRequirement, bool) {
	for _, req := range p.Required {
		if req.Slot == slot {
			return req, true
		}
	}
	for _, req := range p.Optional {
		if req.Slot == slot {
			return req, true
		}
	}
	return SlotRequirement{}, false
}
