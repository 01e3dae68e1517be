package matcher

import (
	"github.com/shopspring/decimal"

	"furnish-service/internal/models"
)

// Reasons a slot ends up without a product
const (
	ReasonNoCandidates    = "no_candidates"
	ReasonBudgetExhausted = "budget_exhausted"
	ReasonBelowFloor      = "below_floor"
)

// MatchedItem is the outcome for one slot. Product is nil for an unmet required slot.
type MatchedItem struct {
	Slot        string          `json:"slot"`
	Required    bool            `json:"required"`
	Product     *models.Product `json:"product"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	MaxPrice    decimal.Decimal `json:"max_price"`
	MaxWidthCM  *float64        `json:"max_width_cm,omitempty"`
	Score       float64         `json:"score,omitempty"`
	Reasons     []ScoreReason   `json:"reasons,omitempty"`
	Placement   *Placement      `json:"placement,omitempty"`
	UnmetReason string          `json:"unmet_reason,omitempty"`
}

// RenderReference is what the rendering step needs about one matched product
type RenderReference struct {
	Slot              string     `json:"slot"`
	ImageKey          string     `json:"image_key"`
	ImageURL          string     `json:"image_url"`
	VisualDescription string     `json:"visual_description"`
	WidthCM           *float64   `json:"width_cm,omitempty"`
	HeightCM          *float64   `json:"height_cm,omitempty"`
	DepthCM           *float64   `json:"depth_cm,omitempty"`
	ProportionWH      *float64   `json:"proportion_w_h,omitempty"`
	ProportionWD      *float64   `json:"proportion_w_d,omitempty"`
	Color             *string    `json:"color,omitempty"`
	PrimaryMaterial   *string    `json:"primary_material,omitempty"`
	Quantity          int        `json:"quantity"`
	Placement         *Placement `json:"placement,omitempty"`
}

// BuyLink is a purchasable product card
type BuyLink struct {
	Slot     string          `json:"slot"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Currency string          `json:"currency"`
	URL      string          `json:"url"`
	Source   string          `json:"source"`
	ImageURL string          `json:"image_url"`
}

// MatchResult is the full, immutable output of matching one room
type MatchResult struct {
	Room                 models.RoomLayout `json:"room"`
	Tier                 Tier              `json:"tier"`
	Style                string            `json:"style,omitempty"`
	BudgetTotal          decimal.Decimal   `json:"budget_total"`
	BudgetSpent          decimal.Decimal   `json:"budget_spent"`
	BudgetRemaining      decimal.Decimal   `json:"budget_remaining"`
	BudgetUtilizationPct float64           `json:"budget_utilization_pct"`
	Items                []MatchedItem     `json:"products"`
	ProductCount         int               `json:"product_count"`
	UnmetRequiredSlots   []string          `json:"unmet_required_slots"`
	RenderReferences     []RenderReference `json:"product_images_for_render"`
	BuyLinks             []BuyLink         `json:"buy_links"`
}

// FullyFurnished reports whether every required slot received a product
func (r *MatchResult) FullyFurnished() bool {
	return len(r.UnmetRequiredSlots) == 0
}
