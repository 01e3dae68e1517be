package models

import "time"

// Product represents a furniture product in the catalog
type Product struct {
	ID                   string   `db:"id" json:"id"`
	Name                 string   `db:"name" json:"name"`
	Category             string   `db:"category" json:"category"`
	Subcategory          *string  `db:"subcategory" json:"subcategory,omitempty"`
	RoomType             *string  `db:"room_type" json:"room_type,omitempty"`
	Style                *string  `db:"style" json:"style,omitempty"`
	Price                float64  `db:"price" json:"price"`
	Currency             string   `db:"currency" json:"currency"`
	WidthCM              *float64 `db:"width_cm" json:"width_cm,omitempty"`
	HeightCM             *float64 `db:"height_cm" json:"height_cm,omitempty"`
	DepthCM              *float64 `db:"depth_cm" json:"depth_cm,omitempty"`
	DimensionsConfidence string   `db:"dimensions_confidence" json:"dimensions_confidence"`
	ProportionWH         *float64 `db:"proportion_w_h" json:"proportion_w_h,omitempty"`
	ProportionWD         *float64 `db:"proportion_w_d" json:"proportion_w_d,omitempty"`
	VisualDescription    *string  `db:"visual_description" json:"visual_description,omitempty"`
	LuxuryScore          *float64 `db:"luxury_score" json:"luxury_score,omitempty"`
	Rating               *float64 `db:"rating" json:"rating,omitempty"`
	InStock              bool     `db:"in_stock" json:"in_stock"`
	SourceDomain         string   `db:"source_domain" json:"source_domain"`
	ProductURL           string   `db:"product_url" json:"product_url"`
	ImageKey             *string  `db:"image_key" json:"image_key,omitempty"`
	ImageUsable          bool     `db:"image_usable" json:"image_usable"`
	Color                *string  `db:"color" json:"color,omitempty"`
	PrimaryMaterial      *string  `db:"primary_material" json:"primary_material,omitempty"`
}

// Dimension confidence labels
const (
	DimensionsVerified      = "verified"
	DimensionsEstimatedHigh = "estimated_high"
	DimensionsEstimatedLow  = "estimated_low"
	DimensionsAbsent        = "absent"
)

// HasImage reports whether the product carries an image reference key
func (p *Product) HasImage() bool {
	return p.ImageKey != nil && *p.ImageKey != ""
}

// ProductQuery is the filter set accepted by the catalog search.
// Nil pointers and empty slices disable the corresponding filter.
type ProductQuery struct {
	Categories         []string `json:"categories,omitempty"`
	RoomType           string   `json:"room_type,omitempty"`
	Style              string   `json:"style,omitempty"`
	MinPrice           *float64 `json:"min_price,omitempty"`
	MaxPrice           *float64 `json:"max_price,omitempty"`
	MaxWidth           *float64 `json:"max_width,omitempty"`
	PreferredSources   []string `json:"preferred_sources,omitempty"`
	RequireUsableImage bool     `json:"require_usable_image"`
	RequireProportions bool     `json:"require_proportions"`
	Limit              int      `json:"limit"`
}

// UsableWall is a wall segment that furniture may be placed against
type UsableWall struct {
	Wall         string   `json:"wall"`
	FreeLengthCM float64  `json:"free_length_cm"`
	SuitableFor  []string `json:"suitable_for"`
}

// FurnitureZone is a named open-floor area of the room
type FurnitureZone struct {
	Zone     string     `json:"zone"`
	Position string     `json:"position,omitempty"`
	AreaCM   [2]float64 `json:"area_cm"`
}

// RoomLayout is the geometry of one room as produced by sketch analysis
type RoomLayout struct {
	ID             string          `json:"id"`
	Type           string          `json:"type" binding:"required"`
	WidthCM        float64         `json:"width_cm"`
	DepthCM        float64         `json:"depth_cm"`
	AreaSqm        float64         `json:"area_sqm"`
	UsableWalls    []UsableWall    `json:"usable_walls,omitempty"`
	FurnitureZones []FurnitureZone `json:"furniture_zones,omitempty"`
}

// Design represents a persisted multi-room furnishing request and its outcome
type Design struct {
	ID             string    `db:"id" json:"id"`
	Status         string    `db:"status" json:"status"`
	Tier           string    `db:"tier" json:"tier"`
	Style          string    `db:"style" json:"style,omitempty"`
	BudgetTotal    float64   `db:"budget_total" json:"budget_total"`
	Request        string    `db:"request" json:"-"`
	Result         string    `db:"result" json:"-"`
	Error          string    `db:"error" json:"error,omitempty"`
	IdempotencyKey string    `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Design statuses
const (
	DesignStatusPending = "PENDING"
	DesignStatusMatched = "MATCHED"
	DesignStatusFailed  = "FAILED"
)

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
