package matcher

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"furnish-service/internal/models"
)

// Catalog is the read-only product search the matcher queries once per slot
type Catalog interface {
	Search(ctx context.Context, q models.ProductQuery) ([]models.Product, error)
}

// ImageURLFunc turns an image reference key into a public URL
type ImageURLFunc func(key string) string

// Observer receives slot outcomes that do not surface as errors
type Observer interface {
	SlotUnmet(roomType, slot, reason string)
	SlotSkipped(roomType, slot, reason string)
}

// Matcher furnishes one room at a time from the catalog
type Matcher struct {
	tables   Tables
	catalog  Catalog
	ranker   *Ranker
	logger   *zap.Logger
	imageURL ImageURLFunc
	observer Observer
}

// Option configures a Matcher
type Option func(*Matcher)

// WithLogger sets the logger used for per-slot debug output
func WithLogger(l *zap.Logger) Option {
	return func(m *Matcher) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithImageURL sets how image keys become URLs in render references and buy links
func WithImageURL(fn ImageURLFunc) Option {
	return func(m *Matcher) {
		if fn != nil {
			m.imageURL = fn
		}
	}
}

// WithRanker replaces the default candidate ranker
func WithRanker(r *Ranker) Option {
	return func(m *Matcher) {
		if r != nil {
			m.ranker = r
		}
	}
}

// WithObserver registers a sink for unmet and skipped slots
func WithObserver(o Observer) Option {
	return func(m *Matcher) {
		m.observer = o
	}
}

// New creates a matcher over tables and catalog
func New(tables Tables, catalog Catalog, opts ...Option) *Matcher {
	m := &Matcher{
		tables:   tables,
		catalog:  catalog,
		ranker:   NewRanker(nil),
		logger:   zap.NewNop(),
		imageURL: func(key string) string { return key },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Tables returns the configuration the matcher was built with
func (m *Matcher) Tables() Tables {
	return m.tables
}

// roomRun is the mutable state of a single MatchRoom call
type roomRun struct {
	room      models.RoomLayout
	roomType  string
	tier      Tier
	profile   TierProfile
	style     string
	total     decimal.Decimal
	remaining decimal.Decimal
	items     []MatchedItem
}

// MatchRoom selects products for every slot of room within budget.
//
// Required slots are filled first in table order, then optional slots while money remains.
// An unknown room type is the only fatal outcome besides catalog transport failures and
// context cancellation; everything else is reported inside the result.
func (m *Matcher) MatchRoom(ctx context.Context, room models.RoomLayout, budget float64, tier Tier, style string) (*MatchResult, error) {
	// Init
	roomType := NormalizeRoomType(room.Type)
	required, optional, err := m.tables.Plan(roomType)
	if err != nil {
		return nil, err
	}

	profile, tier := m.tables.TierProfile(tier)
	total := decimal.NewFromFloat(budget).Round(2)
	if total.IsNegative() {
		total = decimal.Zero
	}

	run := &roomRun{
		room:      room,
		roomType:  roomType,
		tier:      tier,
		profile:   profile,
		style:     style,
		total:     total,
		remaining: total,
	}

	// FillingRequired
	for _, slot := range required {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item, err := m.fillSlot(ctx, run, slot)
		if err != nil {
			return nil, err
		}
		run.items = append(run.items, *item)
	}

	// FillingOptional
	for i, slot := range optional {
		if !run.remaining.IsPositive() {
			for _, rest := range optional[i:] {
				m.skipped(run, rest.Slot, ReasonBudgetExhausted)
			}
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item, err := m.fillSlot(ctx, run, slot)
		if err != nil {
			return nil, err
		}
		if item != nil {
			run.items = append(run.items, *item)
		}
	}

	// Assembled
	return m.assemble(run), nil
}

// fillSlot allocates, queries and ranks one slot. A nil item means the optional slot is left out.
func (m *Matcher) fillSlot(ctx context.Context, run *roomRun, slot PlannedSlot) (*MatchedItem, error) {
	budget := m.tables.Allocate(slot, run.roomType, run.remaining, run.total, run.tier)
	if budget.Skip {
		m.skipped(run, slot.Slot, ReasonBelowFloor)
		return nil, nil
	}

	maxWidth := m.tables.MaxWidth(run.room, slot.Slot)
	item := &MatchedItem{
		Slot:       slot.Slot,
		Required:   slot.Required,
		MaxPrice:   budget.PerItem,
		MaxWidthCM: maxWidth,
		Placement:  m.tables.PlacementFor(run.room, slot.Slot),
		UnitPrice:  decimal.Zero,
		TotalPrice: decimal.Zero,
	}

	if !budget.PerItem.IsPositive() {
		return m.unmet(run, item, ReasonBudgetExhausted), nil
	}

	maxPrice, _ := budget.PerItem.Float64()
	minPrice, _ := budget.PerItem.Mul(decimal.NewFromFloat(m.tables.MinPriceFraction)).Round(2).Float64()
	q := models.ProductQuery{
		Categories:         slot.Categories,
		RoomType:           run.roomType,
		Style:              run.style,
		MinPrice:           &minPrice,
		MaxPrice:           &maxPrice,
		MaxWidth:           maxWidth,
		PreferredSources:   run.profile.PreferredSources,
		RequireUsableImage: true,
		Limit:              m.tables.CandidateLimit,
	}

	candidates, err := m.catalog.Search(ctx, q)
	if err != nil {
		return nil, &CatalogError{Slot: slot.Slot, Err: err}
	}
	candidates = withinLimits(candidates, maxPrice, maxWidth)

	best, ok := m.ranker.Rank(candidates, maxPrice, run.tier)
	if !ok {
		return m.unmet(run, item, ReasonNoCandidates), nil
	}

	price := decimal.NewFromFloat(best.Product.Price)
	units := 0
	for units < slot.Count && run.remaining.IsPositive() && price.LessThanOrEqual(run.remaining) {
		run.remaining = run.remaining.Sub(price)
		units++
	}
	if units == 0 {
		return m.unmet(run, item, ReasonBudgetExhausted), nil
	}

	product := best.Product
	item.Product = &product
	item.Quantity = units
	item.UnitPrice = price
	item.TotalPrice = price.Mul(decimal.NewFromInt(int64(units)))
	item.Score = best.Score
	item.Reasons = best.Reasons

	m.logger.Debug("Slot filled",
		zap.String("room_type", run.roomType),
		zap.String("slot", slot.Slot),
		zap.String("product_id", product.ID),
		zap.Int("quantity", units),
		zap.String("unit_price", price.StringFixed(2)),
		zap.Float64("score", best.Score),
		zap.Int("candidates", len(candidates)),
	)
	return item, nil
}

// unmet records a required slot without a product. Optional slots are dropped instead.
func (m *Matcher) unmet(run *roomRun, item *MatchedItem, reason string) *MatchedItem {
	if !item.Required {
		m.skipped(run, item.Slot, reason)
		return nil
	}
	item.UnmetReason = reason
	m.logger.Debug("Required slot unmet",
		zap.String("room_type", run.roomType),
		zap.String("slot", item.Slot),
		zap.String("reason", reason),
		zap.String("max_price", item.MaxPrice.StringFixed(2)),
	)
	if m.observer != nil {
		m.observer.SlotUnmet(run.roomType, item.Slot, reason)
	}
	return item
}

func (m *Matcher) skipped(run *roomRun, slot, reason string) {
	m.logger.Debug("Optional slot skipped",
		zap.String("room_type", run.roomType),
		zap.String("slot", slot),
		zap.String("reason", reason),
	)
	if m.observer != nil {
		m.observer.SlotSkipped(run.roomType, slot, reason)
	}
}

// withinLimits drops candidates the catalog should not have returned
func withinLimits(candidates []models.Product, maxPrice float64, maxWidth *float64) []models.Product {
	out := make([]models.Product, 0, len(candidates))
	for _, p := range candidates {
		if p.Price <= 0 || p.Price > maxPrice {
			continue
		}
		if maxWidth != nil && p.WidthCM != nil && *p.WidthCM > *maxWidth {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (m *Matcher) assemble(run *roomRun) *MatchResult {
	spent := run.total.Sub(run.remaining)

	res := &MatchResult{
		Room:               run.room,
		Tier:               run.tier,
		Style:              run.style,
		BudgetTotal:        run.total,
		BudgetSpent:        spent,
		BudgetRemaining:    run.remaining,
		Items:              run.items,
		UnmetRequiredSlots: []string{},
		RenderReferences:   []RenderReference{},
		BuyLinks:           []BuyLink{},
	}
	if res.Items == nil {
		res.Items = []MatchedItem{}
	}
	if run.total.IsPositive() {
		res.BudgetUtilizationPct, _ = spent.Div(run.total).Mul(decimal.NewFromInt(100)).Round(1).Float64()
	}

	for _, item := range run.items {
		if item.Product == nil {
			res.UnmetRequiredSlots = append(res.UnmetRequiredSlots, item.Slot)
			continue
		}
		res.ProductCount++

		p := item.Product
		if !p.HasImage() {
			continue
		}
		imageURL := m.imageURL(*p.ImageKey)
		var desc string
		if p.VisualDescription != nil {
			desc = *p.VisualDescription
		}
		res.RenderReferences = append(res.RenderReferences, RenderReference{
			Slot:              item.Slot,
			ImageKey:          *p.ImageKey,
			ImageURL:          imageURL,
			VisualDescription: desc,
			WidthCM:           p.WidthCM,
			HeightCM:          p.HeightCM,
			DepthCM:           p.DepthCM,
			ProportionWH:      p.ProportionWH,
			ProportionWD:      p.ProportionWD,
			Color:             p.Color,
			PrimaryMaterial:   p.PrimaryMaterial,
			Quantity:          item.Quantity,
			Placement:         item.Placement,
		})
		res.BuyLinks = append(res.BuyLinks, BuyLink{
			Slot:     item.Slot,
			Name:     p.Name,
			Price:    item.UnitPrice,
			Quantity: item.Quantity,
			Currency: p.Currency,
			URL:      p.ProductURL,
			Source:   p.SourceDomain,
			ImageURL: imageURL,
		})
	}

	return res
}

// String summarises a result for logs
func (r *MatchResult) String() string {
	return fmt.Sprintf("%s/%s: %d products, spent %s of %s, unmet %v",
		r.Room.Type, r.Tier, r.ProductCount, r.BudgetSpent.StringFixed(2), r.BudgetTotal.StringFixed(2), r.UnmetRequiredSlots)
}
