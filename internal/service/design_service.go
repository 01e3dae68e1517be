package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"furnish-service/internal/matcher"
	"furnish-service/internal/models"
	"furnish-service/internal/util"
)

// Budget bounds accepted for a room or a design, in EUR
const (
	MinBudgetEUR = 100
	MaxBudgetEUR = 50000
)

var (
	// ErrInvalidRequest marks caller input that can never succeed as sent
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNothingMatched: the catalog held no product for any slot of the room
	ErrNothingMatched = errors.New("no products matched the given room, budget and tier")
	// ErrInFlight: an async request with the same idempotency key has not been stored yet
	ErrInFlight = errors.New("request with this idempotency key is still in flight")
	// ErrUnavailable wraps failures of the bus or the lock store
	ErrUnavailable = errors.New("dependency unavailable")
)

// ValidStyles is the style vocabulary accepted by the API
var ValidStyles = map[string]bool{
	"modern":       true,
	"scandinavian": true,
	"industrial":   true,
	"classic":      true,
	"minimalist":   true,
	"mid-century":  true,
	"art_deco":     true,
	"rustic":       true,
	"contemporary": true,
	"traditional":  true,
}

// IsRetryable reports whether err may clear up without changing the request
func IsRetryable(err error) bool {
	return matcher.IsRetryable(err) || errors.Is(err, ErrUnavailable)
}

// DesignStore persists designs and consumed event ids
type DesignStore interface {
	CreateDesign(ctx context.Context, d *models.Design) error
	GetDesignByID(ctx context.Context, id string) (*models.Design, error)
	GetDesignByIdempotencyKey(ctx context.Context, key string) (*models.Design, error)
	UpdateDesignOutcome(ctx context.Context, id, status, result, errMsg string) error
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// ProductCatalog is the read side of the product table
type ProductCatalog interface {
	SearchProducts(ctx context.Context, q models.ProductQuery) ([]models.Product, error)
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
}

// IdempotencyLocker guards async requests and design processing
type IdempotencyLocker interface {
	ClaimIdempotencyKey(ctx context.Context, key, value string, ttl time.Duration) (string, bool, error)
	ReleaseIdempotencyKey(ctx context.Context, key string) error
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// DesignEvents publishes design lifecycle events
type DesignEvents interface {
	PublishDesignRequested(ctx context.Context, event *models.DesignRequestedEvent) error
	PublishDesignMatched(ctx context.Context, event *models.DesignMatchedEvent) error
	PublishDesignFailed(ctx context.Context, event *models.DesignFailedEvent) error
}

// lockGrace covers persisting and publishing after a furnish times out
const lockGrace = 10 * time.Second

// Settings holds the timing knobs of the service
type Settings struct {
	IdempotencyTTL time.Duration
	LockTTL        time.Duration
	FurnishTimeout time.Duration
	ImageURL       matcher.ImageURLFunc
}

// DesignService handles furnishing business logic
type DesignService struct {
	store    DesignStore
	catalog  ProductCatalog
	locker   IdempotencyLocker
	events   DesignEvents
	matcher  *matcher.Matcher
	settings Settings
	logger   *zap.Logger
}

// NewDesignService creates a new design service
func NewDesignService(
	store DesignStore,
	catalog ProductCatalog,
	locker IdempotencyLocker,
	events DesignEvents,
	m *matcher.Matcher,
	settings Settings,
) *DesignService {
	if settings.IdempotencyTTL <= 0 {
		settings.IdempotencyTTL = 24 * time.Hour
	}
	if settings.FurnishTimeout <= 0 {
		settings.FurnishTimeout = 30 * time.Second
	}
	if settings.LockTTL <= 0 {
		settings.LockTTL = time.Minute
	}
	// the design lock must outlive a full furnish
	if floor := settings.FurnishTimeout + lockGrace; settings.LockTTL < floor {
		settings.LockTTL = floor
	}
	if settings.ImageURL == nil {
		settings.ImageURL = func(key string) string { return key }
	}
	return &DesignService{
		store:    store,
		catalog:  catalog,
		locker:   locker,
		events:   events,
		matcher:  m,
		settings: settings,
		logger:   util.GetLogger(),
	}
}

// MatchRoomRequest represents a request to furnish a single room
type MatchRoomRequest struct {
	Room   models.RoomLayout `json:"room" binding:"required"`
	Budget float64           `json:"budget" binding:"required"`
	Tier   string            `json:"tier"`
	Style  string            `json:"style,omitempty"`
}

// MatchRoom validates the request and furnishes one room
func (s *DesignService) MatchRoom(ctx context.Context, req *MatchRoomRequest) (*matcher.MatchResult, error) {
	ctx, span := util.StartSpan(ctx, "DesignService.MatchRoom")
	defer span.End()

	tier, err := validateCommon(req.Budget, req.Tier, req.Style)
	if err != nil {
		util.MatchesFailedTotal.WithLabelValues("invalid_request").Inc()
		return nil, err
	}

	span.SetAttributes(
		attribute.String("room_type", req.Room.Type),
		attribute.String("tier", string(tier)),
		attribute.Float64("budget", req.Budget),
	)

	result, err := s.matchRoom(ctx, req.Room, req.Budget, tier, req.Style)
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}
	if result.ProductCount == 0 {
		return nil, ErrNothingMatched
	}
	return result, nil
}

// matchRoom runs the matcher with metrics around it
func (s *DesignService) matchRoom(ctx context.Context, room models.RoomLayout, budget float64, tier matcher.Tier, style string) (*matcher.MatchResult, error) {
	start := time.Now()
	result, err := s.matcher.MatchRoom(ctx, room, budget, tier, style)
	util.MatchLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		util.MatchesFailedTotal.WithLabelValues(failureReason(err)).Inc()
		s.logger.Warn("Room match failed",
			zap.String("room_id", room.ID),
			zap.String("room_type", room.Type),
			zap.Error(err))
		return nil, err
	}

	util.MatchesTotal.WithLabelValues(matcher.NormalizeRoomType(room.Type), string(result.Tier)).Inc()
	util.MatchBudgetUtilization.Observe(result.BudgetUtilizationPct)
	s.logger.Info("Room matched",
		zap.String("room_id", room.ID),
		zap.String("room_type", room.Type),
		zap.String("spent", result.BudgetSpent.StringFixed(2)),
		zap.Int("products", result.ProductCount),
		zap.Strings("unmet", result.UnmetRequiredSlots))
	return result, nil
}

// DistributeRequest splits a total budget across rooms
type DistributeRequest struct {
	Rooms  []models.RoomLayout `json:"rooms" binding:"required,min=1"`
	Budget float64             `json:"budget" binding:"required"`
}

// Distribute returns each room's share of the budget keyed by room id
func (s *DesignService) Distribute(ctx context.Context, req *DistributeRequest) (map[string]decimal.Decimal, error) {
	_, span := util.StartSpan(ctx, "DesignService.Distribute")
	defer span.End()

	if req.Budget <= 0 {
		return nil, fmt.Errorf("%w: budget must be positive", ErrInvalidRequest)
	}
	rooms, err := s.prepareRooms(req.Rooms, false)
	if err != nil {
		return nil, err
	}
	return s.matcher.Tables().Distribute(rooms, decimal.NewFromFloat(req.Budget).Round(2)), nil
}

// TierInfo describes one tier for clients choosing a budget
type TierInfo struct {
	Tier             matcher.Tier   `json:"tier"`
	Label            string         `json:"label"`
	PerSqmEUR        matcher.Range  `json:"per_sqm_eur"`
	MaxSingleItemPct float64        `json:"max_single_item_pct"`
	PreferredSources []string       `json:"preferred_sources"`
	StyleKeywords    []string       `json:"style_keywords"`
	SuggestedBudget  *matcher.Range `json:"suggested_budget,omitempty"`
}

// Tiers lists the configured tiers cheapest first. A positive areaSqm adds a suggested budget range.
func (s *DesignService) Tiers(areaSqm float64) []TierInfo {
	tables := s.matcher.Tables()
	out := make([]TierInfo, 0, len(tables.Tiers))
	for tier, p := range tables.Tiers {
		info := TierInfo{
			Tier:             tier,
			Label:            p.Label,
			PerSqmEUR:        p.PerSqmEUR,
			MaxSingleItemPct: p.MaxSingleItemFrac,
			PreferredSources: p.PreferredSources,
			StyleKeywords:    p.StyleKeywords,
		}
		if areaSqm > 0 {
			r := p.BudgetRange(areaSqm)
			info.SuggestedBudget = &r
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PerSqmEUR.Min != out[j].PerSqmEUR.Min {
			return out[i].PerSqmEUR.Min < out[j].PerSqmEUR.Min
		}
		return out[i].Tier < out[j].Tier
	})
	return out
}

func validateCommon(budget float64, tier, style string) (matcher.Tier, error) {
	if budget < MinBudgetEUR || budget > MaxBudgetEUR {
		return "", fmt.Errorf("%w: budget must be between €%d and €%d", ErrInvalidRequest, MinBudgetEUR, MaxBudgetEUR)
	}

	t := matcher.TierStandard
	switch matcher.Tier(tier) {
	case "":
	case matcher.TierBudget, matcher.TierStandard, matcher.TierPremium, matcher.TierLuxury:
		t = matcher.Tier(tier)
	default:
		return "", fmt.Errorf("%w: unknown tier %q", ErrInvalidRequest, tier)
	}

	if style != "" && !ValidStyles[style] {
		return "", fmt.Errorf("%w: unknown style %q", ErrInvalidRequest, style)
	}
	return t, nil
}

// prepareRooms copies rooms with ids filled in and rejects duplicate ids.
// With strict set, every room type must have a slot plan.
func (s *DesignService) prepareRooms(rooms []models.RoomLayout, strict bool) ([]models.RoomLayout, error) {
	if len(rooms) == 0 {
		return nil, fmt.Errorf("%w: at least one room is required", ErrInvalidRequest)
	}

	tables := s.matcher.Tables()
	out := make([]models.RoomLayout, len(rooms))
	seen := make(map[string]bool, len(rooms))
	for i, room := range rooms {
		room.ID = matcher.RoomID(room, i)
		if seen[room.ID] {
			return nil, fmt.Errorf("%w: duplicate room id %q", ErrInvalidRequest, room.ID)
		}
		seen[room.ID] = true
		if strict && !tables.KnownRoomType(room.Type) {
			return nil, &matcher.UnknownRoomTypeError{RoomType: room.Type}
		}
		out[i] = room
	}
	return out, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, matcher.ErrUnknownRoomType):
		return "unknown_room_type"
	case errors.Is(err, matcher.ErrCatalogUnavailable):
		return "catalog_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
