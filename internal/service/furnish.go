package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"furnish-service/internal/broker"
	"furnish-service/internal/matcher"
	"furnish-service/internal/models"
	"furnish-service/internal/store"
	"furnish-service/internal/util"
)

// FurnishRequest represents a request to furnish several rooms from one budget
type FurnishRequest struct {
	Rooms          []models.RoomLayout `json:"rooms" binding:"required,min=1"`
	Budget         float64             `json:"budget" binding:"required"`
	Tier           string              `json:"tier"`
	Style          string              `json:"style,omitempty"`
	IdempotencyKey string              `json:"idempotency_key,omitempty"`
}

// RoomOutcome is one room of a furnished design
type RoomOutcome struct {
	RoomID string               `json:"room_id"`
	Budget decimal.Decimal      `json:"budget"`
	Match  *matcher.MatchResult `json:"match"`
}

// DesignResult aggregates the room matches of a design
type DesignResult struct {
	Tier            matcher.Tier           `json:"tier"`
	Style           string                 `json:"style,omitempty"`
	BudgetTotal     decimal.Decimal        `json:"budget_total"`
	BudgetSpent     decimal.Decimal        `json:"budget_spent"`
	BudgetRemaining decimal.Decimal        `json:"budget_remaining"`
	ProductCount    int                    `json:"product_count"`
	UnmetSlots      []models.UnmetSlotData `json:"unmet_slots"`
	Rooms           []RoomOutcome          `json:"rooms"`
}

// DesignView is a stored design with its decoded result
type DesignView struct {
	*models.Design
	Result *DesignResult `json:"result,omitempty"`
}

// FurnishRooms distributes the budget, matches every room and stores the design
func (s *DesignService) FurnishRooms(ctx context.Context, req *FurnishRequest) (*DesignView, error) {
	ctx, span := util.StartSpan(ctx, "DesignService.FurnishRooms")
	defer span.End()

	tier, rooms, err := s.validateFurnish(req)
	if err != nil {
		util.DesignsFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	if req.IdempotencyKey != "" {
		existing, err := s.store.GetDesignByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
		if existing != nil {
			s.logger.Info("Duplicate design request detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.String("design_id", existing.ID))
			return decodeDesign(existing)
		}
	}

	util.DesignsRequestedTotal.Inc()
	designID := uuid.New().String()
	span.SetAttributes(attribute.String("design_id", designID), attribute.Int("rooms", len(rooms)))

	total := decimal.NewFromFloat(req.Budget).Round(2)
	result, err := s.furnish(ctx, rooms, total, tier, req.Style)
	if err != nil {
		util.DesignsFailedTotal.WithLabelValues(failureReason(err)).Inc()
		util.RecordError(span, err)
		return nil, err
	}

	design, err := newDesign(designID, models.DesignStatusMatched, req, tier, rooms)
	if err != nil {
		return nil, err
	}
	if design.Result, err = encodeResult(result); err != nil {
		return nil, err
	}
	if err := s.store.CreateDesign(ctx, design); err != nil {
		util.DesignsFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create design: %w", err)
	}

	util.DesignsMatchedTotal.Inc()
	s.publishMatched(ctx, designID, result)
	s.logger.Info("Design furnished",
		zap.String("design_id", designID),
		zap.Int("rooms", len(rooms)),
		zap.String("spent", result.BudgetSpent.StringFixed(2)))

	return &DesignView{Design: design, Result: result}, nil
}

// RequestDesign stores a pending design and hands it to the worker through the bus
func (s *DesignService) RequestDesign(ctx context.Context, req *FurnishRequest) (*models.Design, error) {
	ctx, span := util.StartSpan(ctx, "DesignService.RequestDesign")
	defer span.End()

	tier, rooms, err := s.validateFurnish(req)
	if err != nil {
		util.DesignsFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}
	designID := uuid.New().String()

	existingID, claimed, err := s.locker.ClaimIdempotencyKey(ctx, req.IdempotencyKey, designID, s.settings.IdempotencyTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: idempotency claim: %v", ErrUnavailable, err)
	}
	if !claimed {
		s.logger.Info("Duplicate async design request detected",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.String("design_id", existingID))
		existing, err := s.store.GetDesignByID(ctx, existingID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrInFlight
			}
			return nil, err
		}
		return existing, nil
	}

	design, err := newDesign(designID, models.DesignStatusPending, req, tier, rooms)
	if err != nil {
		s.releaseClaim(ctx, req.IdempotencyKey)
		return nil, err
	}
	if err := s.store.CreateDesign(ctx, design); err != nil {
		s.releaseClaim(ctx, req.IdempotencyKey)
		util.DesignsFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create design: %w", err)
	}

	event := &models.DesignRequestedEvent{
		BaseEvent: broker.NewBaseEvent(models.EventTypeDesignRequested),
		DesignID:  designID,
		Rooms:     rooms,
		Budget:    req.Budget,
		Tier:      string(tier),
		Style:     req.Style,
	}
	if err := s.events.PublishDesignRequested(ctx, event); err != nil {
		s.logger.Error("Failed to publish DesignRequested event", zap.String("design_id", designID), zap.Error(err))
		if uerr := s.store.UpdateDesignOutcome(ctx, designID, models.DesignStatusFailed, "", err.Error()); uerr != nil {
			s.logger.Error("Failed to mark design failed", zap.String("design_id", designID), zap.Error(uerr))
		}
		s.releaseClaim(ctx, req.IdempotencyKey)
		util.DesignsFailedTotal.WithLabelValues("publish_failed").Inc()
		return nil, fmt.Errorf("%w: publish design request: %v", ErrUnavailable, err)
	}

	util.DesignsRequestedTotal.Inc()
	s.logger.Info("Design requested", zap.String("design_id", designID), zap.Int("rooms", len(rooms)))
	return design, nil
}

// HandleDesignRequested furnishes a design picked up from the bus
func (s *DesignService) HandleDesignRequested(ctx context.Context, event *models.DesignRequestedEvent) error {
	ctx, span := util.StartSpan(ctx, "DesignService.HandleDesignRequested", attribute.String("design_id", event.DesignID))
	defer span.End()

	processed, err := s.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		s.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	lockKey := "design:" + event.DesignID
	token, ok, err := s.locker.AcquireLock(ctx, lockKey, s.settings.LockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire design lock: %w", err)
	}
	if !ok {
		s.logger.Info("Design is being processed elsewhere", zap.String("design_id", event.DesignID))
		return nil
	}
	defer func() {
		if err := s.locker.ReleaseLock(context.Background(), lockKey, token); err != nil {
			s.logger.Error("Failed to release design lock", zap.String("design_id", event.DesignID), zap.Error(err))
		}
	}()

	design, err := s.store.GetDesignByID(ctx, event.DesignID)
	if err != nil {
		return fmt.Errorf("failed to load design: %w", err)
	}
	if design.Status != models.DesignStatusPending {
		s.logger.Info("Design already settled",
			zap.String("design_id", design.ID),
			zap.String("status", design.Status))
		return s.markProcessed(ctx, event)
	}

	rooms, err := s.prepareRooms(event.Rooms, true)
	var result *DesignResult
	if err == nil {
		result, err = s.furnish(ctx, rooms, decimal.NewFromFloat(event.Budget).Round(2), matcher.Tier(event.Tier), event.Style)
	}

	if err != nil {
		util.DesignsFailedTotal.WithLabelValues(failureReason(err)).Inc()
		util.RecordError(span, err)
		s.logger.Warn("Design failed", zap.String("design_id", design.ID), zap.Error(err))

		if uerr := s.store.UpdateDesignOutcome(ctx, design.ID, models.DesignStatusFailed, "", err.Error()); uerr != nil {
			return fmt.Errorf("failed to store design failure: %w", uerr)
		}
		failed := &models.DesignFailedEvent{
			BaseEvent: broker.NewBaseEvent(models.EventTypeDesignFailed),
			DesignID:  design.ID,
			Reason:    err.Error(),
			Retryable: IsRetryable(err),
		}
		if perr := s.events.PublishDesignFailed(ctx, failed); perr != nil {
			s.logger.Error("Failed to publish DesignFailed event", zap.Error(perr))
		}
		return s.markProcessed(ctx, event)
	}

	encoded, err := encodeResult(result)
	if err != nil {
		return err
	}
	if err := s.store.UpdateDesignOutcome(ctx, design.ID, models.DesignStatusMatched, encoded, ""); err != nil {
		return fmt.Errorf("failed to store design result: %w", err)
	}

	util.DesignsMatchedTotal.Inc()
	s.publishMatched(ctx, design.ID, result)
	s.logger.Info("Design furnished",
		zap.String("design_id", design.ID),
		zap.Int("rooms", len(rooms)),
		zap.String("spent", result.BudgetSpent.StringFixed(2)))

	return s.markProcessed(ctx, event)
}

// GetDesign retrieves a design with its decoded result
func (s *DesignService) GetDesign(ctx context.Context, id string) (*DesignView, error) {
	ctx, span := util.StartSpan(ctx, "DesignService.GetDesign")
	defer span.End()

	design, err := s.store.GetDesignByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return decodeDesign(design)
}

// furnish matches every room concurrently against its share of total. Results keep room order.
func (s *DesignService) furnish(ctx context.Context, rooms []models.RoomLayout, total decimal.Decimal, tier matcher.Tier, style string) (*DesignResult, error) {
	if s.settings.FurnishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.settings.FurnishTimeout)
		defer cancel()
	}

	shares := s.matcher.Tables().Distribute(rooms, total)

	matches := make([]*matcher.MatchResult, len(rooms))
	errs := make([]error, len(rooms))
	var wg sync.WaitGroup
	for i := range rooms {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			budget, _ := shares[rooms[i].ID].Float64()
			matches[i], errs[i] = s.matchRoom(ctx, rooms[i], budget, tier, style)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("room %s: %w", rooms[i].ID, err)
		}
	}

	result := &DesignResult{
		Tier:        tier,
		Style:       style,
		BudgetTotal: total,
		BudgetSpent: decimal.Zero,
		UnmetSlots:  []models.UnmetSlotData{},
		Rooms:       make([]RoomOutcome, len(rooms)),
	}
	for i, m := range matches {
		result.Tier = m.Tier
		result.BudgetSpent = result.BudgetSpent.Add(m.BudgetSpent)
		result.ProductCount += m.ProductCount
		for _, slot := range m.UnmetRequiredSlots {
			result.UnmetSlots = append(result.UnmetSlots, models.UnmetSlotData{RoomID: rooms[i].ID, Slot: slot})
		}
		result.Rooms[i] = RoomOutcome{RoomID: rooms[i].ID, Budget: shares[rooms[i].ID], Match: m}
	}
	result.BudgetRemaining = total.Sub(result.BudgetSpent)
	return result, nil
}

func (s *DesignService) validateFurnish(req *FurnishRequest) (matcher.Tier, []models.RoomLayout, error) {
	tier, err := validateCommon(req.Budget, req.Tier, req.Style)
	if err != nil {
		return "", nil, err
	}
	rooms, err := s.prepareRooms(req.Rooms, true)
	if err != nil {
		return "", nil, err
	}
	return tier, rooms, nil
}

func (s *DesignService) publishMatched(ctx context.Context, designID string, result *DesignResult) {
	event := &models.DesignMatchedEvent{
		BaseEvent:       broker.NewBaseEvent(models.EventTypeDesignMatched),
		DesignID:        designID,
		BudgetTotal:     eur(result.BudgetTotal),
		BudgetSpent:     eur(result.BudgetSpent),
		ProductCount:    result.ProductCount,
		UnmetSlots:      result.UnmetSlots,
		RoomAllocations: make([]models.RoomBudgetData, 0, len(result.Rooms)),
	}
	for _, r := range result.Rooms {
		event.RoomAllocations = append(event.RoomAllocations, models.RoomBudgetData{
			RoomID: r.RoomID,
			Budget: eur(r.Budget),
			Spent:  eur(r.Match.BudgetSpent),
		})
	}
	if err := s.events.PublishDesignMatched(ctx, event); err != nil {
		s.logger.Error("Failed to publish DesignMatched event", zap.String("design_id", designID), zap.Error(err))
	}
}

func (s *DesignService) markProcessed(ctx context.Context, event *models.DesignRequestedEvent) error {
	if err := s.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		s.logger.Error("Failed to mark event processed", zap.String("event_id", event.EventID), zap.Error(err))
	}
	return nil
}

func (s *DesignService) releaseClaim(ctx context.Context, key string) {
	if err := s.locker.ReleaseIdempotencyKey(ctx, key); err != nil {
		s.logger.Error("Failed to release idempotency key", zap.String("idempotency_key", key), zap.Error(err))
	}
}

func newDesign(id, status string, req *FurnishRequest, tier matcher.Tier, rooms []models.RoomLayout) (*models.Design, error) {
	request, err := json.Marshal(struct {
		Rooms  []models.RoomLayout `json:"rooms"`
		Budget float64             `json:"budget"`
		Tier   matcher.Tier        `json:"tier"`
		Style  string              `json:"style,omitempty"`
	}{rooms, req.Budget, tier, req.Style})
	if err != nil {
		return nil, fmt.Errorf("failed to encode design request: %w", err)
	}
	return &models.Design{
		ID:             id,
		Status:         status,
		Tier:           string(tier),
		Style:          req.Style,
		BudgetTotal:    req.Budget,
		Request:        string(request),
		IdempotencyKey: req.IdempotencyKey,
	}, nil
}

func encodeResult(result *DesignResult) (string, error) {
	b, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to encode design result: %w", err)
	}
	return string(b), nil
}

func decodeDesign(design *models.Design) (*DesignView, error) {
	view := &DesignView{Design: design}
	if design.Result == "" {
		return view, nil
	}
	var result DesignResult
	if err := json.Unmarshal([]byte(design.Result), &result); err != nil {
		return nil, fmt.Errorf("failed to decode design result: %w", err)
	}
	view.Result = &result
	return view, nil
}

func eur(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
