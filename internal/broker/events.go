package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"furnish-service/internal/models"
	"furnish-service/internal/util"
)

// Publisher writes one keyed event to the bus
type Publisher interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// NewBaseEvent stamps a fresh event id and time
func NewBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

func designKey(designID string) string {
	return fmt.Sprintf("design-%s", designID)
}

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer Publisher
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer Publisher) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishDesignRequested publishes DesignRequested event
func (ep *EventPublisher) PublishDesignRequested(ctx context.Context, event *models.DesignRequestedEvent) error {
	return ep.producer.PublishEvent(ctx, designKey(event.DesignID), event)
}

// PublishDesignMatched publishes DesignMatched event
func (ep *EventPublisher) PublishDesignMatched(ctx context.Context, event *models.DesignMatchedEvent) error {
	return ep.producer.PublishEvent(ctx, designKey(event.DesignID), event)
}

// PublishDesignFailed publishes DesignFailed event
func (ep *EventPublisher) PublishDesignFailed(ctx context.Context, event *models.DesignFailedEvent) error {
	return ep.producer.PublishEvent(ctx, designKey(event.DesignID), event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onDesignRequested func(context.Context, *models.DesignRequestedEvent) error
	onDesignMatched   func(context.Context, *models.DesignMatchedEvent) error
	onDesignFailed    func(context.Context, *models.DesignFailedEvent) error
	logger            *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnDesignRequested registers a handler for DesignRequested events
func (eh *EventHandler) OnDesignRequested(handler func(context.Context, *models.DesignRequestedEvent) error) {
	eh.onDesignRequested = handler
}

// OnDesignMatched registers a handler for DesignMatched events
func (eh *EventHandler) OnDesignMatched(handler func(context.Context, *models.DesignMatchedEvent) error) {
	eh.onDesignMatched = handler
}

// OnDesignFailed registers a handler for DesignFailed events
func (eh *EventHandler) OnDesignFailed(handler func(context.Context, *models.DesignFailedEvent) error) {
	eh.onDesignFailed = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID),
	)

	switch baseEvent.EventType {
	case models.EventTypeDesignRequested:
		if eh.onDesignRequested != nil {
			var event models.DesignRequestedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal DesignRequested event: %w", err)
			}
			return eh.onDesignRequested(ctx, &event)
		}

	case models.EventTypeDesignMatched:
		if eh.onDesignMatched != nil {
			var event models.DesignMatchedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal DesignMatched event: %w", err)
			}
			return eh.onDesignMatched(ctx, &event)
		}

	case models.EventTypeDesignFailed:
		if eh.onDesignFailed != nil {
			var event models.DesignFailedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal DesignFailed event: %w", err)
			}
			return eh.onDesignFailed(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}
