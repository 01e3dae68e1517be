package worker

import (
	"context"

	"go.uber.org/zap"

	"furnish-service/internal/broker"
	"furnish-service/internal/models"
	"furnish-service/internal/util"
)

// MessageSource delivers bus messages to a handler until ctx is done
type MessageSource interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// DesignRequestHandler furnishes a requested design
type DesignRequestHandler interface {
	HandleDesignRequested(ctx context.Context, event *models.DesignRequestedEvent) error
}

// DesignWorker handles background furnishing of async design requests
type DesignWorker struct {
	consumer     MessageSource
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewDesignWorker creates a new design worker
func NewDesignWorker(consumer MessageSource, designs DesignRequestHandler) *DesignWorker {
	logger := util.GetLogger()
	eventHandler := broker.NewEventHandler()

	eventHandler.OnDesignRequested(designs.HandleDesignRequested)
	eventHandler.OnDesignMatched(func(ctx context.Context, event *models.DesignMatchedEvent) error {
		logger.Debug("Design matched",
			zap.String("design_id", event.DesignID),
			zap.Int("products", event.ProductCount),
			zap.Int("unmet_slots", len(event.UnmetSlots)))
		return nil
	})
	eventHandler.OnDesignFailed(func(ctx context.Context, event *models.DesignFailedEvent) error {
		logger.Debug("Design failed",
			zap.String("design_id", event.DesignID),
			zap.String("reason", event.Reason),
			zap.Bool("retryable", event.Retryable))
		return nil
	})

	return &DesignWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       logger,
	}
}

// Start starts the worker
func (w *DesignWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting design worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *DesignWorker) Stop() error {
	w.logger.Info("Stopping design worker...")
	return w.consumer.Close()
}
