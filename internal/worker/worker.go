package worker

import (
	"context"
	"fmt"

	"delivery-ledger/internal/broker"
	"delivery-ledger/internal/models"
	"delivery-ledger/internal/service"
	"delivery-ledger/internal/util"

	"go.uber.org/zap"
)

// EventArchive stores consumed events durably. store.Archive implements it.
type EventArchive interface {
	RecordOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	RecordOrderStatus(ctx context.Context, event *models.OrderStatusChangedEvent) error
	RecordSale(ctx context.Context, event *models.SaleRecordedEvent) error
	RecordLowStock(ctx context.Context, event *models.LowStockEvent) error
	RecordPaymentStatus(ctx context.Context, event *models.PaymentStatusChangedEvent) error
	service.ProcessedEvents
}

// ArchiveConsumer names the archive worker's processed-events namespace
const ArchiveConsumer = "archive"

// Worker consumes the event topic with its own handler set
type Worker struct {
	name         string
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// Start consumes until ctx is cancelled
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker", zap.String("worker", w.name))
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop closes the worker's consumer
func (w *Worker) Stop() error {
	w.logger.Info("Stopping worker", zap.String("worker", w.name))
	return w.consumer.Close()
}

func newWorker(name string, consumer *broker.Consumer, handler *broker.EventHandler) *Worker {
	return &Worker{
		name:         name,
		consumer:     consumer,
		eventHandler: handler,
		logger:       util.GetLogger(),
	}
}

// NewArchiveWorker copies every ledger event into the archive
func NewArchiveWorker(consumer *broker.Consumer, archive EventArchive) *Worker {
	return newWorker("archive", consumer, ArchiveHandler(archive))
}

// ArchiveHandler builds the handler set of the archive worker
func ArchiveHandler(archive EventArchive) *broker.EventHandler {
	h := broker.NewEventHandler()
	h.OnOrderCreated(func(ctx context.Context, e *models.OrderCreatedEvent) error {
		return archiveOnce(ctx, archive, e.BaseEvent, func() error { return archive.RecordOrderCreated(ctx, e) })
	})
	h.OnOrderStatusChanged(func(ctx context.Context, e *models.OrderStatusChangedEvent) error {
		return archiveOnce(ctx, archive, e.BaseEvent, func() error { return archive.RecordOrderStatus(ctx, e) })
	})
	h.OnSaleRecorded(func(ctx context.Context, e *models.SaleRecordedEvent) error {
		return archiveOnce(ctx, archive, e.BaseEvent, func() error { return archive.RecordSale(ctx, e) })
	})
	h.OnLowStock(func(ctx context.Context, e *models.LowStockEvent) error {
		return archiveOnce(ctx, archive, e.BaseEvent, func() error { return archive.RecordLowStock(ctx, e) })
	})
	h.OnPaymentStatusChanged(func(ctx context.Context, e *models.PaymentStatusChangedEvent) error {
		return archiveOnce(ctx, archive, e.BaseEvent, func() error { return archive.RecordPaymentStatus(ctx, e) })
	})
	return h
}

func archiveOnce(ctx context.Context, archive EventArchive, event models.BaseEvent, record func() error) error {
	done, err := archive.IsEventProcessed(ctx, ArchiveConsumer, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if done {
		return nil
	}
	if err := record(); err != nil {
		return fmt.Errorf("failed to archive %s: %w", event.EventType, err)
	}
	return archive.MarkEventProcessed(ctx, ArchiveConsumer, event.EventID, event.EventType)
}

// Notifier creates in-app notifications. service.MessagingService implements it.
type Notifier interface {
	CreateNotification(ctx context.Context, input models.Notification) (*models.Notification, error)
}

var statusMessages = map[models.OrderStatus]struct{ title, message string }{
	models.OrderStatusAccepted:   {"Order accepted", "The store accepted order #%d."},
	models.OrderStatusPreparing:  {"Order in preparation", "Order #%d is being prepared."},
	models.OrderStatusReady:      {"Order ready", "Order #%d is ready for pickup."},
	models.OrderStatusAssigned:   {"Driver assigned", "A driver is heading to pick up order #%d."},
	models.OrderStatusInDelivery: {"On the way", "Order #%d is on its way."},
	models.OrderStatusDelivered:  {"Order delivered", "Order #%d was delivered. Enjoy!"},
	models.OrderStatusCancelled:  {"Order cancelled", "Order #%d was cancelled."},
}

// NewNotificationWorker notifies customers about their orders' progress
func NewNotificationWorker(consumer *broker.Consumer, notifier Notifier) *Worker {
	return newWorker("notifications", consumer, NotificationHandler(notifier))
}

// NotificationHandler builds the handler set of the notification worker
func NotificationHandler(notifier Notifier) *broker.EventHandler {
	h := broker.NewEventHandler()
	h.OnOrderStatusChanged(func(ctx context.Context, e *models.OrderStatusChangedEvent) error {
		if e.From == e.To {
			return nil
		}
		text, ok := statusMessages[e.To]
		if !ok {
			return nil
		}
		_, err := notifier.CreateNotification(ctx, models.Notification{
			UserID:  e.CustomerID,
			Type:    "order_status",
			Title:   text.title,
			Message: fmt.Sprintf(text.message, e.OrderID),
		})
		return err
	})
	return h
}

// NewSagaWorker runs payment compensations
func NewSagaWorker(consumer *broker.Consumer, saga *service.SagaOrchestrator) *Worker {
	return newWorker("saga", consumer, SagaHandler(saga))
}

// SagaHandler builds the handler set of the saga worker
func SagaHandler(saga *service.SagaOrchestrator) *broker.EventHandler {
	h := broker.NewEventHandler()
	h.OnPaymentStatusChanged(saga.HandlePaymentStatusChanged)
	return h
}
