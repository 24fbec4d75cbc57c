package service

import (
	"context"
	"fmt"

	"delivery-ledger/internal/models"
	"delivery-ledger/internal/util"

	"go.uber.org/zap"
)

const (
	// WalletPaymentMethod is the payment method settled from a customer wallet
	WalletPaymentMethod = "wallet"
	// SagaConsumer names the saga's processed-events namespace
	SagaConsumer = "saga"
)

// ProcessedEvents remembers which event IDs each consumer has handled.
// store.Archive implements it.
type ProcessedEvents interface {
	IsEventProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, consumer, eventID, eventType string) error
}

// SagaOrchestrator reacts to payment outcomes: failed payments cancel their
// order, refunded wallet payments are credited back to the wallet.
type SagaOrchestrator struct {
	orders    *OrderService
	ledger    *LedgerService
	processed ProcessedEvents
	logger    *zap.Logger
}

// NewSagaOrchestrator creates a new saga orchestrator. processed may be nil,
// in which case redelivered events are handled again.
func NewSagaOrchestrator(
	orders *OrderService,
	ledger *LedgerService,
	processed ProcessedEvents,
) *SagaOrchestrator {
	return &SagaOrchestrator{
		orders:    orders,
		ledger:    ledger,
		processed: processed,
		logger:    util.GetLogger(),
	}
}

// HandlePaymentStatusChanged applies the compensation for a payment event
func (so *SagaOrchestrator) HandlePaymentStatusChanged(ctx context.Context, event *models.PaymentStatusChangedEvent) error {
	ctx, span := util.StartSpan(ctx, "SagaOrchestrator.HandlePaymentStatusChanged")
	defer span.End()

	if so.processed != nil {
		done, err := so.processed.IsEventProcessed(ctx, SagaConsumer, event.EventID)
		if err != nil {
			return fmt.Errorf("failed to check event processed: %w", err)
		}
		if done {
			so.logger.Info("Event already processed", zap.String("event_id", event.EventID))
			return nil
		}
	}

	var err error
	switch event.Status {
	case models.PaymentStatusFailed:
		err = so.cancelUnpaidOrder(ctx, event)
	case models.PaymentStatusRefunded:
		err = so.refundToWallet(ctx, event)
	default:
		return nil
	}
	if err != nil {
		return err
	}

	if so.processed != nil {
		if err := so.processed.MarkEventProcessed(ctx, SagaConsumer, event.EventID, event.EventType); err != nil {
			so.logger.Error("Failed to mark event processed", zap.Error(err))
		}
	}
	return nil
}

func (so *SagaOrchestrator) cancelUnpaidOrder(ctx context.Context, event *models.PaymentStatusChangedEvent) error {
	order, err := so.orders.GetOrder(ctx, event.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}
	if order.Status.Terminal() {
		so.logger.Info("Order already final, skipping cancellation",
			zap.Int64("order_id", order.ID),
			zap.String("status", string(order.Status)))
		return nil
	}

	so.logger.Warn("Payment failed, cancelling order",
		zap.Int64("order_id", order.ID),
		zap.Int64("payment_id", event.PaymentID))

	if _, err := so.orders.UpdateStatus(ctx, order.ID, models.OrderStatusCancelled, nil); err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	return nil
}

func (so *SagaOrchestrator) refundToWallet(ctx context.Context, event *models.PaymentStatusChangedEvent) error {
	payment, err := so.ledger.GetPayment(ctx, event.PaymentID)
	if err != nil {
		return fmt.Errorf("failed to load payment: %w", err)
	}
	if payment.Method != WalletPaymentMethod {
		return nil
	}

	tx, err := so.ledger.RefundPaymentToWallet(ctx, payment.ID)
	if err != nil {
		return fmt.Errorf("failed to credit wallet: %w", err)
	}
	if tx == nil {
		return nil
	}

	so.logger.Info("Wallet payment refunded",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("wallet_tx_id", tx.ID),
		zap.String("amount", tx.Amount.String()))
	return nil
}
