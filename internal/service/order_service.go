package service

import (
	"context"
	"errors"
	"time"

	"delivery-ledger/internal/clock"
	"delivery-ledger/internal/models"
	"delivery-ledger/internal/store"
	"delivery-ledger/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// OrderService owns the order lifecycle
type OrderService struct {
	store     *store.Store
	publisher EventPublisher
	clock     clock.Clock
	strict    bool
	logger    *zap.Logger
}

// NewOrderService creates a new order service. With strict set, transitions
// out of a terminal status and backward moves along the delivery chain are
// rejected; otherwise any requested status is applied.
func NewOrderService(
	store *store.Store,
	publisher EventPublisher,
	clk clock.Clock,
	strict bool,
) *OrderService {
	return &OrderService{
		store:     store,
		publisher: publisherOrNoop(publisher),
		clock:     clk,
		strict:    strict,
		logger:    util.GetLogger(),
	}
}

// CreateOrder validates and inserts an order at pending. A repeated
// idempotency key returns the order created first.
func (s *OrderService) CreateOrder(ctx context.Context, input models.Order) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if err := validateOrder(input); err != nil {
		return nil, err
	}

	if input.IdempotencyKey != "" {
		unlock := s.store.Lock("order_idempotency:" + input.IdempotencyKey)
		defer unlock()

		existing, ok := s.store.Orders.Find(func(o models.Order) bool {
			return o.IdempotencyKey == input.IdempotencyKey
		})
		if ok {
			s.logger.Info("Duplicate order request detected",
				zap.String("idempotency_key", input.IdempotencyKey),
				zap.Int64("order_id", existing.ID))
			return &existing, nil
		}
	}

	now := s.clock.Now()
	items := make([]models.OrderItem, len(input.Items))
	copy(items, input.Items)

	order := s.store.Orders.Insert(func(id int64) models.Order {
		o := models.Order{
			ID:             id,
			CustomerID:     input.CustomerID,
			StoreID:        input.StoreID,
			Items:          items,
			Subtotal:       input.Subtotal,
			DeliveryFee:    input.DeliveryFee,
			Total:          input.Total,
			Status:         models.OrderStatusPending,
			PaymentMethod:  input.PaymentMethod,
			IdempotencyKey: input.IdempotencyKey,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if input.ScheduledDate != nil {
			d := *input.ScheduledDate
			o.ScheduledDate = &d
		}
		return o
	})

	util.OrdersCreatedTotal.Inc()
	span.SetAttributes(attribute.Int64("order_id", order.ID))
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("customer_id", order.CustomerID),
		zap.String("total", order.Total.String()))

	event := &models.OrderCreatedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeOrderCreated, now),
		OrderID:       order.ID,
		CustomerID:    order.CustomerID,
		StoreID:       order.StoreID,
		Total:         order.Total,
		PaymentMethod: order.PaymentMethod,
		Items:         order.Items,
	}
	if err := s.publisher.PublishOrderCreated(ctx, event); err != nil {
		util.EventsPublishFailed.WithLabelValues(event.EventType).Inc()
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}

	return &order, nil
}

func validateOrder(o models.Order) error {
	if len(o.Items) == 0 {
		return invalid("items", "order must contain at least one item")
	}
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			return invalid("quantity", "must be positive")
		}
		if item.Price.IsNegative() {
			return invalid("price", "must not be negative")
		}
	}
	if !o.Total.Equal(o.Subtotal.Add(o.DeliveryFee)) {
		return invalid("total", "must equal subtotal plus delivery fee")
	}
	return nil
}

// GetOrder retrieves an order by ID
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	order, ok := s.store.Orders.Get(orderID)
	if !ok {
		return nil, notFound("order", orderID)
	}
	return &order, nil
}

// UpdateStatus moves an order to status. The timestamp belonging to status is
// set only on first entry. Assigning requires a driver.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, status models.OrderStatus, driverID *int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus",
		attribute.Int64("order_id", orderID),
		attribute.String("status", string(status)))
	defer span.End()

	if !status.Valid() {
		return nil, invalid("status", "unknown order status "+string(status))
	}
	if status == models.OrderStatusAssigned && driverID == nil {
		return nil, invalid("driver_id", "required when assigning an order")
	}

	var from models.OrderStatus
	now := s.clock.Now()

	order, err := s.store.Orders.Update(orderID, func(o *models.Order) error {
		if s.strict {
			if err := checkTransition(o.ID, o.Status, status); err != nil {
				return err
			}
		}

		from = o.Status
		o.Status = status
		o.UpdatedAt = now
		if status == models.OrderStatusAssigned {
			d := *driverID
			o.DriverID = &d
		}
		stampStatus(o, status, now)
		return nil
	})
	if errors.Is(err, store.ErrNoRecord) {
		return nil, notFound("order", orderID)
	}
	if err != nil {
		var te *TransitionError
		if errors.As(err, &te) {
			util.OrderTransitionsRejected.WithLabelValues(string(te.From), string(te.To)).Inc()
			s.logger.Warn("Order transition rejected",
				zap.Int64("order_id", orderID),
				zap.String("from", string(te.From)),
				zap.String("to", string(te.To)))
		}
		return nil, err
	}

	util.OrderTransitionsTotal.WithLabelValues(string(status)).Inc()
	s.logger.Info("Order status updated",
		zap.Int64("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(status)))

	event := &models.OrderStatusChangedEvent{
		BaseEvent:  newBaseEvent(models.EventTypeOrderStatusChanged, now),
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		StoreID:    order.StoreID,
		From:       from,
		To:         status,
		DriverID:   order.DriverID,
	}
	if err := s.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
		util.EventsPublishFailed.WithLabelValues(event.EventType).Inc()
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
	}

	return &order, nil
}

// AssignDriver moves an order straight to assigned with the given driver
func (s *OrderService) AssignDriver(ctx context.Context, orderID, driverID int64) (*models.Order, error) {
	return s.UpdateStatus(ctx, orderID, models.OrderStatusAssigned, &driverID)
}

// checkTransition enforces the strict lifecycle: terminal statuses are final,
// cancellation is allowed from anywhere else, and the chain only moves forward.
// Re-entering the current status is always allowed.
func checkTransition(orderID int64, from, to models.OrderStatus) error {
	if from == to {
		return nil
	}
	if from.Terminal() {
		return &TransitionError{OrderID: orderID, From: from, To: to}
	}
	if to == models.OrderStatusCancelled {
		return nil
	}
	if to.Rank() < from.Rank() {
		return &TransitionError{OrderID: orderID, From: from, To: to}
	}
	return nil
}

func stampStatus(o *models.Order, status models.OrderStatus, now time.Time) {
	var field **time.Time
	switch status {
	case models.OrderStatusAccepted:
		field = &o.AcceptedAt
	case models.OrderStatusPreparing:
		field = &o.PreparingAt
	case models.OrderStatusReady:
		field = &o.ReadyAt
	case models.OrderStatusAssigned:
		field = &o.AssignedAt
	case models.OrderStatusInDelivery:
		field = &o.InDeliveryAt
	case models.OrderStatusDelivered:
		field = &o.DeliveredAt
	case models.OrderStatusCancelled:
		field = &o.CancelledAt
	default:
		return
	}
	if *field == nil {
		t := now
		*field = &t
	}
}

// OrdersByCustomer lists a customer's orders
func (s *OrderService) OrdersByCustomer(ctx context.Context, customerID int64) []models.Order {
	return s.store.Orders.List(func(o models.Order) bool { return o.CustomerID == customerID })
}

// OrdersByStore lists a store's orders
func (s *OrderService) OrdersByStore(ctx context.Context, storeID int64) []models.Order {
	return s.store.Orders.List(func(o models.Order) bool { return o.StoreID == storeID })
}

// OrdersByDriver lists orders assigned to a driver
func (s *OrderService) OrdersByDriver(ctx context.Context, driverID int64) []models.Order {
	return s.store.Orders.List(func(o models.Order) bool {
		return o.DriverID != nil && *o.DriverID == driverID
	})
}

// PendingOrders lists orders waiting for the vendor
func (s *OrderService) PendingOrders(ctx context.Context) []models.Order {
	return s.store.Orders.List(func(o models.Order) bool { return o.Status == models.OrderStatusPending })
}

// AvailableForPickup lists ready orders without a driver
func (s *OrderService) AvailableForPickup(ctx context.Context) []models.Order {
	return s.store.Orders.List(func(o models.Order) bool {
		return o.Status == models.OrderStatusReady && o.DriverID == nil
	})
}

// ScheduledFor lists orders scheduled on the calendar day of date, in date's location
func (s *OrderService) ScheduledFor(ctx context.Context, date time.Time) []models.Order {
	y, m, d := date.Date()
	return s.store.Orders.List(func(o models.Order) bool {
		if o.ScheduledDate == nil {
			return false
		}
		oy, om, od := o.ScheduledDate.In(date.Location()).Date()
		return oy == y && om == m && od == d
	})
}

// OrdersByPaymentMethod lists orders paid with method
func (s *OrderService) OrdersByPaymentMethod(ctx context.Context, method string) []models.Order {
	return s.store.Orders.List(func(o models.Order) bool { return o.PaymentMethod == method })
}

// OrderRevenue sums the totals of delivered orders of a store
func (s *OrderService) OrderRevenue(ctx context.Context, storeID int64) decimal.Decimal {
	total := decimal.Zero
	for _, o := range s.OrdersByStore(ctx, storeID) {
		if o.Status == models.OrderStatusDelivered {
			total = total.Add(o.Total)
		}
	}
	return total
}
