package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"delivery-ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleOrder() models.Order {
	return models.Order{
		CustomerID:    7,
		StoreID:       3,
		Items:         []models.OrderItem{{ProductID: 1, Quantity: 2, Price: money("500")}},
		Subtotal:      money("1000"),
		DeliveryFee:   money("200"),
		Total:         money("1200"),
		PaymentMethod: "card",
	}
}

func TestCreateOrderValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(o *models.Order)
		field  string
	}{
		{"no items", func(o *models.Order) { o.Items = nil }, "items"},
		{"zero quantity", func(o *models.Order) { o.Items[0].Quantity = 0 }, "quantity"},
		{"negative price", func(o *models.Order) { o.Items[0].Price = money("-1") }, "price"},
		{"total mismatch", func(o *models.Order) { o.Total = money("1100") }, "total"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, clk := newTestEnv()
			svc := NewOrderService(st, nil, clk, true)

			o := sampleOrder()
			tt.modify(&o)

			_, err := svc.CreateOrder(context.Background(), o)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, 0, st.Orders.Len())
		})
	}
}

func TestOrderLifecycleScenario(t *testing.T) {
	st, clk := newTestEnv()
	svc := NewOrderService(st, nil, clk, true)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, sampleOrder())
	require.NoError(t, err)
	assert.Equal(t, int64(1), order.ID)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, testNow, order.CreatedAt)

	clk.Advance(5 * time.Minute)
	accepted, err := svc.UpdateStatus(ctx, order.ID, models.OrderStatusAccepted, nil)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.AcceptedAt)
	acceptedAt := *accepted.AcceptedAt

	clk.Advance(40 * time.Minute)
	delivered, err := svc.UpdateStatus(ctx, order.ID, models.OrderStatusDelivered, nil)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, delivered.Status)
	require.NotNil(t, delivered.DeliveredAt)
	assert.Equal(t, clk.Now(), *delivered.DeliveredAt)
	assert.Equal(t, acceptedAt, *delivered.AcceptedAt)
	assert.False(t, delivered.DeliveredAt.Before(*delivered.AcceptedAt))
}

func TestUpdateStatusTimestampSetOnce(t *testing.T) {
	st, clk := newTestEnv()
	svc := NewOrderService(st, nil, clk, true)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, sampleOrder())
	require.NoError(t, err)

	first, err := svc.UpdateStatus(ctx, order.ID, models.OrderStatusPreparing, nil)
	require.NoError(t, err)

	clk.Advance(time.Minute)
	second, err := svc.UpdateStatus(ctx, order.ID, models.OrderStatusPreparing, nil)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPreparing, second.Status)
	assert.Equal(t, *first.PreparingAt, *second.PreparingAt)
	assert.Equal(t, clk.Now(), second.UpdatedAt)
	assert.Nil(t, second.AcceptedAt)
}

func TestUpdateStatusErrors(t *testing.T) {
	st, clk := newTestEnv()
	svc := NewOrderService(st, nil, clk, true)
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, 99, models.OrderStatusAccepted, nil)
	assert.True(t, errors.Is(err, ErrNotFound))

	order, err := svc.CreateOrder(ctx, sampleOrder())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, order.ID, models.OrderStatus("lost"), nil)
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = svc.UpdateStatus(ctx, order.ID, models.OrderStatusAssigned, nil)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestStrictTransitions(t *testing.T) {
	tests := []struct {
		name    string
		path    []models.OrderStatus
		next    models.OrderStatus
		allowed bool
	}{
		{"forward skip", []models.OrderStatus{models.OrderStatusAccepted}, models.OrderStatusReady, true},
		{"cancel in flight", []models.OrderStatus{models.OrderStatusInDelivery}, models.OrderStatusCancelled, true},
		{"backward", []models.OrderStatus{models.OrderStatusReady}, models.OrderStatusAccepted, false},
		{"out of delivered", []models.OrderStatus{models.OrderStatusDelivered}, models.OrderStatusPending, false},
		{"out of cancelled", []models.OrderStatus{models.OrderStatusCancelled}, models.OrderStatusDelivered, false},
		{"repeat terminal", []models.OrderStatus{models.OrderStatusDelivered}, models.OrderStatusDelivered, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, clk := newTestEnv()
			svc := NewOrderService(st, nil, clk, true)
			ctx := context.Background()

			order, err := svc.CreateOrder(ctx, sampleOrder())
			require.NoError(t, err)
			for _, s := range tt.path {
				_, err := svc.UpdateStatus(ctx, order.ID, s, nil)
				require.NoError(t, err)
			}

			before, err := svc.GetOrder(ctx, order.ID)
			require.NoError(t, err)

			_, err = svc.UpdateStatus(ctx, order.ID, tt.next, nil)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}

			assert.True(t, errors.Is(err, ErrInvalidTransition))
			after, getErr := svc.GetOrder(ctx, order.ID)
			require.NoError(t, getErr)
			assert.Equal(t, before.Status, after.Status)
		})
	}
}

func TestPermissiveTransitions(t *testing.T) {
	st, clk := newTestEnv()
	svc := NewOrderService(st, nil, clk, false)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, sampleOrder())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, order.ID, models.OrderStatusDelivered, nil)
	require.NoError(t, err)

	reopened, err := svc.UpdateStatus(ctx, order.ID, models.OrderStatusPending, nil)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, reopened.Status)
	assert.NotNil(t, reopened.DeliveredAt)
}

func TestAssignDriver(t *testing.T) {
	st, clk := newTestEnv()
	svc := NewOrderService(st, nil, clk, true)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, sampleOrder())
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, order.ID, models.OrderStatusReady, nil)
	require.NoError(t, err)

	assert.Len(t, svc.AvailableForPickup(ctx), 1)

	assigned, err := svc.AssignDriver(ctx, order.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusAssigned, assigned.Status)
	require.NotNil(t, assigned.DriverID)
	assert.Equal(t, int64(42), *assigned.DriverID)
	assert.NotNil(t, assigned.AssignedAt)

	assert.Empty(t, svc.AvailableForPickup(ctx))
	assert.Len(t, svc.OrdersByDriver(ctx, 42), 1)
}

func TestCreateOrderIdempotencyKey(t *testing.T) {
	st, clk := newTestEnv()
	svc := NewOrderService(st, nil, clk, true)
	ctx := context.Background()

	o := sampleOrder()
	o.IdempotencyKey = "checkout-123"

	first, err := svc.CreateOrder(ctx, o)
	require.NoError(t, err)
	second, err := svc.CreateOrder(ctx, o)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, st.Orders.Len())
}

func TestOrderEventsPublished(t *testing.T) {
	st, clk := newTestEnv()
	pub := new(mockPublisher)
	pub.On("PublishOrderCreated", mock.Anything, mock.AnythingOfType("*models.OrderCreatedEvent")).
		Return(errors.New("broker unavailable"))
	pub.On("PublishOrderStatusChanged", mock.Anything, mock.MatchedBy(func(e *models.OrderStatusChangedEvent) bool {
		return e.From == models.OrderStatusPending && e.To == models.OrderStatusAccepted
	})).Return(nil)

	svc := NewOrderService(st, pub, clk, true)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, sampleOrder())
	require.NoError(t, err, "publish failures must not fail the order")

	_, err = svc.UpdateStatus(ctx, order.ID, models.OrderStatusAccepted, nil)
	require.NoError(t, err)

	pub.AssertExpectations(t)
}

func TestOrderQueries(t *testing.T) {
	st, clk := newTestEnv()
	svc := NewOrderService(st, nil, clk, true)
	ctx := context.Background()

	scheduled := time.Date(2024, 3, 20, 18, 0, 0, 0, time.UTC)

	a := sampleOrder()
	a.ScheduledDate = &scheduled
	b := sampleOrder()
	b.CustomerID = 8
	b.StoreID = 4
	b.PaymentMethod = "wallet"

	first, err := svc.CreateOrder(ctx, a)
	require.NoError(t, err)
	second, err := svc.CreateOrder(ctx, b)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, second.ID, models.OrderStatusDelivered, nil)
	require.NoError(t, err)

	assert.Len(t, svc.OrdersByCustomer(ctx, 7), 1)
	assert.Len(t, svc.OrdersByStore(ctx, 4), 1)
	assert.Len(t, svc.OrdersByPaymentMethod(ctx, "wallet"), 1)

	pending := svc.PendingOrders(ctx)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID, pending[0].ID)

	day := svc.ScheduledFor(ctx, time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC))
	require.Len(t, day, 1)
	assert.Equal(t, first.ID, day[0].ID)
	assert.Empty(t, svc.ScheduledFor(ctx, time.Date(2024, 3, 21, 0, 0, 0, 0, time.UTC)))

	assert.True(t, money("1200").Equal(svc.OrderRevenue(ctx, 4)))
	assert.True(t, svc.OrderRevenue(ctx, 3).IsZero())
}
