package service

import (
	"context"
	"testing"
	"time"

	"delivery-ledger/internal/clock"
	"delivery-ledger/internal/models"
	"delivery-ledger/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockPublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockPublisher) PublishSaleRecorded(ctx context.Context, event *models.SaleRecordedEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockPublisher) PublishLowStock(ctx context.Context, event *models.LowStockEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockPublisher) PublishPaymentStatusChanged(ctx context.Context, event *models.PaymentStatusChangedEvent) error {
	return m.Called(ctx, event).Error(0)
}

func newTestEnv() (*store.Store, *clock.Fake) {
	return store.NewStore(), clock.NewFake(testNow)
}

func money(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func createProduct(t *testing.T, inv *InventoryService, sku string, stock, threshold int) *models.InventoryProduct {
	t.Helper()
	p, err := inv.CreateProduct(context.Background(), models.InventoryProduct{
		SKU:               sku,
		Name:              "Product " + sku,
		Category:          "grocery",
		CostPrice:         money("2.50"),
		SellingPrice:      money("4.00"),
		Stock:             stock,
		LowStockThreshold: threshold,
	})
	require.NoError(t, err)
	return p
}

func int64Ptr(v int64) *int64 {
	return &v
}
