package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"delivery-ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreateProductUniqueSKU(t *testing.T) {
	st, clk := newTestEnv()
	inv := NewInventoryService(st, nil, clk)

	createProduct(t, inv, "SKU-1", 10, 2)

	_, err := inv.CreateProduct(context.Background(), models.InventoryProduct{SKU: "SKU-1", Name: "dup"})
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, 1, st.Products.Len())
}

func TestAdjustStock(t *testing.T) {
	st, clk := newTestEnv()
	inv := NewInventoryService(st, nil, clk)
	ctx := context.Background()

	p := createProduct(t, inv, "SKU-1", 2, 0)

	updated, err := inv.AdjustStock(ctx, p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Stock)

	// stock is not clamped
	updated, err = inv.AdjustStock(ctx, p.ID, -9)
	require.NoError(t, err)
	assert.Equal(t, -2, updated.Stock)

	_, err = inv.AdjustStock(ctx, 404, 1)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAdjustStockConcurrent(t *testing.T) {
	st, clk := newTestEnv()
	inv := NewInventoryService(st, nil, clk)
	ctx := context.Background()

	p := createProduct(t, inv, "SKU-1", 0, 0)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			delta := 1
			if i%2 == 0 {
				delta = 2
			}
			_, err := inv.AdjustStock(ctx, p.ID, delta)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := inv.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 150, got.Stock)
}

func TestLowStockAlertOnCrossing(t *testing.T) {
	st, clk := newTestEnv()
	pub := new(mockPublisher)
	pub.On("PublishLowStock", mock.Anything, mock.AnythingOfType("*models.LowStockEvent")).Return(nil)

	inv := NewInventoryService(st, pub, clk)
	ctx := context.Background()

	p := createProduct(t, inv, "SKU-1", 10, 5)

	_, err := inv.AdjustStock(ctx, p.ID, -6)
	require.NoError(t, err)
	_, err = inv.AdjustStock(ctx, p.ID, -1)
	require.NoError(t, err)

	pub.AssertNumberOfCalls(t, "PublishLowStock", 1)

	low := inv.GetLowStock(ctx)
	require.Len(t, low, 1)
	assert.Equal(t, p.ID, low[0].ID)
	assert.Equal(t, 3, low[0].Stock)
}

func TestProductLookups(t *testing.T) {
	st, clk := newTestEnv()
	inv := NewInventoryService(st, nil, clk)
	ctx := context.Background()

	p, err := inv.CreateProduct(ctx, models.InventoryProduct{
		SKU:          "SKU-9",
		Name:         "Oat milk",
		Category:     "dairy",
		Barcode:      "7501234567890",
		CostPrice:    money("1.20"),
		SellingPrice: money("2.00"),
		Stock:        5,
	})
	require.NoError(t, err)
	createProduct(t, inv, "SKU-10", 4, 1)

	found, err := inv.GetProductByBarcode(ctx, "7501234567890")
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)

	_, err = inv.GetProductByBarcode(ctx, "000")
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.Len(t, inv.ListProducts(ctx, "dairy"), 1)
	assert.Len(t, inv.ListProducts(ctx, ""), 2)

	// 5 x 1.20 + 4 x 2.50
	assert.True(t, money("16").Equal(inv.InventoryValue(ctx)))
}
