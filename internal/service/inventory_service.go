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

// InventoryService is the only writer of product stock
type InventoryService struct {
	store     *store.Store
	publisher EventPublisher
	clock     clock.Clock
	logger    *zap.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(store *store.Store, publisher EventPublisher, clk clock.Clock) *InventoryService {
	return &InventoryService{
		store:     store,
		publisher: publisherOrNoop(publisher),
		clock:     clk,
		logger:    util.GetLogger(),
	}
}

// stockChange is the outcome of one adjustment
type stockChange struct {
	product    models.InventoryProduct
	delta      int
	crossedLow bool
}

// CreateProduct adds a product to the catalog
func (s *InventoryService) CreateProduct(ctx context.Context, input models.InventoryProduct) (*models.InventoryProduct, error) {
	if input.SKU == "" {
		return nil, invalid("sku", "required")
	}
	if input.Name == "" {
		return nil, invalid("name", "required")
	}
	if input.LowStockThreshold < 0 {
		return nil, invalid("low_stock_threshold", "must not be negative")
	}
	if input.CostPrice.IsNegative() || input.SellingPrice.IsNegative() {
		return nil, invalid("price", "must not be negative")
	}

	unlock := s.store.Lock("product_sku:" + input.SKU)
	defer unlock()

	if _, exists := s.store.Products.Find(func(p models.InventoryProduct) bool { return p.SKU == input.SKU }); exists {
		return nil, invalid("sku", "already in use")
	}

	now := s.clock.Now()
	product := s.store.Products.Insert(func(id int64) models.InventoryProduct {
		p := input
		p.ID = id
		p.CreatedAt = now
		p.UpdatedAt = now
		return p
	})

	s.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.String("sku", product.SKU),
		zap.Int("stock", product.Stock))
	return &product, nil
}

// GetProduct retrieves a product by ID
func (s *InventoryService) GetProduct(ctx context.Context, productID int64) (*models.InventoryProduct, error) {
	p, ok := s.store.Products.Get(productID)
	if !ok {
		return nil, notFound("product", productID)
	}
	return &p, nil
}

// GetProductByBarcode looks a product up by its scanned barcode
func (s *InventoryService) GetProductByBarcode(ctx context.Context, barcode string) (*models.InventoryProduct, error) {
	p, ok := s.store.Products.Find(func(p models.InventoryProduct) bool {
		return barcode != "" && p.Barcode == barcode
	})
	if !ok {
		return nil, &NotFoundError{Entity: "barcode", Key: barcode}
	}
	return &p, nil
}

// ListProducts lists products, optionally filtered by category
func (s *InventoryService) ListProducts(ctx context.Context, category string) []models.InventoryProduct {
	return s.store.Products.List(func(p models.InventoryProduct) bool {
		return category == "" || p.Category == category
	})
}

// AdjustStock adds delta to a product's stock. Stock is not clamped at zero.
func (s *InventoryService) AdjustStock(ctx context.Context, productID int64, delta int) (*models.InventoryProduct, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.AdjustStock",
		attribute.Int64("product_id", productID),
		attribute.Int("delta", delta))
	defer span.End()

	unlock := s.store.Products.Lock(productID)
	change, err := s.adjustLocked(productID, delta, s.clock.Now())
	unlock()
	if err != nil {
		return nil, err
	}

	s.afterAdjust(ctx, change)
	return &change.product, nil
}

// adjustLocked applies a stock delta; the caller holds the product lock.
func (s *InventoryService) adjustLocked(productID int64, delta int, now time.Time) (stockChange, error) {
	var before int
	p, err := s.store.Products.UpdateLocked(productID, func(p *models.InventoryProduct) error {
		before = p.Stock
		p.Stock += delta
		p.UpdatedAt = now
		return nil
	})
	if errors.Is(err, store.ErrNoRecord) {
		return stockChange{}, notFound("product", productID)
	}
	if err != nil {
		return stockChange{}, err
	}

	return stockChange{
		product:    p,
		delta:      delta,
		crossedLow: before > p.LowStockThreshold && p.Stock <= p.LowStockThreshold,
	}, nil
}

// afterAdjust records metrics and raises low stock alerts once locks are released.
func (s *InventoryService) afterAdjust(ctx context.Context, change stockChange) {
	direction := "in"
	if change.delta < 0 {
		direction = "out"
	}
	util.StockAdjustmentsTotal.WithLabelValues(direction).Inc()

	if !change.crossedLow {
		return
	}

	p := change.product
	util.LowStockAlertsTotal.Inc()
	s.logger.Warn("Product reached low stock",
		zap.Int64("product_id", p.ID),
		zap.String("sku", p.SKU),
		zap.Int("stock", p.Stock),
		zap.Int("threshold", p.LowStockThreshold))

	event := &models.LowStockEvent{
		BaseEvent: newBaseEvent(models.EventTypeLowStock, p.UpdatedAt),
		ProductID: p.ID,
		SKU:       p.SKU,
		Name:      p.Name,
		Stock:     p.Stock,
		Threshold: p.LowStockThreshold,
	}
	if err := s.publisher.PublishLowStock(ctx, event); err != nil {
		util.EventsPublishFailed.WithLabelValues(event.EventType).Inc()
		s.logger.Error("Failed to publish LowStock event", zap.Error(err))
	}
}

// GetLowStock lists products at or below their low stock threshold
func (s *InventoryService) GetLowStock(ctx context.Context) []models.InventoryProduct {
	return s.store.Products.List(func(p models.InventoryProduct) bool {
		return p.Stock <= p.LowStockThreshold
	})
}

// InventoryValue is the cost value of all stock on hand
func (s *InventoryService) InventoryValue(ctx context.Context) decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.store.Products.List(nil) {
		if p.Stock > 0 {
			total = total.Add(p.CostPrice.Mul(decimal.NewFromInt(int64(p.Stock))))
		}
	}
	return total
}
