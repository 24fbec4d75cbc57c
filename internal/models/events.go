package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderCreated         = "ORDER_CREATED"
	EventTypeOrderStatusChanged   = "ORDER_STATUS_CHANGED"
	EventTypeSaleRecorded         = "SALE_RECORDED"
	EventTypeLowStock             = "LOW_STOCK"
	EventTypePaymentStatusChanged = "PAYMENT_STATUS_CHANGED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published when an order enters the pending state
type OrderCreatedEvent struct {
	BaseEvent
	OrderID       int64           `json:"order_id"`
	CustomerID    int64           `json:"customer_id"`
	StoreID       int64           `json:"store_id"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	Items         []OrderItem     `json:"items"`
}

// OrderStatusChangedEvent published on every accepted status update
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID    int64       `json:"order_id"`
	CustomerID int64       `json:"customer_id"`
	StoreID    int64       `json:"store_id"`
	From       OrderStatus `json:"from"`
	To         OrderStatus `json:"to"`
	DriverID   *int64      `json:"driver_id,omitempty"`
}

// SaleRecordedEvent published after a sale and its cascades are applied
type SaleRecordedEvent struct {
	BaseEvent
	SaleID     int64           `json:"sale_id"`
	CustomerID *int64          `json:"customer_id,omitempty"`
	Total      decimal.Decimal `json:"total"`
	Items      []SaleItem      `json:"items"`
}

// LowStockEvent published when a product drops to its low stock threshold
type LowStockEvent struct {
	BaseEvent
	ProductID int64  `json:"product_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	Threshold int    `json:"threshold"`
}

// PaymentStatusChangedEvent published when a payment changes status
type PaymentStatusChangedEvent struct {
	BaseEvent
	PaymentID  int64           `json:"payment_id"`
	OrderID    int64           `json:"order_id"`
	CustomerID int64           `json:"customer_id"`
	Amount     decimal.Decimal `json:"amount"`
	Status     PaymentStatus   `json:"status"`
}
