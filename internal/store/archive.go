package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"delivery-ledger/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Archive rows are keyed by event ID: order, sale and payment IDs come from
// the in-memory store and restart at 1 with the process.
const archiveSchema = `
CREATE TABLE IF NOT EXISTS order_history (
	id          BIGSERIAL PRIMARY KEY,
	event_id    TEXT NOT NULL UNIQUE,
	order_id    BIGINT NOT NULL,
	customer_id BIGINT NOT NULL,
	store_id    BIGINT NOT NULL,
	from_status TEXT,
	to_status   TEXT NOT NULL,
	driver_id   BIGINT,
	total       NUMERIC(14,2),
	occurred_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS order_history_order_id_idx ON order_history (order_id);

CREATE TABLE IF NOT EXISTS sales_archive (
	event_id    TEXT PRIMARY KEY,
	sale_id     BIGINT NOT NULL,
	customer_id BIGINT,
	total       NUMERIC(14,2) NOT NULL,
	items       JSONB NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS low_stock_alerts (
	event_id    TEXT PRIMARY KEY,
	product_id  BIGINT NOT NULL,
	sku         TEXT NOT NULL,
	stock       INT NOT NULL,
	threshold   INT NOT NULL,
	raised_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS payment_history (
	event_id    TEXT PRIMARY KEY,
	payment_id  BIGINT NOT NULL,
	order_id    BIGINT NOT NULL,
	amount      NUMERIC(14,2) NOT NULL,
	status      TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS processed_events (
	consumer     TEXT NOT NULL,
	event_id     TEXT NOT NULL,
	event_type   TEXT NOT NULL,
	processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (consumer, event_id)
);`

// OrderHistoryRow is one archived order transition
type OrderHistoryRow struct {
	ID         int64     `db:"id" json:"id"`
	EventID    string    `db:"event_id" json:"event_id"`
	OrderID    int64     `db:"order_id" json:"order_id"`
	CustomerID int64     `db:"customer_id" json:"customer_id"`
	StoreID    int64     `db:"store_id" json:"store_id"`
	FromStatus *string   `db:"from_status" json:"from_status,omitempty"`
	ToStatus   string    `db:"to_status" json:"to_status"`
	DriverID   *int64    `db:"driver_id" json:"driver_id,omitempty"`
	Total      *string   `db:"total" json:"total,omitempty"`
	OccurredAt time.Time `db:"occurred_at" json:"occurred_at"`
}

// Archive is the append-only Postgres copy of ledger events. The in-memory
// Store stays the source of truth; the archive feeds reporting.
type Archive struct {
	db *sqlx.DB
}

// NewArchive connects to Postgres
func NewArchive(databaseURL string) (*Archive, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Archive{db: db}, nil
}

// Close closes the database connection
func (a *Archive) Close() error {
	return a.db.Close()
}

// EnsureSchema creates the archive tables if missing
func (a *Archive) EnsureSchema(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, archiveSchema); err != nil {
		return fmt.Errorf("failed to apply archive schema: %w", err)
	}
	return nil
}

// Ping checks the connection
func (a *Archive) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

// RecordOrderCreated archives the initial pending entry of an order
func (a *Archive) RecordOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO order_history (event_id, order_id, customer_id, store_id, to_status, total, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id) DO NOTHING`,
		event.EventID, event.OrderID, event.CustomerID, event.StoreID, string(models.OrderStatusPending),
		event.Total.String(), event.Timestamp)
	return err
}

// RecordOrderStatus archives a status transition
func (a *Archive) RecordOrderStatus(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO order_history (event_id, order_id, customer_id, store_id, from_status, to_status, driver_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_id) DO NOTHING`,
		event.EventID, event.OrderID, event.CustomerID, event.StoreID, string(event.From), string(event.To),
		event.DriverID, event.Timestamp)
	return err
}

// OrderHistory returns archived transitions of an order, oldest first
func (a *Archive) OrderHistory(ctx context.Context, orderID int64) ([]OrderHistoryRow, error) {
	var rows []OrderHistoryRow
	err := a.db.SelectContext(ctx, &rows,
		"SELECT id, event_id, order_id, customer_id, store_id, from_status, to_status, driver_id, total::text AS total, occurred_at FROM order_history WHERE order_id = $1 ORDER BY id",
		orderID)
	return rows, err
}

// RecordSale archives a sale; replays of the same event are ignored
func (a *Archive) RecordSale(ctx context.Context, event *models.SaleRecordedEvent) error {
	items, err := json.Marshal(event.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal sale items: %w", err)
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO sales_archive (event_id, sale_id, customer_id, total, items, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO NOTHING`,
		event.EventID, event.SaleID, event.CustomerID, event.Total.String(), items, event.Timestamp)
	return err
}

// RecordLowStock archives a low stock alert
func (a *Archive) RecordLowStock(ctx context.Context, event *models.LowStockEvent) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO low_stock_alerts (event_id, product_id, sku, stock, threshold, raised_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO NOTHING`,
		event.EventID, event.ProductID, event.SKU, event.Stock, event.Threshold, event.Timestamp)
	return err
}

// RecordPaymentStatus archives a payment status change
func (a *Archive) RecordPaymentStatus(ctx context.Context, event *models.PaymentStatusChangedEvent) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO payment_history (event_id, payment_id, order_id, amount, status, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO NOTHING`,
		event.EventID, event.PaymentID, event.OrderID, event.Amount.String(), string(event.Status), event.Timestamp)
	return err
}

// IsEventProcessed checks if a consumer has already handled an event. Each
// consumer keeps its own set, so the archive and the saga never mask each other.
func (a *Archive) IsEventProcessed(ctx context.Context, consumer, eventID string) (bool, error) {
	var exists bool
	err := a.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE consumer = $1 AND event_id = $2)",
		consumer, eventID)
	return exists, err
}

// MarkEventProcessed marks an event as handled by a consumer
func (a *Archive) MarkEventProcessed(ctx context.Context, consumer, eventID, eventType string) error {
	_, err := a.db.ExecContext(ctx,
		"INSERT INTO processed_events (consumer, event_id, event_type) VALUES ($1, $2, $3) ON CONFLICT (consumer, event_id) DO NOTHING",
		consumer, eventID, eventType)
	return err
}
