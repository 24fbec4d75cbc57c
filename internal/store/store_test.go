package store

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"delivery-ledger/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionInsertAssignsSequentialIDs(t *testing.T) {
	s := NewStore()

	first := s.Products.Insert(func(id int64) models.InventoryProduct {
		return models.InventoryProduct{ID: id, SKU: "A"}
	})
	second := s.Products.Insert(func(id int64) models.InventoryProduct {
		return models.InventoryProduct{ID: id, SKU: "B"}
	})

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.Equal(t, 2, s.Products.Len())

	got, ok := s.Products.Get(2)
	require.True(t, ok)
	assert.Equal(t, "B", got.SKU)
}

func TestCollectionListKeepsInsertionOrder(t *testing.T) {
	s := NewStore()
	for _, id := range []int64{7, 3, 9} {
		s.DriverLocations.Put(id, models.DriverLocation{DriverID: id})
	}
	s.DriverLocations.Put(3, models.DriverLocation{DriverID: 3, Latitude: 1})

	all := s.DriverLocations.List(nil)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{7, 3, 9}, []int64{all[0].DriverID, all[1].DriverID, all[2].DriverID})
	assert.Equal(t, 1.0, all[1].Latitude)

	found, ok := s.DriverLocations.Find(func(l models.DriverLocation) bool { return l.DriverID > 5 })
	require.True(t, ok)
	assert.Equal(t, int64(7), found.DriverID)
}

func TestCollectionUpdateMissing(t *testing.T) {
	s := NewStore()

	_, err := s.Orders.Update(42, func(o *models.Order) error { return nil })
	assert.True(t, errors.Is(err, ErrNoRecord))
}

func TestCollectionUpdateDiscardsOnError(t *testing.T) {
	s := NewStore()
	p := s.Products.Insert(func(id int64) models.InventoryProduct {
		return models.InventoryProduct{ID: id, Stock: 5}
	})

	boom := errors.New("boom")
	_, err := s.Products.Update(p.ID, func(v *models.InventoryProduct) error {
		v.Stock = 100
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, _ := s.Products.Get(p.ID)
	assert.Equal(t, 5, got.Stock)
}

func TestCollectionConcurrentUpdatesDoNotLoseWrites(t *testing.T) {
	s := NewStore()
	w := s.Wallets.Insert(func(id int64) models.Wallet {
		return models.Wallet{ID: id, Balance: decimal.Zero}
	})

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Wallets.Update(w.ID, func(v *models.Wallet) error {
				v.Balance = v.Balance.Add(decimal.NewFromInt(1))
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, _ := s.Wallets.Get(w.ID)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(200)), "balance %s", got.Balance)
}

func TestLockerReleasesKeys(t *testing.T) {
	l := NewLocker()

	unlock := l.Lock("product:2", "customer:1", "product:2")
	assert.Equal(t, 2, l.size())
	unlock()
	assert.Equal(t, 0, l.size())
}

func TestLockerSerializesOverlappingKeySets(t *testing.T) {
	l := NewLocker()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unlock := l.Lock("a", "b")
			counter++
			unlock()
		}()
		go func() {
			defer wg.Done()
			unlock := l.Lock("b", "a")
			counter++
			unlock()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("lock ordering deadlocked")
	}
	assert.Equal(t, 100, counter)
}

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	dsn := os.Getenv("ARCHIVE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("Integration test - set ARCHIVE_TEST_DATABASE_URL")
	}

	archive, err := NewArchive(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { archive.Close() })
	require.NoError(t, archive.EnsureSchema(context.Background()))
	return archive
}

func TestArchiveRecordOrder(t *testing.T) {
	archive := openTestArchive(t)
	ctx := context.Background()

	event := &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{EventID: uuid.New().String(), EventType: models.EventTypeOrderCreated, Timestamp: time.Now()},
		OrderID:   99,
		Total:     decimal.NewFromInt(1200),
	}
	require.NoError(t, archive.RecordOrderCreated(ctx, event))
	require.NoError(t, archive.RecordOrderCreated(ctx, event), "replays are ignored")

	rows, err := archive.OrderHistory(ctx, 99)
	require.NoError(t, err)
	var matching int
	for _, r := range rows {
		if r.EventID == event.EventID {
			matching++
		}
	}
	assert.Equal(t, 1, matching)
}

func TestArchiveKeepsSalesWithReusedIDs(t *testing.T) {
	archive := openTestArchive(t)
	ctx := context.Background()

	sale := func() *models.SaleRecordedEvent {
		return &models.SaleRecordedEvent{
			BaseEvent: models.BaseEvent{EventID: uuid.New().String(), EventType: models.EventTypeSaleRecorded, Timestamp: time.Now()},
			SaleID:    1,
			Total:     decimal.NewFromInt(10),
		}
	}
	// sale 1 before and after a restart of the in-memory store
	first, second := sale(), sale()
	require.NoError(t, archive.RecordSale(ctx, first))
	require.NoError(t, archive.RecordSale(ctx, second))
	require.NoError(t, archive.RecordSale(ctx, second))

	var count int
	require.NoError(t, archive.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM sales_archive WHERE event_id IN ($1, $2)", first.EventID, second.EventID))
	assert.Equal(t, 2, count)
}

func TestArchiveProcessedEventsPerConsumer(t *testing.T) {
	archive := openTestArchive(t)
	ctx := context.Background()

	eventID := uuid.New().String()
	require.NoError(t, archive.MarkEventProcessed(ctx, "archive", eventID, models.EventTypePaymentStatusChanged))
	require.NoError(t, archive.MarkEventProcessed(ctx, "archive", eventID, models.EventTypePaymentStatusChanged))

	processed, err := archive.IsEventProcessed(ctx, "archive", eventID)
	assert.NoError(t, err)
	assert.True(t, processed)

	processed, err = archive.IsEventProcessed(ctx, "saga", eventID)
	assert.NoError(t, err)
	assert.False(t, processed, "another consumer's mark must not hide the event")
}

func TestArchiveSchemaKeysRowsByEventID(t *testing.T) {
	for _, table := range []string{"order_history", "sales_archive", "low_stock_alerts", "payment_history"} {
		start := strings.Index(archiveSchema, "CREATE TABLE IF NOT EXISTS "+table)
		require.NotEqual(t, -1, start, table)
		body := archiveSchema[start:]
		body = body[:strings.Index(body, ");")]
		assert.Contains(t, body, "event_id", table)
	}
	assert.Contains(t, archiveSchema, "PRIMARY KEY (consumer, event_id)")
}
