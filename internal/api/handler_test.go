package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"delivery-ledger/internal/clock"
	"delivery-ledger/internal/service"
	"delivery-ledger/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeHistory struct {
	rows []store.OrderHistoryRow
}

func (f fakeHistory) OrderHistory(ctx context.Context, orderID int64) ([]store.OrderHistoryRow, error) {
	return f.rows, nil
}

func newTestHandler() (*Handler, Services) {
	st := store.NewStore()
	clk := clock.NewFake(time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC))

	inv := service.NewInventoryService(st, nil, clk)
	svc := Services{
		Orders:     service.NewOrderService(st, nil, clk, true),
		Inventory:  inv,
		Ledger:     service.NewLedgerService(st, inv, nil, clk),
		Loyalty:    service.NewLoyaltyService(st, clk),
		Reputation: service.NewReputationService(st, clk),
		Geo:        service.NewGeoService(st, nil, clk, 0),
		Messaging:  service.NewMessagingService(st, clk),
		Directory:  service.NewDirectoryService(st, clk),
	}
	return NewHandler(svc), svc
}

func newRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h.SetupRoutes(router)
	return router
}

func do(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst))
}

var orderBody = map[string]interface{}{
	"customer_id":    7,
	"store_id":       3,
	"items":          []map[string]interface{}{{"product_id": 1, "quantity": 2, "price": "500"}},
	"subtotal":       "1000",
	"delivery_fee":   "200",
	"total":          "1200",
	"payment_method": "card",
}

func TestHealthAndReadiness(t *testing.T) {
	h, _ := newTestHandler()
	h.WithReadinessCheck("postgres", fakePinger{})
	router := newRouter(h)

	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/ready", nil).Code)

	h.WithReadinessCheck("redis", fakePinger{err: errors.New("connection refused")})
	w := do(t, router, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "redis")
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	h, _ := newTestHandler()
	router := newRouter(h)

	w := do(t, router, http.MethodPost, "/api/v1/orders", orderBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
		Total  string `json:"total"`
	}
	decode(t, w, &created)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "1200", created.Total)

	w = do(t, router, http.MethodPost, "/api/v1/orders/1/status", gin.H{"status": "accepted"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/orders/1/assign", gin.H{"driver_id": 12})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/orders/1/status", gin.H{"status": "pending"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, router, http.MethodGet, "/api/v1/drivers/12/orders", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var byDriver []map[string]interface{}
	decode(t, w, &byDriver)
	assert.Len(t, byDriver, 1)
}

func TestErrorMapping(t *testing.T) {
	h, _ := newTestHandler()
	router := newRouter(h)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"unknown order", http.MethodGet, "/api/v1/orders/99", nil, http.StatusNotFound},
		{"bad id", http.MethodGet, "/api/v1/orders/abc", nil, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/v1/orders", "not an order", http.StatusBadRequest},
		{"empty order", http.MethodPost, "/api/v1/orders", gin.H{"total": "0"}, http.StatusBadRequest},
		{"missing status", http.MethodPost, "/api/v1/orders/1/status", gin.H{}, http.StatusBadRequest},
		{"bad scheduled date", http.MethodGet, "/api/v1/orders/scheduled?date=tomorrow", nil, http.StatusBadRequest},
		{"nearby without coordinates", http.MethodGet, "/api/v1/drivers/nearby", nil, http.StatusBadRequest},
		{"negative radius", http.MethodGet, "/api/v1/drivers/nearby?lat=0&lng=0&radius=-1", nil, http.StatusBadRequest},
		{"unknown wallet", http.MethodGet, "/api/v1/customers/5/wallet", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestIdempotencyKeyHeader(t *testing.T) {
	h, _ := newTestHandler()
	router := newRouter(h)

	send := func() int64 {
		b, err := json.Marshal(orderBody)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "checkout-42")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusCreated, w.Code)

		var o struct {
			ID int64 `json:"id"`
		}
		decode(t, w, &o)
		return o.ID
	}

	assert.Equal(t, send(), send())
}

func TestStockAdjustmentOverHTTP(t *testing.T) {
	h, _ := newTestHandler()
	router := newRouter(h)

	w := do(t, router, http.MethodPost, "/api/v1/products", gin.H{
		"sku":                 "MILK-1L",
		"name":                "Milk 1L",
		"category":            "dairy",
		"cost_price":          "0.90",
		"selling_price":       "1.50",
		"stock":               10,
		"low_stock_threshold": 5,
		"barcode":             "7501000000017",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, router, http.MethodPost, "/api/v1/products/1/adjust", gin.H{"delta": -6})
	require.Equal(t, http.StatusOK, w.Code)

	var low []map[string]interface{}
	decode(t, do(t, router, http.MethodGet, "/api/v1/products/low-stock", nil), &low)
	assert.Len(t, low, 1)

	w = do(t, router, http.MethodGet, "/api/v1/products/barcode/7501000000017", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var value struct {
		Value string `json:"value"`
	}
	decode(t, do(t, router, http.MethodGet, "/api/v1/inventory/value", nil), &value)
	assert.Equal(t, "3.6", value.Value)
}

func TestWalletOverHTTP(t *testing.T) {
	h, _ := newTestHandler()
	router := newRouter(h)

	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/v1/customers/4/wallet", nil).Code)

	w := do(t, router, http.MethodPost, "/api/v1/customers/4/wallet/transactions", gin.H{"amount": "25.00", "description": "top up"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, router, http.MethodPost, "/api/v1/customers/4/wallet/transactions", gin.H{"amount": "-30.00"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var txs []map[string]interface{}
	decode(t, do(t, router, http.MethodGet, "/api/v1/customers/4/wallet/transactions", nil), &txs)
	assert.Len(t, txs, 1)
}

func TestReferralQR(t *testing.T) {
	h, _ := newTestHandler()
	router := newRouter(h)

	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/v1/customers/8/loyalty", nil).Code)

	w := do(t, router, http.MethodGet, "/api/v1/customers/8/loyalty/referral-qr", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	w = do(t, router, http.MethodGet, "/api/v1/customers/9/loyalty/referral-qr", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderHistoryEndpoint(t *testing.T) {
	h, _ := newTestHandler()
	router := newRouter(h)

	assert.Equal(t, http.StatusNotImplemented, do(t, router, http.MethodGet, "/api/v1/orders/1/history", nil).Code)

	h.WithOrderHistory(fakeHistory{rows: []store.OrderHistoryRow{{OrderID: 1, ToStatus: "pending"}}})
	w := do(t, router, http.MethodGet, "/api/v1/orders/1/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"to_status":"pending"`)
}

func TestNotificationsOverHTTP(t *testing.T) {
	h, _ := newTestHandler()
	router := newRouter(h)

	for i := 0; i < 2; i++ {
		w := do(t, router, http.MethodPost, "/api/v1/notifications", gin.H{"user_id": 3, "title": "Promo", "message": "2x1 today"})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	var count struct {
		Unread int `json:"unread"`
	}
	decode(t, do(t, router, http.MethodGet, "/api/v1/users/3/notifications/unread-count", nil), &count)
	assert.Equal(t, 2, count.Unread)

	var marked struct {
		Marked int `json:"marked"`
	}
	decode(t, do(t, router, http.MethodPost, "/api/v1/users/3/notifications/read-all", nil), &marked)
	assert.Equal(t, 2, marked.Marked)
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestHandler()
	router := newRouter(h)

	do(t, router, http.MethodGet, "/health", nil)
	w := do(t, router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
