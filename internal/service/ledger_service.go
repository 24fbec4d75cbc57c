package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"delivery-ledger/internal/clock"
	"delivery-ledger/internal/models"
	"delivery-ledger/internal/store"
	"delivery-ledger/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// LedgerService owns sales, customers' purchase aggregates, payments,
// wallets and refunds. Stock changes caused by sales are delegated to the
// InventoryService.
type LedgerService struct {
	store     *store.Store
	inventory *InventoryService
	publisher EventPublisher
	clock     clock.Clock
	logger    *zap.Logger
}

// NewLedgerService creates a new ledger service
func NewLedgerService(
	store *store.Store,
	inventory *InventoryService,
	publisher EventPublisher,
	clk clock.Clock,
) *LedgerService {
	return &LedgerService{
		store:     store,
		inventory: inventory,
		publisher: publisherOrNoop(publisher),
		clock:     clk,
		logger:    util.GetLogger(),
	}
}

// ProductSales is one row of the top selling ranking
type ProductSales struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// SalesSummary aggregates a set of sales for dashboards
type SalesSummary struct {
	Count         int             `json:"count"`
	Revenue       decimal.Decimal `json:"revenue"`
	Discount      decimal.Decimal `json:"discount"`
	AverageTicket decimal.Decimal `json:"average_ticket"`
}

// CreateCustomer registers a POS customer with empty purchase aggregates
func (s *LedgerService) CreateCustomer(ctx context.Context, input models.Customer) (*models.Customer, error) {
	if input.Name == "" {
		return nil, invalid("name", "required")
	}

	now := s.clock.Now()
	c := s.store.Customers.Insert(func(id int64) models.Customer {
		return models.Customer{
			ID:             id,
			Name:           input.Name,
			Email:          input.Email,
			Phone:          input.Phone,
			TotalPurchases: decimal.Zero,
			CreatedAt:      now,
		}
	})
	return &c, nil
}

// GetCustomer retrieves a customer by ID
func (s *LedgerService) GetCustomer(ctx context.Context, customerID int64) (*models.Customer, error) {
	c, ok := s.store.Customers.Get(customerID)
	if !ok {
		return nil, notFound("customer", customerID)
	}
	return &c, nil
}

// ListCustomers lists all customers
func (s *LedgerService) ListCustomers(ctx context.Context) []models.Customer {
	return s.store.Customers.List(nil)
}

// RecordSale stores a priced sale, adds its total to the customer's purchase
// aggregate and decrements stock for every line. The customer and all sold
// products stay locked until every effect is applied; a missing customer or
// product aborts the sale before anything is written.
func (s *LedgerService) RecordSale(ctx context.Context, input models.Sale) (*models.Sale, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.RecordSale")
	defer span.End()

	start := time.Now()
	defer func() {
		util.SaleRecordLatency.Observe(time.Since(start).Seconds())
	}()

	if err := validateSale(input); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(input.Items)+1)
	if input.CustomerID != nil {
		keys = append(keys, s.store.Customers.Key(*input.CustomerID))
	}
	for _, item := range input.Items {
		keys = append(keys, s.store.Products.Key(item.ProductID))
	}

	unlock := s.store.Lock(keys...)

	if input.CustomerID != nil {
		if _, ok := s.store.Customers.Get(*input.CustomerID); !ok {
			unlock()
			return nil, notFound("customer", *input.CustomerID)
		}
	}
	for _, item := range input.Items {
		if _, ok := s.store.Products.Get(item.ProductID); !ok {
			unlock()
			return nil, notFound("product", item.ProductID)
		}
	}

	now := s.clock.Now()
	items := make([]models.SaleItem, len(input.Items))
	copy(items, input.Items)

	sale := s.store.Sales.Insert(func(id int64) models.Sale {
		sale := models.Sale{
			ID:            id,
			Items:         items,
			Subtotal:      input.Subtotal,
			Discount:      input.Discount,
			Total:         input.Total,
			PaymentMethod: input.PaymentMethod,
			CreatedAt:     now,
		}
		if input.CustomerID != nil {
			cid := *input.CustomerID
			sale.CustomerID = &cid
		}
		return sale
	})

	if sale.CustomerID != nil {
		_, err := s.store.Customers.UpdateLocked(*sale.CustomerID, func(c *models.Customer) error {
			c.TotalPurchases = c.TotalPurchases.Add(sale.Total)
			purchased := now
			c.LastPurchaseDate = &purchased
			return nil
		})
		if err != nil {
			unlock()
			return nil, fmt.Errorf("failed to update customer aggregate: %w", err)
		}
	}

	changes := make([]stockChange, 0, len(sale.Items))
	for _, item := range sale.Items {
		change, err := s.inventory.adjustLocked(item.ProductID, -item.Quantity, now)
		if err != nil {
			unlock()
			return nil, fmt.Errorf("failed to decrement stock: %w", err)
		}
		changes = append(changes, change)
	}

	unlock()

	for _, change := range changes {
		s.inventory.afterAdjust(ctx, change)
	}

	util.SalesRecordedTotal.Inc()
	util.SalesRevenueTotal.Add(sale.Total.InexactFloat64())
	span.SetAttributes(attribute.Int64("sale_id", sale.ID))
	s.logger.Info("Sale recorded",
		zap.Int64("sale_id", sale.ID),
		zap.String("total", sale.Total.String()),
		zap.Int("lines", len(sale.Items)))

	event := &models.SaleRecordedEvent{
		BaseEvent:  newBaseEvent(models.EventTypeSaleRecorded, now),
		SaleID:     sale.ID,
		CustomerID: sale.CustomerID,
		Total:      sale.Total,
		Items:      sale.Items,
	}
	if err := s.publisher.PublishSaleRecorded(ctx, event); err != nil {
		util.EventsPublishFailed.WithLabelValues(event.EventType).Inc()
		s.logger.Error("Failed to publish SaleRecorded event", zap.Error(err))
	}

	return &sale, nil
}

func validateSale(sale models.Sale) error {
	if len(sale.Items) == 0 {
		return invalid("items", "sale must contain at least one item")
	}
	for _, item := range sale.Items {
		if item.Quantity <= 0 {
			return invalid("quantity", "must be positive")
		}
	}
	if sale.Total.IsNegative() {
		return invalid("total", "must not be negative")
	}
	return nil
}

// GetSale retrieves a sale by ID
func (s *LedgerService) GetSale(ctx context.Context, saleID int64) (*models.Sale, error) {
	sale, ok := s.store.Sales.Get(saleID)
	if !ok {
		return nil, notFound("sale", saleID)
	}
	return &sale, nil
}

// TodaySales lists sales since local midnight
func (s *LedgerService) TodaySales(ctx context.Context) []models.Sale {
	now := s.clock.Now()
	y, m, d := now.Date()
	return s.salesSince(time.Date(y, m, d, 0, 0, 0, 0, now.Location()))
}

// WeekSales lists sales of the last seven days
func (s *LedgerService) WeekSales(ctx context.Context) []models.Sale {
	return s.salesSince(s.clock.Now().AddDate(0, 0, -7))
}

// MonthSales lists sales of the last month
func (s *LedgerService) MonthSales(ctx context.Context) []models.Sale {
	return s.salesSince(s.clock.Now().AddDate(0, -1, 0))
}

func (s *LedgerService) salesSince(from time.Time) []models.Sale {
	return s.store.Sales.List(func(sale models.Sale) bool {
		return !sale.CreatedAt.Before(from)
	})
}

// TopSellingProducts ranks products by quantity sold. Ties keep the order in
// which products first appeared in the sales log. limit <= 0 returns all.
func (s *LedgerService) TopSellingProducts(ctx context.Context, limit int) []ProductSales {
	index := make(map[int64]int)
	var ranking []ProductSales

	for _, sale := range s.store.Sales.List(nil) {
		for _, item := range sale.Items {
			i, ok := index[item.ProductID]
			if !ok {
				i = len(ranking)
				index[item.ProductID] = i
				ranking = append(ranking, ProductSales{
					ProductID:   item.ProductID,
					ProductName: item.ProductName,
					Revenue:     decimal.Zero,
				})
			}
			line := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))).Sub(item.Discount)
			ranking[i].Quantity += item.Quantity
			ranking[i].Revenue = ranking[i].Revenue.Add(line)
		}
	}

	sort.SliceStable(ranking, func(a, b int) bool {
		return ranking[a].Quantity > ranking[b].Quantity
	})

	if limit > 0 && len(ranking) > limit {
		ranking = ranking[:limit]
	}
	return ranking
}

// SummarizeSales totals a set of sales
func SummarizeSales(sales []models.Sale) SalesSummary {
	summary := SalesSummary{
		Count:         len(sales),
		Revenue:       decimal.Zero,
		Discount:      decimal.Zero,
		AverageTicket: decimal.Zero,
	}
	for _, sale := range sales {
		summary.Revenue = summary.Revenue.Add(sale.Total)
		summary.Discount = summary.Discount.Add(sale.Discount)
	}
	if summary.Count > 0 {
		summary.AverageTicket = summary.Revenue.Div(decimal.NewFromInt(int64(summary.Count))).Round(2)
	}
	return summary
}

// CreatePayment records a pending payment for an order
func (s *LedgerService) CreatePayment(ctx context.Context, input models.Payment) (*models.Payment, error) {
	if !input.Amount.IsPositive() {
		return nil, invalid("amount", "must be positive")
	}
	if input.Method == "" {
		return nil, invalid("method", "required")
	}

	now := s.clock.Now()
	p := s.store.Payments.Insert(func(id int64) models.Payment {
		return models.Payment{
			ID:            id,
			OrderID:       input.OrderID,
			CustomerID:    input.CustomerID,
			Amount:        input.Amount,
			Method:        input.Method,
			Status:        models.PaymentStatusPending,
			TransactionID: input.TransactionID,
			CreatedAt:     now,
		}
	})
	return &p, nil
}

// GetPayment retrieves a payment by ID
func (s *LedgerService) GetPayment(ctx context.Context, paymentID int64) (*models.Payment, error) {
	p, ok := s.store.Payments.Get(paymentID)
	if !ok {
		return nil, notFound("payment", paymentID)
	}
	return &p, nil
}

// PaymentsByOrder lists payments of an order
func (s *LedgerService) PaymentsByOrder(ctx context.Context, orderID int64) []models.Payment {
	return s.store.Payments.List(func(p models.Payment) bool { return p.OrderID == orderID })
}

// UpdatePaymentStatus sets a payment's status; completedAt is stamped when it
// becomes completed. An empty transactionID keeps the current one. The status
// change event is published only when the status actually changes.
func (s *LedgerService) UpdatePaymentStatus(ctx context.Context, paymentID int64, status models.PaymentStatus, transactionID string) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.UpdatePaymentStatus",
		attribute.Int64("payment_id", paymentID),
		attribute.String("status", string(status)))
	defer span.End()

	if !status.Valid() {
		return nil, invalid("status", "unknown payment status "+string(status))
	}

	now := s.clock.Now()
	var previous models.PaymentStatus
	p, err := s.store.Payments.Update(paymentID, func(p *models.Payment) error {
		previous = p.Status
		p.Status = status
		if transactionID != "" {
			p.TransactionID = transactionID
		}
		if status == models.PaymentStatusCompleted && p.CompletedAt == nil {
			completed := now
			p.CompletedAt = &completed
		}
		return nil
	})
	if errors.Is(err, store.ErrNoRecord) {
		return nil, notFound("payment", paymentID)
	}
	if err != nil {
		return nil, err
	}
	if previous == status {
		return &p, nil
	}

	util.PaymentStatusTotal.WithLabelValues(string(status)).Inc()

	event := &models.PaymentStatusChangedEvent{
		BaseEvent:  newBaseEvent(models.EventTypePaymentStatusChanged, now),
		PaymentID:  p.ID,
		OrderID:    p.OrderID,
		CustomerID: p.CustomerID,
		Amount:     p.Amount,
		Status:     p.Status,
	}
	if err := s.publisher.PublishPaymentStatusChanged(ctx, event); err != nil {
		util.EventsPublishFailed.WithLabelValues(event.EventType).Inc()
		s.logger.Error("Failed to publish PaymentStatusChanged event", zap.Error(err))
	}

	return &p, nil
}

// CreateWallet opens the single wallet of a customer
func (s *LedgerService) CreateWallet(ctx context.Context, customerID int64) (*models.Wallet, error) {
	unlock := s.store.Lock(fmt.Sprintf("wallet_owner:%d", customerID))
	defer unlock()

	if _, ok := s.findWallet(customerID); ok {
		return nil, invalid("customer_id", "wallet already exists")
	}

	now := s.clock.Now()
	w := s.store.Wallets.Insert(func(id int64) models.Wallet {
		return models.Wallet{
			ID:          id,
			CustomerID:  customerID,
			Balance:     decimal.Zero,
			TotalEarned: decimal.Zero,
			TotalSpent:  decimal.Zero,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	})
	return &w, nil
}

// GetWallet retrieves the wallet of a customer
func (s *LedgerService) GetWallet(ctx context.Context, customerID int64) (*models.Wallet, error) {
	w, ok := s.findWallet(customerID)
	if !ok {
		return nil, notFound("wallet for customer", customerID)
	}
	return &w, nil
}

func (s *LedgerService) findWallet(customerID int64) (models.Wallet, bool) {
	return s.store.Wallets.Find(func(w models.Wallet) bool { return w.CustomerID == customerID })
}

// UpdateWalletBalance adds a signed amount to the customer's wallet. It does
// not write a WalletTransaction; callers using it must also call
// CreateWalletTransaction, or use ApplyWalletTransaction for both at once.
func (s *LedgerService) UpdateWalletBalance(ctx context.Context, customerID int64, amount decimal.Decimal) (*models.Wallet, error) {
	w, ok := s.findWallet(customerID)
	if !ok {
		return nil, notFound("wallet for customer", customerID)
	}

	now := s.clock.Now()
	updated, err := s.store.Wallets.Update(w.ID, func(w *models.Wallet) error {
		applyWalletAmount(w, amount, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.WalletOperationsTotal.WithLabelValues(walletTxType(amount)).Inc()
	return &updated, nil
}

func applyWalletAmount(w *models.Wallet, amount decimal.Decimal, now time.Time) {
	w.Balance = w.Balance.Add(amount)
	if amount.IsPositive() {
		w.TotalEarned = w.TotalEarned.Add(amount)
	} else {
		w.TotalSpent = w.TotalSpent.Add(amount.Abs())
	}
	w.UpdatedAt = now
}

func walletTxType(amount decimal.Decimal) string {
	if amount.IsPositive() {
		return string(models.WalletCredit)
	}
	return string(models.WalletDebit)
}

// CreateWalletTransaction appends a transaction to the wallet log without
// touching the balance. Amount is signed: credits positive, debits negative.
func (s *LedgerService) CreateWalletTransaction(ctx context.Context, input models.WalletTransaction) (*models.WalletTransaction, error) {
	if _, ok := s.store.Wallets.Get(input.WalletID); !ok {
		return nil, notFound("wallet", input.WalletID)
	}
	if err := normalizeWalletTx(&input); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	tx := s.store.WalletTransactions.Insert(func(id int64) models.WalletTransaction {
		t := input
		t.ID = id
		t.CreatedAt = now
		return t
	})
	return &tx, nil
}

func normalizeWalletTx(tx *models.WalletTransaction) error {
	if tx.Amount.IsZero() {
		return invalid("amount", "must not be zero")
	}
	switch tx.Type {
	case "":
		tx.Type = models.WalletTransactionType(walletTxType(tx.Amount))
	case models.WalletCredit:
		if tx.Amount.IsNegative() {
			return invalid("amount", "credit must be positive")
		}
	case models.WalletDebit:
		if tx.Amount.IsPositive() {
			return invalid("amount", "debit must be negative")
		}
	default:
		return invalid("type", "unknown wallet transaction type "+string(tx.Type))
	}
	return nil
}

// ApplyWalletTransaction logs a wallet transaction and applies it to the
// balance as one unit. Debits may not overdraw the wallet.
func (s *LedgerService) ApplyWalletTransaction(ctx context.Context, customerID int64, amount decimal.Decimal, description string, relatedOrderID *int64) (*models.Wallet, *models.WalletTransaction, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.ApplyWalletTransaction",
		attribute.Int64("customer_id", customerID))
	defer span.End()

	w, ok := s.findWallet(customerID)
	if !ok {
		return nil, nil, notFound("wallet for customer", customerID)
	}

	tx := models.WalletTransaction{
		WalletID:       w.ID,
		Amount:         amount,
		Description:    description,
		RelatedOrderID: relatedOrderID,
	}
	if err := normalizeWalletTx(&tx); err != nil {
		return nil, nil, err
	}

	unlock := s.store.Wallets.Lock(w.ID)
	defer unlock()

	updated, logged, err := s.applyWalletTxLocked(tx)
	if err != nil {
		return nil, nil, err
	}
	return &updated, &logged, nil
}

// applyWalletTxLocked applies a normalized transaction to its wallet and logs
// it. The caller holds the wallet lock.
func (s *LedgerService) applyWalletTxLocked(tx models.WalletTransaction) (models.Wallet, models.WalletTransaction, error) {
	now := s.clock.Now()
	updated, err := s.store.Wallets.UpdateLocked(tx.WalletID, func(w *models.Wallet) error {
		if w.Balance.Add(tx.Amount).IsNegative() {
			return invalid("amount", "insufficient wallet balance")
		}
		applyWalletAmount(w, tx.Amount, now)
		return nil
	})
	if err != nil {
		return models.Wallet{}, models.WalletTransaction{}, err
	}

	logged := s.store.WalletTransactions.Insert(func(id int64) models.WalletTransaction {
		t := tx
		t.ID = id
		t.CreatedAt = now
		return t
	})

	util.WalletOperationsTotal.WithLabelValues(string(logged.Type)).Inc()
	s.logger.Info("Wallet transaction applied",
		zap.Int64("wallet_id", updated.ID),
		zap.String("amount", tx.Amount.String()),
		zap.String("balance", updated.Balance.String()))
	return updated, logged, nil
}

// RefundPaymentToWallet credits a refunded payment back to its customer's
// wallet. The credit is the sum of the payment's completed refunds, capped at
// the payment amount, or the whole payment when no refund was recorded. A
// payment is credited at most once; later calls return a nil transaction.
func (s *LedgerService) RefundPaymentToWallet(ctx context.Context, paymentID int64) (*models.WalletTransaction, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.RefundPaymentToWallet",
		attribute.Int64("payment_id", paymentID))
	defer span.End()

	payment, ok := s.store.Payments.Get(paymentID)
	if !ok {
		return nil, notFound("payment", paymentID)
	}
	w, ok := s.findWallet(payment.CustomerID)
	if !ok {
		return nil, notFound("wallet for customer", payment.CustomerID)
	}

	amount := s.refundedAmount(payment)
	if !amount.IsPositive() {
		return nil, nil
	}

	unlock := s.store.Wallets.Lock(w.ID)
	defer unlock()

	if _, done := s.store.WalletTransactions.Find(func(t models.WalletTransaction) bool {
		return t.WalletID == w.ID && t.RelatedPaymentID != nil && *t.RelatedPaymentID == paymentID
	}); done {
		s.logger.Info("Payment already refunded to wallet", zap.Int64("payment_id", paymentID))
		return nil, nil
	}

	orderID, pid := payment.OrderID, payment.ID
	_, logged, err := s.applyWalletTxLocked(models.WalletTransaction{
		WalletID:         w.ID,
		Type:             models.WalletCredit,
		Amount:           amount,
		Description:      fmt.Sprintf("Refund of payment %d", payment.ID),
		RelatedOrderID:   &orderID,
		RelatedPaymentID: &pid,
	})
	if err != nil {
		return nil, err
	}
	return &logged, nil
}

func (s *LedgerService) refundedAmount(payment models.Payment) decimal.Decimal {
	refunds := s.store.Refunds.List(func(r models.Refund) bool {
		return r.PaymentID == payment.ID && r.Status == models.RefundStatusCompleted
	})
	if len(refunds) == 0 {
		return payment.Amount
	}

	total := decimal.Zero
	for _, r := range refunds {
		total = total.Add(r.Amount)
	}
	return decimal.Min(total, payment.Amount)
}

// ListWalletTransactions lists the transaction log of a customer's wallet
func (s *LedgerService) ListWalletTransactions(ctx context.Context, customerID int64) ([]models.WalletTransaction, error) {
	w, ok := s.findWallet(customerID)
	if !ok {
		return nil, notFound("wallet for customer", customerID)
	}
	return s.store.WalletTransactions.List(func(t models.WalletTransaction) bool {
		return t.WalletID == w.ID
	}), nil
}

// CreateRefund opens a pending refund against a payment
func (s *LedgerService) CreateRefund(ctx context.Context, input models.Refund) (*models.Refund, error) {
	payment, ok := s.store.Payments.Get(input.PaymentID)
	if !ok {
		return nil, notFound("payment", input.PaymentID)
	}
	if !input.Amount.IsPositive() {
		return nil, invalid("amount", "must be positive")
	}
	if input.Amount.GreaterThan(payment.Amount) {
		return nil, invalid("amount", "exceeds payment amount")
	}

	now := s.clock.Now()
	r := s.store.Refunds.Insert(func(id int64) models.Refund {
		return models.Refund{
			ID:        id,
			PaymentID: payment.ID,
			OrderID:   payment.OrderID,
			Amount:    input.Amount,
			Reason:    input.Reason,
			Status:    models.RefundStatusPending,
			CreatedAt: now,
		}
	})
	return &r, nil
}

// UpdateRefundStatus sets a refund's status; processedAt is stamped when it
// becomes completed.
func (s *LedgerService) UpdateRefundStatus(ctx context.Context, refundID int64, status models.RefundStatus) (*models.Refund, error) {
	if !status.Valid() {
		return nil, invalid("status", "unknown refund status "+string(status))
	}

	now := s.clock.Now()
	r, err := s.store.Refunds.Update(refundID, func(r *models.Refund) error {
		r.Status = status
		if status == models.RefundStatusCompleted && r.ProcessedAt == nil {
			processed := now
			r.ProcessedAt = &processed
		}
		return nil
	})
	if errors.Is(err, store.ErrNoRecord) {
		return nil, notFound("refund", refundID)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
