package api

import (
	"context"
	"net/http"

	"delivery-ledger/internal/models"
	"delivery-ledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type paymentStatusRequest struct {
	Status        models.PaymentStatus `json:"status" binding:"required"`
	TransactionID string               `json:"transaction_id"`
}

type walletAmountRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
	RelatedOrderID *int64          `json:"related_order_id"`
}

type refundStatusRequest struct {
	Status models.RefundStatus `json:"status" binding:"required"`
}

func (h *Handler) ledgerRoutes(v1 *gin.RouterGroup) {
	v1.POST("/customers", h.createCustomer)
	v1.GET("/customers", h.listCustomers)
	v1.GET("/customers/:id", h.getCustomer)

	v1.POST("/sales", h.recordSale)
	v1.GET("/sales/today", h.salesWindow(h.svc.Ledger.TodaySales))
	v1.GET("/sales/week", h.salesWindow(h.svc.Ledger.WeekSales))
	v1.GET("/sales/month", h.salesWindow(h.svc.Ledger.MonthSales))
	v1.GET("/sales/top-products", h.topSellingProducts)
	v1.GET("/sales/:id", h.getSale)

	v1.POST("/payments", h.createPayment)
	v1.GET("/payments/:id", h.getPayment)
	v1.POST("/payments/:id/status", h.updatePaymentStatus)
	v1.GET("/orders/:id/payments", h.paymentsByOrder)

	v1.POST("/customers/:id/wallet", h.createWallet)
	v1.GET("/customers/:id/wallet", h.getWallet)
	v1.PUT("/customers/:id/wallet/balance", h.updateWalletBalance)
	v1.POST("/customers/:id/wallet/transactions", h.applyWalletTransaction)
	v1.GET("/customers/:id/wallet/transactions", h.listWalletTransactions)
	v1.POST("/wallet-transactions", h.createWalletTransaction)

	v1.POST("/refunds", h.createRefund)
	v1.POST("/refunds/:id/status", h.updateRefundStatus)
}

func (h *Handler) createCustomer(c *gin.Context) {
	var req models.Customer
	if !bindJSON(c, &req) {
		return
	}

	customer, err := h.svc.Ledger.CreateCustomer(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, customer)
}

func (h *Handler) listCustomers(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Ledger.ListCustomers(c.Request.Context()))
}

func (h *Handler) getCustomer(c *gin.Context) {
	customerID, ok := idParam(c, "id")
	if !ok {
		return
	}

	customer, err := h.svc.Ledger.GetCustomer(c.Request.Context(), customerID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, customer)
}

// recordSale records a POS sale with its stock and customer effects
func (h *Handler) recordSale(c *gin.Context) {
	var req models.Sale
	if !bindJSON(c, &req) {
		return
	}

	sale, err := h.svc.Ledger.RecordSale(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sale)
}

func (h *Handler) getSale(c *gin.Context) {
	saleID, ok := idParam(c, "id")
	if !ok {
		return
	}

	sale, err := h.svc.Ledger.GetSale(c.Request.Context(), saleID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sale)
}

// salesWindow serves one of the calendar sales windows with its summary
func (h *Handler) salesWindow(window func(ctx context.Context) []models.Sale) gin.HandlerFunc {
	return func(c *gin.Context) {
		sales := window(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"sales":   sales,
			"summary": service.SummarizeSales(sales),
		})
	}
}

func (h *Handler) topSellingProducts(c *gin.Context) {
	limit := intQuery(c, "limit", 10)
	c.JSON(http.StatusOK, h.svc.Ledger.TopSellingProducts(c.Request.Context(), limit))
}

func (h *Handler) createPayment(c *gin.Context) {
	var req models.Payment
	if !bindJSON(c, &req) {
		return
	}

	payment, err := h.svc.Ledger.CreatePayment(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, payment)
}

func (h *Handler) getPayment(c *gin.Context) {
	paymentID, ok := idParam(c, "id")
	if !ok {
		return
	}

	payment, err := h.svc.Ledger.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

func (h *Handler) updatePaymentStatus(c *gin.Context) {
	paymentID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req paymentStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	payment, err := h.svc.Ledger.UpdatePaymentStatus(c.Request.Context(), paymentID, req.Status, req.TransactionID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

func (h *Handler) paymentsByOrder(c *gin.Context) {
	if id, ok := idParam(c, "id"); ok {
		c.JSON(http.StatusOK, h.svc.Ledger.PaymentsByOrder(c.Request.Context(), id))
	}
}

func (h *Handler) createWallet(c *gin.Context) {
	customerID, ok := idParam(c, "id")
	if !ok {
		return
	}

	wallet, err := h.svc.Ledger.CreateWallet(c.Request.Context(), customerID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, wallet)
}

func (h *Handler) getWallet(c *gin.Context) {
	customerID, ok := idParam(c, "id")
	if !ok {
		return
	}

	wallet, err := h.svc.Ledger.GetWallet(c.Request.Context(), customerID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, wallet)
}

// updateWalletBalance moves the balance without writing a transaction record
func (h *Handler) updateWalletBalance(c *gin.Context) {
	customerID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req walletAmountRequest
	if !bindJSON(c, &req) {
		return
	}

	wallet, err := h.svc.Ledger.UpdateWalletBalance(c.Request.Context(), customerID, req.Amount)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, wallet)
}

// applyWalletTransaction moves the balance and logs the transaction atomically
func (h *Handler) applyWalletTransaction(c *gin.Context) {
	customerID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req walletAmountRequest
	if !bindJSON(c, &req) {
		return
	}

	wallet, tx, err := h.svc.Ledger.ApplyWalletTransaction(c.Request.Context(), customerID, req.Amount, req.Description, req.RelatedOrderID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"wallet":      wallet,
		"transaction": tx,
	})
}

func (h *Handler) createWalletTransaction(c *gin.Context) {
	var req models.WalletTransaction
	if !bindJSON(c, &req) {
		return
	}

	tx, err := h.svc.Ledger.CreateWalletTransaction(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, tx)
}

func (h *Handler) listWalletTransactions(c *gin.Context) {
	customerID, ok := idParam(c, "id")
	if !ok {
		return
	}

	txs, err := h.svc.Ledger.ListWalletTransactions(c.Request.Context(), customerID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, txs)
}

func (h *Handler) createRefund(c *gin.Context) {
	var req models.Refund
	if !bindJSON(c, &req) {
		return
	}

	refund, err := h.svc.Ledger.CreateRefund(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, refund)
}

func (h *Handler) updateRefundStatus(c *gin.Context) {
	refundID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req refundStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	refund, err := h.svc.Ledger.UpdateRefundStatus(c.Request.Context(), refundID, req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, refund)
}
