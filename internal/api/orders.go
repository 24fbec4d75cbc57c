package api

import (
	"net/http"
	"time"

	"delivery-ledger/internal/models"

	"github.com/gin-gonic/gin"
)

type updateStatusRequest struct {
	Status   models.OrderStatus `json:"status" binding:"required"`
	DriverID *int64             `json:"driver_id"`
}

type assignDriverRequest struct {
	DriverID int64 `json:"driver_id" binding:"required"`
}

func (h *Handler) orderRoutes(v1 *gin.RouterGroup) {
	v1.POST("/orders", h.createOrder)
	v1.GET("/orders/pending", h.pendingOrders)
	v1.GET("/orders/available", h.availableOrders)
	v1.GET("/orders/scheduled", h.scheduledOrders)
	v1.GET("/orders/:id", h.getOrder)
	v1.GET("/orders/:id/history", h.orderHistory)
	v1.POST("/orders/:id/status", h.updateOrderStatus)
	v1.POST("/orders/:id/assign", h.assignDriver)
	v1.GET("/payment-methods/:method/orders", h.ordersByPaymentMethod)
	v1.GET("/customers/:id/orders", h.ordersByCustomer)
	v1.GET("/stores/:id/orders", h.ordersByStore)
	v1.GET("/stores/:id/revenue", h.storeRevenue)
	v1.GET("/drivers/:id/orders", h.ordersByDriver)
}

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	var req models.Order
	if !bindJSON(c, &req) {
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	order, err := h.svc.Orders.CreateOrder(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	order, err := h.svc.Orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// orderHistory returns the archived transitions of an order
func (h *Handler) orderHistory(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}
	if h.history == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error": "Order archive is disabled",
		})
		return
	}

	rows, err := h.history.OrderHistory(c.Request.Context(), orderID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id": orderID,
		"history":  rows,
	})
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req updateStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.svc.Orders.UpdateStatus(c.Request.Context(), orderID, req.Status, req.DriverID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *Handler) assignDriver(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req assignDriverRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.svc.Orders.AssignDriver(c.Request.Context(), orderID, req.DriverID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *Handler) pendingOrders(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Orders.PendingOrders(c.Request.Context()))
}

func (h *Handler) availableOrders(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Orders.AvailableForPickup(c.Request.Context()))
}

// scheduledOrders lists orders scheduled on ?date=YYYY-MM-DD
func (h *Handler) scheduledOrders(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid date",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, h.svc.Orders.ScheduledFor(c.Request.Context(), date))
}

func (h *Handler) ordersByPaymentMethod(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Orders.OrdersByPaymentMethod(c.Request.Context(), c.Param("method")))
}

func (h *Handler) ordersByCustomer(c *gin.Context) {
	if id, ok := idParam(c, "id"); ok {
		c.JSON(http.StatusOK, h.svc.Orders.OrdersByCustomer(c.Request.Context(), id))
	}
}

func (h *Handler) ordersByStore(c *gin.Context) {
	if id, ok := idParam(c, "id"); ok {
		c.JSON(http.StatusOK, h.svc.Orders.OrdersByStore(c.Request.Context(), id))
	}
}

func (h *Handler) ordersByDriver(c *gin.Context) {
	if id, ok := idParam(c, "id"); ok {
		c.JSON(http.StatusOK, h.svc.Orders.OrdersByDriver(c.Request.Context(), id))
	}
}

func (h *Handler) storeRevenue(c *gin.Context) {
	storeID, ok := idParam(c, "id")
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"store_id": storeID,
		"revenue":  h.svc.Orders.OrderRevenue(c.Request.Context(), storeID),
	})
}
