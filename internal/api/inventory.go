package api

import (
	"net/http"

	"delivery-ledger/internal/models"

	"github.com/gin-gonic/gin"
)

type adjustStockRequest struct {
	Delta int `json:"delta"`
}

func (h *Handler) inventoryRoutes(v1 *gin.RouterGroup) {
	v1.POST("/products", h.createProduct)
	v1.GET("/products", h.listProducts)
	v1.GET("/products/low-stock", h.lowStock)
	v1.GET("/products/barcode/:barcode", h.productByBarcode)
	v1.GET("/products/:id", h.getProduct)
	v1.POST("/products/:id/adjust", h.adjustStock)
	v1.GET("/inventory/value", h.inventoryValue)
}

func (h *Handler) createProduct(c *gin.Context) {
	var req models.InventoryProduct
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.svc.Inventory.CreateProduct(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

// listProducts lists the catalogue, optionally filtered by ?category=
func (h *Handler) listProducts(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Inventory.ListProducts(c.Request.Context(), c.Query("category")))
}

func (h *Handler) getProduct(c *gin.Context) {
	productID, ok := idParam(c, "id")
	if !ok {
		return
	}

	product, err := h.svc.Inventory.GetProduct(c.Request.Context(), productID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *Handler) productByBarcode(c *gin.Context) {
	product, err := h.svc.Inventory.GetProductByBarcode(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// adjustStock applies a signed stock delta
func (h *Handler) adjustStock(c *gin.Context) {
	productID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req adjustStockRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.svc.Inventory.AdjustStock(c.Request.Context(), productID, req.Delta)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *Handler) lowStock(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Inventory.GetLowStock(c.Request.Context()))
}

func (h *Handler) inventoryValue(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"value": h.svc.Inventory.InventoryValue(c.Request.Context()),
	})
}
