package api

import (
	"net/http"

	"delivery-ledger/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) directoryRoutes(v1 *gin.RouterGroup) {
	v1.POST("/users", h.createUser)
	v1.GET("/users", h.listUsers)
	v1.GET("/users/:id", h.getUser)

	v1.POST("/stores", h.createStore)
	v1.GET("/stores/:id", h.getStore)

	v1.POST("/suppliers", h.createSupplier)
	v1.GET("/suppliers", h.listSuppliers)
}

func (h *Handler) createUser(c *gin.Context) {
	var req models.User
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.svc.Directory.CreateUser(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// listUsers lists users, optionally filtered by ?role=
func (h *Handler) listUsers(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Directory.ListUsers(c.Request.Context(), models.Role(c.Query("role"))))
}

func (h *Handler) getUser(c *gin.Context) {
	userID, ok := idParam(c, "id")
	if !ok {
		return
	}

	user, err := h.svc.Directory.GetUser(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *Handler) createStore(c *gin.Context) {
	var req models.Store
	if !bindJSON(c, &req) {
		return
	}

	st, err := h.svc.Directory.CreateStore(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, st)
}

func (h *Handler) getStore(c *gin.Context) {
	storeID, ok := idParam(c, "id")
	if !ok {
		return
	}

	st, err := h.svc.Directory.GetStore(c.Request.Context(), storeID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, st)
}

func (h *Handler) createSupplier(c *gin.Context) {
	var req models.Supplier
	if !bindJSON(c, &req) {
		return
	}

	supplier, err := h.svc.Directory.CreateSupplier(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, supplier)
}

func (h *Handler) listSuppliers(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Directory.ListSuppliers(c.Request.Context()))
}
