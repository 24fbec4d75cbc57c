package api

import (
	"net/http"

	"delivery-ledger/internal/models"

	"github.com/gin-gonic/gin"
)

type helpfulRequest struct {
	Helpful *bool `json:"helpful" binding:"required"`
}

type reviewResponseRequest struct {
	Response string `json:"response" binding:"required"`
}

func (h *Handler) vendorRoutes(v1 *gin.RouterGroup) {
	v1.POST("/reviews", h.addReview)
	v1.POST("/reviews/:id/helpful", h.markHelpful)
	v1.POST("/reviews/:id/response", h.respondToReview)
	v1.GET("/vendors/:id/reviews", h.vendorReviews)
	v1.GET("/vendors/:id/performance", h.vendorPerformance)
	v1.POST("/vendors/:id/performance/recompute", h.recomputePerformance)
}

// addReview stores a review and returns the vendor's refreshed performance
func (h *Handler) addReview(c *gin.Context) {
	var req models.VendorReview
	if !bindJSON(c, &req) {
		return
	}

	review, perf, err := h.svc.Reputation.AddReview(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"review":      review,
		"performance": perf,
	})
}

func (h *Handler) markHelpful(c *gin.Context) {
	reviewID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req helpfulRequest
	if !bindJSON(c, &req) {
		return
	}

	review, err := h.svc.Reputation.MarkHelpful(c.Request.Context(), reviewID, *req.Helpful)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

func (h *Handler) respondToReview(c *gin.Context) {
	reviewID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req reviewResponseRequest
	if !bindJSON(c, &req) {
		return
	}

	review, err := h.svc.Reputation.RespondToReview(c.Request.Context(), reviewID, req.Response)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

func (h *Handler) vendorReviews(c *gin.Context) {
	if id, ok := idParam(c, "id"); ok {
		c.JSON(http.StatusOK, h.svc.Reputation.ListReviews(c.Request.Context(), id))
	}
}

func (h *Handler) vendorPerformance(c *gin.Context) {
	vendorID, ok := idParam(c, "id")
	if !ok {
		return
	}

	perf, err := h.svc.Reputation.GetPerformance(c.Request.Context(), vendorID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, perf)
}

func (h *Handler) recomputePerformance(c *gin.Context) {
	if id, ok := idParam(c, "id"); ok {
		c.JSON(http.StatusOK, h.svc.Reputation.RecomputeVendorPerformance(c.Request.Context(), id))
	}
}
