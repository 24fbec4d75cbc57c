package api

import (
	"net/http"

	"delivery-ledger/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
)

const referralQRSize = 256

type pointsDeltaRequest struct {
	Delta int64 `json:"delta"`
}

type pointsRequest struct {
	Points      int64  `json:"points" binding:"required"`
	Description string `json:"description"`
	OrderID     *int64 `json:"order_id"`
}

type redeemRewardRequest struct {
	CustomerID int64 `json:"customer_id" binding:"required"`
}

type referralRequest struct {
	Code       string `json:"code" binding:"required"`
	CustomerID int64  `json:"customer_id" binding:"required"`
}

func (h *Handler) loyaltyRoutes(v1 *gin.RouterGroup) {
	v1.POST("/customers/:id/loyalty", h.createLoyaltyAccount)
	v1.GET("/customers/:id/loyalty", h.getLoyaltyAccount)
	v1.PATCH("/customers/:id/loyalty/points", h.updateLoyaltyPoints)
	v1.POST("/customers/:id/loyalty/earn", h.earnPoints)
	v1.POST("/customers/:id/loyalty/redeem", h.redeemPoints)
	v1.GET("/customers/:id/loyalty/transactions", h.loyaltyTransactions)
	v1.GET("/customers/:id/loyalty/referral-qr", h.referralQR)

	v1.POST("/rewards", h.createReward)
	v1.GET("/rewards", h.listRewards)
	v1.POST("/rewards/:id/redeem", h.redeemReward)
	v1.POST("/referrals", h.applyReferral)
}

func (h *Handler) createLoyaltyAccount(c *gin.Context) {
	customerID, ok := idParam(c, "id")
	if !ok {
		return
	}

	account, err := h.svc.Loyalty.CreateAccount(c.Request.Context(), customerID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, account)
}

func (h *Handler) getLoyaltyAccount(c *gin.Context) {
	customerID, ok := idParam(c, "id")
	if !ok {
		return
	}

	account, err := h.svc.Loyalty.GetAccount(c.Request.Context(), customerID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

func (h *Handler) updateLoyaltyPoints(c *gin.Context) {
	customerID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req pointsDeltaRequest
	if !bindJSON(c, &req) {
		return
	}

	account, err := h.svc.Loyalty.UpdateLoyaltyPoints(c.Request.Context(), customerID, req.Delta)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

func (h *Handler) earnPoints(c *gin.Context) {
	customerID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req pointsRequest
	if !bindJSON(c, &req) {
		return
	}

	account, err := h.svc.Loyalty.EarnPoints(c.Request.Context(), customerID, req.Points, req.Description, req.OrderID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

func (h *Handler) redeemPoints(c *gin.Context) {
	customerID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req pointsRequest
	if !bindJSON(c, &req) {
		return
	}

	account, err := h.svc.Loyalty.RedeemPoints(c.Request.Context(), customerID, req.Points, req.Description, req.OrderID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

func (h *Handler) loyaltyTransactions(c *gin.Context) {
	customerID, ok := idParam(c, "id")
	if !ok {
		return
	}

	txs, err := h.svc.Loyalty.ListTransactions(c.Request.Context(), customerID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, txs)
}

// referralQR renders the customer's referral code as a PNG QR code
func (h *Handler) referralQR(c *gin.Context) {
	customerID, ok := idParam(c, "id")
	if !ok {
		return
	}

	account, err := h.svc.Loyalty.GetAccount(c.Request.Context(), customerID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	png, err := qrcode.Encode(account.ReferralCode, qrcode.Medium, referralQRSize)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) createReward(c *gin.Context) {
	var req models.LoyaltyReward
	if !bindJSON(c, &req) {
		return
	}

	reward, err := h.svc.Loyalty.CreateReward(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, reward)
}

func (h *Handler) listRewards(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Loyalty.ListRewards(c.Request.Context()))
}

func (h *Handler) redeemReward(c *gin.Context) {
	rewardID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req redeemRewardRequest
	if !bindJSON(c, &req) {
		return
	}

	redemption, err := h.svc.Loyalty.RedeemReward(c.Request.Context(), req.CustomerID, rewardID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, redemption)
}

func (h *Handler) applyReferral(c *gin.Context) {
	var req referralRequest
	if !bindJSON(c, &req) {
		return
	}

	referrer, err := h.svc.Loyalty.ApplyReferral(c.Request.Context(), req.Code, req.CustomerID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, referrer)
}
