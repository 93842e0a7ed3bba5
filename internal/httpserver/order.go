package httpserver

import (
	"net/http"

	"musshk-backend/internal/domain"

	"github.com/gin-gonic/gin"
)

// createOrder is the direct creation path for cash on delivery. Online
// orders are only ever created by payment confirmation.
func (h *handlers) createOrder(c *gin.Context) {
	var in struct {
		SessionID       string                  `json:"sessionId"`
		ShippingAddress *domain.ShippingAddress `json:"shippingAddress"`
		PaymentMethod   string                  `json:"paymentMethod"`
		UserID          *string                 `json:"userId"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if in.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessionId is required"})
		return
	}
	if in.PaymentMethod != domain.PaymentMethodCOD {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only COD orders are created directly; online orders are created by payment confirmation"})
		return
	}
	if in.ShippingAddress == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Shipping address is required"})
		return
	}

	result, err := h.deps.Checkout.Begin(c.Request.Context(), in.SessionID, checkoutBeginInput(*in.ShippingAddress, in.PaymentMethod, in.UserID))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, result.Order)
}

func (h *handlers) getOrder(c *gin.Context) {
	order, err := h.deps.Checkout.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// trackOrder looks an order up by its human-facing number.
func (h *handlers) trackOrder(c *gin.Context) {
	orderNumber := c.Query("orderNumber")
	if orderNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderNumber query parameter is required"})
		return
	}
	order, err := h.deps.Checkout.GetOrderByNumber(c.Request.Context(), orderNumber)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
