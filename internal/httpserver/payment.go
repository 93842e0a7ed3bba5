package httpserver

import (
	"net/http"

	checkoutsvc "musshk-backend/internal/service/checkout"

	"github.com/gin-gonic/gin"
)

const webhookSignatureHeader = "X-Razorpay-Signature"

func (h *handlers) createPaymentOrder(c *gin.Context) {
	var in struct {
		CartID string `json:"cartId"`
		// Amount and receipt are accepted for compatibility with older
		// clients but ignored: both derive from the server-side cart.
		Amount  int64  `json:"amount"`
		Receipt string `json:"receipt"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.CartID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cartId is required"})
		return
	}
	order, err := h.deps.Checkout.CreatePaymentOrder(c.Request.Context(), in.CartID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *handlers) verifyPayment(c *gin.Context) {
	var in struct {
		RazorpayOrderID   string `json:"razorpay_order_id"`
		RazorpayPaymentID string `json:"razorpay_payment_id"`
		RazorpaySignature string `json:"razorpay_signature"`
		CartID            string `json:"cartId"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if in.RazorpayOrderID == "" || in.RazorpayPaymentID == "" || in.RazorpaySignature == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing payment confirmation fields"})
		return
	}

	order, err := h.deps.Checkout.ConfirmClientPayment(c.Request.Context(), checkoutsvc.VerifyInput{
		GatewayOrderID: in.RazorpayOrderID,
		PaymentID:      in.RazorpayPaymentID,
		Signature:      in.RazorpaySignature,
		CartID:         in.CartID,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orderId": order.ID, "orderNumber": order.OrderNumber})
}

// abandonPayment reverts the session's pending cart to active after the
// buyer dismisses the hosted flow. The payment may still have gone through;
// a later webhook wins in that case.
func (h *handlers) abandonPayment(c *gin.Context) {
	var in struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessionId is required"})
		return
	}
	cart, err := h.deps.Checkout.Abandon(c.Request.Context(), in.SessionID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) paymentWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable body"})
		return
	}
	if err := h.deps.Checkout.HandleWebhook(c.Request.Context(), body, c.GetHeader(webhookSignatureHeader)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
