package httpserver

import (
	"net/http"

	"musshk-backend/internal/domain"
	cartsvc "musshk-backend/internal/service/cart"
	checkoutsvc "musshk-backend/internal/service/checkout"

	"github.com/gin-gonic/gin"
)

func (h *handlers) getCart(c *gin.Context) {
	sessionID := c.Param("sessionId")
	cart, err := h.deps.Carts.Get(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if cart == nil {
		c.JSON(http.StatusOK, emptyCart(sessionID))
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) addItem(c *gin.Context) {
	var in cartsvc.AddItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	cart, err := h.deps.Carts.AddItem(c.Request.Context(), c.Param("sessionId"), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) setItemQuantity(c *gin.Context) {
	var body struct {
		Quantity *int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Quantity == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quantity"})
		return
	}
	cart, err := h.deps.Carts.SetItemQuantity(c.Request.Context(), c.Param("sessionId"), c.Param("itemRef"), *body.Quantity)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) removeItem(c *gin.Context) {
	cart, err := h.deps.Carts.RemoveItem(c.Request.Context(), c.Param("sessionId"), c.Param("itemRef"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// clearCart deletes the session's cart. For caller flexibility the item
// identifier may also arrive in the body, in which case this is a removal,
// not a clear.
func (h *handlers) clearCart(c *gin.Context) {
	var body struct {
		ItemID string `json:"itemId"`
	}
	// A body is optional here; decode errors mean "no item ref supplied".
	_ = c.ShouldBindJSON(&body)

	ctx := c.Request.Context()
	sessionID := c.Param("sessionId")

	if body.ItemID != "" {
		cart, err := h.deps.Carts.RemoveItem(ctx, sessionID, body.ItemID)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, cart)
		return
	}

	if err := h.deps.Carts.Clear(ctx, sessionID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

func (h *handlers) checkout(c *gin.Context) {
	var in struct {
		ShippingAddress *domain.ShippingAddress `json:"shippingAddress"`
		PaymentMethod   string                  `json:"paymentMethod"`
		UserID          *string                 `json:"userId"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if in.ShippingAddress == nil || in.PaymentMethod == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Shipping address and payment method are required"})
		return
	}

	result, err := h.deps.Checkout.Begin(c.Request.Context(), c.Param("sessionId"), checkoutBeginInput(*in.ShippingAddress, in.PaymentMethod, in.UserID))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) adminPendingCarts(c *gin.Context) {
	carts, err := h.deps.Carts.ListPending(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, carts)
}

func (h *handlers) adminAllCarts(c *gin.Context) {
	carts, err := h.deps.Carts.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, carts)
}

func checkoutBeginInput(addr domain.ShippingAddress, method string, userID *string) checkoutsvc.BeginInput {
	return checkoutsvc.BeginInput{
		ShippingAddress: addr,
		PaymentMethod:   method,
		UserID:          userID,
	}
}

// emptyCart is the synthetic zero cart returned when a session has no open
// cart; reads never create one.
func emptyCart(sessionID string) gin.H {
	return gin.H{
		"id":        nil,
		"sessionId": sessionID,
		"items":     []domain.CartItem{},
		"total":     0,
	}
}
