package httpserver

import (
	"errors"
	"log"
	"net/http"

	"musshk-backend/internal/domain"

	"github.com/gin-gonic/gin"
)

// respondError maps domain errors onto HTTP responses. Not-found errors for
// cart lines carry the identifiers currently present so clients can
// reconcile local state drift.
func respondError(c *gin.Context, logger *log.Logger, err error) {
	var validationErr *domain.ValidationError
	var lineErr *domain.LineNotFoundError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Message, "field": validationErr.Field})
	case errors.As(err, &lineErr):
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found in cart", "lineItemIds": lineErr.LineIDs})
	case errors.Is(err, domain.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty. Please add items to cart first."})
	case errors.Is(err, domain.ErrCartExpired):
		c.JSON(http.StatusGone, gin.H{"error": "Cart has expired. Please start a new cart."})
	case errors.Is(err, domain.ErrCartNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": "Cart is not awaiting payment"})
	case errors.Is(err, domain.ErrPaymentVerification):
		// Not fatal to the order: the webhook remains the authoritative
		// channel, so the client is told to wait rather than to fail.
		c.JSON(http.StatusPaymentRequired, gin.H{
			"success": false,
			"error":   "Payment verification failed",
			"status":  "pending_confirmation",
		})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		if logger != nil {
			logger.Printf("internal error: %v", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
