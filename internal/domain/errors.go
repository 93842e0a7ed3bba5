package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrEmptyCart indicates checkout was attempted on a cart with no items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrCartExpired indicates the user tried to resume a cart whose TTL passed.
	ErrCartExpired = errors.New("cart expired")
	// ErrCartNotPending indicates a payment operation on a cart that is not
	// awaiting payment.
	ErrCartNotPending = errors.New("cart is not pending payment")
	// ErrPaymentVerification indicates a payment signal whose signature could
	// not be verified. It never creates or marks an order; the webhook remains
	// the authoritative channel.
	ErrPaymentVerification = errors.New("payment verification failed")
)

// ValidationError reports a single invalid or missing request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a field-level validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// LineNotFoundError is returned when a quantity-update or removal names a
// line that is not in the cart. LineIDs enumerates the identifiers actually
// present so the client can reconcile local state drift.
type LineNotFoundError struct {
	LineIDs []string
}

func (e *LineNotFoundError) Error() string {
	return "line item not found in cart"
}

func (e *LineNotFoundError) Unwrap() error {
	return ErrNotFound
}
