package cart

import (
	"context"
	"time"

	"musshk-backend/internal/domain"
)

// BeginCheckoutInput captures everything written to a cart when it
// transitions to pending.
type BeginCheckoutInput struct {
	SessionID       string
	ShippingAddress domain.ShippingAddress
	PaymentMethod   string
	UserID          *string
}

type Repository interface {
	// GetOpenBySession returns the active or pending cart for the session,
	// including an expired one that has not been reclaimed yet; callers
	// decide how to treat expiry. Never creates a row.
	GetOpenBySession(ctx context.Context, sessionID string) (*domain.Cart, error)
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Cart, error)

	// AddItem finds or creates the open cart for the session and merges the
	// item into it under a row-level lock. ttl applies to newly created carts.
	AddItem(ctx context.Context, sessionID string, item domain.CartItem, ttl time.Duration) (*domain.Cart, error)
	SetItemQuantity(ctx context.Context, sessionID, itemRef string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, sessionID, itemRef string) (*domain.Cart, error)
	Delete(ctx context.Context, sessionID string) error

	BeginCheckout(ctx context.Context, in BeginCheckoutInput) (*domain.Cart, error)
	SetGatewayOrderID(ctx context.Context, cartID, gatewayOrderID string) error
	RevertPending(ctx context.Context, sessionID string) (*domain.Cart, error)
	MarkFailed(ctx context.Context, cartID string) error

	DeleteExpired(ctx context.Context) (int64, error)
	ListByStatus(ctx context.Context, status string) ([]domain.Cart, error)
	ListAll(ctx context.Context) ([]domain.Cart, error)
}
