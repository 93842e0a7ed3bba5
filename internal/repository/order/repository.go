package order

import (
	"context"

	"musshk-backend/internal/domain"
)

type Repository interface {
	// CreateFromCart converts the pending cart into exactly one order. The
	// pending→converted transition is a compare-and-swap: when two callers
	// race, one wins and snapshots the cart; the loser gets the winner's
	// order back with won=false.
	CreateFromCart(ctx context.Context, cartID string, details *domain.PaymentDetails, paymentStatus string) (o *domain.Order, won bool, err error)

	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	GetByCartID(ctx context.Context, cartID string) (*domain.Order, error)
	// GetByGatewayOrderID finds the order materialized from the cart that was
	// registered under the gateway order id. Needed by completion signals that
	// arrive after conversion consumed the cart row.
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error)
}
