package domain

import "time"

// Cart statuses. A cart is "open" while active or pending; the other
// statuses are terminal.
const (
	CartStatusActive    = "active"
	CartStatusPending   = "pending"
	CartStatusConverted = "converted"
	CartStatusExpired   = "expired"
	CartStatusFailed    = "failed"
)

// Payment methods accepted at checkout.
const (
	PaymentMethodCOD    = "COD"
	PaymentMethodOnline = "Online"
)

type Cart struct {
	ID              string           `json:"id"`
	SessionID       string           `json:"sessionId"`
	UserID          *string          `json:"userId,omitempty"`
	Status          string           `json:"status"`
	Items           []CartItem       `json:"items"`
	Total           int64            `json:"total"`
	ShippingAddress *ShippingAddress `json:"shippingAddress,omitempty"`
	PaymentMethod   string           `json:"paymentMethod,omitempty"`
	GatewayOrderID  *string          `json:"gatewayOrderId,omitempty"`
	ExpiresAt       time.Time        `json:"expiresAt"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// CartItem is one prospective purchase line. Lines are unique per
// (ProductID, Size) within a cart; adding the same pair again increments
// Quantity instead of appending.
type CartItem struct {
	ID        string    `json:"id"`
	CartID    string    `json:"cartId"`
	ProductID string    `json:"productId"`
	Name      string    `json:"name"`
	Size      string    `json:"size"`
	UnitPrice int64     `json:"unitPrice"`
	Quantity  int       `json:"quantity"`
	Image     string    `json:"image,omitempty"`
	Total     int64     `json:"total"`
	CreatedAt time.Time `json:"createdAt"`
}

// ShippingAddress holds the postal fields captured at checkout.
type ShippingAddress struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Country string `json:"country"`
}

// IsOpen reports whether the cart can still be mutated.
func (c *Cart) IsOpen() bool {
	return c.Status == CartStatusActive || c.Status == CartStatusPending
}

// Expired reports whether the cart's TTL has passed at the given instant.
func (c *Cart) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// LineIDs returns the identifiers of the current lines, used by not-found
// payloads so clients can reconcile local state.
func (c *Cart) LineIDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		ids = append(ids, item.ID)
	}
	return ids
}
