package domain

import "time"

// Payment statuses on an order.
const (
	PaymentStatusPending = "Pending"
	PaymentStatusPaid    = "Paid"
	PaymentStatusFailed  = "Failed"
)

// Fulfilment statuses on an order. The checkout flow only ever writes
// Processing; the remaining values belong to order management.
const (
	OrderStatusPending    = "Pending"
	OrderStatusProcessing = "Processing"
	OrderStatusShipped    = "Shipped"
	OrderStatusDelivered  = "Delivered"
	OrderStatusCancelled  = "Cancelled"
)

// Order is the immutable record materialized from a paid (or COD) pending
// cart. Items are snapshots frozen at purchase time, decoupled from live
// product data.
type Order struct {
	ID              string           `json:"id"`
	OrderNumber     string           `json:"orderNumber"`
	CartID          string           `json:"-"`
	UserID          *string          `json:"userId,omitempty"`
	Items           []OrderItem      `json:"items"`
	TotalAmount     int64            `json:"totalAmount"`
	ShippingAddress ShippingAddress  `json:"shippingAddress"`
	PaymentMethod   string           `json:"paymentMethod"`
	PaymentStatus   string           `json:"paymentStatus"`
	OrderStatus     string           `json:"orderStatus"`
	TrackingNumber  *string          `json:"trackingNumber,omitempty"`
	PaymentDetails  *PaymentDetails  `json:"paymentDetails,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
}

type OrderItem struct {
	ID        string `json:"id"`
	OrderID   string `json:"orderId"`
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Size      string `json:"size"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
}

// PaymentDetails carries the raw gateway references attached to a paid
// order for later reconciliation with the gateway dashboard.
type PaymentDetails struct {
	GatewayOrderID   string `json:"gatewayOrderId,omitempty"`
	GatewayPaymentID string `json:"gatewayPaymentId,omitempty"`
	GatewaySignature string `json:"gatewaySignature,omitempty"`
}
