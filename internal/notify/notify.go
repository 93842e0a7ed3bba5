// Package notify publishes cart lifecycle events so UI layers can refresh
// without polling.
package notify

import "context"

// Event types published on the cart channel.
const (
	EventCartChanged   = "cart.changed"
	EventCartConverted = "cart.converted"
)

type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	CartID    string `json:"cartId,omitempty"`
	OrderID   string `json:"orderId,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Noop discards events; used in tests and when Redis is not configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
