package razorpay

import (
	"encoding/json"
	"fmt"
)

// EventKind narrows the gateway's loosely-typed webhook payloads to the
// cases the checkout flow acts on. Anything else is EventUnknown and
// acknowledged without side effects.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventPaymentCaptured
	EventPaymentFailed
	EventOrderPaid
)

// WebhookEvent is the validated, typed form of a gateway callback.
type WebhookEvent struct {
	Kind           EventKind
	GatewayOrderID string
	PaymentID      string
	// CartID is the correlation id echoed back from the order notes.
	CartID      string
	ErrorReason string
}

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity orderEntity `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

type paymentEntity struct {
	ID               string            `json:"id"`
	OrderID          string            `json:"order_id"`
	Status           string            `json:"status"`
	ErrorDescription string            `json:"error_description"`
	Notes            map[string]string `json:"notes"`
}

type orderEntity struct {
	ID     string            `json:"id"`
	Status string            `json:"status"`
	Notes  map[string]string `json:"notes"`
}

// ParseWebhookEvent validates and narrows a raw webhook body. The caller
// must have verified the signature first.
func ParseWebhookEvent(body []byte) (WebhookEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return WebhookEvent{}, fmt.Errorf("decode webhook payload: %w", err)
	}

	payment := env.Payload.Payment.Entity
	order := env.Payload.Order.Entity

	ev := WebhookEvent{
		GatewayOrderID: payment.OrderID,
		PaymentID:      payment.ID,
		CartID:         payment.Notes["cartId"],
	}
	if ev.GatewayOrderID == "" {
		ev.GatewayOrderID = order.ID
	}
	if ev.CartID == "" {
		ev.CartID = order.Notes["cartId"]
	}

	switch env.Event {
	case "payment.captured":
		ev.Kind = EventPaymentCaptured
	case "order.paid":
		ev.Kind = EventOrderPaid
	case "payment.failed":
		ev.Kind = EventPaymentFailed
		ev.ErrorReason = payment.ErrorDescription
	default:
		ev.Kind = EventUnknown
	}
	return ev, nil
}
