// Package checkout coordinates the cart-to-order transition: binding a cart
// to shipping and payment details, reconciling the gateway's two completion
// channels, and materializing exactly one order per paid cart.
package checkout

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"musshk-backend/internal/domain"
	"musshk-backend/internal/notify"
	"musshk-backend/internal/payment/razorpay"
	cartrepo "musshk-backend/internal/repository/cart"
)

type Service struct {
	carts     cartRepo
	orders    orderRepo
	gateway   Gateway
	publisher notify.Publisher
	logger    *log.Logger
}

type cartRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Cart, error)
	BeginCheckout(ctx context.Context, in cartrepo.BeginCheckoutInput) (*domain.Cart, error)
	SetGatewayOrderID(ctx context.Context, cartID, gatewayOrderID string) error
	RevertPending(ctx context.Context, sessionID string) (*domain.Cart, error)
	MarkFailed(ctx context.Context, cartID string) error
}

type orderRepo interface {
	CreateFromCart(ctx context.Context, cartID string, details *domain.PaymentDetails, paymentStatus string) (*domain.Order, bool, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error)
}

// Gateway is the slice of the payment adapter the coordinator needs.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, receipt string, notes map[string]string) (*razorpay.GatewayOrder, error)
	KeyID() string
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
}

func New(carts cartRepo, orders orderRepo, gateway Gateway, publisher notify.Publisher, logger *log.Logger) *Service {
	if publisher == nil {
		publisher = notify.Noop{}
	}
	return &Service{carts: carts, orders: orders, gateway: gateway, publisher: publisher, logger: logger}
}

type BeginInput struct {
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	UserID          *string                `json:"userId,omitempty"`
}

// BeginResult carries the pending cart and, on the cash-on-delivery path,
// the order materialized immediately from it.
type BeginResult struct {
	Cart  *domain.Cart  `json:"cart"`
	Order *domain.Order `json:"order,omitempty"`
}

// Begin flips the session's active cart to pending with the captured
// shipping address and payment method. Cash on delivery has no payment
// window: the order is materialized before returning and the cart cleared.
func (s *Service) Begin(ctx context.Context, sessionID string, in BeginInput) (*BeginResult, error) {
	if in.PaymentMethod != domain.PaymentMethodCOD && in.PaymentMethod != domain.PaymentMethodOnline {
		return nil, domain.NewValidationError("paymentMethod", "paymentMethod must be COD or Online")
	}
	if err := validateAddress(in.ShippingAddress, in.PaymentMethod); err != nil {
		return nil, err
	}

	cart, err := s.carts.BeginCheckout(ctx, cartrepo.BeginCheckoutInput{
		SessionID:       sessionID,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		UserID:          in.UserID,
	})
	if err != nil {
		return nil, err
	}

	result := &BeginResult{Cart: cart}
	if in.PaymentMethod == domain.PaymentMethodCOD {
		order, won, err := s.orders.CreateFromCart(ctx, cart.ID, nil, domain.PaymentStatusPending)
		if err != nil {
			return nil, err
		}
		cart.Status = domain.CartStatusConverted
		result.Order = order
		if won {
			s.publishConverted(ctx, cart.SessionID, cart.ID, order.ID)
		}
	}
	return result, nil
}

// PaymentOrder is what the browser checkout widget needs to open the hosted
// flow. Amount is in the gateway's minor unit.
type PaymentOrder struct {
	GatewayOrderID string `json:"id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	KeyID          string `json:"key"`
}

// CreatePaymentOrder registers the pending cart's total with the gateway.
// The amount is always taken from the server-side cart, never the caller.
func (s *Service) CreatePaymentOrder(ctx context.Context, cartID string) (*PaymentOrder, error) {
	cart, err := s.carts.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart.Status != domain.CartStatusPending {
		return nil, domain.ErrCartNotPending
	}
	if cart.Expired(time.Now()) {
		return nil, domain.ErrCartExpired
	}
	if cart.PaymentMethod != domain.PaymentMethodOnline {
		return nil, domain.NewValidationError("paymentMethod", "cart is not checked out for online payment")
	}

	gw, err := s.gateway.CreateOrder(ctx, cart.Total, cart.ID, map[string]string{
		"cartId":    cart.ID,
		"sessionId": cart.SessionID,
	})
	if err != nil {
		return nil, err
	}
	if err := s.carts.SetGatewayOrderID(ctx, cart.ID, gw.ID); err != nil {
		return nil, err
	}

	return &PaymentOrder{
		GatewayOrderID: gw.ID,
		Amount:         gw.Amount,
		Currency:       gw.Currency,
		KeyID:          s.gateway.KeyID(),
	}, nil
}

type VerifyInput struct {
	GatewayOrderID string
	PaymentID      string
	Signature      string
	CartID         string
}

// ConfirmClientPayment handles the browser-side completion signal. An
// unverifiable signature never creates or marks an order; the webhook stays
// authoritative for the eventual outcome.
func (s *Service) ConfirmClientPayment(ctx context.Context, in VerifyInput) (*domain.Order, error) {
	if !s.gateway.VerifyPaymentSignature(in.GatewayOrderID, in.PaymentID, in.Signature) {
		return nil, domain.ErrPaymentVerification
	}

	cartID := in.CartID
	if cartID == "" {
		cart, err := s.carts.GetByGatewayOrderID(ctx, in.GatewayOrderID)
		switch {
		case err == nil:
			cartID = cart.ID
		case errors.Is(err, domain.ErrNotFound):
			// The webhook may have won already: conversion consumes the cart
			// row, so the gateway order id now lives on the winner's order.
			return s.orders.GetByGatewayOrderID(ctx, in.GatewayOrderID)
		default:
			return nil, err
		}
	}

	details := &domain.PaymentDetails{
		GatewayOrderID:   in.GatewayOrderID,
		GatewayPaymentID: in.PaymentID,
		GatewaySignature: in.Signature,
	}
	order, won, err := s.orders.CreateFromCart(ctx, cartID, details, domain.PaymentStatusPaid)
	if err != nil {
		return nil, err
	}
	if won {
		s.publishConverted(ctx, "", cartID, order.ID)
	}
	return order, nil
}

// HandleWebhook processes a gateway webhook delivery. Deliveries may be
// duplicated, delayed, or arrive before or instead of the client callback;
// materialization's pending→converted guard absorbs all orderings.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !s.gateway.VerifyWebhookSignature(body, signature) {
		return domain.ErrPaymentVerification
	}
	ev, err := razorpay.ParseWebhookEvent(body)
	if err != nil {
		return err
	}

	switch ev.Kind {
	case razorpay.EventPaymentCaptured, razorpay.EventOrderPaid:
		return s.confirmFromWebhook(ctx, ev)
	case razorpay.EventPaymentFailed:
		return s.failFromWebhook(ctx, ev)
	default:
		return nil
	}
}

func (s *Service) confirmFromWebhook(ctx context.Context, ev razorpay.WebhookEvent) error {
	cartID, err := s.resolveCart(ctx, ev)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// The cart is gone: either already converted (and reclaimed) or
			// reaped. Acknowledge so the gateway stops retrying.
			s.logf("webhook: no cart for gateway order %s", ev.GatewayOrderID)
			return nil
		}
		return err
	}

	details := &domain.PaymentDetails{
		GatewayOrderID:   ev.GatewayOrderID,
		GatewayPaymentID: ev.PaymentID,
	}
	order, won, err := s.orders.CreateFromCart(ctx, cartID, details, domain.PaymentStatusPaid)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrCartNotPending) || errors.Is(err, domain.ErrCartExpired) {
			s.logf("webhook: cart %s not convertible: %v", cartID, err)
			return nil
		}
		return err
	}
	if won {
		s.publishConverted(ctx, "", cartID, order.ID)
	}
	return nil
}

func (s *Service) failFromWebhook(ctx context.Context, ev razorpay.WebhookEvent) error {
	cartID, err := s.resolveCart(ctx, ev)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := s.carts.MarkFailed(ctx, cartID); err != nil {
		return err
	}
	s.logf("webhook: payment failed for cart %s: %s", cartID, ev.ErrorReason)
	s.publish(ctx, notify.Event{Type: notify.EventCartChanged, CartID: cartID})
	return nil
}

func (s *Service) resolveCart(ctx context.Context, ev razorpay.WebhookEvent) (string, error) {
	if ev.CartID != "" {
		return ev.CartID, nil
	}
	if ev.GatewayOrderID == "" {
		return "", domain.ErrNotFound
	}
	cart, err := s.carts.GetByGatewayOrderID(ctx, ev.GatewayOrderID)
	if err != nil {
		return "", err
	}
	return cart.ID, nil
}

// Abandon reverts the session's pending cart to active after the buyer
// backs out of the hosted flow. A webhook that already converted the cart
// wins; in that case there is no pending cart left and ErrNotFound is
// returned.
func (s *Service) Abandon(ctx context.Context, sessionID string) (*domain.Cart, error) {
	cart, err := s.carts.RevertPending(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, notify.Event{Type: notify.EventCartChanged, SessionID: sessionID, CartID: cart.ID})
	return cart, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.orders.GetByID(ctx, id)
}

func (s *Service) GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return s.orders.GetByOrderNumber(ctx, orderNumber)
}

func (s *Service) publishConverted(ctx context.Context, sessionID, cartID, orderID string) {
	s.publish(ctx, notify.Event{
		Type:      notify.EventCartConverted,
		SessionID: sessionID,
		CartID:    cartID,
		OrderID:   orderID,
	})
}

func (s *Service) publish(ctx context.Context, ev notify.Event) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logf("publish %s: %v", ev.Type, err)
	}
}

func (s *Service) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

func validateAddress(addr domain.ShippingAddress, paymentMethod string) error {
	required := []struct {
		field, value string
	}{
		{"shippingAddress.name", addr.Name},
		{"shippingAddress.phone", addr.Phone},
		{"shippingAddress.address", addr.Address},
		{"shippingAddress.city", addr.City},
		{"shippingAddress.state", addr.State},
		{"shippingAddress.pincode", addr.Pincode},
		{"shippingAddress.country", addr.Country},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return domain.NewValidationError(f.field, f.field+" is required")
		}
	}
	if paymentMethod == domain.PaymentMethodOnline && strings.TrimSpace(addr.Email) == "" {
		return domain.NewValidationError("shippingAddress.email", "email is required for online payment")
	}
	return nil
}
