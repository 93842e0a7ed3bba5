package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"musshk-backend/internal/domain"
	cartsvc "musshk-backend/internal/service/cart"
	checkoutsvc "musshk-backend/internal/service/checkout"
)

type stubSessions struct {
	getOrCreate func(existing string) (string, bool, error)
}

func (s *stubSessions) GetOrCreate(existing string) (string, bool, error) {
	return s.getOrCreate(existing)
}

type stubCarts struct {
	get             func(ctx context.Context, sessionID string) (*domain.Cart, error)
	addItem         func(ctx context.Context, sessionID string, in cartsvc.AddItemInput) (*domain.Cart, error)
	setItemQuantity func(ctx context.Context, sessionID, itemRef string, quantity int) (*domain.Cart, error)
	removeItem      func(ctx context.Context, sessionID, itemRef string) (*domain.Cart, error)
	clear           func(ctx context.Context, sessionID string) error
	listPending     func(ctx context.Context) ([]domain.Cart, error)
	listAll         func(ctx context.Context) ([]domain.Cart, error)
}

func (s *stubCarts) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	return s.get(ctx, sessionID)
}

func (s *stubCarts) AddItem(ctx context.Context, sessionID string, in cartsvc.AddItemInput) (*domain.Cart, error) {
	return s.addItem(ctx, sessionID, in)
}

func (s *stubCarts) SetItemQuantity(ctx context.Context, sessionID, itemRef string, quantity int) (*domain.Cart, error) {
	return s.setItemQuantity(ctx, sessionID, itemRef, quantity)
}

func (s *stubCarts) RemoveItem(ctx context.Context, sessionID, itemRef string) (*domain.Cart, error) {
	return s.removeItem(ctx, sessionID, itemRef)
}

func (s *stubCarts) Clear(ctx context.Context, sessionID string) error {
	return s.clear(ctx, sessionID)
}

func (s *stubCarts) ListPending(ctx context.Context) ([]domain.Cart, error) {
	return s.listPending(ctx)
}

func (s *stubCarts) ListAll(ctx context.Context) ([]domain.Cart, error) {
	return s.listAll(ctx)
}

type stubCheckout struct {
	begin              func(ctx context.Context, sessionID string, in checkoutsvc.BeginInput) (*checkoutsvc.BeginResult, error)
	createPaymentOrder func(ctx context.Context, cartID string) (*checkoutsvc.PaymentOrder, error)
	confirm            func(ctx context.Context, in checkoutsvc.VerifyInput) (*domain.Order, error)
	handleWebhook      func(ctx context.Context, body []byte, signature string) error
	abandon            func(ctx context.Context, sessionID string) (*domain.Cart, error)
	getOrder           func(ctx context.Context, id string) (*domain.Order, error)
	getOrderByNumber   func(ctx context.Context, orderNumber string) (*domain.Order, error)
}

func (s *stubCheckout) Begin(ctx context.Context, sessionID string, in checkoutsvc.BeginInput) (*checkoutsvc.BeginResult, error) {
	return s.begin(ctx, sessionID, in)
}

func (s *stubCheckout) CreatePaymentOrder(ctx context.Context, cartID string) (*checkoutsvc.PaymentOrder, error) {
	return s.createPaymentOrder(ctx, cartID)
}

func (s *stubCheckout) ConfirmClientPayment(ctx context.Context, in checkoutsvc.VerifyInput) (*domain.Order, error) {
	return s.confirm(ctx, in)
}

func (s *stubCheckout) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	return s.handleWebhook(ctx, body, signature)
}

func (s *stubCheckout) Abandon(ctx context.Context, sessionID string) (*domain.Cart, error) {
	return s.abandon(ctx, sessionID)
}

func (s *stubCheckout) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.getOrder(ctx, id)
}

func (s *stubCheckout) GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return s.getOrderByNumber(ctx, orderNumber)
}

func newTestRouter(deps Deps) http.Handler {
	logger := log.New(io.Discard, "", 0)
	return buildRouter(logger, nil, deps, nil)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestCreateSession(t *testing.T) {
	router := newTestRouter(Deps{
		Sessions: &stubSessions{getOrCreate: func(existing string) (string, bool, error) {
			if existing != "" {
				return existing, false, nil
			}
			return "sess_minted", true, nil
		}},
	})

	rec := doJSON(t, router, http.MethodPost, "/api/session", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["sessionId"] != "sess_minted" || body["created"] != true {
		t.Errorf("body = %v", body)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/session", map[string]string{"sessionId": "sess_existing_0123456789"})
	body = decodeBody(t, rec)
	if body["sessionId"] != "sess_existing_0123456789" || body["created"] != false {
		t.Errorf("body = %v", body)
	}
}

func TestGetCart_NoCartReturnsSyntheticEmpty(t *testing.T) {
	router := newTestRouter(Deps{
		Carts: &stubCarts{get: func(_ context.Context, sessionID string) (*domain.Cart, error) {
			return nil, nil
		}},
	})

	rec := doJSON(t, router, http.MethodGet, "/api/cart/sess_a", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["id"] != nil {
		t.Errorf("id = %v, want null", body["id"])
	}
	if body["sessionId"] != "sess_a" {
		t.Errorf("sessionId = %v", body["sessionId"])
	}
	if items, ok := body["items"].([]any); !ok || len(items) != 0 {
		t.Errorf("items = %v, want empty array", body["items"])
	}
	if body["total"] != float64(0) {
		t.Errorf("total = %v, want 0", body["total"])
	}
}

func TestAddItem_ValidationError(t *testing.T) {
	router := newTestRouter(Deps{
		Carts: &stubCarts{addItem: func(_ context.Context, _ string, _ cartsvc.AddItemInput) (*domain.Cart, error) {
			return nil, domain.NewValidationError("price", "price must be positive")
		}},
	})

	rec := doJSON(t, router, http.MethodPost, "/api/cart/sess_a", map[string]any{"productId": "p", "name": "n", "size": "50ml", "price": 0, "quantity": 1})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["field"] != "price" {
		t.Errorf("field = %v", body["field"])
	}
}

func TestSetItemQuantity(t *testing.T) {
	var gotRef string
	var gotQty int
	router := newTestRouter(Deps{
		Carts: &stubCarts{setItemQuantity: func(_ context.Context, _ string, itemRef string, quantity int) (*domain.Cart, error) {
			gotRef, gotQty = itemRef, quantity
			return &domain.Cart{ID: "cart-1", SessionID: "sess_a"}, nil
		}},
	})

	rec := doJSON(t, router, http.MethodPut, "/api/cart/sess_a/line-1", map[string]int{"quantity": 3})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotRef != "line-1" || gotQty != 3 {
		t.Errorf("forwarded ref=%q qty=%d", gotRef, gotQty)
	}

	// A body without quantity is rejected before touching the service.
	rec = doJSON(t, router, http.MethodPut, "/api/cart/sess_a/line-1", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRemoveItem_UnknownLineReportsCurrentLines(t *testing.T) {
	router := newTestRouter(Deps{
		Carts: &stubCarts{removeItem: func(_ context.Context, _, _ string) (*domain.Cart, error) {
			return nil, &domain.LineNotFoundError{LineIDs: []string{"line-1", "line-2"}}
		}},
	})

	rec := doJSON(t, router, http.MethodDelete, "/api/cart/sess_a/line-9", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	body := decodeBody(t, rec)
	ids, ok := body["lineItemIds"].([]any)
	if !ok || len(ids) != 2 {
		t.Errorf("lineItemIds = %v", body["lineItemIds"])
	}
}

func TestClearCart_BodyItemIDRemovesInstead(t *testing.T) {
	removed := ""
	cleared := false
	router := newTestRouter(Deps{
		Carts: &stubCarts{
			removeItem: func(_ context.Context, _, itemRef string) (*domain.Cart, error) {
				removed = itemRef
				return &domain.Cart{ID: "cart-1"}, nil
			},
			clear: func(_ context.Context, _ string) error {
				cleared = true
				return nil
			},
		},
	})

	rec := doJSON(t, router, http.MethodDelete, "/api/cart/sess_a", map[string]string{"itemId": "line-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if removed != "line-1" || cleared {
		t.Errorf("removed=%q cleared=%v", removed, cleared)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/cart/sess_a", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !cleared {
		t.Errorf("empty body should clear the whole cart")
	}
}

func TestCheckout(t *testing.T) {
	router := newTestRouter(Deps{
		Checkout: &stubCheckout{begin: func(_ context.Context, sessionID string, in checkoutsvc.BeginInput) (*checkoutsvc.BeginResult, error) {
			return &checkoutsvc.BeginResult{Cart: &domain.Cart{ID: "cart-1", SessionID: sessionID, Status: domain.CartStatusPending}}, nil
		}},
	})

	rec := doJSON(t, router, http.MethodPut, "/api/cart/sess_a/checkout", map[string]any{
		"shippingAddress": map[string]string{
			"name": "Asha Rao", "phone": "9876543210", "address": "12 Marine Drive",
			"city": "Mumbai", "state": "Maharashtra", "pincode": "400001", "country": "India",
		},
		"paymentMethod": "Online",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	// Missing address or method never reaches the service.
	rec = doJSON(t, router, http.MethodPut, "/api/cart/sess_a/checkout", map[string]any{"paymentMethod": "Online"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCheckout_DomainErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"empty cart", domain.ErrEmptyCart, http.StatusBadRequest},
		{"expired cart", domain.ErrCartExpired, http.StatusGone},
		{"no cart", domain.ErrNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(Deps{
				Checkout: &stubCheckout{begin: func(_ context.Context, _ string, _ checkoutsvc.BeginInput) (*checkoutsvc.BeginResult, error) {
					return nil, tc.err
				}},
			})
			rec := doJSON(t, router, http.MethodPut, "/api/cart/sess_a/checkout", map[string]any{
				"shippingAddress": map[string]string{"name": "A"},
				"paymentMethod":   "COD",
			})
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestCreatePaymentOrder(t *testing.T) {
	router := newTestRouter(Deps{
		Checkout: &stubCheckout{createPaymentOrder: func(_ context.Context, cartID string) (*checkoutsvc.PaymentOrder, error) {
			return &checkoutsvc.PaymentOrder{GatewayOrderID: "order_gw_1", Amount: 100000, Currency: "INR", KeyID: "rzp_test_key"}, nil
		}},
	})

	rec := doJSON(t, router, http.MethodPost, "/api/payment/create-order", map[string]string{"cartId": "cart-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["id"] != "order_gw_1" || body["key"] != "rzp_test_key" {
		t.Errorf("body = %v", body)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/payment/create-order", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without cartId", rec.Code)
	}
}

func TestVerifyPayment(t *testing.T) {
	router := newTestRouter(Deps{
		Checkout: &stubCheckout{confirm: func(_ context.Context, in checkoutsvc.VerifyInput) (*domain.Order, error) {
			return &domain.Order{ID: "order-1", OrderNumber: "MUS-20260830-ABCDEF12"}, nil
		}},
	})

	rec := doJSON(t, router, http.MethodPost, "/api/payment/verify-payment", map[string]string{
		"razorpay_order_id":   "order_gw_1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  "sig",
		"cartId":              "cart-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != true || body["orderId"] != "order-1" {
		t.Errorf("body = %v", body)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/payment/verify-payment", map[string]string{"razorpay_order_id": "order_gw_1"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing fields", rec.Code)
	}
}

func TestVerifyPayment_FailedVerification(t *testing.T) {
	router := newTestRouter(Deps{
		Checkout: &stubCheckout{confirm: func(_ context.Context, _ checkoutsvc.VerifyInput) (*domain.Order, error) {
			return nil, domain.ErrPaymentVerification
		}},
	})

	rec := doJSON(t, router, http.MethodPost, "/api/payment/verify-payment", map[string]string{
		"razorpay_order_id":   "order_gw_1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  "forged",
	})
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != false || body["status"] != "pending_confirmation" {
		t.Errorf("body = %v", body)
	}
}

func TestPaymentWebhook(t *testing.T) {
	var gotSignature string
	var gotBody []byte
	router := newTestRouter(Deps{
		Checkout: &stubCheckout{handleWebhook: func(_ context.Context, body []byte, signature string) error {
			gotBody, gotSignature = body, signature
			return nil
		}},
	})

	payload := `{"event":"payment.captured","payload":{}}`
	req := httptest.NewRequest(http.MethodPost, "/api/payment/webhook", strings.NewReader(payload))
	req.Header.Set("X-Razorpay-Signature", "sig-abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotSignature != "sig-abc" {
		t.Errorf("signature = %q", gotSignature)
	}
	if string(gotBody) != payload {
		t.Errorf("body forwarded = %q", gotBody)
	}
}

func TestPaymentWebhook_BadSignature(t *testing.T) {
	router := newTestRouter(Deps{
		Checkout: &stubCheckout{handleWebhook: func(_ context.Context, _ []byte, _ string) error {
			return domain.ErrPaymentVerification
		}},
	})

	rec := doJSON(t, router, http.MethodPost, "/api/payment/webhook", map[string]string{"event": "payment.captured"})
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", rec.Code)
	}
}

func TestCreateOrder_CODOnly(t *testing.T) {
	router := newTestRouter(Deps{
		Checkout: &stubCheckout{begin: func(_ context.Context, sessionID string, in checkoutsvc.BeginInput) (*checkoutsvc.BeginResult, error) {
			return &checkoutsvc.BeginResult{
				Cart:  &domain.Cart{ID: "cart-1", SessionID: sessionID, Status: domain.CartStatusConverted},
				Order: &domain.Order{ID: "order-1", PaymentStatus: domain.PaymentStatusPending, OrderStatus: domain.OrderStatusProcessing},
			}, nil
		}},
	})

	addr := map[string]string{
		"name": "Asha Rao", "phone": "9876543210", "address": "12 Marine Drive",
		"city": "Mumbai", "state": "Maharashtra", "pincode": "400001", "country": "India",
	}

	rec := doJSON(t, router, http.MethodPost, "/api/orders", map[string]any{
		"sessionId": "sess_a", "shippingAddress": addr, "paymentMethod": "COD",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["paymentStatus"] != domain.PaymentStatusPending {
		t.Errorf("paymentStatus = %v", body["paymentStatus"])
	}

	rec = doJSON(t, router, http.MethodPost, "/api/orders", map[string]any{
		"sessionId": "sess_a", "shippingAddress": addr, "paymentMethod": "Online",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for online direct creation", rec.Code)
	}
}

func TestTrackOrder(t *testing.T) {
	router := newTestRouter(Deps{
		Checkout: &stubCheckout{getOrderByNumber: func(_ context.Context, orderNumber string) (*domain.Order, error) {
			if orderNumber != "MUS-20260830-ABCDEF12" {
				return nil, domain.ErrNotFound
			}
			return &domain.Order{ID: "order-1", OrderNumber: orderNumber}, nil
		}},
	})

	rec := doJSON(t, router, http.MethodGet, "/api/orders?orderNumber=MUS-20260830-ABCDEF12", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/orders?orderNumber=MUS-XXXX", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/orders", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without orderNumber", rec.Code)
	}
}

func TestAbandonPayment(t *testing.T) {
	router := newTestRouter(Deps{
		Checkout: &stubCheckout{abandon: func(_ context.Context, sessionID string) (*domain.Cart, error) {
			return &domain.Cart{ID: "cart-1", SessionID: sessionID, Status: domain.CartStatusActive}, nil
		}},
	})

	rec := doJSON(t, router, http.MethodPost, "/api/payment/abandon", map[string]string{"sessionId": "sess_a"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != domain.CartStatusActive {
		t.Errorf("status = %v, want active", body["status"])
	}

	rec = doJSON(t, router, http.MethodPost, "/api/payment/abandon", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without sessionId", rec.Code)
	}
}

func TestAdminCartListings(t *testing.T) {
	router := newTestRouter(Deps{
		Carts: &stubCarts{
			listPending: func(_ context.Context) ([]domain.Cart, error) {
				return []domain.Cart{{ID: "cart-1", Status: domain.CartStatusPending}}, nil
			},
			listAll: func(_ context.Context) ([]domain.Cart, error) {
				return []domain.Cart{{ID: "cart-1"}, {ID: "cart-2"}}, nil
			},
		},
	})

	rec := doJSON(t, router, http.MethodGet, "/api/cart/admin/pending", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var pending []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &pending); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("pending = %d carts", len(pending))
	}

	rec = doJSON(t, router, http.MethodGet, "/api/cart/admin/all", nil)
	var all []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all = %d carts", len(all))
	}
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(Deps{})
	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
