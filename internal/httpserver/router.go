package httpserver

import (
	"context"
	"log"
	"time"

	"musshk-backend/internal/domain"
	cartsvc "musshk-backend/internal/service/cart"
	checkoutsvc "musshk-backend/internal/service/checkout"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Deps holds the services the routes dispatch to.
type Deps struct {
	Sessions SessionService
	Carts    CartService
	Checkout CheckoutService
}

type SessionService interface {
	GetOrCreate(existing string) (id string, created bool, err error)
}

type CartService interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	AddItem(ctx context.Context, sessionID string, in cartsvc.AddItemInput) (*domain.Cart, error)
	SetItemQuantity(ctx context.Context, sessionID, itemRef string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, sessionID, itemRef string) (*domain.Cart, error)
	Clear(ctx context.Context, sessionID string) error
	ListPending(ctx context.Context) ([]domain.Cart, error)
	ListAll(ctx context.Context) ([]domain.Cart, error)
}

type CheckoutService interface {
	Begin(ctx context.Context, sessionID string, in checkoutsvc.BeginInput) (*checkoutsvc.BeginResult, error)
	CreatePaymentOrder(ctx context.Context, cartID string) (*checkoutsvc.PaymentOrder, error)
	ConfirmClientPayment(ctx context.Context, in checkoutsvc.VerifyInput) (*domain.Order, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) error
	Abandon(ctx context.Context, sessionID string) (*domain.Cart, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps, corsOrigins []string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())

	if len(corsOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     corsOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{deps: deps, logger: logger}

	api := router.Group("/api")
	{
		api.POST("/session", h.createSession)

		cart := api.Group("/cart")
		{
			cart.GET("/admin/pending", h.adminPendingCarts)
			cart.GET("/admin/all", h.adminAllCarts)
			cart.GET("/:sessionId", h.getCart)
			cart.POST("/:sessionId", h.addItem)
			cart.PUT("/:sessionId/checkout", h.checkout)
			cart.PUT("/:sessionId/:itemRef", h.setItemQuantity)
			cart.DELETE("/:sessionId/:itemRef", h.removeItem)
			cart.DELETE("/:sessionId", h.clearCart)
		}

		payment := api.Group("/payment")
		{
			payment.POST("/create-order", h.createPaymentOrder)
			payment.POST("/verify-payment", h.verifyPayment)
			payment.POST("/abandon", h.abandonPayment)
			payment.POST("/webhook", h.paymentWebhook)
		}

		orders := api.Group("/orders")
		{
			orders.POST("", h.createOrder)
			orders.GET("", h.trackOrder)
			orders.GET("/:id", h.getOrder)
		}
	}

	return router
}

type handlers struct {
	deps   Deps
	logger *log.Logger
}
