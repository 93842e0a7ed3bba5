package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"musshk-backend/internal/config"
	"musshk-backend/internal/db"
	"musshk-backend/internal/httpserver"
	"musshk-backend/internal/notify"
	"musshk-backend/internal/payment/razorpay"
	cartrepo "musshk-backend/internal/repository/cart"
	orderrepo "musshk-backend/internal/repository/order"
	cartsvc "musshk-backend/internal/service/cart"
	checkoutsvc "musshk-backend/internal/service/checkout"
	sessionsvc "musshk-backend/internal/service/session"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	var publisher notify.Publisher = notify.Noop{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		publisher = notify.NewRedis(rdb, cfg.NotifyChannel)
	}

	gateway := razorpay.New(razorpay.Config{
		KeyID:         cfg.RazorpayKeyID,
		KeySecret:     cfg.RazorpayKeySecret,
		WebhookSecret: cfg.RazorpayWebhookSecret,
	})

	cartRepo := cartrepo.NewPostgres(dbpool)
	orderRepo := orderrepo.NewPostgres(dbpool)
	sessionService := sessionsvc.New()
	cartService := cartsvc.New(cartRepo, cfg.CartTTL, publisher)
	checkoutService := checkoutsvc.New(cartRepo, orderRepo, gateway, publisher, logger)

	srv := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Sessions: sessionService,
		Carts:    cartService,
		Checkout: checkoutService,
	}, cfg.CORSOrigins)

	reaperCtx, stopReaper := context.WithCancel(ctx)
	defer stopReaper()
	go checkoutsvc.NewReaper(cartRepo, cfg.ReapInterval, logger).Run(reaperCtx)

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	stopReaper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
