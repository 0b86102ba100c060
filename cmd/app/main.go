// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chantierpro-billing/internal/config"
	"chantierpro-billing/internal/domain/ports/adapter"
	payAdapters "chantierpro-billing/internal/infra/adapters/payment"
	pg "chantierpro-billing/internal/infra/db/postgres"
	"chantierpro-billing/internal/infra/logging"
	"chantierpro-billing/internal/infra/metrics"
	red "chantierpro-billing/internal/infra/redis"
	"chantierpro-billing/internal/infra/sched"
	"chantierpro-billing/internal/infra/web"
	"chantierpro-billing/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop payment provider, relaxed secrets)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	locker := red.NewLocker(redisClient)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	tenantRepo := pg.NewTenantRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	invoiceRepo := pg.NewInvoiceRepo(pool)
	eventRepo := pg.NewWebhookEventRepo(pool)
	planRepo := pg.NewPlanRepoCacheDecorator(pg.NewPlanRepo(pool), redisClient)
	txm := pg.NewTxManager(pool)

	// ---- Payment provider ----
	var gateway adapter.PaymentProvider
	if cfg.Runtime.Dev && cfg.Stripe.APIKey == "" {
		gateway = payAdapters.NewNoopPaymentProvider()
		logger.Warn().Msg("payment provider: noop (dev)")
	} else {
		gateway, err = payAdapters.NewStripeGateway(
			cfg.Stripe.APIKey,
			cfg.Stripe.WebhookSecret,
			cfg.Stripe.SuccessURL,
			cfg.Stripe.CancelURL,
			cfg.Stripe.PortalReturnURL,
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("stripe gateway")
		}
	}

	// ---- Use cases ----
	checkoutUC := usecase.NewCheckoutUseCase(subRepo, invoiceRepo, tenantRepo, planRepo, gateway, locker, cfg.Checkout.LockTTL, logger)
	webhookUC := usecase.NewWebhookUseCase(subRepo, invoiceRepo, tenantRepo, planRepo, eventRepo, txm, logger)
	planUC := usecase.NewPlanUseCase(planRepo)

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.TTL)
	srv := web.NewServer(checkoutUC, webhookUC, planUC, gateway, auth, rateLimiter,
		cfg.Checkout.RateLimit, cfg.Checkout.RateLimitWindow, logger)
	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Stale intent reconciler ----
	reconciler := sched.NewIntentReconciler(cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, invoiceRepo, logger)
	go func() { _ = reconciler.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
