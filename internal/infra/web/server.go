package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"chantierpro-billing/internal/domain/ports/adapter"
	"chantierpro-billing/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RateLimiter throttles anonymous checkout attempts. Satisfied by the redis
// limiter; nil disables throttling.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type Server struct {
	checkoutUC usecase.CheckoutUseCase
	webhookUC  usecase.WebhookUseCase
	planUC     *usecase.PlanUseCase
	gateway    adapter.PaymentProvider
	auth       *AuthManager
	limiter    RateLimiter
	rateLimit  int
	rateWindow time.Duration
	log        *zerolog.Logger

	httpSrv *http.Server
}

func NewServer(
	checkoutUC usecase.CheckoutUseCase,
	webhookUC usecase.WebhookUseCase,
	planUC *usecase.PlanUseCase,
	gateway adapter.PaymentProvider,
	auth *AuthManager,
	limiter RateLimiter,
	rateLimit int,
	rateWindow time.Duration,
	logger *zerolog.Logger,
) *Server {
	if rateLimit <= 0 {
		rateLimit = 30
	}
	if rateWindow <= 0 {
		rateWindow = time.Minute
	}
	return &Server{
		checkoutUC: checkoutUC,
		webhookUC:  webhookUC,
		planUC:     planUC,
		gateway:    gateway,
		auth:       auth,
		limiter:    limiter,
		rateLimit:  rateLimit,
		rateWindow: rateWindow,
		log:        logger,
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/checkout/invoice", invoiceCheckoutHandler(s))
		r.Post("/checkout/subscription", subscriptionCheckoutHandler(s))
		r.Post("/webhook/stripe", webhookHandler(s))
		r.Post("/billing/portal", billingPortalHandler(s))
		r.Get("/plans", plansListHandler(s.planUC))
	})

	return Chain(r,
		TraceID(),
		Recover(s.log),
		RequestLog(s.log),
		Timeout(30*time.Second),
	)
}

func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Str("addr", addr).Msg("http server listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// checkoutRateKey buckets attempts per token and caller address so one noisy
// client cannot lock a shared link for everyone.
func checkoutRateKey(token string, r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "rate_limit:checkout:" + token + ":" + host
}
