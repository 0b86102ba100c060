package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"chantierpro-billing/internal/domain"
	"chantierpro-billing/internal/domain/model"
	"chantierpro-billing/internal/infra/logging"
	"chantierpro-billing/internal/infra/metrics"
	"chantierpro-billing/internal/usecase"
)

// webhook payloads are small; anything bigger than this is not ours.
const maxWebhookBody = 1 << 20

type invoiceCheckoutRequest struct {
	Token  string `json:"payment_token"`
	Amount *int64 `json:"amount_minor_units,omitempty"`
}

// Handler for creating an invoice payment checkout from a payment-link token.
func invoiceCheckoutHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req invoiceCheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "invalid request body")
			return
		}
		if req.Token == "" {
			writeError(w, http.StatusBadRequest, "validation_error", "payment_token is required")
			return
		}

		if s.limiter != nil {
			ok, err := s.limiter.Allow(ctx, checkoutRateKey(req.Token, r), s.rateLimit, s.rateWindow)
			if err != nil {
				l := logging.With(ctx, s.log)
				l.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
			} else if !ok {
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many checkout attempts")
				return
			}
		}

		url, err := s.checkoutUC.InvoiceCheckout(ctx, req.Token, req.Amount)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, struct {
			URL string `json:"url"`
		}{URL: url})
	}
}

type subscriptionCheckoutRequest struct {
	PlanID   string `json:"plan_id"`
	Interval string `json:"interval"`
}

// Handler for starting a subscription checkout. The tenant comes from the
// session token, never from the body.
func subscriptionCheckoutHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		ctx = logging.WithTenantID(ctx, claims.TenantID)

		var req subscriptionCheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "invalid request body")
			return
		}
		interval, err := model.ParseInterval(req.Interval)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		url, err := s.checkoutUC.SubscriptionCheckout(ctx, claims.TenantID, req.PlanID, interval)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, struct {
			URL string `json:"url"`
		}{URL: url})
	}
}

// Handler for the provider webhook. The raw body must reach signature
// verification untouched.
func webhookHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		l := logging.With(ctx, s.log)

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "unreadable body")
			return
		}

		ev, err := s.gateway.ParseWebhook(payload, r.Header.Get("Stripe-Signature"))
		if err != nil {
			if errors.Is(err, domain.ErrSignatureInvalid) {
				metrics.IncWebhookSignatureFailure()
			}
			l.Warn().Err(err).Msg("webhook rejected")
			writeDomainError(w, err)
			return
		}

		ctx = logging.WithEventID(ctx, ev.ID)
		if err := s.webhookUC.Handle(ctx, ev); err != nil {
			// Non-2xx makes the provider redeliver later.
			writeError(w, http.StatusInternalServerError, "internal", "event processing failed")
			return
		}

		writeJSON(w, http.StatusOK, struct {
			Received bool `json:"received"`
		}{Received: true})
	}
}

// Handler for the provider-hosted billing portal.
func billingPortalHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		ctx = logging.WithTenantID(ctx, claims.TenantID)

		url, err := s.checkoutUC.PortalURL(ctx, claims.TenantID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, struct {
			URL string `json:"url"`
		}{URL: url})
	}
}

// Handler for listing the plan catalog.
func plansListHandler(planUC *usecase.PlanUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plans, err := planUC.List(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, struct {
			Data []*model.Plan `json:"data"`
		}{Data: plans})
	}
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, struct {
			Status string `json:"status"`
		}{Status: "ok"})
	}
}
