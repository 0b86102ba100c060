package sched

import (
	"context"
	"time"

	"chantierpro-billing/internal/domain/ports/repository"
	"chantierpro-billing/internal/infra/metrics"

	"github.com/rs/zerolog"
)

const reconcileBatch = 200

// IntentReconciler re-opens invoice intents stuck in processing. A checkout
// session the customer abandoned never gets a webhook, so after StaleAfter the
// intent goes back to unpaid and the payment link works again.
type IntentReconciler struct {
	interval   time.Duration
	staleAfter time.Duration
	invoices   repository.InvoiceRepository
	log        *zerolog.Logger
}

func NewIntentReconciler(interval, staleAfter time.Duration, invoices repository.InvoiceRepository, logger *zerolog.Logger) *IntentReconciler {
	compLog := logger.With().Str("component", "IntentReconciler").Logger()
	return &IntentReconciler{
		interval:   interval,
		staleAfter: staleAfter,
		invoices:   invoices,
		log:        &compLog,
	}
}

func (w *IntentReconciler) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting intent reconciler")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping intent reconciler")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *IntentReconciler) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	intents, err := w.invoices.ListProcessingOlderThan(ctx, repository.NoTX, cutoff, reconcileBatch)
	if err != nil {
		w.log.Error().Err(err).Msg("listing stale intents failed")
		return
	}

	reopened := 0
	for _, it := range intents {
		ok, err := w.invoices.MarkUnpaidIfProcessing(ctx, repository.NoTX, it.InvoiceID)
		if err != nil {
			w.log.Error().Err(err).Str("invoice_id", it.InvoiceID).Msg("re-opening intent failed")
			continue
		}
		if ok {
			reopened++
		}
	}
	if reopened > 0 {
		metrics.IncIntentsReopened(reopened)
		w.log.Info().Int("count", reopened).Msg("stale intents re-opened")
	}
}
