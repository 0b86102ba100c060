//go:build !integration

package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"chantierpro-billing/internal/domain"
)

func TestRetry(t *testing.T) {
	t.Run("stops after the first success", func(t *testing.T) {
		calls := 0
		err := retry(context.Background(), "test_op", func() error {
			calls++
			return nil
		})
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("returns immediately after the last failed attempt", func(t *testing.T) {
		calls := 0
		start := time.Now()
		err := retry(context.Background(), "test_op", func() error {
			calls++
			return errors.New("transient")
		})
		elapsed := time.Since(start)

		if !errors.Is(err, domain.ErrProviderUnavailable) {
			t.Fatalf("expected ErrProviderUnavailable, got %v", err)
		}
		if calls != 2 {
			t.Errorf("expected 2 calls, got %d", calls)
		}
		// One 500ms backoff between the attempts, none after the last one.
		if elapsed >= time.Second {
			t.Errorf("expected no backoff after the final attempt, took %v", elapsed)
		}
	})

	t.Run("honors context cancellation between attempts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		err := retry(ctx, "test_op", func() error {
			calls++
			return errors.New("transient")
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call before cancellation, got %d", calls)
		}
	})
}
