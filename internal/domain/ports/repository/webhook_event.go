package repository

import "context"

// WebhookEventRepository journals processed provider event ids so replayed
// deliveries (at-least-once) are skipped.
type WebhookEventRepository interface {
	// Processed reports whether the event id is already journaled.
	Processed(ctx context.Context, tx Tx, eventID string) (bool, error)
	// MarkProcessed records the event id. It reports false when the event was
	// already journaled.
	MarkProcessed(ctx context.Context, tx Tx, eventID, eventType string) (bool, error)
}
