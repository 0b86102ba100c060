package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"chantierpro-billing/internal/domain"
	"chantierpro-billing/internal/domain/ports/repository"
)

var _ repository.WebhookEventRepository = (*webhookEventRepo)(nil)

type webhookEventRepo struct{ pool *pgxpool.Pool }

func NewWebhookEventRepo(pool *pgxpool.Pool) *webhookEventRepo {
	return &webhookEventRepo{pool: pool}
}

func (r *webhookEventRepo) Processed(ctx context.Context, tx repository.Tx, eventID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM webhook_events WHERE event_id=$1);`
	row, err := pickRow(ctx, r.pool, tx, q, eventID)
	if err != nil {
		return false, err
	}
	var seen bool
	if err := row.Scan(&seen); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return seen, nil
}

// MarkProcessed relies on the primary key: a replayed event id inserts zero
// rows, which callers treat as "skip".
func (r *webhookEventRepo) MarkProcessed(ctx context.Context, tx repository.Tx, eventID, eventType string) (bool, error) {
	const q = `
INSERT INTO webhook_events (event_id, event_type, processed_at)
VALUES ($1,$2,NOW())
ON CONFLICT (event_id) DO NOTHING;`
	cmd, err := execSQL(ctx, r.pool, tx, q, eventID, eventType)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}
