package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"chantierpro-billing/internal/domain"
	"chantierpro-billing/internal/domain/model"
	"chantierpro-billing/internal/domain/ports/repository"
)

var _ repository.InvoiceRepository = (*invoiceRepo)(nil)

type invoiceRepo struct{ pool *pgxpool.Pool }

func NewInvoiceRepo(pool *pgxpool.Pool) *invoiceRepo {
	return &invoiceRepo{pool: pool}
}

const intentCols = `invoice_id, tenant_id, invoice_number, token, total_due, amount_paid, payment_status, checkout_session_id, created_at, updated_at`

func (r *invoiceRepo) Save(ctx context.Context, tx repository.Tx, p *model.InvoicePaymentIntent) error {
	const q = `
INSERT INTO invoice_payment_intents (
  invoice_id, tenant_id, invoice_number, token, total_due, amount_paid, payment_status, checkout_session_id, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())
ON CONFLICT (invoice_id) DO UPDATE SET
  tenant_id=$2, invoice_number=$3, token=$4, total_due=$5, amount_paid=$6, payment_status=$7, checkout_session_id=$8, updated_at=NOW();`

	_, err := execSQL(ctx, r.pool, tx, q, p.InvoiceID, p.TenantID, p.InvoiceNumber, p.Token, p.TotalDue, p.AmountPaid, p.Status, p.CheckoutSessionID, p.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *invoiceRepo) FindByToken(ctx context.Context, tx repository.Tx, token string) (*model.InvoicePaymentIntent, error) {
	const q = `SELECT ` + intentCols + ` FROM invoice_payment_intents WHERE token=$1 LIMIT 1;`
	return r.queryOne(ctx, tx, q, token)
}

func (r *invoiceRepo) FindByInvoiceID(ctx context.Context, tx repository.Tx, invoiceID string) (*model.InvoicePaymentIntent, error) {
	const q = `SELECT ` + intentCols + ` FROM invoice_payment_intents WHERE invoice_id=$1;`
	return r.queryOne(ctx, tx, q, invoiceID)
}

// MarkProcessing overwrites a stale processing marker on purpose: re-initiated
// checkout must not be blocked by an abandoned session. Only succeeded is
// off-limits.
func (r *invoiceRepo) MarkProcessing(ctx context.Context, tx repository.Tx, invoiceID, sessionID string) (bool, error) {
	const q = `
UPDATE invoice_payment_intents
   SET payment_status='processing', checkout_session_id=$2, updated_at=NOW()
 WHERE invoice_id=$1
   AND payment_status <> 'succeeded';`
	cmd, err := execSQL(ctx, r.pool, tx, q, invoiceID, sessionID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

// ApplyPayment accumulates the pre-fee amount and settles or re-opens the
// intent in a single conditional write, so replayed calls cannot regress a
// succeeded intent.
func (r *invoiceRepo) ApplyPayment(ctx context.Context, tx repository.Tx, invoiceID string, amount int64) (*model.InvoicePaymentIntent, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	const q = `
UPDATE invoice_payment_intents
   SET amount_paid = amount_paid + $2,
       payment_status = CASE WHEN amount_paid + $2 >= total_due THEN 'succeeded' ELSE 'unpaid' END,
       updated_at = NOW()
 WHERE invoice_id=$1
   AND payment_status <> 'succeeded'
RETURNING ` + intentCols + `;`
	row, err := pickRow(ctx, r.pool, tx, q, invoiceID, amount)
	if err != nil {
		return nil, err
	}
	p := &model.InvoicePaymentIntent{}
	if err := scanIntent(row, p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAlreadyPaid
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *invoiceRepo) ListProcessingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.InvoicePaymentIntent, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + intentCols + ` FROM invoice_payment_intents WHERE payment_status='processing' AND updated_at < $1 ORDER BY updated_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.InvoicePaymentIntent
	for rows.Next() {
		p := new(model.InvoicePaymentIntent)
		if err := scanIntent(rows, p); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *invoiceRepo) MarkUnpaidIfProcessing(ctx context.Context, tx repository.Tx, invoiceID string) (bool, error) {
	const q = `
UPDATE invoice_payment_intents
   SET payment_status='unpaid', checkout_session_id=NULL, updated_at=NOW()
 WHERE invoice_id=$1
   AND payment_status='processing';`
	cmd, err := execSQL(ctx, r.pool, tx, q, invoiceID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *invoiceRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.InvoicePaymentIntent, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	p := &model.InvoicePaymentIntent{}
	if err := scanIntent(row, p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func scanIntent(row pgx.Row, p *model.InvoicePaymentIntent) error {
	return row.Scan(&p.InvoiceID, &p.TenantID, &p.InvoiceNumber, &p.Token, &p.TotalDue, &p.AmountPaid, &p.Status, &p.CheckoutSessionID, &p.CreatedAt, &p.UpdatedAt)
}
