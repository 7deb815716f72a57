package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"civicpay/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// QrRepo implements ports.QrRequestRepository.
type QrRepo struct {
	pool Pool
}

// NewQrRepo creates a new QrRepo.
func NewQrRepo(pool Pool) *QrRepo {
	return &QrRepo{pool: pool}
}

// Create inserts a pending QR request.
func (r *QrRepo) Create(ctx context.Context, q *domain.PendingQrRequest) error {
	query := `INSERT INTO qr_requests (id, wallet_id, reference, amount, status, qr_raw_data, bank_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		q.ID, q.WalletID, q.Reference, q.Amount, q.Status,
		q.QrRawData, q.BankRef, q.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert qr request: %w", err)
	}
	return nil
}

// GetByReference fetches a QR request by its bank reference. Returns
// (nil, nil) when no request exists.
func (r *QrRepo) GetByReference(ctx context.Context, reference string) (*domain.PendingQrRequest, error) {
	query := `SELECT id, wallet_id, reference, amount, status, qr_raw_data, bank_ref, created_at, confirmed_at
		FROM qr_requests WHERE reference = $1`

	q := &domain.PendingQrRequest{}
	err := r.pool.QueryRow(ctx, query, reference).Scan(
		&q.ID, &q.WalletID, &q.Reference, &q.Amount, &q.Status,
		&q.QrRawData, &q.BankRef, &q.CreatedAt, &q.ConfirmedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get qr request by reference: %w", err)
	}
	return q, nil
}

// MarkConfirmed transitions a pending request to confirmed. The status
// guard makes redelivered webhooks a no-op: the second delivery matches
// zero rows and reports applied=false.
func (r *QrRepo) MarkConfirmed(ctx context.Context, tx pgx.Tx, reference, bankRef string, confirmedAt time.Time) (bool, error) {
	query := `UPDATE qr_requests
		SET status = $2, bank_ref = $3, confirmed_at = $4
		WHERE reference = $1 AND status = $5`

	var err error
	var tag interface{ RowsAffected() int64 }
	if tx != nil {
		tag, err = tx.Exec(ctx, query, reference, domain.QrStatusConfirmed, bankRef, confirmedAt, domain.QrStatusPending)
	} else {
		tag, err = r.pool.Exec(ctx, query, reference, domain.QrStatusConfirmed, bankRef, confirmedAt, domain.QrStatusPending)
	}
	if err != nil {
		return false, fmt.Errorf("mark qr request confirmed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ExpireStale marks pending requests created before cutoff as expired.
func (r *QrRepo) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `UPDATE qr_requests
		SET status = $1
		WHERE status = $2 AND created_at < $3`

	tag, err := r.pool.Exec(ctx, query, domain.QrStatusExpired, domain.QrStatusPending, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire stale qr requests: %w", err)
	}
	return tag.RowsAffected(), nil
}
