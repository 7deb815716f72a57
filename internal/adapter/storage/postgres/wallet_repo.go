package postgres

import (
	"context"
	"errors"
	"fmt"

	"civicpay/internal/core/domain"
	"civicpay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// rowQuerier is satisfied by both the pool and a pgx.Tx, so repository
// methods can run inside or outside a caller transaction.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

func (r *WalletRepo) querier(tx pgx.Tx) rowQuerier {
	if tx != nil {
		return tx
	}
	return r.pool
}

// Create inserts a new wallet into the database.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, owner_id, kind, org_subtype, balance, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.OwnerID, w.Kind, w.OrgSubtype, w.Balance,
		w.Currency, w.Status, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByID fetches a wallet by its UUID. Returns (nil, nil) when no
// wallet exists.
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT id, owner_id, kind, org_subtype, balance, currency, status, created_at, updated_at
		FROM wallets WHERE id = $1`

	w := &domain.Wallet{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&w.ID, &w.OwnerID, &w.Kind, &w.OrgSubtype, &w.Balance,
		&w.Currency, &w.Status, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by id: %w", err)
	}
	return w, nil
}

// GetByOwner lists all wallets belonging to an owner.
func (r *WalletRepo) GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Wallet, error) {
	query := `SELECT id, owner_id, kind, org_subtype, balance, currency, status, created_at, updated_at
		FROM wallets WHERE owner_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list wallets by owner: %w", err)
	}
	defer rows.Close()

	var wallets []*domain.Wallet
	for rows.Next() {
		w := &domain.Wallet{}
		if err := rows.Scan(
			&w.ID, &w.OwnerID, &w.Kind, &w.OrgSubtype, &w.Balance,
			&w.Currency, &w.Status, &w.CreatedAt, &w.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// AdjustBalance atomically applies delta to the wallet balance. The
// WHERE clause enforces the non-negative invariant in the database, so
// concurrent debits can never overdraw regardless of interleaving.
func (r *WalletRepo) AdjustBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int64) (int64, error) {
	query := `UPDATE wallets
		SET balance = balance + $2, updated_at = now()
		WHERE id = $1 AND balance + $2 >= 0
		RETURNING balance`

	q := r.querier(tx)

	var balance int64
	err := q.QueryRow(ctx, query, id, delta).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("adjust wallet balance: %w", err)
	}

	// The update matched nothing: either the wallet is missing or the
	// guard rejected the delta. Distinguish the two.
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM wallets WHERE id = $1)`, id).Scan(&exists); err != nil {
		return 0, fmt.Errorf("check wallet exists: %w", err)
	}
	if !exists {
		return 0, pgx.ErrNoRows
	}
	return 0, ports.ErrInsufficientBalance
}

// UpdateStatus sets the wallet lifecycle status.
func (r *WalletRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.WalletStatus) error {
	query := `UPDATE wallets SET status = $2, updated_at = now() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update wallet status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
