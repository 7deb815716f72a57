package postgres

import (
	"context"
	"errors"
	"fmt"

	"civicpay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// CreateEntry inserts a ledger entry, inside tx when provided.
func (r *LedgerRepo) CreateEntry(ctx context.Context, tx pgx.Tx, e *domain.WalletTransaction) error {
	query := `INSERT INTO wallet_transactions (id, wallet_id, kind, amount, balance_after, counterpart_id, target_service, reference, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	var err error
	if tx != nil {
		_, err = tx.Exec(ctx, query,
			e.ID, e.WalletID, e.Kind, e.Amount, e.BalanceAfter,
			e.CounterpartID, e.TargetService, e.Reference, e.Description, e.CreatedAt,
		)
	} else {
		_, err = r.pool.Exec(ctx, query,
			e.ID, e.WalletID, e.Kind, e.Amount, e.BalanceAfter,
			e.CounterpartID, e.TargetService, e.Reference, e.Description, e.CreatedAt,
		)
	}
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// GetByID fetches a single ledger entry, nil when it does not exist.
func (r *LedgerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WalletTransaction, error) {
	query := `SELECT id, wallet_id, kind, amount, balance_after, counterpart_id, target_service, reference, description, created_at
		FROM wallet_transactions WHERE id = $1`

	e := &domain.WalletTransaction{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.WalletID, &e.Kind, &e.Amount, &e.BalanceAfter,
		&e.CounterpartID, &e.TargetService, &e.Reference, &e.Description, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger entry by id: %w", err)
	}
	return e, nil
}

// ListAll returns ledger entries across all wallets, newest first.
func (r *LedgerRepo) ListAll(ctx context.Context, limit, offset int) ([]*domain.WalletTransaction, error) {
	query := `SELECT id, wallet_id, kind, amount, balance_after, counterpart_id, target_service, reference, description, created_at
		FROM wallet_transactions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list all ledger entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListByWallet returns ledger entries for a wallet, newest first.
func (r *LedgerRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*domain.WalletTransaction, error) {
	query := `SELECT id, wallet_id, kind, amount, balance_after, counterpart_id, target_service, reference, description, created_at
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, walletID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]*domain.WalletTransaction, error) {
	var entries []*domain.WalletTransaction
	for rows.Next() {
		e := &domain.WalletTransaction{}
		if err := rows.Scan(
			&e.ID, &e.WalletID, &e.Kind, &e.Amount, &e.BalanceAfter,
			&e.CounterpartID, &e.TargetService, &e.Reference, &e.Description, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListActivity merges wallet and card ledger entries for a wallet's
// combined history view, newest first.
func (r *LedgerRepo) ListActivity(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*domain.ActivityEntry, error) {
	query := `SELECT id, 'wallet' AS source, wallet_id AS source_id, kind, amount, balance_after, description, created_at
		FROM wallet_transactions
		WHERE wallet_id = $1
		UNION ALL
		SELECT ct.id, c.type AS source, ct.card_id AS source_id, ct.kind, ct.amount, ct.balance_after, ct.description, ct.created_at
		FROM card_transactions ct
		JOIN cards c ON c.id = ct.card_id
		WHERE c.wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, walletID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var entries []*domain.ActivityEntry
	for rows.Next() {
		e := &domain.ActivityEntry{}
		if err := rows.Scan(
			&e.ID, &e.Source, &e.SourceID, &e.Kind, &e.Amount,
			&e.BalanceAfter, &e.Description, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan activity entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
