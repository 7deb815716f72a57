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

// CardRepo implements ports.CardRepository.
type CardRepo struct {
	pool Pool
}

// NewCardRepo creates a new CardRepo.
func NewCardRepo(pool Pool) *CardRepo {
	return &CardRepo{pool: pool}
}

func (r *CardRepo) querier(tx pgx.Tx) rowQuerier {
	if tx != nil {
		return tx
	}
	return r.pool
}

// Create inserts a new auxiliary card.
func (r *CardRepo) Create(ctx context.Context, c *domain.AuxiliaryCard) error {
	query := `INSERT INTO cards (id, wallet_id, type, card_number, balance, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.WalletID, c.Type, c.CardNumber, c.Balance,
		c.Status, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

// GetByID fetches a card by its UUID. Returns (nil, nil) when no card
// exists.
func (r *CardRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.AuxiliaryCard, error) {
	query := `SELECT id, wallet_id, type, card_number, balance, status, created_at, updated_at
		FROM cards WHERE id = $1`

	c := &domain.AuxiliaryCard{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.WalletID, &c.Type, &c.CardNumber, &c.Balance,
		&c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get card by id: %w", err)
	}
	return c, nil
}

// ListByWallet lists all cards linked to a wallet.
func (r *CardRepo) ListByWallet(ctx context.Context, walletID uuid.UUID) ([]*domain.AuxiliaryCard, error) {
	query := `SELECT id, wallet_id, type, card_number, balance, status, created_at, updated_at
		FROM cards WHERE wallet_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("list cards by wallet: %w", err)
	}
	defer rows.Close()

	var cards []*domain.AuxiliaryCard
	for rows.Next() {
		c := &domain.AuxiliaryCard{}
		if err := rows.Scan(
			&c.ID, &c.WalletID, &c.Type, &c.CardNumber, &c.Balance,
			&c.Status, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// AdjustBalance atomically applies delta to the card balance with the
// same non-negative guard as wallets.
func (r *CardRepo) AdjustBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int64) (int64, error) {
	query := `UPDATE cards
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
		return 0, fmt.Errorf("adjust card balance: %w", err)
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM cards WHERE id = $1)`, id).Scan(&exists); err != nil {
		return 0, fmt.Errorf("check card exists: %w", err)
	}
	if !exists {
		return 0, pgx.ErrNoRows
	}
	return 0, ports.ErrInsufficientBalance
}

// CreateEntry inserts a card ledger entry, inside tx when provided.
func (r *CardRepo) CreateEntry(ctx context.Context, tx pgx.Tx, e *domain.CardTransaction) error {
	query := `INSERT INTO card_transactions (id, card_id, kind, amount, balance_after, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	var err error
	if tx != nil {
		_, err = tx.Exec(ctx, query,
			e.ID, e.CardID, e.Kind, e.Amount, e.BalanceAfter, e.Description, e.CreatedAt,
		)
	} else {
		_, err = r.pool.Exec(ctx, query,
			e.ID, e.CardID, e.Kind, e.Amount, e.BalanceAfter, e.Description, e.CreatedAt,
		)
	}
	if err != nil {
		return fmt.Errorf("insert card ledger entry: %w", err)
	}
	return nil
}
