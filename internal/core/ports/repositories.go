package ports

import (
	"context"
	"errors"
	"time"

	"civicpay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Sentinel errors returned by repositories. Services translate these
// into client-facing error codes.
var (
	// ErrInsufficientBalance is returned by AdjustBalance when the
	// delta would drive the balance below zero.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// DBTransactor begins database transactions for multi-step operations.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// WalletRepository persists wallets. Methods that accept a pgx.Tx run
// inside the caller's transaction when tx is non-nil, otherwise against
// the pool directly.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Wallet, error)
	// AdjustBalance atomically applies delta to the wallet's balance,
	// refusing the update if the result would fall below zero. Returns
	// the balance after the adjustment.
	AdjustBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int64) (int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.WalletStatus) error
}

// LedgerRepository persists immutable transaction entries.
type LedgerRepository interface {
	CreateEntry(ctx context.Context, tx pgx.Tx, entry *domain.WalletTransaction) error
	// GetByID returns nil without error when no entry exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WalletTransaction, error)
	ListAll(ctx context.Context, limit, offset int) ([]*domain.WalletTransaction, error)
	ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*domain.WalletTransaction, error)
	// ListActivity merges wallet and card entries for the wallet's
	// combined history, newest first.
	ListActivity(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*domain.ActivityEntry, error)
}

// CardRepository persists auxiliary cards and their ledger.
type CardRepository interface {
	Create(ctx context.Context, card *domain.AuxiliaryCard) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AuxiliaryCard, error)
	ListByWallet(ctx context.Context, walletID uuid.UUID) ([]*domain.AuxiliaryCard, error)
	// AdjustBalance mirrors WalletRepository.AdjustBalance for cards.
	AdjustBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int64) (int64, error)
	CreateEntry(ctx context.Context, tx pgx.Tx, entry *domain.CardTransaction) error
}

// QrRequestRepository persists pending QR top-up requests.
type QrRequestRepository interface {
	Create(ctx context.Context, req *domain.PendingQrRequest) error
	GetByReference(ctx context.Context, reference string) (*domain.PendingQrRequest, error)
	// MarkConfirmed transitions a pending request to confirmed. It
	// reports false without error when the request was already
	// confirmed, making webhook redelivery a no-op.
	MarkConfirmed(ctx context.Context, tx pgx.Tx, reference, bankRef string, confirmedAt time.Time) (bool, error)
	// ExpireStale marks pending requests older than cutoff as expired
	// and returns how many rows changed.
	ExpireStale(ctx context.Context, cutoff time.Time) (int64, error)
}
