package service

import (
	"context"
	"fmt"

	"civicpay/internal/core/domain"
	"civicpay/internal/core/ports"
	"civicpay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// TransactionServiceImpl implements ports.TransactionService.
type TransactionServiceImpl struct {
	ledgerRepo ports.LedgerRepository
	walletRepo ports.WalletRepository
	log        zerolog.Logger
}

// NewTransactionService creates a new TransactionServiceImpl.
func NewTransactionService(
	ledgerRepo ports.LedgerRepository,
	walletRepo ports.WalletRepository,
	log zerolog.Logger,
) *TransactionServiceImpl {
	return &TransactionServiceImpl{
		ledgerRepo: ledgerRepo,
		walletRepo: walletRepo,
		log:        log,
	}
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// GetTransaction fetches a single ledger entry by ID.
func (s *TransactionServiceImpl) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.WalletTransaction, error) {
	entry, err := s.ledgerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get transaction: %w", err))
	}
	if entry == nil {
		return nil, apperror.ErrNotFound("transaction")
	}
	return entry, nil
}

// ListTransactions returns the full ledger across wallets, newest
// first.
func (s *TransactionServiceImpl) ListTransactions(ctx context.Context, limit, offset int) ([]*domain.WalletTransaction, error) {
	limit, offset = clampPage(limit, offset)
	entries, err := s.ledgerRepo.ListAll(ctx, limit, offset)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list all transactions: %w", err))
	}
	return entries, nil
}

// ListWalletTransactions returns the wallet's ledger, newest first.
func (s *TransactionServiceImpl) ListWalletTransactions(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*domain.WalletTransaction, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	limit, offset = clampPage(limit, offset)
	entries, err := s.ledgerRepo.ListByWallet(ctx, walletID, limit, offset)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	return entries, nil
}

// ListActivity returns the combined wallet-and-cards history.
func (s *TransactionServiceImpl) ListActivity(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*domain.ActivityEntry, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	limit, offset = clampPage(limit, offset)
	entries, err := s.ledgerRepo.ListActivity(ctx, walletID, limit, offset)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list activity: %w", err))
	}
	return entries, nil
}
