package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"civicpay/internal/core/domain"
	"civicpay/internal/core/ports"
	"civicpay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		transactor: transactor,
		log:        log,
	}
}

// CreateWallet provisions a new zero-balance wallet.
func (s *WalletServiceImpl) CreateWallet(ctx context.Context, ownerID uuid.UUID, kind domain.WalletKind, subtype domain.OrgSubtype) (*domain.Wallet, error) {
	switch kind {
	case domain.WalletKindIndividual:
		if subtype != "" {
			return nil, apperror.Validation("individual wallets do not take an organization subtype")
		}
	case domain.WalletKindOrganization:
		switch subtype {
		case domain.OrgSubtypeVolunteer, domain.OrgSubtypeTransportation, domain.OrgSubtypeHealthcare:
		default:
			return nil, apperror.Validation("unknown organization subtype")
		}
	default:
		return nil, apperror.Validation("unknown wallet kind")
	}

	now := time.Now().UTC()
	wallet := &domain.Wallet{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		Kind:       kind,
		OrgSubtype: subtype,
		Balance:    0,
		Currency:   "THB",
		Status:     domain.WalletStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("owner_id", ownerID.String()).
		Str("kind", string(kind)).
		Msg("wallet created")

	return wallet, nil
}

// GetWallet fetches a wallet by ID.
func (s *WalletServiceImpl) GetWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	return wallet, nil
}

// ListWallets returns all wallets owned by ownerID.
func (s *WalletServiceImpl) ListWallets(ctx context.Context, ownerID uuid.UUID) ([]*domain.Wallet, error) {
	wallets, err := s.walletRepo.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list wallets: %w", err))
	}
	return wallets, nil
}

// TopUpBalance credits a wallet directly and records the top_up ledger
// entry in the same transaction.
func (s *WalletServiceImpl) TopUpBalance(ctx context.Context, walletID uuid.UUID, amount int64) (*domain.WalletTransaction, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	if !wallet.IsActive() {
		return nil, apperror.ErrSuspended("wallet")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	balance, err := s.walletRepo.AdjustBalance(ctx, dbTx, walletID, amount)
	if err != nil {
		return nil, mapAdjustErr(err)
	}

	entry := &domain.WalletTransaction{
		ID:           uuid.New(),
		WalletID:     walletID,
		Kind:         domain.TransactionKindTopUp,
		Amount:       amount,
		BalanceAfter: balance,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.ledgerRepo.CreateEntry(ctx, dbTx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record top-up: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit top-up: %w", err))
	}

	s.log.Info().
		Str("wallet_id", walletID.String()).
		Int64("amount", amount).
		Int64("balance", balance).
		Msg("wallet topped up")

	return entry, nil
}

// Transfer moves amount between two wallets in a single database
// transaction. Both legs and both ledger entries commit together or
// not at all.
func (s *WalletServiceImpl) Transfer(ctx context.Context, fromID, toID uuid.UUID, amount int64, description string) (*domain.WalletTransaction, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if fromID == toID {
		return nil, apperror.ErrSameWallet()
	}

	// Status checks up front, outside the transaction. The balance
	// guard inside AdjustBalance remains the source of truth for
	// sufficiency under concurrency.
	from, err := s.walletRepo.GetByID(ctx, fromID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get source wallet: %w", err))
	}
	if from == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	if !from.IsActive() {
		return nil, apperror.ErrSuspended("wallet")
	}

	to, err := s.walletRepo.GetByID(ctx, toID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get destination wallet: %w", err))
	}
	if to == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	if !to.IsActive() {
		return nil, apperror.ErrSuspended("wallet")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Touch rows in a fixed order so two opposing transfers cannot
	// deadlock each other.
	first, second := fromID, toID
	firstDelta, secondDelta := -amount, amount
	if toID.String() < fromID.String() {
		first, second = toID, fromID
		firstDelta, secondDelta = amount, -amount
	}

	balances := map[uuid.UUID]int64{}

	balance, err := s.walletRepo.AdjustBalance(ctx, dbTx, first, firstDelta)
	if err != nil {
		return nil, mapAdjustErr(err)
	}
	balances[first] = balance

	balance, err = s.walletRepo.AdjustBalance(ctx, dbTx, second, secondDelta)
	if err != nil {
		return nil, mapAdjustErr(err)
	}
	balances[second] = balance

	now := time.Now().UTC()
	outEntry := &domain.WalletTransaction{
		ID:            uuid.New(),
		WalletID:      fromID,
		Kind:          domain.TransactionKindTransferOut,
		Amount:        amount,
		BalanceAfter:  balances[fromID],
		CounterpartID: &toID,
		Description:   description,
		CreatedAt:     now,
	}
	inEntry := &domain.WalletTransaction{
		ID:            uuid.New(),
		WalletID:      toID,
		Kind:          domain.TransactionKindTransferIn,
		Amount:        amount,
		BalanceAfter:  balances[toID],
		CounterpartID: &fromID,
		Description:   description,
		CreatedAt:     now,
	}

	if err := s.ledgerRepo.CreateEntry(ctx, dbTx, outEntry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record transfer out: %w", err))
	}
	if err := s.ledgerRepo.CreateEntry(ctx, dbTx, inEntry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record transfer in: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit transfer: %w", err))
	}

	s.log.Info().
		Str("from", fromID.String()).
		Str("to", toID.String()).
		Int64("amount", amount).
		Msg("transfer completed")

	return outEntry, nil
}

// SuspendWallet marks a wallet suspended, blocking further activity.
func (s *WalletServiceImpl) SuspendWallet(ctx context.Context, id uuid.UUID) error {
	if err := s.walletRepo.UpdateStatus(ctx, id, domain.WalletStatusSuspended); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.ErrNotFound("wallet")
		}
		return apperror.InternalError(fmt.Errorf("suspend wallet: %w", err))
	}
	s.log.Info().Str("wallet_id", id.String()).Msg("wallet suspended")
	return nil
}

// mapAdjustErr translates repository balance errors into client-facing
// codes.
func mapAdjustErr(err error) error {
	switch {
	case errors.Is(err, ports.ErrInsufficientBalance):
		return apperror.ErrInsufficientFunds()
	case errors.Is(err, pgx.ErrNoRows):
		return apperror.ErrNotFound("wallet")
	default:
		return apperror.InternalError(fmt.Errorf("adjust balance: %w", err))
	}
}
