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

// CardServiceImpl implements ports.CardService.
type CardServiceImpl struct {
	cardRepo   ports.CardRepository
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewCardService creates a new CardServiceImpl.
func NewCardService(
	cardRepo ports.CardRepository,
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *CardServiceImpl {
	return &CardServiceImpl{
		cardRepo:   cardRepo,
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		transactor: transactor,
		log:        log,
	}
}

// IssueCard creates a zero-balance card linked to an active wallet.
func (s *CardServiceImpl) IssueCard(ctx context.Context, walletID uuid.UUID, cardType domain.CardType) (*domain.AuxiliaryCard, error) {
	switch cardType {
	case domain.CardTypeTransit, domain.CardTypeInsurance:
	default:
		return nil, apperror.Validation("unknown card type")
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

	now := time.Now().UTC()
	card := &domain.AuxiliaryCard{
		ID:         uuid.New(),
		WalletID:   walletID,
		Type:       cardType,
		CardNumber: newCardNumber(cardType),
		Balance:    0,
		Status:     domain.CardStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.cardRepo.Create(ctx, card); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create card: %w", err))
	}

	s.log.Info().
		Str("card_id", card.ID.String()).
		Str("wallet_id", walletID.String()).
		Str("type", string(cardType)).
		Msg("card issued")

	return card, nil
}

// GetCard fetches a card by ID.
func (s *CardServiceImpl) GetCard(ctx context.Context, id uuid.UUID) (*domain.AuxiliaryCard, error) {
	card, err := s.cardRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get card: %w", err))
	}
	if card == nil {
		return nil, apperror.ErrNotFound("card")
	}
	return card, nil
}

// ListCards returns all cards linked to a wallet.
func (s *CardServiceImpl) ListCards(ctx context.Context, walletID uuid.UUID) ([]*domain.AuxiliaryCard, error) {
	cards, err := s.cardRepo.ListByWallet(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list cards: %w", err))
	}
	return cards, nil
}

// TopUpCard debits the owning wallet and credits the card in one
// transaction, writing a ledger entry on both sides.
func (s *CardServiceImpl) TopUpCard(ctx context.Context, cardID uuid.UUID, amount int64) (*domain.AuxiliaryCard, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	card, err := s.cardRepo.GetByID(ctx, cardID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get card: %w", err))
	}
	if card == nil {
		return nil, apperror.ErrNotFound("card")
	}
	if !card.IsActive() {
		return nil, apperror.ErrSuspended("card")
	}

	wallet, err := s.walletRepo.GetByID(ctx, card.WalletID)
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

	walletBalance, err := s.walletRepo.AdjustBalance(ctx, dbTx, card.WalletID, -amount)
	if err != nil {
		return nil, mapAdjustErr(err)
	}

	cardBalance, err := s.cardRepo.AdjustBalance(ctx, dbTx, cardID, amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrNotFound("card")
		}
		return nil, apperror.InternalError(fmt.Errorf("credit card: %w", err))
	}

	now := time.Now().UTC()
	walletEntry := &domain.WalletTransaction{
		ID:            uuid.New(),
		WalletID:      card.WalletID,
		Kind:          domain.TransactionKindCardTopUp,
		Amount:        amount,
		BalanceAfter:  walletBalance,
		TargetService: fmt.Sprintf("%s_card:%s", card.Type, card.ID),
		Description:   fmt.Sprintf("top-up %s card %s", card.Type, card.CardNumber),
		CreatedAt:     now,
	}
	cardEntry := &domain.CardTransaction{
		ID:           uuid.New(),
		CardID:       cardID,
		Kind:         domain.TransactionKindTopUp,
		Amount:       amount,
		BalanceAfter: cardBalance,
		CreatedAt:    now,
	}

	if err := s.ledgerRepo.CreateEntry(ctx, dbTx, walletEntry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record wallet debit: %w", err))
	}
	if err := s.cardRepo.CreateEntry(ctx, dbTx, cardEntry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record card credit: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit card top-up: %w", err))
	}

	s.log.Info().
		Str("card_id", cardID.String()).
		Int64("amount", amount).
		Msg("card topped up")

	card.Balance = cardBalance
	card.UpdatedAt = now
	return card, nil
}

// newCardNumber generates a display card number. Transit cards use the
// 6032 IIN range, insurance cards 6034.
func newCardNumber(cardType domain.CardType) string {
	prefix := "6032"
	if cardType == domain.CardTypeInsurance {
		prefix = "6034"
	}
	u := uuid.New()
	return fmt.Sprintf("%s-%02x%02x-%02x%02x-%02x%02x", prefix, u[0], u[1], u[2], u[3], u[4], u[5])
}
