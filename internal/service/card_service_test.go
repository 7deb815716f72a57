package service

import (
	"context"
	"strings"
	"testing"

	"civicpay/internal/core/domain"
	"civicpay/internal/core/ports"
	"civicpay/internal/core/ports/mocks"
	"civicpay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type cardTestDeps struct {
	svc        *CardServiceImpl
	cardRepo   *mocks.MockCardRepository
	walletRepo *mocks.MockWalletRepository
	ledgerRepo *mocks.MockLedgerRepository
	transactor *mocks.MockDBTransactor
	ctrl       *gomock.Controller
}

func setupCardService(t *testing.T) *cardTestDeps {
	ctrl := gomock.NewController(t)
	d := &cardTestDeps{
		cardRepo:   mocks.NewMockCardRepository(ctrl),
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		ledgerRepo: mocks.NewMockLedgerRepository(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewCardService(d.cardRepo, d.walletRepo, d.ledgerRepo, d.transactor, zerolog.Nop())
	return d
}

func activeCard(id, walletID uuid.UUID, balance int64) *domain.AuxiliaryCard {
	return &domain.AuxiliaryCard{
		ID:         id,
		WalletID:   walletID,
		Type:       domain.CardTypeTransit,
		CardNumber: "6032-0000-0000-0001",
		Balance:    balance,
		Status:     domain.CardStatusActive,
	}
}

func TestCardService_IssueCard(t *testing.T) {
	d := setupCardService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	walletID := uuid.New()

	d.walletRepo.EXPECT().GetByID(ctx, walletID).Return(activeWallet(walletID, 0), nil)
	d.cardRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	card, err := d.svc.IssueCard(ctx, walletID, domain.CardTypeInsurance)
	require.NoError(t, err)
	assert.Equal(t, domain.CardTypeInsurance, card.Type)
	assert.Equal(t, int64(0), card.Balance)
	assert.True(t, strings.HasPrefix(card.CardNumber, "6034-"))
}

func TestCardService_IssueCard_UnknownType(t *testing.T) {
	d := setupCardService(t)
	defer d.ctrl.Finish()

	_, err := d.svc.IssueCard(context.Background(), uuid.New(), "library")
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VAL_001", appErr.Code)
}

func TestCardService_IssueCard_SuspendedWallet(t *testing.T) {
	d := setupCardService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	walletID := uuid.New()
	w := activeWallet(walletID, 0)
	w.Status = domain.WalletStatusSuspended

	d.walletRepo.EXPECT().GetByID(ctx, walletID).Return(w, nil)

	_, err := d.svc.IssueCard(ctx, walletID, domain.CardTypeTransit)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FIN_004", appErr.Code)
}

func TestCardService_TopUpCard_Success(t *testing.T) {
	d := setupCardService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	walletID := uuid.New()
	cardID := uuid.New()
	tx := &mockTx{}

	d.cardRepo.EXPECT().GetByID(ctx, cardID).Return(activeCard(cardID, walletID, 0), nil)
	d.walletRepo.EXPECT().GetByID(ctx, walletID).Return(activeWallet(walletID, 10000), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().AdjustBalance(ctx, tx, walletID, int64(-3000)).Return(int64(7000), nil)
	d.cardRepo.EXPECT().AdjustBalance(ctx, tx, cardID, int64(3000)).Return(int64(3000), nil)
	d.ledgerRepo.EXPECT().CreateEntry(ctx, tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, entry *domain.WalletTransaction) error {
			assert.Equal(t, domain.TransactionKindCardTopUp, entry.Kind)
			assert.Equal(t, int64(3000), entry.Amount)
			assert.Equal(t, "transit_card:"+cardID.String(), entry.TargetService)
			return nil
		})
	d.cardRepo.EXPECT().CreateEntry(ctx, tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, entry *domain.CardTransaction) error {
			assert.Equal(t, domain.TransactionKindTopUp, entry.Kind)
			assert.Equal(t, int64(3000), entry.Amount)
			return nil
		})

	card, err := d.svc.TopUpCard(ctx, cardID, 3000)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), card.Balance)
}

func TestCardService_TopUpCard_InsufficientWalletFunds(t *testing.T) {
	d := setupCardService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	walletID := uuid.New()
	cardID := uuid.New()
	tx := &mockTx{}

	d.cardRepo.EXPECT().GetByID(ctx, cardID).Return(activeCard(cardID, walletID, 0), nil)
	d.walletRepo.EXPECT().GetByID(ctx, walletID).Return(activeWallet(walletID, 100), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().AdjustBalance(ctx, tx, walletID, int64(-3000)).Return(int64(0), ports.ErrInsufficientBalance)

	_, err := d.svc.TopUpCard(ctx, cardID, 3000)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FIN_001", appErr.Code)
}

func TestCardService_TopUpCard_CardNotFound(t *testing.T) {
	d := setupCardService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	cardID := uuid.New()

	d.cardRepo.EXPECT().GetByID(ctx, cardID).Return(nil, nil)

	_, err := d.svc.TopUpCard(ctx, cardID, 100)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FIN_002", appErr.Code)
}
