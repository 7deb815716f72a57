package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"civicpay/internal/adapter/http/dto"
	"civicpay/internal/adapter/http/middleware"
	"civicpay/internal/core/domain"
	"civicpay/internal/core/ports/mocks"
	"civicpay/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func authedContext(t *testing.T, w *httptest.ResponseRecorder, ownerID uuid.UUID) *gin.Context {
	t.Helper()
	c, _ := gin.CreateTestContext(w)
	c.Set(middleware.CtxOwnerID, ownerID)
	return c
}

func jsonRequest(method, target string, payload interface{}) *http.Request {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// --- Wallet Handler Tests ---

func TestCreateWallet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(mockWallet)

	ownerID := uuid.New()
	walletID := uuid.New()
	mockWallet.EXPECT().
		CreateWallet(gomock.Any(), ownerID, domain.WalletKindOrganization, domain.OrgSubtypeVolunteer).
		Return(&domain.Wallet{
			ID:         walletID,
			OwnerID:    ownerID,
			Kind:       domain.WalletKindOrganization,
			OrgSubtype: domain.OrgSubtypeVolunteer,
			Currency:   "THB",
			Status:     domain.WalletStatusActive,
		}, nil)

	w := httptest.NewRecorder()
	c := authedContext(t, w, ownerID)
	c.Request = jsonRequest(http.MethodPost, "/", dto.CreateWalletRequest{
		Kind:       "organization",
		OrgSubtype: "volunteer",
	})

	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, walletID.String(), data["id"])
	assert.Equal(t, "organization", data["kind"])
}

func TestCreateWallet_InvalidKind(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(mockWallet)

	w := httptest.NewRecorder()
	c := authedContext(t, w, uuid.New())
	c.Request = jsonRequest(http.MethodPost, "/", map[string]string{"kind": "corporate"})

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateWallet_Unauthenticated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(mockWallet)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(http.MethodPost, "/", dto.CreateWalletRequest{Kind: "individual"})

	h.Create(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetWallet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(mockWallet)

	ownerID := uuid.New()
	walletID := uuid.New()
	mockWallet.EXPECT().GetWallet(gomock.Any(), walletID).Return(&domain.Wallet{
		ID:      walletID,
		OwnerID: ownerID,
		Kind:    domain.WalletKindIndividual,
		Balance: 12500,
		Status:  domain.WalletStatusActive,
	}, nil)

	w := httptest.NewRecorder()
	c := authedContext(t, w, ownerID)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: walletID.String()}}

	h.Get(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(12500), data["balance"])
}

func TestGetWallet_ForeignOwnerReadsAsNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(mockWallet)

	walletID := uuid.New()
	mockWallet.EXPECT().GetWallet(gomock.Any(), walletID).Return(&domain.Wallet{
		ID:      walletID,
		OwnerID: uuid.New(), // someone else's wallet
		Status:  domain.WalletStatusActive,
	}, nil)

	w := httptest.NewRecorder()
	c := authedContext(t, w, uuid.New())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: walletID.String()}}

	h.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "FIN_002", resp["error_code"])
}

func TestTransfer_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(mockWallet)

	ownerID := uuid.New()
	fromID := uuid.New()
	toID := uuid.New()

	mockWallet.EXPECT().GetWallet(gomock.Any(), fromID).Return(&domain.Wallet{
		ID:      fromID,
		OwnerID: ownerID,
		Status:  domain.WalletStatusActive,
	}, nil)
	mockWallet.EXPECT().
		Transfer(gomock.Any(), fromID, toID, int64(4000), "lunch").
		Return(&domain.WalletTransaction{
			ID:           uuid.New(),
			WalletID:     fromID,
			Kind:         domain.TransactionKindTransferOut,
			Amount:       4000,
			BalanceAfter: 6000,
		}, nil)

	w := httptest.NewRecorder()
	c := authedContext(t, w, ownerID)
	c.Request = jsonRequest(http.MethodPost, "/", dto.TransferRequest{
		ToWalletID:  toID.String(),
		Amount:      4000,
		Description: "lunch",
	})
	c.Params = gin.Params{{Key: "id", Value: fromID.String()}}

	h.Transfer(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(4000), data["amount"])
}

func TestTopUpWallet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(mockWallet)

	ownerID := uuid.New()
	walletID := uuid.New()

	mockWallet.EXPECT().GetWallet(gomock.Any(), walletID).Return(&domain.Wallet{
		ID:      walletID,
		OwnerID: ownerID,
		Status:  domain.WalletStatusActive,
	}, nil)
	mockWallet.EXPECT().
		TopUpBalance(gomock.Any(), walletID, int64(5000)).
		Return(&domain.WalletTransaction{
			ID:           uuid.New(),
			WalletID:     walletID,
			Kind:         domain.TransactionKindTopUp,
			Amount:       5000,
			BalanceAfter: 5000,
		}, nil)

	w := httptest.NewRecorder()
	c := authedContext(t, w, ownerID)
	c.Request = jsonRequest(http.MethodPost, "/", dto.TopUpRequest{Amount: 5000})
	c.Params = gin.Params{{Key: "id", Value: walletID.String()}}

	h.TopUp(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(5000), data["balance_after"])
}

func TestTopUpWallet_NonPositiveAmount(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(mockWallet)

	ownerID := uuid.New()
	walletID := uuid.New()

	mockWallet.EXPECT().GetWallet(gomock.Any(), walletID).Return(&domain.Wallet{
		ID:      walletID,
		OwnerID: ownerID,
		Status:  domain.WalletStatusActive,
	}, nil)

	w := httptest.NewRecorder()
	c := authedContext(t, w, ownerID)
	c.Request = jsonRequest(http.MethodPost, "/", map[string]interface{}{"amount": -100})
	c.Params = gin.Params{{Key: "id", Value: walletID.String()}}

	h.TopUp(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(mockWallet)

	ownerID := uuid.New()
	fromID := uuid.New()
	toID := uuid.New()

	mockWallet.EXPECT().GetWallet(gomock.Any(), fromID).Return(&domain.Wallet{
		ID:      fromID,
		OwnerID: ownerID,
		Status:  domain.WalletStatusActive,
	}, nil)
	mockWallet.EXPECT().
		Transfer(gomock.Any(), fromID, toID, int64(999999), "").
		Return(nil, apperror.ErrInsufficientFunds())

	w := httptest.NewRecorder()
	c := authedContext(t, w, ownerID)
	c.Request = jsonRequest(http.MethodPost, "/", dto.TransferRequest{
		ToWalletID: toID.String(),
		Amount:     999999,
	})
	c.Params = gin.Params{{Key: "id", Value: fromID.String()}}

	h.Transfer(c)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestSuspendWallet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(mockWallet)

	ownerID := uuid.New()
	walletID := uuid.New()

	mockWallet.EXPECT().GetWallet(gomock.Any(), walletID).Return(&domain.Wallet{
		ID:      walletID,
		OwnerID: ownerID,
		Status:  domain.WalletStatusActive,
	}, nil)
	mockWallet.EXPECT().SuspendWallet(gomock.Any(), walletID).Return(nil)

	w := httptest.NewRecorder()
	c := authedContext(t, w, ownerID)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: walletID.String()}}

	h.Suspend(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

// --- Card Handler Tests ---

func TestIssueCard_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCard := mocks.NewMockCardService(ctrl)
	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewCardHandler(mockCard, mockWallet)

	ownerID := uuid.New()
	walletID := uuid.New()
	cardID := uuid.New()

	mockWallet.EXPECT().GetWallet(gomock.Any(), walletID).Return(&domain.Wallet{
		ID:      walletID,
		OwnerID: ownerID,
		Status:  domain.WalletStatusActive,
	}, nil)
	mockCard.EXPECT().
		IssueCard(gomock.Any(), walletID, domain.CardTypeTransit).
		Return(&domain.AuxiliaryCard{
			ID:       cardID,
			WalletID: walletID,
			Type:     domain.CardTypeTransit,
			Status:   domain.CardStatusActive,
		}, nil)

	w := httptest.NewRecorder()
	c := authedContext(t, w, ownerID)
	c.Request = jsonRequest(http.MethodPost, "/", dto.IssueCardRequest{
		WalletID: walletID.String(),
		Type:     "transit",
	})

	h.Issue(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, cardID.String(), data["id"])
}

func TestIssueCard_ForeignWallet(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCard := mocks.NewMockCardService(ctrl)
	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewCardHandler(mockCard, mockWallet)

	walletID := uuid.New()
	mockWallet.EXPECT().GetWallet(gomock.Any(), walletID).Return(&domain.Wallet{
		ID:      walletID,
		OwnerID: uuid.New(),
		Status:  domain.WalletStatusActive,
	}, nil)

	w := httptest.NewRecorder()
	c := authedContext(t, w, uuid.New())
	c.Request = jsonRequest(http.MethodPost, "/", dto.IssueCardRequest{
		WalletID: walletID.String(),
		Type:     "insurance",
	})

	h.Issue(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTopUpCard_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCard := mocks.NewMockCardService(ctrl)
	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewCardHandler(mockCard, mockWallet)

	ownerID := uuid.New()
	walletID := uuid.New()
	cardID := uuid.New()

	mockCard.EXPECT().GetCard(gomock.Any(), cardID).Return(&domain.AuxiliaryCard{
		ID:       cardID,
		WalletID: walletID,
		Type:     domain.CardTypeTransit,
		Status:   domain.CardStatusActive,
	}, nil)
	mockWallet.EXPECT().GetWallet(gomock.Any(), walletID).Return(&domain.Wallet{
		ID:      walletID,
		OwnerID: ownerID,
		Status:  domain.WalletStatusActive,
	}, nil)
	mockCard.EXPECT().TopUpCard(gomock.Any(), cardID, int64(2000)).Return(&domain.AuxiliaryCard{
		ID:       cardID,
		WalletID: walletID,
		Balance:  2000,
		Status:   domain.CardStatusActive,
	}, nil)

	w := httptest.NewRecorder()
	c := authedContext(t, w, ownerID)
	c.Request = jsonRequest(http.MethodPost, "/", dto.CardTopUpRequest{Amount: 2000})
	c.Params = gin.Params{{Key: "id", Value: cardID.String()}}

	h.TopUp(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(2000), data["balance"])
}

func TestGetCard_ForeignWalletReadsAsNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCard := mocks.NewMockCardService(ctrl)
	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewCardHandler(mockCard, mockWallet)

	walletID := uuid.New()
	cardID := uuid.New()

	mockCard.EXPECT().GetCard(gomock.Any(), cardID).Return(&domain.AuxiliaryCard{
		ID:       cardID,
		WalletID: walletID,
		Status:   domain.CardStatusActive,
	}, nil)
	mockWallet.EXPECT().GetWallet(gomock.Any(), walletID).Return(&domain.Wallet{
		ID:      walletID,
		OwnerID: uuid.New(),
		Status:  domain.WalletStatusActive,
	}, nil)

	w := httptest.NewRecorder()
	c := authedContext(t, w, uuid.New())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: cardID.String()}}

	h.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp["message"], "card")
}

// --- Transaction Handler Tests ---

func TestListTransactions_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTx := mocks.NewMockTransactionService(ctrl)
	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewTransactionHandler(mockTx, mockWallet)

	ownerID := uuid.New()
	walletID := uuid.New()

	mockWallet.EXPECT().GetWallet(gomock.Any(), walletID).Return(&domain.Wallet{
		ID:      walletID,
		OwnerID: ownerID,
		Status:  domain.WalletStatusActive,
	}, nil)
	mockTx.EXPECT().
		ListWalletTransactions(gomock.Any(), walletID, 10, 5).
		Return([]*domain.WalletTransaction{
			{ID: uuid.New(), WalletID: walletID, Kind: domain.TransactionKindTopUp, Amount: 5000, BalanceAfter: 5000},
		}, nil)

	w := httptest.NewRecorder()
	c := authedContext(t, w, ownerID)
	c.Request = httptest.NewRequest(http.MethodGet, "/?limit=10&offset=5", nil)
	c.Params = gin.Params{{Key: "id", Value: walletID.String()}}

	h.ListByWallet(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	items := resp["data"].([]interface{})
	assert.Len(t, items, 1)
}

func TestGetTransaction_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTx := mocks.NewMockTransactionService(ctrl)
	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewTransactionHandler(mockTx, mockWallet)

	ownerID := uuid.New()
	walletID := uuid.New()
	entryID := uuid.New()

	mockTx.EXPECT().GetTransaction(gomock.Any(), entryID).Return(&domain.WalletTransaction{
		ID:           entryID,
		WalletID:     walletID,
		Kind:         domain.TransactionKindPayment,
		Amount:       5000,
		BalanceAfter: 5000,
	}, nil)
	mockWallet.EXPECT().GetWallet(gomock.Any(), walletID).Return(&domain.Wallet{
		ID:      walletID,
		OwnerID: ownerID,
		Status:  domain.WalletStatusActive,
	}, nil)

	w := httptest.NewRecorder()
	c := authedContext(t, w, ownerID)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: entryID.String()}}

	h.Get(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "payment", data["kind"])
}

func TestGetTransaction_ForeignWalletReadsAsNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTx := mocks.NewMockTransactionService(ctrl)
	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewTransactionHandler(mockTx, mockWallet)

	walletID := uuid.New()
	entryID := uuid.New()

	mockTx.EXPECT().GetTransaction(gomock.Any(), entryID).Return(&domain.WalletTransaction{
		ID:       entryID,
		WalletID: walletID,
	}, nil)
	mockWallet.EXPECT().GetWallet(gomock.Any(), walletID).Return(&domain.Wallet{
		ID:      walletID,
		OwnerID: uuid.New(),
		Status:  domain.WalletStatusActive,
	}, nil)

	w := httptest.NewRecorder()
	c := authedContext(t, w, uuid.New())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: entryID.String()}}

	h.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp["message"], "transaction")
}

func TestListAllTransactions_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTx := mocks.NewMockTransactionService(ctrl)
	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewTransactionHandler(mockTx, mockWallet)

	mockTx.EXPECT().
		ListTransactions(gomock.Any(), 10, 0).
		Return([]*domain.WalletTransaction{
			{ID: uuid.New(), Kind: domain.TransactionKindTopUp, Amount: 5000, BalanceAfter: 5000},
			{ID: uuid.New(), Kind: domain.TransactionKindPayment, Amount: 2500, BalanceAfter: 7500},
		}, nil)

	w := httptest.NewRecorder()
	c := authedContext(t, w, uuid.New())
	c.Request = httptest.NewRequest(http.MethodGet, "/?limit=10", nil)

	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	items := resp["data"].([]interface{})
	assert.Len(t, items, 2)
}

func TestListActivity_WalletNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTx := mocks.NewMockTransactionService(ctrl)
	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewTransactionHandler(mockTx, mockWallet)

	walletID := uuid.New()
	mockWallet.EXPECT().GetWallet(gomock.Any(), walletID).Return(nil, apperror.ErrNotFound("wallet"))

	w := httptest.NewRecorder()
	c := authedContext(t, w, uuid.New())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: walletID.String()}}

	h.ListActivity(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- Payment Handler Tests ---

func TestCreateQr_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayment := mocks.NewMockPaymentService(ctrl)
	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewPaymentHandler(mockPayment, mockWallet, zerolog.Nop())

	ownerID := uuid.New()
	walletID := uuid.New()

	mockWallet.EXPECT().GetWallet(gomock.Any(), walletID).Return(&domain.Wallet{
		ID:      walletID,
		OwnerID: ownerID,
		Status:  domain.WalletStatusActive,
	}, nil)
	mockPayment.EXPECT().
		CreateQrCode(gomock.Any(), walletID, int64(2550)).
		Return(&domain.QrCode{
			Reference: "QR-abc123",
			RawData:   "00020101021229370016A000000677010111",
			Amount:    2550,
		}, nil)

	w := httptest.NewRecorder()
	c := authedContext(t, w, ownerID)
	c.Request = jsonRequest(http.MethodPost, "/", dto.CreateQrRequest{
		WalletID: walletID.String(),
		Amount:   2550,
	})

	h.CreateQr(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "QR-abc123", data["reference"])
}

func TestCreateQr_ForeignWallet(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayment := mocks.NewMockPaymentService(ctrl)
	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewPaymentHandler(mockPayment, mockWallet, zerolog.Nop())

	walletID := uuid.New()
	mockWallet.EXPECT().GetWallet(gomock.Any(), walletID).Return(&domain.Wallet{
		ID:      walletID,
		OwnerID: uuid.New(),
		Status:  domain.WalletStatusActive,
	}, nil)

	w := httptest.NewRecorder()
	c := authedContext(t, w, uuid.New())
	c.Request = jsonRequest(http.MethodPost, "/", dto.CreateQrRequest{
		WalletID: walletID.String(),
		Amount:   100,
	})

	h.CreateQr(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhook_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayment := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockPayment, nil, zerolog.Nop())

	mockPayment.EXPECT().
		ConfirmPayment(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, conf *domain.PaymentConfirmation) error {
			assert.Equal(t, "QR-abc123", conf.Reference)
			assert.Equal(t, int64(2550), conf.Amount)
			assert.Equal(t, "bank-tx-9", conf.BankRef)
			return nil
		})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(http.MethodPost, "/", dto.WebhookPayload{
		TransactionID:          "bank-tx-9",
		Amount:                 25.50,
		BillPaymentRef1:        "QR-abc123",
		PayerName:              "SOMCHAI J",
		PayerAccountNumber:     "xxx-x-x1234-x",
		TransactionDateandTime: "2026-08-29T10:30:00Z",
		SendingBankCode:        "014",
	})

	h.Webhook(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "00", data["resCode"])
	assert.Equal(t, "QR-abc123", data["ref1"])
}

func TestWebhook_RedeliveryStillSucceeds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayment := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockPayment, nil, zerolog.Nop())

	// ConfirmPayment is idempotent; a redelivered webhook returns nil.
	mockPayment.EXPECT().ConfirmPayment(gomock.Any(), gomock.Any()).Return(nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(http.MethodPost, "/", dto.WebhookPayload{
		TransactionID:   "bank-tx-9",
		Amount:          25.50,
		BillPaymentRef1: "QR-abc123",
		SendingBankCode: "014",
	})

	h.Webhook(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhook_UnknownReference(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayment := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockPayment, nil, zerolog.Nop())

	mockPayment.EXPECT().
		ConfirmPayment(gomock.Any(), gomock.Any()).
		Return(apperror.ErrNotFound("payment request"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(http.MethodPost, "/", dto.WebhookPayload{
		TransactionID:   "bank-tx-9",
		Amount:          10.00,
		BillPaymentRef1: "QR-unknown",
		SendingBankCode: "014",
	})

	h.Webhook(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhook_MissingRequiredFields(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayment := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockPayment, nil, zerolog.Nop())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(http.MethodPost, "/", map[string]interface{}{"amount": 10.0})

	h.Webhook(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerify_Confirmed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayment := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockPayment, nil, zerolog.Nop())

	mockPayment.EXPECT().VerifyPayment(gomock.Any(), "QR-abc123").Return(&domain.VerifyResult{
		Reference: "QR-abc123",
		Status:    domain.QrStatusConfirmed,
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "reference", Value: "QR-abc123"}}

	h.Verify(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "confirmed", data["status"])
}

func TestVerify_Timeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayment := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockPayment, nil, zerolog.Nop())

	mockPayment.EXPECT().VerifyPayment(gomock.Any(), "QR-slow").Return(&domain.VerifyResult{
		Reference: "QR-slow",
		Status:    domain.QrStatusPending,
		TimedOut:  true,
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "reference", Value: "QR-slow"}}

	h.Verify(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, true, data["timed_out"])
	assert.Equal(t, "pending", data["status"])
}

// --- Health Check Tests ---

type fakeChecker struct {
	name string
	err  error
}

func (f fakeChecker) Name() string                  { return f.name }
func (f fakeChecker) Check(_ context.Context) error { return f.err }

func TestHealthCheck_AllHealthy(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(fakeChecker{name: "postgresql"}, fakeChecker{name: "redis"})(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestHealthCheck_Degraded(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(
		fakeChecker{name: "postgresql"},
		fakeChecker{name: "redis", err: errors.New("connection refused")},
	)(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
	deps := resp["dependencies"].(map[string]interface{})
	redisDep := deps["redis"].(map[string]interface{})
	assert.Equal(t, "unhealthy", redisDep["status"])
}
