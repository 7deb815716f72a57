package handler

import (
	"strconv"

	"civicpay/internal/adapter/http/middleware"
	"civicpay/internal/core/ports"
	"civicpay/pkg/apperror"
	"civicpay/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransactionHandler handles transaction history endpoints.
type TransactionHandler struct {
	txSvc     ports.TransactionService
	walletSvc ports.WalletService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(txSvc ports.TransactionService, walletSvc ports.WalletService) *TransactionHandler {
	return &TransactionHandler{txSvc: txSvc, walletSvc: walletSvc}
}

// Get handles GET /api/v1/transactions/:id. Entries on another
// owner's wallet read as not found.
func (h *TransactionHandler) Get(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid transaction id"))
		return
	}

	entry, err := h.txSvc.GetTransaction(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	wallet, err := h.walletSvc.GetWallet(c.Request.Context(), entry.WalletID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if wallet.OwnerID != ownerID {
		response.Error(c, apperror.ErrNotFound("transaction"))
		return
	}

	response.OK(c, entry)
}

// List handles GET /api/v1/transactions, the flat ledger read used by
// back-office tooling.
func (h *TransactionHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	entries, err := h.txSvc.ListTransactions(c.Request.Context(), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, entries)
}

// ListByWallet handles GET /api/v1/wallets/:id/transactions.
func (h *TransactionHandler) ListByWallet(c *gin.Context) {
	walletID, err := h.ownedWalletID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	limit, offset := pagination(c)
	entries, err := h.txSvc.ListWalletTransactions(c.Request.Context(), walletID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, entries)
}

// ListActivity handles GET /api/v1/wallets/:id/activity, the combined
// wallet-and-cards history.
func (h *TransactionHandler) ListActivity(c *gin.Context) {
	walletID, err := h.ownedWalletID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	limit, offset := pagination(c)
	entries, err := h.txSvc.ListActivity(c.Request.Context(), walletID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, entries)
}

func (h *TransactionHandler) ownedWalletID(c *gin.Context) (uuid.UUID, error) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		return uuid.Nil, apperror.ErrInvalidToken()
	}

	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperror.Validation("invalid wallet id")
	}

	wallet, err := h.walletSvc.GetWallet(c.Request.Context(), walletID)
	if err != nil {
		return uuid.Nil, err
	}
	if wallet.OwnerID != ownerID {
		return uuid.Nil, apperror.ErrNotFound("wallet")
	}
	return walletID, nil
}

func pagination(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}
