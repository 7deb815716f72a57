package handler

import (
	"civicpay/internal/adapter/http/dto"
	"civicpay/internal/adapter/http/middleware"
	"civicpay/internal/core/domain"
	"civicpay/internal/core/ports"
	"civicpay/pkg/apperror"
	"civicpay/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles wallet endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// Create handles POST /api/v1/wallets.
func (h *WalletHandler) Create(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	wallet, err := h.walletSvc.CreateWallet(
		c.Request.Context(), ownerID,
		domain.WalletKind(req.Kind), domain.OrgSubtype(req.OrgSubtype),
	)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, wallet)
}

// List handles GET /api/v1/wallets.
func (h *WalletHandler) List(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	wallets, err := h.walletSvc.ListWallets(c.Request.Context(), ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, wallets)
}

// Get handles GET /api/v1/wallets/:id.
func (h *WalletHandler) Get(c *gin.Context) {
	wallet, err := h.ownedWallet(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, wallet)
}

// TopUp handles POST /api/v1/wallets/:id/topup.
func (h *WalletHandler) TopUp(c *gin.Context) {
	wallet, err := h.ownedWallet(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	entry, err := h.walletSvc.TopUpBalance(c.Request.Context(), wallet.ID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, entry)
}

// Transfer handles POST /api/v1/wallets/:id/transfer.
func (h *WalletHandler) Transfer(c *gin.Context) {
	wallet, err := h.ownedWallet(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	toID, err := uuid.Parse(req.ToWalletID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid destination wallet id"))
		return
	}

	entry, err := h.walletSvc.Transfer(c.Request.Context(), wallet.ID, toID, req.Amount, req.Description)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, entry)
}

// Suspend handles POST /api/v1/wallets/:id/suspend.
func (h *WalletHandler) Suspend(c *gin.Context) {
	wallet, err := h.ownedWallet(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.walletSvc.SuspendWallet(c.Request.Context(), wallet.ID); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"status": string(domain.WalletStatusSuspended)})
}

// ownedWallet loads the path wallet and verifies it belongs to the
// authenticated owner. Foreign wallets read as not found so the API
// does not leak their existence.
func (h *WalletHandler) ownedWallet(c *gin.Context) (*domain.Wallet, error) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		return nil, apperror.ErrInvalidToken()
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, apperror.Validation("invalid wallet id")
	}

	wallet, err := h.walletSvc.GetWallet(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if wallet.OwnerID != ownerID {
		return nil, apperror.ErrNotFound("wallet")
	}
	return wallet, nil
}
