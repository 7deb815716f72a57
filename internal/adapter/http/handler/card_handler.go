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

// CardHandler handles auxiliary card endpoints.
type CardHandler struct {
	cardSvc   ports.CardService
	walletSvc ports.WalletService
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(cardSvc ports.CardService, walletSvc ports.WalletService) *CardHandler {
	return &CardHandler{cardSvc: cardSvc, walletSvc: walletSvc}
}

// Issue handles POST /api/v1/cards.
func (h *CardHandler) Issue(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.IssueCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	if err := h.checkWalletOwner(c, walletID, ownerID); err != nil {
		response.Error(c, err)
		return
	}

	card, err := h.cardSvc.IssueCard(c.Request.Context(), walletID, domain.CardType(req.Type))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, card)
}

// Get handles GET /api/v1/cards/:id.
func (h *CardHandler) Get(c *gin.Context) {
	card, err := h.ownedCard(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, card)
}

// ListByWallet handles GET /api/v1/wallets/:id/cards.
func (h *CardHandler) ListByWallet(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}
	if err := h.checkWalletOwner(c, walletID, ownerID); err != nil {
		response.Error(c, err)
		return
	}

	cards, err := h.cardSvc.ListCards(c.Request.Context(), walletID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, cards)
}

// TopUp handles POST /api/v1/cards/:id/topup.
func (h *CardHandler) TopUp(c *gin.Context) {
	card, err := h.ownedCard(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.CardTopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	updated, err := h.cardSvc.TopUpCard(c.Request.Context(), card.ID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, updated)
}

// ownedCard loads the path card and verifies the owning wallet belongs
// to the authenticated owner.
func (h *CardHandler) ownedCard(c *gin.Context) (*domain.AuxiliaryCard, error) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		return nil, apperror.ErrInvalidToken()
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, apperror.Validation("invalid card id")
	}

	card, err := h.cardSvc.GetCard(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if err := h.checkWalletOwner(c, card.WalletID, ownerID); err != nil {
		return nil, apperror.ErrNotFound("card")
	}
	return card, nil
}

func (h *CardHandler) checkWalletOwner(c *gin.Context, walletID, ownerID uuid.UUID) error {
	wallet, err := h.walletSvc.GetWallet(c.Request.Context(), walletID)
	if err != nil {
		return err
	}
	if wallet.OwnerID != ownerID {
		return apperror.ErrNotFound("wallet")
	}
	return nil
}
