package handler

import (
	"time"

	"civicpay/internal/adapter/http/dto"
	"civicpay/internal/adapter/http/middleware"
	"civicpay/internal/core/domain"
	"civicpay/internal/core/ports"
	"civicpay/pkg/apperror"
	"civicpay/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PaymentHandler handles QR top-up and webhook endpoints.
type PaymentHandler struct {
	paymentSvc ports.PaymentService
	walletSvc  ports.WalletService
	log        zerolog.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentSvc ports.PaymentService, walletSvc ports.WalletService, log zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc, walletSvc: walletSvc, log: log}
}

// CreateQr handles POST /api/v1/payments/qr.
func (h *PaymentHandler) CreateQr(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateQrRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	wallet, err := h.walletSvc.GetWallet(c.Request.Context(), walletID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if wallet.OwnerID != ownerID {
		response.Error(c, apperror.ErrNotFound("wallet"))
		return
	}

	qr, err := h.paymentSvc.CreateQrCode(c.Request.Context(), walletID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, qr)
}

// Verify handles GET /api/v1/payments/:reference/verify. It blocks
// until the payment is confirmed or the server-side timeout elapses.
func (h *PaymentHandler) Verify(c *gin.Context) {
	reference := c.Param("reference")
	if reference == "" {
		response.Error(c, apperror.Validation("missing payment reference"))
		return
	}

	result, err := h.paymentSvc.VerifyPayment(c.Request.Context(), reference)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, result)
}

// Webhook handles POST /payments/webhook, the bank's payment
// confirmation callback. The route is public; the bank does not carry
// platform credentials.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var payload dto.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	txDate := time.Now().UTC()
	if payload.TransactionDateandTime != "" {
		if parsed, err := time.Parse(time.RFC3339, payload.TransactionDateandTime); err == nil {
			txDate = parsed
		}
	}

	conf := &domain.PaymentConfirmation{
		Reference:       payload.BillPaymentRef1,
		Amount:          payload.AmountMinor(),
		PayerName:       payload.PayerName,
		PayerAccount:    payload.PayerAccountNumber,
		BankRef:         payload.TransactionID,
		SendingBank:     payload.SendingBankCode,
		TransactionDate: txDate,
	}

	if err := h.paymentSvc.ConfirmPayment(c.Request.Context(), conf); err != nil {
		h.log.Warn().Err(err).Str("reference", conf.Reference).Msg("webhook processing failed")
		response.Error(c, err)
		return
	}

	// The bank expects a body echoing the reference on success.
	response.OK(c, gin.H{
		"resCode": "00",
		"resDesc": "success",
		"ref1":    conf.Reference,
	})
}
