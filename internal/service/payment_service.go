package service

import (
	"context"
	"fmt"
	"time"

	"civicpay/config"
	"civicpay/internal/core/domain"
	"civicpay/internal/core/ports"
	"civicpay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// confirmedCacheTTL bounds how long a confirmed reference stays in the
// fast-path cache. Verify calls arriving later fall back to the
// database row.
const confirmedCacheTTL = 30 * time.Minute

// PaymentServiceImpl implements ports.PaymentService.
type PaymentServiceImpl struct {
	qrRepo     ports.QrRequestRepository
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	transactor ports.DBTransactor
	tokens     ports.TokenSource
	gateway    ports.BankGateway
	notifier   ports.PaymentNotifier
	cache      ports.ConfirmedCache
	push       ports.PushSender
	cfg        config.PaymentConfig
	log        zerolog.Logger
}

// NewPaymentService creates a new PaymentServiceImpl. push may be nil
// when notifications are disabled.
func NewPaymentService(
	qrRepo ports.QrRequestRepository,
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	transactor ports.DBTransactor,
	tokens ports.TokenSource,
	gateway ports.BankGateway,
	notifier ports.PaymentNotifier,
	cache ports.ConfirmedCache,
	push ports.PushSender,
	cfg config.PaymentConfig,
	log zerolog.Logger,
) *PaymentServiceImpl {
	return &PaymentServiceImpl{
		qrRepo:     qrRepo,
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		transactor: transactor,
		tokens:     tokens,
		gateway:    gateway,
		notifier:   notifier,
		cache:      cache,
		push:       push,
		cfg:        cfg,
		log:        log,
	}
}

// CreateQrCode requests a payment QR from the bank for an active
// wallet and records the pending request keyed by its reference.
func (s *PaymentServiceImpl) CreateQrCode(ctx context.Context, walletID uuid.UUID, amount int64) (*domain.QrCode, error) {
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

	token, err := s.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	reference := "QR-" + uuid.NewString()
	qr, err := s.gateway.CreateQr(ctx, token, reference, amount)
	if err != nil {
		// The bank may have revoked the cached token early. Retry once
		// with a freshly exchanged one before giving up.
		s.tokens.Invalidate()
		token, terr := s.tokens.Token(ctx)
		if terr != nil {
			return nil, terr
		}
		qr, err = s.gateway.CreateQr(ctx, token, reference, amount)
		if err != nil {
			return nil, err
		}
	}

	req := &domain.PendingQrRequest{
		ID:        uuid.New(),
		WalletID:  walletID,
		Reference: qr.Reference,
		Amount:    amount,
		Status:    domain.QrStatusPending,
		QrRawData: qr.RawData,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.qrRepo.Create(ctx, req); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record qr request: %w", err))
	}

	s.log.Info().
		Str("reference", qr.Reference).
		Str("wallet_id", walletID.String()).
		Int64("amount", amount).
		Msg("payment QR issued")

	return &domain.QrCode{
		Reference: qr.Reference,
		RawData:   qr.RawData,
		Amount:    amount,
	}, nil
}

// ConfirmPayment applies a webhook confirmation: it transitions the QR
// request to confirmed, credits the wallet and writes the ledger entry
// in one transaction. Redelivered webhooks are a no-op.
func (s *PaymentServiceImpl) ConfirmPayment(ctx context.Context, conf *domain.PaymentConfirmation) error {
	req, err := s.lookupWithRetry(ctx, conf.Reference)
	if err != nil {
		return err
	}

	if conf.Amount != req.Amount {
		s.log.Warn().
			Str("reference", conf.Reference).
			Int64("expected", req.Amount).
			Int64("got", conf.Amount).
			Msg("webhook amount mismatch")
		return apperror.ErrConflict("payment amount does not match the issued QR")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	applied, err := s.qrRepo.MarkConfirmed(ctx, dbTx, conf.Reference, conf.BankRef, time.Now().UTC())
	if err != nil {
		return apperror.InternalError(fmt.Errorf("mark confirmed: %w", err))
	}
	if !applied {
		// Redelivery: the first delivery already settled this payment.
		s.log.Info().Str("reference", conf.Reference).Msg("webhook redelivery ignored")
		return nil
	}

	balance, err := s.walletRepo.AdjustBalance(ctx, dbTx, req.WalletID, req.Amount)
	if err != nil {
		return mapAdjustErr(err)
	}

	entry := &domain.WalletTransaction{
		ID:           uuid.New(),
		WalletID:     req.WalletID,
		Kind:         domain.TransactionKindPayment,
		Amount:       req.Amount,
		BalanceAfter: balance,
		Reference:    conf.Reference,
		Description:  "QR payment",
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.ledgerRepo.CreateEntry(ctx, dbTx, entry); err != nil {
		return apperror.InternalError(fmt.Errorf("record payment: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit confirmation: %w", err))
	}

	s.log.Info().
		Str("reference", conf.Reference).
		Str("wallet_id", req.WalletID.String()).
		Int64("amount", req.Amount).
		Int64("balance", balance).
		Msg("payment confirmed")

	// Post-commit side effects are best effort: the wallet is already
	// credited, so failures here only degrade latency, not money.
	if err := s.cache.MarkConfirmed(ctx, conf.Reference, confirmedCacheTTL); err != nil {
		s.log.Warn().Err(err).Str("reference", conf.Reference).Msg("confirmed cache update failed")
	}

	s.notifier.Publish(conf)

	if s.push != nil {
		wallet, err := s.walletRepo.GetByID(ctx, req.WalletID)
		if err == nil && wallet != nil {
			if err := s.push.SendPaymentConfirmed(ctx, wallet.OwnerID, conf.Reference, req.Amount); err != nil {
				s.log.Warn().Err(err).Str("reference", conf.Reference).Msg("push notification failed")
			}
		}
	}

	return nil
}

// lookupWithRetry finds the QR request for a reference. The bank can
// deliver a webhook before our issuance transaction commits, so a miss
// is retried once after a short pause before giving up.
func (s *PaymentServiceImpl) lookupWithRetry(ctx context.Context, reference string) (*domain.PendingQrRequest, error) {
	req, err := s.qrRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup qr request: %w", err))
	}
	if req != nil {
		return req, nil
	}

	select {
	case <-ctx.Done():
		return nil, apperror.InternalError(ctx.Err())
	case <-time.After(s.cfg.WebhookLookupRetry):
	}

	req, err = s.qrRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup qr request: %w", err))
	}
	if req == nil {
		return nil, apperror.ErrNotFound("payment reference")
	}
	return req, nil
}

// VerifyPayment blocks until the referenced payment is confirmed or
// the configured timeout elapses. It subscribes before re-checking
// state so a confirmation landing in between is never missed.
func (s *PaymentServiceImpl) VerifyPayment(ctx context.Context, reference string) (*domain.VerifyResult, error) {
	// Fast path: recently confirmed references answer from Redis.
	confirmed, err := s.cache.IsConfirmed(ctx, reference)
	if err != nil {
		s.log.Warn().Err(err).Str("reference", reference).Msg("confirmed cache check failed, falling through to DB")
	}
	if confirmed {
		return &domain.VerifyResult{Reference: reference, Status: domain.QrStatusConfirmed}, nil
	}

	ch, cancel := s.notifier.Subscribe(reference)
	defer cancel()

	req, err := s.qrRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup qr request: %w", err))
	}
	if req == nil {
		return nil, apperror.ErrNotFound("payment reference")
	}
	switch req.Status {
	case domain.QrStatusConfirmed:
		return &domain.VerifyResult{Reference: reference, Status: domain.QrStatusConfirmed}, nil
	case domain.QrStatusExpired:
		return &domain.VerifyResult{Reference: reference, Status: domain.QrStatusExpired}, nil
	}

	timer := time.NewTimer(s.cfg.VerifyTimeout)
	defer timer.Stop()

	select {
	case _, ok := <-ch:
		if ok {
			return &domain.VerifyResult{Reference: reference, Status: domain.QrStatusConfirmed}, nil
		}
		// Notifier shut down without a confirmation.
		return &domain.VerifyResult{Reference: reference, Status: req.Status, TimedOut: true}, nil
	case <-timer.C:
		return &domain.VerifyResult{Reference: reference, Status: req.Status, TimedOut: true}, nil
	case <-ctx.Done():
		return nil, apperror.InternalError(ctx.Err())
	}
}
