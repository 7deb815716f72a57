package ports

import (
	"context"
	"time"

	"civicpay/internal/core/domain"

	"github.com/google/uuid"
)

// WalletService exposes wallet lifecycle and balance operations.
type WalletService interface {
	CreateWallet(ctx context.Context, ownerID uuid.UUID, kind domain.WalletKind, subtype domain.OrgSubtype) (*domain.Wallet, error)
	GetWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	ListWallets(ctx context.Context, ownerID uuid.UUID) ([]*domain.Wallet, error)
	// TopUpBalance credits a wallet and writes the matching ledger
	// entry atomically.
	TopUpBalance(ctx context.Context, walletID uuid.UUID, amount int64) (*domain.WalletTransaction, error)
	// Transfer moves amount between two wallets atomically. Both legs
	// commit or neither does.
	Transfer(ctx context.Context, fromID, toID uuid.UUID, amount int64, description string) (*domain.WalletTransaction, error)
	SuspendWallet(ctx context.Context, id uuid.UUID) error
}

// CardService manages auxiliary cards funded from a wallet.
type CardService interface {
	IssueCard(ctx context.Context, walletID uuid.UUID, cardType domain.CardType) (*domain.AuxiliaryCard, error)
	GetCard(ctx context.Context, id uuid.UUID) (*domain.AuxiliaryCard, error)
	ListCards(ctx context.Context, walletID uuid.UUID) ([]*domain.AuxiliaryCard, error)
	// TopUpCard debits the owning wallet and credits the card in one
	// transaction.
	TopUpCard(ctx context.Context, cardID uuid.UUID, amount int64) (*domain.AuxiliaryCard, error)
}

// TransactionService reads transaction history.
type TransactionService interface {
	GetTransaction(ctx context.Context, id uuid.UUID) (*domain.WalletTransaction, error)
	ListTransactions(ctx context.Context, limit, offset int) ([]*domain.WalletTransaction, error)
	ListWalletTransactions(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*domain.WalletTransaction, error)
	ListActivity(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*domain.ActivityEntry, error)
}

// PaymentService drives the QR top-up flow against the bank gateway.
type PaymentService interface {
	// CreateQrCode requests a payment QR from the bank and records the
	// pending request.
	CreateQrCode(ctx context.Context, walletID uuid.UUID, amount int64) (*domain.QrCode, error)
	// ConfirmPayment applies a webhook confirmation: credits the wallet
	// and writes the ledger entry. Idempotent on redelivery.
	ConfirmPayment(ctx context.Context, conf *domain.PaymentConfirmation) error
	// VerifyPayment blocks until the referenced payment is confirmed or
	// the configured timeout elapses.
	VerifyPayment(ctx context.Context, reference string) (*domain.VerifyResult, error)
}

// TokenSource supplies a valid bearer token for bank API calls,
// refreshing under the hood when the cached one nears expiry.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	// Invalidate drops the cached token after the bank rejects it, so
	// the next Token call performs a fresh exchange.
	Invalidate()
}

// QrCodeResponse is what the bank returns for a QR creation call.
type QrCodeResponse struct {
	Reference string // transaction reference embedded in the QR
	RawData   string // EMVCo payload
}

// BankGateway is the outbound client to the bank's partner API.
type BankGateway interface {
	// RequestToken performs the OAuth client-credentials exchange and
	// returns the token with its absolute expiry.
	RequestToken(ctx context.Context) (token string, expiresAt time.Time, err error)
	// CreateQr asks the bank to mint a payment QR for amount minor
	// units, tagged with our reference.
	CreateQr(ctx context.Context, accessToken, reference string, amount int64) (*QrCodeResponse, error)
}

// PaymentNotifier is an in-process rendezvous between webhook arrivals
// and blocked verify calls.
type PaymentNotifier interface {
	// Subscribe registers interest in a reference. The returned channel
	// receives at most one confirmation. cancel releases the
	// subscription; it is safe to call after delivery.
	Subscribe(reference string) (ch <-chan *domain.PaymentConfirmation, cancel func())
	// Publish delivers conf to all current subscribers of its
	// reference.
	Publish(conf *domain.PaymentConfirmation)
	Close()
}

// TokenClaims are the identity claims carried by a platform JWT.
type TokenClaims struct {
	OwnerID uuid.UUID
}

// TokenVerifier validates platform-issued bearer tokens. Token
// issuance belongs to the city identity service; this module only
// verifies.
type TokenVerifier interface {
	Validate(tokenString string) (*TokenClaims, error)
}

// PushSender fans out a payment notification to a user's devices.
type PushSender interface {
	SendPaymentConfirmed(ctx context.Context, ownerID uuid.UUID, reference string, amount int64) error
}

// ConfirmedCache is a short-lived cache of recently confirmed
// references so verify calls skip the database on the hot path.
type ConfirmedCache interface {
	MarkConfirmed(ctx context.Context, reference string, ttl time.Duration) error
	IsConfirmed(ctx context.Context, reference string) (bool, error)
}
