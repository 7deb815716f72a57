package domain

import (
	"time"

	"github.com/google/uuid"
)

// QrStatus is the lifecycle state of a pending QR top-up request.
type QrStatus string

const (
	QrStatusPending   QrStatus = "pending"
	QrStatusConfirmed QrStatus = "confirmed"
	QrStatusExpired   QrStatus = "expired"
)

// PendingQrRequest tracks a QR code issued to fund a wallet. The bank
// reference (transactionId on the QR) keys webhook confirmations back
// to the originating wallet.
type PendingQrRequest struct {
	ID            uuid.UUID  `json:"id"`
	WalletID      uuid.UUID  `json:"wallet_id"`
	Reference     string     `json:"reference"`
	Amount        int64      `json:"amount"`
	Status        QrStatus   `json:"status"`
	QrRawData     string     `json:"qr_raw_data"`
	BankRef       string     `json:"bank_ref,omitempty"` // settlement reference from the webhook
	CreatedAt     time.Time  `json:"created_at"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
}

// PaymentConfirmation is the parsed payload of a bank payment webhook.
type PaymentConfirmation struct {
	Reference       string    `json:"reference"`
	Amount          int64     `json:"amount"`
	PayerName       string    `json:"payer_name,omitempty"`
	PayerAccount    string    `json:"payer_account,omitempty"`
	BankRef         string    `json:"bank_ref"`
	SendingBank     string    `json:"sending_bank,omitempty"`
	TransactionDate time.Time `json:"transaction_date"`
}

// QrCode is the artifact returned to a client after QR issuance.
type QrCode struct {
	Reference string `json:"reference"`
	RawData   string `json:"raw_data"` // EMVCo QR payload to render client-side
	Amount    int64  `json:"amount"`
}

// VerifyResult reports the outcome of a bounded wait for payment
// confirmation.
type VerifyResult struct {
	Reference string   `json:"reference"`
	Status    QrStatus `json:"status"`
	// TimedOut is set when the wait elapsed before a confirmation
	// arrived. Status then reflects the last known state.
	TimedOut bool `json:"timed_out"`
}
