package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionKind classifies a ledger entry.
type TransactionKind string

const (
	TransactionKindTopUp       TransactionKind = "top_up"
	TransactionKindTransferOut TransactionKind = "transfer_out"
	TransactionKindTransferIn  TransactionKind = "transfer_in"
	TransactionKindCardTopUp   TransactionKind = "card_top_up"
	TransactionKindPayment     TransactionKind = "payment"
)

// WalletTransaction is an immutable ledger entry against a wallet.
// Amount is always positive; Kind implies the direction (transfer_out
// and card_top_up debit the wallet, everything else credits it).
// BalanceAfter snapshots the wallet balance after the entry applied.
type WalletTransaction struct {
	ID            uuid.UUID       `json:"id"`
	WalletID      uuid.UUID       `json:"wallet_id"`
	Kind          TransactionKind `json:"kind"`
	Amount        int64           `json:"amount"`
	BalanceAfter  int64           `json:"balance_after"`
	CounterpartID *uuid.UUID      `json:"counterpart_id,omitempty"` // peer wallet on transfers
	TargetService string          `json:"target_service,omitempty"` // external target, e.g. "transit_card:<id>"
	Reference     string          `json:"reference,omitempty"`      // bank reference on QR payments
	Description   string          `json:"description,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// CardTransaction is a ledger entry against an auxiliary card.
type CardTransaction struct {
	ID           uuid.UUID       `json:"id"`
	CardID       uuid.UUID       `json:"card_id"`
	Kind         TransactionKind `json:"kind"`
	Amount       int64           `json:"amount"`
	BalanceAfter int64           `json:"balance_after"`
	Description  string          `json:"description,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ActivityEntry is one row in a combined wallet-plus-cards history view.
type ActivityEntry struct {
	ID           uuid.UUID       `json:"id"`
	Source       string          `json:"source"` // "wallet" or card type
	SourceID     uuid.UUID       `json:"source_id"`
	Kind         TransactionKind `json:"kind"`
	Amount       int64           `json:"amount"`
	BalanceAfter int64           `json:"balance_after"`
	Description  string          `json:"description,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
