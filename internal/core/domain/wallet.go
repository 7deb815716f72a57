package domain

import (
	"time"

	"github.com/google/uuid"
)

// WalletKind distinguishes personal wallets from organization wallets.
type WalletKind string

const (
	WalletKindIndividual   WalletKind = "individual"
	WalletKindOrganization WalletKind = "organization"
)

// OrgSubtype classifies organization wallets. Empty for individual wallets.
type OrgSubtype string

const (
	OrgSubtypeVolunteer      OrgSubtype = "volunteer"
	OrgSubtypeTransportation OrgSubtype = "transportation"
	OrgSubtypeHealthcare     OrgSubtype = "healthcare"
)

// WalletStatus is the lifecycle state of a wallet.
type WalletStatus string

const (
	WalletStatusActive    WalletStatus = "active"
	WalletStatusSuspended WalletStatus = "suspended"
)

// Wallet is a stored-value account. Balance is in minor units (satang)
// and is never negative.
type Wallet struct {
	ID         uuid.UUID    `json:"id"`
	OwnerID    uuid.UUID    `json:"owner_id"`
	Kind       WalletKind   `json:"kind"`
	OrgSubtype OrgSubtype   `json:"org_subtype,omitempty"`
	Balance    int64        `json:"balance"`
	Currency   string       `json:"currency"`
	Status     WalletStatus `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// IsActive reports whether the wallet can participate in transactions.
func (w *Wallet) IsActive() bool {
	return w.Status == WalletStatusActive
}
