package domain

import (
	"time"

	"github.com/google/uuid"
)

// CardType identifies the auxiliary card product.
type CardType string

const (
	CardTypeTransit   CardType = "transit"
	CardTypeInsurance CardType = "insurance"
)

// CardStatus is the lifecycle state of an auxiliary card.
type CardStatus string

const (
	CardStatusActive    CardStatus = "active"
	CardStatusSuspended CardStatus = "suspended"
)

// AuxiliaryCard is a stored-value card linked to a wallet, funded by
// transfers out of the owning wallet. Balance is in minor units.
type AuxiliaryCard struct {
	ID         uuid.UUID  `json:"id"`
	WalletID   uuid.UUID  `json:"wallet_id"`
	Type       CardType   `json:"type"`
	CardNumber string     `json:"card_number"`
	Balance    int64      `json:"balance"`
	Status     CardStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsActive reports whether the card can be topped up.
func (c *AuxiliaryCard) IsActive() bool {
	return c.Status == CardStatusActive
}
