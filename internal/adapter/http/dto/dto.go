package dto

import "math"

// CreateWalletRequest creates a wallet for the authenticated owner.
type CreateWalletRequest struct {
	Kind       string `json:"kind" binding:"required,oneof=individual organization"`
	OrgSubtype string `json:"org_subtype" binding:"omitempty,oneof=volunteer transportation healthcare"`
}

// TransferRequest moves funds between two wallets.
type TransferRequest struct {
	ToWalletID  string `json:"to_wallet_id" binding:"required,uuid"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Description string `json:"description" binding:"omitempty,max=255"`
}

// IssueCardRequest issues an auxiliary card against a wallet.
type IssueCardRequest struct {
	WalletID string `json:"wallet_id" binding:"required,uuid"`
	Type     string `json:"type" binding:"required,oneof=transit insurance"`
}

// TopUpRequest credits a wallet directly.
type TopUpRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// CardTopUpRequest funds a card from its owning wallet.
type CardTopUpRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// CreateQrRequest asks for a bank payment QR to top up a wallet.
type CreateQrRequest struct {
	WalletID string `json:"wallet_id" binding:"required,uuid"`
	Amount   int64  `json:"amount" binding:"required,gt=0"`
}

// WebhookPayload is the bank's payment confirmation callback. Field
// names follow the partner API: billPaymentRef1 carries our QR
// reference and amount is a decimal in major units.
type WebhookPayload struct {
	TransactionID          string  `json:"transactionId" binding:"required"`
	Amount                 float64 `json:"amount" binding:"required,gt=0"`
	BillPaymentRef1        string  `json:"billPaymentRef1" binding:"required"`
	PayerName              string  `json:"payerName"`
	PayerAccountNumber     string  `json:"payerAccountNumber"`
	TransactionDateandTime string  `json:"transactionDateandTime"`
	SendingBankCode        string  `json:"sendingBankCode" binding:"required"`
}

// AmountMinor converts the decimal amount to minor units.
func (p *WebhookPayload) AmountMinor() int64 {
	return int64(math.Round(p.Amount * 100))
}
