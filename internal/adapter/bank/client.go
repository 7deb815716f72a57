package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"civicpay/config"
	"civicpay/internal/core/ports"
	"civicpay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	tokenPath = "/v1/oauth/token"
	qrPath    = "/v1/payment/qrcode/create"

	// statusOK is the gateway's success code inside the response body.
	statusOK = 1000
)

// Client implements ports.BankGateway against the bank's partner API.
type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	billerID  string
	http      *http.Client
	log       zerolog.Logger
}

// NewClient creates a bank gateway client.
func NewClient(cfg config.BankConfig, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		billerID:  cfg.BillerID,
		http:      &http.Client{Timeout: cfg.Timeout},
		log:       log.With().Str("component", "bank_client").Logger(),
	}
}

type apiStatus struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
}

type tokenResponse struct {
	Status apiStatus `json:"status"`
	Data   struct {
		AccessToken string `json:"accessToken"`
		TokenType   string `json:"tokenType"`
		ExpiresIn   int64  `json:"expiresIn"` // seconds
		ExpiresAt   int64  `json:"expiresAt"` // unix seconds
	} `json:"data"`
}

type qrResponse struct {
	Status apiStatus `json:"status"`
	Data   struct {
		QrRawData string `json:"qrRawData"`
		QrImage   string `json:"qrImage"`
	} `json:"data"`
}

// RequestToken performs the OAuth client-credentials exchange.
func (c *Client) RequestToken(ctx context.Context) (string, time.Time, error) {
	body, err := json.Marshal(map[string]string{
		"applicationKey":    c.apiKey,
		"applicationSecret": c.apiSecret,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, bytes.NewReader(body))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build token request: %w", err)
	}
	c.setCommonHeaders(req)

	var out tokenResponse
	if err := c.do(req, &out, &out.Status); err != nil {
		return "", time.Time{}, err
	}

	expiresAt := time.Unix(out.Data.ExpiresAt, 0)
	if out.Data.ExpiresAt == 0 {
		expiresAt = time.Now().Add(time.Duration(out.Data.ExpiresIn) * time.Second)
	}

	c.log.Debug().Time("expires_at", expiresAt).Msg("obtained gateway access token")
	return out.Data.AccessToken, expiresAt, nil
}

// CreateQr asks the bank to mint a biller payment QR. The amount is in
// minor units and is sent to the gateway as a decimal string.
func (c *Client) CreateQr(ctx context.Context, accessToken, reference string, amount int64) (*ports.QrCodeResponse, error) {
	body, err := json.Marshal(map[string]string{
		"qrType":   "PP",
		"ppType":   "BILLERID",
		"ppId":     c.billerID,
		"amount":   formatAmount(amount),
		"ref1":     reference,
		"ref2":     "CIVICPAY",
		"ref3":     "SCB",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal qr request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+qrPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build qr request: %w", err)
	}
	c.setCommonHeaders(req)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var out qrResponse
	if err := c.do(req, &out, &out.Status); err != nil {
		return nil, err
	}

	c.log.Info().Str("reference", reference).Int64("amount", amount).Msg("payment QR created")
	return &ports.QrCodeResponse{
		Reference: reference,
		RawData:   out.Data.QrRawData,
	}, nil
}

func (c *Client) setCommonHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Language", "EN")
	req.Header.Set("resourceOwnerId", c.apiKey)
	// Each call gets a fresh correlation id, required by the gateway.
	req.Header.Set("requestUId", uuid.NewString())
}

// do executes the request and decodes the JSON body into out. Network
// failures, non-2xx responses and non-success status codes in the body
// all surface as gateway errors.
func (c *Client) do(req *http.Request, out any, status *apiStatus) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return apperror.Gateway(fmt.Errorf("bank request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperror.Gateway(fmt.Errorf("read bank response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn().Int("status", resp.StatusCode).Str("path", req.URL.Path).Msg("bank API returned non-2xx")
		return apperror.Gateway(fmt.Errorf("bank API status %d", resp.StatusCode))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return apperror.Gateway(fmt.Errorf("decode bank response: %w", err))
	}
	if status.Code != statusOK {
		return apperror.Gateway(fmt.Errorf("bank API code %d: %s", status.Code, status.Description))
	}
	return nil
}

// formatAmount renders minor units as a decimal string, e.g. 2550 -> "25.50".
func formatAmount(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}
