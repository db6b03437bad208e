package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prasastio/kreasi/internal/pkg/env"
)

// ErrTokenRequestFailed wraps any failure to obtain a payment token. Callers
// treat it as "gateway unavailable" and compensate local state.
var ErrTokenRequestFailed = errors.New("failed to create payment transaction")

// Transaction is the gateway's answer to a token request: an opaque token
// plus the hosted payment page the client is redirected to.
type Transaction struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// Client issues payment tokens for checkout intents. The webhook signature
// check lives in the billing package; this client only covers the outbound
// call.
type Client interface {
	CreateTransaction(ctx context.Context, orderID string, grossAmount int64) (*Transaction, error)
}

type snapClient struct {
	baseURL   string
	serverKey string
	http      *http.Client
}

// Config carries the gateway credentials and endpoint.
type Config struct {
	BaseURL   string
	ServerKey string
}

// NewClient creates a Snap-style gateway client.
func NewClient(cfg Config) Client {
	return &snapClient{
		baseURL:   cfg.BaseURL,
		serverKey: cfg.ServerKey,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

// NewClientFromEnv creates a gateway client from GATEWAY_* env values.
func NewClientFromEnv() Client {
	return NewClient(Config{
		BaseURL:   env.GetEnv("GATEWAY_BASE_URL", "https://app.sandbox.gateway.test"),
		ServerKey: env.GetEnv("GATEWAY_SERVER_KEY", ""),
	})
}

type transactionRequest struct {
	TransactionDetails struct {
		OrderID     string `json:"order_id"`
		GrossAmount int64  `json:"gross_amount"`
	} `json:"transaction_details"`
}

func (c *snapClient) CreateTransaction(ctx context.Context, orderID string, grossAmount int64) (*Transaction, error) {
	var payload transactionRequest
	payload.TransactionDetails.OrderID = orderID
	payload.TransactionDetails.GrossAmount = grossAmount

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/snap/v1/transactions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	// Server key as basic auth username with empty password, per gateway docs.
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.serverKey+":")))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: gateway returned %d: %s", ErrTokenRequestFailed, resp.StatusCode, string(msg))
	}

	var tx Transaction
	if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenRequestFailed, err)
	}
	if tx.Token == "" {
		return nil, fmt.Errorf("%w: gateway response missing token", ErrTokenRequestFailed)
	}
	return &tx, nil
}
