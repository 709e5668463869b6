// Package coinledger habla con el servicio de monedas que gatea las
// acciones pagas (registrar un animal descuenta monedas del dueño).
package coinledger

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cattle-breeding-timeline/internal/platform/httpclient"
	"cattle-breeding-timeline/internal/ports/wallet"
)

var (
	ErrNotConfigured = errors.New("coinledger client not configured")
	ErrUpstream      = errors.New("coinledger upstream error")
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	http *httpclient.Client
}

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, ErrNotConfigured
	}
	hc, err := httpclient.NewWithBaseURL(base, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("coinledger: %w", err)
	}
	return &Client{http: hc}, nil
}

type debitRequest struct {
	UserID string `json:"user_id"`
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

// Debit descuenta monedas. 402 del upstream se traduce al sentinel del
// port para que los handlers no conozcan este adapter.
func (c *Client) Debit(ctx context.Context, userID string, amount int, reason string) error {
	if c == nil || c.http == nil {
		return ErrNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" || amount <= 0 {
		return fmt.Errorf("%w: invalid debit", ErrUpstream)
	}

	err := c.http.DoJSON(ctx, http.MethodPost, "/v1/wallet/debit", nil, debitRequest{
		UserID: userID,
		Amount: amount,
		Reason: reason,
	}, nil)
	if err == nil {
		return nil
	}

	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusPaymentRequired {
		return wallet.ErrInsufficientBalance
	}
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}

var _ wallet.Wallet = (*Client)(nil)
