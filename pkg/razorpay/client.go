// Package razorpay is a thin client for the Razorpay orders API.
package razorpay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/angelmondragon/medorders-backend/pkg/config"
)

// OrderRequest creates a gateway order. Amount is in paise.
type OrderRequest struct {
	AmountPaise int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Receipt     string            `json:"receipt"`
	Notes       map[string]string `json:"notes,omitempty"`
}

// Order is the subset of the gateway order resource the service keeps.
type Order struct {
	ID          string `json:"id"`
	Entity      string `json:"entity"`
	AmountPaise int64  `json:"amount"`
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt"`
	Status      string `json:"status"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// APIError is returned for non-2xx gateway responses.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("razorpay %d %s: %s", e.StatusCode, e.Code, e.Description)
}

// Client calls the Razorpay REST API with basic auth.
type Client struct {
	http     *resty.Client
	currency string
}

// New builds a client from config. Key id and secret are required.
func New(cfg config.RazorpayConfig) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("razorpay key id and key secret are required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, errors.New("razorpay base url is required")
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetBasicAuth(cfg.KeyID, cfg.KeySecret).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		httpClient.SetTimeout(cfg.Timeout)
	}

	currency := cfg.Currency
	if currency == "" {
		currency = "INR"
	}
	return &Client{http: httpClient, currency: currency}, nil
}

// CreateOrder registers an order with the gateway and returns its id.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if req.AmountPaise <= 0 {
		return nil, errors.New("amount must be positive")
	}
	if req.Currency == "" {
		req.Currency = c.currency
	}

	var out Order
	var failure apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&failure).
		Post("/orders")
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{
			StatusCode:  resp.StatusCode(),
			Code:        failure.Error.Code,
			Description: failure.Error.Description,
		}
	}
	if out.ID == "" {
		return nil, errors.New("razorpay create order: empty order id")
	}
	return &out, nil
}
