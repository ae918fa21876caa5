package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"planpay/internal/domain"
)

const (
	maxErrorMessage = 200
	maxResponseBody = 1 << 20
)

// HTTPClient calls the planpay server API.
type HTTPClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewHTTPClient(baseURL string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPClient{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: hc}
}

type CheckoutConfig struct {
	PublicKey string `json:"publicKey"`
	Currency  string `json:"currency"`
}

func (c *HTTPClient) CreateOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderDescriptor, error) {
	var out domain.OrderDescriptor
	if err := c.do(ctx, http.MethodPost, "/api/create-order", req, &out); err != nil {
		return domain.OrderDescriptor{}, err
	}
	if out.OrderID == "" || out.Amount <= 0 {
		return domain.OrderDescriptor{}, errors.New("planpay api: malformed order response")
	}
	return out, nil
}

func (c *HTTPClient) VerifyPayment(ctx context.Context, conf domain.PaymentConfirmation) (domain.PaymentVerification, error) {
	var out domain.PaymentVerification
	if err := c.do(ctx, http.MethodPost, "/api/verify-payment", conf, &out); err != nil {
		return domain.PaymentVerification{}, err
	}
	if !out.Verified {
		return out, errors.New("planpay api: payment not verified")
	}
	return out, nil
}

func (c *HTTPClient) Plans(ctx context.Context) ([]domain.Plan, error) {
	var out struct {
		Plans []domain.Plan `json:"plans"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/plans", nil, &out); err != nil {
		return nil, err
	}
	return out.Plans, nil
}

func (c *HTTPClient) CheckoutConfig(ctx context.Context) (CheckoutConfig, error) {
	var out CheckoutConfig
	err := c.do(ctx, http.MethodGet, "/api/checkout/config", nil, &out)
	return out, err
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		return &APIError{Status: resp.StatusCode, Message: shortMessage(e.Error)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("planpay api: decode %s: %w", path, err)
	}
	return nil
}

func shortMessage(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= maxErrorMessage {
		return s
	}
	return string([]rune(s)[:maxErrorMessage])
}
