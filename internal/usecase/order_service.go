package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"planpay/internal/domain"
	"planpay/internal/infrastructure/receipt"
	"planpay/internal/logger"
)

type ProviderOrderParams struct {
	Amount      int64
	Currency    string
	Receipt     string
	AutoCapture bool
}

type ProviderOrder struct {
	ID       string
	Amount   int64
	Currency string
}

type Provider interface {
	CreateOrder(ctx context.Context, p ProviderOrderParams) (ProviderOrder, error)
}

type ReceiptSource interface {
	Next(ctx context.Context) (string, error)
}

type PlanCatalog interface {
	Contains(price int64) bool
	PriceOf(id string) (int64, bool)
}

// OrderService creates provider orders on behalf of untrusted clients. It is
// not idempotent: every successful call creates a new provider order.
type OrderService struct {
	Provider Provider
	Receipts ReceiptSource
	// Catalog, when set, restricts amounts to known plan prices.
	Catalog PlanCatalog
	Timeout time.Duration
	Log     logger.Logger
}

func (s *OrderService) CreateOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderDescriptor, error) {
	minor, err := ToMinorUnits(req.Amount)
	if err != nil {
		return domain.OrderDescriptor{}, err
	}
	if err := s.checkCatalog(req); err != nil {
		return domain.OrderDescriptor{}, err
	}
	rc, err := s.receipts().Next(ctx)
	if err != nil {
		s.log().Error("receipt allocation failed", "error", err)
		return domain.OrderDescriptor{}, &ErrUpstream{Op: "allocate receipt", Err: err}
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	order, err := s.Provider.CreateOrder(ctx, ProviderOrderParams{
		Amount:      minor,
		Currency:    domain.CurrencyINR,
		Receipt:     rc,
		AutoCapture: true,
	})
	if err != nil {
		s.log().Error("provider order creation failed",
			"receipt", rc,
			"plan_id", req.PlanID,
			"amount_minor", minor,
			"currency", domain.CurrencyINR,
			"error", err,
		)
		return domain.OrderDescriptor{}, &ErrUpstream{Op: "create order", Err: err}
	}
	if order.ID == "" {
		s.log().Error("provider returned order without id", "receipt", rc)
		return domain.OrderDescriptor{}, &ErrUpstream{Op: "create order", Err: errors.New("empty order id")}
	}
	if order.Amount != minor || order.Currency != domain.CurrencyINR {
		s.log().Warn("provider order differs from request",
			"order_id", order.ID,
			"requested_minor", minor,
			"provider_amount", order.Amount,
			"provider_currency", order.Currency,
		)
	}
	s.log().Info("order created", "order_id", order.ID, "receipt", rc, "plan_id", req.PlanID, "amount_minor", order.Amount)
	return domain.OrderDescriptor{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
	}, nil
}

func (s *OrderService) checkCatalog(req domain.OrderRequest) error {
	if s.Catalog == nil {
		return nil
	}
	if req.PlanID != "" {
		price, ok := s.Catalog.PriceOf(req.PlanID)
		if !ok {
			return ErrValidation("unknown plan " + req.PlanID)
		}
		if price != req.Amount {
			return ErrValidation("amount does not match plan price")
		}
		return nil
	}
	if !s.Catalog.Contains(req.Amount) {
		return ErrValidation("amount does not match any plan")
	}
	return nil
}

func (s *OrderService) receipts() ReceiptSource {
	if s.Receipts == nil {
		return receipt.Random{}
	}
	return s.Receipts
}

func (s *OrderService) log() logger.Logger {
	if s.Log == nil {
		return logger.Nop()
	}
	return s.Log
}

// ToMinorUnits converts a positive major-unit amount to minor units.
func ToMinorUnits(amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrValidation("amount must be positive")
	}
	if amount > math.MaxInt64/domain.MinorUnitsPerMajor {
		return 0, ErrValidation("amount too large")
	}
	return amount * domain.MinorUnitsPerMajor, nil
}

// ParseAmount decodes a raw JSON amount. Only JSON numbers with a whole,
// positive value are accepted; strings, booleans and null are rejected.
func ParseAmount(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, ErrValidation("amount is required")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, ErrValidation("amount is not a number")
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, ErrValidation("amount is not a number")
	}
	if i, err := n.Int64(); err == nil {
		if i <= 0 {
			return 0, ErrValidation("amount must be positive")
		}
		return i, nil
	}
	f, err := n.Float64()
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, ErrValidation("amount is not a number")
	}
	if f <= 0 {
		return 0, ErrValidation("amount must be positive")
	}
	if f != math.Trunc(f) || f >= math.MaxInt64 {
		return 0, ErrValidation("amount must be a whole number")
	}
	return int64(f), nil
}
