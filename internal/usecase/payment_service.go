package usecase

import (
	"context"
	"strings"
	"time"

	"planpay/internal/domain"
	"planpay/internal/logger"
)

type SignatureVerifier interface {
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
}

// OrderFetcher reads an existing provider order back.
type OrderFetcher interface {
	FetchOrder(ctx context.Context, orderID string) (ProviderOrder, error)
}

// PaymentService confirms checkout results reported by clients. A payment is
// only trusted once its signature matches the key secret.
type PaymentService struct {
	Verifier     SignatureVerifier
	Orders       OrderFetcher
	Catalog      PlanCatalog
	Entitlements *EntitlementService
	Timeout      time.Duration
	Log          logger.Logger
}

func (s *PaymentService) Verify(ctx context.Context, c domain.PaymentConfirmation) (domain.PaymentVerification, error) {
	c.OrderID = strings.TrimSpace(c.OrderID)
	c.PaymentID = strings.TrimSpace(c.PaymentID)
	c.Signature = strings.TrimSpace(c.Signature)
	if c.OrderID == "" || c.PaymentID == "" || c.Signature == "" {
		return domain.PaymentVerification{}, ErrValidation("orderId, paymentId and signature are required")
	}
	var price int64
	if c.PlanID != "" && s.Catalog != nil {
		p, ok := s.Catalog.PriceOf(c.PlanID)
		if !ok {
			return domain.PaymentVerification{}, ErrValidation("unknown plan " + c.PlanID)
		}
		price = p
	}
	if !s.Verifier.VerifyPaymentSignature(c.OrderID, c.PaymentID, c.Signature) {
		s.log().Warn("payment signature mismatch", "order_id", c.OrderID, "payment_id", c.PaymentID)
		return domain.PaymentVerification{}, ErrSignature("payment signature mismatch")
	}
	out := domain.PaymentVerification{Verified: true, OrderID: c.OrderID, PaymentID: c.PaymentID}
	if c.PlanID == "" || s.Entitlements == nil {
		s.log().Info("payment verified", "order_id", c.OrderID, "payment_id", c.PaymentID)
		return out, nil
	}
	if price > 0 && s.Orders != nil {
		if err := s.checkOrderAmount(ctx, c.OrderID, price); err != nil {
			return domain.PaymentVerification{}, err
		}
	}
	token, _, err := s.Entitlements.Issue(c.PlanID, c.OrderID, c.PaymentID)
	if err != nil {
		s.log().Error("entitlement issue failed", "order_id", c.OrderID, "error", err)
		return domain.PaymentVerification{}, err
	}
	out.Entitlement = token
	s.log().Info("payment verified", "order_id", c.OrderID, "payment_id", c.PaymentID, "plan_id", c.PlanID)
	return out, nil
}

// checkOrderAmount ties a plan to the order that was actually paid.
func (s *PaymentService) checkOrderAmount(ctx context.Context, orderID string, price int64) error {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	order, err := s.Orders.FetchOrder(ctx, orderID)
	if err != nil {
		s.log().Error("provider order fetch failed", "order_id", orderID, "error", err)
		return &ErrUpstream{Op: "fetch order", Err: err}
	}
	if order.Amount != price*domain.MinorUnitsPerMajor || order.Currency != domain.CurrencyINR {
		s.log().Warn("paid order does not match plan", "order_id", orderID, "order_amount", order.Amount, "plan_price", price)
		return ErrValidation("order amount does not match plan")
	}
	return nil
}

func (s *PaymentService) log() logger.Logger {
	if s.Log == nil {
		return logger.Nop()
	}
	return s.Log
}
