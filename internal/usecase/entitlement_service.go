package usecase

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"planpay/internal/domain"
)

type entitlementClaims struct {
	PlanID  string `json:"plan_id"`
	OrderID string `json:"order_id"`
	jwt.RegisteredClaims
}

// EntitlementService issues HS256 tokens proving that a verified payment
// unlocked a plan.
type EntitlementService struct {
	Secret string
	TTL    time.Duration
	Now    func() time.Time
}

func (s *EntitlementService) Issue(planID, orderID, paymentID string) (string, domain.Entitlement, error) {
	if s.Secret == "" {
		return "", domain.Entitlement{}, errors.New("entitlement secret is not configured")
	}
	now := s.now()
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	ent := domain.Entitlement{
		PlanID:    planID,
		OrderID:   orderID,
		PaymentID: paymentID,
		ExpiresAt: now.Add(ttl).Truncate(time.Second),
	}
	claims := entitlementClaims{
		PlanID:  planID,
		OrderID: orderID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   paymentID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(ent.ExpiresAt),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(s.Secret))
	if err != nil {
		return "", domain.Entitlement{}, err
	}
	return signed, ent, nil
}

func (s *EntitlementService) Verify(token string) (domain.Entitlement, error) {
	if s.Secret == "" {
		return domain.Entitlement{}, ErrUnauthorized("entitlements are disabled")
	}
	var claims entitlementClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return []byte(s.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return domain.Entitlement{}, ErrUnauthorized("invalid entitlement token")
	}
	ent := domain.Entitlement{
		PlanID:    claims.PlanID,
		OrderID:   claims.OrderID,
		PaymentID: claims.Subject,
	}
	if claims.ExpiresAt != nil {
		ent.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return ent, nil
}

func (s *EntitlementService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
