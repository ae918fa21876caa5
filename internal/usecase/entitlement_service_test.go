package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntitlement_IssueVerify(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &EntitlementService{Secret: "jwt-secret", TTL: time.Hour, Now: func() time.Time { return now }}

	token, ent, err := s.Issue("plan_pro", "order_1", "pay_1")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), ent.ExpiresAt)

	got, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, ent, got)
}

func TestEntitlement_Rejects(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &EntitlementService{Secret: "jwt-secret", TTL: time.Hour, Now: func() time.Time { return now }}
	token, _, err := s.Issue("plan_pro", "order_1", "pay_1")
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := &EntitlementService{Secret: "jwt-secret", Now: func() time.Time { return now.Add(2 * time.Hour) }}
		_, err := later.Verify(token)
		var ue ErrUnauthorized
		assert.ErrorAs(t, err, &ue)
	})
	t.Run("wrong secret", func(t *testing.T) {
		other := &EntitlementService{Secret: "other", Now: func() time.Time { return now }}
		_, err := other.Verify(token)
		var ue ErrUnauthorized
		assert.ErrorAs(t, err, &ue)
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := s.Verify("not-a-token")
		var ue ErrUnauthorized
		assert.ErrorAs(t, err, &ue)
	})
	t.Run("disabled", func(t *testing.T) {
		_, _, err := (&EntitlementService{}).Issue("plan_pro", "order_1", "pay_1")
		assert.Error(t, err)
	})
}
