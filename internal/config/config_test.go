package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvDefaults_ReadsEnvironment(t *testing.T) {
	t.Setenv("PLANPAY_PORT", "7070")
	t.Setenv("PLANPAY_LOG_JSON", "false")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_key")
	t.Setenv("RAZORPAY_KEY_SECRET", "shh")
	t.Setenv("PLANPAY_ORDER_TIMEOUT", "3s")
	t.Setenv("PLANPAY_ENFORCE_CATALOG", "0")
	t.Setenv("PLANPAY_CORS_ORIGINS", "http://localhost:3000, https://example.com")

	c := EnvDefaults()

	assert.Equal(t, 7070, c.Port)
	assert.False(t, c.LogJSON)
	assert.Equal(t, "rzp_test_key", c.RazorpayKeyID)
	assert.Equal(t, "shh", c.RazorpayKeySecret)
	assert.Equal(t, 3*time.Second, c.OrderTimeout)
	assert.False(t, c.EnforceCatalog)
	assert.Equal(t, []string{"http://localhost:3000", "https://example.com"}, c.CORSOrigins)
}

func TestEnvDefaults_PrefixedKeyWins(t *testing.T) {
	t.Setenv("PLANPAY_RAZORPAY_KEY_ID", "prefixed")
	t.Setenv("RAZORPAY_KEY_ID", "bare")

	assert.Equal(t, "prefixed", EnvDefaults().RazorpayKeyID)
}

func TestValidate_MissingKeys(t *testing.T) {
	c := Default()
	err := c.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingKeyID))
	assert.True(t, errors.Is(err, ErrMissingKeySecret))

	c.RazorpayKeyID = "rzp_test_key"
	err = c.Validate()
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMissingKeyID))
	assert.True(t, errors.Is(err, ErrMissingKeySecret))

	c.RazorpayKeySecret = "secret"
	assert.NoError(t, c.Validate())
}

func TestString_RedactsSecrets(t *testing.T) {
	c := Default()
	c.RazorpayKeyID = "rzp_test_key"
	c.RazorpayKeySecret = "super-secret-value"
	c.JWTSecret = "jwt-secret-value"
	c.DatabaseURL = "postgres://user:pw@db/planpay"

	s := c.String()
	assert.Contains(t, s, "rzp_test_key")
	for _, secret := range []string{"super-secret-value", "jwt-secret-value", "pw@db"} {
		assert.False(t, strings.Contains(s, secret), "config output leaked %q", secret)
	}
}
