package config

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env               string
	Port              int
	LogJSON           bool
	RazorpayKeyID     string
	RazorpayKeySecret string `json:"-"`
	JWTSecret         string `json:"-"`
	EntitlementTTL    time.Duration
	DatabaseURL       string `json:"-"`
	RedisURL          string `json:"-"`
	EnforceCatalog    bool
	OrderTimeout      time.Duration
	CORSOrigins       []string
}

var (
	ErrMissingKeyID     = errors.New("razorpay key id is not configured")
	ErrMissingKeySecret = errors.New("razorpay key secret is not configured")
)

func Default() Config {
	return Config{
		Env:            "dev",
		Port:           5000,
		LogJSON:        true,
		EntitlementTTL: 30 * 24 * time.Hour,
		EnforceCatalog: true,
		OrderTimeout:   15 * time.Second,
		CORSOrigins:    []string{"*"},
	}
}

func EnvDefaults() Config {
	return fromEnv(Default())
}

func fromEnv(c Config) Config {
	v := viper.New()
	v.SetEnvPrefix("PLANPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("env", c.Env)
	v.SetDefault("port", c.Port)
	v.SetDefault("log_json", c.LogJSON)
	v.SetDefault("jwt_secret", c.JWTSecret)
	v.SetDefault("entitlement_ttl", c.EntitlementTTL)
	v.SetDefault("database_url", c.DatabaseURL)
	v.SetDefault("redis_url", c.RedisURL)
	v.SetDefault("enforce_catalog", c.EnforceCatalog)
	v.SetDefault("order_timeout", c.OrderTimeout)
	v.SetDefault("cors_origins", strings.Join(c.CORSOrigins, ","))

	// The Razorpay keys keep their conventional names.
	_ = v.BindEnv("razorpay_key_id", "PLANPAY_RAZORPAY_KEY_ID", "RAZORPAY_KEY_ID", "NEXT_PUBLIC_RAZORPAY_KEY_ID")
	_ = v.BindEnv("razorpay_key_secret", "PLANPAY_RAZORPAY_KEY_SECRET", "RAZORPAY_KEY_SECRET")
	v.SetDefault("razorpay_key_id", c.RazorpayKeyID)
	v.SetDefault("razorpay_key_secret", c.RazorpayKeySecret)

	c.Env = v.GetString("env")
	if p := v.GetInt("port"); p > 0 {
		c.Port = p
	}
	c.LogJSON = v.GetBool("log_json")
	c.RazorpayKeyID = strings.TrimSpace(v.GetString("razorpay_key_id"))
	c.RazorpayKeySecret = strings.TrimSpace(v.GetString("razorpay_key_secret"))
	c.JWTSecret = v.GetString("jwt_secret")
	if d := v.GetDuration("entitlement_ttl"); d > 0 {
		c.EntitlementTTL = d
	}
	c.DatabaseURL = v.GetString("database_url")
	c.RedisURL = v.GetString("redis_url")
	c.EnforceCatalog = v.GetBool("enforce_catalog")
	if d := v.GetDuration("order_timeout"); d >= 0 {
		c.OrderTimeout = d
	}
	c.CORSOrigins = SplitList(v.GetString("cors_origins"))
	return c
}

// Validate reports configuration that makes the server unusable. Both
// Razorpay keys are required at startup.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.RazorpayKeyID) == "" {
		errs = append(errs, ErrMissingKeyID)
	}
	if strings.TrimSpace(c.RazorpayKeySecret) == "" {
		errs = append(errs, ErrMissingKeySecret)
	}
	return errors.Join(errs...)
}

// String renders the config as JSON without any secret material.
func (c Config) String() string {
	b, _ := json.MarshalIndent(c, "", "  ")
	return string(b)
}

func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
