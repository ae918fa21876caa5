package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planpay/internal/usecase"
)

type fakeOrders struct {
	created map[string]interface{}
	reply   map[string]interface{}
	err     error
	delay   time.Duration
}

func (f *fakeOrders) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.created = data
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.reply, f.err
}

func (f *fakeOrders) Fetch(orderID string, _ map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	return f.reply, f.err
}

func newTestClient(o orders) *Client {
	return &Client{keyID: "rzp_test_key", keySecret: "test_secret", orders: o}
}

func TestCreateOrder_SendsParamsAndParsesReply(t *testing.T) {
	f := &fakeOrders{reply: map[string]interface{}{
		"id":       "order_9A33XWu170gUtm",
		"entity":   "order",
		"amount":   float64(99900),
		"currency": "INR",
		"receipt":  "rcpt_x",
		"status":   "created",
	}}
	c := newTestClient(f)

	got, err := c.CreateOrder(context.Background(), usecase.ProviderOrderParams{
		Amount: 99900, Currency: "INR", Receipt: "rcpt_x", AutoCapture: true,
	})
	require.NoError(t, err)
	assert.Equal(t, usecase.ProviderOrder{ID: "order_9A33XWu170gUtm", Amount: 99900, Currency: "INR"}, got)
	assert.Equal(t, map[string]interface{}{
		"amount":          int64(99900),
		"currency":        "INR",
		"receipt":         "rcpt_x",
		"payment_capture": 1,
	}, f.created)
}

func TestCreateOrder_Errors(t *testing.T) {
	_, err := newTestClient(&fakeOrders{err: errors.New("BAD_REQUEST_ERROR")}).
		CreateOrder(context.Background(), usecase.ProviderOrderParams{Amount: 100})
	assert.ErrorContains(t, err, "BAD_REQUEST_ERROR")

	_, err = newTestClient(&fakeOrders{reply: map[string]interface{}{"amount": float64(100)}}).
		CreateOrder(context.Background(), usecase.ProviderOrderParams{Amount: 100})
	assert.ErrorContains(t, err, "no id")

	_, err = newTestClient(&fakeOrders{reply: map[string]interface{}{"id": "order_1", "amount": "lots"}}).
		CreateOrder(context.Background(), usecase.ProviderOrderParams{Amount: 100})
	assert.Error(t, err)
}

func TestCreateOrder_ContextDeadline(t *testing.T) {
	c := newTestClient(&fakeOrders{delay: 200 * time.Millisecond, reply: map[string]interface{}{"id": "order_1"}})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.CreateOrder(ctx, usecase.ProviderOrderParams{Amount: 100})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestVerifyPaymentSignature(t *testing.T) {
	c := newTestClient(&fakeOrders{})
	mac := hmac.New(sha256.New, []byte("test_secret"))
	fmt.Fprint(mac, "order_1|pay_1")
	sig := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, c.VerifyPaymentSignature("order_1", "pay_1", sig))
	assert.False(t, c.VerifyPaymentSignature("order_1", "pay_2", sig))
	assert.False(t, c.VerifyPaymentSignature("order_1", "pay_1", "deadbeef"))
}

func TestNew_RequiresKeys(t *testing.T) {
	_, err := New("", "secret")
	assert.Error(t, err)
	c, err := New("rzp_test_key", "super-secret")
	require.NoError(t, err)
	assert.Equal(t, "rzp_test_key", c.KeyID())
	assert.NotContains(t, c.String(), "super-secret")
	assert.NotContains(t, fmt.Sprintf("%v", c), "super-secret")
}
