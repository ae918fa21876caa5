package razorpay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	rzp "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"

	"planpay/internal/usecase"
)

// orders is the subset of the SDK order resource the client uses.
type orders interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Fetch(orderID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Client talks to the Razorpay Orders API. The key secret stays inside the
// struct and is never rendered.
type Client struct {
	keyID     string
	keySecret string
	orders    orders
}

func New(keyID, keySecret string) (*Client, error) {
	if keyID == "" || keySecret == "" {
		return nil, errors.New("razorpay: key id and secret are required")
	}
	sdk := rzp.NewClient(keyID, keySecret)
	return &Client{keyID: keyID, keySecret: keySecret, orders: sdk.Order}, nil
}

func (c *Client) KeyID() string { return c.keyID }

func (c *Client) String() string { return "razorpay.Client{keyID: " + c.keyID + ", keySecret: [redacted]}" }

func (c *Client) CreateOrder(ctx context.Context, p usecase.ProviderOrderParams) (usecase.ProviderOrder, error) {
	capture := 0
	if p.AutoCapture {
		capture = 1
	}
	data := map[string]interface{}{
		"amount":          p.Amount,
		"currency":        p.Currency,
		"receipt":         p.Receipt,
		"payment_capture": capture,
	}
	return c.call(ctx, "create order", func() (map[string]interface{}, error) {
		return c.orders.Create(data, nil)
	})
}

func (c *Client) FetchOrder(ctx context.Context, orderID string) (usecase.ProviderOrder, error) {
	return c.call(ctx, "fetch order", func() (map[string]interface{}, error) {
		return c.orders.Fetch(orderID, nil, nil)
	})
}

// VerifyPaymentSignature checks the checkout signature, an HMAC-SHA256 of
// "order_id|payment_id" under the key secret.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	attrs := map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}
	return utils.VerifyPaymentSignature(attrs, signature, c.keySecret)
}

type result struct {
	body map[string]interface{}
	err  error
}

// call runs a blocking SDK request and gives up when ctx ends. The request
// itself keeps running until the SDK's HTTP client returns.
func (c *Client) call(ctx context.Context, op string, fn func() (map[string]interface{}, error)) (usecase.ProviderOrder, error) {
	ch := make(chan result, 1)
	go func() {
		body, err := fn()
		ch <- result{body, err}
	}()
	select {
	case <-ctx.Done():
		return usecase.ProviderOrder{}, fmt.Errorf("razorpay %s: %w", op, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return usecase.ProviderOrder{}, fmt.Errorf("razorpay %s: %w", op, r.err)
		}
		return parseOrder(r.body)
	}
}

func parseOrder(body map[string]interface{}) (usecase.ProviderOrder, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return usecase.ProviderOrder{}, errors.New("razorpay: order response has no id")
	}
	amount, err := toInt64(body["amount"])
	if err != nil {
		return usecase.ProviderOrder{}, fmt.Errorf("razorpay: order amount: %w", err)
	}
	currency, _ := body["currency"].(string)
	return usecase.ProviderOrder{ID: id, Amount: amount, Currency: currency}, nil
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("non-integer %v", n)
		}
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
