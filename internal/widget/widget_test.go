package widget

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"planpay/internal/checkout"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

func noKeepAlive() *http.Client {
	return &http.Client{Transport: &http.Transport{DisableKeepAlives: true}, Timeout: 5 * time.Second}
}

type builtWidget struct{ script []byte }

func (builtWidget) Open(context.Context, checkout.WidgetOptions) error { return nil }

func TestScriptLoader_Ready(t *testing.T) {
	var hits int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		_, _ = w.Write([]byte("window.Razorpay = function () {};"))
	}))
	defer srv.Close()

	l := NewScriptLoader(srv.URL, func(s []byte) checkout.Widget { return builtWidget{script: s} }, nil)
	l.HTTP = noKeepAlive()
	assert.Equal(t, ScriptPending, l.State())

	l.Preload()
	l.Preload()
	w, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "window.Razorpay = function () {};", string(w.(builtWidget).script))
	assert.Equal(t, ScriptReady, l.State())

	_, err = l.Load(context.Background())
	require.NoError(t, err)
	mu.Lock()
	assert.Equal(t, 1, hits)
	mu.Unlock()
}

func TestScriptLoader_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	l := NewScriptLoader(srv.URL, func(s []byte) checkout.Widget { return builtWidget{script: s} }, nil)
	l.HTTP = noKeepAlive()
	_, err := l.Load(context.Background())
	assert.ErrorIs(t, err, checkout.ErrWidgetUnavailable)
	assert.Equal(t, ScriptUnavailable, l.State())
}

func TestScriptLoader_LoadHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()
	defer close(release)

	l := NewScriptLoader(srv.URL, func(s []byte) checkout.Widget { return builtWidget{script: s} }, nil)
	l.HTTP = noKeepAlive()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := l.Load(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, ScriptPending, l.State())
}

type callbacks struct {
	mu        sync.Mutex
	success   []checkout.SuccessPayload
	failure   []checkout.FailurePayload
	dismissed int
}

func (c *callbacks) options() checkout.WidgetOptions {
	return checkout.WidgetOptions{
		Key:         "rzp_test_key",
		Amount:      99900,
		Currency:    "INR",
		OrderID:     "order_9A33XWu170gUtm",
		Name:        "My App Inc.",
		Description: "Upgrade to Basic Plan",
		OnSuccess: func(p checkout.SuccessPayload) {
			c.mu.Lock()
			c.success = append(c.success, p)
			c.mu.Unlock()
		},
		OnFailure: func(p checkout.FailurePayload) {
			c.mu.Lock()
			c.failure = append(c.failure, p)
			c.mu.Unlock()
		},
		OnDismiss: func() {
			c.mu.Lock()
			c.dismissed++
			c.mu.Unlock()
		},
	}
}

func openWidget(t *testing.T, cb *callbacks) (string, context.CancelFunc) {
	t.Helper()
	var url string
	var out bytes.Buffer
	w := NewBrowserWidget([]byte("/* checkout */"), &out, nil)
	w.Launch = func(u string) error {
		url = u
		return errors.New("no browser")
	}
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Open(ctx, cb.options()))
	require.NotEmpty(t, url)
	assert.Contains(t, out.String(), url)
	return url, cancel
}

func post(t *testing.T, url, body string) int {
	t.Helper()
	resp, err := noKeepAlive().Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

func TestBrowserWidget_PageAndScript(t *testing.T) {
	cb := &callbacks{}
	url, cancel := openWidget(t, cb)
	defer cancel()

	resp, err := noKeepAlive().Get(url)
	require.NoError(t, err)
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(page), `"order_id":"order_9A33XWu170gUtm"`)
	assert.Contains(t, string(page), `"key":"rzp_test_key"`)
	assert.Contains(t, string(page), `"amount":99900`)
	assert.Contains(t, string(page), "Upgrade to Basic Plan")

	resp, err = noKeepAlive().Get(url + "checkout.js")
	require.NoError(t, err)
	js, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "/* checkout */", string(js))

	resp, err = noKeepAlive().Get(strings.Replace(url, "/"+strings.Split(url, "/")[3]+"/", "/other/", 1))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBrowserWidget_SuccessFiresOnce(t *testing.T) {
	cb := &callbacks{}
	url, cancel := openWidget(t, cb)
	defer cancel()

	body := `{"razorpay_payment_id":"pay_1","razorpay_order_id":"order_9A33XWu170gUtm","razorpay_signature":"sig"}`
	assert.Equal(t, http.StatusOK, post(t, url+"callback/success", body))
	assert.Equal(t, http.StatusConflict, post(t, url+"callback/failure", `{"error":{"description":"late"}}`))
	assert.Equal(t, http.StatusConflict, post(t, url+"callback/dismiss", `{}`))

	cb.mu.Lock()
	defer cb.mu.Unlock()
	require.Len(t, cb.success, 1)
	assert.Equal(t, checkout.SuccessPayload{PaymentID: "pay_1", OrderID: "order_9A33XWu170gUtm", Signature: "sig"}, cb.success[0])
	assert.Empty(t, cb.failure)
	assert.Zero(t, cb.dismissed)
}

func TestBrowserWidget_FailureAndDismiss(t *testing.T) {
	cb := &callbacks{}
	url, cancel := openWidget(t, cb)
	assert.Equal(t, http.StatusBadRequest, post(t, url+"callback/success", `{}`))
	assert.Equal(t, http.StatusOK, post(t, url+"callback/failure", `{"error":{"code":"BAD_REQUEST_ERROR","description":"Card declined"}}`))
	cancel()

	cb2 := &callbacks{}
	url2, cancel2 := openWidget(t, cb2)
	defer cancel2()
	assert.Equal(t, http.StatusOK, post(t, url2+"callback/dismiss", ``))

	cb.mu.Lock()
	require.Len(t, cb.failure, 1)
	assert.Equal(t, "Card declined", cb.failure[0].Error.Description)
	cb.mu.Unlock()
	cb2.mu.Lock()
	assert.Equal(t, 1, cb2.dismissed)
	cb2.mu.Unlock()
}

func TestBrowserWidget_ShutsDownWithContext(t *testing.T) {
	cb := &callbacks{}
	url, cancel := openWidget(t, cb)
	cancel()

	require.Eventually(t, func() bool {
		resp, err := noKeepAlive().Get(url)
		if err != nil {
			return true
		}
		resp.Body.Close()
		return false
	}, 2*time.Second, 10*time.Millisecond)
}
