package widget

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"planpay/internal/checkout"
	"planpay/internal/logger"
)

// BrowserWidget hosts the provider checkout on a loopback page and relays
// the page's callbacks to the orchestrator. Each Open gets its own server on
// a random port under an unguessable path.
type BrowserWidget struct {
	Script []byte
	// Launch opens url in a browser. A failed launch is not fatal; the URL
	// is printed to Out instead.
	Launch func(url string) error
	Out    io.Writer
	Log    logger.Logger
}

func NewBrowserWidget(script []byte, out io.Writer, log logger.Logger) *BrowserWidget {
	if log == nil {
		log = logger.Nop()
	}
	return &BrowserWidget{Script: script, Launch: OpenBrowser, Out: out, Log: log}
}

func (b *BrowserWidget) Open(ctx context.Context, opts checkout.WidgetOptions) error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	session := uuid.NewString()
	srv := &http.Server{
		Handler:           b.router(session, opts),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.log().Warn("checkout page server stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	url := fmt.Sprintf("http://%s/%s/", ln.Addr().String(), session)
	b.log().Info("checkout page ready", "order_id", opts.OrderID, "url", url)
	if b.Launch == nil || b.Launch(url) != nil {
		if b.Out != nil {
			fmt.Fprintf(b.Out, "Open %s to complete the payment.\n", url)
		}
	}
	return nil
}

func (b *BrowserWidget) router(session string, opts checkout.WidgetOptions) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	var once sync.Once
	fire := func(c *gin.Context, fn func()) {
		fired := false
		once.Do(func() {
			fired = true
			fn()
		})
		if !fired {
			c.JSON(http.StatusConflict, gin.H{"error": "checkout already completed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}

	g := r.Group("/" + session)
	g.GET("/", func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.Status(http.StatusOK)
		err := pageTmpl.Execute(c.Writer, pageData{
			Name:        opts.Name,
			Description: opts.Description,
			Options: map[string]any{
				"key":         opts.Key,
				"amount":      opts.Amount,
				"currency":    opts.Currency,
				"name":        opts.Name,
				"description": opts.Description,
				"order_id":    opts.OrderID,
			},
		})
		if err != nil {
			b.log().Error("render checkout page", "error", err)
		}
	})
	g.GET("/checkout.js", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/javascript", b.Script)
	})
	g.POST("/callback/success", func(c *gin.Context) {
		var p checkout.SuccessPayload
		if err := c.ShouldBindJSON(&p); err != nil || p.PaymentID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		fire(c, func() { opts.OnSuccess(p) })
	})
	g.POST("/callback/failure", func(c *gin.Context) {
		var p checkout.FailurePayload
		if err := c.ShouldBindJSON(&p); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		fire(c, func() { opts.OnFailure(p) })
	})
	g.POST("/callback/dismiss", func(c *gin.Context) {
		fire(c, opts.OnDismiss)
	})
	return r
}

func (b *BrowserWidget) log() logger.Logger {
	if b.Log == nil {
		return logger.Nop()
	}
	return b.Log
}

// OpenBrowser asks the desktop to open url.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
