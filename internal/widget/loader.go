package widget

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"planpay/internal/checkout"
	"planpay/internal/logger"
)

const (
	DefaultScriptURL = "https://checkout.razorpay.com/v1/checkout.js"
	maxScriptSize    = 2 << 20
)

type ScriptState int

const (
	ScriptPending ScriptState = iota
	ScriptReady
	ScriptUnavailable
)

func (s ScriptState) String() string {
	switch s {
	case ScriptReady:
		return "ready"
	case ScriptUnavailable:
		return "unavailable"
	default:
		return "pending"
	}
}

// ScriptLoader fetches the provider checkout script at most once. The fetch
// starts on Preload or on the first Load, whichever comes first.
type ScriptLoader struct {
	URL     string
	HTTP    *http.Client
	Timeout time.Duration
	// Build turns the fetched script into a widget.
	Build func(script []byte) checkout.Widget
	Log   logger.Logger

	once   sync.Once
	done   chan struct{}
	mu     sync.Mutex
	state  ScriptState
	script []byte
	err    error
}

func NewScriptLoader(url string, build func(script []byte) checkout.Widget, log logger.Logger) *ScriptLoader {
	if url == "" {
		url = DefaultScriptURL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ScriptLoader{
		URL:     url,
		HTTP:    &http.Client{},
		Timeout: 20 * time.Second,
		Build:   build,
		Log:     log,
		done:    make(chan struct{}),
	}
}

// Preload starts the fetch in the background and returns immediately.
func (l *ScriptLoader) Preload() {
	l.once.Do(func() {
		go l.fetch()
	})
}

func (l *ScriptLoader) State() ScriptState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Load waits for the script and returns a widget built from it.
func (l *ScriptLoader) Load(ctx context.Context) (checkout.Widget, error) {
	l.Preload()
	select {
	case <-l.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	l.mu.Lock()
	script, err := l.script, l.err
	l.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", checkout.ErrWidgetUnavailable, err)
	}
	return l.Build(script), nil
}

func (l *ScriptLoader) fetch() {
	defer close(l.done)
	ctx := context.Background()
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}
	script, err := l.get(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.state, l.err = ScriptUnavailable, err
		l.Log.Warn("checkout script unavailable", "url", l.URL, "error", err)
		return
	}
	l.state, l.script = ScriptReady, script
	l.Log.Debug("checkout script loaded", "url", l.URL, "bytes", len(script))
}

func (l *ScriptLoader) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxScriptSize+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxScriptSize {
		return nil, errors.New("script too large")
	}
	if len(b) == 0 {
		return nil, errors.New("empty script")
	}
	return b, nil
}
