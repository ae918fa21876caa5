package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"planpay/internal/checkout"
	"planpay/internal/selector"
)

const help = "Commands: <number> select plan, c confirm, d dismiss, q quit"

// session is the interactive plan selector bound to one orchestrator.
type session struct {
	sel  *selector.Selector
	orch *checkout.Orchestrator
	out  io.Writer
	// started runs once after the first render.
	started func()

	mu sync.Mutex
	wg sync.WaitGroup
}

func newSession(sel *selector.Selector, orch *checkout.Orchestrator, out io.Writer) *session {
	s := &session{sel: sel, orch: orch, out: out}
	orch.Subscribe(s.render)
	return s
}

func (s *session) render(snap checkout.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out)
	_ = s.sel.Render(s.out, snap)
	fmt.Fprint(s.out, "> ")
}

func (s *session) say(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format+"\n> ", args...)
}

// handle runs one input line and reports whether the user asked to quit.
func (s *session) handle(ctx context.Context, line string) bool {
	cmd := strings.ToLower(strings.TrimSpace(line))
	switch cmd {
	case "q", "quit", "exit":
		return true
	case "":
		s.render(s.orch.Snapshot())
	case "c", "confirm":
		s.confirm(ctx)
	case "d", "dismiss":
		if err := s.orch.Dismiss(); err != nil {
			s.say("Please wait, a payment is in progress.")
		}
	case "h", "help", "?":
		s.say(help)
	default:
		n, err := strconv.Atoi(cmd)
		if err != nil {
			s.say("Unknown command %q. %s", cmd, help)
			return false
		}
		snap := s.orch.Snapshot()
		if snap.Busy() {
			s.say("Please wait, a payment is in progress.")
			return false
		}
		s.mu.Lock()
		err = s.sel.SelectIndex(n - 1)
		s.mu.Unlock()
		if err != nil {
			s.say("No plan #%d.", n)
			return false
		}
		s.render(snap)
	}
	return false
}

func (s *session) confirm(ctx context.Context) {
	snap := s.orch.Snapshot()
	if !snap.ConfirmEnabled() {
		if snap.Busy() {
			s.say("Please wait, a payment is in progress.")
		} else {
			s.say("Press d to return to the plans first.")
		}
		return
	}
	s.mu.Lock()
	plan := s.sel.Selected()
	s.mu.Unlock()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, err := s.orch.Confirm(ctx, plan.ID)
		switch {
		case errors.Is(err, checkout.ErrAttemptInFlight):
			s.say("Please wait, a payment is in progress.")
		case errors.Is(err, checkout.ErrNotIdle):
			s.say("Press d to return to the plans first.")
		}
	}()
}

// wait blocks until every attempt started by this session has settled.
func (s *session) wait() {
	s.wg.Wait()
}

// run reads commands from lines until quit, EOF or ctx ends. Leaving the
// loop cancels any attempt still in flight.
func (s *session) run(ctx context.Context, lines <-chan string) {
	ctx, cancel := context.WithCancel(ctx)
	defer s.wait()
	defer cancel()

	s.render(s.orch.Snapshot())
	if s.started != nil {
		s.started()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok || s.handle(ctx, line) {
				return
			}
		}
	}
}
