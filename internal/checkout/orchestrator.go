package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"planpay/internal/domain"
	"planpay/internal/logger"
)

const (
	ReasonInvalidPlan        = "Invalid plan selected"
	ReasonOrderFailed        = "Failed to create order"
	ReasonTimeout            = "timeout"
	ReasonUnavailable        = "checkout unavailable"
	ReasonVerificationFailed = "payment verification failed"
	ReasonPaymentFailed      = "Payment failed"
)

type Options struct {
	// PublicKey is the provider key id handed to the widget.
	PublicKey    string
	MerchantName string
	// Zero means unbounded.
	OrderTimeout  time.Duration
	WidgetTimeout time.Duration
	// Verifier, when set, must accept a success before it is reported.
	Verifier PaymentVerifier
	Log      logger.Logger
}

// Orchestrator drives one checkout attempt at a time from plan confirmation
// to a settled result.
type Orchestrator struct {
	plans   PlanLookup
	orders  OrderClient
	widgets WidgetLoader
	opts    Options

	mu   sync.Mutex
	snap Snapshot
	seq  uint64
	subs map[uint64]func(Snapshot)
	next uint64

	notifyMu  sync.Mutex
	published uint64
}

func New(plans PlanLookup, orders OrderClient, widgets WidgetLoader, opts Options) *Orchestrator {
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	if opts.MerchantName == "" {
		opts.MerchantName = "planpay"
	}
	return &Orchestrator{
		plans:   plans,
		orders:  orders,
		widgets: widgets,
		opts:    opts,
		subs:    map[uint64]func(Snapshot){},
	}
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snap
}

// Subscribe registers fn to receive every state change in order. The returned
// func removes it.
func (o *Orchestrator) Subscribe(fn func(Snapshot)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.next
	o.next++
	o.subs[id] = fn
	return func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
}

// Dismiss returns a settled orchestrator to idle.
func (o *Orchestrator) Dismiss() error {
	o.mu.Lock()
	if o.snap.Busy() {
		o.mu.Unlock()
		return ErrAttemptInFlight
	}
	if o.snap.State == StateIdle {
		o.mu.Unlock()
		return nil
	}
	o.snap = Snapshot{State: StateIdle}
	snap, seq, subs := o.commitLocked()
	o.mu.Unlock()
	o.publish(snap, seq, subs)
	return nil
}

// Confirm runs a full attempt for planID and blocks until it settles. The
// only errors are the guard errors; every outcome, including failure, is
// reported through the returned snapshot.
func (o *Orchestrator) Confirm(ctx context.Context, planID string) (Snapshot, error) {
	o.mu.Lock()
	switch {
	case o.snap.Busy():
		snap := o.snap
		o.mu.Unlock()
		return snap, ErrAttemptInFlight
	case o.snap.State == StateSettled && o.snap.Result.Kind == ResultSuccess:
		snap := o.snap
		o.mu.Unlock()
		return snap, ErrNotIdle
	}
	plan, ok := o.plans.Lookup(planID)
	if !ok {
		o.snap = Snapshot{State: StateSettled, Result: Failure(ReasonInvalidPlan)}
		snap, seq, subs := o.commitLocked()
		o.mu.Unlock()
		o.publish(snap, seq, subs)
		o.opts.Log.Warn("checkout rejected unknown plan", "plan_id", planID)
		return snap, nil
	}
	o.snap = Snapshot{State: StateRequesting, Plan: &plan}
	snap, seq, subs := o.commitLocked()
	o.mu.Unlock()
	o.publish(snap, seq, subs)

	result, order := o.attempt(ctx, plan)
	return o.settle(plan, order, result), nil
}

func (o *Orchestrator) attempt(ctx context.Context, plan domain.Plan) (Result, *domain.OrderDescriptor) {
	order, err := o.requestOrder(ctx, plan)
	if err != nil {
		o.opts.Log.Warn("order request failed", "plan_id", plan.ID, "error", err)
		return o.orderFailure(ctx, err), nil
	}
	o.transition(func(s *Snapshot) {
		s.State = StateWidgetOpen
		s.Order = &order
	})

	widget, err := o.widgets.Load(ctx)
	if err != nil {
		o.opts.Log.Warn("checkout widget unavailable", "error", err)
		if r, ok := ctxResult(ctx); ok {
			return r, &order
		}
		return Failure(ReasonUnavailable), &order
	}
	return o.runWidget(ctx, widget, plan, order), &order
}

func (o *Orchestrator) requestOrder(ctx context.Context, plan domain.Plan) (domain.OrderDescriptor, error) {
	if o.opts.OrderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.OrderTimeout)
		defer cancel()
	}
	return o.orders.CreateOrder(ctx, domain.OrderRequest{Amount: plan.Price, PlanID: plan.ID})
}

func (o *Orchestrator) orderFailure(ctx context.Context, err error) Result {
	if r, ok := ctxResult(ctx); ok {
		return r
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Failure(ReasonTimeout)
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return Failure(apiErr.Message)
	}
	return Failure(ReasonOrderFailed)
}

type widgetEvent struct {
	kind    ResultKind
	success SuccessPayload
	failure FailurePayload
}

func (o *Orchestrator) runWidget(ctx context.Context, w Widget, plan domain.Plan, order domain.OrderDescriptor) Result {
	// Cancelling wctx tears the widget down once the attempt is decided.
	var (
		wctx   context.Context
		cancel context.CancelFunc
	)
	if o.opts.WidgetTimeout > 0 {
		wctx, cancel = context.WithTimeout(ctx, o.opts.WidgetTimeout)
	} else {
		wctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	events := make(chan widgetEvent, 1)
	var once sync.Once
	emit := func(e widgetEvent) {
		once.Do(func() { events <- e })
	}
	opts := WidgetOptions{
		Key:         o.opts.PublicKey,
		Amount:      order.Amount,
		Currency:    order.Currency,
		OrderID:     order.OrderID,
		Name:        o.opts.MerchantName,
		Description: "Upgrade to " + plan.Name + " Plan",
		OnSuccess:   func(p SuccessPayload) { emit(widgetEvent{kind: ResultSuccess, success: p}) },
		OnFailure:   func(p FailurePayload) { emit(widgetEvent{kind: ResultFailure, failure: p}) },
		OnDismiss:   func() { emit(widgetEvent{kind: ResultCancelled}) },
	}
	if err := w.Open(wctx, opts); err != nil {
		o.opts.Log.Warn("checkout widget failed to open", "order_id", order.OrderID, "error", err)
		if r, ok := ctxResult(wctx); ok {
			return r
		}
		return Failure(ReasonUnavailable)
	}

	var ev widgetEvent
	select {
	case ev = <-events:
	case <-wctx.Done():
		r, _ := ctxResult(wctx)
		return r
	}

	switch ev.kind {
	case ResultCancelled:
		return Cancelled()
	case ResultFailure:
		if d := ev.failure.Error.Description; d != "" {
			return Failure(d)
		}
		return Failure(ReasonPaymentFailed)
	}
	return o.verify(ctx, plan, order, ev.success)
}

func (o *Orchestrator) verify(ctx context.Context, plan domain.Plan, order domain.OrderDescriptor, p SuccessPayload) Result {
	if p.PaymentID == "" || (p.OrderID != "" && p.OrderID != order.OrderID) {
		o.opts.Log.Warn("checkout reported inconsistent success", "order_id", order.OrderID, "reported_order_id", p.OrderID)
		return Failure(ReasonVerificationFailed)
	}
	if o.opts.Verifier == nil {
		return Success(p.PaymentID)
	}
	if o.opts.OrderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.OrderTimeout)
		defer cancel()
	}
	_, err := o.opts.Verifier.VerifyPayment(ctx, domain.PaymentConfirmation{
		OrderID:   order.OrderID,
		PaymentID: p.PaymentID,
		Signature: p.Signature,
		PlanID:    plan.ID,
	})
	if err != nil {
		o.opts.Log.Warn("payment verification failed", "order_id", order.OrderID, "payment_id", p.PaymentID, "error", err)
		return Failure(ReasonVerificationFailed)
	}
	return Success(p.PaymentID)
}

// settle records the result. A cancelled attempt passes through Settled and
// lands straight back in Idle with the result kept for display.
func (o *Orchestrator) settle(plan domain.Plan, order *domain.OrderDescriptor, r Result) Snapshot {
	settled := o.transition(func(s *Snapshot) {
		*s = Snapshot{State: StateSettled, Plan: &plan, Order: order, Result: r}
	})
	o.opts.Log.Info("checkout settled", "plan_id", plan.ID, "result", r.Kind.String(), "payment_id", r.PaymentID, "reason", r.Reason)
	if r.Kind != ResultCancelled {
		return settled
	}
	return o.transition(func(s *Snapshot) {
		*s = Snapshot{State: StateIdle, Plan: &plan, Result: r}
	})
}

func (o *Orchestrator) transition(fn func(*Snapshot)) Snapshot {
	o.mu.Lock()
	fn(&o.snap)
	snap, seq, subs := o.commitLocked()
	o.mu.Unlock()
	o.publish(snap, seq, subs)
	return snap
}

func (o *Orchestrator) commitLocked() (Snapshot, uint64, []func(Snapshot)) {
	o.seq++
	subs := make([]func(Snapshot), 0, len(o.subs))
	for i := uint64(0); i < o.next; i++ {
		if fn, ok := o.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	return o.snap, o.seq, subs
}

// publish delivers snap unless a newer snapshot was already delivered.
func (o *Orchestrator) publish(snap Snapshot, seq uint64, subs []func(Snapshot)) {
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()
	if seq <= o.published {
		return
	}
	o.published = seq
	for _, fn := range subs {
		fn(snap)
	}
}

// ctxResult maps a finished context to an attempt result.
func ctxResult(ctx context.Context) (Result, bool) {
	switch err := ctx.Err(); {
	case err == nil:
		return Result{}, false
	case errors.Is(err, context.DeadlineExceeded):
		return Failure(ReasonTimeout), true
	default:
		return Cancelled(), true
	}
}
