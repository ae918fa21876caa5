package checkout

import (
	"context"

	"planpay/internal/domain"
)

type State int

const (
	StateIdle State = iota
	StateRequesting
	StateWidgetOpen
	StateSettled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateWidgetOpen:
		return "widget_open"
	case StateSettled:
		return "settled"
	default:
		return "unknown"
	}
}

type ResultKind int

const (
	ResultNone ResultKind = iota
	ResultSuccess
	ResultFailure
	ResultCancelled
)

func (k ResultKind) String() string {
	switch k {
	case ResultSuccess:
		return "success"
	case ResultFailure:
		return "failure"
	case ResultCancelled:
		return "cancelled"
	default:
		return "none"
	}
}

// Result is the outcome of one checkout attempt. PaymentID is set only for
// success and Reason only for failure.
type Result struct {
	Kind      ResultKind
	PaymentID string
	Reason    string
}

func Success(paymentID string) Result { return Result{Kind: ResultSuccess, PaymentID: paymentID} }
func Failure(reason string) Result    { return Result{Kind: ResultFailure, Reason: reason} }
func Cancelled() Result               { return Result{Kind: ResultCancelled} }

// Snapshot is a copy of the orchestrator state. Plan and Order describe the
// current or most recent attempt.
type Snapshot struct {
	State  State
	Plan   *domain.Plan
	Order  *domain.OrderDescriptor
	Result Result
}

func (s Snapshot) Busy() bool {
	return s.State == StateRequesting || s.State == StateWidgetOpen
}

// ConfirmEnabled reports whether a new attempt may start. A settled failure
// is retryable; a settled success must be dismissed first.
func (s Snapshot) ConfirmEnabled() bool {
	switch s.State {
	case StateIdle:
		return true
	case StateSettled:
		return s.Result.Kind == ResultFailure
	default:
		return false
	}
}

type PlanLookup interface {
	Lookup(id string) (domain.Plan, bool)
}

type OrderClient interface {
	CreateOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderDescriptor, error)
}

type PaymentVerifier interface {
	VerifyPayment(ctx context.Context, c domain.PaymentConfirmation) (domain.PaymentVerification, error)
}

// SuccessPayload is what the checkout widget hands to its success handler.
type SuccessPayload struct {
	PaymentID string `json:"razorpay_payment_id"`
	OrderID   string `json:"razorpay_order_id"`
	Signature string `json:"razorpay_signature"`
}

type FailurePayload struct {
	Error PaymentError `json:"error"`
}

type PaymentError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Source      string `json:"source"`
	Step        string `json:"step"`
	Reason      string `json:"reason"`
}

// WidgetOptions configures one widget session. Exactly one of the callbacks
// is honoured per attempt; the widget may call them from any goroutine.
type WidgetOptions struct {
	Key         string
	Amount      int64
	Currency    string
	OrderID     string
	Name        string
	Description string

	OnSuccess func(SuccessPayload)
	OnFailure func(FailurePayload)
	OnDismiss func()
}

// Widget presents the provider checkout. Open must return once the widget is
// shown and tear it down when ctx ends.
type Widget interface {
	Open(ctx context.Context, opts WidgetOptions) error
}

type WidgetLoader interface {
	Load(ctx context.Context) (Widget, error)
}
