package selector

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"planpay/internal/checkout"
	"planpay/internal/domain"
)

var ErrUnknownPlan = errors.New("selector: unknown plan")

// Selector holds exactly one selected plan out of a fixed list.
type Selector struct {
	plans    []domain.Plan
	selected int
}

func New(plans []domain.Plan) (*Selector, error) {
	if len(plans) == 0 {
		return nil, errors.New("selector: no plans")
	}
	cp := make([]domain.Plan, len(plans))
	for i, p := range plans {
		cp[i] = p.Clone()
	}
	return &Selector{plans: cp}, nil
}

func (s *Selector) Plans() []domain.Plan {
	out := make([]domain.Plan, len(s.plans))
	for i, p := range s.plans {
		out[i] = p.Clone()
	}
	return out
}

func (s *Selector) Selected() domain.Plan {
	return s.plans[s.selected].Clone()
}

func (s *Selector) Select(id string) error {
	for i, p := range s.plans {
		if p.ID == id {
			s.selected = i
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownPlan, id)
}

// SelectIndex selects by zero-based position.
func (s *Selector) SelectIndex(i int) error {
	if i < 0 || i >= len(s.plans) {
		return fmt.Errorf("%w: #%d", ErrUnknownPlan, i+1)
	}
	s.selected = i
	return nil
}

// Render draws the plan list and the confirm control for snap.
func (s *Selector) Render(w io.Writer, snap checkout.Snapshot) error {
	var b strings.Builder
	if snap.State == checkout.StateSettled && snap.Result.Kind == checkout.ResultSuccess {
		renderSuccess(&b, snap)
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString("Choose a plan\n\n")
	for i, p := range s.plans {
		mark := "( )"
		if i == s.selected {
			mark = "(*)"
		}
		fmt.Fprintf(&b, "%s %d. %s  %s\n", mark, i+1, p.Name, FormatRupees(p.Price))
		for _, f := range p.Features {
			fmt.Fprintf(&b, "       - %s\n", f)
		}
	}
	b.WriteString("\n")

	switch {
	case snap.Busy():
		b.WriteString("[ Processing... ]\n")
	case snap.ConfirmEnabled():
		fmt.Fprintf(&b, "[ Upgrade to %s ]  (c) confirm\n", s.plans[s.selected].Name)
	default:
		fmt.Fprintf(&b, "[ Upgrade to %s ]  (disabled)\n", s.plans[s.selected].Name)
	}
	if snap.State == checkout.StateSettled && snap.Result.Kind == checkout.ResultFailure {
		fmt.Fprintf(&b, "\nPayment failed: %s\n", snap.Result.Reason)
	}
	if snap.State == checkout.StateIdle && snap.Result.Kind == checkout.ResultCancelled {
		b.WriteString("\nCheckout closed.\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func renderSuccess(b *strings.Builder, snap checkout.Snapshot) {
	b.WriteString("Payment Verified\n\n")
	if snap.Plan != nil {
		fmt.Fprintf(b, "You are now on the %s plan.\n", snap.Plan.Name)
	}
	fmt.Fprintf(b, "Payment ID: %s\n", snap.Result.PaymentID)
	b.WriteString("\n(d) back to plans\n")
}

// FormatRupees renders a major-unit amount with Indian digit grouping.
func FormatRupees(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	s := strconv.FormatInt(amount, 10)
	if len(s) > 3 {
		head, tail := s[:len(s)-3], s[len(s)-3:]
		var groups []string
		for len(head) > 2 {
			groups = append([]string{head[len(head)-2:]}, groups...)
			head = head[:len(head)-2]
		}
		groups = append([]string{head}, groups...)
		s = strings.Join(groups, ",") + "," + tail
	}
	if neg {
		s = "-" + s
	}
	return "₹" + s
}
