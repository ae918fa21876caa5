package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrAttemptInFlight   = errors.New("checkout: a payment attempt is already in progress")
	ErrNotIdle           = errors.New("checkout: dismiss the completed payment first")
	ErrWidgetUnavailable = errors.New("checkout: widget unavailable")
)

// APIError is a non-2xx reply from the planpay server. Message holds the
// server's short error string, if any.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("planpay api: status %d", e.Status)
	}
	return fmt.Sprintf("planpay api: status %d: %s", e.Status, e.Message)
}
