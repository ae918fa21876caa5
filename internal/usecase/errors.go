package usecase

// ErrValidation reports client input that can be corrected and resent.
type ErrValidation string

func (e ErrValidation) Error() string { return string(e) }
func (ErrValidation) Kind() string    { return "validation" }

// ErrUpstream reports a failure of the payment provider or another backing
// service. Err carries diagnostic detail for logs only.
type ErrUpstream struct {
	Op  string
	Err error
}

func (e *ErrUpstream) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *ErrUpstream) Unwrap() error { return e.Err }
func (*ErrUpstream) Kind() string    { return "upstream" }

type ErrSignature string

func (e ErrSignature) Error() string { return string(e) }
func (ErrSignature) Kind() string    { return "signature" }

type ErrUnauthorized string

func (e ErrUnauthorized) Error() string { return string(e) }
func (ErrUnauthorized) Kind() string    { return "unauthorized" }
