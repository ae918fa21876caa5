package domain

const (
	CurrencyINR = "INR"

	// MinorUnitsPerMajor converts rupees to paise.
	MinorUnitsPerMajor = 100
)

type OrderRequest struct {
	Amount int64  `json:"amount"`
	PlanID string `json:"planId,omitempty"`
}

// OrderDescriptor is the part of a provider order that is safe to hand to a
// client. Amount is in minor units.
type OrderDescriptor struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}
