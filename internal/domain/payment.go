package domain

import "time"

type PaymentConfirmation struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
	PlanID    string `json:"planId,omitempty"`
}

type PaymentVerification struct {
	Verified    bool   `json:"verified"`
	OrderID     string `json:"orderId"`
	PaymentID   string `json:"paymentId"`
	Entitlement string `json:"entitlement,omitempty"`
}

type Entitlement struct {
	PlanID    string    `json:"planId"`
	OrderID   string    `json:"orderId"`
	PaymentID string    `json:"paymentId"`
	ExpiresAt time.Time `json:"expiresAt"`
}
