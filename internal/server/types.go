package server

import "encoding/json"

// createOrderReq keeps amount raw so that only JSON numbers are accepted.
type createOrderReq struct {
	Amount json.RawMessage `json:"amount"`
	PlanID string          `json:"planId"`
}
