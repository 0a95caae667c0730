package payment

import (
	"context"
	"encoding/json"
	"time"
)

// SandboxGateway simulates capture without moving money, so the full
// registration flow can run in local and test deployments.
type SandboxGateway struct {
	Delay time.Duration
}

func (g *SandboxGateway) Charge(ctx context.Context, req ChargeRequest, cb Callbacks) {
	go func() {
		select {
		case <-time.After(g.Delay):
		case <-ctx.Done():
			cb.OnError("sandbox interrupted: " + ctx.Err().Error())
			return
		}

		raw, _ := json.Marshal(map[string]any{
			"reference": req.Reference,
			"amount":    req.AmountMinor,
			"currency":  req.Currency,
			"email":     req.PayerEmail,
			"status":    "success",
			"channel":   "sandbox",
		})
		cb.OnAuthorized(req.Reference, raw)
	}()
}
