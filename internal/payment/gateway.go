// Package payment wraps the external card/mobile-money authorization
// flow behind a callback contract, so the registration coordinator never
// depends on a specific gateway transport.
package payment

import "context"

// ChargeRequest describes one authorization attempt in gateway terms:
// integer minor units, never major-unit decimals.
type ChargeRequest struct {
	AmountMinor int64
	Currency    string
	PayerEmail  string
	Reference   string
	Metadata    map[string]string
}

// Callbacks is the resolution contract: per Charge invocation exactly
// one of the three fires. OnAuthorized carries the gateway's own
// transaction reference and its raw response for audit. OnError means
// the gateway reported a processing failure and funds may or may not
// have moved; the gateway does not resolve that ambiguity.
type Callbacks struct {
	OnAuthorized func(reference string, raw []byte)
	OnCancelled  func()
	OnError      func(reason string)
}

// Gateway opens an authorization flow. Implementations may resolve the
// callbacks asynchronously after Charge returns.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest, cb Callbacks)
}
