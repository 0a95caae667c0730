package payment

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidRequest means the request was rejected before any
	// gateway interaction; nothing was charged.
	ErrInvalidRequest = errors.New("invalid charge request")
	// ErrIndeterminate means the gateway errored or never resolved:
	// funds may or may not have moved. Never retry blindly.
	ErrIndeterminate = errors.New("payment outcome indeterminate")
)

type Status string

const (
	StatusAuthorized Status = "authorized"
	StatusCancelled  Status = "cancelled"
)

// Outcome is the clean resolution of a charge. Errored and timed-out
// attempts are returned as ErrIndeterminate instead.
type Outcome struct {
	Status    Status
	Reference string
	Raw       []byte
}

// Adapter turns the gateway's callback contract into a single blocking
// call that resolves exactly once per attempt.
type Adapter struct {
	gateway Gateway
	timeout time.Duration
}

func NewAdapter(gateway Gateway, timeout time.Duration) *Adapter {
	return &Adapter{gateway: gateway, timeout: timeout}
}

type resolution struct {
	status    Status
	reference string
	raw       []byte
	reason    string
	errored   bool
}

// Charge validates the request, assigns a reference if the caller did
// not supply one, and blocks until the gateway resolves or the timeout
// elapses. A misbehaving gateway that fires more than one callback is
// collapsed to the first resolution.
func (a *Adapter) Charge(ctx context.Context, req ChargeRequest) (*Outcome, error) {
	if req.AmountMinor <= 0 {
		return nil, fmt.Errorf("%w: amount_minor must be positive, got %d", ErrInvalidRequest, req.AmountMinor)
	}
	if _, err := mail.ParseAddress(req.PayerEmail); err != nil {
		return nil, fmt.Errorf("%w: malformed payer email %q", ErrInvalidRequest, req.PayerEmail)
	}
	if req.Reference == "" {
		req.Reference = NewReference()
	}

	resolved := make(chan resolution, 1)
	var once sync.Once
	resolve := func(r resolution) {
		once.Do(func() { resolved <- r })
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	a.gateway.Charge(ctx, req, Callbacks{
		OnAuthorized: func(reference string, raw []byte) {
			resolve(resolution{status: StatusAuthorized, reference: reference, raw: raw})
		},
		OnCancelled: func() {
			resolve(resolution{status: StatusCancelled, reference: req.Reference})
		},
		OnError: func(reason string) {
			resolve(resolution{reason: reason, errored: true})
		},
	})

	select {
	case r := <-resolved:
		if r.errored {
			return nil, fmt.Errorf("%w: gateway reported %q", ErrIndeterminate, r.reason)
		}
		return &Outcome{Status: r.status, Reference: r.reference, Raw: r.raw}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: no gateway resolution within %s", ErrIndeterminate, a.timeout)
	}
}

// NewReference builds a globally unique per-attempt reference.
func NewReference() string {
	return fmt.Sprintf("REG-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
