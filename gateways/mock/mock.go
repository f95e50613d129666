package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/RogueTeam/cardpay/gateways"
	"github.com/RogueTeam/cardpay/random"
)

// Sandbox style nonces understood by the mock
const (
	NonceApproved    = "cnon:card-nonce-ok"
	NonceDeclined    = "cnon:card-nonce-declined"
	NonceUnavailable = "mock:unavailable"
)

type outcome struct {
	charge gateways.Charge
	err    error
}

// Mock implements the gateways.Gateway interface for testing purposes.
type Mock struct {
	mu     sync.Mutex
	delay  time.Duration
	calls  uint64
	byKey  map[string]outcome // idempotency key -> first outcome
	charge map[string]gateways.Charge
}

var _ gateways.Gateway = (*Mock)(nil)

type Config struct {
	// Time every charge takes to resolve
	Delay time.Duration
}

func New(config Config) *Mock {
	return &Mock{
		delay:  config.Delay,
		byKey:  make(map[string]outcome),
		charge: make(map[string]gateways.Charge),
	}
}

// Calls returns how many times Charge was invoked
func (m *Mock) Calls() (calls uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.calls
}

// Charges returns how many distinct charges were approved
func (m *Mock) Charges() (charges int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.charge)
}

func (m *Mock) Charge(ctx context.Context, req gateways.ChargeRequest) (charge gateways.Charge, err error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return charge, fmt.Errorf("%w: %w", gateways.ErrUnavailable, ctx.Err())
		case <-time.After(m.delay):
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if previous, found := m.byKey[req.IdempotencyKey]; found && req.IdempotencyKey != "" {
		return previous.charge, previous.err
	}

	if req.SourceToken == NonceUnavailable {
		// Transport faults are not remembered, a retry reaches the gateway again
		return charge, fmt.Errorf("%w: connection reset by peer", gateways.ErrUnavailable)
	}

	var result outcome
	switch err := req.Validate(); {
	case err != nil:
		result.err = &gateways.DeclineError{
			Category: "INVALID_REQUEST_ERROR",
			Code:     "BAD_REQUEST",
			Detail:   err.Error(),
		}
	case req.SourceToken == NonceDeclined:
		raw, _ := json.Marshal(map[string]any{"status": "FAILED", "reference_id": req.ReferenceId})
		result.err = &gateways.DeclineError{
			Category: "PAYMENT_METHOD_ERROR",
			Code:     "GENERIC_DECLINE",
			Detail:   "Card declined",
			Raw:      raw,
		}
	default:
		id := random.Identifier("mock_", 22)
		raw, _ := json.Marshal(map[string]any{
			"id":           id,
			"status":       "COMPLETED",
			"reference_id": req.ReferenceId,
			"amount_money": map[string]any{"amount": req.Amount, "currency": req.Currency},
		})
		result.charge = gateways.Charge{
			Id:       id,
			Status:   gateways.StatusCompleted,
			Amount:   req.Amount,
			Currency: req.Currency,
			Raw:      raw,
		}
		m.charge[id] = result.charge
	}

	if req.IdempotencyKey != "" {
		m.byKey[req.IdempotencyKey] = result
	}
	return result.charge, result.err
}
