package gateways

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// The gateway could not be reached or answered with something that is not a decision about the card
	ErrUnavailable    = errors.New("payment gateway unavailable")
	ErrInvalidRequest = errors.New("invalid charge request")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type (
	ChargeRequest struct {
		// Single use card token produced by the client side tokenizer
		SourceToken string
		// Amount in minor units (cents)
		Amount int64
		// ISO-4217 currency code
		Currency string
		// Merchant location receiving the funds
		LocationId string
		// Same key, same charge. Retries with it never charge twice
		IdempotencyKey string
		// Local order reference forwarded to the gateway
		ReferenceId string
	}
	Charge struct {
		// Gateway transaction id
		Id       string
		Status   Status
		Amount   int64
		Currency string
		// Full gateway response, stored as payment metadata
		Raw json.RawMessage
	}
)

// DeclineError is returned when the gateway rejected the card or the charge
type DeclineError struct {
	Category string
	Code     string
	// Human readable reason safe to show to the payer
	Detail string
	Raw    json.RawMessage
}

func (e *DeclineError) Error() (s string) {
	if e.Code == "" {
		return fmt.Sprintf("payment declined: %s", e.Detail)
	}
	return fmt.Sprintf("payment declined: %s: %s", e.Code, e.Detail)
}

// Validate the request before sending it
func (r *ChargeRequest) Validate() (err error) {
	switch {
	case r.SourceToken == "":
		return fmt.Errorf("%w: empty source token", ErrInvalidRequest)
	case r.Amount <= 0:
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	case r.Currency == "":
		return fmt.Errorf("%w: empty currency", ErrInvalidRequest)
	case r.IdempotencyKey == "":
		return fmt.Errorf("%w: empty idempotency key", ErrInvalidRequest)
	}
	return nil
}

type Gateway interface {
	// Charge the card behind the token. Declines are reported as *DeclineError,
	// anything else that prevented a decision wraps ErrUnavailable
	Charge(ctx context.Context, req ChargeRequest) (charge Charge, err error)
}

// IsDecline reports if err carries a gateway decline
func IsDecline(err error) (decline *DeclineError, ok bool) {
	ok = errors.As(err, &decline)
	return decline, ok
}
