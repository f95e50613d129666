package payments

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kinds of PaymentError. Match them with errors.Is
var (
	ErrValidation         = errors.New("validation error")
	ErrPersistence        = errors.New("persistence error")
	ErrGatewayUnavailable = errors.New("gateway unavailable")
	ErrPaymentFailed      = errors.New("payment failed")
	ErrReconciliation     = errors.New("reconciliation error")
)

// User facing messages
const (
	MessageUnavailable = "Payment could not be processed, please try again later"
	MessagePersistence = "Payment could not be processed"
	MessageDeclined    = "Payment declined"
)

type PaymentError struct {
	// One of the kind sentinels
	Kind error
	// Zero when the order was never created
	OrderId uuid.UUID
	// Set when the gateway charged the card
	GatewayId string
	// Safe to show to the payer
	Detail string
	// Underlying cause
	Err error
}

func (e *PaymentError) Error() (s string) {
	s = e.Kind.Error()
	if e.OrderId != uuid.Nil {
		s = fmt.Sprintf("%s: order %s", s, e.OrderId)
	}
	if e.Detail != "" {
		s = fmt.Sprintf("%s: %s", s, e.Detail)
	}
	if e.Err != nil {
		s = fmt.Sprintf("%s: %v", s, e.Err)
	}
	return s
}

// Unwrap exposes the kind, the cause and, for unavailable gateways, ErrPaymentFailed
// since the payer sees both the same way
func (e *PaymentError) Unwrap() (errs []error) {
	errs = []error{e.Kind}
	if e.Kind == ErrGatewayUnavailable {
		errs = append(errs, ErrPaymentFailed)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func validationError(format string, args ...any) (err *PaymentError) {
	detail := fmt.Sprintf(format, args...)
	return &PaymentError{Kind: ErrValidation, Detail: detail}
}
