package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrRecordNotFound       = errors.New("payment record not found")
	ErrOrderExists          = errors.New("order already exists")
	ErrInvalidTransition    = errors.New("invalid order status transition")
	ErrAmountMismatch       = errors.New("payment record amount differs from order amount")
	ErrCurrencyMismatch     = errors.New("payment record currency differs from the supported currency")
	ErrDuplicateTransaction = errors.New("gateway transaction already recorded")
	ErrInvalidRecord        = errors.New("invalid payment record")
)

// Storage is the durable home of orders and payment records.
// Every method runs in its own transaction and commits before returning
type Storage interface {
	// Persist a new order. The order must be pending
	CreateOrder(ctx context.Context, order Order) (err error)

	// Move a pending order to a terminal status
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status OrderStatus) (err error)

	// Atomically creates the payment record, marks its order completed and drops any
	// unreconciled entry of the order. Re-applying the record already stored for a completed
	// order succeeds without writing
	CompleteOrder(ctx context.Context, record PaymentRecord) (err error)

	// Retrieve an order by its id
	Order(ctx context.Context, id uuid.UUID) (order Order, err error)

	// Retrieve the payment record of an order
	PaymentRecord(ctx context.Context, orderId uuid.UUID) (record PaymentRecord, err error)

	// Keep a charge that could not be recorded so it can be completed later
	SaveUnreconciled(ctx context.Context, record PaymentRecord) (err error)

	// List the charges waiting to be recorded
	Unreconciled(ctx context.Context) (records []PaymentRecord, err error)

	// Release the underlying resources
	Close() (err error)
}
