package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/RogueTeam/cardpay/storage"
	"github.com/google/uuid"
)

var ErrPaymentNotFound = errors.New("payment not found")

type Payment struct {
	Order storage.Order `json:"order"`
	// Nil until the order is completed
	Record *storage.PaymentRecord `json:"record,omitempty"`
}

// Query returns the order and its payment record when present
func (c *Controller) Query(ctx context.Context, id uuid.UUID) (payment Payment, err error) {
	payment.Order, err = c.storage.Order(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return payment, ErrPaymentNotFound
		}
		return payment, fmt.Errorf("failed to query order: %w", err)
	}

	record, err := c.storage.PaymentRecord(ctx, id)
	switch {
	case err == nil:
		payment.Record = &record
	case !errors.Is(err, storage.ErrRecordNotFound):
		return payment, fmt.Errorf("failed to query payment record: %w", err)
	}
	return payment, nil
}
