package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/RogueTeam/cardpay/decimal"
	"github.com/google/uuid"
)

// Status of the transaction as reported by the gateway
type RecordStatus string

const (
	RecordStatusPending   RecordStatus = "pending"
	RecordStatusCompleted RecordStatus = "completed"
	RecordStatusFailed    RecordStatus = "failed"
)

type PaymentRecord struct {
	// Identifier of the record
	Id uuid.UUID `json:"id"`
	// Order paid by this transaction
	OrderId uuid.UUID `json:"orderId"`
	// Identifier assigned by the gateway
	GatewayTransactionId string `json:"gatewayTransactionId"`
	// Charged amount in major units, always equal to the order amount
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Status   RecordStatus    `json:"status"`
	// Full gateway response kept for auditing
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Validate checks the record can be attached to order
func (r *PaymentRecord) Validate(order Order) (err error) {
	switch {
	case r.OrderId != order.Id:
		return fmt.Errorf("%w: belongs to order %s not %s", ErrInvalidRecord, r.OrderId, order.Id)
	case r.GatewayTransactionId == "":
		return fmt.Errorf("%w: missing gateway transaction id", ErrInvalidRecord)
	case r.Currency == "":
		return fmt.Errorf("%w: missing currency", ErrInvalidRecord)
	case !r.Amount.Equal(order.Amount):
		return fmt.Errorf("%w: %s != %s", ErrAmountMismatch, r.Amount, order.Amount)
	}
	return nil
}

func (r *PaymentRecord) Bytes() (bytes []byte) {
	bytes, _ = json.Marshal(r)
	return bytes
}

func (r *PaymentRecord) FromBytes(b []byte) (err error) {
	return json.Unmarshal(b, r)
}

// ApplyCompletion updates order so it reflects record. When the order was already completed
// by this same gateway transaction write is false and nothing has to be stored.
// existing is the record currently stored for the order, if any
func ApplyCompletion(order *Order, existing *PaymentRecord, record PaymentRecord, now time.Time) (write bool, err error) {
	if order.Status == OrderStatusCompleted && existing != nil &&
		existing.GatewayTransactionId == record.GatewayTransactionId {
		return false, nil
	}

	err = record.Validate(*order)
	if err != nil {
		return false, err
	}

	err = order.Transition(OrderStatusCompleted, now)
	if err != nil {
		return false, err
	}
	return true, nil
}
