package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/RogueTeam/cardpay/decimal"
	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
)

func (s OrderStatus) Terminal() (terminal bool) {
	return s == OrderStatusCompleted || s == OrderStatusFailed
}

type Order struct {
	// Identifier of the order
	Id uuid.UUID `json:"id"`
	// Amount in major units
	Amount decimal.Decimal `json:"amount"`
	// Lifecycle status
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// NewOrder prepares a pending order for amount
func NewOrder(amount decimal.Decimal) (order Order) {
	now := time.Now().UTC()
	return Order{
		Id:        uuid.New(),
		Amount:    amount,
		Status:    OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition moves a pending order into a terminal status. Orders leave pending exactly once
func (o *Order) Transition(to OrderStatus, now time.Time) (err error) {
	if o.Status != OrderStatusPending || !to.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}

	o.Status = to
	o.UpdatedAt = now.UTC()
	return nil
}

func (o *Order) Bytes() (bytes []byte) {
	bytes, _ = json.Marshal(o)
	return bytes
}

func (o *Order) FromBytes(b []byte) (err error) {
	return json.Unmarshal(b, o)
}

// ApplyStatus moves order into status outside of a completion. Completed orders always
// carry a payment record so they are only reachable through ApplyCompletion
func ApplyStatus(order *Order, to OrderStatus, now time.Time) (err error) {
	if to == OrderStatusCompleted {
		return fmt.Errorf("%w: completion requires a payment record", ErrInvalidTransition)
	}
	return order.Transition(to, now)
}
