package testsuite

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/RogueTeam/cardpay/decimal"
	"github.com/RogueTeam/cardpay/random"
	"github.com/RogueTeam/cardpay/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty storage. The suite closes it
type Factory func(t *testing.T) (s storage.Storage)

func newOrder(amount int64) (order storage.Order) {
	return storage.NewOrder(decimal.FromMinorUnits(amount))
}

func newRecord(order storage.Order) (record storage.PaymentRecord) {
	return storage.PaymentRecord{
		Id:                   uuid.New(),
		OrderId:              order.Id,
		GatewayTransactionId: random.Identifier("sq_", 22),
		Amount:               order.Amount,
		Currency:             "USD",
		Status:               storage.RecordStatusCompleted,
		Metadata:             json.RawMessage(`{"payment":{"status":"COMPLETED"}}`),
		CreatedAt:            time.Now().UTC(),
	}
}

// Test runs the behaviour every Storage implementation must honor
func Test(t *testing.T, factory Factory) {
	open := func(t *testing.T) (s storage.Storage) {
		s = factory(t)
		t.Cleanup(func() { s.Close() })
		return s
	}

	t.Run("CreateOrder", func(t *testing.T) {
		assertions := assert.New(t)
		ctx := context.TODO()
		s := open(t)

		order := newOrder(1250)
		err := s.CreateOrder(ctx, order)
		assertions.Nil(err, "failed to create order")

		stored, err := s.Order(ctx, order.Id)
		assertions.Nil(err, "failed to query order")
		assertions.Equal(order.Id, stored.Id)
		assertions.Equal(storage.OrderStatusPending, stored.Status)
		assertions.True(order.Amount.Equal(stored.Amount), "amount changed: %s", stored.Amount)

		err = s.CreateOrder(ctx, order)
		assertions.ErrorIs(err, storage.ErrOrderExists)

		_, err = s.PaymentRecord(ctx, order.Id)
		assertions.ErrorIs(err, storage.ErrRecordNotFound)
	})

	t.Run("CreateOrder not pending", func(t *testing.T) {
		assertions := assert.New(t)
		s := open(t)

		order := newOrder(100)
		order.Status = storage.OrderStatusCompleted
		err := s.CreateOrder(context.TODO(), order)
		assertions.ErrorIs(err, storage.ErrInvalidTransition)
	})

	t.Run("Order not found", func(t *testing.T) {
		assertions := assert.New(t)
		ctx := context.TODO()
		s := open(t)

		_, err := s.Order(ctx, uuid.New())
		assertions.ErrorIs(err, storage.ErrOrderNotFound)

		err = s.UpdateOrderStatus(ctx, uuid.New(), storage.OrderStatusFailed)
		assertions.ErrorIs(err, storage.ErrOrderNotFound)

		err = s.CompleteOrder(ctx, newRecord(newOrder(100)))
		assertions.ErrorIs(err, storage.ErrOrderNotFound)
	})

	t.Run("UpdateOrderStatus", func(t *testing.T) {
		assertions := assert.New(t)
		ctx := context.TODO()
		s := open(t)

		order := newOrder(500)
		require.Nil(t, s.CreateOrder(ctx, order))

		err := s.UpdateOrderStatus(ctx, order.Id, storage.OrderStatusFailed)
		assertions.Nil(err, "failed to mark failed")

		stored, err := s.Order(ctx, order.Id)
		assertions.Nil(err)
		assertions.Equal(storage.OrderStatusFailed, stored.Status)

		// Terminal states never revert
		err = s.UpdateOrderStatus(ctx, order.Id, storage.OrderStatusPending)
		assertions.ErrorIs(err, storage.ErrInvalidTransition)
		err = s.CompleteOrder(ctx, newRecord(order))
		assertions.ErrorIs(err, storage.ErrInvalidTransition)

		stored, err = s.Order(ctx, order.Id)
		assertions.Nil(err)
		assertions.Equal(storage.OrderStatusFailed, stored.Status)
		_, err = s.PaymentRecord(ctx, order.Id)
		assertions.ErrorIs(err, storage.ErrRecordNotFound)
	})

	t.Run("CompleteOrder", func(t *testing.T) {
		assertions := assert.New(t)
		ctx := context.TODO()
		s := open(t)

		order := newOrder(1250)
		require.Nil(t, s.CreateOrder(ctx, order))

		record := newRecord(order)
		err := s.CompleteOrder(ctx, record)
		assertions.Nil(err, "failed to complete order")

		stored, err := s.Order(ctx, order.Id)
		assertions.Nil(err)
		assertions.Equal(storage.OrderStatusCompleted, stored.Status)

		storedRecord, err := s.PaymentRecord(ctx, order.Id)
		assertions.Nil(err, "failed to query record")
		assertions.Equal(record.Id, storedRecord.Id)
		assertions.Equal(order.Id, storedRecord.OrderId)
		assertions.Equal(record.GatewayTransactionId, storedRecord.GatewayTransactionId)
		assertions.True(stored.Amount.Equal(storedRecord.Amount))
		assertions.Equal("USD", storedRecord.Currency)
		assertions.Equal(storage.RecordStatusCompleted, storedRecord.Status)
		assertions.JSONEq(string(record.Metadata), string(storedRecord.Metadata))

		// Same transaction again is a no-op
		err = s.CompleteOrder(ctx, record)
		assertions.Nil(err, "re-applying the same record must succeed")

		// A different transaction for a completed order is rejected
		err = s.CompleteOrder(ctx, newRecord(order))
		assertions.ErrorIs(err, storage.ErrInvalidTransition)

		err = s.UpdateOrderStatus(ctx, order.Id, storage.OrderStatusFailed)
		assertions.ErrorIs(err, storage.ErrInvalidTransition)
	})

	t.Run("CompleteOrder rolls back", func(t *testing.T) {
		assertions := assert.New(t)
		ctx := context.TODO()
		s := open(t)

		order := newOrder(1250)
		require.Nil(t, s.CreateOrder(ctx, order))

		record := newRecord(order)
		record.Amount = decimal.FromMinorUnits(1249)
		err := s.CompleteOrder(ctx, record)
		assertions.ErrorIs(err, storage.ErrAmountMismatch)

		stored, err := s.Order(ctx, order.Id)
		assertions.Nil(err)
		assertions.Equal(storage.OrderStatusPending, stored.Status)
		_, err = s.PaymentRecord(ctx, order.Id)
		assertions.ErrorIs(err, storage.ErrRecordNotFound)
	})

	t.Run("Duplicate gateway transaction", func(t *testing.T) {
		assertions := assert.New(t)
		ctx := context.TODO()
		s := open(t)

		first := newOrder(100)
		second := newOrder(100)
		require.Nil(t, s.CreateOrder(ctx, first))
		require.Nil(t, s.CreateOrder(ctx, second))

		record := newRecord(first)
		require.Nil(t, s.CompleteOrder(ctx, record))

		duplicated := newRecord(second)
		duplicated.GatewayTransactionId = record.GatewayTransactionId
		err := s.CompleteOrder(ctx, duplicated)
		assertions.ErrorIs(err, storage.ErrDuplicateTransaction)

		stored, err := s.Order(ctx, second.Id)
		assertions.Nil(err)
		assertions.Equal(storage.OrderStatusPending, stored.Status)
	})

	t.Run("Unreconciled", func(t *testing.T) {
		assertions := assert.New(t)
		ctx := context.TODO()
		s := open(t)

		records, err := s.Unreconciled(ctx)
		assertions.Nil(err)
		assertions.Len(records, 0)

		var orders []storage.Order
		for range 3 {
			order := newOrder(999)
			require.Nil(t, s.CreateOrder(ctx, order))
			orders = append(orders, order)

			err = s.SaveUnreconciled(ctx, newRecord(order))
			assertions.Nil(err, "failed to save unreconciled")
		}

		records, err = s.Unreconciled(ctx)
		assertions.Nil(err)
		assertions.Len(records, 3)

		// Completing drops the entry
		for _, record := range records {
			err = s.CompleteOrder(ctx, record)
			assertions.Nil(err, "failed to complete unreconciled order")
		}

		records, err = s.Unreconciled(ctx)
		assertions.Nil(err)
		assertions.Len(records, 0)

		for _, order := range orders {
			stored, err := s.Order(ctx, order.Id)
			assertions.Nil(err)
			assertions.Equal(storage.OrderStatusCompleted, stored.Status)
		}
	})

	t.Run("Concurrent orders", func(t *testing.T) {
		assertions := assert.New(t)
		ctx := context.TODO()
		s := open(t)

		const workers = 16
		var (
			wg     sync.WaitGroup
			mu     sync.Mutex
			errs   []error
			orders = make([]storage.Order, workers)
		)
		for index := range workers {
			orders[index] = newOrder(int64(index + 1))
			wg.Add(1)
			go func() {
				defer wg.Done()

				order := orders[index]
				err := s.CreateOrder(ctx, order)
				if err == nil {
					if index%2 == 0 {
						err = s.CompleteOrder(ctx, newRecord(order))
					} else {
						err = s.UpdateOrderStatus(ctx, order.Id, storage.OrderStatusFailed)
					}
				}
				if err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assertions.Len(errs, 0, "concurrent writes failed: %v", errs)

		for index, order := range orders {
			stored, err := s.Order(ctx, order.Id)
			assertions.Nil(err)
			if index%2 == 0 {
				assertions.Equal(storage.OrderStatusCompleted, stored.Status)
			} else {
				assertions.Equal(storage.OrderStatusFailed, stored.Status)
			}
		}
	})
}
