// Package boltstore keeps orders and payment records in a single BoltDB file
package boltstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RogueTeam/cardpay/storage"
	bolt "github.com/boltdb/bolt"
	"github.com/google/uuid"
)

var (
	ordersBucket       = []byte("orders")
	recordsBucket      = []byte("records")
	gatewayBucket      = []byte("gateway")
	unreconciledBucket = []byte("unreconciled")
)

type Store struct {
	db *bolt.DB
}

var _ storage.Storage = (*Store)(nil)

// Open opens (or creates) the database file at path and makes sure every bucket exists
func Open(path string) (s *Store, err error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) (err error) {
		for _, name := range [][]byte{ordersBucket, recordsBucket, gatewayBucket, unreconciledBucket} {
			_, err = tx.CreateBucketIfNotExists(name)
			if err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() (err error) {
	return s.db.Close()
}

func getOrder(tx *bolt.Tx, id uuid.UUID) (order storage.Order, err error) {
	v := tx.Bucket(ordersBucket).Get(id[:])
	if v == nil {
		return order, storage.ErrOrderNotFound
	}

	err = order.FromBytes(v)
	if err != nil {
		return order, fmt.Errorf("failed to unmarshal order: %w", err)
	}
	return order, nil
}

func getRecord(b *bolt.Bucket, orderId uuid.UUID) (record storage.PaymentRecord, err error) {
	v := b.Get(orderId[:])
	if v == nil {
		return record, storage.ErrRecordNotFound
	}

	err = record.FromBytes(v)
	if err != nil {
		return record, fmt.Errorf("failed to unmarshal payment record: %w", err)
	}
	return record, nil
}

func (s *Store) CreateOrder(ctx context.Context, order storage.Order) (err error) {
	if err = ctx.Err(); err != nil {
		return err
	}
	if order.Status != storage.OrderStatusPending {
		return fmt.Errorf("%w: orders are created pending", storage.ErrInvalidTransition)
	}

	return s.db.Update(func(tx *bolt.Tx) (err error) {
		b := tx.Bucket(ordersBucket)
		if b.Get(order.Id[:]) != nil {
			return storage.ErrOrderExists
		}
		return b.Put(order.Id[:], order.Bytes())
	})
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status storage.OrderStatus) (err error) {
	if err = ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) (err error) {
		order, err := getOrder(tx, id)
		if err != nil {
			return err
		}

		err = storage.ApplyStatus(&order, status, time.Now())
		if err != nil {
			return err
		}
		return tx.Bucket(ordersBucket).Put(order.Id[:], order.Bytes())
	})
}

func (s *Store) CompleteOrder(ctx context.Context, record storage.PaymentRecord) (err error) {
	if err = ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) (err error) {
		order, err := getOrder(tx, record.OrderId)
		if err != nil {
			return err
		}

		records := tx.Bucket(recordsBucket)
		var existing *storage.PaymentRecord
		stored, err := getRecord(records, order.Id)
		switch {
		case err == nil:
			existing = &stored
		case !errors.Is(err, storage.ErrRecordNotFound):
			return err
		}

		write, err := storage.ApplyCompletion(&order, existing, record, time.Now())
		if err != nil {
			return err
		}

		if write {
			gateway := tx.Bucket(gatewayBucket)
			if gateway.Get([]byte(record.GatewayTransactionId)) != nil {
				return storage.ErrDuplicateTransaction
			}

			err = records.Put(order.Id[:], record.Bytes())
			if err != nil {
				return fmt.Errorf("failed to put payment record: %w", err)
			}
			err = gateway.Put([]byte(record.GatewayTransactionId), order.Id[:])
			if err != nil {
				return fmt.Errorf("failed to put gateway index: %w", err)
			}
			err = tx.Bucket(ordersBucket).Put(order.Id[:], order.Bytes())
			if err != nil {
				return fmt.Errorf("failed to put order: %w", err)
			}
		}

		return tx.Bucket(unreconciledBucket).Delete(order.Id[:])
	})
}

func (s *Store) Order(ctx context.Context, id uuid.UUID) (order storage.Order, err error) {
	if err = ctx.Err(); err != nil {
		return order, err
	}

	err = s.db.View(func(tx *bolt.Tx) (err error) {
		order, err = getOrder(tx, id)
		return err
	})
	return order, err
}

func (s *Store) PaymentRecord(ctx context.Context, orderId uuid.UUID) (record storage.PaymentRecord, err error) {
	if err = ctx.Err(); err != nil {
		return record, err
	}

	err = s.db.View(func(tx *bolt.Tx) (err error) {
		record, err = getRecord(tx.Bucket(recordsBucket), orderId)
		return err
	})
	return record, err
}

func (s *Store) SaveUnreconciled(ctx context.Context, record storage.PaymentRecord) (err error) {
	if err = ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) (err error) {
		return tx.Bucket(unreconciledBucket).Put(record.OrderId[:], record.Bytes())
	})
}

func (s *Store) Unreconciled(ctx context.Context) (records []storage.PaymentRecord, err error) {
	records = []storage.PaymentRecord{}
	err = s.db.View(func(tx *bolt.Tx) (err error) {
		return tx.Bucket(unreconciledBucket).ForEach(func(_, v []byte) (err error) {
			if err = ctx.Err(); err != nil {
				return err
			}

			var record storage.PaymentRecord
			err = record.FromBytes(v)
			if err != nil {
				return fmt.Errorf("failed to unmarshal unreconciled entry: %w", err)
			}
			records = append(records, record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
