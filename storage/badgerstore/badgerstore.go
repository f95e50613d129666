package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RogueTeam/cardpay/storage"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

var unreconciledPrefix = []byte("/unreconciled/")

func OrderKey(id uuid.UUID) (key []byte) {
	return []byte(fmt.Sprintf("/orders/%s", id))
}

func RecordKey(orderId uuid.UUID) (key []byte) {
	return []byte(fmt.Sprintf("/records/%s", orderId))
}

// Index from the gateway transaction to the order it paid
func GatewayKey(transactionId string) (key []byte) {
	return []byte(fmt.Sprintf("/gateway/%s", transactionId))
}

func UnreconciledKey(orderId uuid.UUID) (key []byte) {
	return []byte(fmt.Sprintf("%s%s", unreconciledPrefix, orderId))
}

type Config struct {
	// Badger database to use
	DB *badger.DB
}

type Store struct {
	db *badger.DB
}

var _ storage.Storage = (*Store)(nil)

func New(config Config) (s *Store) {
	return &Store{db: config.DB}
}

// Open a badger database at path. An empty path opens an in memory database
func Open(path string) (s *Store, err error) {
	options := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		options = options.WithInMemory(true)
	}

	db, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return New(Config{DB: db}), nil
}

func (s *Store) Close() (err error) {
	return s.db.Close()
}

func getOrder(txn *badger.Txn, id uuid.UUID) (order storage.Order, err error) {
	item, err := txn.Get(OrderKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return order, storage.ErrOrderNotFound
		}
		return order, fmt.Errorf("failed to query order: %w", err)
	}

	err = item.Value(order.FromBytes)
	if err != nil {
		return order, fmt.Errorf("failed to unmarshal order: %w", err)
	}
	return order, nil
}

func getRecord(txn *badger.Txn, key []byte) (record storage.PaymentRecord, err error) {
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return record, storage.ErrRecordNotFound
		}
		return record, fmt.Errorf("failed to query payment record: %w", err)
	}

	err = item.Value(record.FromBytes)
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

	return s.db.Update(func(txn *badger.Txn) (err error) {
		_, err = getOrder(txn, order.Id)
		switch {
		case err == nil:
			return storage.ErrOrderExists
		case !errors.Is(err, storage.ErrOrderNotFound):
			return err
		}

		err = txn.Set(OrderKey(order.Id), order.Bytes())
		if err != nil {
			return fmt.Errorf("failed to set order: %w", err)
		}
		return nil
	})
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status storage.OrderStatus) (err error) {
	if err = ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) (err error) {
		order, err := getOrder(txn, id)
		if err != nil {
			return err
		}

		err = storage.ApplyStatus(&order, status, time.Now())
		if err != nil {
			return err
		}

		err = txn.Set(OrderKey(order.Id), order.Bytes())
		if err != nil {
			return fmt.Errorf("failed to set order: %w", err)
		}
		return nil
	})
}

func (s *Store) CompleteOrder(ctx context.Context, record storage.PaymentRecord) (err error) {
	if err = ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) (err error) {
		order, err := getOrder(txn, record.OrderId)
		if err != nil {
			return err
		}

		var existing *storage.PaymentRecord
		stored, err := getRecord(txn, RecordKey(order.Id))
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
			_, err = txn.Get(GatewayKey(record.GatewayTransactionId))
			switch {
			case err == nil:
				return storage.ErrDuplicateTransaction
			case !errors.Is(err, badger.ErrKeyNotFound):
				return fmt.Errorf("failed to query gateway index: %w", err)
			}

			err = txn.Set(RecordKey(order.Id), record.Bytes())
			if err != nil {
				return fmt.Errorf("failed to set payment record: %w", err)
			}
			err = txn.Set(GatewayKey(record.GatewayTransactionId), order.Id[:])
			if err != nil {
				return fmt.Errorf("failed to set gateway index: %w", err)
			}
			err = txn.Set(OrderKey(order.Id), order.Bytes())
			if err != nil {
				return fmt.Errorf("failed to set order: %w", err)
			}
		}

		err = txn.Delete(UnreconciledKey(order.Id))
		if err != nil {
			return fmt.Errorf("failed to delete unreconciled entry: %w", err)
		}
		return nil
	})
}

func (s *Store) Order(ctx context.Context, id uuid.UUID) (order storage.Order, err error) {
	if err = ctx.Err(); err != nil {
		return order, err
	}

	err = s.db.View(func(txn *badger.Txn) (err error) {
		order, err = getOrder(txn, id)
		return err
	})
	return order, err
}

func (s *Store) PaymentRecord(ctx context.Context, orderId uuid.UUID) (record storage.PaymentRecord, err error) {
	if err = ctx.Err(); err != nil {
		return record, err
	}

	err = s.db.View(func(txn *badger.Txn) (err error) {
		record, err = getRecord(txn, RecordKey(orderId))
		return err
	})
	return record, err
}

func (s *Store) SaveUnreconciled(ctx context.Context, record storage.PaymentRecord) (err error) {
	if err = ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) (err error) {
		err = txn.Set(UnreconciledKey(record.OrderId), record.Bytes())
		if err != nil {
			return fmt.Errorf("failed to set unreconciled entry: %w", err)
		}
		return nil
	})
}

func (s *Store) Unreconciled(ctx context.Context) (records []storage.PaymentRecord, err error) {
	records = []storage.PaymentRecord{}
	err = s.db.View(func(txn *badger.Txn) (err error) {
		options := badger.DefaultIteratorOptions
		options.Prefix = unreconciledPrefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(unreconciledPrefix); it.Next() {
			if err = ctx.Err(); err != nil {
				return err
			}

			var record storage.PaymentRecord
			err = it.Item().Value(record.FromBytes)
			if err != nil {
				return fmt.Errorf("failed to unmarshal unreconciled entry: %w", err)
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
