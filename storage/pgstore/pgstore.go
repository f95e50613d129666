// Package pgstore keeps orders and payment records in PostgreSQL
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RogueTeam/cardpay/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var Schema string

const uniqueViolation = "23505"

type Store struct {
	DB *pgxpool.Pool
}

var _ storage.Storage = (*Store)(nil)

func New(db *pgxpool.Pool) (s *Store) {
	return &Store{DB: db}
}

// Open connects to url and applies the schema
func Open(ctx context.Context, url string) (s *Store, err error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	s = New(pool)
	err = s.Migrate(ctx)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Migrate(ctx context.Context) (err error) {
	_, err = s.DB.Exec(ctx, Schema)
	if err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() (err error) {
	s.DB.Close()
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = fn(tx)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func getOrder(ctx context.Context, q pgx.Tx, id uuid.UUID, lock bool) (order storage.Order, err error) {
	query := `
		SELECT id, amount::text, status, created_at, updated_at
		FROM orders
		WHERE id = $1
	`
	if lock {
		query += ` FOR UPDATE`
	}

	var amount, status string
	err = q.QueryRow(ctx, query, id).Scan(&order.Id, &amount, &status, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order, storage.ErrOrderNotFound
		}
		return order, fmt.Errorf("failed to query order: %w", err)
	}

	err = order.Amount.FromString(amount)
	if err != nil {
		return order, fmt.Errorf("failed to parse order amount: %w", err)
	}
	order.Status = storage.OrderStatus(status)
	return order, nil
}

func getRecord(ctx context.Context, q pgx.Tx, orderId uuid.UUID) (record storage.PaymentRecord, err error) {
	var amount, status string
	var metadata []byte
	err = q.QueryRow(ctx, `
		SELECT id, order_id, gateway_transaction_id, amount::text, currency, status, metadata, created_at
		FROM payment_records
		WHERE order_id = $1
	`, orderId).Scan(
		&record.Id,
		&record.OrderId,
		&record.GatewayTransactionId,
		&amount,
		&record.Currency,
		&status,
		&metadata,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return record, storage.ErrRecordNotFound
		}
		return record, fmt.Errorf("failed to query payment record: %w", err)
	}

	err = record.Amount.FromString(amount)
	if err != nil {
		return record, fmt.Errorf("failed to parse payment record amount: %w", err)
	}
	record.Status = storage.RecordStatus(status)
	record.Metadata = json.RawMessage(metadata)
	return record, nil
}

func setOrder(ctx context.Context, tx pgx.Tx, order storage.Order) (err error) {
	_, err = tx.Exec(ctx, `
		UPDATE orders
		SET status = $2, updated_at = $3
		WHERE id = $1
	`, order.Id, string(order.Status), order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}

func (s *Store) CreateOrder(ctx context.Context, order storage.Order) (err error) {
	if order.Status != storage.OrderStatusPending {
		return fmt.Errorf("%w: orders are created pending", storage.ErrInvalidTransition)
	}

	tag, err := s.DB.Exec(ctx, `
		INSERT INTO orders (id, amount, status, created_at, updated_at)
		VALUES ($1, $2::text::numeric, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, order.Id, order.Amount.String(), string(order.Status), order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrOrderExists
	}
	return nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status storage.OrderStatus) (err error) {
	return s.inTx(ctx, func(tx pgx.Tx) (err error) {
		order, err := getOrder(ctx, tx, id, true)
		if err != nil {
			return err
		}

		err = storage.ApplyStatus(&order, status, time.Now())
		if err != nil {
			return err
		}
		return setOrder(ctx, tx, order)
	})
}

func (s *Store) CompleteOrder(ctx context.Context, record storage.PaymentRecord) (err error) {
	return s.inTx(ctx, func(tx pgx.Tx) (err error) {
		order, err := getOrder(ctx, tx, record.OrderId, true)
		if err != nil {
			return err
		}

		var existing *storage.PaymentRecord
		stored, err := getRecord(ctx, tx, order.Id)
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
			_, err = tx.Exec(ctx, `
				INSERT INTO payment_records
					(id, order_id, gateway_transaction_id, amount, currency, status, metadata, created_at)
				VALUES
					($1, $2, $3, $4::text::numeric, $5, $6, $7, $8)
			`,
				record.Id,
				record.OrderId,
				record.GatewayTransactionId,
				record.Amount.String(),
				record.Currency,
				string(record.Status),
				[]byte(record.Metadata),
				record.CreatedAt,
			)
			if err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation &&
					pgErr.ConstraintName == "payment_records_gateway_transaction_id_key" {
					return storage.ErrDuplicateTransaction
				}
				return fmt.Errorf("failed to insert payment record: %w", err)
			}

			err = setOrder(ctx, tx, order)
			if err != nil {
				return err
			}
		}

		_, err = tx.Exec(ctx, `DELETE FROM unreconciled_payments WHERE order_id = $1`, order.Id)
		if err != nil {
			return fmt.Errorf("failed to delete unreconciled entry: %w", err)
		}
		return nil
	})
}

func (s *Store) Order(ctx context.Context, id uuid.UUID) (order storage.Order, err error) {
	err = s.inTx(ctx, func(tx pgx.Tx) (err error) {
		order, err = getOrder(ctx, tx, id, false)
		return err
	})
	return order, err
}

func (s *Store) PaymentRecord(ctx context.Context, orderId uuid.UUID) (record storage.PaymentRecord, err error) {
	err = s.inTx(ctx, func(tx pgx.Tx) (err error) {
		record, err = getRecord(ctx, tx, orderId)
		return err
	})
	return record, err
}

func (s *Store) SaveUnreconciled(ctx context.Context, record storage.PaymentRecord) (err error) {
	_, err = s.DB.Exec(ctx, `
		INSERT INTO unreconciled_payments (order_id, record)
		VALUES ($1, $2)
		ON CONFLICT (order_id) DO UPDATE SET record = EXCLUDED.record
	`, record.OrderId, record.Bytes())
	if err != nil {
		return fmt.Errorf("failed to insert unreconciled entry: %w", err)
	}
	return nil
}

func (s *Store) Unreconciled(ctx context.Context) (records []storage.PaymentRecord, err error) {
	rows, err := s.DB.Query(ctx, `SELECT record FROM unreconciled_payments ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query unreconciled entries: %w", err)
	}
	defer rows.Close()

	records = []storage.PaymentRecord{}
	for rows.Next() {
		var contents []byte
		err = rows.Scan(&contents)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unreconciled entry: %w", err)
		}

		var record storage.PaymentRecord
		err = record.FromBytes(contents)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal unreconciled entry: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
