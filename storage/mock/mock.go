package mock

import (
	"context"
	"sync"
	"time"

	"github.com/RogueTeam/cardpay/storage"
	"github.com/google/uuid"
)

// Faults makes the matching operation fail with the configured error without touching the state
type Faults struct {
	CreateOrder       error
	UpdateOrderStatus error
	CompleteOrder     error
	SaveUnreconciled  error
}

// Mock implements storage.Storage in memory for testing purposes.
type Mock struct {
	mu           sync.Mutex
	faults       Faults
	orders       map[uuid.UUID]storage.Order
	records      map[uuid.UUID]storage.PaymentRecord // order id -> record
	gateway      map[string]uuid.UUID                // gateway transaction -> order id
	unreconciled map[uuid.UUID]storage.PaymentRecord
}

var _ storage.Storage = (*Mock)(nil)

func New() *Mock {
	return &Mock{
		orders:       make(map[uuid.UUID]storage.Order),
		records:      make(map[uuid.UUID]storage.PaymentRecord),
		gateway:      make(map[string]uuid.UUID),
		unreconciled: make(map[uuid.UUID]storage.PaymentRecord),
	}
}

// Inject replaces the active faults. Pass the zero value to clear them
func (m *Mock) Inject(faults Faults) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.faults = faults
}

// Orders returns a snapshot of every stored order
func (m *Mock) Orders() (orders []storage.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()

	orders = make([]storage.Order, 0, len(m.orders))
	for _, order := range m.orders {
		orders = append(orders, order)
	}
	return orders
}

// Records returns a snapshot of every stored payment record
func (m *Mock) Records() (records []storage.PaymentRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records = make([]storage.PaymentRecord, 0, len(m.records))
	for _, record := range m.records {
		records = append(records, record)
	}
	return records
}

func (m *Mock) CreateOrder(ctx context.Context, order storage.Order) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.faults.CreateOrder != nil {
		return m.faults.CreateOrder
	}
	if order.Status != storage.OrderStatusPending {
		return storage.ErrInvalidTransition
	}
	if _, found := m.orders[order.Id]; found {
		return storage.ErrOrderExists
	}

	m.orders[order.Id] = order
	return nil
}

func (m *Mock) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status storage.OrderStatus) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.faults.UpdateOrderStatus != nil {
		return m.faults.UpdateOrderStatus
	}

	order, found := m.orders[id]
	if !found {
		return storage.ErrOrderNotFound
	}

	err = storage.ApplyStatus(&order, status, time.Now())
	if err != nil {
		return err
	}

	m.orders[id] = order
	return nil
}

func (m *Mock) CompleteOrder(ctx context.Context, record storage.PaymentRecord) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.faults.CompleteOrder != nil {
		return m.faults.CompleteOrder
	}

	order, found := m.orders[record.OrderId]
	if !found {
		return storage.ErrOrderNotFound
	}

	var existing *storage.PaymentRecord
	if stored, found := m.records[order.Id]; found {
		existing = &stored
	}

	write, err := storage.ApplyCompletion(&order, existing, record, time.Now())
	if err != nil {
		return err
	}

	if write {
		if _, found := m.gateway[record.GatewayTransactionId]; found {
			return storage.ErrDuplicateTransaction
		}

		m.records[order.Id] = record
		m.gateway[record.GatewayTransactionId] = order.Id
		m.orders[order.Id] = order
	}
	delete(m.unreconciled, order.Id)
	return nil
}

func (m *Mock) Order(ctx context.Context, id uuid.UUID) (order storage.Order, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, found := m.orders[id]
	if !found {
		return order, storage.ErrOrderNotFound
	}
	return order, nil
}

func (m *Mock) PaymentRecord(ctx context.Context, orderId uuid.UUID) (record storage.PaymentRecord, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, found := m.records[orderId]
	if !found {
		return record, storage.ErrRecordNotFound
	}
	return record, nil
}

func (m *Mock) SaveUnreconciled(ctx context.Context, record storage.PaymentRecord) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.faults.SaveUnreconciled != nil {
		return m.faults.SaveUnreconciled
	}

	m.unreconciled[record.OrderId] = record
	return nil
}

func (m *Mock) Unreconciled(ctx context.Context) (records []storage.PaymentRecord, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records = make([]storage.PaymentRecord, 0, len(m.unreconciled))
	for _, record := range m.unreconciled {
		records = append(records, record)
	}
	return records, nil
}

func (m *Mock) Close() (err error) { return nil }
