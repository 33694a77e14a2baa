package mocks

import (
	"context"
	"sync"

	"github.com/paygate-io/subscription-gateway/internal/domain"
)

// MockSettingsRepository is an in-memory SettingsRepository for testing
type MockSettingsRepository struct {
	mu      sync.Mutex
	Stored  map[string]map[string]string
	LoadErr error
	SaveErr error
	SaveCnt int
}

func NewMockSettingsRepository() *MockSettingsRepository {
	return &MockSettingsRepository{Stored: map[string]map[string]string{}}
}

func (m *MockSettingsRepository) Load(ctx context.Context, gatewayID string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	raw, ok := m.Stored[gatewayID]
	if !ok {
		return nil, domain.ErrSettingsNotFound
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	return out, nil
}

func (m *MockSettingsRepository) Save(ctx context.Context, gatewayID string, settings map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.SaveCnt++
	copied := make(map[string]string, len(settings))
	for k, v := range settings {
		copied[k] = v
	}
	m.Stored[gatewayID] = copied
	return nil
}

// MockOrderRepository is an in-memory OrderRepository for testing
type MockOrderRepository struct {
	mu     sync.Mutex
	Orders map[string]*domain.Order
	Notes  map[string][]string
}

func NewMockOrderRepository(orders ...*domain.Order) *MockOrderRepository {
	m := &MockOrderRepository{
		Orders: map[string]*domain.Order{},
		Notes:  map[string][]string{},
	}
	for _, o := range orders {
		m.Orders[o.ID] = o
	}
	return m
}

func (m *MockOrderRepository) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.Orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

func (m *MockOrderRepository) SetMetadata(ctx context.Context, orderID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.Orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.Metadata == nil {
		o.Metadata = map[string]string{}
	}
	o.Metadata[key] = value
	return nil
}

func (m *MockOrderRepository) AppendPaymentID(ctx context.Context, orderID, paymentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.Orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	for _, id := range o.PaymentIDs {
		if id == paymentID {
			return nil
		}
	}
	o.PaymentIDs = append(o.PaymentIDs, paymentID)
	return nil
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.Orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Status = status
	return nil
}

func (m *MockOrderRepository) AddNote(ctx context.Context, orderID, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Orders[orderID]; !ok {
		return domain.ErrOrderNotFound
	}
	m.Notes[orderID] = append(m.Notes[orderID], note)
	return nil
}
