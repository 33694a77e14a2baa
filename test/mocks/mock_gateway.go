package mocks

import (
	"context"
	"sync"

	"github.com/paygate-io/subscription-gateway/internal/domain"
	"github.com/paygate-io/subscription-gateway/internal/domain/ports"
	"github.com/shopspring/decimal"
)

// MockPreapprovalGateway is a mock implementation of PreapprovalGateway for testing
type MockPreapprovalGateway struct {
	CreatePreapprovalFunc func(ctx context.Context, p *domain.Preapproval) (*ports.PreapprovalResult, error)
	GetPaymentFunc        func(ctx context.Context, paymentID string) (*domain.Notification, error)
	GetPreapprovalFunc    func(ctx context.Context, preapprovalID string) (*domain.Notification, error)
	CancelPreapprovalFunc func(ctx context.Context, preapprovalID string) (*ports.VendorResult, error)
	CancelPaymentFunc     func(ctx context.Context, paymentID string) (*ports.VendorResult, error)
	RefundPaymentFunc     func(ctx context.Context, paymentID string, amount decimal.Decimal, reason string) (*ports.VendorResult, error)
	CurrencyRateFunc      func(ctx context.Context, currency string) (decimal.Decimal, error)
	SaveAnalyticsFunc     func(ctx context.Context, settings map[string]string) error

	mu                  sync.Mutex
	CreatedPreapprovals []*domain.Preapproval
	AnalyticsCalls      []map[string]string
}

// AnalyticsCallCount reports how many analytics pings were made
func (m *MockPreapprovalGateway) AnalyticsCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.AnalyticsCalls)
}

func (m *MockPreapprovalGateway) CreatePreapproval(ctx context.Context, p *domain.Preapproval) (*ports.PreapprovalResult, error) {
	m.CreatedPreapprovals = append(m.CreatedPreapprovals, p)
	if m.CreatePreapprovalFunc != nil {
		return m.CreatePreapprovalFunc(ctx, p)
	}
	return &ports.PreapprovalResult{
		PreapprovalID: "preapproval-1",
		Status:        "pending",
		InitPoint:     "https://vendor.example/checkout/preapproval-1",
	}, nil
}

func (m *MockPreapprovalGateway) GetPayment(ctx context.Context, paymentID string) (*domain.Notification, error) {
	if m.GetPaymentFunc != nil {
		return m.GetPaymentFunc(ctx, paymentID)
	}
	return &domain.Notification{Type: domain.NotificationPayment, ID: paymentID, Status: domain.StatusApproved}, nil
}

func (m *MockPreapprovalGateway) GetPreapproval(ctx context.Context, preapprovalID string) (*domain.Notification, error) {
	if m.GetPreapprovalFunc != nil {
		return m.GetPreapprovalFunc(ctx, preapprovalID)
	}
	return &domain.Notification{Type: domain.NotificationPreapproval, ID: preapprovalID, Status: domain.StatusAuthorized}, nil
}

func (m *MockPreapprovalGateway) CancelPreapproval(ctx context.Context, preapprovalID string) (*ports.VendorResult, error) {
	if m.CancelPreapprovalFunc != nil {
		return m.CancelPreapprovalFunc(ctx, preapprovalID)
	}
	return &ports.VendorResult{StatusCode: 200, Message: "cancelled"}, nil
}

func (m *MockPreapprovalGateway) CancelPayment(ctx context.Context, paymentID string) (*ports.VendorResult, error) {
	if m.CancelPaymentFunc != nil {
		return m.CancelPaymentFunc(ctx, paymentID)
	}
	return &ports.VendorResult{StatusCode: 200, Message: "cancelled"}, nil
}

func (m *MockPreapprovalGateway) RefundPayment(ctx context.Context, paymentID string, amount decimal.Decimal, reason string) (*ports.VendorResult, error) {
	if m.RefundPaymentFunc != nil {
		return m.RefundPaymentFunc(ctx, paymentID, amount, reason)
	}
	return &ports.VendorResult{StatusCode: 200, Message: "refunded"}, nil
}

func (m *MockPreapprovalGateway) CurrencyRate(ctx context.Context, currency string) (decimal.Decimal, error) {
	if m.CurrencyRateFunc != nil {
		return m.CurrencyRateFunc(ctx, currency)
	}
	return decimal.NewFromInt(1), nil
}

func (m *MockPreapprovalGateway) SaveAnalytics(ctx context.Context, settings map[string]string) error {
	m.mu.Lock()
	m.AnalyticsCalls = append(m.AnalyticsCalls, settings)
	m.mu.Unlock()
	if m.SaveAnalyticsFunc != nil {
		return m.SaveAnalyticsFunc(ctx, settings)
	}
	return nil
}
