package notification

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paygate-io/subscription-gateway/internal/domain"
	"github.com/paygate-io/subscription-gateway/internal/domain/ports"
	"github.com/paygate-io/subscription-gateway/test/mocks"
)

func testSite() domain.SiteContext {
	return domain.SiteContext{
		SiteID:      domain.SiteArgentina,
		Currency:    "ARS",
		StorePrefix: "WC-",
	}
}

func testOrder() *domain.Order {
	return &domain.Order{
		ID:       "42",
		Status:   domain.OrderStatusPending,
		Metadata: map[string]string{domain.MetaUsedGateway: domain.GatewayID},
	}
}

func paymentNotification(status domain.PaymentStatus) *domain.Notification {
	return &domain.Notification{
		Type:              domain.NotificationPayment,
		ID:                "777",
		Status:            status,
		ExternalReference: "WC-42",
		PayerEmail:        "payer@example.com",
		PaymentTypeID:     "credit_card",
		DateCreated:       time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		TransactionAmount: decimal.NewFromInt(100),
		TotalPaid:         decimal.NewFromInt(100),
	}
}

func newTestService(orders ...*domain.Order) (*Service, *mocks.MockOrderRepository, *mocks.MockPreapprovalGateway) {
	repo := mocks.NewMockOrderRepository(orders...)
	gateway := &mocks.MockPreapprovalGateway{}
	svc := NewService(repo, gateway, testSite(), mocks.NewMockLogger())
	return svc, repo, gateway
}

func TestProcess_Transitions(t *testing.T) {
	for _, tc := range []struct {
		status     domain.PaymentStatus
		wantStatus domain.OrderStatus
		wantNote   string
	}{
		{domain.StatusAuthorized, domain.OrderStatusCompleted, "Payment approved."},
		{domain.StatusApproved, domain.OrderStatusCompleted, "Payment approved."},
		{domain.StatusPending, domain.OrderStatusPending, "Customer hasn't paid yet."},
		{domain.StatusInProcess, domain.OrderStatusOnHold, "Payment under review."},
		{domain.StatusRejected, domain.OrderStatusFailed, "The payment was refused. The customer can try again."},
		{domain.StatusRefunded, domain.OrderStatusRefunded, "The payment was refunded to the customer."},
		{domain.StatusCancelled, domain.OrderStatusCancelled, "The payment was cancelled."},
		{domain.StatusInMediation, domain.OrderStatusPending, "The payment is under mediation or it was charged-back."},
		{domain.StatusChargedBack, domain.OrderStatusPending, "The payment is under mediation or it was charged-back."},
	} {
		t.Run(string(tc.status), func(t *testing.T) {
			order := testOrder()
			svc, repo, _ := newTestService(order)

			err := svc.Process(context.Background(), paymentNotification(tc.status))

			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, order.Status)
			require.NotEmpty(t, repo.Notes["42"])
			assert.Equal(t, tc.wantNote, repo.Notes["42"][len(repo.Notes["42"])-1])
		})
	}
}

func TestProcess_UnknownStatusIsNoOp(t *testing.T) {
	order := testOrder()
	svc, repo, _ := newTestService(order)

	err := svc.Process(context.Background(), paymentNotification("something_new"))

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Empty(t, repo.Notes["42"])
}

func TestProcess_WritesPaymentMetadata(t *testing.T) {
	order := testOrder()
	svc, _, _ := newTestService(order)

	err := svc.Process(context.Background(), paymentNotification(domain.StatusApproved))

	require.NoError(t, err)
	assert.Equal(t, "payer@example.com", order.Metadata[domain.MetaPayerEmail])
	assert.Equal(t, "credit_card", order.Metadata[domain.MetaPaymentType])
	assert.Contains(t, order.Metadata["Mercado Pago - Payment 777"], "Amount: 100")
	assert.Equal(t, []string{"777"}, order.PaymentIDs)
}

func TestProcess_DuplicateDeliveryConverges(t *testing.T) {
	order := testOrder()
	svc, _, _ := newTestService(order)
	n := paymentNotification(domain.StatusApproved)

	require.NoError(t, svc.Process(context.Background(), n))
	require.NoError(t, svc.Process(context.Background(), n))

	assert.Equal(t, domain.OrderStatusCompleted, order.Status)
	assert.Equal(t, []string{"777"}, order.PaymentIDs)
}

func TestProcess_PreapprovalRecordsMetadata(t *testing.T) {
	order := testOrder()
	svc, _, _ := newTestService(order)

	n := &domain.Notification{
		Type:              domain.NotificationPreapproval,
		ID:                "pre-9",
		Status:            domain.StatusAuthorized,
		ExternalReference: "WC-42",
		DateCreated:       time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}

	err := svc.Process(context.Background(), n)

	require.NoError(t, err)
	record := order.Metadata[domain.MetaPreapproval]
	assert.Contains(t, record, "authorized")
	assert.Equal(t, "pre-9", domain.PreapprovalIDFromRecord(record))
	assert.Equal(t, domain.OrderStatusCompleted, order.Status)
}

func TestProcess_UnknownOrder(t *testing.T) {
	svc, _, _ := newTestService()

	err := svc.Process(context.Background(), paymentNotification(domain.StatusApproved))

	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestProcess_EmptyNotification(t *testing.T) {
	svc, _, _ := newTestService(testOrder())

	assert.ErrorIs(t, svc.Process(context.Background(), nil), domain.ErrEmptyNotification)
	assert.ErrorIs(t, svc.Process(context.Background(), &domain.Notification{}), domain.ErrEmptyNotification)
}

func TestFetch_Topics(t *testing.T) {
	svc, _, gateway := newTestService(testOrder())
	gateway.GetPaymentFunc = func(ctx context.Context, id string) (*domain.Notification, error) {
		return &domain.Notification{Type: domain.NotificationPayment, ID: id, Status: domain.StatusApproved}, nil
	}

	n, err := svc.Fetch(context.Background(), "payment", "777")
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationPayment, n.Type)

	n, err = svc.Fetch(context.Background(), "preapproval", "pre-9")
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationPreapproval, n.Type)

	_, err = svc.Fetch(context.Background(), "merchant_order", "1")
	assert.ErrorIs(t, err, domain.ErrUnknownTopic)
}

func TestLegacyAction(t *testing.T) {
	svc, _, gateway := newTestService(testOrder())

	refunded := decimal.Decimal{}
	gateway.RefundPaymentFunc = func(ctx context.Context, paymentID string, amount decimal.Decimal, reason string) (*ports.VendorResult, error) {
		refunded = amount
		return &ports.VendorResult{StatusCode: 200, Message: "refunded"}, nil
	}

	result, err := svc.LegacyAction(context.Background(), "refund", "777", decimal.NewFromInt(30))
	require.NoError(t, err)
	assert.Equal(t, "refunded", result.Message)
	assert.True(t, refunded.Equal(decimal.NewFromInt(30)))

	result, err = svc.LegacyAction(context.Background(), "cancel", "777", decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", result.Message)

	_, err = svc.LegacyAction(context.Background(), "explode", "777", decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrUnknownTopic)
}
