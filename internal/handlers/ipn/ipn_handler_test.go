package ipn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/paygate-io/subscription-gateway/internal/domain"
	"github.com/paygate-io/subscription-gateway/internal/domain/ports"
	notificationsvc "github.com/paygate-io/subscription-gateway/internal/services/notification"
	"github.com/paygate-io/subscription-gateway/test/mocks"
)

type fixture struct {
	handler *Handler
	orders  *mocks.MockOrderRepository
	gateway *mocks.MockPreapprovalGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	orders := mocks.NewMockOrderRepository(&domain.Order{
		ID:       "42",
		Status:   domain.OrderStatusPending,
		Metadata: map[string]string{domain.MetaUsedGateway: domain.GatewayID},
	})
	gateway := &mocks.MockPreapprovalGateway{}
	site := domain.SiteContext{
		SiteID:      domain.SiteArgentina,
		Currency:    "ARS",
		StorePrefix: "WC-",
	}
	svc := notificationsvc.NewService(orders, gateway, site, mocks.NewMockLogger())

	return &fixture{
		handler: NewHandler(svc, zap.NewNop()),
		orders:  orders,
		gateway: gateway,
	}
}

func (f *fixture) get(t *testing.T, query url.Values) (*httptest.ResponseRecorder, map[string]string) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/ipn?"+query.Encode(), nil)
	rec := httptest.NewRecorder()
	f.handler.Handle(rec, req)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return rec, body
}

func TestHandle_PaymentTopicUpdatesOrder(t *testing.T) {
	f := newFixture(t)
	f.gateway.GetPaymentFunc = func(ctx context.Context, paymentID string) (*domain.Notification, error) {
		return &domain.Notification{
			Type:              domain.NotificationPayment,
			ID:                paymentID,
			Status:            domain.StatusApproved,
			ExternalReference: "WC-42",
		}, nil
	}

	rec, body := f.get(t, url.Values{"topic": {"payment"}, "id": {"777"}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, domain.OrderStatusCompleted, f.orders.Orders["42"].Status)
	assert.Contains(t, f.orders.Orders["42"].PaymentIDs, "777")
}

func TestHandle_PreapprovalTopic(t *testing.T) {
	f := newFixture(t)
	f.gateway.GetPreapprovalFunc = func(ctx context.Context, preapprovalID string) (*domain.Notification, error) {
		return &domain.Notification{
			Type:              domain.NotificationPreapproval,
			ID:                preapprovalID,
			Status:            domain.StatusAuthorized,
			ExternalReference: "WC-42",
		}, nil
	}

	rec, _ := f.get(t, url.Values{"topic": {"preapproval"}, "id": {"pre-9"}})

	assert.Equal(t, http.StatusOK, rec.Code)
	record := f.orders.Orders["42"].Metadata[domain.MetaPreapproval]
	assert.Equal(t, "pre-9", domain.PreapprovalIDFromRecord(record))
}

func TestHandle_FetchFailureAsksForRetry(t *testing.T) {
	f := newFixture(t)
	f.gateway.GetPaymentFunc = func(ctx context.Context, paymentID string) (*domain.Notification, error) {
		return nil, assert.AnError
	}

	rec, body := f.get(t, url.Values{"topic": {"payment"}, "id": {"777"}})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, domain.OrderStatusPending, f.orders.Orders["42"].Status)
}

func TestHandle_UnknownTopic(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.get(t, url.Values{"topic": {"merchant_order"}, "id": {"1"}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandle_MismatchedOrderFails(t *testing.T) {
	f := newFixture(t)
	f.gateway.GetPaymentFunc = func(ctx context.Context, paymentID string) (*domain.Notification, error) {
		return &domain.Notification{
			Type:              domain.NotificationPayment,
			ID:                paymentID,
			Status:            domain.StatusApproved,
			ExternalReference: "WC-9999",
		}, nil
	}

	rec, _ := f.get(t, url.Values{"topic": {"payment"}, "id": {"777"}})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandle_LegacyRefund(t *testing.T) {
	f := newFixture(t)
	var gotAmount decimal.Decimal
	f.gateway.RefundPaymentFunc = func(ctx context.Context, paymentID string, amount decimal.Decimal, reason string) (*ports.VendorResult, error) {
		gotAmount = amount
		return &ports.VendorResult{StatusCode: 200, Message: "refunded"}, nil
	}

	rec, body := f.get(t, url.Values{
		"action_mp_payment_id":     {"777"},
		"action_mp_payment_amount": {"10.50"},
		"action_mp_payment_action": {"refund"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "refunded", body["message"])
	assert.True(t, gotAmount.Equal(decimal.RequireFromString("10.50")))
}

func TestHandle_LegacyCancel(t *testing.T) {
	f := newFixture(t)
	var gotID string
	f.gateway.CancelPaymentFunc = func(ctx context.Context, paymentID string) (*ports.VendorResult, error) {
		gotID = paymentID
		return &ports.VendorResult{StatusCode: 200, Message: "cancelled"}, nil
	}

	rec, body := f.get(t, url.Values{
		"action_mp_payment_id":     {"777"},
		"action_mp_payment_action": {"cancel"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", body["message"])
	assert.Equal(t, "777", gotID)
}

func TestHandle_LegacyVendorFailure(t *testing.T) {
	f := newFixture(t)
	f.gateway.CancelPaymentFunc = func(ctx context.Context, paymentID string) (*ports.VendorResult, error) {
		return nil, assert.AnError
	}

	rec, body := f.get(t, url.Values{
		"action_mp_payment_id":     {"777"},
		"action_mp_payment_action": {"cancel"},
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", body["status"])
}

func TestHandle_LegacyUnknownAction(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.get(t, url.Values{
		"action_mp_payment_id":     {"777"},
		"action_mp_payment_action": {"capture"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandle_DataIDAckOnly(t *testing.T) {
	f := newFixture(t)

	rec, body := f.get(t, url.Values{"data_id": {"777"}, "type": {"payment"}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acknowledged", body["message"])
	assert.Equal(t, domain.OrderStatusPending, f.orders.Orders["42"].Status)
}

func TestHandle_UnrecognizedShape(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/ipn",
		strings.NewReader("foo=bar"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.handler.Handle(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
