package mercadopago

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paygate-io/subscription-gateway/internal/domain"
	pkgerrors "github.com/paygate-io/subscription-gateway/pkg/errors"
	"github.com/paygate-io/subscription-gateway/test/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAdapterTest(t *testing.T, handler http.HandlerFunc) (*Adapter, *httptest.Server) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.FormValue("grant_type"))
		assert.Equal(t, "client-id", r.FormValue("client_id"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tokenResponse{
			AccessToken: "APP_USR-token",
			TokenType:   "bearer",
			ExpiresIn:   21600,
		})
	})
	mux.HandleFunc("/", handler)

	server := httptest.NewServer(mux)

	config := Config{
		BaseURL:         server.URL,
		ClientID:        "client-id",
		ClientSecret:    "client-secret",
		AccountCurrency: "ARS",
	}

	adapter := NewAdapter(config, &http.Client{}, mocks.NewMockLogger())

	return adapter, server
}

func TestAdapter_CreatePreapproval_Success(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/preapproval", r.URL.Path)
		assert.Equal(t, "Bearer APP_USR-token", r.Header.Get("Authorization"))

		var req preapprovalPayload
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)

		assert.Equal(t, "payer@example.com", req.PayerEmail)
		assert.Equal(t, "WC-42", req.ExternalReference)
		assert.Equal(t, 1, req.AutoRecurring.Frequency)
		assert.Equal(t, "months", req.AutoRecurring.FrequencyType)
		assert.Equal(t, 99.99, req.AutoRecurring.TransactionAmount)
		assert.Equal(t, "ARS", req.AutoRecurring.CurrencyID)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(preapprovalResponse{
			ID:        "2c9380847e9b451c017ea1bc",
			Status:    "pending",
			InitPoint: "https://www.mercadopago.com/checkout/preapproval?id=2c9380847e9b451c017ea1bc",
		})
	}

	adapter, server := setupAdapterTest(t, handler)
	defer server.Close()

	p := &domain.Preapproval{
		PayerEmail:        "payer@example.com",
		BackURL:           "https://store.example/orders/42/return",
		Reason:            "Monthly box",
		ExternalReference: "WC-42",
		AutoRecurring: domain.AutoRecurring{
			Frequency:         1,
			FrequencyType:     "months",
			TransactionAmount: decimal.NewFromFloat(99.99),
			CurrencyID:        "ARS",
		},
	}

	result, err := adapter.CreatePreapproval(context.Background(), p)

	require.NoError(t, err)
	assert.Equal(t, "2c9380847e9b451c017ea1bc", result.PreapprovalID)
	assert.Equal(t, "pending", result.Status)
	assert.Contains(t, result.InitPoint, "preapproval?id=")
}

func TestAdapter_CreatePreapproval_MissingEmail(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not call the vendor without a payer email")
	}

	adapter, server := setupAdapterTest(t, handler)
	defer server.Close()

	p := &domain.Preapproval{
		AutoRecurring: domain.AutoRecurring{
			Frequency:         1,
			FrequencyType:     "months",
			TransactionAmount: decimal.NewFromFloat(10),
			CurrencyID:        "ARS",
		},
	}

	result, err := adapter.CreatePreapproval(context.Background(), p)

	require.Error(t, err)
	assert.Nil(t, result)

	validationErr, ok := err.(*pkgerrors.ValidationError)
	require.True(t, ok)
	assert.Equal(t, "payer_email", validationErr.Field)
}

func TestAdapter_CreatePreapproval_VendorRejected(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"message": "invalid payer_email"})
	}

	adapter, server := setupAdapterTest(t, handler)
	defer server.Close()

	p := &domain.Preapproval{
		PayerEmail: "payer@example.com",
		AutoRecurring: domain.AutoRecurring{
			Frequency:         1,
			FrequencyType:     "months",
			TransactionAmount: decimal.NewFromFloat(10),
			CurrencyID:        "ARS",
		},
	}

	_, err := adapter.CreatePreapproval(context.Background(), p)

	require.Error(t, err)
	gwErr, ok := err.(*pkgerrors.GatewayError)
	require.True(t, ok)
	assert.Equal(t, pkgerrors.CategoryVendorRejected, gwErr.Category)
	assert.False(t, gwErr.IsRetriable)
	assert.Equal(t, "invalid payer_email", gwErr.VendorMessage)
}

func TestAdapter_CreatePreapproval_VendorDown(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}

	adapter, server := setupAdapterTest(t, handler)
	defer server.Close()

	p := &domain.Preapproval{
		PayerEmail: "payer@example.com",
		AutoRecurring: domain.AutoRecurring{
			Frequency:         1,
			FrequencyType:     "months",
			TransactionAmount: decimal.NewFromFloat(10),
			CurrencyID:        "ARS",
		},
	}

	_, err := adapter.CreatePreapproval(context.Background(), p)

	require.Error(t, err)
	gwErr, ok := err.(*pkgerrors.GatewayError)
	require.True(t, ok)
	assert.Equal(t, pkgerrors.CategorySystemError, gwErr.Category)
	assert.True(t, gwErr.IsRetriable)
}

func TestAdapter_GetPayment_Success(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/v1/payments/12345", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": 12345,
			"status": "approved",
			"external_reference": "WC-42",
			"payment_type_id": "credit_card",
			"transaction_amount": 99.99,
			"date_created": "2026-08-01T12:00:00Z",
			"transaction_details": {"total_paid_amount": 99.99},
			"payer": {"email": "payer@example.com"}
		}`))
	}

	adapter, server := setupAdapterTest(t, handler)
	defer server.Close()

	n, err := adapter.GetPayment(context.Background(), "12345")

	require.NoError(t, err)
	assert.Equal(t, domain.NotificationPayment, n.Type)
	assert.Equal(t, "12345", n.ID)
	assert.Equal(t, domain.StatusApproved, n.Status)
	assert.Equal(t, "WC-42", n.ExternalReference)
	assert.Equal(t, "credit_card", n.PaymentTypeID)
	assert.True(t, n.TotalPaid.Equal(decimal.NewFromFloat(99.99)))
}

func TestAdapter_CancelPreapproval(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PUT", r.Method)
		assert.Equal(t, "/preapproval/pre-1", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "cancelled", req["status"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "pre-1", "status": "cancelled"}`))
	}

	adapter, server := setupAdapterTest(t, handler)
	defer server.Close()

	result, err := adapter.CancelPreapproval(context.Background(), "pre-1")

	require.NoError(t, err)
	assert.Equal(t, "cancelled", result.Message)
}

func TestAdapter_RefundPayment_FullRefundOmitsAmount(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/v1/payments/12345/refunds", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_, hasAmount := req["amount"]
		assert.False(t, hasAmount)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 9, "status": "refunded"}`))
	}

	adapter, server := setupAdapterTest(t, handler)
	defer server.Close()

	result, err := adapter.RefundPayment(context.Background(), "12345", decimal.Zero, "")

	require.NoError(t, err)
	assert.Equal(t, "refunded", result.Message)
}

func TestAdapter_CurrencyRate_SameCurrency(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not call the vendor for an identity conversion")
	}

	adapter, server := setupAdapterTest(t, handler)
	defer server.Close()

	rate, err := adapter.CurrencyRate(context.Background(), "ARS")

	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))
}

func TestAdapter_CurrencyRate_Converts(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/currency_conversions/search", r.URL.Path)
		assert.Equal(t, "USD", r.URL.Query().Get("from"))
		assert.Equal(t, "ARS", r.URL.Query().Get("to"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ratio": 350.5}`))
	}

	adapter, server := setupAdapterTest(t, handler)
	defer server.Close()

	rate, err := adapter.CurrencyRate(context.Background(), "USD")

	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromFloat(350.5)))
}

func TestAdapter_AnalyticsUsesDedicatedClient(t *testing.T) {
	adapter, server := setupAdapterTest(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("vendor client received %s, expected the analytics client to carry it", r.URL.Path)
	})
	defer server.Close()

	analytics := mocks.NewMockHTTPClient(nil)
	adapter.WithAnalyticsClient(analytics)

	err := adapter.SaveAnalytics(context.Background(), map[string]string{"enabled": "yes"})

	require.NoError(t, err)
	require.Len(t, analytics.Calls, 1)
	assert.Equal(t, "/modules/tracking/settings", analytics.Calls[0].URL.Path)
}

func TestAdapter_TokenIsCached(t *testing.T) {
	tokenCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		json.NewEncoder(w).Encode(tokenResponse{AccessToken: "tok", ExpiresIn: 21600})
	})
	mux.HandleFunc("/v1/payments/1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 1, "status": "approved"}`))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	adapter := NewAdapter(Config{
		BaseURL:         server.URL,
		ClientID:        "id",
		ClientSecret:    "secret",
		AccountCurrency: "ARS",
	}, &http.Client{}, mocks.NewMockLogger())

	_, err := adapter.GetPayment(context.Background(), "1")
	require.NoError(t, err)
	_, err = adapter.GetPayment(context.Background(), "1")
	require.NoError(t, err)

	assert.Equal(t, 1, tokenCalls)
}
