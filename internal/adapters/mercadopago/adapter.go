package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/paygate-io/subscription-gateway/internal/domain"
	"github.com/paygate-io/subscription-gateway/internal/domain/ports"
	pkgerrors "github.com/paygate-io/subscription-gateway/pkg/errors"
	"github.com/paygate-io/subscription-gateway/pkg/observability"
	"github.com/shopspring/decimal"
)

// Config holds Mercado Pago API credentials and account context
type Config struct {
	BaseURL         string
	ClientID        string
	ClientSecret    string
	AccountCurrency string // currency of the vendor account, derived from the site
}

// Adapter implements PreapprovalGateway against the Mercado Pago REST API
type Adapter struct {
	config     Config
	httpClient ports.HTTPClient
	// analyticsClient, when set, carries the fire-and-forget analytics
	// ping so its slower failures never hold a vendor-call connection.
	analyticsClient ports.HTTPClient
	logger          ports.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewAdapter creates a new Mercado Pago adapter with dependency injection
func NewAdapter(config Config, httpClient ports.HTTPClient, logger ports.Logger) *Adapter {
	return &Adapter{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
	}
}

// WithAnalyticsClient routes analytics pings through a dedicated client.
func (a *Adapter) WithAnalyticsClient(client ports.HTTPClient) *Adapter {
	a.analyticsClient = client
	return a
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// getAccessToken returns a cached OAuth token, refreshing it when expired.
// Tokens are refreshed one minute before their reported expiry.
func (a *Adapter) getAccessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.accessToken != "" && time.Now().Before(a.tokenExpiry) {
		return a.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", a.config.ClientID)
	form.Set("client_secret", a.config.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, "POST", a.config.BaseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.NewGatewayError("NETWORK_ERROR", "Failed to connect to payment vendor", pkgerrors.CategoryNetworkError, true)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", pkgerrors.NewGatewayError("AUTH_ERROR", "Vendor credential exchange failed", pkgerrors.CategoryInvalidRequest, false).
			WithStatusCode(resp.StatusCode).
			WithVendorMessage(string(body))
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("failed to unmarshal token response: %w", err)
	}

	a.accessToken = token.AccessToken
	a.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - time.Minute)

	return a.accessToken, nil
}

type autoRecurringPayload struct {
	Frequency         int     `json:"frequency"`
	FrequencyType     string  `json:"frequency_type"`
	TransactionAmount float64 `json:"transaction_amount"`
	CurrencyID        string  `json:"currency_id"`
	StartDate         string  `json:"start_date,omitempty"`
	EndDate           string  `json:"end_date,omitempty"`
}

type preapprovalPayload struct {
	PayerEmail        string               `json:"payer_email"`
	BackURL           string               `json:"back_url"`
	Reason            string               `json:"reason"`
	ExternalReference string               `json:"external_reference"`
	NotificationURL   string               `json:"notification_url,omitempty"`
	SponsorID         string               `json:"sponsor_id,omitempty"`
	AutoRecurring     autoRecurringPayload `json:"auto_recurring"`
}

type preapprovalResponse struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	InitPoint         string `json:"init_point"`
	SandboxInitPoint  string `json:"sandbox_init_point"`
	ExternalReference string `json:"external_reference"`
	PayerEmail        string `json:"payer_email"`
	DateCreated       string `json:"date_created"`
	AutoRecurring     struct {
		TransactionAmount float64 `json:"transaction_amount"`
		EndDate           string  `json:"end_date"`
	} `json:"auto_recurring"`
	Message string `json:"message,omitempty"`
}

// CreatePreapproval implements PreapprovalGateway.CreatePreapproval
func (a *Adapter) CreatePreapproval(ctx context.Context, p *domain.Preapproval) (*ports.PreapprovalResult, error) {
	if p.PayerEmail == "" {
		return nil, pkgerrors.NewValidationError("payer_email", "payer email is required")
	}
	if !p.AutoRecurring.TransactionAmount.IsPositive() {
		return nil, pkgerrors.NewValidationError("transaction_amount", "recurring amount must be positive")
	}

	apiReq := preapprovalPayload{
		PayerEmail:        p.PayerEmail,
		BackURL:           p.BackURL,
		Reason:            p.Reason,
		ExternalReference: p.ExternalReference,
		NotificationURL:   p.NotificationURL,
		SponsorID:         p.SponsorID,
		AutoRecurring: autoRecurringPayload{
			Frequency:         p.AutoRecurring.Frequency,
			FrequencyType:     p.AutoRecurring.FrequencyType,
			TransactionAmount: p.AutoRecurring.TransactionAmount.InexactFloat64(),
			CurrencyID:        p.AutoRecurring.CurrencyID,
			StartDate:         p.AutoRecurring.StartDate,
			EndDate:           p.AutoRecurring.EndDate,
		},
	}

	var resp preapprovalResponse
	if err := a.makeRequest(ctx, "POST", "/preapproval", "create_preapproval", apiReq, &resp); err != nil {
		return nil, err
	}

	return &ports.PreapprovalResult{
		PreapprovalID: resp.ID,
		Status:        resp.Status,
		InitPoint:     resp.InitPoint,
		Message:       resp.Message,
	}, nil
}

type paymentResponse struct {
	ID                 json.Number `json:"id"`
	Status             string      `json:"status"`
	ExternalReference  string      `json:"external_reference"`
	PaymentTypeID      string      `json:"payment_type_id"`
	TransactionAmount  float64     `json:"transaction_amount"`
	DateCreated        string      `json:"date_created"`
	TransactionDetails struct {
		TotalPaidAmount float64 `json:"total_paid_amount"`
	} `json:"transaction_details"`
	TransactionAmountRefunded float64 `json:"transaction_amount_refunded"`
	Payer                     struct {
		Email string `json:"email"`
	} `json:"payer"`
}

// GetPayment implements PreapprovalGateway.GetPayment
func (a *Adapter) GetPayment(ctx context.Context, paymentID string) (*domain.Notification, error) {
	endpoint := fmt.Sprintf("/v1/payments/%s", url.PathEscape(paymentID))

	var resp paymentResponse
	if err := a.makeRequest(ctx, "GET", endpoint, "get_payment", nil, &resp); err != nil {
		return nil, err
	}

	created, _ := time.Parse(time.RFC3339, resp.DateCreated)

	return &domain.Notification{
		Type:              domain.NotificationPayment,
		ID:                resp.ID.String(),
		Status:            domain.PaymentStatus(resp.Status),
		ExternalReference: resp.ExternalReference,
		PayerEmail:        resp.Payer.Email,
		PaymentTypeID:     resp.PaymentTypeID,
		DateCreated:       created,
		TransactionAmount: decimal.NewFromFloat(resp.TransactionAmount),
		TotalPaid:         decimal.NewFromFloat(resp.TransactionDetails.TotalPaidAmount),
		TotalRefunded:     decimal.NewFromFloat(resp.TransactionAmountRefunded),
	}, nil
}

// GetPreapproval implements PreapprovalGateway.GetPreapproval
func (a *Adapter) GetPreapproval(ctx context.Context, preapprovalID string) (*domain.Notification, error) {
	endpoint := fmt.Sprintf("/preapproval/%s", url.PathEscape(preapprovalID))

	var resp preapprovalResponse
	if err := a.makeRequest(ctx, "GET", endpoint, "get_preapproval", nil, &resp); err != nil {
		return nil, err
	}

	created, _ := time.Parse(time.RFC3339, resp.DateCreated)

	return &domain.Notification{
		Type:              domain.NotificationPreapproval,
		ID:                resp.ID,
		Status:            domain.PaymentStatus(resp.Status),
		ExternalReference: resp.ExternalReference,
		PayerEmail:        resp.PayerEmail,
		DateCreated:       created,
		RecurringAmount:   decimal.NewFromFloat(resp.AutoRecurring.TransactionAmount),
		RecurringEnd:      resp.AutoRecurring.EndDate,
	}, nil
}

type statusUpdateResponse struct {
	ID      json.Number `json:"id"`
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
}

// CancelPreapproval implements PreapprovalGateway.CancelPreapproval
func (a *Adapter) CancelPreapproval(ctx context.Context, preapprovalID string) (*ports.VendorResult, error) {
	endpoint := fmt.Sprintf("/preapproval/%s", url.PathEscape(preapprovalID))

	apiReq := map[string]string{"status": "cancelled"}

	var resp statusUpdateResponse
	if err := a.makeRequest(ctx, "PUT", endpoint, "cancel_preapproval", apiReq, &resp); err != nil {
		return nil, err
	}

	return &ports.VendorResult{
		StatusCode: http.StatusOK,
		Message:    resp.Status,
	}, nil
}

// CancelPayment implements PreapprovalGateway.CancelPayment
func (a *Adapter) CancelPayment(ctx context.Context, paymentID string) (*ports.VendorResult, error) {
	endpoint := fmt.Sprintf("/v1/payments/%s", url.PathEscape(paymentID))

	apiReq := map[string]string{"status": "cancelled"}

	var resp statusUpdateResponse
	if err := a.makeRequest(ctx, "PUT", endpoint, "cancel_payment", apiReq, &resp); err != nil {
		return nil, err
	}

	return &ports.VendorResult{
		StatusCode: http.StatusOK,
		Message:    resp.Status,
	}, nil
}

// RefundPayment implements PreapprovalGateway.RefundPayment.
// A zero amount requests a full refund.
func (a *Adapter) RefundPayment(ctx context.Context, paymentID string, amount decimal.Decimal, reason string) (*ports.VendorResult, error) {
	endpoint := fmt.Sprintf("/v1/payments/%s/refunds", url.PathEscape(paymentID))

	apiReq := map[string]interface{}{}
	if amount.IsPositive() {
		apiReq["amount"] = amount.InexactFloat64()
	}
	if reason != "" {
		apiReq["metadata"] = map[string]string{"reason": reason}
	}

	var resp statusUpdateResponse
	if err := a.makeRequest(ctx, "POST", endpoint, "refund_payment", apiReq, &resp); err != nil {
		return nil, err
	}

	return &ports.VendorResult{
		StatusCode: http.StatusOK,
		Message:    resp.Status,
	}, nil
}

type currencyConversionResponse struct {
	Ratio float64 `json:"ratio"`
}

// CurrencyRate implements PreapprovalGateway.CurrencyRate. It returns the
// conversion ratio from the given currency into the account currency.
func (a *Adapter) CurrencyRate(ctx context.Context, currency string) (decimal.Decimal, error) {
	if currency == a.config.AccountCurrency {
		return decimal.NewFromInt(1), nil
	}

	endpoint := fmt.Sprintf("/currency_conversions/search?from=%s&to=%s",
		url.QueryEscape(currency), url.QueryEscape(a.config.AccountCurrency))

	var resp currencyConversionResponse
	if err := a.makeRequest(ctx, "GET", endpoint, "currency_rate", nil, &resp); err != nil {
		return decimal.Zero, err
	}

	if resp.Ratio <= 0 {
		return decimal.Zero, pkgerrors.NewGatewayError("CONVERSION_ERROR", "Vendor returned no conversion ratio", pkgerrors.CategoryVendorRejected, false)
	}

	return decimal.NewFromFloat(resp.Ratio), nil
}

// SaveAnalytics implements PreapprovalGateway.SaveAnalytics
func (a *Adapter) SaveAnalytics(ctx context.Context, settings map[string]string) error {
	client := a.httpClient
	if a.analyticsClient != nil {
		client = a.analyticsClient
	}
	return a.makeRequestWith(ctx, client, "POST", "/modules/tracking/settings", "save_analytics", settings, &struct{}{})
}

// makeRequest makes an authenticated HTTP request to the Mercado Pago API
func (a *Adapter) makeRequest(ctx context.Context, method, endpoint, operation string, request interface{}, response interface{}) error {
	return a.makeRequestWith(ctx, a.httpClient, method, endpoint, operation, request, response)
}

func (a *Adapter) makeRequestWith(ctx context.Context, client ports.HTTPClient, method, endpoint, operation string, request interface{}, response interface{}) error {
	var payloadBytes []byte
	var err error

	if request != nil {
		payloadBytes, err = json.Marshal(request)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	} else {
		payloadBytes = []byte{}
	}

	token, err := a.getAccessToken(ctx)
	if err != nil {
		observability.RecordVendorCall(operation, "auth_error")
		return err
	}

	reqURL := a.config.BaseURL + endpoint
	httpReq, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(payloadBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	if a.logger != nil {
		a.logger.Info("making request to Mercado Pago",
			ports.String("method", method),
			ports.String("operation", operation),
		)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		observability.RecordVendorCall(operation, "network_error")
		return pkgerrors.NewGatewayError("NETWORK_ERROR", "Failed to connect to payment vendor", pkgerrors.CategoryNetworkError, true)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if httpResp.StatusCode >= 500 {
		observability.RecordVendorCall(operation, "vendor_error")
		return pkgerrors.NewGatewayError("VENDOR_ERROR", "Payment vendor error", pkgerrors.CategorySystemError, true).
			WithStatusCode(httpResp.StatusCode).
			WithVendorMessage(vendorMessage(body))
	}

	if httpResp.StatusCode >= 400 {
		observability.RecordVendorCall(operation, "rejected")
		return pkgerrors.NewGatewayError("REQUEST_ERROR", "Payment vendor rejected the request", pkgerrors.CategoryVendorRejected, false).
			WithStatusCode(httpResp.StatusCode).
			WithVendorMessage(vendorMessage(body))
	}

	observability.RecordVendorCall(operation, "success")

	if len(body) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, response); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// vendorMessage extracts the vendor's error message, falling back to the raw body
func vendorMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	if len(body) > 256 {
		body = body[:256]
	}
	return string(body)
}
