package settings

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paygate-io/subscription-gateway/internal/domain"
	"github.com/paygate-io/subscription-gateway/test/mocks"
)

func newTestService(site domain.SiteContext, hasCredentials bool) (*Service, *mocks.MockSettingsRepository, *mocks.MockPreapprovalGateway) {
	repo := mocks.NewMockSettingsRepository()
	gateway := &mocks.MockPreapprovalGateway{}
	svc := NewService(repo, gateway, site, hasCredentials, mocks.NewMockLogger())
	return svc, repo, gateway
}

func testSite() domain.SiteContext {
	return domain.SiteContext{
		SiteID:        domain.SiteArgentina,
		Currency:      "ARS",
		PublicBaseURL: "https://gateway.example",
	}
}

func fieldKeys(schema *FormSchema) []string {
	keys := make([]string, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		keys = append(keys, f.Key)
	}
	return keys
}

func TestFormFields_FullForm(t *testing.T) {
	svc, _, _ := newTestService(testSite(), true)

	schema := svc.FormFields(context.Background())

	keys := fieldKeys(schema)
	assert.Len(t, keys, 14)
	assert.Contains(t, keys, "enabled")
	assert.Contains(t, keys, "method")
	assert.Contains(t, keys, "ipn_url")
	assert.Contains(t, keys, "gateway_discount")
}

func TestFormFields_MissingCredentials(t *testing.T) {
	svc, _, _ := newTestService(testSite(), false)

	schema := svc.FormFields(context.Background())

	require.Len(t, schema.Fields, 1)
	assert.Equal(t, FieldTitle, schema.Fields[0].Type)
	assert.Contains(t, schema.Fields[0].Description, "credentials")
}

func TestFormFields_UnsupportedSite(t *testing.T) {
	site := testSite()
	site.SiteID = "MLC"
	svc, _, _ := newTestService(site, true)

	schema := svc.FormFields(context.Background())

	require.Len(t, schema.Fields, 1)
	assert.Equal(t, FieldTitle, schema.Fields[0].Type)
	assert.Contains(t, schema.Fields[0].Description, "MLC")
}

func TestFormFields_WarnsOnInvalidStoredURL(t *testing.T) {
	svc, repo, _ := newTestService(testSite(), true)
	repo.Stored[domain.GatewayID] = map[string]string{"success_url": "not a url"}

	schema := svc.FormFields(context.Background())

	var successField *FormField
	for i := range schema.Fields {
		if schema.Fields[i].Key == "success_url" {
			successField = &schema.Fields[i]
		}
	}
	require.NotNil(t, successField)
	assert.Contains(t, successField.Description, "not a valid URL")
}

func TestSaveSettings_SanitizesDimensions(t *testing.T) {
	svc, repo, _ := newTestService(testSite(), true)

	parsed, err := svc.SaveSettings(context.Background(), map[string]string{
		"enabled":       "yes",
		"iframe_width":  "wide",
		"iframe_height": "tall",
		"unknown_key":   "dropped",
	})

	require.NoError(t, err)
	assert.True(t, parsed.Enabled)
	assert.Equal(t, 480, parsed.IframeWidth)
	assert.Equal(t, 800, parsed.IframeHeight)

	stored := repo.Stored[domain.GatewayID]
	assert.Equal(t, "480", stored["iframe_width"])
	assert.Equal(t, "800", stored["iframe_height"])
	_, hasUnknown := stored["unknown_key"]
	assert.False(t, hasUnknown)
}

func TestSaveSettings_EmptyNumericValuesResetToDefaults(t *testing.T) {
	svc, repo, _ := newTestService(testSite(), true)

	_, err := svc.SaveSettings(context.Background(), map[string]string{
		"enabled":          "yes",
		"iframe_width":     "",
		"iframe_height":    "",
		"gateway_discount": "",
	})

	require.NoError(t, err)

	stored := repo.Stored[domain.GatewayID]
	assert.Equal(t, "480", stored["iframe_width"])
	assert.Equal(t, "800", stored["iframe_height"])
	assert.Equal(t, "0", stored["gateway_discount"])
}

func TestSaveSettings_MissingNumericKeysStoredAsDefaults(t *testing.T) {
	svc, repo, _ := newTestService(testSite(), true)

	_, err := svc.SaveSettings(context.Background(), map[string]string{"enabled": "yes"})

	require.NoError(t, err)

	stored := repo.Stored[domain.GatewayID]
	assert.Equal(t, "480", stored["iframe_width"])
	assert.Equal(t, "800", stored["iframe_height"])
	assert.Equal(t, "0", stored["gateway_discount"])
}

func TestSaveSettings_DiscountClamp(t *testing.T) {
	svc, repo, _ := newTestService(testSite(), true)

	for _, tc := range []struct {
		name       string
		discount   string
		wantStored string
		want       decimal.Decimal
	}{
		{"valid", "5", "5", decimal.NewFromInt(5)},
		{"negative", "-3", "0", decimal.Zero},
		{"hundred", "100", "0", decimal.Zero},
		{"over", "150", "0", decimal.Zero},
		{"garbage", "lots", "0", decimal.Zero},
		{"empty", "", "0", decimal.Zero},
	} {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := svc.SaveSettings(context.Background(), map[string]string{
				"enabled":          "yes",
				"gateway_discount": tc.discount,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.wantStored, repo.Stored[domain.GatewayID]["gateway_discount"])
			assert.True(t, parsed.GatewayDiscount.Equal(tc.want),
				"got %s want %s", parsed.GatewayDiscount, tc.want)
		})
	}
}

func TestSaveSettings_AnalyticsPing(t *testing.T) {
	svc, _, gateway := newTestService(testSite(), true)

	_, err := svc.SaveSettings(context.Background(), map[string]string{"enabled": "yes"})
	require.NoError(t, err)

	// The ping runs on its own goroutine.
	assert.Eventually(t, func() bool {
		return gateway.AnalyticsCallCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestLoadSettings_DefaultsWhenUnsaved(t *testing.T) {
	svc, _, _ := newTestService(testSite(), true)

	parsed, err := svc.LoadSettings(context.Background())

	require.NoError(t, err)
	assert.False(t, parsed.Enabled)
	assert.Equal(t, domain.DefaultTitle, parsed.Title)
	assert.Equal(t, domain.MethodIframe, parsed.Method)
}

func TestPaymentMethodTitle(t *testing.T) {
	svc, _, _ := newTestService(testSite(), true)

	plain := domain.GatewaySettings{Title: "Mercado Pago"}
	assert.Equal(t, "Mercado Pago", svc.PaymentMethodTitle(plain, decimal.NewFromInt(200)))

	discounted := domain.GatewaySettings{Title: "Mercado Pago", GatewayDiscount: decimal.NewFromInt(5)}
	got := svc.PaymentMethodTitle(discounted, decimal.NewFromInt(200))
	assert.Equal(t, "Mercado Pago (Discount Of 10 ARS)", got)
}
