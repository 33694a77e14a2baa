package domain

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// GatewayID is the key the settings record is persisted under.
const GatewayID = "mp-subscription"

// IntegrationMethod selects how the vendor checkout is presented to the shopper.
type IntegrationMethod string

const (
	MethodIframe   IntegrationMethod = "iframe"
	MethodModal    IntegrationMethod = "modal"
	MethodRedirect IntegrationMethod = "redirect"
)

// Supported site codes for the subscription product.
const (
	SiteArgentina = "MLA"
	SiteBrazil    = "MLB"
	SiteMexico    = "MLM"
)

// SupportedSite reports whether the subscription product is offered for the site code.
func SupportedSite(siteID string) bool {
	return siteID == SiteArgentina || siteID == SiteBrazil || siteID == SiteMexico
}

// Settings field defaults. The form schema offers 640 as the iframe width
// default, but a non-numeric submitted value falls back to 480. Both values
// come from the admin form contract.
const (
	DefaultTitle        = "Mercado Pago"
	DefaultDescription  = "Pay with Mercado Pago"
	DefaultMethod       = MethodIframe
	DefaultIframeWidth  = "640"
	FallbackIframeWidth = "480"
	DefaultIframeHeight = "800"
	DefaultDiscount     = "0"
)

// GatewaySettings is the immutable per-request view of the stored settings
// record. It is rebuilt from storage on every request; nothing mutates it.
type GatewaySettings struct {
	Enabled         bool
	Title           string
	Description     string
	Method          IntegrationMethod
	IframeWidth     int
	IframeHeight    int
	SuccessURL      string
	FailureURL      string
	PendingURL      string
	GatewayDiscount decimal.Decimal
}

// ParseSettings builds a GatewaySettings from the raw stored mapping,
// substituting defaults for missing or malformed values.
func ParseSettings(raw map[string]string) GatewaySettings {
	s := GatewaySettings{
		Enabled:         raw["enabled"] == "yes",
		Title:           valueOrDefault(raw, "title", DefaultTitle),
		Description:     valueOrDefault(raw, "description", DefaultDescription),
		SuccessURL:      raw["success_url"],
		FailureURL:      raw["failure_url"],
		PendingURL:      raw["pending_url"],
		IframeWidth:     intOrDefault(raw, "iframe_width", 480),
		IframeHeight:    intOrDefault(raw, "iframe_height", 800),
		GatewayDiscount: decimal.Zero,
	}

	switch IntegrationMethod(raw["method"]) {
	case MethodModal:
		s.Method = MethodModal
	case MethodRedirect:
		s.Method = MethodRedirect
	default:
		s.Method = MethodIframe
	}

	if d, err := decimal.NewFromString(raw["gateway_discount"]); err == nil {
		// Out-of-range discounts are treated as no discount.
		if d.IsNegative() || d.GreaterThanOrEqual(decimal.NewFromInt(100)) {
			d = decimal.Zero
		}
		s.GatewayDiscount = d
	}

	return s
}

func valueOrDefault(raw map[string]string, key, def string) string {
	if v, ok := raw[key]; ok && v != "" {
		return v
	}
	return def
}

func intOrDefault(raw map[string]string, key string, def int) int {
	v, ok := raw[key]
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
