package settings

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paygate-io/subscription-gateway/internal/domain"
	"github.com/paygate-io/subscription-gateway/internal/domain/ports"
)

// Service manages the gateway's admin settings
type Service struct {
	settings       ports.SettingsRepository
	gateway        ports.PreapprovalGateway
	site           domain.SiteContext
	hasCredentials bool
	logger         ports.Logger
}

// NewService creates a new settings service
func NewService(
	settingsRepo ports.SettingsRepository,
	gateway ports.PreapprovalGateway,
	site domain.SiteContext,
	hasCredentials bool,
	logger ports.Logger,
) *Service {
	return &Service{
		settings:       settingsRepo,
		gateway:        gateway,
		site:           site,
		hasCredentials: hasCredentials,
		logger:         logger,
	}
}

// FormFields returns the admin form schema. When credentials are missing
// or the site is not supported the schema collapses to a single title
// field explaining why, and the gateway stays unconfigurable.
func (s *Service) FormFields(ctx context.Context) *FormSchema {
	if !s.hasCredentials || s.site.SiteID == "" {
		return &FormSchema{Fields: []FormField{{
			Key:         "no_credentials_title",
			Type:        FieldTitle,
			Label:       "Mercado Pago Subscriptions",
			Description: "Vendor credentials are not configured. Set the client id and secret before enabling this gateway.",
		}}}
	}

	if !domain.SupportedSite(s.site.SiteID) {
		return &FormSchema{Fields: []FormField{{
			Key:         "no_country_title",
			Type:        FieldTitle,
			Label:       "Mercado Pago Subscriptions",
			Description: fmt.Sprintf("Subscriptions are not available for site %s.", s.site.SiteID),
		}}}
	}

	stored, err := s.settings.Load(ctx, domain.GatewayID)
	if err != nil && !errors.Is(err, domain.ErrSettingsNotFound) {
		s.logger.Warn("failed to load stored settings for form", ports.Err(err))
	}

	return &FormSchema{Fields: []FormField{
		{
			Key:   "enabled",
			Type:  FieldCheckbox,
			Label:   "Enable/Disable",
			Default: "no",
		},
		{
			Key:   "checkout_options_title",
			Type:  FieldTitle,
			Label: "Checkout options",
		},
		{
			Key:     "title",
			Type:    FieldText,
			Label:   "Title",
			Default: domain.DefaultTitle,
		},
		{
			Key:         "description",
			Type:        FieldTextarea,
			Label:       "Description",
			Description: "Shown to the shopper on the payment step.",
			Default:     domain.DefaultDescription,
		},
		{
			Key:     "method",
			Type:    FieldSelect,
			Label:   "Integration method",
			Default: string(domain.DefaultMethod),
			Options: []Option{
				{Value: string(domain.MethodIframe), Label: "Iframe"},
				{Value: string(domain.MethodModal), Label: "Modal window"},
				{Value: string(domain.MethodRedirect), Label: "Redirect"},
			},
		},
		{
			Key:         "iframe_width",
			Type:        FieldNumber,
			Label:       "Iframe width",
			Default:     domain.DefaultIframeWidth,
			Description: "Only used with the iframe integration method.",
		},
		{
			Key:         "iframe_height",
			Type:        FieldNumber,
			Label:       "Iframe height",
			Default:     domain.DefaultIframeHeight,
			Description: "Only used with the iframe integration method.",
		},
		{
			Key:   "checkout_navigation_title",
			Type:  FieldTitle,
			Label: "Checkout navigation",
		},
		{
			Key:         "ipn_url",
			Type:        FieldTitle,
			Label:       "Payment notifications",
			Description: fmt.Sprintf("The vendor will notify %s/ipn about payment updates.", strings.TrimRight(s.site.PublicBaseURL, "/")),
		},
		urlField("success_url", "Success URL", stored),
		urlField("failure_url", "Failure URL", stored),
		urlField("pending_url", "Pending URL", stored),
		{
			Key:   "payment_title",
			Type:  FieldTitle,
			Label: "Payment options",
		},
		{
			Key:         "gateway_discount",
			Type:        FieldNumber,
			Label:       "Gateway discount (%)",
			Default:     domain.DefaultDiscount,
			Description: "Percentage discount applied when paying with this gateway. 0 to 99.",
		},
	}}
}

// urlField builds a back-URL field, warning when the stored value is not
// a valid absolute URL.
func urlField(key, label string, stored map[string]string) FormField {
	f := FormField{
		Key:   key,
		Type:  FieldText,
		Label: label,
	}
	if v := stored[key]; v != "" {
		if u, err := url.Parse(v); err != nil || !u.IsAbs() {
			f.Description = fmt.Sprintf("The stored value %q is not a valid URL.", v)
		}
	}
	return f
}

// persistedKeys is the set of form keys that are persisted. Title-type
// fields are display-only and never stored.
var persistedKeys = map[string]bool{
	"enabled":          true,
	"title":            true,
	"description":      true,
	"method":           true,
	"iframe_width":     true,
	"iframe_height":    true,
	"success_url":      true,
	"failure_url":      true,
	"pending_url":      true,
	"gateway_discount": true,
}

// SaveSettings sanitizes and persists the submitted form values, then
// reports the module configuration to the vendor's analytics endpoint.
// The analytics ping is best effort and never fails the save.
func (s *Service) SaveSettings(ctx context.Context, raw map[string]string) (domain.GatewaySettings, error) {
	sanitized := make(map[string]string, len(raw))
	for k, v := range raw {
		if persistedKeys[k] {
			sanitized[k] = strings.TrimSpace(v)
		}
	}

	if sanitized["enabled"] != "yes" {
		sanitized["enabled"] = "no"
	}

	// Malformed or empty numeric values fall back to their fixed
	// defaults rather than erroring at the admin.
	if _, err := strconv.Atoi(sanitized["iframe_width"]); err != nil {
		sanitized["iframe_width"] = domain.FallbackIframeWidth
	}
	if _, err := strconv.Atoi(sanitized["iframe_height"]); err != nil {
		sanitized["iframe_height"] = domain.DefaultIframeHeight
	}
	if parsed, err := decimal.NewFromString(sanitized["gateway_discount"]); err != nil ||
		parsed.IsNegative() || parsed.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		sanitized["gateway_discount"] = domain.DefaultDiscount
	}

	if err := s.settings.Save(ctx, domain.GatewayID, sanitized); err != nil {
		s.logger.Error("failed to save gateway settings", ports.Err(err))
		return domain.GatewaySettings{}, err
	}

	parsed := domain.ParseSettings(sanitized)

	go func() {
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.gateway.SaveAnalytics(pingCtx, sanitized); err != nil {
			s.logger.Warn("analytics ping failed", ports.Err(err))
		}
	}()

	s.logger.Info("gateway settings saved",
		ports.String("gateway_id", domain.GatewayID),
		ports.Bool("enabled", parsed.Enabled),
	)

	return parsed, nil
}

// LoadSettings returns the stored settings, or the defaults when no
// record has been saved yet.
func (s *Service) LoadSettings(ctx context.Context) (domain.GatewaySettings, error) {
	raw, err := s.settings.Load(ctx, domain.GatewayID)
	if errors.Is(err, domain.ErrSettingsNotFound) {
		return domain.ParseSettings(nil), nil
	}
	if err != nil {
		return domain.GatewaySettings{}, err
	}
	return domain.ParseSettings(raw), nil
}

// PaymentMethodTitle is the title shown on the payment step. When a
// discount is configured, the discounted amount for the given cart
// subtotal is appended.
func (s *Service) PaymentMethodTitle(settings domain.GatewaySettings, cartSubtotal decimal.Decimal) string {
	if !settings.GatewayDiscount.IsPositive() {
		return settings.Title
	}
	discount := cartSubtotal.Mul(settings.GatewayDiscount).Div(decimal.NewFromInt(100))
	return fmt.Sprintf("%s (Discount Of %s %s)", settings.Title,
		domain.RoundAmount(discount, s.site.Currency).String(), s.site.Currency)
}
