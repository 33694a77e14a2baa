package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/paygate-io/subscription-gateway/internal/domain"
	"github.com/paygate-io/subscription-gateway/internal/domain/ports"
)

// Service drives the subscription checkout flow: availability, preapproval
// construction, and the vendor call that produces the checkout URL.
type Service struct {
	orders         ports.OrderRepository
	settings       ports.SettingsRepository
	gateway        ports.PreapprovalGateway
	site           domain.SiteContext
	hasCredentials bool
	logger         ports.Logger
}

// NewService creates a new checkout service
func NewService(
	orders ports.OrderRepository,
	settingsRepo ports.SettingsRepository,
	gateway ports.PreapprovalGateway,
	site domain.SiteContext,
	hasCredentials bool,
	logger ports.Logger,
) *Service {
	return &Service{
		orders:         orders,
		settings:       settingsRepo,
		gateway:        gateway,
		site:           site,
		hasCredentials: hasCredentials,
		logger:         logger,
	}
}

// ProcessResult is the checkout entry point outcome handed back to the host
type ProcessResult struct {
	Result   string `json:"result"`
	Redirect string `json:"redirect,omitempty"`
}

// IsAvailable reports whether this gateway can be offered for the given
// cart. An empty cart defers the recurring-item check to later steps.
func (s *Service) IsAvailable(ctx context.Context, items []domain.LineItem) bool {
	if s.orders == nil || s.settings == nil || s.gateway == nil {
		return false
	}

	if len(items) > 0 && !domain.AnyRecurring(items) {
		return false
	}

	if !domain.SupportedSite(s.site.SiteID) {
		return false
	}

	if !s.hasCredentials {
		return false
	}

	settings, err := s.loadSettings(ctx)
	if err != nil {
		s.logger.Error("availability check could not load settings", ports.Err(err))
		return false
	}

	return settings.Enabled
}

// BuildPreapproval assembles the vendor preapproval for an order. Exactly
// one preapproval is built per order; when several line items carry
// recurrence metadata the last one wins, which is logged as suspect.
// Returns ErrNoRecurringItem when nothing on the order recurs.
func (s *Service) BuildPreapproval(ctx context.Context, order *domain.Order) (*domain.Preapproval, error) {
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return nil, err
	}

	ratio := s.conversionRatio(ctx, order.Currency)
	currencyID := s.site.Currency
	if s.site.CurrencyConversion {
		currencyID = s.site.AccountCurrency()
	}

	var preapproval *domain.Preapproval
	qualifying := 0

	for _, item := range order.Items {
		if item.Quantity <= 0 || !item.Recurring() {
			continue
		}
		qualifying++

		unit := item.LineTotal.Add(item.LineTax)
		discount := unit.Mul(settings.GatewayDiscount).Div(decimal.NewFromInt(100))
		amount := unit.Sub(discount).
			Add(order.ShippingTotal).
			Add(order.ShippingTax).
			Mul(ratio)
		amount = domain.RoundAmount(amount, currencyID)

		rec := item.Recurrence
		auto := domain.AutoRecurring{
			Frequency:         rec.Frequency,
			FrequencyType:     rec.FrequencyType,
			TransactionAmount: amount,
			CurrencyID:        currencyID,
		}
		if rec.StartDate != "" {
			auto.StartDate = rec.StartDate + domain.RecurrenceTimeSuffix
		}
		if rec.EndDate != "" {
			auto.EndDate = rec.EndDate + domain.RecurrenceTimeSuffix
		}

		preapproval = &domain.Preapproval{
			PayerEmail:        order.BillingEmail,
			BackURL:           s.backURL(settings, order),
			Reason:            item.Name,
			ExternalReference: s.site.StorePrefix + order.ID,
			AutoRecurring:     auto,
		}

		if !strings.Contains(s.site.PublicBaseURL, "localhost") {
			preapproval.NotificationURL = strings.TrimRight(s.site.PublicBaseURL, "/") + "/ipn"
		}
		if !s.site.IsTestUser {
			preapproval.SponsorID = s.site.SponsorID
		}
	}

	if preapproval == nil {
		return nil, domain.ErrNoRecurringItem
	}

	if qualifying > 1 {
		s.logger.Warn("order has multiple recurring items, only the last is subscribed",
			ports.String("order_id", order.ID),
			ports.Int("recurring_items", qualifying),
		)
	}

	if s.site.Debug {
		s.logger.Debug("built preapproval",
			ports.String("order_id", order.ID),
			ports.String("external_reference", preapproval.ExternalReference),
			ports.String("amount", preapproval.AutoRecurring.TransactionAmount.String()),
			ports.String("currency", preapproval.AutoRecurring.CurrencyID),
		)
	}

	return preapproval, nil
}

// conversionRatio returns the currency ratio to apply, defaulting to 1
// when conversion is disabled, the lookup fails, or the vendor reports a
// non-positive ratio.
func (s *Service) conversionRatio(ctx context.Context, currency string) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if !s.site.CurrencyConversion {
		return one
	}

	ratio, err := s.gateway.CurrencyRate(ctx, currency)
	if err != nil {
		s.logger.Warn("currency rate lookup failed, using 1",
			ports.String("currency", currency),
			ports.Err(err),
		)
		return one
	}
	if !ratio.IsPositive() {
		return one
	}
	return ratio
}

func (s *Service) backURL(settings domain.GatewaySettings, order *domain.Order) string {
	if settings.SuccessURL != "" {
		return settings.SuccessURL
	}
	return fmt.Sprintf("%s/orders/%s/return", strings.TrimRight(s.site.PublicBaseURL, "/"), order.ID)
}

// ResolveCheckoutURL builds the preapproval and asks the vendor for the
// checkout init point. Any failure resolves to ("", false); the detail is
// logged and never surfaces to the shopper.
func (s *Service) ResolveCheckoutURL(ctx context.Context, order *domain.Order) (string, bool) {
	preapproval, err := s.BuildPreapproval(ctx, order)
	if err != nil {
		s.logger.Error("could not build preapproval",
			ports.String("order_id", order.ID),
			ports.Err(err),
		)
		return "", false
	}

	result, err := s.gateway.CreatePreapproval(ctx, preapproval)
	if err != nil {
		s.logger.Error("vendor rejected preapproval",
			ports.String("order_id", order.ID),
			ports.Err(err),
		)
		return "", false
	}
	if result.InitPoint == "" {
		s.logger.Error("vendor returned no init point",
			ports.String("order_id", order.ID),
			ports.String("status", result.Status),
		)
		return "", false
	}

	return result.InitPoint, true
}

// ProcessPayment is the checkout entry point. It marks the order as handled
// by this gateway and returns where the host should send the shopper next.
func (s *Service) ProcessPayment(ctx context.Context, orderID string) (*ProcessResult, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !s.IsAvailable(ctx, order.Items) {
		return nil, domain.ErrGatewayDisabled
	}

	if err := s.orders.SetMetadata(ctx, order.ID, domain.MetaUsedGateway, domain.GatewayID); err != nil {
		s.logger.Warn("could not mark order gateway", ports.String("order_id", order.ID), ports.Err(err))
	}

	settings, err := s.loadSettings(ctx)
	if err != nil {
		return nil, err
	}

	if settings.Method == domain.MethodRedirect {
		url, ok := s.ResolveCheckoutURL(ctx, order)
		if !ok {
			return &ProcessResult{Result: "fail"}, nil
		}
		return &ProcessResult{Result: "success", Redirect: url}, nil
	}

	// Modal and iframe render on the host payment page.
	payURL := fmt.Sprintf("%s/orders/%s/pay", strings.TrimRight(s.site.PublicBaseURL, "/"), order.ID)
	return &ProcessResult{Result: "success", Redirect: payURL}, nil
}

// CancelOrder cancels a pending order, used by the modal payment page's
// cancel link when the shopper abandons the vendor checkout.
func (s *Service) CancelOrder(ctx context.Context, orderID string) error {
	if _, err := s.orders.GetByID(ctx, orderID); err != nil {
		return err
	}
	if err := s.orders.UpdateStatus(ctx, orderID, domain.OrderStatusCancelled); err != nil {
		return err
	}
	return s.orders.AddNote(ctx, orderID, "Order cancelled by the shopper from the payment page.")
}

// CancelOrderPreapproval cancels the vendor preapproval recorded on an
// order, used when an admin cancels the order manually.
func (s *Service) CancelOrderPreapproval(ctx context.Context, orderID string) error {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	if order.Metadata[domain.MetaUsedGateway] != domain.GatewayID {
		return domain.ErrWrongGateway
	}

	record := order.Metadata[domain.MetaPreapproval]
	preapprovalID := domain.PreapprovalIDFromRecord(record)
	if preapprovalID == "" {
		return domain.ErrMissingPreapproval
	}

	result, err := s.gateway.CancelPreapproval(ctx, preapprovalID)
	if err != nil {
		note := fmt.Sprintf("Cancel preapproval FAIL: %v", err)
		if nerr := s.orders.AddNote(ctx, order.ID, note); nerr != nil {
			s.logger.Warn("could not add order note", ports.Err(nerr))
		}
		return err
	}

	note := fmt.Sprintf("Cancel preapproval SUCCESS: %s", result.Message)
	if err := s.orders.AddNote(ctx, order.ID, note); err != nil {
		s.logger.Warn("could not add order note", ports.Err(err))
	}

	return nil
}

func (s *Service) loadSettings(ctx context.Context) (domain.GatewaySettings, error) {
	raw, err := s.settings.Load(ctx, domain.GatewayID)
	if err == domain.ErrSettingsNotFound {
		return domain.ParseSettings(nil), nil
	}
	if err != nil {
		return domain.GatewaySettings{}, err
	}
	return domain.ParseSettings(raw), nil
}
