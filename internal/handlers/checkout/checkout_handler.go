package checkout

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/paygate-io/subscription-gateway/internal/domain"
	"github.com/paygate-io/subscription-gateway/internal/domain/ports"
	checkoutsvc "github.com/paygate-io/subscription-gateway/internal/services/checkout"
	settingssvc "github.com/paygate-io/subscription-gateway/internal/services/settings"
)

// Handler serves the checkout entry point and the order payment page
type Handler struct {
	checkout *checkoutsvc.Service
	settings *settingssvc.Service
	orders   ports.OrderRepository
	site     domain.SiteContext
	logger   *zap.Logger
}

// NewHandler creates a new checkout handler
func NewHandler(
	checkout *checkoutsvc.Service,
	settings *settingssvc.Service,
	orders ports.OrderRepository,
	site domain.SiteContext,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		checkout: checkout,
		settings: settings,
		orders:   orders,
		site:     site,
		logger:   logger,
	}
}

// modalView feeds the modal variant: the shopper opens the vendor
// checkout in a new window from the payment page.
type modalView struct {
	URL       string
	BannerURL string
	CancelURL string
}

// iframeView embeds the vendor checkout directly in the payment page.
type iframeView struct {
	URL       string
	BannerURL string
	Width     int
	Height    int
}

// fallbackView is rendered when the vendor URL could not be resolved.
type fallbackView struct {
	RetryURL string
}

var pageTemplates = template.Must(template.New("pages").Parse(`
{{define "modal"}}<!DOCTYPE html>
<html>
<head><title>Complete your subscription</title></head>
<body>
	<div class="mp-checkout">
		{{if .BannerURL}}<img src="{{.BannerURL}}" alt="Mercado Pago">{{end}}
		<p>Thank you for your order. Please click the button below to pay with Mercado Pago.</p>
		<a id="submit-payment" href="{{.URL}}" target="_blank">Pay with Mercado Pago</a>
		<a class="cancel" href="{{.CancelURL}}">Cancel order &amp; restore cart</a>
	</div>
</body>
</html>{{end}}

{{define "iframe"}}<!DOCTYPE html>
<html>
<head><title>Complete your subscription</title></head>
<body>
	<div class="mp-checkout">
		{{if .BannerURL}}<img src="{{.BannerURL}}" alt="Mercado Pago">{{end}}
		<p>Thank you for your order. Please complete the payment below.</p>
		<iframe src="{{.URL}}" name="MP-Checkout" width="{{.Width}}" height="{{.Height}}" frameborder="0"></iframe>
	</div>
</body>
</html>{{end}}

{{define "fallback"}}<!DOCTYPE html>
<html>
<head><title>Payment unavailable</title></head>
<body>
	<div class="mp-checkout error">
		<p>An error occurred when processing your payment. Please try again or contact us.</p>
		<a href="{{.RetryURL}}">Click to try again</a>
	</div>
</body>
</html>{{end}}
`))

// ProcessPayment handles POST /checkout/{order_id}
func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	orderID := pathSegment(r.URL.Path, "/checkout/")
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"result": "fail", "message": "missing order id"})
		return
	}

	result, err := h.checkout.ProcessPayment(r.Context(), orderID)
	if err == domain.ErrOrderNotFound {
		writeJSON(w, http.StatusNotFound, map[string]string{"result": "fail", "message": "order not found"})
		return
	}
	if err == domain.ErrGatewayDisabled {
		writeJSON(w, http.StatusConflict, map[string]string{"result": "fail", "message": "gateway is not available for this order"})
		return
	}
	if err != nil {
		h.logger.Error("checkout failed",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"result": "fail"})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// availabilityRequest carries the storefront's live cart. Amounts travel
// as strings so the storefront never serializes money as floats.
type availabilityRequest struct {
	Items        []availabilityItem `json:"items"`
	CartSubtotal string             `json:"cart_subtotal"`
}

type availabilityItem struct {
	ProductID  string                  `json:"product_id"`
	Name       string                  `json:"name"`
	Quantity   int                     `json:"quantity"`
	LineTotal  string                  `json:"line_total"`
	LineTax    string                  `json:"line_tax"`
	Recurrence *availabilityRecurrence `json:"recurrence,omitempty"`
}

type availabilityRecurrence struct {
	Frequency     int    `json:"frequency"`
	FrequencyType string `json:"frequency_type"`
	StartDate     string `json:"start_date,omitempty"`
	EndDate       string `json:"end_date,omitempty"`
}

type availabilityResponse struct {
	Available   bool   `json:"available"`
	MethodTitle string `json:"method_title,omitempty"`
	Description string `json:"description,omitempty"`
}

// CheckAvailability handles POST /availability. The storefront calls it
// while building the payment-method list; when the gateway is available
// the response carries the title to display, with the discounted amount
// appended when a discount is configured.
func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid body"})
		return
	}

	items := make([]domain.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		item, err := it.toDomain()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid line amount"})
			return
		}
		items = append(items, item)
	}

	if !h.checkout.IsAvailable(r.Context(), items) {
		writeJSON(w, http.StatusOK, availabilityResponse{Available: false})
		return
	}

	settings, err := h.settings.LoadSettings(r.Context())
	if err != nil {
		h.logger.Error("could not load settings", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	subtotal := decimal.Zero
	if req.CartSubtotal != "" {
		parsed, err := decimal.NewFromString(req.CartSubtotal)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid cart subtotal"})
			return
		}
		subtotal = parsed
	}

	writeJSON(w, http.StatusOK, availabilityResponse{
		Available:   true,
		MethodTitle: h.settings.PaymentMethodTitle(settings, subtotal),
		Description: settings.Description,
	})
}

func (it availabilityItem) toDomain() (domain.LineItem, error) {
	total, err := parseAmount(it.LineTotal)
	if err != nil {
		return domain.LineItem{}, err
	}
	tax, err := parseAmount(it.LineTax)
	if err != nil {
		return domain.LineItem{}, err
	}

	item := domain.LineItem{
		ProductID: it.ProductID,
		Name:      it.Name,
		Quantity:  it.Quantity,
		LineTotal: total,
		LineTax:   tax,
	}
	if it.Recurrence != nil {
		item.Recurrence = &domain.Recurrence{
			Frequency:     it.Recurrence.Frequency,
			FrequencyType: it.Recurrence.FrequencyType,
			StartDate:     it.Recurrence.StartDate,
			EndDate:       it.Recurrence.EndDate,
		}
	}
	return item, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// RenderOrderForm handles GET /orders/{order_id}/pay
func (h *Handler) RenderOrderForm(w http.ResponseWriter, r *http.Request) {
	orderID := pathSegment(r.URL.Path, "/orders/")
	orderID = strings.TrimSuffix(orderID, "/pay")
	if orderID == "" {
		http.NotFound(w, r)
		return
	}

	order, err := h.orders.GetByID(r.Context(), orderID)
	if err == domain.ErrOrderNotFound {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.logger.Error("could not load order", zap.String("order_id", orderID), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	settings, err := h.settings.LoadSettings(r.Context())
	if err != nil {
		h.logger.Error("could not load settings", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	url, ok := h.checkout.ResolveCheckoutURL(r.Context(), order)
	if !ok {
		h.renderPage(w, "fallback", fallbackView{
			RetryURL: h.orderURL(order.ID, "pay"),
		})
		return
	}

	switch settings.Method {
	case domain.MethodModal:
		h.renderPage(w, "modal", modalView{
			URL:       url,
			BannerURL: h.site.CheckoutBannerURL,
			CancelURL: h.orderURL(order.ID, "cancel"),
		})
	case domain.MethodRedirect:
		// The redirect method normally skips this page. If the shopper
		// lands here anyway, send them straight to the vendor.
		http.Redirect(w, r, url, http.StatusFound)
	default:
		h.renderPage(w, "iframe", iframeView{
			URL:       url,
			BannerURL: h.site.CheckoutBannerURL,
			Width:     settings.IframeWidth,
			Height:    settings.IframeHeight,
		})
	}
}

// CancelOrder handles GET /orders/{order_id}/cancel, the modal page's
// cancel link. The order is cancelled and the shopper is sent back to
// the storefront's failure page, or its root when none is configured.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := pathSegment(r.URL.Path, "/orders/")
	orderID = strings.TrimSuffix(orderID, "/cancel")
	if orderID == "" {
		http.NotFound(w, r)
		return
	}

	err := h.checkout.CancelOrder(r.Context(), orderID)
	if err == domain.ErrOrderNotFound {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.logger.Error("cancel order failed", zap.String("order_id", orderID), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	target := strings.TrimRight(h.site.PublicBaseURL, "/") + "/"
	if settings, serr := h.settings.LoadSettings(r.Context()); serr == nil && settings.FailureURL != "" {
		target = settings.FailureURL
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// CancelPreapproval handles POST /orders/{order_id}/cancel-preapproval
func (h *Handler) CancelPreapproval(w http.ResponseWriter, r *http.Request) {
	orderID := pathSegment(r.URL.Path, "/orders/")
	orderID = strings.TrimSuffix(orderID, "/cancel-preapproval")
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "missing order id"})
		return
	}

	err := h.checkout.CancelOrderPreapproval(r.Context(), orderID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case err == domain.ErrOrderNotFound:
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "order not found"})
	case err == domain.ErrWrongGateway:
		writeJSON(w, http.StatusConflict, map[string]string{"status": "error", "message": "order was not paid with this gateway"})
	case err == domain.ErrMissingPreapproval:
		writeJSON(w, http.StatusConflict, map[string]string{"status": "error", "message": "no preapproval recorded for this order"})
	default:
		h.logger.Error("cancel preapproval failed",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusBadGateway, map[string]string{"status": "error", "message": "vendor call failed"})
	}
}

func (h *Handler) renderPage(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("template render failed", zap.String("template", name), zap.Error(err))
	}
}

func (h *Handler) orderURL(orderID, action string) string {
	return fmt.Sprintf("%s/orders/%s/%s", strings.TrimRight(h.site.PublicBaseURL, "/"), orderID, action)
}

// pathSegment strips the route prefix, leaving the order id plus any
// action suffix for the caller to trim.
func pathSegment(path, prefix string) string {
	rest := strings.TrimPrefix(path, prefix)
	if rest == path {
		return ""
	}
	return rest
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
