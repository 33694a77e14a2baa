package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/paygate-io/subscription-gateway/internal/domain"
)

// PreapprovalResult is the vendor's answer to a preapproval creation call.
// InitPoint is the hosted URL the shopper is sent to to confirm the
// agreement.
type PreapprovalResult struct {
	PreapprovalID string
	Status        string
	InitPoint     string
	Message       string
}

// VendorResult carries the outcome of a direct vendor action (cancel,
// refund). StatusCode follows the vendor's HTTP-like convention.
type VendorResult struct {
	StatusCode int
	Message    string
}

// PreapprovalGateway defines the vendor API surface this service consumes.
// Implementations own authentication, serialization and transport; callers
// only see domain structures and classified errors.
type PreapprovalGateway interface {
	// CreatePreapproval opens a subscription agreement and returns the
	// hosted init point URL.
	CreatePreapproval(ctx context.Context, p *domain.Preapproval) (*PreapprovalResult, error)

	// GetPayment fetches a payment resource referenced by an IPN.
	GetPayment(ctx context.Context, paymentID string) (*domain.Notification, error)

	// GetPreapproval fetches a preapproval resource referenced by an IPN.
	GetPreapproval(ctx context.Context, preapprovalID string) (*domain.Notification, error)

	// CancelPreapproval cancels an open subscription agreement.
	CancelPreapproval(ctx context.Context, preapprovalID string) (*VendorResult, error)

	// CancelPayment cancels a pending payment (legacy direct action).
	CancelPayment(ctx context.Context, paymentID string) (*VendorResult, error)

	// RefundPayment issues a partial refund against a payment (legacy
	// direct action).
	RefundPayment(ctx context.Context, paymentID string, amount decimal.Decimal, reason string) (*VendorResult, error)

	// CurrencyRate returns the conversion ratio from the store currency to
	// the vendor's settlement currency. Callers treat non-positive ratios
	// as 1.
	CurrencyRate(ctx context.Context, currency string) (decimal.Decimal, error)

	// SaveAnalytics reports module configuration to the vendor's analytics
	// endpoint. Best effort; failures never block the caller.
	SaveAnalytics(ctx context.Context, settings map[string]string) error
}
