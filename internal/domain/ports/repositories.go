package ports

import (
	"context"

	"github.com/paygate-io/subscription-gateway/internal/domain"
)

// SettingsRepository persists the gateway settings record. The whole mapping
// is written atomically; readers always see a complete record.
type SettingsRepository interface {
	// Load returns the stored settings mapping for the gateway, or
	// domain.ErrSettingsNotFound when no record exists yet.
	Load(ctx context.Context, gatewayID string) (map[string]string, error)

	// Save replaces the stored settings mapping atomically.
	Save(ctx context.Context, gatewayID string, settings map[string]string) error
}

// OrderRepository is the service's view of storefront-owned orders. Reads
// return the current state; writes annotate without assuming exclusivity —
// every write is last-write-wins against other writers of the same keys.
type OrderRepository interface {
	// GetByID returns the order, or domain.ErrOrderNotFound.
	GetByID(ctx context.Context, orderID string) (*domain.Order, error)

	// SetMetadata writes one metadata key on the order.
	SetMetadata(ctx context.Context, orderID, key, value string) error

	// AppendPaymentID records a vendor payment id against the order,
	// skipping ids already present so duplicate notifications do not
	// accumulate entries.
	AppendPaymentID(ctx context.Context, orderID, paymentID string) error

	// UpdateStatus transitions the order to the given state.
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) error

	// AddNote appends an informational note to the order history.
	AddNote(ctx context.Context, orderID, note string) error
}
