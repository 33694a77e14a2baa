package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus mirrors the storefront's order lifecycle states.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusOnHold     OrderStatus = "on-hold"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusFailed     OrderStatus = "failed"
	OrderStatusRefunded   OrderStatus = "refunded"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Metadata keys this service writes on orders. Other writers may touch the
// same keys; every write is last-write-wins.
const (
	MetaUsedGateway   = "_used_gateway"
	MetaPayerEmail    = "Payer email"
	MetaPaymentType   = "Payment type"
	MetaPreapproval   = "Mercado Pago Pre-Approval"
	MetaSubPaymentIDs = "_Mercado_Pago_Sub_Payment_IDs"
)

// Recurrence is the product-level subscription metadata attached to a line
// item. FrequencyType is a vendor unit ("days" or "months"). Start and end
// dates are calendar dates; the builder appends the fixed time-of-day suffix.
type Recurrence struct {
	Frequency     int
	FrequencyType string
	StartDate     string
	EndDate       string
}

// LineItem is one purchased row of an order or cart.
type LineItem struct {
	ProductID  string
	Name       string
	Quantity   int
	LineTotal  decimal.Decimal
	LineTax    decimal.Decimal
	Recurrence *Recurrence
}

// Recurring reports whether the item carries usable subscription metadata.
func (i LineItem) Recurring() bool {
	return i.Recurrence != nil && i.Recurrence.Frequency > 0 && i.Recurrence.FrequencyType != ""
}

// Order is the storefront-owned purchase this service annotates. The service
// never creates or deletes orders, it only reads them and writes metadata,
// notes and status transitions back.
type Order struct {
	ID            string
	Status        OrderStatus
	BillingEmail  string
	Currency      string
	ShippingTotal decimal.Decimal
	ShippingTax   decimal.Decimal
	Items         []LineItem
	Metadata      map[string]string
	PaymentIDs    []string
	CreatedAt     time.Time
}

// HasRecurringItem reports whether any line item is subscription-eligible.
func (o *Order) HasRecurringItem() bool {
	return AnyRecurring(o.Items)
}

// AnyRecurring reports whether any item in the set is subscription-eligible.
// Used for both orders and live carts.
func AnyRecurring(items []LineItem) bool {
	for _, it := range items {
		if it.Recurring() {
			return true
		}
	}
	return false
}
