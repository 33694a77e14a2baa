package notification

import (
	"github.com/paygate-io/subscription-gateway/internal/domain"
)

// transition describes what a vendor payment status does to an order.
// NewStatus empty means the order status is left alone and only the note
// is recorded.
type transition struct {
	NewStatus domain.OrderStatus
	Note      string
}

// transitions is the full status table. Statuses absent from the table
// are ignored; duplicate deliveries of the same status converge because
// every row is an idempotent overwrite.
var transitions = map[domain.PaymentStatus]transition{
	domain.StatusAuthorized:  {NewStatus: domain.OrderStatusCompleted, Note: "Payment approved."},
	domain.StatusApproved:    {NewStatus: domain.OrderStatusCompleted, Note: "Payment approved."},
	domain.StatusPending:     {Note: "Customer hasn't paid yet."},
	domain.StatusInProcess:   {NewStatus: domain.OrderStatusOnHold, Note: "Payment under review."},
	domain.StatusRejected:    {NewStatus: domain.OrderStatusFailed, Note: "The payment was refused. The customer can try again."},
	domain.StatusRefunded:    {NewStatus: domain.OrderStatusRefunded, Note: "The payment was refunded to the customer."},
	domain.StatusCancelled:   {NewStatus: domain.OrderStatusCancelled, Note: "The payment was cancelled."},
	domain.StatusInMediation: {Note: "The payment is under mediation or it was charged-back."},
	domain.StatusChargedBack: {Note: "The payment is under mediation or it was charged-back."},
}
