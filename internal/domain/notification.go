package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// NotificationType distinguishes the two resources an IPN can reference.
type NotificationType string

const (
	NotificationPayment     NotificationType = "payment"
	NotificationPreapproval NotificationType = "preapproval"
)

// PaymentStatus is the vendor's payment/preapproval status enumeration.
type PaymentStatus string

const (
	StatusAuthorized  PaymentStatus = "authorized"
	StatusApproved    PaymentStatus = "approved"
	StatusPending     PaymentStatus = "pending"
	StatusInProcess   PaymentStatus = "in_process"
	StatusRejected    PaymentStatus = "rejected"
	StatusRefunded    PaymentStatus = "refunded"
	StatusCancelled   PaymentStatus = "cancelled"
	StatusInMediation PaymentStatus = "in_mediation"
	StatusChargedBack PaymentStatus = "charged-back"
)

// Notification is the normalized view of a vendor payment or preapproval
// resource fetched in response to an IPN. Duplicate and out-of-order
// deliveries are expected; processing must converge on the same final state.
type Notification struct {
	Type              NotificationType
	ID                string
	Status            PaymentStatus
	ExternalReference string
	PayerEmail        string
	PaymentTypeID     string
	DateCreated       time.Time

	// Payment notifications only.
	TransactionAmount decimal.Decimal
	TotalPaid         decimal.Decimal
	TotalRefunded     decimal.Decimal

	// Preapproval notifications only.
	RecurringAmount decimal.Decimal
	RecurringEnd    string
}
