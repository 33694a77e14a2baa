package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RecurrenceTimeSuffix is appended to product start/end dates when building
// the recurrence block. The vendor expects a full timestamp; the product
// metadata only stores a calendar date.
const RecurrenceTimeSuffix = "T16:00:00.000-03:00"

// IntegerRoundingCurrencies lists the currencies whose amounts the vendor
// accepts only in whole units. Everything else is floored at cent
// granularity. Kept as data so deployments can extend the set.
var IntegerRoundingCurrencies = map[string]bool{
	"COP": true,
	"CLP": true,
}

// AutoRecurring is the recurrence block of a preapproval.
type AutoRecurring struct {
	Frequency         int
	FrequencyType     string
	TransactionAmount decimal.Decimal
	CurrencyID        string
	StartDate         string
	EndDate           string
}

// Preapproval is the build-once request structure sent to the vendor to open
// a subscription agreement. It is constructed fresh per checkout attempt and
// discarded after the vendor call returns.
type Preapproval struct {
	PayerEmail        string
	BackURL           string
	Reason            string
	ExternalReference string
	NotificationURL   string
	SponsorID         string
	AutoRecurring     AutoRecurring
}

// preapprovalIDMarker separates the human-readable part of a stored
// preapproval record from the vendor id.
const preapprovalIDMarker = "/ ID: "

// PreapprovalRecord formats the order metadata entry written when a
// preapproval notification arrives.
func PreapprovalRecord(at time.Time, status, id string) string {
	return fmt.Sprintf("[%s] Status: %s %s%s",
		at.UTC().Format("2006-01-02 15:04:05"), status, preapprovalIDMarker, id)
}

// PreapprovalIDFromRecord extracts the vendor id from a stored record.
// Returns empty when the record is missing or malformed.
func PreapprovalIDFromRecord(record string) string {
	idx := strings.LastIndex(record, preapprovalIDMarker)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(record[idx+len(preapprovalIDMarker):])
}

// RoundAmount applies the currency rounding policy: floor to whole units for
// currencies in the integer rounding set, floor at cent granularity for
// everything else. Amounts are never rounded up.
func RoundAmount(amount decimal.Decimal, currency string) decimal.Decimal {
	if IntegerRoundingCurrencies[currency] {
		return amount.RoundFloor(0)
	}
	return amount.RoundFloor(2)
}
