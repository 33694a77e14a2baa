package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRoundAmount(t *testing.T) {
	amount := decimal.RequireFromString("99.999")

	assert.Equal(t, "99.99", RoundAmount(amount, "ARS").String())
	assert.Equal(t, "99.99", RoundAmount(amount, "BRL").String())
	assert.Equal(t, "99", RoundAmount(amount, "COP").String())
	assert.Equal(t, "99", RoundAmount(amount, "CLP").String())
}

func TestRoundAmount_NeverRoundsUp(t *testing.T) {
	assert.Equal(t, "10.99", RoundAmount(decimal.RequireFromString("10.999"), "MXN").String())
	assert.Equal(t, "10", RoundAmount(decimal.RequireFromString("10.9"), "CLP").String())
}

func TestPreapprovalRecordRoundTrip(t *testing.T) {
	at := time.Date(2026, 8, 1, 15, 30, 0, 0, time.UTC)
	record := PreapprovalRecord(at, "authorized", "pre-123")

	assert.Equal(t, "[2026-08-01 15:30:00] Status: authorized / ID: pre-123", record)
	assert.Equal(t, "pre-123", PreapprovalIDFromRecord(record))
}

func TestPreapprovalIDFromRecord_Malformed(t *testing.T) {
	assert.Empty(t, PreapprovalIDFromRecord(""))
	assert.Empty(t, PreapprovalIDFromRecord("Status: authorized"))
}
