package domain

import "errors"

// Common domain errors
var (
	// Order errors
	ErrOrderNotFound = errors.New("order not found")
	ErrOrderMismatch = errors.New("external reference does not match an order")

	// Settings errors
	ErrSettingsNotFound = errors.New("gateway settings not found")

	// Checkout errors
	ErrNoRecurringItem   = errors.New("no subscription-eligible item in order")
	ErrGatewayDisabled   = errors.New("gateway is disabled")
	ErrMissingCredential = errors.New("vendor credentials are not configured")
	ErrUnsupportedSite   = errors.New("site code is not supported for subscriptions")

	// Notification errors
	ErrUnknownTopic       = errors.New("unhandled notification topic")
	ErrEmptyNotification  = errors.New("notification carries no data")
	ErrWrongGateway       = errors.New("order was not handled by this gateway")
	ErrMissingPreapproval = errors.New("order has no stored preapproval id")
)
