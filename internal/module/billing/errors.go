package billing

import "errors"

// Module errors.
var (
	// ErrNotFound is returned when Stripe reports the resource does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrGatewayUnavailable is returned when Stripe could not be reached or
	// answered with a server-side failure.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrUserNotFound is returned when a webhook event references a customer
	// that cannot be resolved to a local user.
	ErrUserNotFound = errors.New("user not found")
	// ErrMissingField is returned when a webhook payload lacks a field the
	// handler requires.
	ErrMissingField = errors.New("missing required field")
)
