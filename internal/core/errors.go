package core

import "errors"

// Request-aborting failures. Everything metric-related degrades locally and
// never surfaces as an error; see MetricResult.
var (
	// ErrInvalidSlug means the school identifier is empty or malformed.
	ErrInvalidSlug = errors.New("school identifier invalid")

	// ErrTenantNotFound means no school is registered under the slug.
	// Resolution never falls back to a default tenant.
	ErrTenantNotFound = errors.New("school not found")

	// ErrNoSession means no session exists for the resolved school, it has
	// expired, or it was minted for a different school.
	ErrNoSession = errors.New("no session for school")

	// ErrNoDescriptor means the tenant record carries no database DSN.
	// Acquiring a connection fails fast instead of dialing a default.
	ErrNoDescriptor = errors.New("tenant has no database descriptor")
)
