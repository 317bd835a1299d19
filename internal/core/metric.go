package core

// Availability records how a metric's value was obtained.
type Availability string

const (
	// Computed means the query ran and produced the value.
	Computed Availability = "computed"
	// UnavailableSchema means a referenced table was missing or the query
	// failed; the value is the metric's documented default.
	UnavailableSchema Availability = "unavailable-schema"
	// UnavailableEmpty means the query ran but matched no rows.
	UnavailableEmpty Availability = "unavailable-empty"
)

// MetricResult is the outcome of one dashboard metric. Every metric in the
// catalogue yields exactly one result per request; failures degrade into the
// availability field instead of propagating.
//
// Value holds one of: int64 (counts), float64 (rates and money), a typed
// row slice (lists, series, distributions), or map[string]string (settings).
type MetricResult struct {
	Value        any          `json:"value"`
	Availability Availability `json:"availability"`

	// Source names the table that produced the value when a metric declares
	// ordered fallback sources. Empty when no source was usable.
	Source string `json:"source,omitempty"`
}

// ReadModel is the immutable aggregate handed to the view layer: every
// catalogue metric keyed by name plus the resolved tenant and identity.
// It is constructed once per request and never mutated afterwards.
type ReadModel struct {
	Tenant  *Tenant                 `json:"tenant"`
	Session SessionIdentity         `json:"session"`
	Metrics map[string]MetricResult `json:"metrics"`
}
