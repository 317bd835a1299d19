package query

import "context"

// Querier is the read-only slice of a tenant connection the metric queries
// use. *tenantdb.Conn satisfies it; tests substitute fakes.
type Querier interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// Conn is what the runner needs from a tenant connection.
type Conn interface {
	Querier
	TableExists(ctx context.Context, table string) (bool, error)
	TenantID() string
}

// Params carries the per-request values every metric query is parameterized
// with. The tenant id is always a filter predicate; cross-tenant joins are
// never trusted without it.
type Params struct {
	TenantID string
}

// ExecFunc runs one source's query and maps the rows to the metric's shape.
// The bool reports whether any underlying rows matched; scalar aggregates
// that coalesce to zero return true regardless.
type ExecFunc func(ctx context.Context, q Querier, p Params) (any, bool, error)

// Source is one candidate origin for a metric. A metric with several sources
// lists them in preference order; the runner takes the first whose tables
// all exist.
type Source struct {
	// Name identifies the source in the result, for auditability.
	Name string
	// Tables that must exist in the tenant schema for this source to run.
	Tables []string
	Exec   ExecFunc
}

// Spec is one named dashboard statistic: its candidate sources and the
// documented default used whenever no source can produce a value.
type Spec struct {
	Name    string
	Sources []Source
	Default any
}
