package query

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/edulane/edulane/internal/core"
)

// Degradations is reported to the operational metrics collector.
type Degradations interface {
	MetricDegraded(metric, reason string)
}

// Runner executes metric specs against a tenant connection without ever
// letting a failure escape: a missing table, a query error, or a timeout all
// degrade into the result's availability field. The dashboard stays usable
// against a brand-new or partially migrated school database.
type Runner struct {
	timeout time.Duration
	stats   Degradations
	logger  *zap.Logger
}

func NewRunner(timeout time.Duration, stats Degradations, logger *zap.Logger) *Runner {
	return &Runner{timeout: timeout, stats: stats, logger: logger}
}

// Run tries the spec's sources in order and always returns exactly one
// result.
func (r *Runner) Run(ctx context.Context, conn Conn, spec Spec) core.MetricResult {
	p := Params{TenantID: conn.TenantID()}

	for _, src := range spec.Sources {
		// The existence probe is a database call too; it gets the same
		// bounded timeout as the query so a stalling tenant database can
		// never hang the request.
		pctx, cancel := context.WithTimeout(ctx, r.timeout)
		available, err := r.sourceAvailable(pctx, conn, src)
		cancel()
		if err != nil {
			return r.degrade(spec, src.Name, "probe", err)
		}
		if !available {
			continue
		}

		qctx, cancel := context.WithTimeout(ctx, r.timeout)
		value, matched, err := src.Exec(qctx, conn, p)
		cancel()
		if err != nil {
			return r.degrade(spec, src.Name, "query", err)
		}

		if !matched {
			return core.MetricResult{
				Value:        spec.Default,
				Availability: core.UnavailableEmpty,
				Source:       src.Name,
			}
		}
		return core.MetricResult{
			Value:        value,
			Availability: core.Computed,
			Source:       src.Name,
		}
	}

	// No source's tables exist in this tenant's schema.
	if r.stats != nil {
		r.stats.MetricDegraded(spec.Name, "schema")
	}
	return core.MetricResult{Value: spec.Default, Availability: core.UnavailableSchema}
}

func (r *Runner) sourceAvailable(ctx context.Context, conn Conn, src Source) (bool, error) {
	for _, table := range src.Tables {
		exists, err := conn.TableExists(ctx, table)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, nil
		}
	}
	return true, nil
}

func (r *Runner) degrade(spec Spec, source, reason string, err error) core.MetricResult {
	r.logger.Warn("metric degraded",
		zap.String("metric", spec.Name),
		zap.String("source", source),
		zap.String("reason", reason),
		zap.Error(err),
	)
	if r.stats != nil {
		r.stats.MetricDegraded(spec.Name, reason)
	}
	return core.MetricResult{Value: spec.Default, Availability: core.UnavailableSchema}
}

// Pct returns num/den as a percentage rounded to one decimal place. A zero
// denominator yields 0, never NaN.
func Pct(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return math.Round(num/den*1000) / 10
}
