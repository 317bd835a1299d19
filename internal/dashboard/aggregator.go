package dashboard

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/edulane/edulane/internal/core"
	"github.com/edulane/edulane/internal/query"
)

// Runner abstracts the schema-tolerant query runner.
type Runner interface {
	Run(ctx context.Context, conn query.Conn, spec query.Spec) core.MetricResult
}

// Observer is reported to the operational metrics collector.
type Observer interface {
	DashboardBuilt(slug string, elapsed time.Duration)
}

// Aggregator fans the metric catalogue out over one request's tenant
// connection and merges the results into a read-model. Metrics are
// independent: there is no shared transaction and the failure of one never
// blocks another.
type Aggregator struct {
	runner  Runner
	specs   []query.Spec
	workers int
	stats   Observer
	logger  *zap.Logger
}

func NewAggregator(runner Runner, workers int, stats Observer, logger *zap.Logger) *Aggregator {
	if workers < 1 {
		workers = 1
	}
	return &Aggregator{
		runner:  runner,
		specs:   Catalogue(),
		workers: workers,
		stats:   stats,
		logger:  logger,
	}
}

// Build computes every catalogue metric and returns the immutable read-model.
// The connection is shared read-only across the bounded worker fan-out; each
// query is independently parameterized.
func (a *Aggregator) Build(ctx context.Context, tenant *core.Tenant, sess core.SessionIdentity, conn query.Conn) *core.ReadModel {
	start := time.Now()

	results := make([]core.MetricResult, len(a.specs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for i, spec := range a.specs {
		i, spec := i, spec
		g.Go(func() error {
			results[i] = a.runner.Run(gctx, conn, spec)
			return nil
		})
	}
	// The runner absorbs every failure, so Wait never returns an error.
	_ = g.Wait()

	metrics := make(map[string]core.MetricResult, len(a.specs))
	for i, spec := range a.specs {
		metrics[spec.Name] = results[i]
	}

	if a.stats != nil {
		a.stats.DashboardBuilt(tenant.Slug, time.Since(start))
	}
	a.logger.Debug("dashboard built",
		zap.String("school_slug", tenant.Slug),
		zap.Int("metrics", len(metrics)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &core.ReadModel{
		Tenant:  tenant,
		Session: sess,
		Metrics: metrics,
	}
}
