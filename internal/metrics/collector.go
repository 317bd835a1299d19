package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the console's operational metrics. These are about the
// service itself, not about any school's data.
type Collector struct {
	buildDuration  *prometheus.HistogramVec
	metricDegraded *prometheus.CounterVec
	sessionLoads   *prometheus.CounterVec
	tenantCache    *prometheus.CounterVec
}

func NewCollector() *Collector {
	return &Collector{
		buildDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "edulane_dashboard_build_duration_seconds",
			Help:    "Time to aggregate the full dashboard read-model",
			Buckets: prometheus.DefBuckets,
		}, []string{"school"}),

		metricDegraded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "edulane_dashboard_metric_degraded_total",
			Help: "Dashboard metrics that degraded to a default value",
		}, []string{"metric", "reason"}),

		sessionLoads: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "edulane_session_loads_total",
			Help: "Session store lookups by outcome",
		}, []string{"outcome"}),

		tenantCache: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "edulane_tenant_cache_total",
			Help: "Tenant locator cache lookups",
		}, []string{"result"}),
	}
}

func (c *Collector) DashboardBuilt(slug string, elapsed time.Duration) {
	c.buildDuration.WithLabelValues(slug).Observe(elapsed.Seconds())
}

func (c *Collector) MetricDegraded(metric, reason string) {
	c.metricDegraded.WithLabelValues(metric, reason).Inc()
}

func (c *Collector) SessionLoad(outcome string) {
	c.sessionLoads.WithLabelValues(outcome).Inc()
}

func (c *Collector) TenantCacheHit() {
	c.tenantCache.WithLabelValues("hit").Inc()
}

func (c *Collector) TenantCacheMiss() {
	c.tenantCache.WithLabelValues("miss").Inc()
}
