package dashboard

import (
	"context"

	"github.com/edulane/edulane/internal/query"
)

// Metric names, as keyed in the read-model.
const (
	MetricStudentsTotal       = "students_total"
	MetricTeachersTotal       = "teachers_total"
	MetricClassesTotal        = "classes_total"
	MetricSubjectsTotal       = "subjects_total"
	MetricAttendanceToday     = "attendance_today"
	MetricFeeCollectionRate   = "fee_collection_rate"
	MetricInvoiceCollection   = "invoice_collection_rate"
	MetricRevenueTotal        = "revenue_total"
	MetricRevenueMonth        = "revenue_month"
	MetricRevenuePending      = "revenue_pending"
	MetricRevenueByMethod     = "revenue_by_method"
	MetricRecentAnnouncements = "recent_announcements"
	MetricUpcomingEvents      = "upcoming_events"
	MetricRecentActivity      = "recent_activity"
	MetricRecentTransactions  = "recent_transactions"
	MetricAttendanceWeekly    = "attendance_weekly"
	MetricRevenueMonthly      = "revenue_monthly"
	MetricStudentsPerClass    = "students_per_class"
	MetricSettings            = "settings"
)

// currentYearSubquery selects the working academic year: prefer is_default
// among the active ones.
const currentYearSubquery = `(
        SELECT id FROM academic_years
        WHERE tenant_id = $1 AND status = 'active'
        ORDER BY is_default DESC, name ASC
        LIMIT 1
    )`

// Catalogue returns the fixed set of dashboard metrics. Every spec runs
// independently; the order here only determines scheduling, not the shape of
// the read-model.
func Catalogue() []query.Spec {
	return []query.Spec{
		{
			Name:    MetricStudentsTotal,
			Default: int64(0),
			Sources: []query.Source{{
				Name:   "students",
				Tables: []string{"students"},
				Exec: countExec(`
                    SELECT COUNT(*) FROM students
                    WHERE tenant_id = $1 AND status = 'active'`),
			}},
		},
		{
			Name:    MetricTeachersTotal,
			Default: int64(0),
			Sources: []query.Source{{
				Name:   "teachers",
				Tables: []string{"teachers"},
				Exec: countExec(`
                    SELECT COUNT(*) FROM teachers
                    WHERE tenant_id = $1 AND status = 'active'`),
			}},
		},
		{
			Name:    MetricClassesTotal,
			Default: int64(0),
			Sources: []query.Source{{
				Name:   "classes",
				Tables: []string{"classes"},
				Exec: countExec(`
                    SELECT COUNT(*) FROM classes
                    WHERE tenant_id = $1 AND status = 'active'`),
			}},
		},
		{
			Name:    MetricSubjectsTotal,
			Default: int64(0),
			Sources: []query.Source{{
				Name:   "subjects",
				Tables: []string{"subjects"},
				Exec:   countExec(`SELECT COUNT(*) FROM subjects WHERE tenant_id = $1`),
			}},
		},
		{
			Name:    MetricAttendanceToday,
			Default: float64(0),
			Sources: []query.Source{{
				Name:   "attendances",
				Tables: []string{"attendances"},
				Exec: rateExec(`
                    SELECT COUNT(*) FILTER (WHERE status IN ('present', 'late'))::float8 AS num,
                           COUNT(*)::float8 AS den
                    FROM attendances
                    WHERE tenant_id = $1 AND date = CURRENT_DATE`),
			}},
		},
		{
			Name:    MetricFeeCollectionRate,
			Default: float64(0),
			Sources: []query.Source{{
				Name:   "invoices",
				Tables: []string{"invoices", "academic_years"},
				Exec: rateExec(`
                    SELECT COALESCE(SUM(paid_amount), 0)::float8 AS num,
                           COALESCE(SUM(total_amount), 0)::float8 AS den
                    FROM invoices
                    WHERE tenant_id = $1 AND academic_year_id = ` + currentYearSubquery),
			}},
		},
		{
			Name:    MetricInvoiceCollection,
			Default: float64(0),
			Sources: []query.Source{{
				Name:   "invoices",
				Tables: []string{"invoices"},
				Exec: rateExec(`
                    SELECT COUNT(*) FILTER (WHERE status = 'paid')::float8 AS num,
                           COUNT(*)::float8 AS den
                    FROM invoices
                    WHERE tenant_id = $1`),
			}},
		},
		{
			Name:    MetricRevenueTotal,
			Default: float64(0),
			Sources: []query.Source{
				{
					Name:   "payment_transactions",
					Tables: []string{"payment_transactions"},
					Exec: moneyExec(`
                        SELECT COALESCE(SUM(amount), 0)::float8
                        FROM payment_transactions
                        WHERE tenant_id = $1 AND status = 'completed'`),
				},
				{
					Name:   "invoices",
					Tables: []string{"invoices"},
					Exec: moneyExec(`
                        SELECT COALESCE(SUM(paid_amount), 0)::float8
                        FROM invoices
                        WHERE tenant_id = $1`),
				},
			},
		},
		{
			Name:    MetricRevenueMonth,
			Default: float64(0),
			Sources: []query.Source{
				{
					Name:   "payment_transactions",
					Tables: []string{"payment_transactions"},
					Exec: moneyExec(`
                        SELECT COALESCE(SUM(amount), 0)::float8
                        FROM payment_transactions
                        WHERE tenant_id = $1 AND status = 'completed'
                          AND created_at >= date_trunc('month', CURRENT_DATE)`),
				},
				{
					Name:   "invoices",
					Tables: []string{"invoices"},
					Exec: moneyExec(`
                        SELECT COALESCE(SUM(paid_amount), 0)::float8
                        FROM invoices
                        WHERE tenant_id = $1
                          AND created_at >= date_trunc('month', CURRENT_DATE)`),
				},
			},
		},
		{
			Name:    MetricRevenuePending,
			Default: float64(0),
			Sources: []query.Source{
				{
					Name:   "payment_transactions",
					Tables: []string{"payment_transactions"},
					Exec: moneyExec(`
                        SELECT COALESCE(SUM(amount), 0)::float8
                        FROM payment_transactions
                        WHERE tenant_id = $1 AND status = 'pending'`),
				},
				{
					Name:   "invoices",
					Tables: []string{"invoices"},
					Exec: moneyExec(`
                        SELECT COALESCE(SUM(total_amount - paid_amount), 0)::float8
                        FROM invoices
                        WHERE tenant_id = $1 AND status <> 'cancelled'`),
				},
			},
		},
		{
			Name:    MetricRevenueByMethod,
			Default: []MethodAmount{},
			Sources: []query.Source{{
				// Only payment_transactions carries a method column, so
				// there is no invoices fallback for the breakdown.
				Name:   "payment_transactions",
				Tables: []string{"payment_transactions"},
				Exec: listExec[MethodAmount](`
                    SELECT method, COALESCE(SUM(amount), 0)::float8 AS amount
                    FROM payment_transactions
                    WHERE tenant_id = $1 AND status = 'completed'
                    GROUP BY method
                    ORDER BY method`),
			}},
		},
		{
			Name:    MetricRecentAnnouncements,
			Default: []Announcement{},
			Sources: []query.Source{{
				Name:   "announcements",
				Tables: []string{"announcements"},
				Exec: listExec[Announcement](`
                    SELECT id, title, created_at
                    FROM announcements
                    WHERE tenant_id = $1 AND created_at >= CURRENT_DATE - INTERVAL '7 days'
                    ORDER BY created_at DESC
                    LIMIT 5`),
			}},
		},
		{
			Name:    MetricUpcomingEvents,
			Default: []Event{},
			Sources: []query.Source{{
				Name:   "events",
				Tables: []string{"events"},
				Exec: listExec[Event](`
                    SELECT id, title, starts_at
                    FROM events
                    WHERE tenant_id = $1
                      AND starts_at >= CURRENT_DATE
                      AND starts_at < CURRENT_DATE + INTERVAL '30 days'
                    ORDER BY starts_at ASC
                    LIMIT 5`),
			}},
		},
		{
			Name:    MetricRecentActivity,
			Default: []AuditEntry{},
			Sources: []query.Source{{
				Name:   "audit_logs",
				Tables: []string{"audit_logs"},
				Exec: listExec[AuditEntry](`
                    SELECT id, actor, action, created_at
                    FROM audit_logs
                    WHERE tenant_id = $1
                    ORDER BY created_at DESC
                    LIMIT 10`),
			}},
		},
		{
			Name:    MetricRecentTransactions,
			Default: []Transaction{},
			Sources: []query.Source{
				{
					Name:   "payment_transactions",
					Tables: []string{"payment_transactions"},
					Exec: listExec[Transaction](`
                        SELECT id, amount::float8 AS amount, method, status, created_at
                        FROM payment_transactions
                        WHERE tenant_id = $1
                        ORDER BY created_at DESC
                        LIMIT 8`),
				},
				{
					Name:   "invoices",
					Tables: []string{"invoices"},
					Exec: listExec[Transaction](`
                        SELECT id, paid_amount::float8 AS amount, 'invoice' AS method, status, created_at
                        FROM invoices
                        WHERE tenant_id = $1
                        ORDER BY created_at DESC
                        LIMIT 8`),
				},
			},
		},
		{
			Name:    MetricAttendanceWeekly,
			Default: []TimePoint{},
			Sources: []query.Source{{
				Name:   "attendances",
				Tables: []string{"attendances"},
				Exec: listExec[TimePoint](`
                    SELECT to_char(date_trunc('week', date), 'YYYY-MM-DD') AS label,
                           COALESCE(ROUND(100.0 * COUNT(*) FILTER (WHERE status IN ('present', 'late'))
                               / NULLIF(COUNT(*), 0), 1), 0)::float8 AS value
                    FROM attendances
                    WHERE tenant_id = $1 AND date >= CURRENT_DATE - INTERVAL '42 days'
                    GROUP BY 1
                    ORDER BY 1`),
			}},
		},
		{
			Name:    MetricRevenueMonthly,
			Default: []TimePoint{},
			Sources: []query.Source{
				{
					Name:   "payment_transactions",
					Tables: []string{"payment_transactions"},
					Exec: listExec[TimePoint](`
                        SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS label,
                               COALESCE(SUM(amount), 0)::float8 AS value
                        FROM payment_transactions
                        WHERE tenant_id = $1 AND status = 'completed'
                          AND created_at >= date_trunc('month', CURRENT_DATE) - INTERVAL '5 months'
                        GROUP BY 1
                        ORDER BY 1`),
				},
				{
					Name:   "invoices",
					Tables: []string{"invoices"},
					Exec: listExec[TimePoint](`
                        SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS label,
                               COALESCE(SUM(paid_amount), 0)::float8 AS value
                        FROM invoices
                        WHERE tenant_id = $1
                          AND created_at >= date_trunc('month', CURRENT_DATE) - INTERVAL '5 months'
                        GROUP BY 1
                        ORDER BY 1`),
				},
			},
		},
		{
			Name:    MetricStudentsPerClass,
			Default: []ClassCount{},
			Sources: []query.Source{{
				Name:   "classes",
				Tables: []string{"classes", "students"},
				Exec: listExec[ClassCount](`
                    SELECT c.name, COUNT(s.id) AS students
                    FROM classes c
                    LEFT JOIN students s
                        ON s.class_id = c.id AND s.tenant_id = c.tenant_id AND s.status = 'active'
                    WHERE c.tenant_id = $1 AND c.status = 'active'
                    GROUP BY c.name
                    ORDER BY c.name`),
			}},
		},
		{
			Name:    MetricSettings,
			Default: map[string]string{},
			Sources: []query.Source{{
				Name:   "settings",
				Tables: []string{"settings"},
				Exec: kvExec(`
                    SELECT key, value
                    FROM settings
                    WHERE tenant_id = $1
                    ORDER BY key`),
			}},
		},
	}
}

// countExec scans a single COUNT into an int64. Aggregates always match a
// row, so the result is computed even when the count is zero.
func countExec(sql string) query.ExecFunc {
	return func(ctx context.Context, q query.Querier, p query.Params) (any, bool, error) {
		var n int64
		if err := q.GetContext(ctx, &n, sql, p.TenantID); err != nil {
			return nil, false, err
		}
		return n, true, nil
	}
}

// moneyExec scans a coalesced SUM into a float64; no matching rows means 0.
func moneyExec(sql string) query.ExecFunc {
	return func(ctx context.Context, q query.Querier, p query.Params) (any, bool, error) {
		var amount float64
		if err := q.GetContext(ctx, &amount, sql, p.TenantID); err != nil {
			return nil, false, err
		}
		return amount, true, nil
	}
}

type ratePair struct {
	Num float64 `db:"num"`
	Den float64 `db:"den"`
}

// rateExec scans a numerator/denominator pair and returns the percentage
// rounded to one decimal. A zero denominator yields 0.
func rateExec(sql string) query.ExecFunc {
	return func(ctx context.Context, q query.Querier, p query.Params) (any, bool, error) {
		var pair ratePair
		if err := q.GetContext(ctx, &pair, sql, p.TenantID); err != nil {
			return nil, false, err
		}
		return query.Pct(pair.Num, pair.Den), true, nil
	}
}

// listExec scans rows into a typed slice; an empty result reports no match
// so the runner can mark the metric unavailable-empty.
func listExec[T any](sql string) query.ExecFunc {
	return func(ctx context.Context, q query.Querier, p query.Params) (any, bool, error) {
		rows := []T{}
		if err := q.SelectContext(ctx, &rows, sql, p.TenantID); err != nil {
			return nil, false, err
		}
		return rows, len(rows) > 0, nil
	}
}

type kvRow struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

// kvExec folds key/value rows into a map.
func kvExec(sql string) query.ExecFunc {
	return func(ctx context.Context, q query.Querier, p query.Params) (any, bool, error) {
		var rows []kvRow
		if err := q.SelectContext(ctx, &rows, sql, p.TenantID); err != nil {
			return nil, false, err
		}
		m := make(map[string]string, len(rows))
		for _, r := range rows {
			m[r.Key] = r.Value
		}
		return m, len(m) > 0, nil
	}
}
