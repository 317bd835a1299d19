package dashboard

import "time"

// Row shapes for the list, series, and distribution metrics. These are what
// the view layer receives inside MetricResult.Value.

type Announcement struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Event struct {
	ID       string    `db:"id" json:"id"`
	Title    string    `db:"title" json:"title"`
	StartsAt time.Time `db:"starts_at" json:"starts_at"`
}

type AuditEntry struct {
	ID        string    `db:"id" json:"id"`
	Actor     string    `db:"actor" json:"actor"`
	Action    string    `db:"action" json:"action"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Transaction struct {
	ID        string    `db:"id" json:"id"`
	Amount    float64   `db:"amount" json:"amount"`
	Method    string    `db:"method" json:"method"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type MethodAmount struct {
	Method string  `db:"method" json:"method"`
	Amount float64 `db:"amount" json:"amount"`
}

type ClassCount struct {
	Name     string `db:"name" json:"name"`
	Students int64  `db:"students" json:"students"`
}

type TimePoint struct {
	Label string  `db:"label" json:"label"`
	Value float64 `db:"value" json:"value"`
}
