package tenantdb

import (
	"context"
	"sync"

	"github.com/jmoiron/sqlx"
)

// Conn is one request's lease on a tenant database. It is shared read-only
// across the metric queries of that request and released exactly once at
// request end.
type Conn struct {
	db         *sqlx.DB
	tenantID   string
	descriptor string
	pool       *Pool

	mu       sync.Mutex
	tables   map[string]bool
	released bool
}

// TenantID is included as a filter predicate in every metric query even
// though each school's database is already isolated.
func (c *Conn) TenantID() string {
	return c.tenantID
}

// TableExists probes the tenant schema for a table. Results are cached for
// the lifetime of the lease, so a request probes each table at most once.
func (c *Conn) TableExists(ctx context.Context, table string) (bool, error) {
	c.mu.Lock()
	if exists, ok := c.tables[table]; ok {
		c.mu.Unlock()
		return exists, nil
	}
	c.mu.Unlock()

	var exists bool
	query := `
        SELECT EXISTS (
            SELECT 1 FROM information_schema.tables
            WHERE table_schema = 'public' AND table_name = $1
        )`
	if err := c.db.GetContext(ctx, &exists, query, table); err != nil {
		return false, err
	}

	c.mu.Lock()
	c.tables[table] = exists
	c.mu.Unlock()
	return exists, nil
}

func (c *Conn) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return c.db.GetContext(ctx, dest, query, args...)
}

func (c *Conn) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return c.db.SelectContext(ctx, dest, query, args...)
}

// Release returns the lease to the pool. Safe to call from a defer; calling
// it twice is a no-op.
func (c *Conn) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return
	}
	c.released = true
	c.pool.release(c.descriptor)
}
