package tenantdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/edulane/edulane/internal/core"
)

func TestAcquireWithoutDescriptor(t *testing.T) {
	p := NewPool(time.Minute, zap.NewNop())
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := p.Acquire(ctx, &core.Tenant{Slug: "greenwood"})
	if !errors.Is(err, core.ErrNoDescriptor) {
		t.Fatalf("Acquire with empty descriptor = %v, want ErrNoDescriptor", err)
	}

	p.mu.Lock()
	open := len(p.conns)
	p.mu.Unlock()
	if open != 0 {
		t.Fatalf("pool opened %d handles for a tenant with no descriptor", open)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	p := NewPool(time.Minute, zap.NewNop())
	defer p.Close()

	e := &entry{lastUsed: time.Now(), leases: 1}
	p.conns["dsn"] = e

	c := &Conn{descriptor: "dsn", pool: p, tables: make(map[string]bool)}
	c.Release()
	c.Release()

	if e.leases != 0 {
		t.Fatalf("leases = %d after double release, want 0", e.leases)
	}
}

func TestCloseIdleKeepsLeasedHandles(t *testing.T) {
	p := NewPool(time.Millisecond, zap.NewNop())
	defer p.Close()

	p.conns["leased"] = &entry{lastUsed: time.Now().Add(-time.Hour), leases: 1}

	// Nil db would panic on Close; a leased entry must never reach it.
	p.closeIdle()

	p.mu.Lock()
	_, ok := p.conns["leased"]
	p.mu.Unlock()
	if !ok {
		t.Fatal("closeIdle evicted a handle with an outstanding lease")
	}
}
