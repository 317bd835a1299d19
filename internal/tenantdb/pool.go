package tenantdb

import (
	"context"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/edulane/edulane/internal/core"
)

// Pool hands out connections to per-school databases. A handle is opened
// lazily the first time a school's descriptor is seen, reused by later
// requests for the same school, and closed by the janitor once it has been
// idle with no outstanding leases.
//
// A lease is only ever acquired after the access guard has authorized the
// request; the guard chain makes it impossible to reach Acquire otherwise.
type Pool struct {
	mu      sync.Mutex
	conns   map[string]*entry
	idleTTL time.Duration
	logger  *zap.Logger
	done    chan struct{}
	once    sync.Once
}

// dialTimeout bounds the connectivity check on first acquisition of a
// descriptor.
const dialTimeout = 5 * time.Second

type entry struct {
	db       *sqlx.DB
	lastUsed time.Time
	leases   int
}

func NewPool(idleTTL time.Duration, logger *zap.Logger) *Pool {
	p := &Pool{
		conns:   make(map[string]*entry),
		idleTTL: idleTTL,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go p.janitor()
	return p
}

// Acquire returns a leased connection to the tenant's database. A tenant
// without a descriptor fails fast with core.ErrNoDescriptor; the pool never
// substitutes a default database.
func (p *Pool) Acquire(ctx context.Context, t *core.Tenant) (*Conn, error) {
	if t.DatabaseDescriptor == "" {
		return nil, core.ErrNoDescriptor
	}

	p.mu.Lock()
	e, ok := p.conns[t.DatabaseDescriptor]
	if ok {
		e.leases++
		e.lastUsed = time.Now()
		p.mu.Unlock()
		return p.newConn(e, t), nil
	}
	p.mu.Unlock()

	// Open outside the lock; descriptor dialing can be slow.
	db, err := sqlx.Open("postgres", t.DatabaseDescriptor)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	// First acquisition verifies the descriptor actually dials; bound it so
	// an unreachable tenant database cannot hang the request.
	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		db.Close()
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if racer, ok := p.conns[t.DatabaseDescriptor]; ok {
		// Another request opened the same descriptor first.
		db.Close()
		racer.leases++
		racer.lastUsed = time.Now()
		return p.newConn(racer, t), nil
	}

	e = &entry{db: db, lastUsed: time.Now(), leases: 1}
	p.conns[t.DatabaseDescriptor] = e
	p.logger.Info("opened tenant database handle", zap.String("school_slug", t.Slug))
	return p.newConn(e, t), nil
}

func (p *Pool) newConn(e *entry, t *core.Tenant) *Conn {
	return &Conn{
		db:         e.db,
		tenantID:   t.ID.String(),
		descriptor: t.DatabaseDescriptor,
		pool:       p,
		tables:     make(map[string]bool),
	}
}

func (p *Pool) release(descriptor string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.conns[descriptor]; ok && e.leases > 0 {
		e.leases--
		e.lastUsed = time.Now()
	}
}

func (p *Pool) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.closeIdle()
		}
	}
}

func (p *Pool) closeIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	cutoff := time.Now().Add(-p.idleTTL)
	for descriptor, e := range p.conns {
		if e.leases == 0 && e.lastUsed.Before(cutoff) {
			e.db.Close()
			delete(p.conns, descriptor)
		}
	}
}

// Close shuts the janitor down and closes every handle regardless of leases.
func (p *Pool) Close() {
	p.once.Do(func() { close(p.done) })
	p.mu.Lock()
	defer p.mu.Unlock()
	for descriptor, e := range p.conns {
		e.db.Close()
		delete(p.conns, descriptor)
	}
}
