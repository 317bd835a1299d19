package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/edulane/edulane/internal/core"
)

// Registry looks up tenants in the provisioning directory.
type Registry interface {
	GetTenantBySlug(ctx context.Context, slug string) (*core.Tenant, error)
}

type PostgresRegistry struct {
	db *sqlx.DB
}

func NewConnection(databaseURL string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

func NewPostgresRegistry(db *sqlx.DB) *PostgresRegistry {
	return &PostgresRegistry{db: db}
}

func (r *PostgresRegistry) GetTenantBySlug(ctx context.Context, slug string) (*core.Tenant, error) {
	var t core.Tenant
	query := `
        SELECT id, slug, name, status, trial_ends_at, database_descriptor,
               primary_color, accent_color, created_at, updated_at
        FROM tenants
        WHERE slug = $1
    `

	err := r.db.GetContext(ctx, &t, query, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("registry lookup for %q: %w", slug, err)
	}

	return &t, nil
}

func (r *PostgresRegistry) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
