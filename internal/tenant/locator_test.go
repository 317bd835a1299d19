package tenant

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/edulane/edulane/internal/core"
)

type fakeRegistry struct {
	tenants map[string]*core.Tenant
	calls   int
}

func (f *fakeRegistry) GetTenantBySlug(_ context.Context, slug string) (*core.Tenant, error) {
	f.calls++
	t, ok := f.tenants[slug]
	if !ok {
		return nil, core.ErrTenantNotFound
	}
	return t, nil
}

func newTestLocator(t *testing.T, reg Registry) *Locator {
	t.Helper()
	loc, err := NewLocator(reg, 128, time.Minute, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewLocator: %v", err)
	}
	t.Cleanup(loc.Close)
	return loc
}

func TestResolveMalformedSlug(t *testing.T) {
	reg := &fakeRegistry{}
	loc := newTestLocator(t, reg)

	for _, slug := range []string{"", "UPPER", "has space", "-leading", "trailing-", "under_score", "a/b"} {
		if _, err := loc.Resolve(context.Background(), slug); !errors.Is(err, core.ErrInvalidSlug) {
			t.Errorf("Resolve(%q) = %v, want ErrInvalidSlug", slug, err)
		}
	}
	if reg.calls != 0 {
		t.Errorf("registry consulted %d times for malformed slugs, want 0", reg.calls)
	}
}

func TestResolveUnknownSlug(t *testing.T) {
	loc := newTestLocator(t, &fakeRegistry{tenants: map[string]*core.Tenant{}})

	if _, err := loc.Resolve(context.Background(), "unknown-school"); !errors.Is(err, core.ErrTenantNotFound) {
		t.Fatalf("Resolve(unknown-school) = %v, want ErrTenantNotFound", err)
	}
}

func TestResolveKnownSlug(t *testing.T) {
	want := &core.Tenant{Slug: "greenwood", Name: "Greenwood Academy", Status: core.TenantActive}
	reg := &fakeRegistry{tenants: map[string]*core.Tenant{"greenwood": want}}
	loc := newTestLocator(t, reg)

	got, err := loc.Resolve(context.Background(), "greenwood")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Slug != "greenwood" || got.Name != "Greenwood Academy" {
		t.Fatalf("Resolve returned %+v", got)
	}
}

func TestResolveUsesCache(t *testing.T) {
	want := &core.Tenant{Slug: "greenwood", Status: core.TenantActive}
	reg := &fakeRegistry{tenants: map[string]*core.Tenant{"greenwood": want}}
	loc := newTestLocator(t, reg)

	if _, err := loc.Resolve(context.Background(), "greenwood"); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	loc.Wait()
	if _, err := loc.Resolve(context.Background(), "greenwood"); err != nil {
		t.Fatalf("second Resolve: %v", err)
	}

	if reg.calls != 1 {
		t.Errorf("registry consulted %d times, want 1 (second hit served from cache)", reg.calls)
	}
}
