package core

import (
	"time"

	"github.com/google/uuid"
)

type TenantStatus string

const (
	TenantActive    TenantStatus = "active"
	TenantTrial     TenantStatus = "trial"
	TenantSuspended TenantStatus = "suspended"
)

// Tenant is one school's identity in the registry. Records are created by the
// provisioning pipeline and are read-only to the console.
type Tenant struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	Slug        string       `json:"slug" db:"slug"`
	Name        string       `json:"name" db:"name"`
	Status      TenantStatus `json:"status" db:"status"`
	TrialEndsAt *time.Time   `json:"trial_ends_at,omitempty" db:"trial_ends_at"`

	// DatabaseDescriptor is the DSN of the school's isolated database.
	// Never serialized to clients.
	DatabaseDescriptor string `json:"-" db:"database_descriptor"`

	// Branding
	PrimaryColor string `json:"primary_color" db:"primary_color"`
	AccentColor  string `json:"accent_color" db:"accent_color"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (t *Tenant) Suspended() bool {
	return t.Status == TenantSuspended
}

// TrialExpired reports whether a trial tenant's trial window has passed.
func (t *Tenant) TrialExpired(now time.Time) bool {
	return t.Status == TenantTrial && t.TrialEndsAt != nil && now.After(*t.TrialEndsAt)
}
