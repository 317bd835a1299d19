package core

import "time"

// Roles recognized by the console. Pages declare which of these satisfy
// their guard.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
	RoleTeacher    = "teacher"
	RoleParent     = "parent"
)

// SessionIdentity is the authenticated principal for exactly one school.
// It is minted at login and read back on every request; a session whose
// SchoolSlug does not match the resolved tenant is treated as absent.
type SessionIdentity struct {
	SchoolSlug string    `json:"school_slug"`
	UserID     string    `json:"user_id"`
	UserType   string    `json:"user_type"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ValidFor reports whether the session belongs to the given school slug.
func (s *SessionIdentity) ValidFor(slug string) bool {
	return s.SchoolSlug != "" && s.SchoolSlug == slug
}

func (s *SessionIdentity) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// HasRole reports whether the session's role is one of the given roles.
func (s *SessionIdentity) HasRole(roles ...string) bool {
	for _, r := range roles {
		if s.UserType == r {
			return true
		}
	}
	return false
}
