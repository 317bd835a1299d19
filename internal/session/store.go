package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/edulane/edulane/internal/core"
)

// CookieName is the browser cookie holding the session token.
const CookieName = "edulane_session"

// Store keeps session records in redis, keyed per school slug so a token can
// never be replayed against another school. Sessions have a fixed idle
// lifetime; each load pushes expiry out by the full TTL (touch-on-access),
// nothing more.
type Store struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewClient(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	return redis.NewClient(opt), nil
}

func NewStore(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Store {
	return &Store{rdb: rdb, ttl: ttl, logger: logger}
}

func sessionKey(slug, token string) string {
	return fmt.Sprintf("session:%s:%s", slug, token)
}

// Load returns the identity stored for (slug, token). A missing record, an
// expired record, or a record minted for a different slug all come back as
// core.ErrNoSession; callers cannot distinguish them, deliberately.
func (s *Store) Load(ctx context.Context, slug, token string) (*core.SessionIdentity, error) {
	if token == "" {
		return nil, core.ErrNoSession
	}

	data, err := s.rdb.Get(ctx, sessionKey(slug, token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("session read: %w", err)
	}

	var identity core.SessionIdentity
	if err := json.Unmarshal(data, &identity); err != nil {
		s.logger.Warn("discarding undecodable session record",
			zap.String("school_slug", slug), zap.Error(err))
		return nil, core.ErrNoSession
	}

	// The key is already slug-scoped; this guards against a record written
	// under the wrong key ever authenticating cross-tenant.
	if !identity.ValidFor(slug) {
		return nil, core.ErrNoSession
	}

	return &identity, nil
}

// Touch extends the idle expiry of an existing session with a single EXPIRE.
// The key TTL is authoritative for idle expiry; the record's ExpiresAt is
// advisory and goes stale between touches. Failures are not fatal to the
// request; the session simply expires on its old schedule.
func (s *Store) Touch(ctx context.Context, slug, token string) error {
	ok, err := s.rdb.Expire(ctx, sessionKey(slug, token), s.ttl).Result()
	if err != nil {
		return fmt.Errorf("session touch: %w", err)
	}
	if !ok {
		return core.ErrNoSession
	}
	return nil
}

// Create mints a session for an authenticated user and returns its token.
func (s *Store) Create(ctx context.Context, slug, userID, userType string) (string, error) {
	now := time.Now()
	identity := core.SessionIdentity{
		SchoolSlug: slug,
		UserID:     userID,
		UserType:   userType,
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.ttl),
	}

	data, err := json.Marshal(identity)
	if err != nil {
		return "", err
	}

	token := uuid.NewString()
	if err := s.rdb.Set(ctx, sessionKey(slug, token), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("session write: %w", err)
	}
	return token, nil
}

// Destroy removes the session record. Destroying an absent session is a no-op.
func (s *Store) Destroy(ctx context.Context, slug, token string) error {
	return s.rdb.Del(ctx, sessionKey(slug, token)).Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
