package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/edulane/edulane/internal/core"
)

func TestLoadWithoutToken(t *testing.T) {
	// A tokenless request is absent by definition; the store must answer
	// without any redis round trip (the nil client would panic otherwise).
	s := NewStore(nil, 24*time.Hour, zap.NewNop())

	_, err := s.Load(context.Background(), "greenwood", "")
	if !errors.Is(err, core.ErrNoSession) {
		t.Fatalf("Load with empty token = %v, want ErrNoSession", err)
	}
}

func TestSessionKeyIsSlugScoped(t *testing.T) {
	a := sessionKey("greenwood", "tok-1")
	b := sessionKey("riverside", "tok-1")

	if a == b {
		t.Fatal("same token must map to different keys per school")
	}
	if a != "session:greenwood:tok-1" {
		t.Fatalf("key = %q", a)
	}
}
