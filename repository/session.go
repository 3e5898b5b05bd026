package repository

import (
	"context"

	"github.com/deskcore/backend/domain"
)

// SessionRepository stores server-side sessions with a TTL. Extend refreshes
// both the stored expiry and the backing key's lifetime.
type SessionRepository interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id string) error
	Extend(ctx context.Context, id string, ttlSeconds int) error
}
