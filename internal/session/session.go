package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/warlaundry/washerman/internal/domain"
)

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID        string         `json:"id"`
	Token     string         `json:"token"`
	Profile   domain.Profile `json:"profile"`
	CreatedAt time.Time      `json:"created_at"`
}

func New(token string, profile domain.Profile, now time.Time) Session {
	return Session{
		ID:        uuid.NewString(),
		Token:     token,
		Profile:   profile,
		CreatedAt: now,
	}
}

// Store keeps sessions by id. Get returns ErrNotFound for unknown or expired ids.
type Store interface {
	Get(ctx context.Context, id string) (Session, error)
	Save(ctx context.Context, s Session) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	// Cleanup drops expired sessions and reports how many went.
	Cleanup(ctx context.Context) (int, error)
}
