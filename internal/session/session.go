// Package session implements server side sessions. The client only holds an
// opaque ID in a cookie, everything else lives in a Store.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores for missing and expired sessions
var ErrNotFound = errors.New("session not found")

type Session struct {
	ID        string    `json:"-"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}
