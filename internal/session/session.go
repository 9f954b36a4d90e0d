// Package session persists the credential obtained at login and hands it to the
// workflows that need it.
package session

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/timmy/crafto/internal/domain"
)

// ErrSessionMissing means no credential is stored for the current session.
var ErrSessionMissing = errors.New("session: no credential stored")

// Store persists one credential per session key.
//
// Read never fails: a backend error is logged and reported as absent.
type Store interface {
	Save(ctx context.Context, key string, cred domain.Credential) error
	Read(ctx context.Context, key string) (domain.Credential, bool)
	Clear(ctx context.Context, key string) error
}

// Session binds a Store to one key, so callers never pass keys around.
type Session struct {
	store Store
	key   string
}

// New binds store to key.
func New(store Store, key string) *Session {
	return &Session{store: store, key: key}
}

// NewKey returns a fresh random session key.
func NewKey() string {
	return uuid.NewString()
}

// Key returns the bound session key.
func (s *Session) Key() string { return s.key }

// Renew returns a session on the same store under a fresh random key. s is
// left untouched.
func (s *Session) Renew() *Session {
	return New(s.store, NewKey())
}

// Save persists cred, replacing any previous credential.
func (s *Session) Save(ctx context.Context, cred domain.Credential) error {
	if cred.IsZero() {
		return errors.New("session: refusing to save an empty credential")
	}
	return s.store.Save(ctx, s.key, cred)
}

// Read returns the stored credential, if any.
func (s *Session) Read(ctx context.Context) (domain.Credential, bool) {
	cred, ok := s.store.Read(ctx, s.key)
	if !ok || cred.IsZero() {
		return domain.Credential{}, false
	}
	return cred, true
}

// Require returns the stored credential or ErrSessionMissing.
func (s *Session) Require(ctx context.Context) (domain.Credential, error) {
	cred, ok := s.Read(ctx)
	if !ok {
		return domain.Credential{}, ErrSessionMissing
	}
	return cred, nil
}

// Clear removes the stored credential.
func (s *Session) Clear(ctx context.Context) error {
	return s.store.Clear(ctx, s.key)
}

type currentKey struct{}

// WithCurrent attaches the session handling the current request or command.
func WithCurrent(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, currentKey{}, s)
}

// FromContext returns the session attached by WithCurrent.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(currentKey{}).(*Session)
	return s, ok && s != nil
}
