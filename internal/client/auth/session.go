// Package auth keeps track of who is signed in on this device.
//
// The client never verifies token signatures; it only reads the subject
// claim to learn the user id. The sync server verifies every call.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Listener is told about every sign-in and sign-out.
type Listener func(userID string, signedIn bool)

// Session is safe for concurrent use.
type Session struct {
	store metadata.Repository
	now   func() time.Time

	mu        sync.RWMutex
	token     string
	userID    string
	expiresAt time.Time
	listeners map[int]Listener
	nextID    int
}

// NewSession restores a previously stored token, if any. A stored token
// that no longer parses or has expired is discarded.
func NewSession(ctx context.Context, store metadata.Repository) (*Session, error) {
	s := &Session{store: store, now: time.Now, listeners: map[int]Listener{}}

	raw, err := store.Get(ctx, metadata.KeyAccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to load access token: %w", err)
	}
	if len(raw) == 0 {
		return s, nil
	}

	userID, exp, err := s.parse(string(raw))
	if err != nil {
		if err := store.Delete(ctx, metadata.KeyAccessToken); err != nil {
			return nil, fmt.Errorf("failed to drop stale access token: %w", err)
		}
		return s, nil
	}
	s.token, s.userID, s.expiresAt = string(raw), userID, exp
	return s, nil
}

func (s *Session) parse(token string) (string, time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", time.Time{}, fmt.Errorf("%w: no subject", common.ErrInvalidToken)
	}
	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
		if !s.now().Before(exp) {
			return "", time.Time{}, fmt.Errorf("%w: expired", common.ErrInvalidToken)
		}
	}
	return claims.Subject, exp, nil
}

// CurrentUserID reports the signed-in user. An expired token counts as
// signed out.
func (s *Session) CurrentUserID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.userID == "" {
		return "", false
	}
	if !s.expiresAt.IsZero() && !s.now().Before(s.expiresAt) {
		return "", false
	}
	return s.userID, true
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SignIn accepts a token issued by the sync server and persists it.
func (s *Session) SignIn(ctx context.Context, token string) (string, error) {
	userID, exp, err := s.parse(token)
	if err != nil {
		return "", err
	}
	if err := s.resetSyncForNewUser(ctx, userID); err != nil {
		return "", err
	}
	if err := s.store.Set(ctx, metadata.KeyAccessToken, []byte(token)); err != nil {
		return "", fmt.Errorf("failed to store access token: %w", err)
	}

	s.mu.Lock()
	s.token, s.userID, s.expiresAt = token, userID, exp
	listeners := s.snapshot()
	s.mu.Unlock()

	for _, l := range listeners {
		l(userID, true)
	}
	return userID, nil
}

// resetSyncForNewUser drops the sync checkpoint when userID differs from the
// user it was recorded for, so the next pull starts from the beginning.
func (s *Session) resetSyncForNewUser(ctx context.Context, userID string) error {
	prev, err := s.store.Get(ctx, metadata.KeyLastUserID)
	if err != nil {
		return err
	}
	if prev != nil && string(prev) != userID {
		if err := s.store.DeletePrefix(ctx, metadata.SyncPrefix); err != nil {
			return err
		}
	}
	return s.store.Set(ctx, metadata.KeyLastUserID, []byte(userID))
}

func (s *Session) SignOut(ctx context.Context) error {
	s.mu.Lock()
	userID := s.userID
	s.token, s.userID, s.expiresAt = "", "", time.Time{}
	listeners := s.snapshot()
	s.mu.Unlock()

	err := s.store.Delete(ctx, metadata.KeyAccessToken)
	if userID != "" {
		for _, l := range listeners {
			l(userID, false)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to remove access token: %w", err)
	}
	return nil
}

// OnAuthStateChange registers fn and returns a function that removes it.
func (s *Session) OnAuthStateChange(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Session) snapshot() []Listener {
	out := make([]Listener, 0, len(s.listeners))
	for i := 0; i < s.nextID; i++ {
		if l, ok := s.listeners[i]; ok {
			out = append(out, l)
		}
	}
	return out
}
