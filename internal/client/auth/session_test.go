package auth

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/repotest"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func token(t *testing.T, subject string, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: subject}
	if !exp.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any-secret"))
	require.NoError(t, err)
	return s
}

func newStore(t *testing.T) metadata.Repository {
	return metadata.NewSQLiteRepository(repotest.NewDB(t))
}

func TestSignInSignOut(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	s, err := NewSession(ctx, store)
	require.NoError(t, err)

	_, ok := s.CurrentUserID()
	assert.False(t, ok)

	var events []string
	unsubscribe := s.OnAuthStateChange(func(userID string, signedIn bool) {
		if signedIn {
			events = append(events, "in:"+userID)
		} else {
			events = append(events, "out:"+userID)
		}
	})

	tok := token(t, "user-1", time.Now().Add(time.Hour))
	userID, err := s.SignIn(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	got, ok := s.CurrentUserID()
	require.True(t, ok)
	assert.Equal(t, "user-1", got)
	assert.Equal(t, tok, s.AccessToken())

	stored, err := store.Get(ctx, metadata.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, tok, string(stored))

	require.NoError(t, s.SignOut(ctx))
	_, ok = s.CurrentUserID()
	assert.False(t, ok)
	assert.Empty(t, s.AccessToken())

	unsubscribe()
	_, err = s.SignIn(ctx, tok)
	require.NoError(t, err)

	assert.Equal(t, []string{"in:user-1", "out:user-1"}, events)
}

func TestSignIn_RejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	s, err := NewSession(ctx, newStore(t))
	require.NoError(t, err)

	_, err = s.SignIn(ctx, "not-a-jwt")
	require.ErrorIs(t, err, common.ErrInvalidToken)

	_, err = s.SignIn(ctx, token(t, "", time.Now().Add(time.Hour)))
	require.ErrorIs(t, err, common.ErrInvalidToken)

	_, err = s.SignIn(ctx, token(t, "u", time.Now().Add(-time.Minute)))
	require.ErrorIs(t, err, common.ErrInvalidToken)

	_, ok := s.CurrentUserID()
	assert.False(t, ok)
}

func TestNewSession_RestoresStoredToken(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.Set(ctx, metadata.KeyAccessToken, []byte(token(t, "user-9", time.Time{}))))

	s, err := NewSession(ctx, store)
	require.NoError(t, err)

	got, ok := s.CurrentUserID()
	require.True(t, ok)
	assert.Equal(t, "user-9", got)
}

func TestNewSession_DropsStaleToken(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.Set(ctx, metadata.KeyAccessToken, []byte("garbage")))

	s, err := NewSession(ctx, store)
	require.NoError(t, err)
	_, ok := s.CurrentUserID()
	assert.False(t, ok)

	v, err := store.Get(ctx, metadata.KeyAccessToken)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestCurrentUserID_ExpiresWithClock(t *testing.T) {
	ctx := context.Background()
	s, err := NewSession(ctx, newStore(t))
	require.NoError(t, err)

	now := time.Now()
	s.now = func() time.Time { return now }
	_, err = s.SignIn(ctx, token(t, "u", now.Add(time.Minute)))
	require.NoError(t, err)

	s.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, ok := s.CurrentUserID()
	assert.False(t, ok)
}

func TestSignIn_DifferentUserResetsSyncProgress(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	s, err := NewSession(ctx, store)
	require.NoError(t, err)

	checkpoint := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	exp := time.Now().Add(time.Hour)

	_, err = s.SignIn(ctx, token(t, "alice", exp))
	require.NoError(t, err)
	require.NoError(t, store.SetTime(ctx, metadata.KeyCheckpoint, checkpoint))

	require.NoError(t, s.SignOut(ctx))
	_, err = s.SignIn(ctx, token(t, "alice", exp))
	require.NoError(t, err)
	got, err := store.GetTime(ctx, metadata.KeyCheckpoint)
	require.NoError(t, err)
	assert.True(t, checkpoint.Equal(got), "same user keeps the checkpoint")

	_, err = s.SignIn(ctx, token(t, "bob", exp))
	require.NoError(t, err)
	got, err = store.GetTime(ctx, metadata.KeyCheckpoint)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}
