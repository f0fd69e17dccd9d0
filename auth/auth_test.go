package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/stratlab/journal"
)

const secret = "this-is-a-very-secure-and-long-secret-key-generated-randomly"

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := journal.Open(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	s, err := New(store, secret, time.Hour)
	require.NoError(t, err)
	return s
}

func TestValidateSecret(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"empty", "", true},
		{"short", "too-short-secret-key", true},
		{"long enough", secret, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSecret(tt.secret)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestSignupLogin(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	require.NoError(t, s.Signup(ctx, "alice", "correct-horse"))
	assert.ErrorIs(t, s.Signup(ctx, "alice", "another-pass"), ErrUserExists)

	tok, err := s.Login(ctx, "alice", "correct-horse")
	require.NoError(t, err)

	who, err := s.Identify(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", who)

	_, err = s.Login(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Login(ctx, "bob", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignupValidation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	assert.Error(t, s.Signup(ctx, "", "password1"))
	assert.Error(t, s.Signup(ctx, "Anonymous", "password1"))
	assert.Error(t, s.Signup(ctx, "a b", "password1"))
	assert.Error(t, s.Signup(ctx, "carol", "short"))
}

func TestIdentify(t *testing.T) {
	s := newTestService(t)

	who, err := s.Identify("")
	require.NoError(t, err)
	assert.Equal(t, Anonymous, who)
	assert.True(t, IsAnonymous(who))

	_, err = s.Identify("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := New(nil, secret+"-other", time.Hour)
	require.NoError(t, err)
	tok, err := other.Issue("mallory")
	require.NoError(t, err)
	_, err = s.Identify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIdentify_Expired(t *testing.T) {
	s := newTestService(t)
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return issued }

	tok, err := s.Issue("alice")
	require.NoError(t, err)

	s.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = s.Identify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
