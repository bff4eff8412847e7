package identity

import (
	"context"
	"testing"

	"moosedocs/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *storage.Memory) {
	backend := storage.NewMemory()
	s, err := NewStore(context.Background(), backend)
	require.NoError(t, err)
	return s, backend
}

func TestSignupAndLogin(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	u, err := s.Signup(ctx, "alice", "pw1", "Alice", "Smith")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice", u.Username)

	// Signup logs the user in immediately.
	active, ok := s.ActiveUser()
	require.True(t, ok)
	assert.Equal(t, u.ID, active.ID)

	require.NoError(t, s.Logout(ctx))
	_, ok = s.ActiveUser()
	assert.False(t, ok)

	// Login is case-insensitive on username, exact on password, and
	// idempotent across repeated attempts.
	for i := 0; i < 3; i++ {
		ok, err := s.Login(ctx, "ALICE", "pw1")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err = s.Login(ctx, "alice", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Login(ctx, "nobody", "pw1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignupRejectsCaseInsensitiveDuplicate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Signup(ctx, "alice", "pw1", "", "")
	require.NoError(t, err)

	_, err = s.Signup(ctx, "Alice", "pw2", "", "")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestSearchUsers(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Signup(ctx, "johndoe", "pw", "John", "Doe")
	require.NoError(t, err)
	_, err = s.Signup(ctx, "janedoe", "pw", "Jane", "Doe")
	require.NoError(t, err)

	results, err := s.SearchUsers(ctx, "DOE")
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = s.SearchUsers(ctx, "jane")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "janedoe", results[0].Username)

	// Empty query returns an empty result, not all users.
	results, err = s.SearchUsers(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestUpdateProfile(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	first := "Bobby"
	_, err := s.UpdateProfile(ctx, ProfileUpdate{FirstName: &first})
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	u, err := s.Signup(ctx, "bob", "pw", "Bob", "Jones")
	require.NoError(t, err)

	updated, err := s.UpdateProfile(ctx, ProfileUpdate{FirstName: &first})
	require.NoError(t, err)
	assert.Equal(t, "Bobby", updated.FirstName)
	assert.Equal(t, "Jones", updated.LastName)

	avatar := "https://cdn.example.com/bob.png"
	updated, err = s.UpdateAvatar(ctx, avatar)
	require.NoError(t, err)
	assert.Equal(t, avatar, updated.Avatar)

	// The stored record matches the active session.
	results, err := s.SearchUsers(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, u.ID, results[0].ID)
	assert.Equal(t, "Bobby", results[0].FirstName)
}

func TestRequestPasswordReset(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Signup(ctx, "carol", "pw", "", "")
	require.NoError(t, err)

	ok, err := s.RequestPasswordReset(ctx, "CAROL")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.RequestPasswordReset(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateSurvivesReload(t *testing.T) {
	s, backend := newTestStore(t)
	ctx := context.Background()

	u, err := s.Signup(ctx, "dave", "pw9", "Dave", "Miller")
	require.NoError(t, err)

	// A fresh store over the same backend reconstructs users, credentials
	// and the active session.
	reloaded, err := NewStore(ctx, backend)
	require.NoError(t, err)

	active, ok := reloaded.ActiveUser()
	require.True(t, ok)
	assert.Equal(t, u, active)

	require.NoError(t, reloaded.Logout(ctx))
	ok2, err := reloaded.Login(ctx, "dave", "pw9")
	require.NoError(t, err)
	assert.True(t, ok2)
}

func TestLogoutHooksFire(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Signup(ctx, "erin", "pw", "", "")
	require.NoError(t, err)

	fired := false
	s.OnLogout(func() { fired = true })
	require.NoError(t, s.Logout(ctx))
	assert.True(t, fired)
}
