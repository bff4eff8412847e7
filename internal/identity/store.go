// Package identity holds user records, plaintext credentials and the active
// session. This mirrors the demo's client-side account handling: passwords
// are stored and compared verbatim, there is no lockout and no rate limiting.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"moosedocs/internal/simulate"
	"moosedocs/internal/storage"
	"moosedocs/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrNotLoggedIn   = errors.New("no active user")
	ErrUsernameTaken = errors.New("username already exists")
)

const defaultAvatar = "/placeholder.svg?height=200&width=200"

type Store struct {
	mu        sync.RWMutex
	backend   storage.Backend
	users     []User
	passwords map[string]string // userID -> plaintext password
	active    *User
	delay     time.Duration
	onLogout  []func()
}

// NewStore loads any persisted users and session from the backend.
func NewStore(ctx context.Context, backend storage.Backend) (*Store, error) {
	s := &Store{
		backend:   backend,
		passwords: make(map[string]string),
	}

	if err := loadJSON(ctx, backend, storage.KeyUsers, &s.users); err != nil {
		return nil, err
	}
	if err := loadJSON(ctx, backend, storage.KeyPasswords, &s.passwords); err != nil {
		return nil, err
	}
	if s.passwords == nil {
		s.passwords = make(map[string]string)
	}
	var active User
	if err := loadJSON(ctx, backend, storage.KeyActiveUser, &active); err != nil {
		return nil, err
	}
	if active.ID != "" {
		s.active = &active
	}
	return s, nil
}

func loadJSON(ctx context.Context, backend storage.Backend, key string, dst any) error {
	data, err := backend.Load(ctx, key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SetLatency configures the simulated network delay applied to every call.
func (s *Store) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// OnLogout registers a hook run when the session is cleared, used to drop the
// open-document pointer.
func (s *Store) OnLogout(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = append(s.onLogout, fn)
}

func (s *Store) wait(ctx context.Context) error {
	s.mu.RLock()
	d := s.delay
	s.mu.RUnlock()
	return simulate.Wait(ctx, d)
}

// ActiveUser returns a snapshot of the logged-in user, if any.
func (s *Store) ActiveUser() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return User{}, false
	}
	return *s.active, true
}

// Login looks the username up case-insensitively and compares the password
// verbatim. A failed match reports false without an error.
func (s *Store) Login(ctx context.Context, username, password string) (bool, error) {
	if err := s.wait(ctx); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.users {
		if strings.EqualFold(s.users[i].Username, username) {
			if s.passwords[s.users[i].ID] != password {
				return false, nil
			}
			u := s.users[i]
			s.active = &u
			return true, s.persistSession(ctx)
		}
	}
	return false, nil
}

// Signup creates a user and logs them in immediately. Usernames are unique
// case-insensitively.
func (s *Store) Signup(ctx context.Context, username, password, firstName, lastName string) (User, error) {
	if err := s.wait(ctx); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.users {
		if strings.EqualFold(s.users[i].Username, username) {
			return User{}, ErrUsernameTaken
		}
	}

	u := User{
		ID:        uuid.NewString(),
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
		Avatar:    defaultAvatar,
	}
	s.users = append(s.users, u)
	s.passwords[u.ID] = password
	s.active = &u

	if err := s.persistAll(ctx); err != nil {
		return User{}, err
	}
	return u, nil
}

// Logout clears the session and fires the registered hooks.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.active = nil
	hooks := make([]func(), len(s.onLogout))
	copy(hooks, s.onLogout)
	err := s.backend.Delete(ctx, storage.KeyActiveUser)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	return err
}

// SearchUsers matches the query as a case-insensitive substring of username,
// first name or last name. An empty query returns no users rather than all
// of them.
func (s *Store) SearchUsers(ctx context.Context, query string) ([]User, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	if query == "" {
		return []User{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	matches := []User{}
	for _, u := range s.users {
		if strings.Contains(strings.ToLower(u.Username), q) ||
			strings.Contains(strings.ToLower(u.FirstName), q) ||
			strings.Contains(strings.ToLower(u.LastName), q) {
			matches = append(matches, u)
		}
	}
	return matches, nil
}

// UpdateProfile merges the non-nil fields into the active user record.
func (s *Store) UpdateProfile(ctx context.Context, updates ProfileUpdate) (User, error) {
	if err := s.wait(ctx); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return User{}, ErrNotLoggedIn
	}

	u := *s.active
	if updates.Username != nil {
		u.Username = *updates.Username
	}
	if updates.FirstName != nil {
		u.FirstName = *updates.FirstName
	}
	if updates.LastName != nil {
		u.LastName = *updates.LastName
	}
	if updates.Avatar != nil {
		u.Avatar = *updates.Avatar
	}

	for i := range s.users {
		if s.users[i].ID == u.ID {
			s.users[i] = u
			break
		}
	}
	s.active = &u

	if err := s.persistAll(ctx); err != nil {
		return User{}, err
	}
	return u, nil
}

// UpdateAvatar is sugar over UpdateProfile.
func (s *Store) UpdateAvatar(ctx context.Context, avatarURL string) (User, error) {
	return s.UpdateProfile(ctx, ProfileUpdate{Avatar: &avatarURL})
}

// RequestPasswordReset looks the user up and "sends" a notional reset email.
// No token is persisted or validated anywhere; the flow is informational only.
func (s *Store) RequestPasswordReset(ctx context.Context, username string) (bool, error) {
	if err := s.wait(ctx); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			logger.Sugar.Infof("Password reset requested for %s, sending reset email", u.Username)
			return true, nil
		}
	}
	return false, nil
}

// persistSession and persistAll are called with the lock held.

func (s *Store) persistSession(ctx context.Context) error {
	if s.active == nil {
		return s.backend.Delete(ctx, storage.KeyActiveUser)
	}
	data, err := json.Marshal(s.active)
	if err != nil {
		return err
	}
	return s.backend.Save(ctx, storage.KeyActiveUser, data)
}

func (s *Store) persistAll(ctx context.Context) error {
	users, err := json.Marshal(s.users)
	if err != nil {
		return err
	}
	if err := s.backend.Save(ctx, storage.KeyUsers, users); err != nil {
		return err
	}
	passwords, err := json.Marshal(s.passwords)
	if err != nil {
		return err
	}
	if err := s.backend.Save(ctx, storage.KeyPasswords, passwords); err != nil {
		return err
	}
	return s.persistSession(ctx)
}
