// Package session holds the authenticated identity and credential tokens and
// mirrors them into device storage so a later process can restore them.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/go-ports/storefront/internal/events"
	"github.com/go-ports/storefront/internal/models"
)

// Device storage keys. All three are written and cleared together.
const (
	KeyUser         = "user"
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

// Storage is the device storage the store persists into.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetMany(ctx context.Context, kv map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

// State is an immutable snapshot of the session.
// IsAuthenticated is true iff both User and AccessToken are present.
type State struct {
	User            *models.User
	AccessToken     string
	RefreshToken    string
	IsAuthenticated bool
}

// IsAdmin reports whether the session belongs to an admin identity.
func (s State) IsAdmin() bool {
	return s.User != nil && s.User.IsAdmin
}

// Store is the sole mutation authority for session state.
type Store struct {
	storage Storage
	bus     *events.Bus
	logger  *slog.Logger

	mu    sync.Mutex
	state State
}

// New returns an unauthenticated store backed by storage.
// A nil logger falls back to slog.Default().
func New(storage Storage, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{storage: storage, bus: events.New(), logger: logger}
}

// State returns a copy of the current session.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Tokens returns the current access and refresh tokens.
func (s *Store) Tokens() (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AccessToken, s.state.RefreshToken
}

// SetUser records the identity and persists it under KeyUser.
// The in-memory update always applies; a persistence failure is returned
// afterwards.
func (s *Store) SetUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("session.SetUser: nil user")
	}
	u := cloneUser(user)
	st := s.apply(func(st *State) { st.User = u })

	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("session.SetUser encode: %w", err)
	}
	if err := s.storage.SetMany(ctx, map[string]string{KeyUser: string(data)}); err != nil {
		return fmt.Errorf("session.SetUser persist: %w", err)
	}
	s.logger.Debug("session user set", "user_id", u.ID, "authenticated", st.IsAuthenticated)
	return nil
}

// SetTokens records both tokens and persists them in one write.
func (s *Store) SetTokens(ctx context.Context, access, refresh string) error {
	s.apply(func(st *State) {
		st.AccessToken = access
		st.RefreshToken = refresh
	})
	if err := s.storage.SetMany(ctx, map[string]string{
		KeyAccessToken:  access,
		KeyRefreshToken: refresh,
	}); err != nil {
		return fmt.Errorf("session.SetTokens persist: %w", err)
	}
	return nil
}

// SetSession replaces identity and tokens in one change, so subscribers never
// observe one account's user paired with another account's token.
func (s *Store) SetSession(ctx context.Context, user *models.User, access, refresh string) error {
	if user == nil {
		return fmt.Errorf("session.SetSession: nil user")
	}
	u := cloneUser(user)
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("session.SetSession encode: %w", err)
	}
	st := s.apply(func(st *State) {
		st.User = u
		st.AccessToken = access
		st.RefreshToken = refresh
	})
	if err := s.storage.SetMany(ctx, map[string]string{
		KeyUser:         string(data),
		KeyAccessToken:  access,
		KeyRefreshToken: refresh,
	}); err != nil {
		return fmt.Errorf("session.SetSession persist: %w", err)
	}
	s.logger.Debug("session set", "user_id", u.ID, "authenticated", st.IsAuthenticated)
	return nil
}

// UpdateTokens stores a refreshed token pair. It lets the API client rotate
// credentials without knowing about device storage.
func (s *Store) UpdateTokens(ctx context.Context, access, refresh string) error {
	return s.SetTokens(ctx, access, refresh)
}

// Logout clears every field and removes all persisted keys. Calling it on an
// already logged-out store leaves the same observable state.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.state = State{}
	s.mu.Unlock()

	s.bus.Publish(events.TopicSessionChanged, State{})
	s.bus.Publish(events.TopicLoggedOut)

	if err := s.storage.Delete(ctx, KeyUser, KeyAccessToken, KeyRefreshToken); err != nil {
		return fmt.Errorf("session.Logout persist: %w", err)
	}
	return nil
}

// Load restores the session from device storage. State is restored only when
// a well-formed user record and an access token are both present; a corrupt
// user record is treated as absent and removed.
func (s *Store) Load(ctx context.Context) error {
	rawUser, hasUser, err := s.storage.Get(ctx, KeyUser)
	if err != nil {
		return fmt.Errorf("session.Load user: %w", err)
	}
	access, hasAccess, err := s.storage.Get(ctx, KeyAccessToken)
	if err != nil {
		return fmt.Errorf("session.Load access token: %w", err)
	}
	refresh, _, err := s.storage.Get(ctx, KeyRefreshToken)
	if err != nil {
		return fmt.Errorf("session.Load refresh token: %w", err)
	}

	user, ok := decodeUser(rawUser)
	if hasUser && !ok {
		s.logger.Warn("discarding malformed persisted user", "key", KeyUser)
		if err := s.storage.Delete(ctx, KeyUser); err != nil {
			s.logger.Warn("failed to remove malformed user", "err", err)
		}
	}
	if !ok || !hasAccess || access == "" {
		return nil
	}

	s.apply(func(st *State) {
		st.User = user
		st.AccessToken = access
		st.RefreshToken = refresh
	})
	return nil
}

// Subscribe registers fn to receive the new State after every change.
// fn must not call back into this store's Subscribe or OnLogout.
func (s *Store) Subscribe(fn func(State)) error {
	return s.bus.Subscribe(events.TopicSessionChanged, fn)
}

// OnLogout registers fn to run after every Logout.
func (s *Store) OnLogout(fn func()) error {
	return s.bus.Subscribe(events.TopicLoggedOut, fn)
}

// apply mutates state under the lock, re-derives IsAuthenticated and
// publishes the result once the lock is released.
func (s *Store) apply(mutate func(*State)) State {
	s.mu.Lock()
	mutate(&s.state)
	s.state.IsAuthenticated = s.state.User != nil && s.state.AccessToken != ""
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.bus.Publish(events.TopicSessionChanged, st)
	return st
}

func (s *Store) snapshotLocked() State {
	st := s.state
	st.User = cloneUser(s.state.User)
	return st
}

// decodeUser parses a persisted identity. ok is false for empty, null or
// malformed records.
func decodeUser(raw string) (*models.User, bool) {
	if raw == "" {
		return nil, false
	}
	var u *models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil || u == nil {
		return nil, false
	}
	return u, true
}

func cloneUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	cp := *u
	if u.FullName != nil {
		name := *u.FullName
		cp.FullName = &name
	}
	return &cp
}

// TokenExpiry reads the exp claim of a JWT access token without verifying
// its signature. ok is false when the token is not a JWT or carries no exp.
func TokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Expired reports whether the access token carries an exp claim before now.
// Tokens without a readable exp are never reported as expired.
func (s State) Expired(now time.Time) bool {
	exp, ok := TokenExpiry(s.AccessToken)
	return ok && !now.Before(exp)
}
