package storefront

import (
	"context"

	"github.com/go-ports/storefront/internal/models"
)

// Register creates an account. The returned user is recorded in the session
// store but no tokens are issued; the caller still has to Login.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	user, err := s.API.Register(ctx, req)
	if err != nil {
		return nil, s.fail(err, "Registration failed")
	}
	if err := s.Session.SetUser(ctx, user); err != nil {
		s.logger.Warn("failed to persist registered user", "err", err)
	}
	s.notifier.Success("Registration successful! Please login.")
	return user, nil
}

// Login exchanges credentials for tokens, fetches the profile and records
// both in the session store. A failure at any step leaves the store untouched.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	pair, err := s.API.Login(ctx, email, password)
	if err != nil {
		return nil, s.fail(err, "Login failed")
	}
	user, err := s.API.MeWithToken(ctx, pair.AccessToken)
	if err != nil {
		return nil, s.fail(err, "Login failed")
	}

	// Drop anything cached for a previous identity.
	s.Cart.Clear()
	if err := s.Queries.InvalidateAll(ctx); err != nil {
		s.logger.Warn("failed to drop cached queries on login", "err", err)
	}

	if err := s.Session.SetSession(ctx, user, pair.AccessToken, pair.RefreshToken); err != nil {
		s.logger.Warn("session not persisted", "err", err)
	}
	s.notifier.Success("Login successful!")
	return user, nil
}

// Logout clears the session; the logout hook then clears the cart and the
// query cache.
func (s *Service) Logout(ctx context.Context) error {
	err := s.Session.Logout(ctx)
	s.notifier.Success("Logged out successfully")
	return err
}

// Whoami re-reads the profile from the server and updates the session store.
func (s *Service) Whoami(ctx context.Context) (*models.User, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	user, err := s.API.Me(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Session.SetUser(ctx, user); err != nil {
		s.logger.Warn("failed to persist profile", "err", err)
	}
	return user, nil
}
