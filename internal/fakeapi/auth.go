package fakeapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/go-ports/storefront/internal/models"
)

type ctxKey struct{}

// claims are carried by both token kinds.
type claims struct {
	Type       string `json:"type"`
	Generation int    `json:"gen"`
	jwt.RegisteredClaims
}

func (s *Server) issue(userID int64, kind string, ttl time.Duration) (string, error) {
	t := time.Now()
	c := claims{
		Type:       kind,
		Generation: s.generation,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(t),
			ExpiresAt: jwt.NewNumericDate(t.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("fakeapi: sign token: %w", err)
	}
	return signed, nil
}

func (s *Server) tokenPair(userID int64) (*models.TokenPair, error) {
	access, err := s.issue(userID, "access", s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issue(userID, "refresh", s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// verify parses a token of the given kind and returns its user ID.
// Caller holds s.mu.
func (s *Server) verify(token, kind string) (int64, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return 0, err
	}
	if !parsed.Valid || c.Type != kind {
		return 0, errors.New("wrong token type")
	}
	if kind == "access" && c.Generation != s.generation {
		return 0, errors.New("token revoked")
	}
	return strconv.ParseInt(c.Subject, 10, 64)
}

func (s *Server) accountByID(id int64) *account {
	for _, acc := range s.accounts {
		if acc.user.ID == id {
			return acc
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func (s *Server) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		s.mu.Lock()
		id, err := s.verify(token, "access")
		var user *models.User
		if err == nil {
			if acc := s.accountByID(id); acc != nil && acc.user.IsActive {
				u := acc.user
				user = &u
			}
		}
		s.mu.Unlock()
		if user == nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, user)))
	})
}

func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !currentUser(r).IsAdmin {
			writeDetail(w, http.StatusForbidden, "Admin privileges required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func currentUser(r *http.Request) *models.User {
	u, _ := r.Context().Value(ctxKey{}).(*models.User)
	if u == nil {
		return &models.User{}
	}
	return u
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

// POST /auth/register
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	var problems []string
	if !strings.Contains(req.Email, "@") {
		problems = append(problems, "value is not a valid email address")
	}
	if len(req.Password) < 8 {
		problems = append(problems, "password must be at least 8 characters")
	}
	if len(problems) > 0 {
		writeValidation(w, problems...)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[req.Email]; exists {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	writeJSON(w, http.StatusCreated, s.addUserLocked(req.Email, req.Password, req.FullName, false))
}

// POST /auth/login
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[req.Email]
	if !ok || acc.password != req.Password {
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	if !acc.user.IsActive {
		writeDetail(w, http.StatusUnauthorized, "Account is inactive")
		return
	}
	pair, err := s.tokenPair(acc.user.ID)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// POST /auth/refresh
func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.verify(req.RefreshToken, "refresh")
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	acc := s.accountByID(id)
	if acc == nil || !acc.user.IsActive {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	pair, err := s.tokenPair(id)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// GET /auth/me
func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}
