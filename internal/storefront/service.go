// Package storefront implements the Service orchestrator that wires together
// configuration, device storage, the session and cart stores, the API client
// and the query cache.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/go-ports/storefront/internal/api"
	"github.com/go-ports/storefront/internal/cart"
	"github.com/go-ports/storefront/internal/config"
	"github.com/go-ports/storefront/internal/metrics"
	"github.com/go-ports/storefront/internal/query"
	"github.com/go-ports/storefront/internal/session"
	"github.com/go-ports/storefront/internal/storage"
)

var (
	// ErrEmptyCart is returned by Checkout when there is nothing to order.
	ErrEmptyCart = errors.New("storefront: cart is empty")
	// ErrNotLoggedIn is returned by operations that need an authenticated session.
	ErrNotLoggedIn = errors.New("storefront: not logged in")
	// ErrInvalidQuantity is returned for cart quantities below one.
	ErrInvalidQuantity = errors.New("storefront: quantity must be greater than 0")
)

// LowStockThreshold marks products shown as low stock on the dashboard.
const LowStockThreshold = 5

// Options tunes a Service. Zero values select the defaults.
type Options struct {
	Notifier   Notifier
	Logger     *slog.Logger
	HTTPClient *http.Client
	Registry   *prometheus.Registry
}

// Service orchestrates all storefront operations.
type Service struct {
	ShopHome    string
	ReceiptsDir string
	Config      *config.ShopConfig

	Session  *session.Store
	Cart     *cart.Store
	API      *api.Client
	Queries  *query.Client
	Registry *prometheus.Registry

	storage  *storage.DB
	metrics  metrics.Recorder
	notifier Notifier
	logger   *slog.Logger
}

// New initialises a Service rooted at shopHome and restores any persisted
// session. If shopHome is empty it is resolved via config.GetShopHome.
func New(ctx context.Context, shopHome string, opts Options) (*Service, error) {
	if shopHome == "" {
		shopHome = config.GetShopHome()
	}
	if err := os.MkdirAll(shopHome, 0o755); err != nil {
		return nil, fmt.Errorf("storefront.New: create home: %w", err)
	}

	if err := config.LoadDotEnv(filepath.Join(shopHome, ".env")); err != nil {
		return nil, fmt.Errorf("storefront.New: %w", err)
	}
	cfg, err := config.Load(filepath.Join(shopHome, "config.yaml"))
	if err != nil {
		return nil, fmt.Errorf("storefront.New: load config: %w", err)
	}
	cfg.ApplyEnv()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	rec := metrics.NewCollector(registry)

	db, err := storage.Open(filepath.Join(shopHome, "device.db"))
	if err != nil {
		return nil, fmt.Errorf("storefront.New: open storage: %w", err)
	}

	backend, err := query.NewBackend(ctx, cfg.Cache)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storefront.New: %w", err)
	}

	s := &Service{
		ShopHome:    shopHome,
		ReceiptsDir: filepath.Join(shopHome, "receipts"),
		Config:      cfg,
		Session:     session.New(db, logger),
		Cart:        cart.New(),
		Queries:     query.New(backend, query.Options{Metrics: rec, Logger: logger}),
		Registry:    registry,
		storage:     db,
		metrics:     rec,
		notifier:    notifier,
		logger:      logger,
	}
	s.API = api.New(api.Options{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           cfg.API.Timeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
		Tokens:            s.Session,
		Metrics:           rec,
		Logger:            logger,
		HTTPClient:        opts.HTTPClient,
		OnAuthFailure:     s.expire,
	})

	if err := s.Session.OnLogout(s.onLogout); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("storefront.New: %w", err)
	}
	if err := s.Session.Load(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("storefront.New: %w", err)
	}
	return s, nil
}

// Close releases all resources held by the service.
func (s *Service) Close() error {
	return errors.Join(s.Queries.Close(), s.storage.Close())
}

// onLogout drops everything tied to the previous identity.
func (s *Service) onLogout() {
	s.Cart.Clear()
	if err := s.Queries.InvalidateAll(context.Background()); err != nil {
		s.logger.Warn("failed to drop cached queries on logout", "err", err)
	}
}

// expire ends a session the server no longer accepts.
func (s *Service) expire(ctx context.Context) {
	if !s.Session.State().IsAuthenticated {
		return
	}
	if err := s.Session.Logout(ctx); err != nil {
		s.logger.Warn("failed to clear expired session", "err", err)
	}
	s.notifier.Error("Session expired, please login again")
}

// requireLogin returns ErrNotLoggedIn when the session is anonymous.
func (s *Service) requireLogin() error {
	if !s.Session.State().IsAuthenticated {
		return ErrNotLoggedIn
	}
	return nil
}

// userKey builds the cache key of a user-owned resource. The session user ID
// is part of the key because the cache backend may be shared by processes
// holding different sessions.
func (s *Service) userKey(resource string, parts ...any) string {
	var id int64
	if u := s.Session.State().User; u != nil {
		id = u.ID
	}
	return query.Key(resource, append([]any{"u" + strconv.FormatInt(id, 10)}, parts...)...)
}

// invalidate drops cached queries, logging rather than failing the caller.
func (s *Service) invalidate(ctx context.Context, resources ...string) {
	if err := s.Queries.Invalidate(ctx, resources...); err != nil {
		s.logger.Warn("query invalidation failed", "resources", resources, "err", err)
	}
}

// fail reports err through the notifier and returns it.
func (s *Service) fail(err error, fallback string) error {
	s.notifier.Error(api.Message(err, fallback))
	return err
}
