package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/storefront/internal/config"
)

func writeConfig(c *qt.C, body string) string {
	path := filepath.Join(c.TB.TempDir(), "config.yaml")
	c.Assert(os.WriteFile(path, []byte(body), 0o600), qt.IsNil)
	return path
}

func TestDefault_HappyPath(t *testing.T) {
	c := qt.New(t)
	cfg := config.Default()
	c.Assert(cfg, qt.IsNotNil)
	c.Assert(cfg.API.BaseURL, qt.Equals, "http://localhost:8000/api/v1")
	c.Assert(cfg.API.Timeout, qt.Equals, 30*time.Second)
	c.Assert(cfg.Cache.Backend, qt.Equals, "memory")
	c.Assert(cfg.Cache.Stale.Products, qt.Equals, 5*time.Minute)
	c.Assert(cfg.Cache.Stale.Categories, qt.Equals, 10*time.Minute)
	c.Assert(cfg.Cache.Stale.Orders, qt.Equals, 2*time.Minute)
	c.Assert(cfg.Cache.Stale.Cart, qt.Equals, time.Duration(0))
}

func TestLoad_HappyPath(t *testing.T) {
	c := qt.New(t)

	c.Run("non-existent file returns defaults without error", func(c *qt.C) {
		cfg, err := config.Load("/nonexistent/config.yaml")
		c.Assert(err, qt.IsNil)
		c.Assert(cfg.API.BaseURL, qt.Equals, "http://localhost:8000/api/v1")
	})

	tests := []struct {
		name        string
		yaml        string
		wantBaseURL string
		wantTimeout time.Duration
		wantBackend string
		wantRPS     float64
		wantOrders  time.Duration
	}{
		{
			name:        "api section overrides fields",
			yaml:        "api:\n  base_url: https://shop.example.com/api/v1\n  timeout: 5s\n  requests_per_second: 2.5\n",
			wantBaseURL: "https://shop.example.com/api/v1",
			wantTimeout: 5 * time.Second,
			wantBackend: "memory",
			wantRPS:     2.5,
			wantOrders:  2 * time.Minute,
		},
		{
			name:        "integer durations are seconds",
			yaml:        "api:\n  timeout: 7\ncache:\n  stale:\n    orders: 30\n",
			wantBaseURL: "http://localhost:8000/api/v1",
			wantTimeout: 7 * time.Second,
			wantBackend: "memory",
			wantRPS:     10,
			wantOrders:  30 * time.Second,
		},
		{
			name:        "redis backend selected",
			yaml:        "cache:\n  backend: redis\n  redis:\n    addr: redis:6379\n",
			wantBaseURL: "http://localhost:8000/api/v1",
			wantTimeout: 30 * time.Second,
			wantBackend: "redis",
			wantRPS:     10,
			wantOrders:  2 * time.Minute,
		},
	}

	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			cfg, err := config.Load(writeConfig(c, tt.yaml))
			c.Assert(err, qt.IsNil)
			c.Assert(cfg.API.BaseURL, qt.Equals, tt.wantBaseURL)
			c.Assert(cfg.API.Timeout, qt.Equals, tt.wantTimeout)
			c.Assert(cfg.Cache.Backend, qt.Equals, tt.wantBackend)
			c.Assert(cfg.API.RequestsPerSecond, qt.Equals, tt.wantRPS)
			c.Assert(cfg.Cache.Stale.Orders, qt.Equals, tt.wantOrders)
		})
	}
}

func TestLoad_FailurePath(t *testing.T) {
	c := qt.New(t)

	c.Run("bad duration string", func(c *qt.C) {
		_, err := config.Load(writeConfig(c, "api:\n  timeout: soon\n"))
		c.Assert(err, qt.ErrorMatches, "config: timeout: .*")
	})

	c.Run("invalid yaml", func(c *qt.C) {
		_, err := config.Load(writeConfig(c, "api: [unterminated\n"))
		c.Assert(err, qt.IsNotNil)
	})
}

func TestLoad_PartialOverrideRetainsDefaults(t *testing.T) {
	c := qt.New(t)

	cfg, err := config.Load(writeConfig(c, "cache:\n  stale:\n    products: 1m\n"))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Cache.Stale.Products, qt.Equals, time.Minute)
	c.Assert(cfg.Cache.Stale.Product, qt.Equals, 5*time.Minute)
	c.Assert(cfg.Cache.Redis.Prefix, qt.Equals, "shop:query:")
	c.Assert(cfg.Log.Level, qt.Equals, "warn")
}

func TestApplyEnv_HappyPath(t *testing.T) {
	c := qt.New(t)
	t.Setenv("SHOP_API_URL", "http://api.test/v1")
	t.Setenv("SHOP_CACHE_BACKEND", "redis")
	t.Setenv("SHOP_LOG_LEVEL", "debug")

	cfg := config.Default()
	cfg.ApplyEnv()
	c.Assert(cfg.API.BaseURL, qt.Equals, "http://api.test/v1")
	c.Assert(cfg.Cache.Backend, qt.Equals, "redis")
	c.Assert(cfg.SlogLevel(), qt.Equals, slog.LevelDebug)
}

func TestLoadDotEnv_HappyPath(t *testing.T) {
	c := qt.New(t)

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	c.Assert(os.WriteFile(envPath, []byte("SHOP_TEST_DOTENV=from-file\n"), 0o600), qt.IsNil)
	t.Setenv("SHOP_TEST_DOTENV", "")
	c.Assert(os.Unsetenv("SHOP_TEST_DOTENV"), qt.IsNil)

	err := config.LoadDotEnv(filepath.Join(dir, "missing.env"), envPath)
	c.Assert(err, qt.IsNil)
	c.Assert(os.Getenv("SHOP_TEST_DOTENV"), qt.Equals, "from-file")
}

func TestResolveShopHome_EnvOverride(t *testing.T) {
	c := qt.New(t)

	tmp := t.TempDir()
	t.Setenv("SHOP_HOME", tmp)

	path, source := config.ResolveShopHome()
	c.Assert(source, qt.Equals, "env")
	c.Assert(path, qt.Equals, tmp)
}

func TestPersistedShopHome_HappyPath(t *testing.T) {
	c := qt.New(t)

	t.Setenv("HOME", t.TempDir())
	t.Setenv("SHOP_HOME", "")

	target := filepath.Join(t.TempDir(), "shop")
	got, err := config.SetPersistedShopHome(target)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, target)

	path, source := config.ResolveShopHome()
	c.Assert(source, qt.Equals, "config")
	c.Assert(path, qt.Equals, target)

	changed, err := config.ClearPersistedShopHome()
	c.Assert(err, qt.IsNil)
	c.Assert(changed, qt.IsTrue)

	changed, err = config.ClearPersistedShopHome()
	c.Assert(err, qt.IsNil)
	c.Assert(changed, qt.IsFalse)
}
