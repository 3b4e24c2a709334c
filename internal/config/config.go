// Package config handles configuration loading and shop home resolution.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Config types
// ---------------------------------------------------------------------------

// APIConfig holds settings for the storefront REST API.
type APIConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"` // 0 disables pacing
	Burst             int           `yaml:"burst"`
}

// RedisConfig holds connection settings for the redis query cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"` // #nosec G117 -- redis AUTH password read from the user's own config
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// StaleConfig holds per-resource staleness windows for cached queries.
type StaleConfig struct {
	Products   time.Duration `yaml:"products"`
	Product    time.Duration `yaml:"product"`
	Categories time.Duration `yaml:"categories"`
	Orders     time.Duration `yaml:"orders"`
	Order      time.Duration `yaml:"order"`
	Cart       time.Duration `yaml:"cart"`
}

// CacheConfig selects and tunes the query cache.
type CacheConfig struct {
	Backend string      `yaml:"backend"` // "memory" | "redis"
	Redis   RedisConfig `yaml:"redis"`
	Stale   StaleConfig `yaml:"stale"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string `yaml:"level"` // "debug" | "info" | "warn" | "error"
}

// ShopConfig is the root per-home configuration.
type ShopConfig struct {
	API   APIConfig   `yaml:"api"`
	Cache CacheConfig `yaml:"cache"`
	Log   LogConfig   `yaml:"log"`
}

// Default returns a ShopConfig populated with sensible defaults.
func Default() *ShopConfig {
	return &ShopConfig{
		API: APIConfig{
			BaseURL:           "http://localhost:8000/api/v1",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 10,
			Burst:             20,
		},
		Cache: CacheConfig{
			Backend: "memory",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "shop:query:",
			},
			Stale: StaleConfig{
				Products:   5 * time.Minute,
				Product:    5 * time.Minute,
				Categories: 10 * time.Minute,
				Orders:     2 * time.Minute,
			},
		},
		Log: LogConfig{Level: "warn"},
	}
}

// Load reads a config.yaml from path.
// If the file does not exist it returns Default() with no error.
// Missing keys retain their default values.
func Load(path string) (*ShopConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	// Unmarshal into a plain map so we can apply only the keys that are present.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	if api, ok := raw["api"].(map[string]any); ok {
		if v, ok := api["base_url"].(string); ok && v != "" {
			cfg.API.BaseURL = v
		}
		if err := setDuration(api, "timeout", &cfg.API.Timeout); err != nil {
			return nil, err
		}
		if v, ok := number(api["requests_per_second"]); ok {
			cfg.API.RequestsPerSecond = v
		}
		if v, ok := api["burst"].(int); ok {
			cfg.API.Burst = v
		}
	}

	if cache, ok := raw["cache"].(map[string]any); ok {
		if v, ok := cache["backend"].(string); ok && v != "" {
			cfg.Cache.Backend = v
		}
		if r, ok := cache["redis"].(map[string]any); ok {
			if v, ok := r["addr"].(string); ok && v != "" {
				cfg.Cache.Redis.Addr = v
			}
			if v, ok := r["password"].(string); ok {
				cfg.Cache.Redis.Password = v
			}
			if v, ok := r["db"].(int); ok {
				cfg.Cache.Redis.DB = v
			}
			if v, ok := r["prefix"].(string); ok && v != "" {
				cfg.Cache.Redis.Prefix = v
			}
		}
		if s, ok := cache["stale"].(map[string]any); ok {
			for key, dst := range map[string]*time.Duration{
				"products":   &cfg.Cache.Stale.Products,
				"product":    &cfg.Cache.Stale.Product,
				"categories": &cfg.Cache.Stale.Categories,
				"orders":     &cfg.Cache.Stale.Orders,
				"order":      &cfg.Cache.Stale.Order,
				"cart":       &cfg.Cache.Stale.Cart,
			} {
				if err := setDuration(s, key, dst); err != nil {
					return nil, err
				}
			}
		}
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		if v, ok := lg["level"].(string); ok && v != "" {
			cfg.Log.Level = v
		}
	}

	return cfg, nil
}

// ApplyEnv overrides config values from SHOP_* environment variables.
func (c *ShopConfig) ApplyEnv() {
	if v := os.Getenv("SHOP_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("SHOP_CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("SHOP_REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv("SHOP_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// SlogLevel maps Log.Level to a slog.Level, defaulting to warn.
func (c *ShopConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// LoadDotEnv loads KEY=VALUE pairs from each existing file into the process
// environment. Missing files are skipped; variables already set win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}

// setDuration parses m[key] as a Go duration string ("5m") or a number of
// seconds and stores it in dst when present.
func setDuration(m map[string]any, key string, dst *time.Duration) error {
	switch v := m[key].(type) {
	case nil:
		return nil
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = d
	case int:
		*dst = time.Duration(v) * time.Second
	case float64:
		*dst = time.Duration(v * float64(time.Second))
	default:
		return fmt.Errorf("config: %s: unsupported value %v", key, v)
	}
	return nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// ---------------------------------------------------------------------------
// Shop home resolution
// ---------------------------------------------------------------------------

// globalConfigPath returns the path to the global shop config file.
// This file stores only shop_home.
func globalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "shop", "config.yaml"), nil
}

// normalizePath expands ~ and makes the path absolute.
func normalizePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(os.ExpandEnv(path))
}

// ResolveShopHome returns the shop home path and the source of the resolution.
// Priority: SHOP_HOME env → persisted global config → ~/.shop
// source is one of "env", "config", or "default".
func ResolveShopHome() (path, source string) {
	if env := os.Getenv("SHOP_HOME"); env != "" {
		p, err := normalizePath(env)
		if err == nil {
			return p, "env"
		}
	}

	if persisted, ok, _ := GetPersistedShopHome(); ok {
		return persisted, "config"
	}

	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".shop"), "default"
}

// GetShopHome returns the resolved shop home path.
func GetShopHome() string {
	path, _ := ResolveShopHome()
	return path
}

// GetPersistedShopHome reads shop_home from the global config.
// Returns ("", false, nil) if not set.
func GetPersistedShopHome() (string, bool, error) {
	cfgPath, err := globalConfigPath()
	if err != nil {
		return "", false, err
	}

	raw, err := readGlobal(cfgPath)
	if err != nil || raw == nil {
		return "", false, err
	}

	val, _ := raw["shop_home"].(string)
	val = strings.TrimSpace(val)
	if val == "" {
		return "", false, nil
	}

	p, err := normalizePath(val)
	if err != nil {
		return "", false, err
	}
	return p, true, nil
}

// SetPersistedShopHome normalizes path and persists it in the global config.
// Returns the normalized path.
func SetPersistedShopHome(path string) (string, error) {
	normalized, err := normalizePath(path)
	if err != nil {
		return "", err
	}

	cfgPath, err := globalConfigPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return "", err
	}

	// Preserve any other keys in the global config.
	raw, _ := readGlobal(cfgPath)
	if raw == nil {
		raw = make(map[string]any)
	}
	raw["shop_home"] = normalized

	out, err := yaml.Marshal(raw)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(cfgPath, out, 0o600); err != nil {
		return "", err
	}
	return normalized, nil
}

// ClearPersistedShopHome removes shop_home from the global config.
// Returns true if the key was present and removed.
// If the file becomes empty after removal it is deleted.
func ClearPersistedShopHome() (bool, error) {
	cfgPath, err := globalConfigPath()
	if err != nil {
		return false, err
	}

	raw, err := readGlobal(cfgPath)
	if err != nil || raw == nil {
		return false, err
	}
	if _, ok := raw["shop_home"]; !ok {
		return false, nil
	}
	delete(raw, "shop_home")

	if len(raw) == 0 {
		_ = os.Remove(cfgPath)
		return true, nil
	}

	out, err := yaml.Marshal(raw)
	if err != nil {
		return false, err
	}
	return true, os.WriteFile(cfgPath, out, 0o600)
}

// readGlobal returns the parsed global config, or nil when it is missing or
// not valid YAML.
func readGlobal(cfgPath string) (map[string]any, error) {
	data, err := os.ReadFile(cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil
	}
	return raw, nil
}
