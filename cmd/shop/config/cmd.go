// Package configcmd implements the `shop config` command group.
package configcmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/go-ports/storefront/cmd/shop/shared"
	"github.com/go-ports/storefront/internal/config"
)

const configTemplate = `# shop configuration

# Storefront REST API.
api:
  base_url: http://localhost:8000/api/v1
  timeout: 30s
  requests_per_second: 10       # 0 disables client-side pacing
  burst: 20

# Query cache. "memory" lives for one process; "redis" is shared between
# processes and survives restarts.
cache:
  backend: memory               # memory | redis
  # redis:
  #   addr: localhost:6379
  #   prefix: "shop:query:"
  stale:
    products: 5m
    categories: 10m
    orders: 2m

log:
  level: warn                   # debug | info | warn | error
`

// Command implements `shop config`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the config command group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "config",
		Short: "Show or manage configuration",
		RunE:  c.runShow,
	}
	c.cmd.AddCommand(
		newConfigInit(ctx),
		newSetHome(),
		newClearHome(),
	)
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) runShow(cmd *cobra.Command, _ []string) error {
	home, source := config.ResolveShopHome()
	if c.ctx.ShopHome != "" {
		home = c.ctx.ShopHome
		source = "flag"
	}
	cfg, err := config.Load(filepath.Join(home, "config.yaml"))
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	data := map[string]any{
		"api": map[string]any{
			"base_url":            cfg.API.BaseURL,
			"timeout":             cfg.API.Timeout.String(),
			"requests_per_second": cfg.API.RequestsPerSecond,
			"burst":               cfg.API.Burst,
		},
		"cache": map[string]any{
			"backend": cfg.Cache.Backend,
			"redis": map[string]any{
				"addr":     cfg.Cache.Redis.Addr,
				"db":       cfg.Cache.Redis.DB,
				"prefix":   cfg.Cache.Redis.Prefix,
				"password": redactSecret(cfg.Cache.Redis.Password),
			},
			"stale": map[string]any{
				"products":   cfg.Cache.Stale.Products.String(),
				"product":    cfg.Cache.Stale.Product.String(),
				"categories": cfg.Cache.Stale.Categories.String(),
				"orders":     cfg.Cache.Stale.Orders.String(),
				"order":      cfg.Cache.Stale.Order.String(),
				"cart":       cfg.Cache.Stale.Cart.String(),
			},
		},
		"log": map[string]any{
			"level": cfg.Log.Level,
		},
		"shop_home":        home,
		"shop_home_source": source,
	}
	b, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(b))
	return nil
}

// ---------------------------------------------------------------------------
// config init
// ---------------------------------------------------------------------------

func newConfigInit(ctx *shared.Context) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a starter config.yaml",
		RunE: func(cmd *cobra.Command, _ []string) error {
			home := ctx.ShopHome
			if home == "" {
				home = config.GetShopHome()
			}
			cfgPath := filepath.Join(home, "config.yaml")
			out := cmd.OutOrStdout()
			if _, err := os.Stat(cfgPath); err == nil && !force {
				fmt.Fprintf(out, "Config already exists at %s\n", cfgPath)
				fmt.Fprintln(out, "Use --force to overwrite.")
				return nil
			}
			if err := os.MkdirAll(home, 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(cfgPath, []byte(configTemplate), 0o600); err != nil {
				return err
			}
			fmt.Fprintf(out, "Created %s\n", cfgPath)
			fmt.Fprintln(out, "Edit api.base_url to point at your storefront.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config")
	return cmd
}

// ---------------------------------------------------------------------------
// config set-home
// ---------------------------------------------------------------------------

func newSetHome() *cobra.Command {
	return &cobra.Command{
		Use:   "set-home <path>",
		Short: "Persist shop home location (used when SHOP_HOME is unset)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := config.SetPersistedShopHome(args[0])
			if err != nil {
				return err
			}
			if err := os.MkdirAll(resolved, 0o755); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Persisted shop home: %s\n", resolved)
			fmt.Fprintln(out, "Override anytime with SHOP_HOME.")
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// config clear-home
// ---------------------------------------------------------------------------

func newClearHome() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-home",
		Short: "Remove persisted shop home location from global config",
		RunE: func(cmd *cobra.Command, _ []string) error {
			changed, err := config.ClearPersistedShopHome()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if changed {
				fmt.Fprintln(out, "Cleared persisted shop home setting.")
			} else {
				fmt.Fprintln(out, "No persisted shop home setting was found.")
			}
			return nil
		},
	}
}

func redactSecret(s string) string {
	if s != "" {
		return "<redacted>"
	}
	return ""
}
