// Package shared holds the context passed to all CLI commands.
package shared

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/go-ports/storefront/internal/cart"
	"github.com/go-ports/storefront/internal/guard"
	"github.com/go-ports/storefront/internal/models"
	"github.com/go-ports/storefront/internal/session"
	"github.com/go-ports/storefront/internal/storefront"
)

// Context carries global CLI state (flags set on the root command).
type Context struct {
	// ShopHome overrides the shop home directory.
	// When empty, resolution falls through to SHOP_HOME env var → persisted config → ~/.shop.
	ShopHome string
	// Verbose forces debug logging regardless of log.level in config.yaml.
	Verbose bool
}

// Open creates a Service for cmd. Notifications go to the command's stdout
// and stderr; logs go to stderr at the configured level.
func (c *Context) Open(cmd *cobra.Command) (*storefront.Service, error) {
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	svc, err := storefront.New(cmd.Context(), c.ShopHome, storefront.Options{
		Notifier: storefront.WriterNotifier{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()},
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	if c.Verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(svc.Config.SlogLevel())
	}
	if err := watch(svc, logger); err != nil {
		_ = svc.Close()
		return nil, err
	}
	return svc, nil
}

// watch logs every session and cart change at debug level.
func watch(svc *storefront.Service, logger *slog.Logger) error {
	if err := svc.Session.Subscribe(func(st session.State) {
		logger.Debug("session changed", "authenticated", st.IsAuthenticated, "admin", st.IsAdmin())
	}); err != nil {
		return fmt.Errorf("shared.watch session: %w", err)
	}
	if err := svc.Cart.Subscribe(func(snap cart.Snapshot) {
		lines, total := 0, "$0.00"
		if snap.Cart != nil {
			lines, total = len(snap.Cart.Items), models.FormatPrice(snap.Cart.Total)
		}
		logger.Debug("cart changed", "revision", snap.Revision, "lines", lines, "total", total)
	}); err != nil {
		return fmt.Errorf("shared.watch cart: %w", err)
	}
	return nil
}

// Require fails with a readable message when the current session may not
// enter route.
func Require(svc *storefront.Service, route string) error {
	err := guard.Require(svc.Session.State(), route)
	var re *guard.RedirectError
	if !errors.As(err, &re) {
		return err
	}
	if re.To == guard.LoginPath {
		return fmt.Errorf("not logged in: run `shop login` first")
	}
	return fmt.Errorf("admin access required")
}

// ParseID parses a positive numeric identifier argument.
func ParseID(kind, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, arg)
	}
	return id, nil
}
