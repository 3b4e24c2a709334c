// Package mcpcmd implements the `shop mcp` command.
package mcpcmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-ports/storefront/cmd/shop/shared"
	internalmcp "github.com/go-ports/storefront/internal/mcp"
	"github.com/go-ports/storefront/internal/metrics"
)

// Command implements `shop mcp`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	metricsAddr string
}

// New creates the mcp command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "mcp",
		Short: "Start the shop MCP server (stdio transport)",
		RunE:  c.run,
	}
	c.cmd.Flags().StringVar(&c.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. 127.0.0.1:9464")
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	// stdout carries the MCP protocol; notifications are logged instead.
	cmd.SetOut(cmd.ErrOrStderr())
	svc, err := c.ctx.Open(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	if c.metricsAddr != "" {
		srv := &http.Server{
			Addr:              c.metricsAddr,
			Handler:           metrics.Handler(svc.Registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Warn("metrics server stopped", "addr", c.metricsAddr, "err", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	return internalmcp.Serve(cmd.Context(), svc)
}
