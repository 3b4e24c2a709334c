// Package logoutcmd implements the `shop logout` command.
package logoutcmd

import (
	"github.com/spf13/cobra"

	"github.com/go-ports/storefront/cmd/shop/shared"
)

// Command implements `shop logout`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the logout command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "logout",
		Short: "Forget the session stored on this device",
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	svc, err := c.ctx.Open(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	return svc.Logout(cmd.Context())
}
