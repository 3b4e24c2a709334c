// Package whoamicmd implements the `shop whoami` command.
package whoamicmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-ports/storefront/cmd/shop/shared"
	"github.com/go-ports/storefront/internal/redaction"
	"github.com/go-ports/storefront/internal/session"
)

// Command implements `shop whoami`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	offline bool
}

// New creates the whoami command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		RunE:  c.run,
	}
	c.cmd.Flags().BoolVar(&c.offline, "offline", false, "Show the stored session without contacting the API")
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

	out := cmd.OutOrStdout()
	st := svc.Session.State()
	if !st.IsAuthenticated {
		fmt.Fprintln(out, "Not logged in.")
		return nil
	}

	user := st.User
	if !c.offline {
		if user, err = svc.Whoami(cmd.Context()); err != nil {
			return err
		}
	}

	role := "customer"
	if user.IsAdmin {
		role = "admin"
	}
	fmt.Fprintf(out, "%s <%s> (%s)\n", user.DisplayName(), user.Email, role)
	fmt.Fprintf(out, "Token: %s\n", redaction.MaskToken(svc.Session.State().AccessToken))
	if exp, ok := session.TokenExpiry(svc.Session.State().AccessToken); ok {
		fmt.Fprintf(out, "Expires: %s\n", exp.Local().Format(time.RFC3339))
	}
	return nil
}
