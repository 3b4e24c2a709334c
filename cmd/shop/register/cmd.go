// Package registercmd implements the `shop register` command.
package registercmd

import (
	"errors"

	"github.com/spf13/cobra"

	logincmd "github.com/go-ports/storefront/cmd/shop/login"
	"github.com/go-ports/storefront/cmd/shop/shared"
	"github.com/go-ports/storefront/internal/models"
)

// Command implements `shop register`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	email    string
	password string
	name     string
}

// New creates the register command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE:  c.run,
	}

	f := c.cmd.Flags()
	f.StringVar(&c.email, "email", "", "Account email (required)")
	f.StringVar(&c.password, "password", "", "Account password (default: read from stdin)")
	f.StringVar(&c.name, "name", "", "Full name")
	_ = c.cmd.MarkFlagRequired("email")

	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	password := c.password
	if password == "" {
		var err error
		if password, err = logincmd.ReadPassword(cmd.InOrStdin()); err != nil {
			return err
		}
	}

	req := models.RegisterRequest{Email: c.email, Password: password}
	if c.name != "" {
		req.FullName = &c.name
	}

	svc, err := c.ctx.Open(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	if _, err := svc.Register(cmd.Context(), req); err != nil {
		return errors.New("registration failed")
	}
	return nil
}
