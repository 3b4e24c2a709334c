// Package logincmd implements the `shop login` command.
package logincmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-ports/storefront/cmd/shop/shared"
)

// Command implements `shop login`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	email    string
	password string
}

// New creates the login command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session on this device",
		Long: "Log in with email and password. When --password is omitted the password\n" +
			"is read from the first line of stdin.",
		RunE: c.run,
	}

	f := c.cmd.Flags()
	f.StringVar(&c.email, "email", "", "Account email (required)")
	f.StringVar(&c.password, "password", "", "Account password (default: read from stdin)")
	_ = c.cmd.MarkFlagRequired("email")

	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	password := c.password
	if password == "" {
		var err error
		if password, err = ReadPassword(cmd.InOrStdin()); err != nil {
			return err
		}
	}

	svc, err := c.ctx.Open(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	user, err := svc.Login(cmd.Context(), c.email, password)
	if err != nil {
		return errors.New("login failed")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", user.DisplayName())
	return nil
}

// ReadPassword reads the first line of r.
func ReadPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password is required")
	}
	return line, nil
}
