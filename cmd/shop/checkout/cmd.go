// Package checkoutcmd implements the `shop checkout` command.
package checkoutcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	cartcmd "github.com/go-ports/storefront/cmd/shop/cart"
	"github.com/go-ports/storefront/cmd/shop/shared"
	"github.com/go-ports/storefront/internal/models"
)

// Command implements `shop checkout`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	yes bool
}

// New creates the checkout command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the cart and request a payment intent",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}
	c.cmd.Flags().BoolVarP(&c.yes, "yes", "y", false, "Place the order without printing the cart first")
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

	if err := shared.Require(svc, "/checkout"); err != nil {
		return err
	}
	cart, err := svc.RefreshCart(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !c.yes {
		cartcmd.Print(out, cart)
		fmt.Fprintln(out)
	}

	result, err := svc.Checkout(cmd.Context())
	if result == nil || result.Order == nil {
		return err
	}
	fmt.Fprintf(out, "Order #%d (%s) total %s\n", result.Order.ID, result.Order.Status, models.FormatPrice(result.Order.TotalAmount))
	if result.Intent != nil {
		fmt.Fprintf(out, "Payment intent: %s\n", result.Intent.PaymentIntentID)
	}
	return err
}
