// Package cartcmd implements the `shop cart` command group.
package cartcmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/go-ports/storefront/cmd/shop/shared"
	"github.com/go-ports/storefront/internal/models"
	"github.com/go-ports/storefront/internal/storefront"
)

const route = "/cart"

// Command implements `shop cart`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the cart command group. Without a subcommand it prints the cart.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "cart",
		Short: "Show or change the shopping cart",
		Args:  cobra.NoArgs,
		RunE:  c.runShow,
	}
	c.cmd.AddCommand(
		newAdd(ctx),
		newUpdate(ctx),
		newRemove(ctx),
		newClear(ctx),
	)
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) runShow(cmd *cobra.Command, _ []string) error {
	return withCart(c.ctx, cmd, func(svc *storefront.Service) (*models.Cart, error) {
		return svc.RefreshCart(cmd.Context())
	})
}

// withCart opens the service, checks access, runs fn and prints the cart it
// returns.
func withCart(ctx *shared.Context, cmd *cobra.Command, fn func(*storefront.Service) (*models.Cart, error)) error {
	svc, err := ctx.Open(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := shared.Require(svc, route); err != nil {
		return err
	}
	cart, err := fn(svc)
	if err != nil {
		return err
	}
	Print(cmd.OutOrStdout(), cart)
	return nil
}

// Print renders cart as a table with a total line.
func Print(out io.Writer, cart *models.Cart) {
	if cart == nil || len(cart.Items) == 0 {
		fmt.Fprintln(out, "Your cart is empty.")
		return
	}
	for _, l := range cart.Items {
		fmt.Fprintf(out, " [%d] %-30s %3d x %10s = %10s\n",
			l.ProductID, models.Truncate(l.ProductName, 30), l.Quantity,
			models.FormatPrice(l.UnitPrice), models.FormatPrice(l.Subtotal()))
	}
	fmt.Fprintf(out, "\n Items: %d  Total: %s\n", cart.ItemCount, models.FormatPrice(cart.Total))
}

// ---------------------------------------------------------------------------
// cart add
// ---------------------------------------------------------------------------

func newAdd(ctx *shared.Context) *cobra.Command {
	var qty int
	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := shared.ParseID("product", args[0])
			if err != nil {
				return err
			}
			return withCart(ctx, cmd, func(svc *storefront.Service) (*models.Cart, error) {
				return svc.AddToCart(cmd.Context(), id, qty)
			})
		},
	}
	cmd.Flags().IntVarP(&qty, "quantity", "q", 1, "Units to add")
	return cmd
}

// ---------------------------------------------------------------------------
// cart update
// ---------------------------------------------------------------------------

func newUpdate(ctx *shared.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "update <product-id> <quantity>",
		Short: "Set the quantity of a cart line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := shared.ParseID("product", args[0])
			if err != nil {
				return err
			}
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			return withCart(ctx, cmd, func(svc *storefront.Service) (*models.Cart, error) {
				return svc.UpdateCartItem(cmd.Context(), id, qty)
			})
		},
	}
}

// ---------------------------------------------------------------------------
// cart remove
// ---------------------------------------------------------------------------

func newRemove(ctx *shared.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove a product from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := shared.ParseID("product", args[0])
			if err != nil {
				return err
			}
			return withCart(ctx, cmd, func(svc *storefront.Service) (*models.Cart, error) {
				return svc.RemoveCartItem(cmd.Context(), id)
			})
		},
	}
}

// ---------------------------------------------------------------------------
// cart clear
// ---------------------------------------------------------------------------

func newClear(ctx *shared.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every item from the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCart(ctx, cmd, func(svc *storefront.Service) (*models.Cart, error) {
				if err := svc.ClearCart(cmd.Context()); err != nil {
					return nil, err
				}
				return nil, nil
			})
		},
	}
}
