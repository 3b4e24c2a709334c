// Package orderscmd implements the `shop orders` command group.
package orderscmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/storefront/cmd/shop/shared"
	"github.com/go-ports/storefront/internal/models"
	"github.com/go-ports/storefront/internal/receipt"
)

// Command implements `shop orders`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	skip  int
	limit int
}

// New creates the orders command group. Without a subcommand it lists orders.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "orders",
		Short: "List your orders",
		Args:  cobra.NoArgs,
		RunE:  c.runList,
	}
	f := c.cmd.Flags()
	f.IntVar(&c.skip, "skip", 0, "Orders to skip")
	f.IntVar(&c.limit, "limit", 10, "Maximum number of orders")

	c.cmd.AddCommand(newShow(ctx))
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) runList(cmd *cobra.Command, _ []string) error {
	svc, err := c.ctx.Open(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := shared.Require(svc, "/orders"); err != nil {
		return err
	}
	orders, err := svc.Orders(cmd.Context(), c.skip, c.limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(orders) == 0 {
		fmt.Fprintln(out, "No orders yet.")
		return nil
	}
	for _, o := range orders {
		created := o.CreatedAt
		if len(created) > 10 {
			created = created[:10]
		}
		fmt.Fprintf(out, " #%-6d %-10s %10s  %s\n", o.ID, o.Status, models.FormatPrice(o.TotalAmount), created)
	}
	return nil
}

// ---------------------------------------------------------------------------
// orders show
// ---------------------------------------------------------------------------

func newShow(ctx *shared.Context) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one order with its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := shared.ParseID("order", args[0])
			if err != nil {
				return err
			}
			svc, err := ctx.Open(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := shared.Require(svc, fmt.Sprintf("/orders/%d", id)); err != nil {
				return err
			}
			order, err := svc.Order(cmd.Context(), id)
			if err != nil {
				return err
			}

			names := make(map[int64]string, len(order.Items))
			for _, it := range order.Items {
				if p, err := svc.Product(cmd.Context(), it.ProductID); err == nil {
					names[it.ProductID] = p.Name
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, receipt.RenderOrder(order, names))

			if save {
				path, err := svc.SaveReceipt(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\nSaved receipt to %s\n", path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "Append the order to the monthly receipt ledger")
	return cmd
}
