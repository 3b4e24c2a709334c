// Package productscmd implements the `shop products` command group.
package productscmd

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/go-ports/storefront/cmd/shop/shared"
	"github.com/go-ports/storefront/internal/models"
)

// Command implements `shop products`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	search   string
	category int64
	minPrice string
	maxPrice string
	skip     int
	limit    int
}

// New creates the products command group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "products",
		Short: "Browse the catalog",
		Args:  cobra.NoArgs,
		RunE:  c.runList,
	}

	f := c.cmd.Flags()
	f.StringVar(&c.search, "search", "", "Match against name and description")
	f.Int64Var(&c.category, "category", 0, "Only products in this category id")
	f.StringVar(&c.minPrice, "min-price", "", "Lowest price, e.g. 5.00")
	f.StringVar(&c.maxPrice, "max-price", "", "Highest price, e.g. 25.00")
	f.IntVar(&c.skip, "skip", 0, "Products to skip")
	f.IntVar(&c.limit, "limit", 20, "Maximum number of products")

	c.cmd.AddCommand(newShow(ctx), newCategories(ctx))
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) runList(cmd *cobra.Command, _ []string) error {
	f := models.ProductFilters{Skip: c.skip, Limit: c.limit, CategoryID: c.category, Search: c.search}
	var err error
	if f.MinPrice, err = parsePrice("min-price", c.minPrice); err != nil {
		return err
	}
	if f.MaxPrice, err = parsePrice("max-price", c.maxPrice); err != nil {
		return err
	}

	svc, err := c.ctx.Open(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	products, err := svc.Products(cmd.Context(), f)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(products) == 0 {
		fmt.Fprintln(out, "No products found.")
		return nil
	}
	fmt.Fprintf(out, "\n Products (%d shown)\n\n", len(products))
	for _, p := range products {
		stock := fmt.Sprintf("%d in stock", p.Stock)
		if p.Stock == 0 {
			stock = "out of stock"
		}
		fmt.Fprintf(out, " [%d] %-30s %10s  %s\n", p.ID, models.Truncate(p.Name, 30), models.FormatPrice(p.Price), stock)
	}
	return nil
}

func parsePrice(flag, v string) (*decimal.Decimal, error) {
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q", flag, v)
	}
	return &d, nil
}

// ---------------------------------------------------------------------------
// products show
// ---------------------------------------------------------------------------

func newShow(ctx *shared.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := shared.ParseID("product", args[0])
			if err != nil {
				return err
			}
			svc, err := ctx.Open(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			p, err := svc.Product(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", p.Name, p.SKU)
			fmt.Fprintf(out, "Price: %s\n", models.FormatPrice(p.Price))
			fmt.Fprintf(out, "Stock: %d\n", p.Stock)
			if p.Description != nil && *p.Description != "" {
				fmt.Fprintf(out, "\n%s\n", *p.Description)
			}
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// products categories
// ---------------------------------------------------------------------------

func newCategories(ctx *shared.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List product categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := ctx.Open(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			cats, err := svc.Categories(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(cats) == 0 {
				fmt.Fprintln(out, "No categories found.")
				return nil
			}
			for _, cat := range cats {
				fmt.Fprintf(out, " [%d] %s\n", cat.ID, cat.Name)
			}
			return nil
		},
	}
}
