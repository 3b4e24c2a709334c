// Package admincmd implements the `shop admin` command group.
package admincmd

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/go-ports/storefront/cmd/shop/shared"
	"github.com/go-ports/storefront/internal/models"
	"github.com/go-ports/storefront/internal/storefront"
)

// Command implements `shop admin`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the admin command group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "admin",
		Short: "Manage the catalog (admin accounts only)",
	}

	product := &cobra.Command{Use: "product", Short: "Create, update or delete products"}
	product.AddCommand(newProductCreate(ctx), newProductUpdate(ctx), newProductDelete(ctx))

	category := &cobra.Command{Use: "category", Short: "Manage categories"}
	category.AddCommand(newCategoryCreate(ctx))

	c.cmd.AddCommand(newDashboard(ctx), product, category)
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

// open returns a service whose session may enter route.
func open(ctx *shared.Context, cmd *cobra.Command, route string) (*storefront.Service, error) {
	svc, err := ctx.Open(cmd)
	if err != nil {
		return nil, err
	}
	if err := shared.Require(svc, route); err != nil {
		_ = svc.Close()
		return nil, err
	}
	return svc, nil
}

// ---------------------------------------------------------------------------
// admin dashboard
// ---------------------------------------------------------------------------

func newDashboard(ctx *shared.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Summarise the catalog and orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := open(ctx, cmd, "/admin/dashboard")
			if err != nil {
				return err
			}
			defer svc.Close()

			sum, err := svc.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Products:   %d\n", sum.Products)
			fmt.Fprintf(out, "Categories: %d\n", sum.Categories)
			fmt.Fprintf(out, "Orders:     %d\n", sum.Orders)
			if len(sum.LowStock) > 0 {
				fmt.Fprintf(out, "\nLow stock (under %d):\n", storefront.LowStockThreshold)
				for _, p := range sum.LowStock {
					fmt.Fprintf(out, " [%d] %s: %d left\n", p.ID, p.Name, p.Stock)
				}
			}
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// admin product create / update / delete
// ---------------------------------------------------------------------------

type productFlags struct {
	sku         string
	name        string
	description string
	price       string
	stock       int
	category    int64
	imageURL    string
}

func (f *productFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.sku, "sku", "", "Stock keeping unit")
	fs.StringVar(&f.name, "name", "", "Product name")
	fs.StringVar(&f.description, "description", "", "Description")
	fs.StringVar(&f.price, "price", "", "Price, e.g. 12.50")
	fs.IntVar(&f.stock, "stock", 0, "Units in stock")
	fs.Int64Var(&f.category, "category", 0, "Category id")
	fs.StringVar(&f.imageURL, "image-url", "", "Image URL")
}

func newProductCreate(ctx *shared.Context) *cobra.Command {
	var f productFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			price, err := decimal.NewFromString(f.price)
			if err != nil {
				return fmt.Errorf("invalid --price %q", f.price)
			}
			in := models.ProductInput{SKU: f.sku, Name: f.name, Price: price, Stock: f.stock}
			if f.description != "" {
				in.Description = &f.description
			}
			if f.category > 0 {
				in.CategoryID = &f.category
			}
			if f.imageURL != "" {
				in.ImageURL = &f.imageURL
			}

			svc, err := open(ctx, cmd, "/admin/products")
			if err != nil {
				return err
			}
			defer svc.Close()

			p, err := svc.CreateProduct(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Product #%d: %s\n", p.ID, p.Name)
			return nil
		},
	}
	f.register(cmd)
	_ = cmd.MarkFlagRequired("sku")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func newProductUpdate(ctx *shared.Context) *cobra.Command {
	var f productFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update the given fields of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := shared.ParseID("product", args[0])
			if err != nil {
				return err
			}
			var in models.ProductUpdate
			flags := cmd.Flags()
			if flags.Changed("name") {
				in.Name = &f.name
			}
			if flags.Changed("description") {
				in.Description = &f.description
			}
			if flags.Changed("price") {
				price, err := decimal.NewFromString(f.price)
				if err != nil {
					return fmt.Errorf("invalid --price %q", f.price)
				}
				in.Price = &price
			}
			if flags.Changed("stock") {
				in.Stock = &f.stock
			}
			if flags.Changed("category") {
				in.CategoryID = &f.category
			}
			if flags.Changed("image-url") {
				in.ImageURL = &f.imageURL
			}

			svc, err := open(ctx, cmd, "/admin/products")
			if err != nil {
				return err
			}
			defer svc.Close()

			p, err := svc.UpdateProduct(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Product #%d: %s %s, %d in stock\n", p.ID, p.Name, models.FormatPrice(p.Price), p.Stock)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newProductDelete(ctx *shared.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := shared.ParseID("product", args[0])
			if err != nil {
				return err
			}
			svc, err := open(ctx, cmd, "/admin/products")
			if err != nil {
				return err
			}
			defer svc.Close()

			return svc.DeleteProduct(cmd.Context(), id)
		},
	}
}

// ---------------------------------------------------------------------------
// admin category create
// ---------------------------------------------------------------------------

func newCategoryCreate(ctx *shared.Context) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := models.CategoryInput{Name: args[0]}
			if description != "" {
				in.Description = &description
			}
			svc, err := open(ctx, cmd, "/admin/categories")
			if err != nil {
				return err
			}
			defer svc.Close()

			cat, err := svc.CreateCategory(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Category #%d: %s\n", cat.ID, cat.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Description")
	return cmd
}
