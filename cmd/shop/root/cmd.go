// Package rootcmd wires the root cobra.Command for the shop CLI binary.
package rootcmd

import (
	"github.com/spf13/cobra"

	admincmd "github.com/go-ports/storefront/cmd/shop/admin"
	cartcmd "github.com/go-ports/storefront/cmd/shop/cart"
	checkoutcmd "github.com/go-ports/storefront/cmd/shop/checkout"
	configcmd "github.com/go-ports/storefront/cmd/shop/config"
	logincmd "github.com/go-ports/storefront/cmd/shop/login"
	logoutcmd "github.com/go-ports/storefront/cmd/shop/logout"
	mcpcmd "github.com/go-ports/storefront/cmd/shop/mcp"
	orderscmd "github.com/go-ports/storefront/cmd/shop/orders"
	productscmd "github.com/go-ports/storefront/cmd/shop/products"
	registercmd "github.com/go-ports/storefront/cmd/shop/register"
	"github.com/go-ports/storefront/cmd/shop/shared"
	whoamicmd "github.com/go-ports/storefront/cmd/shop/whoami"
	"github.com/go-ports/storefront/internal/buildinfo"
)

// New creates and returns the root cobra.Command for the shop CLI.
func New() *cobra.Command {
	ctx := &shared.Context{}

	root := &cobra.Command{
		Use:           "shop",
		Short:         "Storefront client: browse, fill a cart and place orders",
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          func(cmd *cobra.Command, _ []string) error { return cmd.Help() },
	}

	root.PersistentFlags().StringVar(
		&ctx.ShopHome, "home", "",
		"Override shop home directory (default: $SHOP_HOME env → persisted config → ~/.shop)",
	)
	root.PersistentFlags().BoolVarP(&ctx.Verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		registercmd.New(ctx).Cmd(),
		logincmd.New(ctx).Cmd(),
		logoutcmd.New(ctx).Cmd(),
		whoamicmd.New(ctx).Cmd(),
		productscmd.New(ctx).Cmd(),
		cartcmd.New(ctx).Cmd(),
		checkoutcmd.New(ctx).Cmd(),
		orderscmd.New(ctx).Cmd(),
		admincmd.New(ctx).Cmd(),
		configcmd.New(ctx).Cmd(),
		mcpcmd.New(ctx).Cmd(),
	)

	return root
}
