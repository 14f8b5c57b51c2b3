package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gaarage/storefront/internal/cart"
	apperrors "github.com/gaarage/storefront/pkg/errors"
)

func (c *cli) cartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show the cart of the active session",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, _ []string) error {
			return printCart(cmd.OutOrStdout(), c.app.Cart)
		}),
	}
	cmd.AddCommand(c.cartAddCmd(), c.cartRemoveCmd(), c.cartUpdateCmd(), c.cartClearCmd())
	return cmd
}

func (c *cli) cartAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <zone> <category> <product>",
		Short: "Add one unit of a product (id or name) to the cart",
		Args:  cobra.ExactArgs(3),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			zone, category, err := c.resolve(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			product, ok, err := c.findProduct(ctx, zone.ID, category.ID, args[2])
			if err != nil {
				return err
			}
			if !ok {
				return apperrors.NotFound("product", args[2])
			}

			c.app.Cart.AddItem(ctx, product)
			if err := c.app.Cart.Flush(ctx); err != nil {
				return err
			}
			return printCart(cmd.OutOrStdout(), c.app.Cart)
		}),
	}
}

func (c *cli) cartRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove a product from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "product")
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			c.app.Cart.RemoveItem(ctx, id)
			if err := c.app.Cart.Flush(ctx); err != nil {
				return err
			}
			return printCart(cmd.OutOrStdout(), c.app.Cart)
		}),
	}
}

func (c *cli) cartUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <product-id> <quantity>",
		Short: "Set the quantity of a product; quantities below 1 are ignored",
		Args:  cobra.ExactArgs(2),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "product")
			if err != nil {
				return err
			}
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				return apperrors.ValidationFailed(map[string]string{"quantity": "must be a number"})
			}
			ctx := cmd.Context()
			c.app.Cart.UpdateQuantity(ctx, id, quantity)
			if err := c.app.Cart.Flush(ctx); err != nil {
				return err
			}
			return printCart(cmd.OutOrStdout(), c.app.Cart)
		}),
	}
}

func (c *cli) cartClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c.app.Cart.Clear(ctx)
			if err := c.app.Cart.Flush(ctx); err != nil {
				return err
			}
			return printCart(cmd.OutOrStdout(), c.app.Cart)
		}),
	}
}

func printCart(w io.Writer, agg *cart.Aggregator) error {
	lines := agg.Lines()
	if len(lines) == 0 {
		fmt.Fprintf(w, "Cart (%s) is empty.\n", agg.Identity())
		return nil
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tPRODUCT\tQTY\tUNIT\tSUBTOTAL")
	for _, line := range lines {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n",
			line.ProductID, line.Name, line.Quantity, line.UnitPrice.StringFixed(2), line.Subtotal().StringFixed(2))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d items, total %s (%s)\n", agg.ItemCount(), agg.Total().StringFixed(2), agg.Identity())
	return nil
}
