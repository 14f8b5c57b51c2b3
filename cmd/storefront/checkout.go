package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gaarage/storefront/internal/domain"
	apperrors "github.com/gaarage/storefront/pkg/errors"
	"github.com/gaarage/storefront/pkg/textnorm"
)

func (c *cli) destinationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "destinations",
		Short: "List delivery destinations and their fees",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, _ []string) error {
			destinations, err := c.app.Checkout.Destinations(cmd.Context())
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tDESTINATION\tFEE")
			for _, d := range destinations {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", d.ID, d.Name, d.Price.StringFixed(2))
			}
			return tw.Flush()
		}),
	}
}

func (c *cli) checkoutCmd() *cobra.Command {
	var (
		form        domain.CheckoutForm
		destination string
		quoteOnly   bool
	)
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place the cart as an order",
		Long: "Place the cart as an order. Name, phone and address default to the " +
			"signed-in profile.",
		Args: cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if user, ok := c.app.Session.User(); ok {
				form.FullName = orDefault(form.FullName, user.FullName)
				form.Phone = orDefault(form.Phone, user.Phone)
				form.Address = orDefault(form.Address, user.Address)
			}

			id, err := c.findDestination(ctx, destination)
			if err != nil {
				return err
			}
			form.DestinationID = id

			out := cmd.OutOrStdout()
			quote, err := c.app.Checkout.Quote(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Subtotal  %s\nDelivery  %s (%s)\nTotal     %s\n",
				quote.Subtotal.StringFixed(2), quote.DeliveryFee.StringFixed(2), quote.Destination.Name, quote.Total.StringFixed(2))
			if quoteOnly {
				return nil
			}

			receipt, err := c.app.Checkout.Submit(ctx, form)
			if err != nil {
				return err
			}
			if receipt.Message != "" {
				fmt.Fprintln(out, receipt.Message)
			}
			if receipt.OrderID > 0 {
				fmt.Fprintf(out, "Order #%d placed.\n", receipt.OrderID)
			} else {
				fmt.Fprintln(out, "Order placed.")
			}
			return nil
		}),
	}
	flags := cmd.Flags()
	flags.StringVar(&destination, "destination", "", "destination id or name")
	flags.StringVar(&form.FullName, "name", "", "recipient full name")
	flags.StringVar(&form.Phone, "phone", "", "recipient phone")
	flags.StringVar(&form.Address, "address", "", "delivery address")
	flags.BoolVar(&quoteOnly, "quote", false, "only show the total")
	return cmd
}

func (c *cli) findDestination(ctx context.Context, ref string) (int64, error) {
	if ref == "" {
		return 0, apperrors.ValidationFailed(map[string]string{"destination": "is required"})
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return id, nil
	}

	destinations, err := c.app.Checkout.Destinations(ctx)
	if err != nil {
		return 0, err
	}
	for _, d := range destinations {
		if textnorm.Fold(d.Name) == textnorm.Fold(ref) {
			return d.ID, nil
		}
	}
	return 0, apperrors.NotFound("destination", ref)
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
