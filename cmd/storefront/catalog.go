package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gaarage/storefront/internal/domain"
	"github.com/gaarage/storefront/pkg/textnorm"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func (c *cli) zonesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "zones",
		Short: "List delivery zones",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, _ []string) error {
			zones, err := c.app.Catalog.Zones(cmd.Context())
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tZONE")
			for _, z := range zones {
				fmt.Fprintf(tw, "%d\t%s\n", z.ID, z.Name)
			}
			return tw.Flush()
		}),
	}
}

func (c *cli) categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories <zone>",
		Short: "List the categories of a zone (id or name)",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			zone, err := c.app.Catalog.FindZone(ctx, args[0])
			if err != nil {
				return err
			}
			categories, err := c.app.Catalog.Categories(ctx, zone.ID)
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tCATEGORY\tIMAGE")
			for _, cat := range categories {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", cat.ID, cat.Name, c.app.API.CategoryImageURL(cat.Image))
			}
			return tw.Flush()
		}),
	}
}

func (c *cli) productsCmd() *cobra.Command {
	var (
		page int
		all  bool
	)
	cmd := &cobra.Command{
		Use:   "products <zone> <category>",
		Short: "Browse the products of a category page by page",
		Args:  cobra.ExactArgs(2),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			zone, category, err := c.resolve(ctx, args[0], args[1])
			if err != nil {
				return err
			}

			fetcher := c.app.NewFetcher()
			defer fetcher.Close()

			if err := fetcher.SetQuery(ctx, category.ID, zone.ID); err != nil {
				return err
			}
			if page > 1 {
				if err := fetcher.LoadPage(ctx, page); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			for {
				state := fetcher.State()
				if err := printProducts(out, state.Items); err != nil {
					return err
				}
				fmt.Fprintf(out, "page %d/%d (%d products)\n", state.Page, state.LastPage, state.Total)
				if !all || !state.HasNext() {
					return nil
				}
				if err := fetcher.LoadPage(ctx, state.Page+1); err != nil {
					return err
				}
			}
		}),
	}
	cmd.Flags().IntVar(&page, "page", 1, "page to show")
	cmd.Flags().BoolVar(&all, "all", false, "walk every page from the starting one")
	return cmd
}

func printProducts(w io.Writer, products []domain.Product) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tPRODUCT\tPRICE")
	for _, p := range products {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", p.ID, p.Name, p.Price.StringFixed(2))
	}
	return tw.Flush()
}

func (c *cli) offersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "offers <zone>",
		Short: "List the current offers of a zone",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			zone, err := c.app.Catalog.FindZone(ctx, args[0])
			if err != nil {
				return err
			}
			offers, err := c.app.Catalog.Offers(ctx, zone.ID)
			if err != nil {
				return err
			}
			if len(offers) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No offers right now.")
				return nil
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tPRODUCT\tPRICE\tWAS\tDISCOUNT\tUNTIL")
			for _, o := range offers {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t-%d%%\t%s\n",
					o.ID, o.Name, o.Price.StringFixed(2), o.OriginalPrice.StringFixed(2), o.DiscountPercentage, o.EndDate)
			}
			return tw.Flush()
		}),
	}
}

func (c *cli) heroCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hero [id]",
		Short: "Show a promotional banner",
		Args:  cobra.MaximumNArgs(1),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			id := int64(1)
			if len(args) == 1 {
				var err error
				if id, err = parseID(args[0], "id"); err != nil {
					return err
				}
			}
			hero, err := c.app.Catalog.Hero(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, hero.Title)
			if hero.Description != "" {
				fmt.Fprintln(out, hero.Description)
			}
			if hero.ImageURL != "" {
				fmt.Fprintln(out, hero.ImageURL)
			}
			return nil
		}),
	}
}

func (c *cli) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>...",
		Short: "Search products by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			searcher := c.app.NewSearcher()
			defer searcher.Close()

			results, err := searcher.Query(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No products found.")
				return nil
			}
			return printProducts(cmd.OutOrStdout(), results)
		}),
	}
}

func (c *cli) resolve(ctx context.Context, zoneRef, categoryRef string) (domain.Zone, domain.Category, error) {
	zone, err := c.app.Catalog.FindZone(ctx, zoneRef)
	if err != nil {
		return domain.Zone{}, domain.Category{}, err
	}
	category, err := c.app.Catalog.FindCategory(ctx, zone.ID, categoryRef)
	if err != nil {
		return domain.Zone{}, domain.Category{}, err
	}
	return zone, category, nil
}

// findProduct walks the category listing until ref, a product id or name,
// is found.
func (c *cli) findProduct(ctx context.Context, zoneID, categoryID int64, ref string) (domain.Product, bool, error) {
	id, idErr := strconv.ParseInt(ref, 10, 64)
	folded := textnorm.Fold(ref)

	for page, last := 1, 1; page <= last; page++ {
		result, err := c.app.API.ProductPage(ctx, categoryID, zoneID, page)
		if err != nil {
			return domain.Product{}, false, err
		}
		for _, p := range result.Items {
			if (idErr == nil && p.ID == id) || (idErr != nil && textnorm.Fold(p.Name) == folded) {
				return p, true, nil
			}
		}
		last = result.LastPage
	}
	return domain.Product{}, false, nil
}
