package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shopkit/catq/internal/catalog"
)

func newProductsCmd() *cobra.Command {
	var params catalog.ListParams

	cmd := &cobra.Command{
		Use:   "products",
		Short: "List catalog products",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			items, err := a.svc.ListProducts(cmd.Context(), params)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), items, a.cfg.Format)
		},
	}
	cmd.Flags().StringVar(&params.Category, "category", "", "filter by category")
	cmd.Flags().StringVar(&params.Search, "search", "", "search term")
	cmd.Flags().IntVar(&params.Limit, "limit", 0, "page size (default adapts to connection quality)")
	cmd.Flags().IntVar(&params.Offset, "offset", 0, "page offset")
	return cmd
}

func newProductCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "product <id>",
		Short: "Show one product in full detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid product id %q", args[0])
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			p, err := a.svc.GetProductDetail(cmd.Context(), id)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), p, a.cfg.Format)
		},
	}
}

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List distinct product categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			cats, err := a.svc.ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), cats, a.cfg.Format)
		},
	}
}

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local catalog cache",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "clear",
			Short: "Drop all cached catalog data",
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(cmd)
				if err != nil {
					return err
				}
				a.svc.ClearCache()
				fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show cache configuration and telemetry",
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(cmd)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Cache dir:\t%s\n", a.cfg.CacheDir)
				fmt.Fprintf(out, "Durable tier:\t%v\n", a.cfg.CacheEnabled)
				fmt.Fprintf(out, "Edge tier:\t%v\n", a.cfg.EdgeActive())
				snap := a.svc.Metrics().Snapshot()
				fmt.Fprintf(out, "Tracked keys:\t%d\n", snap.TrackedKeys)
				if snap.P50Latency > 0 {
					fmt.Fprintf(out, "Fetch p50:\t%s\n", snap.P50Latency)
				}
				for tier, st := range snap.Tiers {
					fmt.Fprintf(out, "%s tier:\t%d hits, %d misses\n", tier, st.Hits, st.Misses)
				}
				return nil
			},
		},
	)
	return cmd
}
