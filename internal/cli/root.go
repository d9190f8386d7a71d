// Package cli wires the catq command-line interface: thin cobra commands
// over the catalog data service.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/shopkit/catq/internal/cache"
	"github.com/shopkit/catq/internal/catalog"
	"github.com/shopkit/catq/internal/config"
	"github.com/shopkit/catq/internal/data"
	"github.com/shopkit/catq/internal/edge"
	"github.com/shopkit/catq/internal/netquality"
	"github.com/shopkit/catq/internal/prefetch"
	"github.com/shopkit/catq/internal/version"
)

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// NewRootCmd builds the catq command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "catq",
		Short:         "Query the product catalog through the client-side cache",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if v, _ := cmd.Flags().GetBool("verbose"); v {
				slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})))
			}
		},
	}

	pf := root.PersistentFlags()
	pf.Bool("verbose", false, "enable debug logging")
	pf.String("format", "", "output format: table, json or yaml")
	pf.String("origin-url", "", "catalog origin base URL")
	pf.String("edge-url", "", "shared edge cache URL (implies --edge)")
	pf.String("cache-dir", "", "durable cache directory")
	pf.Bool("no-cache", false, "disable the durable cache tier")

	root.AddCommand(
		newProductsCmd(),
		newProductCmd(),
		newCategoriesCmd(),
		newCacheCmd(),
	)
	return root
}

// overridesFrom collects config overrides from the persistent flag set.
func overridesFrom(flags *pflag.FlagSet) config.FlagOverrides {
	var o config.FlagOverrides
	o.OriginURL, _ = flags.GetString("origin-url")
	o.EdgeURL, _ = flags.GetString("edge-url")
	o.CacheDir, _ = flags.GetString("cache-dir")
	o.NoCache, _ = flags.GetBool("no-cache")
	o.Format, _ = flags.GetString("format")
	return o
}

// app holds the resolved config and service for one command invocation.
type app struct {
	cfg *config.Config
	svc *data.Service
}

// newApp loads config and assembles the data service and its tiers.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(overridesFrom(cmd.Flags()))
	if err != nil {
		return nil, err
	}
	if cfg.OriginURL == "" {
		return nil, fmt.Errorf("no origin configured; set origin_url in config, CATQ_ORIGIN_URL, or --origin-url")
	}

	logger := slog.Default()

	var durable *cache.Durable
	if cfg.CacheEnabled {
		durable = cache.NewDurable(cfg.CacheDir, nil)
	}

	var edgeQuerier catalog.Querier
	if cfg.EdgeActive() {
		edgeQuerier = edge.NewClient(cfg.EdgeURL, logger)
	}

	var signal netquality.Signal = netquality.EnvSignal{}
	if cfg.NetworkType != "" {
		signal = netquality.StaticSignal{Type: cfg.NetworkType}
	}

	svc := data.NewService(data.Options{
		Origin:     catalog.NewClient(cfg.OriginURL, cfg.OriginToken, logger),
		Edge:       edgeQuerier,
		Durable:    durable,
		Prefetcher: prefetch.New(nil, logger),
		Estimator:  netquality.NewEstimator(signal, nil),
		Logger:     logger,
	})
	return &app{cfg: cfg, svc: svc}, nil
}
