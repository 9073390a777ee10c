package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/knowledge-engine/docsearch/internal/api"
	"github.com/knowledge-engine/docsearch/internal/config"
	"github.com/knowledge-engine/docsearch/internal/metrics"
	"github.com/knowledge-engine/docsearch/internal/search"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [index-file] [address]",
		Short: "Start a local HTTP server with a web interface",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd, root)
			if err != nil {
				return err
			}

			indexPath := cfg.Index.DefaultPath
			if len(args) > 0 {
				indexPath = args[0]
			}
			if len(args) > 1 {
				cfg.Server.Address = args[1]
			}

			idx, err := loadIndex(indexPath, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServer(ctx, cfg, idx, logger)
		},
	}

	return cmd
}

func runServer(ctx context.Context, cfg *config.Config, idx *search.Index, logger *logrus.Entry) error {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	var searcher search.Searcher = search.NewRanker(idx)
	if cfg.Search.CacheSize > 0 {
		cached, err := search.NewCachedSearcher(idx, cfg.Search.CacheSize)
		if err != nil {
			return err
		}
		m.RegisterCache(reg, cached.Hits, cached.Misses)
		searcher = cached
	}

	if cfg.Metrics.Enabled {
		shutdown := m.StartServer(cfg.Metrics.Address, logger.WithField("component", "metrics"))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	server := api.NewServer(searcher, logger, m)
	return server.Start(ctx, cfg.Server)
}
