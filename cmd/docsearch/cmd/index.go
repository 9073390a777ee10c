package cmd

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/knowledge-engine/docsearch/internal/config"
	"github.com/knowledge-engine/docsearch/internal/engine"
	"github.com/knowledge-engine/docsearch/internal/extractor"
	"github.com/knowledge-engine/docsearch/internal/metrics"
	"github.com/knowledge-engine/docsearch/internal/storage"
)

func newIndexCmd(root *rootOptions) *cobra.Command {
	var output string
	var workers int

	cmd := &cobra.Command{
		Use:   "index <folder>",
		Short: "Index a folder and save the index to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd, root)
			if err != nil {
				return err
			}
			if output == "" {
				output = cfg.Index.DefaultPath
			}
			if cmd.Flags().Changed("workers") {
				cfg.Index.Workers = workers
			}

			m := metrics.New(prometheus.NewRegistry())
			if cfg.Metrics.Enabled {
				shutdown := m.StartServer(cfg.Metrics.Address, logger.WithField("component", "metrics"))
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
					defer cancel()
					shutdown(shutdownCtx)
				}()
			}

			_, err = runIndex(cmd.Context(), cfg, args[0], storage.NewFileStorage(output), logger, m)
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Index file to write (default from config: index.json)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Documents extracted in parallel")

	return cmd
}

// runIndex builds the index of folder and persists it to store.
func runIndex(ctx context.Context, cfg *config.Config, folder string, store storage.IndexStorage, logger *logrus.Entry, rec engine.Recorder) (engine.EngineStats, error) {
	eng := engine.NewEngine(cfg.Index, logger, extractor.NewFileExtractor())
	eng.Recorder = rec

	index, err := eng.BuildIndex(ctx, folder)
	if err != nil {
		return eng.Stats(), err
	}

	if err := store.Save(index); err != nil {
		return eng.Stats(), err
	}

	stats := eng.Stats()
	logger.WithFields(logrus.Fields{
		"indexed":  stats.DocumentsIndexed,
		"skipped":  stats.DocumentsSkipped,
		"duration": stats.Duration.String(),
	}).Infof("Saved index of %d documents", len(index))
	return stats, nil
}
