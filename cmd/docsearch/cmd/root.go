// Package cmd provides the docsearch command line: index, search and serve.
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/knowledge-engine/docsearch/internal/config"
	"github.com/knowledge-engine/docsearch/internal/logging"
	"github.com/knowledge-engine/docsearch/internal/search"
	"github.com/knowledge-engine/docsearch/internal/storage"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

// NewRootCmd creates the root command for the docsearch CLI.
func NewRootCmd() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:   "docsearch",
		Short: "Local full-text search with TF-IDF ranking",
		Long: `docsearch indexes a directory of documents into a term-frequency
index and answers ranked queries against it, from the command line or
over a small HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: text, json")

	cmd.AddCommand(newIndexCmd(&opts))
	cmd.AddCommand(newSearchCmd(&opts))
	cmd.AddCommand(newServeCmd(&opts))

	return cmd
}

// Execute runs the root command.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return err
	}
	return nil
}

// setup loads configuration and builds the root logger for a command.
func setup(cmd *cobra.Command, opts *rootOptions) (*config.Config, *logrus.Entry, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}
	return cfg, logging.NewWithOutput(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format), nil
}

// loadIndex reads a persisted index and freezes it for querying.
func loadIndex(path string, logger *logrus.Entry) (*search.Index, error) {
	var store storage.IndexStorage = storage.NewFileStorage(path)
	tfi, err := store.Load()
	if err != nil {
		return nil, err
	}
	idx := search.NewIndex(tfi)
	logger.WithFields(logrus.Fields{
		"path":      path,
		"documents": idx.Len(),
	}).Info("Loaded index")
	return idx, nil
}
