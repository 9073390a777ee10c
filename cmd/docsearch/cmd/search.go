package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/knowledge-engine/docsearch/internal/search"
)

func newSearchCmd(root *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "search <index-file> <query>",
		Short: "Search a query within an index file",
		Long: `Search loads an index file and prints the top results for the query,
best first. Words after the index file are joined into one query.

Output is a plain list on a terminal and JSON otherwise; use --format
to choose explicitly.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := setup(cmd, root)
			if err != nil {
				return err
			}

			idx, err := loadIndex(args[0], logger)
			if err != nil {
				return err
			}

			results := search.Rank(idx, strings.Join(args[1:], " "))
			return writeResults(cmd.OutOrStdout(), results, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: text, json (default: text on a terminal)")

	return cmd
}

func writeResults(w io.Writer, results []search.Result, format string) error {
	if format == "" {
		format = "json"
		if isTTY(w) {
			format = "text"
		}
	}

	switch format {
	case "json":
		return json.NewEncoder(w).Encode(results)
	case "text":
		for _, r := range results {
			if _, err := fmt.Fprintf(w, "%s\t%.6f\n", r.Path, r.Score); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
