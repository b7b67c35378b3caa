package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/usecase-tracker-api/internal/importer"
	"github.com/noah-isme/usecase-tracker-api/pkg/config"
	"github.com/noah-isme/usecase-tracker-api/pkg/llm"
	"github.com/noah-isme/usecase-tracker-api/pkg/sheet"
)

type analyzeOptions struct {
	sheetName string
	maxRows   int
	maxBytes  int64
	remote    bool
	verbose   bool
	format    string
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze <file.csv|file.xlsx>",
		Short: "Map every sheet of a file and print the result",
		Long: `Parse a csv or xlsx file and run the column mapping on each sheet.

By default only the local heuristic runs. With --remote the AI provider
configured through AI_PROVIDER and AI_API_KEY is tried first, falling back
to the local mapping exactly as the API does.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(opts.verbose)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			var remote *importer.RemoteAnalyzer
			if opts.remote {
				cfg, err := config.Load()
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				factory, err := llm.NewFromConfig(cfg.AI, logger)
				if err != nil {
					return err
				}
				if factory == nil {
					return fmt.Errorf("--remote needs AI_PROVIDER and AI_API_KEY")
				}
				remote = importer.NewRemoteAnalyzer(factory, cfg.Import.SampleRows, cfg.AI.Timeout)
			}
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), args[0], remote, logger, *opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.sheetName, "sheet", "", "Only analyze the sheet with this name")
	f.IntVar(&opts.maxRows, "max-rows", 5000, "Reject sheets with more data rows")
	f.Int64Var(&opts.maxBytes, "max-bytes", 5*1024*1024, "Reject files larger than this")
	f.BoolVar(&opts.remote, "remote", false, "Try the configured AI provider before the local mapping")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output, including skipped remote analysis")
	f.StringVarP(&opts.format, "output", "o", "table", "Output format: table or json")
	return cmd
}

// newLogger writes human-readable logs to stderr so they never mix with the
// json output on stdout.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func runAnalyze(ctx context.Context, out io.Writer, path string, remote *importer.RemoteAnalyzer, logger *zap.Logger, opts analyzeOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	sheets, err := sheet.Parse(filepath.Base(path), file, sheet.Limits{MaxBytes: opts.maxBytes, MaxRows: opts.maxRows})
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	analyzerOpts := []importer.Option{importer.WithLogger(logger)}
	if remote != nil {
		analyzerOpts = append(analyzerOpts, importer.WithRemote(remote))
	}
	analyzer := importer.NewAnalyzer(analyzerOpts...)

	results := make(map[string]importer.Result, len(sheets))
	order := make([]string, 0, len(sheets))
	for _, s := range sheets {
		if opts.sheetName != "" && s.Name != opts.sheetName {
			continue
		}
		result, err := analyzer.Analyze(ctx, s)
		if err != nil {
			return fmt.Errorf("sheet %q: %w", s.Name, err)
		}
		results[s.Name] = result
		order = append(order, s.Name)
	}
	if len(order) == 0 {
		return fmt.Errorf("no sheet named %q in %s", opts.sheetName, path)
	}

	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	return writeTable(out, order, results)
}

func writeTable(out io.Writer, order []string, results map[string]importer.Result) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, name := range order {
		res := results[name]
		a := res.Analysis
		fmt.Fprintf(tw, "sheet %q\tsource %s\tconfidence %s\tvalid %d\tskipped %d\n",
			name, res.Source, a.Confidence, a.ValidRowCount, a.SkippedRows)
		for _, w := range a.Warnings {
			fmt.Fprintf(tw, "  warning:\t%s\n", w)
		}
		fmt.Fprintln(tw, "  #\tname\tpriority\tstatus")
		for i, tc := range res.MappedData {
			fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\n", i+1, tc.Name, tc.Priority, tc.Status)
		}
	}
	return tw.Flush()
}
