package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/postprocessors/jsonexport"
)

// reportFileName is the run report written to the output directory.
const reportFileName = "run-report.json"

var (
	ingestInput  string
	ingestWatch  bool
	ingestReport string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Process documents in the input directory",
	Long: `Discovers documents under the input directory, extracts their text and
clinical entities, indexes them for search, runs the post-processor chain
and syncs entities to the configured structured stores.

A JSON run report is written to the output directory. The command fails
when more documents fail than failure_tolerance allows.

Use --watch to keep running and re-process files as they change.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestInput, "input", "i", "", "input directory (overrides input_dir)")
	ingestCmd.Flags().BoolVar(&ingestWatch, "watch", false, "re-process files as they change")
	ingestCmd.Flags().StringVar(&ingestReport, "report", "", "run report path (default <output_dir>/"+reportFileName+")")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if ingestInput != "" {
		abs, err := filepath.Abs(ingestInput)
		if err != nil {
			return fmt.Errorf("resolve input: %w", err)
		}
		cfg.InputDir = abs
	}
	if err := cfg.ValidateIngest(); err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if ingestWatch {
		cmd.Printf("Watching %s for changes...\n", cfg.InputDir)
		return a.Pipeline.Watch(cmd.Context(), func(r *domain.RunReport) {
			printRunReport(cmd, r)
		})
	}

	cmd.Printf("Ingesting %s...\n", cfg.InputDir)
	report, err := a.Pipeline.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	printRunReport(cmd, report)

	path := ingestReport
	if path == "" {
		path = filepath.Join(cfg.OutputDir, reportFileName)
	}
	if err := jsonexport.WriteJSON(path, report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	cmd.Printf("Report written to %s\n", path)

	if report.ExceedsTolerance(cfg.FailureTolerance) {
		return fmt.Errorf("%w: %d failed, tolerance is %d",
			domain.ErrToleranceExceeded, len(report.Failed), cfg.FailureTolerance)
	}
	return nil
}

func printRunReport(cmd *cobra.Command, r *domain.RunReport) {
	cmd.Printf("Processed %d document(s) in %s: %d succeeded, %d failed, %d skipped\n",
		r.Processed, r.Duration().Round(time.Millisecond), r.Succeeded, len(r.Failed), len(r.Skipped))
	for _, f := range r.Failed {
		cmd.Printf("  FAILED %s at %s: %s\n", f.Path, f.Stage, f.Reason)
	}
	if r.Sync.Total() > 0 {
		printSyncSummary(cmd, r.Sync)
	}
}

func printSyncSummary(cmd *cobra.Command, s domain.SyncSummary) {
	cmd.Printf("Sync: %d created, %d updated, %d skipped, %d failed\n",
		s.Created, s.Updated, s.Skipped, s.Failed)
}
