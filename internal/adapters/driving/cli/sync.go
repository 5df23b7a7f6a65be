package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/postprocessors/jsonexport"
)

// syncReportFileName is the sync report written to the output directory.
const syncReportFileName = "sync-report.json"

var (
	syncFrom   string
	syncRetry  string
	syncReport string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync exported entities to structured stores",
	Long: `Re-syncs the entities of every exported document to the configured
structured stores. Entities already present with the same content are
skipped, so the command is safe to repeat.

Use --retry-report with a previous run or sync report to retry only the
entities that failed.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncFrom, "from", "", "export directory (default output_dir)")
	syncCmd.Flags().StringVar(&syncRetry, "retry-report", "", "only retry entities that failed in this report")
	syncCmd.Flags().StringVar(&syncReport, "report", "", "sync report path (default <output_dir>/"+syncReportFileName+")")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	a, cfg, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	dir := syncFrom
	if dir == "" {
		dir = cfg.OutputDir
	}
	exports, err := jsonexport.ReadDir(dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load exports: %w", err)
	}
	var entities []domain.Entity
	for i := range exports {
		entities = append(entities, exports[i].ToEntities()...)
	}

	if syncRetry != "" {
		entities, err = retryEntities(syncRetry, entities)
		if err != nil {
			return err
		}
	}

	if len(entities) == 0 {
		cmd.Println("No entities to sync.")
		return nil
	}

	cmd.Printf("Syncing %d entities to %s...\n", len(entities), strings.Join(a.Sync.Targets(), ", "))
	report := &domain.RunReport{StartedAt: time.Now()}
	report.SyncResults = a.Sync.Sync(cmd.Context(), entities)
	report.Sync = domain.Summarize(report.SyncResults)
	report.FinishedAt = time.Now()
	printSyncSummary(cmd, report.Sync)

	path := syncReport
	if path == "" {
		path = filepath.Join(cfg.OutputDir, syncReportFileName)
	}
	if err := jsonexport.WriteJSON(path, report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	cmd.Printf("Report written to %s\n", path)

	if report.Sync.Failed > 0 {
		for _, r := range domain.FailedResults(report.SyncResults) {
			cmd.Printf("  FAILED %s on %s after %d attempt(s): %s\n", r.Key, r.Target, r.Attempts, r.Error)
		}
		return fmt.Errorf("%d sync failure(s); retry with --retry-report %s", report.Sync.Failed, path)
	}
	return nil
}

// retryEntities keeps the entities that failed in the report at path.
func retryEntities(path string, entities []domain.Entity) ([]domain.Entity, error) {
	prev, err := jsonexport.ReadReport(path)
	if err != nil {
		return nil, err
	}
	failed := make(map[string]bool)
	for _, r := range domain.FailedResults(prev.SyncResults) {
		failed[r.EntityID] = true
	}
	if len(failed) == 0 {
		return nil, nil
	}

	var kept []domain.Entity
	for _, e := range entities {
		if failed[e.ID] {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		return nil, errors.New("none of the failed entities are present in the exports")
	}
	return kept, nil
}
