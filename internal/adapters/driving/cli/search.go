package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

var (
	searchLimit int
	searchType  string
	searchKind  string
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents and entities",
	Long: `Performs similarity search across indexed documents and extracted entities.
Use --kind to restrict results to documents or entities and --type to
restrict entity results to one type such as condition or medication.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().StringVar(&searchType, "type", "", "entity type filter")
	searchCmd.Flags().StringVar(&searchKind, "kind", "", "result kind filter (document or entity)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	opts := domain.SearchOptions{
		Limit: searchLimit,
		Kind:  searchKind,
	}
	if searchKind != "" && searchKind != domain.KindDocument && searchKind != domain.KindEntity {
		return fmt.Errorf("%w: --kind must be %q or %q", domain.ErrInvalidInput, domain.KindDocument, domain.KindEntity)
	}
	if searchType != "" {
		t := domain.EntityType(searchType)
		if !t.IsValid() {
			return fmt.Errorf("%w: unknown entity type %q", domain.ErrInvalidInput, searchType)
		}
		opts.EntityType = t
	}

	a, _, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.Search.Search(cmd.Context(), query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		title := results[i].Title
		if title == "" {
			title = results[i].DocumentID
		}

		// Format: [N] Title (Score)
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, title, results[i].Score)
		if results[i].Kind == domain.KindEntity {
			cmd.Printf("      Entity: %s\n", results[i].EntityType)
		}
		if results[i].Path != "" {
			cmd.Printf("      Path: %s\n", results[i].Path)
		}
		if results[i].Snippet != "" {
			cmd.Printf("      %s\n", results[i].Snippet)
		}
		cmd.Println()
	}

	return nil
}
