package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driving"
	"github.com/custodia-labs/medingest/internal/core/services"
	"github.com/custodia-labs/medingest/internal/postprocessors/jsonexport"
)

// newDocumentService reads processed documents from the export directory.
// It does not need the vector store, so it runs alongside ingest --watch.
var newDocumentService = func(cfg domain.Config) driving.DocumentService {
	return services.NewDocumentService(jsonexport.NewStore(cfg.OutputDir, cfg.IncludeContent))
}

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Inspect processed documents",
	Long:  `List, view, or open documents written by ingest.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List processed documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info and entities",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentContentCmd = &cobra.Command{
	Use:   "content [doc-id]",
	Short: "Print document content",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentContent,
}

var documentDetailsCmd = &cobra.Command{
	Use:   "details [doc-id]",
	Short: "Show document metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDetails,
}

var documentOpenCmd = &cobra.Command{
	Use:   "open [doc-id]",
	Short: "Open the source file in the default application",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentOpen,
}

func init() {
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentContentCmd)
	documentCmd.AddCommand(documentDetailsCmd)
	documentCmd.AddCommand(documentOpenCmd)
	rootCmd.AddCommand(documentCmd)
}

func documentServiceFromConfig() (driving.DocumentService, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newDocumentService(cfg), nil
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	documentService, err := documentServiceFromConfig()
	if err != nil {
		return err
	}

	docs, err := documentService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    Title:      %s\n", docs[i].Title)
		cmd.Printf("    Path:       %s\n", docs[i].Path)
		cmd.Printf("    Confidence: %.3f\n", docs[i].Confidence)
		cmd.Printf("    Entities:   %d\n", docs[i].Entities.Count())
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	documentService, err := documentServiceFromConfig()
	if err != nil {
		return err
	}

	doc, err := documentService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Title:      %s\n", doc.Title)
	cmd.Printf("  Path:       %s\n", doc.Path)
	cmd.Printf("  Stage:      %s\n", doc.State)
	cmd.Printf("  Confidence: %.3f\n", doc.Confidence)
	if len(doc.ExtractedDates) > 0 {
		cmd.Printf("  Dates:      %v\n", doc.ExtractedDates)
	}
	if len(doc.Providers) > 0 {
		cmd.Printf("  Providers:  %v\n", doc.Providers)
	}

	if doc.Entities.Count() > 0 {
		cmd.Println("\n  Entities:")
		for _, e := range doc.Entities.All() {
			marker := " "
			if e.IsVerified {
				marker = "*"
			}
			cmd.Printf("   %s %-12s %s (%.2f)\n", marker, e.Type, e.Value, e.Confidence)
		}
	}

	return nil
}

func runDocumentContent(cmd *cobra.Command, args []string) error {
	documentService, err := documentServiceFromConfig()
	if err != nil {
		return err
	}

	content, err := documentService.GetContent(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document content: %w", err)
	}

	cmd.Println(content)
	return nil
}

func runDocumentDetails(cmd *cobra.Command, args []string) error {
	documentService, err := documentServiceFromConfig()
	if err != nil {
		return err
	}

	details, err := documentService.GetDetails(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document details: %w", err)
	}

	cmd.Printf("Document Details: %s\n\n", details.ID)
	cmd.Printf("  Title:       %s\n", details.Title)
	cmd.Printf("  Path:        %s\n", details.Path)
	cmd.Printf("  Format:      %s\n", details.Format)
	cmd.Printf("  Stage:       %s\n", details.Stage)
	cmd.Printf("  Confidence:  %.3f\n", details.Confidence)
	cmd.Printf("  Updated:     %s\n", details.UpdatedAt.Format("2006-01-02 15:04:05"))

	if len(details.EntityCounts) > 0 {
		cmd.Println("\n  Entities:")
		types := make([]string, 0, len(details.EntityCounts))
		for t := range details.EntityCounts {
			types = append(types, string(t))
		}
		sort.Strings(types)
		for _, t := range types {
			cmd.Printf("    %s: %d\n", t, details.EntityCounts[domain.EntityType(t)])
		}
	}

	if len(details.Metadata) > 0 {
		cmd.Println("\n  Metadata:")
		keys := make([]string, 0, len(details.Metadata))
		for k := range details.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cmd.Printf("    %s: %s\n", k, details.Metadata[k])
		}
	}

	return nil
}

func runDocumentOpen(cmd *cobra.Command, args []string) error {
	documentService, err := documentServiceFromConfig()
	if err != nil {
		return err
	}

	if err := documentService.Open(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to open document: %w", err)
	}

	cmd.Printf("Opened document %s in default application.\n", args[0])
	return nil
}
