package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "Manage stored documents",
	Long:    `List, view, tag, annotate or delete processed documents.`,
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all documents, newest first",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsList,
}

var documentsGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show a document with its analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsGet,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and its retained file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDelete,
}

var documentsTagCmd = &cobra.Command{
	Use:   "tag [doc-id] [tags...]",
	Short: "Add tags to a document",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runDocumentsTag,
}

var documentsUntagCmd = &cobra.Command{
	Use:   "untag [doc-id] [tag]",
	Short: "Remove a tag from a document",
	Args:  cobra.ExactArgs(2),
	RunE:  runDocumentsUntag,
}

var documentsNotesCmd = &cobra.Command{
	Use:   "notes [doc-id] [notes]",
	Short: "Set a document's notes",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDocumentsNotes,
}

var documentsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise the document set",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsStats,
}

var documentsCancelCmd = &cobra.Command{
	Use:   "cancel [doc-id]",
	Short: "Cancel a queued or in-flight document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsCancel,
}

func init() {
	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsGetCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
	documentsCmd.AddCommand(documentsTagCmd)
	documentsCmd.AddCommand(documentsUntagCmd)
	documentsCmd.AddCommand(documentsNotesCmd)
	documentsCmd.AddCommand(documentsStatsCmd)
	documentsCmd.AddCommand(documentsCancelCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	teardown, err := setup(ctx)
	if err != nil {
		return err
	}
	defer teardown()

	docs, err := documentService.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if len(docs) == 0 {
		cmd.Println("No documents stored.")
		return nil
	}

	for i := range docs {
		doc := &docs[i]
		status := string(doc.Status)
		if doc.Status == domain.StatusError && doc.Error != nil {
			status = fmt.Sprintf("error (%s)", doc.Error.Kind)
		}
		cmd.Printf("  %s  %-30s %s\n", doc.ID, doc.Filename, status)
	}
	cmd.Printf("\nTotal: %d documents\n", len(docs))
	return nil
}

func runDocumentsGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	teardown, err := setup(ctx)
	if err != nil {
		return err
	}
	defer teardown()

	doc, err := documentService.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Filename:  %s\n", doc.Filename)
	cmd.Printf("  Status:    %s\n", doc.Status)
	cmd.Printf("  Size:      %d bytes\n", doc.Size)
	cmd.Printf("  Created:   %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Updated:   %s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05"))
	if len(doc.Tags) > 0 {
		cmd.Printf("  Tags:      %s\n", strings.Join(doc.Tags, ", "))
	}
	if doc.Notes != "" {
		cmd.Printf("  Notes:     %s\n", doc.Notes)
	}
	if doc.Extraction != nil {
		cmd.Printf("\n  Extraction (%s):\n", doc.Extraction.Method)
		cmd.Printf("    Words:     %d\n", doc.Extraction.WordCount)
		cmd.Printf("    Language:  %s\n", doc.Extraction.Language)
		if doc.Extraction.PageCount > 0 {
			cmd.Printf("    Pages:     %d\n", doc.Extraction.PageCount)
		}
		for _, w := range doc.Extraction.Warnings {
			cmd.Printf("    Warning:   %s\n", w)
		}
	}
	if doc.Analysis != nil {
		cmd.Printf("\n  Analysis (%s):\n", doc.Analysis.ModelUsed)
		cmd.Printf("    Title:       %s\n", doc.Analysis.Title)
		cmd.Printf("    Type:        %s (%.0f%% confidence)\n",
			doc.Analysis.DocumentType, doc.Analysis.Confidence*100)
		cmd.Printf("    Summary:     %s\n", doc.Analysis.Summary)
		if len(doc.Analysis.KeyTopics) > 0 {
			cmd.Printf("    Topics:      %s\n", strings.Join(doc.Analysis.KeyTopics, ", "))
		}
		for _, p := range doc.Analysis.MainPoints {
			cmd.Printf("    • %s\n", p)
		}
	}
	if doc.Error != nil {
		cmd.Printf("\n  Error: %s (%s)\n", doc.Error.Message, doc.Error.Kind)
		if doc.Error.Recoverable {
			cmd.Printf("  Run 'docpilot retry %s' to retry.\n", doc.ID)
		}
	}
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	teardown, err := setup(ctx)
	if err != nil {
		return err
	}
	defer teardown()

	if err := documentService.Delete(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	cmd.Printf("Deleted %s\n", args[0])
	return nil
}

func runDocumentsTag(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	teardown, err := setup(ctx)
	if err != nil {
		return err
	}
	defer teardown()

	if err := documentService.AddTags(ctx, args[0], args[1:]...); err != nil {
		return fmt.Errorf("failed to tag document: %w", err)
	}
	cmd.Printf("Tagged %s with %s\n", args[0], strings.Join(args[1:], ", "))
	return nil
}

func runDocumentsUntag(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	teardown, err := setup(ctx)
	if err != nil {
		return err
	}
	defer teardown()

	if err := documentService.RemoveTag(ctx, args[0], args[1]); err != nil {
		return fmt.Errorf("failed to untag document: %w", err)
	}
	cmd.Printf("Removed tag %s from %s\n", args[1], args[0])
	return nil
}

func runDocumentsNotes(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	teardown, err := setup(ctx)
	if err != nil {
		return err
	}
	defer teardown()

	notes := strings.Join(args[1:], " ")
	if err := documentService.SetNotes(ctx, args[0], notes); err != nil {
		return fmt.Errorf("failed to set notes: %w", err)
	}
	if notes == "" {
		cmd.Printf("Cleared notes on %s\n", args[0])
	} else {
		cmd.Printf("Set notes on %s\n", args[0])
	}
	return nil
}

func runDocumentsStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	teardown, err := setup(ctx)
	if err != nil {
		return err
	}
	defer teardown()

	stats, err := documentService.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	cmd.Printf("Documents: %d\n", stats.Total)
	if len(stats.ByStatus) > 0 {
		cmd.Println("\nBy status:")
		for status, n := range stats.ByStatus {
			cmd.Printf("  %-12s %d\n", status, n)
		}
	}
	if len(stats.ByType) > 0 {
		cmd.Println("\nBy type:")
		for typ, n := range stats.ByType {
			cmd.Printf("  %-16s %d\n", typ, n)
		}
	}
	return nil
}

func runDocumentsCancel(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	teardown, err := setup(ctx)
	if err != nil {
		return err
	}
	defer teardown()

	if err := pipelineService.Cancel(args[0]); err != nil {
		return fmt.Errorf("failed to cancel: %w", err)
	}
	cmd.Printf("Cancelled %s\n", args[0])
	return nil
}
