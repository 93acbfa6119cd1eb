package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driven"
)

var ingestTags []string

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Ingest and process documents",
	Long: `Reads the given files, runs them through extraction and analysis,
and stores the results. Processing is sequential in argument order.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

var retryCmd = &cobra.Command{
	Use:   "retry [doc-id]",
	Short: "Retry a failed document",
	Args:  cobra.ExactArgs(1),
	RunE:  runRetry,
}

func init() {
	ingestCmd.Flags().StringSliceVarP(&ingestTags, "tag", "t", nil, "tags to apply to the ingested documents")
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(retryCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	teardown, err := setup(ctx)
	if err != nil {
		return err
	}
	defer teardown()

	if err := pipelineService.Start(ctx); err != nil {
		return fmt.Errorf("starting pipeline: %w", err)
	}
	defer pipelineService.Stop() //nolint:errcheck

	events, unsubscribe := pipelineService.Subscribe(64)
	defer unsubscribe()

	pending := make(map[string]string, len(args))
	for _, path := range args {
		blob, err := readBlob(path)
		if err != nil {
			return err
		}
		doc, err := pipelineService.Enqueue(ctx, blob)
		if err != nil {
			return fmt.Errorf("enqueue %s: %w", path, err)
		}
		pending[doc.ID] = doc.Filename
		cmd.Printf("Queued %s (%s)\n", doc.Filename, doc.ID)
	}

	failures := 0
	for len(pending) > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			name, ok := pending[ev.DocumentID]
			if !ok {
				continue
			}
			switch ev.Type {
			case domain.EventProcessingComplete:
				delete(pending, ev.DocumentID)
				printOutcome(cmd, name, ev.Document)
				applyTags(ctx, cmd, ev.DocumentID)
			case domain.EventProcessingError:
				delete(pending, ev.DocumentID)
				failures++
				cmd.Printf("✗ %s: %s\n", name, ev.Error.Message)
			}
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d documents failed", failures, len(args))
	}
	return nil
}

func runRetry(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	teardown, err := setup(ctx)
	if err != nil {
		return err
	}
	defer teardown()

	if err := pipelineService.Start(ctx); err != nil {
		return fmt.Errorf("starting pipeline: %w", err)
	}
	defer pipelineService.Stop() //nolint:errcheck

	events, unsubscribe := pipelineService.Subscribe(64)
	defer unsubscribe()

	docID := args[0]
	if err := pipelineService.Retry(ctx, docID); err != nil {
		return fmt.Errorf("retry %s: %w", docID, err)
	}
	cmd.Printf("Retrying %s\n", docID)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if ev.DocumentID != docID {
				continue
			}
			switch ev.Type {
			case domain.EventProcessingComplete:
				printOutcome(cmd, ev.Document.Filename, ev.Document)
				return nil
			case domain.EventProcessingError:
				return fmt.Errorf("%s: %s", docID, ev.Error.Message)
			}
		}
	}
}

// readBlob loads a file from disk into an ingestion blob.
func readBlob(path string) (*driven.FileBlob, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return &driven.FileBlob{
		Filename:     filepath.Base(path),
		MIMEType:     mime.TypeByExtension(filepath.Ext(path)),
		Content:      data,
		LastModified: info.ModTime().UTC(),
	}, nil
}

func printOutcome(cmd *cobra.Command, name string, doc *domain.Document) {
	cmd.Printf("✓ %s (%s)\n", name, doc.ID)
	if doc.Analysis != nil {
		cmd.Printf("  Title:      %s\n", doc.Analysis.Title)
		cmd.Printf("  Type:       %s (%.0f%% confidence)\n",
			doc.Analysis.DocumentType, doc.Analysis.Confidence*100)
		cmd.Printf("  Summary:    %s\n", doc.Analysis.Summary)
		cmd.Printf("  Model:      %s\n", doc.Analysis.ModelUsed)
	}
	if doc.Extraction != nil {
		cmd.Printf("  Words:      %d\n", doc.Extraction.WordCount)
		if doc.Extraction.PageCount > 0 {
			cmd.Printf("  Pages:      %d\n", doc.Extraction.PageCount)
		}
	}
}

func applyTags(ctx context.Context, cmd *cobra.Command, docID string) {
	if len(ingestTags) == 0 {
		return
	}
	if err := documentService.AddTags(ctx, docID, ingestTags...); err != nil {
		cmd.Printf("  (could not tag: %v)\n", err)
	}
}
