package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
)

var (
	searchMode  string
	searchLimit int
	searchSort  string
	searchOrder string
	searchJSON  bool
	searchType  []string
	searchTag   []string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search processed documents",
	Long: `Searches the ready document set. The default hybrid mode fuses
full-text and metadata matching; semantic enrichment fills in sparse
result sets.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchMode, "mode", "m", "hybrid", "search mode: fulltext, metadata, semantic or hybrid")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().StringVar(&searchSort, "sort", "relevance", "sort field: relevance, date, size, name or confidence")
	searchCmd.Flags().StringVar(&searchOrder, "order", "desc", "sort order: asc or desc")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringSliceVar(&searchType, "type", nil, "restrict to document types")
	searchCmd.Flags().StringSliceVar(&searchTag, "tag", nil, "restrict to documents with any of these tags")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	teardown, err := setup(ctx)
	if err != nil {
		return err
	}
	defer teardown()

	filters := &domain.SearchFilters{Tags: searchTag}
	for _, t := range searchType {
		filters.Types = append(filters.Types, domain.CoerceDocumentType(t))
	}

	opts := &domain.SearchOptions{
		Mode:       domain.SearchMode(searchMode),
		SortField:  domain.SortField(searchSort),
		SortOrder:  domain.SortOrder(searchOrder),
		MaxResults: searchLimit,
	}

	results := searchService.Search(ctx, args[0], filters, opts)

	if searchJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	return outputSearchTable(cmd, results)
}

func outputSearchTable(cmd *cobra.Command, results *domain.SearchResults) error {
	if len(results.Results) == 0 {
		cmd.Println("No results found.")
		if len(results.Suggestions) > 0 {
			cmd.Println("\nTry searching for:")
			for _, s := range results.Suggestions {
				cmd.Printf("  %s\n", s)
			}
		}
		return nil
	}

	cmd.Printf("Results (%d of %d):\n\n", len(results.Results), results.TotalMatches)
	for i := range results.Results {
		hit := &results.Results[i]

		title := hit.Document.Filename
		if hit.Document.Analysis != nil && hit.Document.Analysis.Title != "" {
			title = hit.Document.Analysis.Title
		}

		cmd.Printf("  [%d] %s (%.1f, %s)\n", i+1, title, hit.Score, hit.MatchReason)
		cmd.Printf("      %s  %s\n", hit.Document.ID, hit.Document.Filename)
		for _, snippet := range hit.Snippets {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}
	return nil
}
