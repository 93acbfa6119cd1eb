package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
)

// SearchInput is the input schema for the search_documents tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query to find documents"`
	Mode  string `json:"mode,omitempty" jsonschema:"search mode: fulltext, metadata, semantic or hybrid (default hybrid)"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
}

// SearchOutput is the output schema for the search_documents tool.
type SearchOutput struct {
	Results     []SearchResultOutput `json:"results"`
	Count       int                  `json:"count"`
	Total       int                  `json:"total"`
	Suggestions []string             `json:"suggestions,omitempty"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	DocumentID string   `json:"document_id"`
	Filename   string   `json:"filename"`
	Title      string   `json:"title,omitempty"`
	Type       string   `json:"type,omitempty"`
	Score      float64  `json:"score"`
	Reason     string   `json:"reason"`
	Snippets   []string `json:"snippets,omitempty"`
}

// GetDocumentInput is the input schema for the get_document tool.
type GetDocumentInput struct {
	ID          string `json:"id" jsonschema:"the document identifier"`
	IncludeText bool   `json:"include_text,omitempty" jsonschema:"include the full extracted text (default false)"`
}

// GetDocumentOutput is the output schema for the get_document tool.
type GetDocumentOutput struct {
	ID        string           `json:"id"`
	Filename  string           `json:"filename"`
	Status    string           `json:"status"`
	Preview   string           `json:"preview,omitempty"`
	Text      string           `json:"text,omitempty"`
	Tags      []string         `json:"tags,omitempty"`
	Notes     string           `json:"notes,omitempty"`
	Analysis  *domain.Analysis `json:"analysis,omitempty"`
	RemoteURI string           `json:"remote_uri,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_documents",
		Description: "Search across all processed documents",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_document",
		Description: "Retrieve a single document with its analysis",
	}, s.handleGetDocument)
}

// handleSearch handles the search_documents tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	opts := &domain.SearchOptions{
		Mode:       domain.SearchMode(input.Mode),
		MaxResults: limit,
	}
	results := s.ports.Search.Search(ctx, input.Query, nil, opts)

	output := SearchOutput{
		Results:     make([]SearchResultOutput, len(results.Results)),
		Count:       len(results.Results),
		Total:       results.TotalMatches,
		Suggestions: results.Suggestions,
	}

	for i := range results.Results {
		hit := &results.Results[i]
		out := SearchResultOutput{
			DocumentID: hit.Document.ID,
			Filename:   hit.Document.Filename,
			Score:      hit.Score,
			Reason:     hit.MatchReason,
			Snippets:   hit.Snippets,
		}
		if hit.Document.Analysis != nil {
			out.Title = hit.Document.Analysis.Title
			out.Type = string(hit.Document.Analysis.DocumentType)
		}
		output.Results[i] = out
	}

	return nil, output, nil
}

// handleGetDocument handles the get_document tool invocation.
func (s *Server) handleGetDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetDocumentInput,
) (*mcp.CallToolResult, GetDocumentOutput, error) {
	if input.ID == "" {
		return nil, GetDocumentOutput{}, fmt.Errorf("mcp: %w: id is required", domain.ErrInvalidInput)
	}

	doc, err := s.ports.Documents.Get(ctx, input.ID)
	if err != nil {
		return nil, GetDocumentOutput{}, err
	}

	output := GetDocumentOutput{
		ID:        doc.ID,
		Filename:  doc.Filename,
		Status:    string(doc.Status),
		Preview:   doc.Preview,
		Tags:      doc.Tags,
		Notes:     doc.Notes,
		Analysis:  doc.Analysis,
		RemoteURI: doc.RemoteFileURI,
	}
	if input.IncludeText {
		output.Text = doc.ExtractedText
	}

	return nil, output, nil
}
