package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driving"
)

type mockSearcher struct {
	results  *domain.SearchResults
	lastOpts *domain.SearchOptions
}

var _ driving.Searcher = (*mockSearcher)(nil)

func (m *mockSearcher) Search(_ context.Context, query string, _ *domain.SearchFilters, opts *domain.SearchOptions) *domain.SearchResults {
	m.lastOpts = opts
	if m.results != nil {
		return m.results
	}
	return &domain.SearchResults{Results: []domain.SearchResult{}, Query: query}
}

type mockDocuments struct {
	doc *domain.Document
	err error
}

var _ driving.DocumentService = (*mockDocuments)(nil)

func (m *mockDocuments) Get(context.Context, string) (*domain.Document, error) {
	return m.doc, m.err
}
func (m *mockDocuments) List(context.Context) ([]domain.Document, error)  { return nil, nil }
func (m *mockDocuments) Delete(context.Context, string) error             { return nil }
func (m *mockDocuments) AddTags(context.Context, string, ...string) error { return nil }
func (m *mockDocuments) RemoveTag(context.Context, string, string) error  { return nil }
func (m *mockDocuments) SetNotes(context.Context, string, string) error   { return nil }
func (m *mockDocuments) Stats(context.Context) (*driving.DocumentStats, error) {
	return nil, nil
}

func newTestServer(t *testing.T, search driving.Searcher, docs driving.DocumentService) *Server {
	t.Helper()
	server, err := NewServer(&Ports{Search: search, Documents: docs})
	require.NoError(t, err)
	return server
}

func TestNewServer_RequiresPorts(t *testing.T) {
	_, err := NewServer(&Ports{Documents: &mockDocuments{}})
	assert.ErrorIs(t, err, ErrMissingSearcher)

	_, err = NewServer(&Ports{Search: &mockSearcher{}})
	assert.ErrorIs(t, err, ErrMissingDocuments)
}

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns search results", func(t *testing.T) {
		search := &mockSearcher{
			results: &domain.SearchResults{
				Results: []domain.SearchResult{
					{
						Document: domain.Document{
							ID:       "doc-1",
							Filename: "budget.pdf",
							Analysis: &domain.Analysis{
								Title:        "Q1 Budget",
								DocumentType: domain.TypeReport,
							},
						},
						Score:       87.5,
						MatchReason: "title",
						Snippets:    []string{"…quarterly budget…"},
					},
				},
				TotalMatches: 4,
			},
		}
		server := newTestServer(t, search, &mockDocuments{})

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "budget", Limit: 10})

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		assert.Equal(t, 4, output.Total)
		require.Len(t, output.Results, 1)
		assert.Equal(t, "doc-1", output.Results[0].DocumentID)
		assert.Equal(t, "budget.pdf", output.Results[0].Filename)
		assert.Equal(t, "Q1 Budget", output.Results[0].Title)
		assert.Equal(t, "report", output.Results[0].Type)
		assert.Equal(t, 87.5, output.Results[0].Score)
		assert.Equal(t, "title", output.Results[0].Reason)
	})

	t.Run("default limit is 10", func(t *testing.T) {
		search := &mockSearcher{}
		server := newTestServer(t, search, &mockDocuments{})

		_, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "test"})

		require.NoError(t, err)
		assert.Equal(t, 10, search.lastOpts.MaxResults)
	})

	t.Run("passes mode through", func(t *testing.T) {
		search := &mockSearcher{}
		server := newTestServer(t, search, &mockDocuments{})

		_, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "test", Mode: "metadata"})

		require.NoError(t, err)
		assert.Equal(t, domain.SearchModeMetadata, search.lastOpts.Mode)
	})

	t.Run("forwards suggestions on zero hits", func(t *testing.T) {
		search := &mockSearcher{
			results: &domain.SearchResults{
				Results:     []domain.SearchResult{},
				Suggestions: []string{"recent documents"},
			},
		}
		server := newTestServer(t, search, &mockDocuments{})

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "nothing here"})

		require.NoError(t, err)
		assert.Zero(t, output.Count)
		assert.Equal(t, []string{"recent documents"}, output.Suggestions)
	})
}

func TestServer_handleGetDocument(t *testing.T) {
	ctx := context.Background()

	doc := &domain.Document{
		ID:            "doc-1",
		Filename:      "notes.txt",
		Status:        domain.StatusReady,
		Preview:       "the preview",
		ExtractedText: "the full text",
		Tags:          []string{"work"},
		Analysis:      &domain.Analysis{Title: "Notes"},
		RemoteFileURI: "files/abc",
	}

	t.Run("returns document without text by default", func(t *testing.T) {
		server := newTestServer(t, &mockSearcher{}, &mockDocuments{doc: doc})

		_, output, err := server.handleGetDocument(ctx, nil, GetDocumentInput{ID: "doc-1"})

		require.NoError(t, err)
		assert.Equal(t, "doc-1", output.ID)
		assert.Equal(t, "ready", output.Status)
		assert.Equal(t, "the preview", output.Preview)
		assert.Empty(t, output.Text)
		assert.Equal(t, "files/abc", output.RemoteURI)
		require.NotNil(t, output.Analysis)
		assert.Equal(t, "Notes", output.Analysis.Title)
	})

	t.Run("includes text on request", func(t *testing.T) {
		server := newTestServer(t, &mockSearcher{}, &mockDocuments{doc: doc})

		_, output, err := server.handleGetDocument(ctx, nil, GetDocumentInput{ID: "doc-1", IncludeText: true})

		require.NoError(t, err)
		assert.Equal(t, "the full text", output.Text)
	})

	t.Run("rejects empty id", func(t *testing.T) {
		server := newTestServer(t, &mockSearcher{}, &mockDocuments{doc: doc})

		_, _, err := server.handleGetDocument(ctx, nil, GetDocumentInput{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("propagates not found", func(t *testing.T) {
		server := newTestServer(t, &mockSearcher{}, &mockDocuments{err: domain.ErrNotFound})

		_, _, err := server.handleGetDocument(ctx, nil, GetDocumentInput{ID: "missing"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
