package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaic-labs/docpilot-cli/internal/adapters/driven/storage/memory"
	"github.com/mosaic-labs/docpilot-cli/internal/analyzer"
	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
	"github.com/mosaic-labs/docpilot-cli/internal/core/services"
	"github.com/mosaic-labs/docpilot-cli/internal/extractors"
	"github.com/mosaic-labs/docpilot-cli/internal/extractors/plaintext"
)

// setupTestServices wires the full stack over an in-memory repository so
// commands run without touching disk or the network.
func setupTestServices(t *testing.T) *memory.Store {
	t.Helper()
	repo := memory.New(10)
	require.NoError(t, repo.Initialize(context.Background()))

	repository = repo
	registry = extractors.NewRegistry(plaintext.New())
	pipelineService = services.NewPipeline(registry, nil, analyzer.New(nil), repo)
	searchService = services.NewSearchService(repo)
	documentService = services.NewDocumentManager(repo)

	t.Cleanup(func() {
		repository = nil
		registry = nil
		pipelineService = nil
		searchService = nil
		documentService = nil
	})
	return repo
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return buf.String(), err
}

func seedReadyDocument(t *testing.T, id, filename, text string) {
	t.Helper()
	doc := &domain.Document{
		ID:            id,
		Filename:      filename,
		Extension:     "txt",
		Size:          int64(len(text)),
		Status:        domain.StatusReady,
		ExtractedText: text,
		LastModified:  time.Now().UTC(),
		CreatedAt:     time.Now().UTC(),
		Analysis: &domain.Analysis{
			Title:        filename,
			Summary:      text,
			DocumentType: domain.TypeArticle,
			Confidence:   0.7,
			ModelUsed:    domain.FallbackModel,
		},
	}
	payload, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, repository.Store(context.Background(), &domain.StoredRecord{
		Key:       "document:" + id,
		Value:     payload,
		Category:  services.CategoryDocuments,
		ServiceID: services.PipelineServiceID,
	}))
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "docpilot version")
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	setupTestServices(t)
	_, err := execute(t, "search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmd_PrintsResults(t *testing.T) {
	setupTestServices(t)
	seedReadyDocument(t, "doc-1", "budget.txt", "the quarterly budget review.")

	out, err := execute(t, "search", "quarterly budget")
	require.NoError(t, err)
	assert.Contains(t, out, "Results (1 of 1)")
	assert.Contains(t, out, "budget.txt")
}

func TestSearchCmd_NoResultsShowsSuggestions(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "search", "zzzz nothing matches")
	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_JSONOutput(t *testing.T) {
	setupTestServices(t)
	seedReadyDocument(t, "doc-1", "budget.txt", "the quarterly budget review.")

	out, err := execute(t, "search", "--json", "quarterly budget")
	t.Cleanup(func() { searchJSON = false })
	require.NoError(t, err)
	assert.Contains(t, out, `"totalMatches": 1`)
	assert.Contains(t, out, `"matchReason"`)
}

func TestDocumentsListCmd(t *testing.T) {
	setupTestServices(t)
	seedReadyDocument(t, "doc-1", "a.txt", "alpha.")
	seedReadyDocument(t, "doc-2", "b.txt", "beta.")

	out, err := execute(t, "documents", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 2 documents")
	assert.Contains(t, out, "a.txt")
}

func TestDocumentsGetCmd(t *testing.T) {
	setupTestServices(t)
	seedReadyDocument(t, "doc-1", "a.txt", "alpha body text.")

	out, err := execute(t, "documents", "get", "doc-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Document: doc-1")
	assert.Contains(t, out, "Status:    ready")
	assert.Contains(t, out, "Analysis (local-fallback)")
}

func TestDocumentsGetCmd_NotFound(t *testing.T) {
	setupTestServices(t)
	_, err := execute(t, "documents", "get", "missing")
	assert.Error(t, err)
}

func TestDocumentsTagAndStatsCmd(t *testing.T) {
	setupTestServices(t)
	seedReadyDocument(t, "doc-1", "a.txt", "alpha.")

	_, err := execute(t, "documents", "tag", "doc-1", "finance", "q1")
	require.NoError(t, err)

	out, err := execute(t, "documents", "get", "doc-1")
	require.NoError(t, err)
	assert.Contains(t, out, "finance, q1")

	out, err = execute(t, "documents", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Documents: 1")
}

func TestDocumentsDeleteCmd(t *testing.T) {
	setupTestServices(t)
	seedReadyDocument(t, "doc-1", "a.txt", "alpha.")

	_, err := execute(t, "documents", "delete", "doc-1")
	require.NoError(t, err)

	_, err = execute(t, "documents", "get", "doc-1")
	assert.Error(t, err)
}

func TestIngestCmd_ProcessesFile(t *testing.T) {
	setupTestServices(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Meeting notes. Decide on the budget."), 0644))

	out, err := execute(t, "ingest", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Queued notes.txt")
	assert.Contains(t, out, "✓ notes.txt")
	assert.Contains(t, out, "local-fallback")
}

func TestIngestCmd_MissingFile(t *testing.T) {
	setupTestServices(t)
	_, err := execute(t, "ingest", filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}

func TestBackupAndRestoreCmd(t *testing.T) {
	setupTestServices(t)
	seedReadyDocument(t, "doc-1", "a.txt", "alpha.")

	backupPath := filepath.Join(t.TempDir(), "snapshot.json")
	out, err := execute(t, "backup", backupPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Backed up 1 records")

	_, err = execute(t, "documents", "delete", "doc-1")
	require.NoError(t, err)

	out, err = execute(t, "restore", backupPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Restored 1 records")

	out, err = execute(t, "documents", "get", "doc-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Document: doc-1")
}

func TestConfigCmd_SetGetShow(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Cleanup(func() { configStore = nil })

	_, err := execute(t, "config", "set", "gemini.model", "gemini-2.0-flash")
	require.NoError(t, err)

	out, err := execute(t, "config", "get", "gemini.model")
	require.NoError(t, err)
	assert.Contains(t, out, "gemini-2.0-flash")

	out, err = execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "gemini.model")
}

func TestConfigCmd_RedactsAPIKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Cleanup(func() { configStore = nil })

	_, err := execute(t, "config", "set", "gemini.api_key", "supersecretkey123")
	require.NoError(t, err)

	out, err := execute(t, "config", "get", "gemini.api_key")
	require.NoError(t, err)
	assert.NotContains(t, out, "supersecretkey123")
	assert.Contains(t, out, "supe****")
}
