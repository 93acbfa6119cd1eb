// Package cli provides the cobra command surface for docpilot.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mosaic-labs/docpilot-cli/internal/adapters/driven/ai/gemini"
	configfile "github.com/mosaic-labs/docpilot-cli/internal/adapters/driven/config/file"
	"github.com/mosaic-labs/docpilot-cli/internal/adapters/driven/storage/failover"
	filestore "github.com/mosaic-labs/docpilot-cli/internal/adapters/driven/storage/file"
	"github.com/mosaic-labs/docpilot-cli/internal/adapters/driven/storage/sqlite"
	"github.com/mosaic-labs/docpilot-cli/internal/analyzer"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driven"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driving"
	"github.com/mosaic-labs/docpilot-cli/internal/core/services"
	"github.com/mosaic-labs/docpilot-cli/internal/extractors"
	"github.com/mosaic-labs/docpilot-cli/internal/extractors/docx"
	"github.com/mosaic-labs/docpilot-cli/internal/extractors/imageocr"
	"github.com/mosaic-labs/docpilot-cli/internal/extractors/pdf"
	"github.com/mosaic-labs/docpilot-cli/internal/extractors/plaintext"
	"github.com/mosaic-labs/docpilot-cli/internal/logger"
)

// Backend priorities. The failover layer picks the higher one as primary.
const (
	sqlitePriority = 20
	filePriority   = 10
)

var (
	verbose bool
	dataDir string
)

// Wired services, populated by setup. Commands check for nil so tests
// can inject mocks without the full stack.
var (
	configStore     *configfile.ConfigStore
	repository      driven.Repository
	registry        driven.ExtractorRegistry
	pipelineService driving.Pipeline
	searchService   driving.Searcher
	documentService driving.DocumentService
)

var rootCmd = &cobra.Command{
	Use:   "docpilot",
	Short: "Local document intelligence pipeline",
	Long: `docpilot ingests documents (PDF, DOCX, plain text, images),
extracts and analyzes their content, and makes them searchable locally.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.docpilot/data)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setup wires the full service stack: config, storage with failover,
// extractors, analyzer, pipeline, search and document services.
// The returned teardown flushes and closes storage.
func setup(ctx context.Context) (func(), error) {
	if repository != nil {
		return func() {}, nil
	}

	cfg, err := configfile.NewConfigStore("")
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	configStore = cfg

	dir := dataDir
	if dir == "" {
		dir = cfg.GetString(configfile.KeyDataDir)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".docpilot", "data")
	}

	primary, err := sqlite.New(dir, sqlitePriority)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}
	secondary, err := filestore.New(dir, filePriority)
	if err != nil {
		return nil, fmt.Errorf("opening file store: %w", err)
	}
	layer := failover.New(primary, secondary)
	if err := layer.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	repository = layer

	var client driven.GenerativeClient
	if apiKey := cfg.APIKey(); apiKey != "" {
		gc, err := gemini.New(gemini.Config{
			APIKey:            apiKey,
			BaseURL:           cfg.GetString(configfile.KeyBaseURL),
			Model:             cfg.GetString(configfile.KeyModel),
			RequestsPerMinute: cfg.GetInt(configfile.KeyRequestsPerMinute),
		})
		if err != nil {
			return nil, fmt.Errorf("configuring gemini client: %w", err)
		}
		client = gc
	} else {
		logger.Debug("No API key configured, analysis runs locally")
	}

	registry = extractors.NewRegistry(
		plaintext.New(),
		pdf.New(),
		docx.New(),
		imageocr.New(client),
	)

	pipelineService = services.NewPipeline(registry, client, analyzer.New(client), repository,
		services.WithChunkTarget(cfg.GetInt(configfile.KeyChunkTarget)),
		services.WithPreviewLimit(cfg.GetInt(configfile.KeyPreviewLimit)),
	)
	searchService = services.NewSearchService(repository)
	documentService = services.NewDocumentManager(repository)

	teardown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repository.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Storage shutdown: %v", err)
		}
	}
	return teardown, nil
}
