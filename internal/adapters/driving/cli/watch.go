package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mosaic-labs/docpilot-cli/internal/adapters/driving/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Watch a folder and ingest dropped files",
	Long: `Observes a directory and ingests every supported file dropped into
it. Files already present are ingested once at startup. Runs until
interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	teardown, err := setup(ctx)
	if err != nil {
		return err
	}
	defer teardown()

	if err := pipelineService.Start(ctx); err != nil {
		return fmt.Errorf("starting pipeline: %w", err)
	}
	defer pipelineService.Stop() //nolint:errcheck

	watcher := watch.New(pipelineService, registry.Supported())
	if err := watcher.Watch(ctx, args[0]); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
