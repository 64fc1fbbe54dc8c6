package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sonarbind/internal/binding"
	"sonarbind/internal/workspace"
)

var watchFormatFlag string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch workspaces and print suggestions as configuration changes",
	Long: `Keeps the engine running, watches every scope root for scanner
configuration file changes and prints fresh binding suggestions whenever
scopes, connections or clue files change. Stops on SIGINT or SIGTERM.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchFormatFlag, "format", "human",
		"Output format: human, json, or yaml")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	listener := func(suggestions map[string][]binding.Suggestion) {
		_ = renderSuggestions(out, watchFormatFlag, suggestions)
	}

	eng, err := buildEngine(listener)
	if err != nil {
		return err
	}
	defer eng.shutdown()

	watcher, err := workspace.NewWatcher(eng.files, eng.bus, eng.logger, binding.ClueFilenames)
	if err != nil {
		return err
	}
	for _, s := range eng.cfg.Scopes {
		if s.Root == "" {
			continue
		}
		if err := watcher.WatchScope(s.ID, s.Root); err != nil {
			eng.logger.Warn("Unable to watch scope root", map[string]interface{}{
				"scope": s.ID,
				"root":  s.Root,
				"error": err.Error(),
			})
		}
	}
	watcher.Start()
	defer watcher.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	eng.logger.Info("Shutting down", map[string]interface{}{
		"signal": sig.String(),
	})
	return nil
}
