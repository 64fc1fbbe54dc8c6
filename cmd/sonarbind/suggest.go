package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"sonarbind/internal/binding"
)

var (
	formatFlag     string
	connectionFlag string
)

var suggestCmd = &cobra.Command{
	Use:   "suggest [scope-id...]",
	Short: "Compute binding suggestions for configured scopes",
	Long: `Computes binding suggestions for the given scopes, or for every
configured scope when none are named, and prints them.`,
	RunE: runSuggest,
}

func init() {
	suggestCmd.Flags().StringVar(&formatFlag, "format", "human",
		"Output format: human, json, or yaml")
	suggestCmd.Flags().StringVar(&connectionFlag, "connection", "",
		"Restrict suggestions to one connection id")
	rootCmd.AddCommand(suggestCmd)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine(nil)
	if err != nil {
		return err
	}
	defer eng.shutdown()

	scopeIDs := args
	if len(scopeIDs) == 0 {
		scopeIDs = eng.configs.AllScopeIDs()
		sort.Strings(scopeIDs)
	}

	connectionIDs := eng.conns.AllIDs()
	if connectionFlag != "" {
		if eng.conns.Get(connectionFlag) == nil {
			return fmt.Errorf("connection %q is not configured", connectionFlag)
		}
		connectionIDs = []string{connectionFlag}
	}

	result, err := eng.provider.Compute(cmd.Context(), scopeIDs, connectionIDs)
	if err != nil {
		return err
	}
	return renderSuggestions(cmd.OutOrStdout(), formatFlag, result)
}

func renderSuggestions(w io.Writer, format string, suggestions map[string][]binding.Suggestion) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(suggestions)
	case "yaml":
		return yaml.NewEncoder(w).Encode(suggestions)
	case "human":
		scopeIDs := make([]string, 0, len(suggestions))
		for id := range suggestions {
			scopeIDs = append(scopeIDs, id)
		}
		sort.Strings(scopeIDs)
		for _, id := range scopeIDs {
			if len(suggestions[id]) == 0 {
				fmt.Fprintf(w, "%s: no suggestions\n", id)
				continue
			}
			fmt.Fprintf(w, "%s:\n", id)
			for _, s := range suggestions[id] {
				fmt.Fprintf(w, "  %s -> %s (%s)\n", s.ConnectionID, s.ProjectKey, s.ProjectName)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
