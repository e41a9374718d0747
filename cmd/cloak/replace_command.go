package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"entity-cloak/internal/entity"
)

func newReplaceCommand(ctx *commandContext) *cobra.Command {
	var in inputFlags
	var replacementFile string

	cmd := &cobra.Command{
		Use:   "replace",
		Short: "Replace detected entities with synthetic values",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := resolveText(&in)
			if err != nil {
				return err
			}
			pipe, err := ctx.ensurePipeline(&in)
			if err != nil {
				return err
			}

			var result any
			if replacementFile != "" {
				data, err := loadReplacementData(replacementFile)
				if err != nil {
					return err
				}
				r, err := pipe.ReplaceWithData(cmd.Context(), text, in.labels, data)
				if err != nil {
					return err
				}
				result = r
				printReplaceResult(cmd, &in, r.Replacement.AnonymizedText, rowsFor(r.Replacement.Details), result)
				return nil
			}

			r, err := pipe.Replace(cmd.Context(), text, in.labels)
			if err != nil {
				return err
			}
			result = r
			printReplaceResult(cmd, &in, r.Replacement.AnonymizedText, rowsFor(r.Replacement.Details), result)
			return nil
		},
	}

	registerInputFlags(&in, cmd)
	cmd.Flags().StringVar(&replacementFile, "replacement-file", "", "JSON file mapping labels to replacement values")
	return cmd
}

// loadReplacementData reads a JSON object mapping labels to a value or a
// list of values, normalizing single strings to one-element lists.
func loadReplacementData(path string) (map[string][]string, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- path from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	data := make(map[string][]string, len(generic))
	for label, v := range generic {
		var single string
		if err := json.Unmarshal(v, &single); err == nil {
			data[label] = []string{single}
			continue
		}
		var list []string
		if err := json.Unmarshal(v, &list); err != nil {
			return nil, fmt.Errorf("parse %s: label %q must be a string or list of strings", path, label)
		}
		data[label] = list
	}
	return data, nil
}

func rowsFor(details []entity.ReplacementDetail) [][]any {
	rows := make([][]any, 0, len(details))
	for _, d := range details {
		rows = append(rows, []any{d.Label, d.Original, d.Replacement, d.StrategyUsed})
	}
	return rows
}

func printReplaceResult(cmd *cobra.Command, in *inputFlags, anonymized string, rows [][]any, full any) {
	if in.jsonOutput {
		out, err := json.MarshalIndent(full, "", "  ")
		if err == nil {
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
		}
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), anonymized)
	fmt.Fprintln(cmd.OutOrStdout(),
		renderSpanTable([]string{"Label", "Original", "Replacement", "Strategy"}, rows))
}
