package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var in inputFlags

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Detect entity spans in text",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := resolveText(&in)
			if err != nil {
				return err
			}
			pipe, err := ctx.ensurePipeline(&in)
			if err != nil {
				return err
			}
			result, err := pipe.Extract(cmd.Context(), text, in.labels)
			if err != nil {
				return err
			}

			if in.jsonOutput {
				out, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}

			rows := make([][]any, 0, len(result.Spans))
			for _, s := range result.Spans {
				rows = append(rows, []any{s.Label, s.Text, s.Start, s.End, formatScore(s.Score)})
			}
			fmt.Fprintln(cmd.OutOrStdout(),
				renderSpanTable([]string{"Label", "Text", "Start", "End", "Score"}, rows, "Start", "End", "Score"))
			fmt.Fprintf(cmd.OutOrStdout(), "%d spans via %s in %.1fms (run %s)\n",
				len(result.Spans), result.Info.Method, result.Info.DurationMs, result.Info.RunID)
			return nil
		},
	}

	registerInputFlags(&in, cmd)
	return cmd
}
