package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newRedactCommand(ctx *commandContext) *cobra.Command {
	var in inputFlags
	var placeholder string

	cmd := &cobra.Command{
		Use:   "redact",
		Short: "Replace detected entities with numbered placeholders",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := resolveText(&in)
			if err != nil {
				return err
			}
			// The placeholder template is baked into the redactor at
			// construction, so apply the flag before building the pipeline.
			if placeholder != "" {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				cfg.Redaction.PlaceholderFormat = placeholder
			}
			pipe, err := ctx.ensurePipeline(&in)
			if err != nil {
				return err
			}
			result, err := pipe.Redact(cmd.Context(), text, in.labels)
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

			fmt.Fprintln(cmd.OutOrStdout(), result.Redaction.AnonymizedText)
			rows := make([][]any, 0, len(result.Redaction.Details))
			for _, d := range result.Redaction.Details {
				rows = append(rows, []any{d.Label, d.Original, d.Placeholder, formatScore(d.Score)})
			}
			fmt.Fprintln(cmd.OutOrStdout(),
				renderSpanTable([]string{"Label", "Original", "Placeholder", "Score"}, rows, "Score"))
			return nil
		},
	}

	registerInputFlags(&in, cmd)
	cmd.Flags().StringVar(&placeholder, "placeholder", "", "Placeholder template, e.g. #{id}_{label}_REDACTED")
	return cmd
}
