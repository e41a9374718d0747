package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "cloak",
		Short:         "Extract and anonymize named entities in text",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env first so it can supply CLOAK_* variables the config
			// loader reads; a missing file is fine.
			_ = godotenv.Load()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (default cloak.toml)")

	rootCmd.AddCommand(newExtractCommand(ctx))
	rootCmd.AddCommand(newRedactCommand(ctx))
	rootCmd.AddCommand(newReplaceCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
