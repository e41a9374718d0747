package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"entity-cloak/internal/pipeline"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the cloak version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "cloak %s (%s/%s)\n",
				pipeline.Version, runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}
