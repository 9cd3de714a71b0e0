package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/toyz/genloop/internal/cli"
)

func newCleanCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove simulation captures and generated files",
		Long:  "clean removes <work_root>/.genloop and the generator output root of the project.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			diagnostics := global.diagnostics(cmd)
			cfg, err := global.loadConfig()
			if err != nil {
				return report(diagnostics, err)
			}

			removed, err := cli.NewCleaner(diagnostics).Clean(cfg)
			if err != nil {
				return report(diagnostics, err)
			}
			if len(removed) == 0 {
				diagnostics.Info("Nothing to clean")
				return nil
			}
			for _, dir := range removed {
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", dir)
			}
			return nil
		},
	}
}
