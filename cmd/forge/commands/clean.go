package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/forge/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove build artifacts and incremental state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stateOnly, _ := cmd.Flags().GetBool("state")
			all, _ := cmd.Flags().GetBool("all")

			opts := app.CleanOptions{}

			switch {
			case all:
				opts.Artifacts = true
				opts.State = true
			case stateOnly:
				opts.State = true
			default:
				// Default behavior: clean build artifacts
				opts.Artifacts = true
			}

			return c.app.Clean(cmd.Context(), ".", opts)
		},
	}

	cmd.Flags().BoolP("state", "s", false, "Remove only the incremental state database")
	cmd.Flags().BoolP("all", "a", false, "Remove artifacts and incremental state")

	return cmd
}
