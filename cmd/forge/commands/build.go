package commands

import (
	"errors"

	"github.com/spf13/cobra"
	"go.trai.ch/forge/internal/app"
	"go.trai.ch/forge/internal/core/domain"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [targets...]",
		Short: "Build the named targets, or everything when none are given",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, _ := cmd.Flags().GetInt("jobs")
			noIncremental, _ := cmd.Flags().GetBool("no-incremental")
			verbose, _ := cmd.Flags().GetBool("verbose")
			watch, _ := cmd.Flags().GetBool("watch")

			opts := app.BuildOptions{
				Targets:       args,
				Jobs:          jobs,
				NoIncremental: noIncremental,
				Verbose:       verbose,
			}

			if watch {
				return c.app.Watch(cmd.Context(), ".", opts)
			}

			res, err := c.app.Build(cmd.Context(), ".", opts)
			if res != nil {
				app.WriteSummary(cmd.OutOrStdout(), res)
			}
			if err != nil && res != nil && errors.Is(err, domain.ErrBuildFailed) {
				// Node failures are already visible in the summary; keep the
				// exit-code signal without re-printing the whole chain.
				return domain.ErrBuildFailed
			}
			return err
		},
	}
	cmd.Flags().IntP("jobs", "j", 0, "Maximum number of nodes to run concurrently (0 = CPU count)")
	cmd.Flags().BoolP("no-incremental", "n", false, "Bypass the incremental check and rebuild every node")
	cmd.Flags().BoolP("verbose", "v", false, "Log per-node tracing detail")
	cmd.Flags().BoolP("watch", "w", false, "Rebuild automatically when watched files change")
	return cmd
}
