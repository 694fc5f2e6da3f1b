package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sandbox/internal/clusterpath"
)

// RepairOptions holds flags for the repair command.
type RepairOptions struct {
	*RootOptions
	Path string
}

// NewRepairCommand creates the repair command.
func NewRepairCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RepairOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Clear a sandbox abandoned mid-operation",
		Long: `Remove the remains of a sandbox whose create or delete was interrupted:
its table if present, its metadata artifact and its record.

Only records older than stale_after are repaired; younger ones may belong to
an operation still running and are refused with exit code 5.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepair(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Path, "path", "", "path of the sandbox table (required)")
	_ = cmd.MarkFlagRequired("path")

	return cmd
}

func runRepair(opts *RepairOptions, cmd *cobra.Command) error {
	env, err := openEnvironment(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.manager.Repair(cmd.Context(), opts.Path); err != nil {
		return wrapSandboxError("cannot repair sandbox", err)
	}

	path, _ := clusterpath.Clean(opts.Path)
	if opts.Format == "json" {
		return newFormatter(opts.RootOptions, cmd).Success(map[string]any{"sandbox_path": path, "repaired": true})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Repaired sandbox %s\n", path)
	return nil
}
