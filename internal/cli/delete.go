package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sandbox/internal/clusterpath"
)

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	*RootOptions
	Path string
}

// DeleteResult is the JSON payload of a successful delete.
type DeleteResult struct {
	SandboxPath string `json:"sandbox_path"`
	Deleted     bool   `json:"deleted"`
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a sandbox",
		Long: `Delete the sandbox at --path: its table, metadata artifact and record.

Exit codes:
  0 - Sandbox deleted
  2 - Invalid path or configuration
  3 - No sandbox exists at --path
  5 - Another operation on --path is in progress
  7 - No cluster mount covers --path
  8 - Cluster did not respond

Examples:
  sandbox delete --path /dataset/sandbox/production_sb`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Path, "path", "", "path of the sandbox table (required)")
	_ = cmd.MarkFlagRequired("path")

	return cmd
}

func runDelete(opts *DeleteOptions, cmd *cobra.Command) error {
	env, err := openEnvironment(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.manager.Delete(cmd.Context(), opts.Path); err != nil {
		return wrapSandboxError("cannot delete sandbox", err)
	}

	// Delete already rejected paths that do not clean.
	path, _ := clusterpath.Clean(opts.Path)
	if opts.Format == "json" {
		return newFormatter(opts.RootOptions, cmd).Success(DeleteResult{SandboxPath: path, Deleted: true})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted sandbox %s\n", path)
	return nil
}
