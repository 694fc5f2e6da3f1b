package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/sandbox/internal/record"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	Original string
	Path     string
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a sandbox of a production table",
		Long: `Create a sandbox table at --path derived from the table at --original.

The sandbox gets every column family of the original plus "_shadow". A
metadata artifact (<path>_meta) is written next to it on the cluster mount.

Exit codes:
  0 - Sandbox created
  2 - Invalid path or configuration
  3 - Original table does not exist
  4 - A sandbox or table already exists at --path
  5 - Another operation on --path is in progress
  6 - Original table already has a "_shadow" family
  7 - No cluster mount covers --path
  8 - Cluster did not respond

Examples:
  sandbox create --original /dataset/production --path /dataset/sandbox/production_sb
  sandbox create --original /dataset/production --path /dataset/sandbox/production_sb --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Original, "original", "", "path of the production table (required)")
	cmd.Flags().StringVar(&opts.Path, "path", "", "path of the new sandbox table (required)")
	_ = cmd.MarkFlagRequired("original")
	_ = cmd.MarkFlagRequired("path")

	return cmd
}

func runCreate(opts *CreateOptions, cmd *cobra.Command) error {
	env, err := openEnvironment(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.Close()

	rec, err := env.manager.Create(cmd.Context(), opts.Original, opts.Path)
	if err != nil {
		return wrapSandboxError("cannot create sandbox", err)
	}

	if opts.Format == "json" {
		return newFormatter(opts.RootOptions, cmd).Success(rec)
	}
	writeRecordText(cmd.OutOrStdout(), "Created sandbox", rec)
	return nil
}

func writeRecordText(w io.Writer, heading string, rec record.Record) {
	fmt.Fprintf(w, "%s %s\n", heading, rec.SandboxPath)
	fmt.Fprintf(w, "  original:      %s\n", rec.OriginalPath)
	fmt.Fprintf(w, "  id:            %s\n", rec.ID)
	fmt.Fprintf(w, "  shadow family: %s\n", rec.ShadowFamily)
	fmt.Fprintf(w, "  created:       %s\n", rec.CreatedAt.UTC().Format(time.RFC3339))
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
