package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// InfoOptions holds flags for the info command.
type InfoOptions struct {
	*RootOptions
	Original string
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InfoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show a table's column families and sandboxes",
		Long: `Show the column families of a production table and the sandboxes
derived from it.

Examples:
  sandbox info --original /dataset/production`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Original, "original", "", "path of the production table (required)")
	_ = cmd.MarkFlagRequired("original")

	return cmd
}

func runInfo(opts *InfoOptions, cmd *cobra.Command) error {
	env, err := openEnvironment(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.Close()

	info, err := env.manager.Info(cmd.Context(), opts.Original)
	if err != nil {
		return wrapSandboxError("cannot describe table", err)
	}

	if opts.Format == "json" {
		return newFormatter(opts.RootOptions, cmd).Success(info)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Table %s\n", info.OriginalPath)
	fmt.Fprintf(w, "  families:  %s\n", strings.Join(info.Families, ", "))
	fmt.Fprintf(w, "  sandboxes: %d\n", len(info.Sandboxes))
	for _, rec := range info.Sandboxes {
		fmt.Fprintf(w, "    %s (id %s, created %s)\n",
			rec.SandboxPath, rec.ID, rec.CreatedAt.UTC().Format(time.RFC3339))
	}
	return nil
}
