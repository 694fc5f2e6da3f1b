package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/sandbox/internal/record"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Original string
	All      bool
}

// RecentResult is the JSON payload of list without filters.
type RecentResult struct {
	User   string   `json:"user"`
	Recent []string `json:"recent"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sandboxes",
		Long: `List sandboxes.

Without flags, lists the current user's recently created sandboxes, most
recent first. --original lists every sandbox of one table; --all lists
every sandbox, oldest first.

Examples:
  sandbox list
  sandbox list --original /dataset/production
  sandbox list --all --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Original, "original", "", "only sandboxes of this table")
	cmd.Flags().BoolVar(&opts.All, "all", false, "all sandboxes")
	cmd.MarkFlagsMutuallyExclusive("original", "all")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	env, err := openEnvironment(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	if opts.Original == "" && !opts.All {
		recent, err := env.manager.Recent(ctx)
		if err != nil {
			return wrapSandboxError("cannot list recent sandboxes", err)
		}
		if opts.Format == "json" {
			return newFormatter(opts.RootOptions, cmd).Success(RecentResult{User: env.cfg.User, Recent: recent})
		}
		if len(recent) == 0 {
			fmt.Fprintln(w, "No recent sandboxes.")
			return nil
		}
		for _, p := range recent {
			fmt.Fprintln(w, p)
		}
		return nil
	}

	records, err := env.manager.List(ctx, opts.Original)
	if err != nil {
		return wrapSandboxError("cannot list sandboxes", err)
	}
	if opts.Format == "json" {
		return newFormatter(opts.RootOptions, cmd).Success(records)
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "No sandboxes found.")
		return nil
	}
	return writeRecordTable(w, records)
}

func writeRecordTable(w io.Writer, records []record.Record) error {
	tw := tabwriter.NewWriter(w, 0, 8, 3, ' ', 0)
	fmt.Fprintln(tw, "SANDBOX\tORIGINAL\tCREATED\tID")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			rec.SandboxPath,
			rec.OriginalPath,
			rec.CreatedAt.UTC().Format(time.RFC3339),
			rec.ID,
		)
	}
	return tw.Flush()
}
