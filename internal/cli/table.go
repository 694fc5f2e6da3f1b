package cli

import (
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/spf13/cobra"

	"github.com/roach88/sandbox/internal/clusterpath"
	"github.com/roach88/sandbox/internal/shadow"
)

// TableOptions holds flags for the table subcommands.
type TableOptions struct {
	*RootOptions
	Path     string
	Families []string
}

// TableResult is the JSON payload of the table subcommands.
type TableResult struct {
	Path     string   `json:"path"`
	Families []string `json:"families,omitempty"`
	Dropped  bool     `json:"dropped,omitempty"`
}

// NewTableCommand creates the table command group, which administers
// tables in the configured cluster directly.
func NewTableCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Administer cluster tables",
		Long: `Create, describe, drop and list tables in the configured cluster.

These commands bypass sandbox bookkeeping. Use them to set up production
tables on a local cluster; use "sandbox create" and "sandbox delete" for
sandboxes.`,
	}

	cmd.AddCommand(newTableCreateCommand(rootOpts))
	cmd.AddCommand(newTableDescribeCommand(rootOpts))
	cmd.AddCommand(newTableDropCommand(rootOpts))
	cmd.AddCommand(newTableListCommand(rootOpts))
	return cmd
}

func newTableCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TableOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a table with the given column families",
		Example: `  sandbox table create --path /dataset/production --family cf1 --family cf2
  sandbox table create --path /dataset/production --family cf1,cf2`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTableCreate(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Path, "path", "", "table path (required)")
	cmd.Flags().StringSliceVar(&opts.Families, "family", nil, "column family (repeatable, required)")
	_ = cmd.MarkFlagRequired("path")
	_ = cmd.MarkFlagRequired("family")
	return cmd
}

func newTableDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TableOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:           "describe",
		Short:         "Show a table's column families",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTableDescribe(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Path, "path", "", "table path (required)")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func newTableDropCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TableOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:           "drop",
		Short:         "Drop a table",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTableDrop(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Path, "path", "", "table path (required)")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func newTableListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List tables",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTableList(rootOpts, cmd)
		},
	}
	return cmd
}

func cleanTablePath(p string) (string, error) {
	clean, err := clusterpath.Clean(p)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "invalid table path", err)
	}
	return clean, nil
}

func runTableCreate(opts *TableOptions, cmd *cobra.Command) error {
	path, err := cleanTablePath(opts.Path)
	if err != nil {
		return err
	}
	families := mapset.NewSet[string]()
	for _, f := range opts.Families {
		families.Add(strings.TrimSpace(f))
	}

	env, err := openEnvironment(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.Close()

	ctx, cancel := env.callContext(cmd.Context())
	defer cancel()
	if err := env.cluster.CreateTable(ctx, path, families); err != nil {
		return wrapClusterError("cannot create table", err)
	}
	env.logger.Info("table created", "path", path, "families", shadow.Sorted(families))

	result := TableResult{Path: path, Families: shadow.Sorted(families)}
	if opts.Format == "json" {
		return newFormatter(opts.RootOptions, cmd).Success(result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created table %s (families: %s)\n", path, strings.Join(result.Families, ", "))
	return nil
}

func runTableDescribe(opts *TableOptions, cmd *cobra.Command) error {
	path, err := cleanTablePath(opts.Path)
	if err != nil {
		return err
	}

	env, err := openEnvironment(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.Close()

	ctx, cancel := env.callContext(cmd.Context())
	defer cancel()
	families, err := env.cluster.GetFamilies(ctx, path)
	if err != nil {
		return wrapClusterError("cannot describe table", err)
	}

	result := TableResult{Path: path, Families: shadow.Sorted(families)}
	if opts.Format == "json" {
		return newFormatter(opts.RootOptions, cmd).Success(result)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Table %s\n", path)
	fmt.Fprintf(w, "  families: %s\n", strings.Join(result.Families, ", "))
	return nil
}

func runTableDrop(opts *TableOptions, cmd *cobra.Command) error {
	path, err := cleanTablePath(opts.Path)
	if err != nil {
		return err
	}

	env, err := openEnvironment(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.Close()

	ctx, cancel := env.callContext(cmd.Context())
	defer cancel()
	if err := env.cluster.DropTable(ctx, path); err != nil {
		return wrapClusterError("cannot drop table", err)
	}
	env.logger.Info("table dropped", "path", path)

	if opts.Format == "json" {
		return newFormatter(opts.RootOptions, cmd).Success(TableResult{Path: path, Dropped: true})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Dropped table %s\n", path)
	return nil
}

func runTableList(opts *RootOptions, cmd *cobra.Command) error {
	env, err := openEnvironment(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.Close()

	ctx, cancel := env.callContext(cmd.Context())
	defer cancel()
	tables, err := env.cluster.Tables(ctx)
	if err != nil {
		return wrapClusterError("cannot list tables", err)
	}

	if opts.Format == "json" {
		return newFormatter(opts, cmd).Success(tables)
	}
	w := cmd.OutOrStdout()
	if len(tables) == 0 {
		fmt.Fprintln(w, "No tables.")
		return nil
	}
	for _, t := range tables {
		fmt.Fprintln(w, t)
	}
	return nil
}
