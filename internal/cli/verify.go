package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/sandbox/internal/sandbox"
)

// VerifyResult is the JSON payload of the verify command.
type VerifyResult struct {
	Consistent bool            `json:"consistent"`
	Drift      []sandbox.Drift `json:"drift"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check sandboxes against the cluster",
		Long: `Check every sandbox record against the cluster: the table must exist
with its "_shadow" family and the metadata artifact must match the record.
Records left in the creating or deleting state by a crashed process are
reported too; clear them with "sandbox repair".

Exit codes:
  0 - Every sandbox is consistent
  1 - Drift found
  8 - Cluster did not respond`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(rootOpts, cmd)
		},
	}
	return cmd
}

func runVerify(opts *RootOptions, cmd *cobra.Command) error {
	env, err := openEnvironment(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.Close()

	drifts, err := env.manager.Verify(cmd.Context())
	if err != nil {
		return wrapSandboxError("cannot verify sandboxes", err)
	}

	if opts.Format == "json" {
		if drifts == nil {
			drifts = []sandbox.Drift{}
		}
		if err := newFormatter(opts, cmd).Success(VerifyResult{Consistent: len(drifts) == 0, Drift: drifts}); err != nil {
			return err
		}
	} else if len(drifts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "All sandboxes consistent.")
	} else {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 3, ' ', 0)
		fmt.Fprintln(tw, "SANDBOX\tSTATE\tPROBLEM")
		for _, d := range drifts {
			state := string(d.State)
			if state == "" {
				state = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", d.SandboxPath, state, d.Problem)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(drifts) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("drift found in %d sandbox check(s)", len(drifts)))
	}
	return nil
}
