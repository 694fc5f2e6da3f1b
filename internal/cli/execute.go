package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"

	"github.com/moby/term"
)

// Execute runs the CLI with args and returns the process exit code.
// Errors are reported on stderr in text mode, or as a JSON document on
// stdout with --format json.
func Execute(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return execute(ctx, &RootOptions{}, args, stdout, stderr)
}

func execute(ctx context.Context, opts *RootOptions, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	code := ExitCommandError
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.Code
	}
	// cobra's own argument and flag errors are usage errors.
	if exitErr == nil {
		err = WrapExitError(ExitCommandError, "usage", err)
	}

	format := opts.Format
	if !isValidFormat(format) {
		format = "text"
	}
	formatter := &OutputFormatter{
		Format:    format,
		Writer:    stdout,
		ErrWriter: stderr,
		Verbose:   opts.Verbose,
		NoColor:   !isTerminal(stderr),
	}
	_ = formatter.Error(errorLabel(err), err.Error(), code, nil)
	return code
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	_, ok := term.GetFdInfo(w)
	return ok
}
