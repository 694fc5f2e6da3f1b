package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/containerd/errdefs"
	"github.com/fatih/color"

	"github.com/roach88/sandbox/internal/sandbox"
)

// Exit codes for CLI commands.
const (
	ExitSuccess        = 0 // Successful execution
	ExitFailure        = 1 // Unclassified failure, or verify found drift
	ExitCommandError   = 2 // Usage, configuration or invalid path
	ExitNotFound       = 3 // Original table or sandbox does not exist
	ExitAlreadyExists  = 4 // Sandbox or table already exists
	ExitConflict       = 5 // Another operation holds the sandbox path
	ExitInvalidSchema  = 6 // Original table cannot be shadowed
	ExitUnresolvedPath = 7 // No cluster mount for the path
	ExitTimeout        = 8 // Cluster did not respond
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// sandboxExitCodes maps sandbox error codes onto exit codes.
var sandboxExitCodes = map[sandbox.Code]int{
	sandbox.CodeNotFound:        ExitNotFound,
	sandbox.CodeAlreadyExists:   ExitAlreadyExists,
	sandbox.CodeConflict:        ExitConflict,
	sandbox.CodeInvalidSchema:   ExitInvalidSchema,
	sandbox.CodeUnresolvedPath:  ExitUnresolvedPath,
	sandbox.CodeTimeout:         ExitTimeout,
	sandbox.CodeInvalidArgument: ExitCommandError,
}

// wrapSandboxError attaches the exit code matching err's sandbox code.
func wrapSandboxError(message string, err error) *ExitError {
	code, ok := sandboxExitCodes[sandbox.CodeOf(err)]
	if !ok {
		code = ExitFailure
	}
	return WrapExitError(code, message, err)
}

// wrapClusterError attaches the exit code matching err's errdefs class.
func wrapClusterError(message string, err error) *ExitError {
	code := ExitFailure
	switch {
	case errdefs.IsNotFound(err):
		code = ExitNotFound
	case errdefs.IsAlreadyExists(err):
		code = ExitAlreadyExists
	case errdefs.IsInvalidArgument(err):
		code = ExitCommandError
	case errdefs.IsDeadlineExceeded(err):
		code = ExitTimeout
	}
	return WrapExitError(code, message, err)
}

// errorLabel names the error category shown to the user.
func errorLabel(err error) string {
	if code := sandbox.CodeOf(err); code != "" {
		return string(code)
	}
	switch GetExitCode(err) {
	case ExitCommandError:
		return "COMMAND_ERROR"
	case ExitNotFound:
		return string(sandbox.CodeNotFound)
	case ExitAlreadyExists:
		return string(sandbox.CodeAlreadyExists)
	case ExitTimeout:
		return string(sandbox.CodeTimeout)
	}
	return "FAILURE"
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
	NoColor   bool // Disable ANSI colour in text-mode errors
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code     string `json:"code"`              // "NOT_FOUND", "CONFLICT", etc.
	Message  string `json:"message"`           // human-readable message
	ExitCode int    `json:"exit_code"`         // process exit code
	Details  any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
// JSON errors go to Writer so scripted callers read one document;
// text errors go to the diagnostic writer.
func (f *OutputFormatter) Error(code, message string, exitCode int, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:     code,
				Message:  message,
				ExitCode: exitCode,
				Details:  details,
			},
		})
	}

	w := f.GetErrWriter()
	label := color.New(color.FgRed, color.Bold)
	if f.NoColor {
		label.DisableColor()
	}
	label.Fprintf(w, "Error [%s]:", code)
	fmt.Fprintf(w, " %s\n", message)
	if f.Verbose && details != nil {
		fmt.Fprintf(w, "Details: %v\n", details)
	}
	return nil
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
