package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/syncedhp/internal/engine"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failure (name taken, not a member, corrupted store, failed scenarios)
	ExitCommandError = 2 // Command error (bad arguments, unreadable config, database cannot be opened)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
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

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // success payload
	Error  *CLIError   `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // engine error code, e.g. "NAME_TAKEN"
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
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
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// formatter returns the output formatter for a command.
func formatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// describeError returns the code and user-facing message for err.
func describeError(err error) (string, string) {
	var e *engine.Error
	if !errors.As(err, &e) {
		return "E_INTERNAL", err.Error()
	}

	switch e.Code {
	case engine.ErrCodeNameTaken:
		return string(e.Code), fmt.Sprintf("The name: '%s' is already taken!", e.Group)
	case engine.ErrCodeNotFound:
		return string(e.Code), fmt.Sprintf("Group '%s' does not exist!", e.Group)
	case engine.ErrCodeAlreadyMember:
		return string(e.Code), fmt.Sprintf("Participant '%s' already belongs to group '%s'!", e.Participant, e.Group)
	case engine.ErrCodeNotAMember:
		return string(e.Code), fmt.Sprintf("Participant '%s' is not in a group!", e.Participant)
	case engine.ErrCodeNotOnline:
		return string(e.Code), fmt.Sprintf("Participant '%s' is currently not online!", e.Participant)
	case engine.ErrCodeCorrupted, engine.ErrCodeDisabled:
		return string(e.Code), "The store could not be loaded. Please repair it and try again!"
	default:
		return string(e.Code), e.Message
	}
}

// reportError writes err in the configured format and returns the
// ExitError the command should exit with. Errors that already carry an
// exit code pass through unchanged.
func reportError(cmd *cobra.Command, opts *RootOptions, err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	code, message := describeError(err)
	if ferr := formatter(cmd, opts).Error(code, message, err.Error()); ferr != nil {
		return WrapExitError(ExitFailure, "failed to write output", ferr)
	}
	return WrapExitError(ExitFailure, message, err)
}
