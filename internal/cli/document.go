package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/syncedhp/internal/engine"
	"github.com/roach88/syncedhp/internal/store"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored document as YAML",
		Long: `Write the stored document as nested YAML, in the layout of the
original config.yml.

Examples:
  syncedhp export > groups.yaml
  syncedhp export --output groups.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write to file instead of stdout")

	return cmd
}

func runExport(cmd *cobra.Command, opts *ExportOptions) error {
	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	var buf bytes.Buffer
	if err := st.Export(commandContext(cmd), &buf); err != nil {
		return reportError(cmd, opts.RootOptions, err)
	}

	if opts.Output == "" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(opts.Output, buf.Bytes(), 0644); err != nil {
		return WrapExitError(ExitCommandError, "failed to write export", err)
	}
	opts.logger().Info("document exported", "path", opts.Output)
	return nil
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the stored document with a YAML file",
		Long: `Replace the stored document with a nested YAML document.

The document is checked against the document schema and loaded into a
scratch store first; the stored document is only replaced when both checks
pass. Use "-" to read from stdin.

Example:
  syncedhp import groups.yaml`,
		Args:          exactArgs(1, "The command requires an argument!"),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, rootOpts, args[0])
		},
	}
}

func runImport(cmd *cobra.Command, opts *RootOptions, path string) error {
	data, err := readInput(cmd, path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read document", err)
	}

	ctx := commandContext(cmd)
	groups, err := checkDocument(ctx, data)
	if err != nil {
		return reportError(cmd, opts, err)
	}
	formatter(cmd, opts).VerboseLog("document %s passed validation: %d group(s)", path, groups)

	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Import(ctx, bytes.NewReader(data), nil); err != nil {
		return reportError(cmd, opts, err)
	}
	opts.logger().Info("document imported", "groups", groups)

	if opts.Format == "json" {
		return formatter(cmd, opts).Success(map[string]int{"groups": groups})
	}
	return formatter(cmd, opts).Success(fmt.Sprintf("Imported %d group(s).", groups))
}

// checkDocument validates data against the schema and the structural
// rules of a load, using a private in-memory store.
func checkDocument(ctx context.Context, data []byte) (int, error) {
	scratch, err := store.Open(":memory:")
	if err != nil {
		return 0, err
	}
	defer scratch.Close()

	if err := scratch.Import(ctx, bytes.NewReader(data), engine.ValidateDocument); err != nil {
		return 0, err
	}
	return engine.Verify(ctx, scratch)
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
