package cli

import (
	"github.com/spf13/cobra"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool   `json:"valid"`
	Name      string `json:"name,omitempty"`
	NodeCount int    `json:"node_count,omitempty"`
	RootCount int    `json:"root_count,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <definition.cue>",
		Short: "Validate a program definition without running it",
		Long: `Validate a CUE program definition against the schema.

Checks fragment shapes, node references, and root group structure without
compiling blocks or executing anything. Faster than run for authoring
feedback.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	result, loadErr := LoadProgram(path)
	if loadErr != nil {
		if err := formatter.Error(loadErr.Code, loadErr.Message, nil); err != nil {
			return err
		}
		return NewExitError(ExitFailure, loadErr.Message)
	}

	formatter.VerboseLog("Loaded %d node(s) from %s", result.Program.Len(), path)

	if opts.Format == "json" {
		return formatter.Success(ValidationResult{
			Valid:     true,
			Name:      result.Name,
			NodeCount: result.Program.Len(),
			RootCount: len(result.Program.Roots()),
		})
	}
	return formatter.Success("Definition is valid.")
}
