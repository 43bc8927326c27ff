// Package cli implements the tidemark command line: inspection commands over
// the deployment registry of a target database.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	DB      string // path to the registry database; falls back to config
	Config  string // path to the YAML config file
	Format  string // "text" | "json"
	Verbose bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the tidemark CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tidemark",
		Short: "Tidemark - database change deployment registry",
		Long: `Tidemark tracks which schema changes have been deployed to a target
database, in what order, with what tags and dependencies, and keeps a full
audit trail of deploy, revert, and failure events.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "path to the registry database")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to tidemark.yaml")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewProjectsCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// logger builds the structured logger for a command run.
func (o *RootOptions) logger() *zap.Logger {
	if o.Verbose {
		return zap.Must(zap.NewDevelopment())
	}
	return zap.NewNop()
}
