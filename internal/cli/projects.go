package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewProjectsCommand creates the projects command.
func NewProjectsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List registered projects",
		Long: `List the names of all projects registered in the target registry,
in lexicographic order.

Examples:
  tidemark projects --db ./registry.db
  tidemark projects --db ./registry.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjects(rootOpts, cmd)
		},
	}
}

func runProjects(opts *RootOptions, cmd *cobra.Command) error {
	s, err := newSession(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	names, err := s.reg.RegisteredProjects(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "list projects", err)
	}

	f := &Formatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if f.JSON() {
		if names == nil {
			names = []string{}
		}
		return f.OK(map[string]any{"projects": names})
	}

	if len(names) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No projects registered.")
		return nil
	}
	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}
