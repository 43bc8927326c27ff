package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tidemark/tidemark/internal/registry"
)

// displayTime renders timestamps in command output.
const displayTime = "2006-01-02 15:04:05 MST"

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Project string
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current deployment state",
		Long: `Show the most recently deployed change for a project, with the tags
currently on it.

Examples:
  tidemark status --db ./registry.db
  tidemark status --db ./registry.db --project widgets --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Project, "project", "", "project name (defaults to the configured project)")

	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
	s, err := newSession(opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	state, err := s.reg.CurrentState(cmd.Context(), opts.Project)
	if err != nil {
		return WrapExitError(ExitCommandError, "read current state", err)
	}

	f := &Formatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if f.JSON() {
		return f.OK(statusData(state))
	}

	if state == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing deployed.")
		return nil
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Project:  %s\n", state.Project)
	fmt.Fprintf(w, "Change:   %s\n", state.ChangeID)
	fmt.Fprintf(w, "Name:     %s\n", state.Name)
	if len(state.Tags) > 0 {
		fmt.Fprintf(w, "Tags:     %s\n", strings.Join(state.Tags, ", "))
	}
	fmt.Fprintf(w, "Deployed: %s\n", state.CommittedAt.UTC().Format(displayTime))
	fmt.Fprintf(w, "By:       %s <%s>\n", state.CommitterName, state.CommitterEmail)
	return nil
}

// statusData shapes the JSON payload for status. nil state serializes as a
// null change, which scripts can test for.
func statusData(state *registry.State) map[string]any {
	if state == nil {
		return map[string]any{"change": nil}
	}
	return map[string]any{
		"change": map[string]any{
			"change_id":       state.ChangeID,
			"name":            state.Name,
			"project":         state.Project,
			"note":            state.Note,
			"tags":            state.Tags,
			"committed_at":    state.CommittedAt.UTC().Format(time.RFC3339),
			"committer_name":  state.CommitterName,
			"committer_email": state.CommitterEmail,
			"planned_at":      state.PlannedAt.UTC().Format(time.RFC3339),
			"planner_name":    state.PlannerName,
			"planner_email":   state.PlannerEmail,
		},
	}
}
