package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tidemark/tidemark/internal/registry"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Events    []string
	Change    string
	Project   string
	Committer string
	Planner   string
	MaxCount  int
	Skip      int
	Reverse   bool
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Search the deployment event log",
		Long: `Search the audit trail of deploy, revert, and failure events, newest
first. Pattern flags match with the registry's native pattern operator
(regular expressions on SQLite).

Examples:
  tidemark log --db ./registry.db
  tidemark log --db ./registry.db --event deploy --event revert
  tidemark log --db ./registry.db --change '^users' --max-count 10
  tidemark log --db ./registry.db --reverse --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Events, "event", nil, "restrict to event kinds (deploy|revert|fail)")
	cmd.Flags().StringVar(&opts.Change, "change", "", "pattern for change names")
	cmd.Flags().StringVar(&opts.Project, "project", "", "pattern for project names")
	cmd.Flags().StringVar(&opts.Committer, "committer", "", "pattern for committer names")
	cmd.Flags().StringVar(&opts.Planner, "planner", "", "pattern for planner names")
	cmd.Flags().IntVar(&opts.MaxCount, "max-count", 0, "limit the number of events shown")
	cmd.Flags().IntVar(&opts.Skip, "skip", 0, "skip this many events before showing any")
	cmd.Flags().BoolVar(&opts.Reverse, "reverse", false, "oldest first instead of newest first")

	return cmd
}

// searchOptions maps the log flags onto a registry search option set,
// including only the keys the user actually constrained.
func (opts *LogOptions) searchOptions() map[string]any {
	search := map[string]any{}
	if len(opts.Events) > 0 {
		search["event"] = opts.Events
	}
	if opts.Change != "" {
		search["change"] = opts.Change
	}
	if opts.Project != "" {
		search["project"] = opts.Project
	}
	if opts.Committer != "" {
		search["committer"] = opts.Committer
	}
	if opts.Planner != "" {
		search["planner"] = opts.Planner
	}
	if opts.MaxCount > 0 {
		search["limit"] = opts.MaxCount
	}
	if opts.Skip > 0 {
		search["offset"] = opts.Skip
	}
	if opts.Reverse {
		search["direction"] = "ASC"
	}
	return search
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	s, err := newSession(opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	iter, err := s.reg.SearchEvents(cmd.Context(), opts.searchOptions())
	if err != nil {
		if registry.IsInvalidArgument(err) {
			return WrapExitError(ExitCommandError, "invalid search", err)
		}
		return WrapExitError(ExitCommandError, "search events", err)
	}
	defer iter.Close()

	f := &Formatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	w := cmd.OutOrStdout()

	var events []map[string]any
	count := 0
	for iter.Next() {
		e := iter.Event()
		if f.JSON() {
			events = append(events, eventData(e))
			continue
		}
		if count > 0 {
			fmt.Fprintln(w)
		}
		writeEvent(w, e)
		count++
	}
	if err := iter.Err(); err != nil {
		return WrapExitError(ExitCommandError, "read events", err)
	}

	if f.JSON() {
		if events == nil {
			events = []map[string]any{}
		}
		return f.OK(map[string]any{"events": events})
	}
	if count == 0 {
		fmt.Fprintln(w, "No events.")
	}
	return nil
}

// writeEvent renders one event in text form.
func writeEvent(w io.Writer, e registry.Event) {
	fmt.Fprintf(w, "%s %s\n", strings.ToUpper(e.Type), e.ChangeID)
	fmt.Fprintf(w, "Name:      %s\n", e.Name)
	fmt.Fprintf(w, "Project:   %s\n", e.Project)
	if len(e.Tags) > 0 {
		fmt.Fprintf(w, "Tags:      %s\n", strings.Join(e.Tags, ", "))
	}
	if len(e.Requires) > 0 {
		fmt.Fprintf(w, "Requires:  %s\n", strings.Join(e.Requires, ", "))
	}
	if len(e.Conflicts) > 0 {
		fmt.Fprintf(w, "Conflicts: %s\n", strings.Join(e.Conflicts, ", "))
	}
	fmt.Fprintf(w, "Committer: %s <%s>\n", e.CommitterName, e.CommitterEmail)
	fmt.Fprintf(w, "Date:      %s\n", e.CommittedAt.UTC().Format(displayTime))
	if e.Note != "" {
		fmt.Fprintf(w, "\n    %s\n", e.Note)
	}
}

// eventData shapes one event for JSON output.
func eventData(e registry.Event) map[string]any {
	return map[string]any{
		"event":           e.Type,
		"change_id":       e.ChangeID,
		"name":            e.Name,
		"project":         e.Project,
		"note":            e.Note,
		"tags":            e.Tags,
		"requires":        e.Requires,
		"conflicts":       e.Conflicts,
		"committed_at":    e.CommittedAt.UTC().Format(time.RFC3339),
		"committer_name":  e.CommitterName,
		"committer_email": e.CommitterEmail,
		"planned_at":      e.PlannedAt.UTC().Format(time.RFC3339),
		"planner_name":    e.PlannerName,
		"planner_email":   e.PlannerEmail,
	}
}
