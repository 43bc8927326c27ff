package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// searchQuery is the validated form of a SearchEvents option set. Options
// arrive as a loosely-typed map and are decoded exhaustively into this
// struct; anything unrecognized or ill-typed fails before any SQL is built.
type searchQuery struct {
	direction string // "ASC" or "DESC"
	committer string
	planner   string
	change    string
	project   string
	events    []string
	limit     int
	offset    int
	hasLimit  bool
	hasOffset bool
}

// SearchEvents runs a filtered, sorted, paginated scan of the audit trail
// and returns a lazy, non-restartable sequence of events, newest first by
// default.
//
// Recognized options:
//
//	direction  string    "ASC"/"DESC", case-insensitive prefix match
//	committer  string    pattern matched against committer_name
//	planner    string    pattern matched against planner_name
//	change     string    pattern matched against the change name
//	project    string    pattern matched against the project name
//	event      []string  restrict to these event kinds (deploy/revert/fail)
//	limit      int       positive; appended before offset
//	offset     int       positive; appended after limit
//
// Pattern options use the backend's native pattern-match operator. Filters
// combine with AND; an absent key means no constraint. Any other key fails
// with an invalid-argument error naming the unrecognized keys.
func (r *Registry) SearchEvents(ctx context.Context, opts map[string]any) (*EventIter, error) {
	q, err := parseSearchOptions(opts)
	if err != nil {
		return nil, err
	}

	query, args := r.buildSearchSQL(q)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	return &EventIter{rows: rows, reg: r}, nil
}

// parseSearchOptions decodes and validates the option map.
func parseSearchOptions(opts map[string]any) (searchQuery, error) {
	q := searchQuery{direction: "DESC"}

	var unknown []string
	for key, val := range opts {
		switch key {
		case "direction":
			dir, err := parseDirection(val)
			if err != nil {
				return searchQuery{}, err
			}
			q.direction = dir
		case "committer", "planner", "change", "project":
			s, ok := val.(string)
			if !ok {
				return searchQuery{}, invalidArgumentf("search option %q must be a string, got %T", key, val)
			}
			switch key {
			case "committer":
				q.committer = s
			case "planner":
				q.planner = s
			case "change":
				q.change = s
			case "project":
				q.project = s
			}
		case "event":
			events, ok := val.([]string)
			if !ok {
				return searchQuery{}, invalidArgumentf("search option %q must be a string slice, got %T", key, val)
			}
			q.events = events
		case "limit", "offset":
			n, ok := val.(int)
			if !ok || n < 1 {
				return searchQuery{}, invalidArgumentf("search option %q must be a positive integer, got %v", key, val)
			}
			if key == "limit" {
				q.limit = n
				q.hasLimit = true
			} else {
				q.offset = n
				q.hasOffset = true
			}
		default:
			unknown = append(unknown, key)
		}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return searchQuery{}, invalidArgumentf("unrecognized search option(s): %s", strings.Join(unknown, ", "))
	}
	return q, nil
}

// parseDirection resolves a case-insensitive prefix of ASC or DESC.
func parseDirection(val any) (string, error) {
	s, ok := val.(string)
	if !ok || s == "" {
		return "", invalidArgumentf("invalid search direction: %v", val)
	}
	up := strings.ToUpper(s)
	switch {
	case strings.HasPrefix("ASC", up):
		return "ASC", nil
	case strings.HasPrefix("DESC", up):
		return "DESC", nil
	default:
		return "", invalidArgumentf("invalid search direction: %q", s)
	}
}

// buildSearchSQL assembles the parameterized scan. Values are always bound,
// never interpolated; clause order is fixed so the generated SQL is
// deterministic for a given option set.
func (r *Registry) buildSearchSQL(q searchQuery) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT event, change_id, change, project, note, requires, conflicts, tags,
			committer_name, committer_email, ` + r.dialect.TimestampExpr("committed_at") + `,
			planner_name, planner_email, ` + r.dialect.TimestampExpr("planned_at") + `
		FROM events`)

	var where []string
	var args []any
	pattern := func(col, val string) {
		if val != "" {
			where = append(where, col+" "+r.dialect.RegexOp()+" ?")
			args = append(args, val)
		}
	}
	pattern("change", q.change)
	pattern("committer_name", q.committer)
	pattern("planner_name", q.planner)
	pattern("project", q.project)

	if len(q.events) > 0 {
		placeholders := make([]string, len(q.events))
		for i, e := range q.events {
			placeholders[i] = "?"
			args = append(args, e)
		}
		where = append(where, "event IN ("+strings.Join(placeholders, ", ")+")")
	}

	if len(where) > 0 {
		sb.WriteString("\n\t\tWHERE " + strings.Join(where, " AND "))
	}

	sb.WriteString("\n\t\tORDER BY committed_at " + q.direction)

	switch {
	case q.hasLimit:
		sb.WriteString("\n\t\tLIMIT ?")
		args = append(args, q.limit)
	case q.hasOffset:
		// OFFSET requires a LIMIT clause; -1 means unbounded.
		sb.WriteString("\n\t\tLIMIT -1")
	}
	if q.hasOffset {
		sb.WriteString(" OFFSET ?")
		args = append(args, q.offset)
	}

	return sb.String(), args
}
