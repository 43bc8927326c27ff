package registry

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tidemark/tidemark/internal/plan"
)

// LogDeployChange records a successful deploy of the change within the
// caller-managed transaction:
//
//  1. insert the change row (committer = the registry's actor, planner =
//     the change's recorded authorship),
//  2. batch-insert its dependency rows,
//  3. batch-insert its tag rows,
//  4. append a deploy event.
//
// The event's tag/require/conflict text is computed fresh from the change
// object rather than reused from steps 2-3, so event content stays decoupled
// from row layout. Run through Transact so a failure at any step leaves the
// ledger untouched.
func (r *Registry) LogDeployChange(ctx context.Context, tx *sql.Tx, c *plan.Change) error {
	id := c.ID()
	committedAt := r.dialect.FormatTimestamp(r.now())

	_, err := tx.ExecContext(ctx, `
		INSERT INTO changes
		(change_id, change, project, note, committed_at, committer_name, committer_email, planned_at, planner_name, planner_email)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		c.Name,
		c.Project,
		c.Note,
		committedAt,
		r.actorName,
		r.actorEmail,
		r.dialect.FormatTimestamp(c.PlannedAt),
		c.PlannerName,
		c.PlannerEmail,
	)
	if err != nil {
		return fmt.Errorf("log deploy: insert change: %w", err)
	}

	if err := r.insertDependencies(ctx, tx, id, c.Dependencies); err != nil {
		return fmt.Errorf("log deploy: %w", err)
	}

	if err := r.insertTags(ctx, tx, c, id, committedAt, false); err != nil {
		return fmt.Errorf("log deploy: %w", err)
	}

	err = r.insertEvent(ctx, tx, "deploy", c, id, committedAt,
		joinList(c.TagNames()),
		joinList(c.Requires()),
		joinList(c.Conflicts()),
	)
	if err != nil {
		return fmt.Errorf("log deploy: %w", err)
	}

	r.log.Debug("logged deploy",
		zap.String("change", c.Name),
		zap.String("change_id", id),
		zap.String("project", c.Project),
	)
	return nil
}

// LogRevertChange records a revert of the change within the caller-managed
// transaction. Tag names and dependency specs are captured BEFORE their rows
// are deleted: the revert event must preserve what was removed even though
// the projection no longer has it.
func (r *Registry) LogRevertChange(ctx context.Context, tx *sql.Tx, c *plan.Change) error {
	id := c.ID()
	committedAt := r.dialect.FormatTimestamp(r.now())

	tags, err := r.readColumn(ctx, tx, `
		SELECT tag FROM tags WHERE change_id = ? ORDER BY committed_at
	`, id)
	if err != nil {
		return fmt.Errorf("log revert: read tags: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE change_id = ?`, id); err != nil {
		return fmt.Errorf("log revert: delete tags: %w", err)
	}

	requires, err := r.readColumn(ctx, tx, `
		SELECT dependency FROM dependencies WHERE change_id = ? AND type = ? ORDER BY dependency
	`, id, string(plan.DepRequire))
	if err != nil {
		return fmt.Errorf("log revert: read requires: %w", err)
	}
	conflicts, err := r.readColumn(ctx, tx, `
		SELECT dependency FROM dependencies WHERE change_id = ? AND type = ? ORDER BY dependency
	`, id, string(plan.DepConflict))
	if err != nil {
		return fmt.Errorf("log revert: read conflicts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM dependencies WHERE change_id = ?`, id); err != nil {
		return fmt.Errorf("log revert: delete dependencies: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM changes WHERE change_id = ?`, id); err != nil {
		return fmt.Errorf("log revert: delete change: %w", err)
	}

	err = r.insertEvent(ctx, tx, "revert", c, id, committedAt,
		joinList(tags),
		joinList(requires),
		joinList(conflicts),
	)
	if err != nil {
		return fmt.Errorf("log revert: %w", err)
	}

	r.log.Debug("logged revert",
		zap.String("change", c.Name),
		zap.String("change_id", id),
		zap.String("project", c.Project),
	)
	return nil
}

// LogFailChange appends a fail event for the change. Nothing was inserted
// and nothing is deleted, so the tag/require/conflict text comes straight
// from the in-memory change object and no table other than events is touched.
func (r *Registry) LogFailChange(ctx context.Context, c *plan.Change) error {
	id := c.ID()
	committedAt := r.dialect.FormatTimestamp(r.now())

	err := r.insertEvent(ctx, r.db, "fail", c, id, committedAt,
		joinList(c.TagNames()),
		joinList(c.Requires()),
		joinList(c.Conflicts()),
	)
	if err != nil {
		return fmt.Errorf("log fail: %w", err)
	}

	r.log.Debug("logged failure",
		zap.String("change", c.Name),
		zap.String("change_id", id),
		zap.String("project", c.Project),
	)
	return nil
}

// LogNewTags inserts any of the change's tags not yet present in the ledger.
// The change must already be deployed. Each row is a conditional insert keyed
// on tag_id, not an upsert: existing rows are left exactly as they are and
// re-running with the same tags is a no-op.
func (r *Registry) LogNewTags(ctx context.Context, c *plan.Change) error {
	if len(c.Tags) == 0 {
		return nil
	}

	id := c.ID()
	committedAt := r.dialect.FormatTimestamp(r.now())

	if err := r.insertTagRows(ctx, r.db, c, id, committedAt, true); err != nil {
		return fmt.Errorf("log new tags: %w", err)
	}
	return nil
}

// insertDependencies batch-inserts the change's dependency rows.
// No-op when the change has no dependencies. An unresolved dependency ID
// is stored as NULL.
func (r *Registry) insertDependencies(ctx context.Context, ex execer, changeID string, deps []plan.Dependency) error {
	if len(deps) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(deps))
	args := make([]any, 0, len(deps)*4)
	for _, d := range deps {
		placeholders = append(placeholders, "(?, ?, ?, ?)")
		var depID any
		if d.ID != "" {
			depID = d.ID
		}
		args = append(args, changeID, string(d.Type), d.Change, depID)
	}

	query := `
		INSERT INTO dependencies
		(change_id, type, dependency, dependency_id)
		VALUES ` + strings.Join(placeholders, ", ")
	if _, err := ex.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert dependencies: %w", err)
	}
	return nil
}

// insertTags batch-inserts the change's tag rows. No-op when the change
// carries no tags.
func (r *Registry) insertTags(ctx context.Context, ex execer, c *plan.Change, changeID, committedAt string, ifNotExists bool) error {
	if len(c.Tags) == 0 {
		return nil
	}
	return r.insertTagRows(ctx, ex, c, changeID, committedAt, ifNotExists)
}

// insertTagRows builds and executes the multi-row tag insert. Each tag
// carries the change's ID as the tagged change and the registry's actor as
// committer; planner identity and planned_at come from the tag itself.
func (r *Registry) insertTagRows(ctx context.Context, ex execer, c *plan.Change, changeID, committedAt string, ifNotExists bool) error {
	placeholders := make([]string, 0, len(c.Tags))
	args := make([]any, 0, len(c.Tags)*11)
	for _, t := range c.Tags {
		placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			t.ID(c.Project),
			t.Name,
			c.Project,
			changeID,
			t.Note,
			committedAt,
			r.actorName,
			r.actorEmail,
			r.dialect.FormatTimestamp(t.PlannedAt),
			t.PlannerName,
			t.PlannerEmail,
		)
	}

	query := `
		INSERT INTO tags
		(tag_id, tag, project, change_id, note, committed_at, committer_name, committer_email, planned_at, planner_name, planner_email)
		VALUES ` + strings.Join(placeholders, ", ")
	if ifNotExists {
		query += `
		ON CONFLICT DO NOTHING`
	}
	if _, err := ex.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert tags: %w", err)
	}
	return nil
}

// insertEvent appends one row to the audit trail.
func (r *Registry) insertEvent(ctx context.Context, ex execer, event string, c *plan.Change, changeID, committedAt, tags, requires, conflicts string) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO events
		(event, change_id, change, project, note, requires, conflicts, tags, committed_at, committer_name, committer_email, planned_at, planner_name, planner_email)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event,
		changeID,
		c.Name,
		c.Project,
		c.Note,
		requires,
		conflicts,
		tags,
		committedAt,
		r.actorName,
		r.actorEmail,
		r.dialect.FormatTimestamp(c.PlannedAt),
		c.PlannerName,
		c.PlannerEmail,
	)
	if err != nil {
		return fmt.Errorf("insert %s event: %w", event, err)
	}
	return nil
}

// readColumn collects a single text column into a slice, preserving query
// order. Used by revert to capture tag and dependency text before deletion.
func (r *Registry) readColumn(ctx context.Context, ex execer, query string, args ...any) ([]string, error) {
	rows, err := ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
