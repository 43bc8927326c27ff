package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// EarliestChangeID returns the change ID at position offset from the start
// of the project's deployment order, or "" when no such change exists.
//
// An uninitialized target (ledger schema never provisioned) is the expected
// state of a database that has never been deployed to, so it yields "" rather
// than an error. Any other backend failure propagates.
func (r *Registry) EarliestChangeID(ctx context.Context, project string, offset int) (string, error) {
	return r.changeIDAt(ctx, project, offset, "ASC")
}

// LatestChangeID returns the change ID at position offset from the end of
// the project's deployment order, or "" when no such change exists. See
// EarliestChangeID for the uninitialized-target tolerance.
func (r *Registry) LatestChangeID(ctx context.Context, project string, offset int) (string, error) {
	return r.changeIDAt(ctx, project, offset, "DESC")
}

func (r *Registry) changeIDAt(ctx context.Context, project string, offset int, dir string) (string, error) {
	ok, err := r.dialect.LedgerExists(ctx, r.db)
	if err != nil {
		return "", fmt.Errorf("change id at offset: probe ledger: %w", err)
	}
	if !ok {
		return "", nil
	}

	var id string
	err = r.db.QueryRowContext(ctx, `
		SELECT change_id
		FROM changes
		WHERE project = ?
		ORDER BY committed_at `+dir+`
		LIMIT 1 OFFSET ?
	`, r.projectOr(project), offset).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("change id at offset: %w", err)
	}
	return id, nil
}

// changeColumns lists the changes-table columns every change read selects,
// with timestamps rendered through the dialect.
func (r *Registry) changeColumns() string {
	return `change_id, change, project, note,
		committer_name, committer_email, ` + r.dialect.TimestampExpr("committed_at") + `,
		planner_name, planner_email, ` + r.dialect.TimestampExpr("planned_at")
}

// scanner is the subset of sql.Row and sql.Rows used by the scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

// scanChange scans one changes row and decodes its timestamps.
func (r *Registry) scanChange(s scanner) (DeployedChange, error) {
	var c DeployedChange
	var committedAt, plannedAt string
	if err := s.Scan(
		&c.ChangeID, &c.Name, &c.Project, &c.Note,
		&c.CommitterName, &c.CommitterEmail, &committedAt,
		&c.PlannerName, &c.PlannerEmail, &plannedAt,
	); err != nil {
		return DeployedChange{}, err
	}

	var err error
	if c.CommittedAt, err = r.dialect.ParseTimestamp(committedAt); err != nil {
		return DeployedChange{}, fmt.Errorf("parse committed_at: %w", err)
	}
	if c.PlannedAt, err = r.dialect.ParseTimestamp(plannedAt); err != nil {
		return DeployedChange{}, fmt.Errorf("parse planned_at: %w", err)
	}
	return c, nil
}

// CurrentState returns the most recently deployed change for the project,
// with the names of its current tags in commit order. Returns (nil, nil)
// when nothing is deployed.
func (r *Registry) CurrentState(ctx context.Context, project string) (*State, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+r.changeColumns()+`
		FROM changes
		WHERE project = ?
		ORDER BY committed_at DESC
		LIMIT 1
	`, r.projectOr(project))

	c, err := r.scanChange(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("current state: %w", err)
	}

	tags, err := r.readColumn(ctx, r.db, `
		SELECT tag FROM tags WHERE change_id = ? ORDER BY committed_at
	`, c.ChangeID)
	if err != nil {
		return nil, fmt.Errorf("current state: read tags: %w", err)
	}

	return &State{DeployedChange: c, Tags: tags}, nil
}

// CurrentChanges returns a lazy, forward-only sequence of all deployed
// changes for the project, newest first. The caller must exhaust or close
// the iterator to release its cursor.
func (r *Registry) CurrentChanges(ctx context.Context, project string) (*ChangeIter, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+r.changeColumns()+`
		FROM changes
		WHERE project = ?
		ORDER BY committed_at DESC
	`, r.projectOr(project))
	if err != nil {
		return nil, fmt.Errorf("current changes: %w", err)
	}
	return &ChangeIter{rows: rows, reg: r}, nil
}

// CurrentTags returns a lazy, forward-only sequence of all tags on deployed
// changes for the project, newest first. The caller must exhaust or close
// the iterator to release its cursor.
func (r *Registry) CurrentTags(ctx context.Context, project string) (*TagIter, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT tag_id, tag, project, change_id, note,
			committer_name, committer_email, `+r.dialect.TimestampExpr("committed_at")+`,
			planner_name, planner_email, `+r.dialect.TimestampExpr("planned_at")+`
		FROM tags
		WHERE project = ?
		ORDER BY committed_at DESC
	`, r.projectOr(project))
	if err != nil {
		return nil, fmt.Errorf("current tags: %w", err)
	}
	return &TagIter{rows: rows, reg: r}, nil
}
