package registry

import (
	"database/sql"
	"fmt"
)

// Iterators wrap an open cursor as a finite, forward-only, non-restartable
// sequence. Each Next fetches one row on demand; when the cursor is
// exhausted or a row fails to decode, the iterator closes itself and Err
// reports what happened. Callers that stop early must Close explicitly so
// the connection is free for the next statement.

// ChangeIter iterates deployed changes.
type ChangeIter struct {
	rows *sql.Rows
	reg  *Registry
	cur  DeployedChange
	err  error
}

// Next advances to the next change. It returns false when the sequence is
// exhausted or an error occurred; check Err after the loop.
func (it *ChangeIter) Next() bool {
	if it.rows == nil {
		return false
	}
	if !it.rows.Next() {
		it.finish(it.rows.Err())
		return false
	}
	c, err := it.reg.scanChange(it.rows)
	if err != nil {
		it.finish(fmt.Errorf("scan change: %w", err))
		return false
	}
	it.cur = c
	return true
}

// Change returns the change fetched by the last successful Next.
func (it *ChangeIter) Change() DeployedChange { return it.cur }

// Err returns the error that terminated iteration, if any.
func (it *ChangeIter) Err() error { return it.err }

// Close releases the underlying cursor. Safe to call more than once.
func (it *ChangeIter) Close() error {
	if it.rows == nil {
		return nil
	}
	rows := it.rows
	it.rows = nil
	return rows.Close()
}

func (it *ChangeIter) finish(err error) {
	if it.err == nil {
		it.err = err
	}
	it.Close()
}

// TagIter iterates tags on deployed changes.
type TagIter struct {
	rows *sql.Rows
	reg  *Registry
	cur  DeployedTag
	err  error
}

// Next advances to the next tag. It returns false when the sequence is
// exhausted or an error occurred; check Err after the loop.
func (it *TagIter) Next() bool {
	if it.rows == nil {
		return false
	}
	if !it.rows.Next() {
		it.finish(it.rows.Err())
		return false
	}

	var t DeployedTag
	var committedAt, plannedAt string
	if err := it.rows.Scan(
		&t.TagID, &t.Name, &t.Project, &t.ChangeID, &t.Note,
		&t.CommitterName, &t.CommitterEmail, &committedAt,
		&t.PlannerName, &t.PlannerEmail, &plannedAt,
	); err != nil {
		it.finish(fmt.Errorf("scan tag: %w", err))
		return false
	}

	var err error
	if t.CommittedAt, err = it.reg.dialect.ParseTimestamp(committedAt); err != nil {
		it.finish(fmt.Errorf("parse committed_at: %w", err))
		return false
	}
	if t.PlannedAt, err = it.reg.dialect.ParseTimestamp(plannedAt); err != nil {
		it.finish(fmt.Errorf("parse planned_at: %w", err))
		return false
	}

	it.cur = t
	return true
}

// Tag returns the tag fetched by the last successful Next.
func (it *TagIter) Tag() DeployedTag { return it.cur }

// Err returns the error that terminated iteration, if any.
func (it *TagIter) Err() error { return it.err }

// Close releases the underlying cursor. Safe to call more than once.
func (it *TagIter) Close() error {
	if it.rows == nil {
		return nil
	}
	rows := it.rows
	it.rows = nil
	return rows.Close()
}

func (it *TagIter) finish(err error) {
	if it.err == nil {
		it.err = err
	}
	it.Close()
}

// EventIter iterates audit-trail events.
type EventIter struct {
	rows *sql.Rows
	reg  *Registry
	cur  Event
	err  error
}

// Next advances to the next event. It returns false when the sequence is
// exhausted or an error occurred; check Err after the loop.
func (it *EventIter) Next() bool {
	if it.rows == nil {
		return false
	}
	if !it.rows.Next() {
		it.finish(it.rows.Err())
		return false
	}

	var e Event
	var tags, requires, conflicts string
	var committedAt, plannedAt string
	if err := it.rows.Scan(
		&e.Type, &e.ChangeID, &e.Name, &e.Project, &e.Note,
		&requires, &conflicts, &tags,
		&e.CommitterName, &e.CommitterEmail, &committedAt,
		&e.PlannerName, &e.PlannerEmail, &plannedAt,
	); err != nil {
		it.finish(fmt.Errorf("scan event: %w", err))
		return false
	}

	e.Tags = splitList(tags)
	e.Requires = splitList(requires)
	e.Conflicts = splitList(conflicts)

	var err error
	if e.CommittedAt, err = it.reg.dialect.ParseTimestamp(committedAt); err != nil {
		it.finish(fmt.Errorf("parse committed_at: %w", err))
		return false
	}
	if e.PlannedAt, err = it.reg.dialect.ParseTimestamp(plannedAt); err != nil {
		it.finish(fmt.Errorf("parse planned_at: %w", err))
		return false
	}

	it.cur = e
	return true
}

// Event returns the event fetched by the last successful Next.
func (it *EventIter) Event() Event { return it.cur }

// Err returns the error that terminated iteration, if any.
func (it *EventIter) Err() error { return it.err }

// Close releases the underlying cursor. Safe to call more than once.
func (it *EventIter) Close() error {
	if it.rows == nil {
		return nil
	}
	rows := it.rows
	it.rows = nil
	return rows.Close()
}

func (it *EventIter) finish(err error) {
	if it.err == nil {
		it.err = err
	}
	it.Close()
}
