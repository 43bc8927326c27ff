package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// IsDeployedChange reports whether the change with the given ID is currently
// deployed.
func (r *Registry) IsDeployedChange(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM changes WHERE change_id = ?)
	`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("is deployed change: %w", err)
	}
	return exists, nil
}

// AreDeployedChanges returns the subset of the given change IDs that are
// currently deployed. Order of the result is unspecified. Returns nil for
// an empty input.
func (r *Registry) AreDeployedChanges(ctx context.Context, ids ...string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	deployed, err := r.readColumn(ctx, r.db, `
		SELECT change_id FROM changes WHERE change_id IN (`+strings.Join(placeholders, ", ")+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("are deployed changes: %w", err)
	}
	return deployed, nil
}

// ChangesRequiringChange returns every currently deployed change whose
// dependencies require the change with the given ID. Each result is
// annotated with the nearest tag committed at or after the REQUIRING
// change's own commit position, for display purposes; AsOfTag is empty when
// no such tag exists.
func (r *Registry) ChangesRequiringChange(ctx context.Context, id string) ([]RequiringChange, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.change_id, c.project, c.change, (
			SELECT t.tag
			FROM changes c2
			JOIN tags t ON c2.change_id = t.change_id
			WHERE c2.project = c.project
			  AND c2.committed_at >= c.committed_at
			ORDER BY c2.committed_at, t.committed_at
			LIMIT 1
		) AS asof_tag
		FROM dependencies d
		JOIN changes c ON c.change_id = d.change_id
		WHERE d.dependency_id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("changes requiring change: %w", err)
	}
	defer rows.Close()

	var requiring []RequiringChange
	for rows.Next() {
		var rc RequiringChange
		var asof sql.NullString
		if err := rows.Scan(&rc.ChangeID, &rc.Project, &rc.Name, &asof); err != nil {
			return nil, fmt.Errorf("scan requiring change: %w", err)
		}
		rc.AsOfTag = asof.String
		requiring = append(requiring, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requiring changes: %w", err)
	}
	return requiring, nil
}

// NameForChangeID resolves a deployed change ID to a human-readable name:
// "<name>@<tag>" using the earliest tag committed at or after the change's
// own commit position within its project, or bare "<name>" when no such tag
// exists. Returns "" when the ID is not currently deployed.
func (r *Registry) NameForChangeID(ctx context.Context, id string) (string, error) {
	var name string
	var tag sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT c.change, (
			SELECT t.tag
			FROM changes c2
			JOIN tags t ON c2.change_id = t.change_id
			WHERE c2.project = c.project
			  AND c2.committed_at >= c.committed_at
			ORDER BY c2.committed_at, t.committed_at
			LIMIT 1
		) AS asof_tag
		FROM changes c
		WHERE c.change_id = ?
	`, id).Scan(&name, &tag)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("name for change id: %w", err)
	}

	if tag.Valid {
		return name + "@" + tag.String, nil
	}
	return name, nil
}
