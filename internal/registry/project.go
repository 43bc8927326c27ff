package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tidemark/tidemark/internal/plan"
)

// RegisteredProjects returns all registered project names in lexicographic
// order.
func (r *Registry) RegisteredProjects(ctx context.Context) ([]string, error) {
	names, err := r.readColumn(ctx, r.db, `
		SELECT project FROM projects ORDER BY project
	`)
	if err != nil {
		return nil, fmt.Errorf("registered projects: %w", err)
	}
	return names, nil
}

// RegisterProject registers the plan's project in the ledger.
//
// Registration is idempotent: re-registering an existing project with the
// same URI (or the same absence of one) is a no-op. A URI mismatch against
// an existing project of the same name, or a URI already claimed by a
// different project, fails with a registration conflict.
func (r *Registry) RegisterProject(ctx context.Context, p *plan.Project) error {
	var uri sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT uri FROM projects WHERE project = ?
	`, p.Name).Scan(&uri)

	switch {
	case err == nil:
		return checkProjectURI(p, uri)
	case errors.Is(err, sql.ErrNoRows):
		// Not registered yet; fall through to insert.
	default:
		return fmt.Errorf("register project: look up %q: %w", p.Name, err)
	}

	// The name is free, but the URI must not belong to another project.
	if p.URI != "" {
		var owner string
		err := r.db.QueryRowContext(ctx, `
			SELECT project FROM projects WHERE uri = ?
		`, p.URI).Scan(&owner)
		switch {
		case err == nil:
			return registrationConflictf(
				"cannot register %q with URI %s: project %q already uses that URI",
				p.Name, p.URI, owner,
			)
		case errors.Is(err, sql.ErrNoRows):
			// URI is free too.
		default:
			return fmt.Errorf("register project: look up URI %s: %w", p.URI, err)
		}
	}

	var uriVal any
	if p.URI != "" {
		uriVal = p.URI
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO projects (project, uri, creator_name, creator_email)
		VALUES (?, ?, ?, ?)
	`, p.Name, uriVal, p.CreatorName, p.CreatorEmail)
	if err != nil {
		return fmt.Errorf("register project %q: %w", p.Name, err)
	}

	r.log.Debug("registered project",
		zap.String("project", p.Name),
		zap.String("uri", p.URI),
	)
	return nil
}

// checkProjectURI compares the plan's URI against the URI already registered
// under the same project name.
func checkProjectURI(p *plan.Project, registered sql.NullString) error {
	switch {
	case !registered.Valid && p.URI == "":
		return nil
	case !registered.Valid:
		return registrationConflictf(
			"cannot register %q with URI %s: already exists with NULL URI",
			p.Name, p.URI,
		)
	case p.URI == "":
		return registrationConflictf(
			"cannot register %q without URI: already exists with URI %s",
			p.Name, registered.String,
		)
	case registered.String != p.URI:
		return registrationConflictf(
			"cannot register %q with URI %s: already exists with URI %s",
			p.Name, p.URI, registered.String,
		)
	default:
		return nil
	}
}
