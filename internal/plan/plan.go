// Package plan defines the in-memory domain objects the registry records:
// changes, tags, dependencies, and the project they belong to.
//
// Objects in this package are already parsed and resolved. The registry
// treats them as inputs; it never constructs them. Identity is
// content-derived: a change or tag hashes to the same ID on every host
// that holds the same plan, so the registry can recognize a change it has
// seen before without any shared sequence generator.
package plan

import "time"

// Project identifies the migration plan the registry records changes for.
// The URI is optional; when present it is globally unique across projects.
type Project struct {
	Name         string
	URI          string
	CreatorName  string
	CreatorEmail string
}

// DepType distinguishes the two kinds of inter-change dependencies.
type DepType string

const (
	// DepRequire marks a change that must already be deployed.
	DepRequire DepType = "require"

	// DepConflict marks a change that must NOT be deployed.
	DepConflict DepType = "conflict"
)

// Dependency is a require/conflict relationship from one change to another.
type Dependency struct {
	// Type is require or conflict.
	Type DepType

	// Change is the dependency spec exactly as written in the plan,
	// e.g. "users" or "users@v1.0".
	Change string

	// ID is the resolved change ID when known, empty otherwise.
	ID string
}

// Tag is a named release marker attached to a change.
type Tag struct {
	Name         string
	Note         string
	PlannerName  string
	PlannerEmail string
	PlannedAt    time.Time
}

// Change is a single schema migration unit.
type Change struct {
	Name         string
	Project      string
	Note         string
	PlannedAt    time.Time
	PlannerName  string
	PlannerEmail string
	Tags         []Tag
	Dependencies []Dependency
}

// Requires returns the dependency specs of all require-type dependencies,
// in plan order.
func (c *Change) Requires() []string {
	return c.depSpecs(DepRequire)
}

// Conflicts returns the dependency specs of all conflict-type dependencies,
// in plan order.
func (c *Change) Conflicts() []string {
	return c.depSpecs(DepConflict)
}

func (c *Change) depSpecs(t DepType) []string {
	var specs []string
	for _, d := range c.Dependencies {
		if d.Type == t {
			specs = append(specs, d.Change)
		}
	}
	return specs
}

// TagNames returns the names of the change's tags, in plan order.
func (c *Change) TagNames() []string {
	var names []string
	for _, t := range c.Tags {
		names = append(names, t.Name)
	}
	return names
}
