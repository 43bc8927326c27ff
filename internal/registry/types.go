package registry

import (
	"strings"
	"time"
)

// DeployedChange is one row of the changes table with decoded timestamps.
type DeployedChange struct {
	ChangeID       string
	Name           string
	Project        string
	Note           string
	CommitterName  string
	CommitterEmail string
	CommittedAt    time.Time
	PlannerName    string
	PlannerEmail   string
	PlannedAt      time.Time
}

// State is the most recently deployed change for a project, plus the names
// of the tags currently on it in commit order.
type State struct {
	DeployedChange
	Tags []string
}

// DeployedTag is one row of the tags table with decoded timestamps.
type DeployedTag struct {
	TagID          string
	Name           string
	Project        string
	ChangeID       string
	Note           string
	CommitterName  string
	CommitterEmail string
	CommittedAt    time.Time
	PlannerName    string
	PlannerEmail   string
	PlannedAt      time.Time
}

// Event is one row of the audit trail. Tags, Requires, and Conflicts hold
// the names/specs that were in effect when the event was recorded, not the
// current projection.
type Event struct {
	Type           string
	ChangeID       string
	Name           string
	Project        string
	Note           string
	Tags           []string
	Requires       []string
	Conflicts      []string
	CommitterName  string
	CommitterEmail string
	CommittedAt    time.Time
	PlannerName    string
	PlannerEmail   string
	PlannedAt      time.Time
}

// RequiringChange is a deployed change that requires some other change,
// annotated with the nearest tag at or after its own commit position.
type RequiringChange struct {
	ChangeID string
	Project  string
	Name     string

	// AsOfTag is empty when no tag was committed at or after the
	// requiring change.
	AsOfTag string
}

// joinList renders a name/spec list as the comma-joined text stored on
// event rows. Event content is flat text so the audit trail survives any
// future reshaping of the tag and dependency tables.
func joinList(items []string) string {
	return strings.Join(items, ",")
}

// splitList decodes comma-joined event text back into a list.
// Empty text decodes to nil.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
