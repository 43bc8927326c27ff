package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	domainChange = "tidemark/change/v1"
	domainTag    = "tidemark/tag/v1"
)

// timeLayout renders timestamps inside ID info strings. Always UTC so the
// same plan hashes identically regardless of the author's zone.
const timeLayout = time.RFC3339

// hashWithDomain computes SHA-256 over domain-separated, NFC-normalized
// fields. Format: SHA256(domain || 0x00 || field || 0x00 || ...).
// The null separator prevents field boundary ambiguity; NFC normalization
// keeps IDs stable when names or notes arrive in decomposed Unicode form.
func hashWithDomain(domain string, fields ...string) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	for _, f := range fields {
		h.Write(norm.NFC.Bytes([]byte(f)))
		h.Write([]byte{0x00})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ID computes the content-addressed ID of the change.
//
// The ID covers project, name, planner identity, planning time, note, and
// the dependency specs. It deliberately excludes deployment state (committer,
// deployment time): the same planned change has the same identity whether or
// not it has been deployed anywhere.
func (c *Change) ID() string {
	fields := []string{
		c.Project,
		c.Name,
		c.PlannerName,
		c.PlannerEmail,
		c.PlannedAt.UTC().Format(timeLayout),
		c.Note,
	}
	for _, d := range c.Dependencies {
		fields = append(fields, string(d.Type), d.Change)
	}
	return hashWithDomain(domainChange, fields...)
}

// ID computes the content-addressed ID of the tag within a project.
func (t *Tag) ID(project string) string {
	return hashWithDomain(domainTag,
		project,
		t.Name,
		t.PlannerName,
		t.PlannerEmail,
		t.PlannedAt.UTC().Format(timeLayout),
		t.Note,
	)
}
