// Package assessment reconciles labeling schemas with the assessments recorded
// on a trace.
package assessment

import (
	"strings"

	"github.com/cognobserve/labeling/internal/model"
)

// Identity is the acting reviewer: a username and any registered emails
type Identity struct {
	Username string   `json:"username,omitempty"`
	Emails   []string `json:"emails,omitempty"`
}

// Primary returns the identifier recorded as source on new assessments
func (id Identity) Primary() string {
	for _, e := range id.Emails {
		if e != "" {
			return e
		}
	}
	return id.Username
}

// Owns reports whether the serialized source mentions one of the identity's
// identifiers, case-insensitively.
func (id Identity) Owns(source model.Source) bool {
	serialized := strings.ToLower(source.String())
	if serialized == "" {
		return false
	}
	for _, ident := range id.identifiers() {
		if strings.Contains(serialized, strings.ToLower(ident)) {
			return true
		}
	}
	return false
}

func (id Identity) identifiers() []string {
	out := make([]string, 0, len(id.Emails)+1)
	if s := strings.TrimSpace(id.Username); s != "" {
		out = append(out, s)
	}
	for _, e := range id.Emails {
		if s := strings.TrimSpace(e); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Row pairs a schema with its current assessment, if any
type Row struct {
	Schema     model.LabelingSchema `json:"schema"`
	Assessment *model.Assessment    `json:"assessment,omitempty"`
}

type groupKey struct {
	name string
	typ  model.AssessmentType
}

// Match returns one row per schema with the latest matching assessment. When
// user is non-nil, assessments authored by anyone else are ignored. Match is
// pure and is meant to be re-run on the full assessment set after any change.
func Match(schemas []model.LabelingSchema, assessments []model.Assessment, user *Identity) []Row {
	latest := make(map[groupKey]int)
	latestByName := make(map[string]int)

	for i, a := range assessments {
		if user != nil && !user.Owns(a.Source) {
			continue
		}
		key := groupKey{name: a.Name, typ: a.Type}
		if cur, ok := latest[key]; !ok || newer(assessments[i], i, assessments[cur], cur) {
			latest[key] = i
		}
		if cur, ok := latestByName[a.Name]; !ok || newer(assessments[i], i, assessments[cur], cur) {
			latestByName[a.Name] = i
		}
	}

	rows := make([]Row, 0, len(schemas))
	for _, s := range schemas {
		row := Row{Schema: s}
		idx, ok := latest[groupKey{name: s.Name, typ: s.Type.AssessmentType()}]
		if !ok {
			idx, ok = latestByName[s.Name]
		}
		if ok {
			a := assessments[idx]
			row.Assessment = &a
		}
		rows = append(rows, row)
	}
	return rows
}

// newer reports whether candidate a (at position i) outranks b (at position j)
func newer(a model.Assessment, i int, b model.Assessment, j int) bool {
	switch {
	case a.Persisted() && b.Persisted():
		if c := CompareIDs(a.AssessmentID, b.AssessmentID); c != 0 {
			return c > 0
		}
	case a.Persisted() != b.Persisted():
		return a.Persisted()
	}
	if ca, cb := a.Created(), b.Created(); !ca.Equal(cb) {
		return ca.After(cb)
	}
	return i > j
}

// CompareIDs orders server-assigned IDs, which grow monotonically: shorter IDs
// sort first, equal lengths compare lexicographically. This keeps "5" before
// "12" and is plain lexicographic order for fixed-width IDs.
func CompareIDs(a, b string) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// WorkingSet maps schema names to their current assessment
func WorkingSet(rows []Row) map[string]model.Assessment {
	out := make(map[string]model.Assessment, len(rows))
	for _, r := range rows {
		if r.Assessment != nil {
			out[r.Schema.Name] = *r.Assessment
		}
	}
	return out
}
