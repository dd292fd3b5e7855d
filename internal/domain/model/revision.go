package model

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Validity column names shared by every versioned table.
const (
	ValidFromField  = "valid_from"
	ValidUntilField = "valid_until"
)

// Revision is one version of a slowly changing entity such as a team or a
// player. ValidUntil is nil for the open revision.
type Revision struct {
	EntityID   string
	ValidFrom  time.Time
	ValidUntil *time.Time
	Fields     Record
}

// NewRevision builds a revision from a stored row whose entity id lives in
// idField.
func NewRevision(idField string, rec Record) (Revision, error) {
	id := rec.String(idField)
	if id == "" {
		return Revision{}, fmt.Errorf("revision: missing %s", idField)
	}
	from, ok := rec.Time(ValidFromField)
	if !ok {
		return Revision{}, fmt.Errorf("revision %s: missing %s", id, ValidFromField)
	}
	rev := Revision{
		EntityID:  id,
		ValidFrom: from,
		Fields:    rec.Without(ValidFromField, ValidUntilField),
	}
	if until, ok := rec.Time(ValidUntilField); ok {
		rev.ValidUntil = &until
	}
	return rev, nil
}

// Record flattens the revision back into a single row.
func (r Revision) Record() Record {
	out := r.Fields.Clone()
	out[ValidFromField] = r.ValidFrom
	if r.ValidUntil != nil {
		out[ValidUntilField] = *r.ValidUntil
	} else {
		out[ValidUntilField] = nil
	}
	return out
}

// MarshalJSON renders the revision as the flat row.
func (r Revision) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Record())
}
