package models

import (
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/cryptox"
)

// Tag is a sub-category that belongs to exactly one domain. DomainID is a
// plain reference: deleting the domain does not delete its tags.
type Tag struct {
	ID         string     `json:"id"`
	DomainID   string     `json:"domainId"`
	Name       string     `json:"name"`
	Color      string     `json:"color"`
	ArchivedAt *time.Time `json:"archivedAt,omitempty"`
	Lifecycle
}

func (t *Tag) EntityKind() Kind { return KindTag }
func (t *Tag) EntityID() string { return t.ID }

func (t *Tag) State() State {
	switch {
	case t.DeletedAt != nil:
		return StateSoftDeleted
	case t.ArchivedAt != nil:
		return StateArchived
	default:
		return StateActive
	}
}

func (t *Tag) Fingerprint() string {
	return cryptox.Fingerprint(string(KindTag), t.DomainID, t.Name, t.Color,
		flag(t.ArchivedAt != nil), flag(t.DeletedAt != nil))
}

func (t *Tag) Validate() error {
	if t.DomainID == "" {
		return &common.ValidationError{Field: "domainId", Reason: "is required"}
	}
	if err := validateName(t.Name); err != nil {
		return err
	}
	return validateColor(t.Color)
}

type TagPatch struct {
	DomainID *string
	Name     *string
	Color    *string
}

func (p TagPatch) Apply(t *Tag) {
	if p.DomainID != nil {
		t.DomainID = *p.DomainID
	}
	if p.Name != nil {
		t.Name = trimName(*p.Name)
	}
	if p.Color != nil {
		t.Color = normalizeColor(*p.Color)
	}
}
