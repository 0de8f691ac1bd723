package models

import (
	"strconv"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/cryptox"
)

// Domain is a top-level life category ("Work", "Health").
type Domain struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Color      string     `json:"color"`
	Order      int        `json:"order"`
	ArchivedAt *time.Time `json:"archivedAt,omitempty"`
	Lifecycle
}

func (d *Domain) EntityKind() Kind { return KindDomain }
func (d *Domain) EntityID() string { return d.ID }

func (d *Domain) State() State {
	switch {
	case d.DeletedAt != nil:
		return StateSoftDeleted
	case d.ArchivedAt != nil:
		return StateArchived
	default:
		return StateActive
	}
}

func (d *Domain) Fingerprint() string {
	return cryptox.Fingerprint(string(KindDomain), d.Name, d.Color, strconv.Itoa(d.Order),
		flag(d.ArchivedAt != nil), flag(d.DeletedAt != nil))
}

func (d *Domain) Validate() error {
	if err := validateName(d.Name); err != nil {
		return err
	}
	return validateColor(d.Color)
}

// DomainPatch lists the fields Update may change; nil means unchanged.
type DomainPatch struct {
	Name  *string
	Color *string
	Order *int
}

func (p DomainPatch) Apply(d *Domain) {
	if p.Name != nil {
		d.Name = trimName(*p.Name)
	}
	if p.Color != nil {
		d.Color = normalizeColor(*p.Color)
	}
	if p.Order != nil {
		d.Order = *p.Order
	}
}
