package models

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/timekeeper/internal/common"
)

const maxNameLength = 100

var colorRe = regexp.MustCompile(`^#[0-9A-F]{6}$`)

func trimName(s string) string {
	return strings.TrimSpace(s)
}

func normalizeColor(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &common.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return &common.ValidationError{Field: "name", Reason: "is too long"}
	}
	return nil
}

func validateColor(color string) error {
	if !colorRe.MatchString(color) {
		return &common.ValidationError{Field: "color", Reason: "must look like #RRGGBB"}
	}
	return nil
}

// NormalizeDomain trims and upper-cases user input before validation.
func NormalizeDomain(d *Domain) {
	d.Name = trimName(d.Name)
	d.Color = normalizeColor(d.Color)
}

func NormalizeTag(t *Tag) {
	t.Name = trimName(t.Name)
	t.Color = normalizeColor(t.Color)
}
