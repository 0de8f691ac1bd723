package cli

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/common"
)

var errUsage = errors.New("usage")

func usage(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// splitRef separates the record reference from the remaining arguments of
// an edit sub-command. Sub-commands in withValue take a one-word reference
// followed by a value; archive, unarchive and delete take the whole line
// as the reference so multi-word names work.
func splitRef(sub string, args []string, withValue ...string) (ref string, rest []string, ok bool) {
	if len(args) == 0 {
		return "", nil, false
	}
	switch {
	case slices.Contains(withValue, sub):
		return args[0], args[1:], true
	case sub == "archive" || sub == "unarchive" || sub == "delete" || sub == "rm":
		return strings.Join(args, " "), nil, true
	default:
		return "", nil, false
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// pick finds the item ref names: an exact id, a unique id prefix or a
// unique case-insensitive name, tried in that order.
func pick[T any](kind string, items []T, id, name func(T) string, ref string) (T, error) {
	var zero T
	if ref == "" {
		return zero, usage("missing %s", kind)
	}
	for _, it := range items {
		if id(it) == ref {
			return it, nil
		}
	}

	match := func(ok func(T) bool) (T, int) {
		var found T
		n := 0
		for _, it := range items {
			if ok(it) {
				found = it
				n++
			}
		}
		return found, n
	}

	if found, n := match(func(it T) bool { return strings.HasPrefix(id(it), ref) }); n == 1 {
		return found, nil
	} else if n > 1 {
		return zero, fmt.Errorf("%s %q is ambiguous, use more of the id", kind, ref)
	}
	if found, n := match(func(it T) bool { return strings.EqualFold(name(it), ref) }); n == 1 {
		return found, nil
	} else if n > 1 {
		return zero, fmt.Errorf("several %ss are named %q, use the id", kind, ref)
	}
	return zero, &common.NotFoundError{Kind: kind, ID: ref}
}

// parseWhen reads "15:04" (today), "2006-01-02", "2006-01-02T15:04" or
// RFC 3339, in the local zone unless the value carries one.
func parseWhen(s string, now time.Time) (time.Time, error) {
	loc := now.Location()
	if t, err := time.ParseInLocation("15:04", s, loc); err == nil {
		y, m, d := now.Date()
		return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc), nil
	}
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot read time %q (use 15:04, 2006-01-02 or 2006-01-02T15:04)", s)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// parseRange turns "today", "week", "month" or "<from> <to>" into a
// half-open interval. No arguments means no bounds.
func parseRange(args []string, now time.Time) (from, to time.Time, ok bool, err error) {
	switch {
	case len(args) == 0:
		return time.Time{}, time.Time{}, false, nil
	case len(args) == 1 && args[0] == "today":
		from = startOfDay(now)
		return from, from.AddDate(0, 0, 1), true, nil
	case len(args) == 1 && args[0] == "week":
		to = startOfDay(now).AddDate(0, 0, 1)
		return to.AddDate(0, 0, -7), to, true, nil
	case len(args) == 1 && args[0] == "month":
		to = startOfDay(now).AddDate(0, 0, 1)
		return to.AddDate(0, -1, 0), to, true, nil
	case len(args) == 2:
		if from, err = parseWhen(args[0], now); err != nil {
			return
		}
		if to, err = parseWhen(args[1], now); err != nil {
			return
		}
		if !from.Before(to) {
			return from, to, false, fmt.Errorf("range start must be before its end")
		}
		return from, to, true, nil
	default:
		return time.Time{}, time.Time{}, false, usage("range is today, week, month or <from> <to>")
	}
}
