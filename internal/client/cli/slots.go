package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/stats"
)

const slotsUsage = "slots [list [today|week|month|<from> <to>]|add <start> <end> [tags|-] [note]|tag <ref> <tags|->|note <ref> <text>|move <ref> <start> <end>|delete <ref>]"

// resolveTags maps a comma separated list of tag refs to ids; "-" is none.
func (a *App) resolveTags(ctx context.Context, refs string) ([]string, error) {
	if refs == "-" || refs == "" {
		return []string{}, nil
	}
	all, err := a.allTags(ctx)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, ref := range strings.Split(refs, ",") {
		t, err := pickTag(all, strings.TrimSpace(ref))
		if err != nil {
			return nil, err
		}
		ids = append(ids, t.ID)
	}
	return ids, nil
}

func (a *App) findSlot(ctx context.Context, ref string) (*models.TimeSlot, error) {
	all, err := a.slots.GetAllActive(ctx)
	if err != nil {
		return nil, err
	}
	sl, err := pick("slot", all,
		func(s models.TimeSlot) string { return s.ID },
		func(models.TimeSlot) string { return "" },
		ref)
	if err != nil {
		return nil, err
	}
	return &sl, nil
}

func (a *App) printSlots(ctx context.Context, list []models.TimeSlot) error {
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No time slots.")
		return nil
	}
	all, err := a.allTags(ctx)
	if err != nil {
		return err
	}
	names := make(map[string]string, len(all))
	for _, t := range all {
		names[t.ID] = t.Name
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTART\tEND\tTIME\tTAGS\tNOTE")
	for _, s := range list {
		tags := make([]string, 0, len(s.TagIDs))
		for _, id := range s.TagIDs {
			if n, ok := names[id]; ok {
				tags = append(tags, n)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(s.ID),
			s.Start.In(a.location()).Format("2006-01-02 15:04"),
			s.End.In(a.location()).Format("15:04"),
			stats.FormatDuration(s.Minutes()),
			strings.Join(tags, ","),
			s.Note)
	}
	return w.Flush()
}

func (a *App) location() *time.Location {
	return time.Local
}

func (a *App) now() time.Time {
	return a.store.Now().In(a.location())
}

// Slots runs a slots sub-command; with no arguments it lists today's.
func (a *App) Slots(ctx context.Context, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}

	switch sub {
	case "list", "ls":
		if len(args) == 0 {
			args = []string{"today"}
		}
		var list []models.TimeSlot
		if len(args) == 1 && args[0] == "all" {
			all, err := a.slots.GetAllActive(ctx)
			if err != nil {
				return err
			}
			list = all
		} else {
			from, to, _, err := parseRange(args, a.now())
			if err != nil {
				return err
			}
			if list, err = a.slots.GetInRange(ctx, from, to); err != nil {
				return err
			}
		}
		return a.printSlots(ctx, list)

	case "add":
		if len(args) < 2 {
			return usage("slots add <start> <end> [tags|-] [note]")
		}
		start, err := parseWhen(args[0], a.now())
		if err != nil {
			return err
		}
		end, err := parseWhen(args[1], a.now())
		if err != nil {
			return err
		}
		var tagIDs []string
		if len(args) > 2 {
			if tagIDs, err = a.resolveTags(ctx, args[2]); err != nil {
				return err
			}
		}
		note := ""
		if len(args) > 3 {
			note = strings.Join(args[3:], " ")
		}
		s, err := a.slots.Create(ctx, start, end, tagIDs, note)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Logged %s (%s)\n", stats.FormatDuration(s.Minutes()), shortID(s.ID))
		return nil
	}

	ref, rest, ok := splitRef(sub, args, "tag", "note", "move")
	if !ok {
		return usage(slotsUsage)
	}
	s, err := a.findSlot(ctx, ref)
	if err != nil {
		return err
	}

	var patch models.SlotPatch
	switch sub {
	case "tag":
		if len(rest) != 1 {
			return usage("slots tag <ref> <tags|->")
		}
		ids, err := a.resolveTags(ctx, rest[0])
		if err != nil {
			return err
		}
		patch.TagIDs = &ids
	case "note":
		note := strings.Join(rest, " ")
		patch.Note = &note
	case "move":
		if len(rest) != 2 {
			return usage("slots move <ref> <start> <end>")
		}
		start, err := parseWhen(rest[0], a.now())
		if err != nil {
			return err
		}
		end, err := parseWhen(rest[1], a.now())
		if err != nil {
			return err
		}
		patch.Start, patch.End = &start, &end
	case "delete", "rm":
		if err := a.slots.SoftDelete(ctx, s.ID); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Deleted slot %s\n", shortID(s.ID))
		return nil
	default:
		return usage(slotsUsage)
	}

	updated, err := a.slots.Update(ctx, s.ID, patch)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated slot %s (version %d)\n", shortID(updated.ID), updated.Version)
	return nil
}
