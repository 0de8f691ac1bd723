package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
)

const tagsUsage = "tags [list [domain]|archived|add <domain> <name> [color]|rename <ref> <name>|color <ref> <#rrggbb>|move <ref> <domain>|archive <ref>|unarchive <ref>|delete <ref>]"

func (a *App) allTags(ctx context.Context) ([]models.Tag, error) {
	active, err := a.tags.GetAllActive(ctx)
	if err != nil {
		return nil, err
	}
	archived, err := a.tags.GetArchived(ctx)
	if err != nil {
		return nil, err
	}
	return append(active, archived...), nil
}

func pickTag(tags []models.Tag, ref string) (models.Tag, error) {
	return pick("tag", tags,
		func(t models.Tag) string { return t.ID },
		func(t models.Tag) string { return t.Name },
		ref)
}

func (a *App) printTags(ctx context.Context, list []models.Tag) error {
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No tags.")
		return nil
	}
	domainNames := map[string]string{}
	active, err := a.domains.GetAllActive(ctx)
	if err != nil {
		return err
	}
	archived, err := a.domains.GetArchived(ctx)
	if err != nil {
		return err
	}
	for _, d := range append(active, archived...) {
		domainNames[d.ID] = d.Name
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDOMAIN\tCOLOR\tSTATE")
	for _, t := range list {
		domain := domainNames[t.DomainID]
		if domain == "" {
			domain = "?"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", shortID(t.ID), t.Name, domain, t.Color, t.State())
	}
	return w.Flush()
}

// Tags runs a tags sub-command; with no arguments it lists active ones.
func (a *App) Tags(ctx context.Context, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}

	switch sub {
	case "list", "ls":
		if len(args) == 0 {
			list, err := a.tags.GetAllActive(ctx)
			if err != nil {
				return err
			}
			return a.printTags(ctx, list)
		}
		d, err := a.findDomain(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		list, err := a.tags.GetByDomain(ctx, d.ID)
		if err != nil {
			return err
		}
		return a.printTags(ctx, list)

	case "archived":
		list, err := a.tags.GetArchived(ctx)
		if err != nil {
			return err
		}
		return a.printTags(ctx, list)

	case "add":
		if len(args) < 2 {
			return usage("tags add <domain> <name> [color]")
		}
		d, err := a.findDomain(ctx, args[0])
		if err != nil {
			return err
		}
		name, color := args[1], d.Color
		if len(args) > 2 {
			name, color = strings.Join(args[1:len(args)-1], " "), args[len(args)-1]
		}
		t, err := a.tags.Create(ctx, d.ID, name, color)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Created tag %s in %s (%s)\n", t.Name, d.Name, shortID(t.ID))
		return nil
	}

	ref, rest, ok := splitRef(sub, args, "rename", "color", "move")
	if !ok {
		return usage(tagsUsage)
	}
	all, err := a.allTags(ctx)
	if err != nil {
		return err
	}
	t, err := pickTag(all, ref)
	if err != nil {
		return err
	}

	var updated *models.Tag
	switch sub {
	case "rename":
		if len(rest) == 0 {
			return usage("tags rename <ref> <name>")
		}
		name := strings.Join(rest, " ")
		updated, err = a.tags.Update(ctx, t.ID, models.TagPatch{Name: &name})
	case "color":
		if len(rest) != 1 {
			return usage("tags color <ref> <#rrggbb>")
		}
		updated, err = a.tags.Update(ctx, t.ID, models.TagPatch{Color: &rest[0]})
	case "move":
		if len(rest) == 0 {
			return usage("tags move <ref> <domain>")
		}
		d, findErr := a.findDomain(ctx, strings.Join(rest, " "))
		if findErr != nil {
			return findErr
		}
		updated, err = a.tags.Update(ctx, t.ID, models.TagPatch{DomainID: &d.ID})
	case "archive":
		updated, err = a.tags.Archive(ctx, t.ID)
	case "unarchive":
		updated, err = a.tags.Unarchive(ctx, t.ID)
	case "delete", "rm":
		if err := a.tags.SoftDelete(ctx, t.ID); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Deleted tag %s\n", t.Name)
		return nil
	default:
		return usage(tagsUsage)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Tag %s is now %s (version %d)\n", updated.Name, updated.State(), updated.Version)
	return nil
}
