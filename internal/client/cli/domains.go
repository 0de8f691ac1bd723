package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
)

const domainsUsage = "domains [list|archived|add <name> [color]|rename <ref> <name>|color <ref> <#rrggbb>|order <ref> <n>|archive <ref>|unarchive <ref>|delete <ref>]"

func (a *App) findDomain(ctx context.Context, ref string) (*models.Domain, error) {
	active, err := a.domains.GetAllActive(ctx)
	if err != nil {
		return nil, err
	}
	archived, err := a.domains.GetArchived(ctx)
	if err != nil {
		return nil, err
	}
	d, err := pick("domain", append(active, archived...),
		func(d models.Domain) string { return d.ID },
		func(d models.Domain) string { return d.Name },
		ref)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (a *App) printDomains(list []models.Domain) {
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No domains.")
		return
	}
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCOLOR\tORDER\tSTATE")
	for _, d := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", shortID(d.ID), d.Name, d.Color, d.Order, d.State())
	}
	_ = w.Flush()
}

// Domains runs a domains sub-command; with no arguments it lists active ones.
func (a *App) Domains(ctx context.Context, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}

	switch sub {
	case "list", "ls":
		list, err := a.domains.GetAllActive(ctx)
		if err != nil {
			return err
		}
		a.printDomains(list)
		return nil

	case "archived":
		list, err := a.domains.GetArchived(ctx)
		if err != nil {
			return err
		}
		a.printDomains(list)
		return nil

	case "add":
		if len(args) == 0 {
			return usage("domains add <name> [color]")
		}
		name, color := args[0], "#808080"
		if len(args) > 1 {
			color = args[len(args)-1]
			name = strings.Join(args[:len(args)-1], " ")
		}
		active, err := a.domains.GetAllActive(ctx)
		if err != nil {
			return err
		}
		d, err := a.domains.Create(ctx, name, color, len(active))
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Created domain %s (%s)\n", d.Name, shortID(d.ID))
		return nil
	}

	ref, rest, ok := splitRef(sub, args, "rename", "color", "order")
	if !ok {
		return usage(domainsUsage)
	}
	d, err := a.findDomain(ctx, ref)
	if err != nil {
		return err
	}

	var updated *models.Domain
	switch sub {
	case "rename":
		if len(rest) == 0 {
			return usage("domains rename <ref> <name>")
		}
		name := strings.Join(rest, " ")
		updated, err = a.domains.Update(ctx, d.ID, models.DomainPatch{Name: &name})
	case "color":
		if len(rest) != 1 {
			return usage("domains color <ref> <#rrggbb>")
		}
		updated, err = a.domains.Update(ctx, d.ID, models.DomainPatch{Color: &rest[0]})
	case "order":
		if len(rest) != 1 {
			return usage("domains order <ref> <n>")
		}
		n, convErr := strconv.Atoi(rest[0])
		if convErr != nil {
			return usage("order must be a number")
		}
		updated, err = a.domains.Update(ctx, d.ID, models.DomainPatch{Order: &n})
	case "archive":
		updated, err = a.domains.Archive(ctx, d.ID)
	case "unarchive":
		updated, err = a.domains.Unarchive(ctx, d.ID)
	case "delete", "rm":
		if err := a.domains.SoftDelete(ctx, d.ID); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Deleted domain %s\n", d.Name)
		return nil
	default:
		return usage(domainsUsage)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Domain %s is now %s (version %d)\n", updated.Name, updated.State(), updated.Version)
	return nil
}
