package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/groblegark/agora/internal/chain"
	"github.com/groblegark/agora/internal/entity"
	"github.com/groblegark/agora/internal/model"
	"github.com/groblegark/agora/internal/status"
	"github.com/groblegark/agora/internal/ui"
)

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// table renders rows under a header with aligned columns.
func table(header []string, rows [][]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, ui.RenderMuted(strings.Join(header, "\t")))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
}

// tolerateConflict downgrades a concurrent-edit conflict to a warning so
// read commands still show the deterministic winner.
func tolerateConflict(err error) error {
	var conflict *chain.ConflictError
	if errors.As(err, &conflict) {
		fmt.Fprintf(os.Stderr, "warning: concurrent edits; showing winning revision %s of %d candidates\n",
			conflict.Winner().Ref, len(conflict.Candidates))
		return nil
	}
	return err
}

func joinList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ",")
}

func printUsers(users []entity.Entity[model.User]) error {
	if jsonOutput {
		return printJSON(users)
	}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{
			string(u.Original), u.Value.Nickname, u.Value.Name,
			u.Value.Type.String(), u.Author,
		})
	}
	table([]string{"ID", "NICKNAME", "NAME", "TYPE", "AGENT"}, rows)
	return nil
}

func printOrganizations(orgs []entity.Entity[model.Organization]) error {
	if jsonOutput {
		return printJSON(orgs)
	}
	rows := make([][]string, 0, len(orgs))
	for _, o := range orgs {
		rows = append(rows, []string{string(o.Original), o.Value.Name, o.Value.Email, o.Author})
	}
	table([]string{"ID", "NAME", "EMAIL", "CREATOR"}, rows)
	return nil
}

func printRequests(reqs []entity.Entity[model.Request]) error {
	if jsonOutput {
		return printJSON(reqs)
	}
	rows := make([][]string, 0, len(reqs))
	for _, r := range reqs {
		rows = append(rows, []string{
			string(r.Original), r.Value.Title, ui.RenderState(r.Value.Status.String()),
			joinList(r.Value.Skills), r.Author,
		})
	}
	table([]string{"ID", "TITLE", "STATUS", "SKILLS", "CREATOR"}, rows)
	return nil
}

func printOffers(offers []entity.Entity[model.Offer]) error {
	if jsonOutput {
		return printJSON(offers)
	}
	rows := make([][]string, 0, len(offers))
	for _, o := range offers {
		rows = append(rows, []string{
			string(o.Original), o.Value.Title, ui.RenderState(o.Value.Status.String()),
			joinList(o.Value.Capabilities), o.Author,
		})
	}
	table([]string{"ID", "TITLE", "STATUS", "CAPABILITIES", "CREATOR"}, rows)
	return nil
}

func printServiceTypes(types []entity.Entity[model.ServiceType]) error {
	if jsonOutput {
		return printJSON(types)
	}
	rows := make([][]string, 0, len(types))
	for _, st := range types {
		technical := "no"
		if st.Value.Technical {
			technical = "yes"
		}
		rows = append(rows, []string{string(st.Original), st.Value.Name, technical, st.Author})
	}
	table([]string{"ID", "NAME", "TECHNICAL", "SUGGESTED BY"}, rows)
	return nil
}

func printMediums(mediums []entity.Entity[model.MediumOfExchange]) error {
	if jsonOutput {
		return printJSON(mediums)
	}
	rows := make([][]string, 0, len(mediums))
	for _, m := range mediums {
		rows = append(rows, []string{string(m.Original), m.Value.Code, m.Value.Name, m.Author})
	}
	table([]string{"ID", "CODE", "NAME", "SUGGESTED BY"}, rows)
	return nil
}

// printEntity shows one resolved entity with its metadata.
func printEntity[T any](ent entity.Entity[T]) error {
	if jsonOutput {
		return printJSON(ent)
	}
	fmt.Printf("%s\n", ui.RenderAccent(string(ent.Original)))
	fmt.Printf("  head:     %s\n", ent.Head)
	fmt.Printf("  creator:  %s\n", ent.Author)
	fmt.Printf("  created:  %s\n", ent.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  updated:  %s\n", ent.UpdatedAt.Format("2006-01-02 15:04:05"))
	value, err := json.MarshalIndent(ent.Value, "  ", "  ")
	if err != nil {
		return fmt.Errorf("marshaling value: %w", err)
	}
	fmt.Printf("  %s\n", value)
	return nil
}

// printResolvedStatus shows a subject's current state and its history.
func printResolvedStatus(res status.Resolved) error {
	if jsonOutput {
		return printJSON(res)
	}
	fmt.Printf("subject:  %s\n", ui.RenderAccent(string(res.Current.Subject)))
	fmt.Printf("state:    %s\n", ui.RenderState(string(res.Current.State)))
	if res.Current.Reason != "" {
		fmt.Printf("reason:   %s\n", res.Current.Reason)
	}
	if res.Current.SuspendedUntil != nil {
		fmt.Printf("until:    %s\n", res.Current.SuspendedUntil.Format("2006-01-02 15:04:05"))
	}
	if len(res.History) > 0 {
		fmt.Println("history:")
		for _, rec := range res.History {
			line := "  " + ui.RenderState(string(rec.State))
			if rec.Reason != "" {
				line += ui.RenderMuted(" (" + rec.Reason + ")")
			}
			fmt.Println(line)
		}
	}
	return nil
}
