package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pevans/campus/app"
	"github.com/pevans/campus/newsfeed"
	"github.com/pevans/campus/paging"
	"github.com/pevans/campus/portalapi"
)

// Output formats.
const (
	formatTable   = "table"
	formatJSON    = "json"
	formatCompact = "compact"
)

// Column widths for table output
const (
	nameColumnWidth        = 40
	descriptionColumnWidth = 70
)

func validateFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatCompact:
		return nil
	default:
		return fmt.Errorf("invalid output format: %s (use table, json or compact)", format)
	}
}

// printJSON prints v as indented JSON
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// newTable creates a table writer with the shared style
func newTable(w io.Writer, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Footer = text.FormatDefault
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: nameColumnWidth},
		{Number: 3, WidthMax: descriptionColumnWidth},
	})
	t.AppendHeader(header)
	return t
}

// printView prints a feature list in the requested format
func printView(w io.Writer, format string, view app.View) error {
	if format == formatJSON {
		return printJSON(w, view)
	}

	rows, header := viewRows(view.Items)
	if len(rows) == 0 {
		fmt.Fprintln(w, "No items to display.")
		return nil
	}

	if format == formatCompact {
		for _, row := range rows {
			fmt.Fprintf(w, "%v  %v\n", row[0], row[1])
		}
		return nil
	}

	t := newTable(w, header)
	for _, row := range rows {
		t.AppendRow(row)
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("Showing %d of %d", view.Shown, view.Total), tagSummary(view.Tags)})
	t.Render()

	if view.State != paging.StateExhausted {
		fmt.Fprintln(w, "More items available (use --pages or --all).")
	}
	return nil
}

// viewRows turns a typed item slice into table rows
func viewRows(items any) ([]table.Row, table.Row) {
	var rows []table.Row

	switch items := items.(type) {
	case []portalapi.Department:
		for _, d := range items {
			rows = append(rows, table.Row{d.ID, d.Name, truncate(d.Description, descriptionColumnWidth), tagNames(d.Tags)})
		}
		return rows, table.Row{"ID", "Name", "Description", "Tags"}
	case []portalapi.ScienceClub:
		for _, sc := range items {
			rows = append(rows, table.Row{sc.ID, sc.Name, truncate(sc.Description, descriptionColumnWidth), tagNames(sc.Tags)})
		}
		return rows, table.Row{"ID", "Name", "Description", "Tags"}
	case []portalapi.Building:
		for _, b := range items {
			rows = append(rows, table.Row{b.ID, b.Name, b.Address, tagNames(b.Tags)})
		}
		return rows, table.Row{"ID", "Name", "Address", "Tags"}
	case []portalapi.Info:
		for _, i := range items {
			rows = append(rows, table.Row{i.ID, i.Title, truncate(i.Description, descriptionColumnWidth), tagNames(i.Tags)})
		}
		return rows, table.Row{"ID", "Title", "Description", "Tags"}
	case []newsfeed.Summary:
		for _, s := range items {
			link := "-"
			if s.Scrapable() {
				link = *s.DetailsURL
			}
			rows = append(rows, table.Row{s.DateLabel, s.Title, truncate(s.Description, descriptionColumnWidth), link})
		}
		return rows, table.Row{"Date", "Title", "Description", "Link"}
	}
	return nil, nil
}

func printDepartment(w io.Writer, format string, dept portalapi.Department) error {
	if format == formatJSON {
		return printJSON(w, dept)
	}

	fmt.Fprintf(w, "%s", dept.Name)
	if dept.Code != "" {
		fmt.Fprintf(w, " (%s)", dept.Code)
	}
	fmt.Fprintln(w)
	if format == formatCompact {
		return nil
	}

	if dept.Description != "" {
		fmt.Fprintf(w, "\n%s\n", dept.Description)
	}
	if dept.Address != "" {
		fmt.Fprintf(w, "\nAddress: %s\n", dept.Address)
	}
	if dept.Website != "" {
		fmt.Fprintf(w, "Website: %s\n", dept.Website)
	}

	if len(dept.Clubs) > 0 {
		fmt.Fprintln(w)
		t := newTable(w, table.Row{"ID", "Science club", "Description"})
		for _, sc := range dept.Clubs {
			t.AppendRow(table.Row{sc.ID, sc.Name, truncate(sc.Description, descriptionColumnWidth)})
		}
		t.Render()
	}
	return nil
}

func printClub(w io.Writer, format string, club portalapi.ScienceClub) error {
	if format == formatJSON {
		return printJSON(w, club)
	}
	return printDetail(w, format, club.Name, club.Description, [][2]string{
		{"Email", club.Email},
		{"Website", club.Website},
		{"Facebook", club.Facebook},
		{"Tags", tagNames(club.Tags)},
	})
}

func printBuilding(w io.Writer, format string, b portalapi.Building) error {
	if format == formatJSON {
		return printJSON(w, b)
	}
	title := b.Name
	if b.Code != "" {
		title += " (" + b.Code + ")"
	}
	location := ""
	if b.Latitude != 0 || b.Longitude != 0 {
		location = fmt.Sprintf("%.6f, %.6f", b.Latitude, b.Longitude)
	}
	return printDetail(w, format, title, b.Description, [][2]string{
		{"Address", b.Address},
		{"Location", location},
		{"Tags", tagNames(b.Tags)},
	})
}

func printInfo(w io.Writer, format string, info portalapi.Info) error {
	if format == formatJSON {
		return printJSON(w, info)
	}
	body := info.Description
	if info.Content != "" {
		body = info.Content
	}
	return printDetail(w, format, info.Title, body, [][2]string{
		{"Tags", tagNames(info.Tags)},
	})
}

// printDetail prints a title line, then in table format the body and every
// non-empty field.
func printDetail(w io.Writer, format, title, body string, fields [][2]string) error {
	fmt.Fprintln(w, title)
	if format == formatCompact {
		return nil
	}

	if body != "" {
		fmt.Fprintf(w, "\n%s\n", body)
	}
	printed := false
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if !printed {
			fmt.Fprintln(w)
			printed = true
		}
		fmt.Fprintf(w, "%s: %s\n", f[0], f[1])
	}
	return nil
}

func printNotices(w io.Writer, format string, notices []portalapi.WhatsNew) error {
	if format == formatJSON {
		return printJSON(w, notices)
	}
	if len(notices) == 0 {
		fmt.Fprintln(w, "No notices.")
		return nil
	}

	for _, n := range notices {
		fmt.Fprintf(w, "%s  %s\n", n.PublishedAt, n.Title)
		if format != formatCompact && n.Description != "" {
			fmt.Fprintf(w, "   %s\n", n.Description)
		}
	}
	return nil
}

func printCalendar(w io.Writer, format string, cal app.Calendar) error {
	if format == formatJSON {
		return printJSON(w, cal)
	}

	fmt.Fprintf(w, "Academic year ends: %s\n", cal.YearEnd.Date)
	if len(cal.Exceptions.Days) == 0 {
		return nil
	}

	fmt.Fprintln(w, "Timetable exceptions:")
	for _, d := range cal.Exceptions.Days {
		fmt.Fprintf(w, "  %s  follows %s timetable\n", d.Date, d.Weekday)
	}
	return nil
}

func printArticle(w io.Writer, format string, components []newsfeed.Component) error {
	if format == formatJSON {
		return printJSON(w, components)
	}
	if len(components) == 0 {
		fmt.Fprintln(w, "Article is empty.")
		return nil
	}

	for i, component := range components {
		if i > 0 && format != formatCompact {
			fmt.Fprintln(w)
		}
		switch c := component.(type) {
		case newsfeed.TextComponent:
			fmt.Fprintln(w, c.Content)
		case newsfeed.ImageComponent:
			fmt.Fprintf(w, "[image] %s\n", c.URL)
		}
	}
	return nil
}

// tagNames joins tag names for a table cell
func tagNames(tags []paging.Tag) string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}

// tagSummary lists the tags available for --tag, without All
func tagSummary(tags []paging.Tag) string {
	var names []string
	for _, t := range tags {
		if !t.IsAll() {
			names = append(names, t.Name)
		}
	}
	if len(names) == 0 {
		return ""
	}
	return "Tags: " + strings.Join(names, ", ")
}

// truncate shortens s to at most n runes, marking the cut with "..."
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
