// Package commands implements the readinglist command line operations
package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"readinglist/internal/app"
	"readinglist/internal/domain"
	"readinglist/internal/service"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))

	priorityStyles = map[domain.Priority]lipgloss.Style{
		domain.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		domain.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		domain.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		domain.PriorityUrgent: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
)

// Commands runs operations against an application and prints to out
type Commands struct {
	app *app.App
	out io.Writer
}

func New(a *app.App, out io.Writer) *Commands {
	return &Commands{app: a, out: out}
}

// AddOptions describes an item added from the command line
type AddOptions struct {
	URL      string
	Title    string
	Tags     []string
	Priority string
	Notes    string
	Fetch    bool
}

// Add stores an item, creating any named tag that does not exist yet. With
// Fetch the page metadata is scraped before returning.
func (c *Commands) Add(ctx context.Context, opts AddOptions) error {
	tagIDs := make([]string, 0, len(opts.Tags))
	for _, name := range opts.Tags {
		tag, err := c.app.Tags.GetOrCreate(ctx, name, "")
		if err != nil {
			return fmt.Errorf("failed to resolve tag %q: %w", name, err)
		}
		tagIDs = append(tagIDs, tag.ID)
	}

	n := domain.NewItem{
		URL:             opts.URL,
		Title:           opts.Title,
		Tags:            tagIDs,
		Priority:        domain.Priority(opts.Priority),
		MetadataFetched: !opts.Fetch,
	}
	if n.Priority == "" {
		settings, err := c.app.Settings.Get(ctx)
		if err == nil && settings.DefaultPriority != nil {
			n.Priority = *settings.DefaultPriority
		}
	}
	if opts.Notes != "" {
		n.Notes = &opts.Notes
	}

	item, err := c.app.Items.Add(ctx, n)
	if err != nil && !service.IsUsageError(err) {
		return err
	}

	if opts.Fetch {
		if enriched, err := c.app.Enricher.Enrich(ctx, item.ID); err != nil {
			fmt.Fprintln(c.out, dimStyle.Render("metadata fetch failed: "+err.Error()))
		} else {
			item = enriched
		}
	}

	fmt.Fprintf(c.out, "%s %s\n", okStyle.Render("Added"), item.Title)
	fmt.Fprintln(c.out, dimStyle.Render(item.ID))
	return nil
}

// ListOptions narrows and orders the listed items
type ListOptions struct {
	Status     string
	Priority   string
	Tags       []string
	Query      string
	Collection string
	Sort       string
	Direction  string
}

// List prints the items matching opts. A collection name restricts the
// list to the collection's members.
func (c *Commands) List(ctx context.Context, opts ListOptions) error {
	filter := domain.ItemFilter{
		Status:   domain.Status(opts.Status),
		Priority: domain.Priority(opts.Priority),
		Query:    opts.Query,
	}
	for _, name := range opts.Tags {
		tag, err := c.app.Tags.GetByName(ctx, name)
		if err != nil {
			return err
		}
		filter.Tags = append(filter.Tags, tag.ID)
	}

	items, err := c.app.Items.Query(ctx, filter)
	if err != nil {
		return err
	}

	if opts.Collection != "" {
		collection, err := c.app.Collections.GetByName(ctx, opts.Collection)
		if err != nil {
			return err
		}
		members, err := c.app.Collections.Items(ctx, collection.ID)
		if err != nil {
			return err
		}
		items = intersect(items, members)
	}

	settings, err := c.app.Settings.Get(ctx)
	if err != nil {
		return err
	}
	by, dir := settings.SortBy, settings.SortDirection
	if opts.Sort != "" {
		by = domain.SortOption(opts.Sort)
	}
	if opts.Direction != "" {
		dir = domain.SortDirection(opts.Direction)
	}
	items = service.SortItems(items, by, dir)

	if len(items) == 0 {
		fmt.Fprintln(c.out, dimStyle.Render("No items"))
		return nil
	}

	fmt.Fprintln(c.out, headerStyle.Render(fmt.Sprintf("%-8s %-9s %-10s %5s  %s", "ID", "PRIORITY", "STATUS", "MIN", "TITLE")))
	for _, item := range items {
		minutes := "-"
		if item.EstMinutes != nil {
			minutes = fmt.Sprint(*item.EstMinutes)
		}
		priority := priorityStyles[item.Priority].Render(fmt.Sprintf("%-9s", item.Priority))
		fmt.Fprintf(c.out, "%-8s %s %-10s %5s  %s %s\n",
			shortID(item.ID), priority, item.Status, minutes, item.Title, dimStyle.Render("("+item.Domain+")"))
	}
	return nil
}

func intersect(items, members []domain.Item) []domain.Item {
	ids := make(map[string]struct{}, len(members))
	for _, m := range members {
		ids[m.ID] = struct{}{}
	}
	out := items[:0]
	for _, item := range items {
		if _, ok := ids[item.ID]; ok {
			out = append(out, item)
		}
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveItem accepts a full identifier or a unique prefix of one
func (c *Commands) resolveItem(ctx context.Context, ref string) (*domain.Item, error) {
	if item, err := c.app.Items.GetByID(ctx, ref); err == nil {
		return item, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	items, err := c.app.Items.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	var found *domain.Item
	for i := range items {
		if strings.HasPrefix(items[i].ID, ref) {
			if found != nil {
				return nil, fmt.Errorf("item prefix %q is ambiguous", ref)
			}
			found = &items[i]
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: item %s", domain.ErrNotFound, ref)
	}
	return found, nil
}

// SetStatus moves an item to a new reading status
func (c *Commands) SetStatus(ctx context.Context, ref, status string) error {
	item, err := c.resolveItem(ctx, ref)
	if err != nil {
		return err
	}
	s := domain.Status(status)
	item, err = c.app.Items.Update(ctx, item.ID, domain.ItemPatch{Status: &s})
	if err != nil && !service.IsUsageError(err) {
		return err
	}
	fmt.Fprintf(c.out, "%s %s is now %s\n", okStyle.Render("Updated"), item.Title, item.Status)
	return nil
}

// Remove deletes an item
func (c *Commands) Remove(ctx context.Context, ref string) error {
	item, err := c.resolveItem(ctx, ref)
	if err != nil {
		return err
	}
	if err := c.app.Items.Delete(ctx, item.ID); err != nil && !service.IsUsageError(err) {
		return err
	}
	fmt.Fprintf(c.out, "%s %s\n", okStyle.Render("Removed"), item.Title)
	return nil
}

// Stats prints the reading list summary
func (c *Commands) Stats(ctx context.Context) error {
	stats, err := c.app.Items.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out, headerStyle.Render("Reading list"))
	fmt.Fprintf(c.out, "Total:        %d\n", stats.Total)
	fmt.Fprintf(c.out, "Unread:       %d\n", stats.Unread)
	fmt.Fprintf(c.out, "Reading:      %d\n", stats.Reading)
	fmt.Fprintf(c.out, "Completed:    %d (%d this week, %d this month)\n",
		stats.Completed, stats.CompletedThisWeek, stats.CompletedThisMonth)
	fmt.Fprintf(c.out, "Archived:     %d\n", stats.Archived)
	fmt.Fprintf(c.out, "Reading time: %d min (avg %.1f)\n", stats.TotalReadingTime, stats.AverageReadingTime)

	for _, p := range domain.Priorities {
		if n := stats.ByPriority[p]; n > 0 {
			fmt.Fprintf(c.out, "  %s %d\n", priorityStyles[p].Render(fmt.Sprintf("%-7s", p)), n)
		}
	}
	return nil
}

// Tags prints every tag with its usage count
func (c *Commands) Tags(ctx context.Context) error {
	tags, err := c.app.Tags.ByUsage(ctx)
	if err != nil {
		return err
	}
	if len(tags) == 0 {
		fmt.Fprintln(c.out, dimStyle.Render("No tags"))
		return nil
	}
	for _, t := range tags {
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(t.Color)).Render("●")
		fmt.Fprintf(c.out, "%s %-20s %d\n", swatch, t.Name, t.UsageCount)
	}
	return nil
}

// Collections prints every collection with its current member count
func (c *Commands) Collections(ctx context.Context) error {
	collections, err := c.app.Collections.GetAll(ctx)
	if err != nil {
		return err
	}
	for _, col := range collections {
		items, err := c.app.Collections.Items(ctx, col.ID)
		if err != nil {
			return err
		}
		name := col.Name
		if col.IsSystem {
			name += " " + dimStyle.Render("(system)")
		}
		fmt.Fprintf(c.out, "%-30s %d\n", name, len(items))
	}
	return nil
}

// Export writes a JSON or CSV backup to path, or to the output when path
// is empty or "-"
func (c *Commands) Export(ctx context.Context, format, path string) error {
	var data []byte
	switch strings.ToLower(format) {
	case "", "json":
		backup, err := c.app.Backup.ExportJSON(ctx)
		if err != nil {
			return err
		}
		if data, err = json.MarshalIndent(backup, "", "  "); err != nil {
			return fmt.Errorf("failed to encode backup: %w", err)
		}
		data = append(data, '\n')
	case "csv":
		csv, err := c.app.Backup.ExportCSV(ctx)
		if err != nil {
			return err
		}
		data = []byte(csv)
	default:
		return domain.ValidationError{Field: "format", Message: "must be json or csv"}
	}

	if path == "" || path == "-" {
		_, err := c.out.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	fmt.Fprintf(c.out, "%s %s\n", okStyle.Render("Exported to"), path)
	return nil
}

// Import merges a JSON backup file into the stores
func (c *Commands) Import(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}

	stats, err := c.app.Backup.Import(ctx, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s %d items, %d tags, %d collections\n",
		okStyle.Render("Imported"), stats.ImportedItems, stats.ImportedTags, stats.ImportedCollections)
	fmt.Fprintln(c.out, dimStyle.Render(fmt.Sprintf("skipped %d items, %d tags, %d collections",
		stats.SkippedItems, stats.SkippedTags, stats.SkippedCollections)))
	return nil
}

// Fetch prints the metadata scraped from url without saving anything
func (c *Commands) Fetch(ctx context.Context, url string) error {
	m := c.app.Enricher.Preview(ctx, domain.NormalizeURL(url))
	if !m.Success {
		return fmt.Errorf("failed to fetch metadata: %s", m.Error)
	}
	line := func(label string, v *string) {
		if v != nil {
			fmt.Fprintf(c.out, "%-12s %s\n", label, *v)
		}
	}
	line("Title:", m.Title)
	line("Description:", m.Description)
	line("Favicon:", m.Favicon)
	if m.WordCount != nil {
		fmt.Fprintf(c.out, "%-12s %d\n", "Words:", *m.WordCount)
	}
	if m.EstMinutes != nil {
		fmt.Fprintf(c.out, "%-12s %d min\n", "Reading:", *m.EstMinutes)
	}
	return nil
}
