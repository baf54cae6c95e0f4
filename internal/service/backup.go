package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"readinglist/internal/domain"
	"readinglist/internal/logger"
)

// CSVHeader is the first row of every CSV export
var CSVHeader = []string{
	"Title", "URL", "Description", "Domain", "Status", "Priority", "Tags",
	"Reading Time (min)", "Notes", "Created At", "Updated At", "Last Opened At",
}

// BackupService exports and imports whole reading-list snapshots
type BackupService struct {
	items       *ItemService
	tags        *TagService
	collections *CollectionService
	settings    *SettingsService
	logger      *logger.Logger
	now         clock
}

// NewBackupService creates a new backup service
func NewBackupService(
	items *ItemService, tags *TagService, collections *CollectionService,
	settings *SettingsService, log *logger.Logger,
) *BackupService {
	return &BackupService{
		items:       items,
		tags:        tags,
		collections: collections,
		settings:    settings,
		logger:      log,
		now:         systemClock,
	}
}

type snapshot struct {
	items       []domain.Item
	tags        []domain.Tag
	collections []domain.Collection
	settings    domain.Settings
}

func (s *BackupService) load(ctx context.Context) (*snapshot, error) {
	var snap snapshot
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		snap.items, err = s.items.GetAll(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.tags, err = s.tags.GetAll(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.collections, err = s.collections.GetAll(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.settings, err = s.settings.Get(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return &snap, nil
}

// ExportJSON builds a snapshot of every item, tag, user collection and the
// settings, and records the export time as the last backup date
func (s *BackupService) ExportJSON(ctx context.Context) (*domain.BackupData, error) {
	snap, err := s.load(ctx)
	if err != nil {
		s.logger.Error("Export failed: %v", err)
		return nil, err
	}

	now := s.now()
	settings, err := s.settings.Update(ctx, domain.SettingsPatch{LastBackupDate: &now})
	if err != nil {
		s.logger.Warn("Failed to record last backup date: %v", err)
		settings = snap.settings
	}

	collections := make([]domain.Collection, 0, len(snap.collections))
	for _, c := range snap.collections {
		if !c.IsSystem {
			collections = append(collections, c)
		}
	}

	s.logger.Info("Exported %d items, %d tags, %d collections", len(snap.items), len(snap.tags), len(collections))
	return &domain.BackupData{
		Version:     domain.BackupVersion,
		ExportDate:  now,
		Items:       snap.items,
		Tags:        snap.tags,
		Collections: collections,
		Settings:    settings,
	}, nil
}

// ExportCSV renders every item as one CSV row with tag names resolved.
// Every cell is quoted and rows are separated by a bare newline.
func (s *BackupService) ExportCSV(ctx context.Context) (string, error) {
	snap, err := s.load(ctx)
	if err != nil {
		s.logger.Error("CSV export failed: %v", err)
		return "", err
	}

	names := make(map[string]string, len(snap.tags))
	for _, t := range snap.tags {
		names[t.ID] = t.Name
	}

	rows := make([]string, 0, len(snap.items)+1)
	rows = append(rows, csvRow(CSVHeader))
	for _, item := range snap.items {
		rows = append(rows, csvRow(itemRecord(item, names)))
	}

	s.logger.Info("Exported %d items as CSV", len(snap.items))
	return strings.Join(rows, "\n"), nil
}

func itemRecord(item domain.Item, tagNames map[string]string) []string {
	tags := make([]string, 0, len(item.Tags))
	for _, id := range item.Tags {
		if name, ok := tagNames[id]; ok {
			tags = append(tags, name)
		} else {
			tags = append(tags, id)
		}
	}

	minutes := ""
	if item.EstMinutes != nil {
		minutes = strconv.Itoa(*item.EstMinutes)
	}
	lastOpened := ""
	if item.LastOpenedAt != nil {
		lastOpened = item.LastOpenedAt.UTC().Format(time.RFC3339)
	}

	return []string{
		item.Title,
		item.URL,
		deref(item.Description),
		item.Domain,
		string(item.Status),
		string(item.Priority),
		strings.Join(tags, "; "),
		minutes,
		deref(item.Notes),
		item.CreatedAt.UTC().Format(time.RFC3339),
		item.UpdatedAt.UTC().Format(time.RFC3339),
		lastOpened,
	}
}

func csvRow(cells []string) string {
	quoted := make([]string, len(cells))
	for i, c := range cells {
		quoted[i] = `"` + strings.ReplaceAll(c, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// rawBackup mirrors BackupData with every part left undecoded so the shape
// can be checked before any record is touched
type rawBackup struct {
	Version     *string           `json:"version"`
	ExportDate  json.RawMessage   `json:"exportDate"`
	Items       []json.RawMessage `json:"items"`
	Tags        []json.RawMessage `json:"tags"`
	Collections []json.RawMessage `json:"collections"`
	Settings    json.RawMessage   `json:"settings"`
}

func parseBackup(data []byte) (*rawBackup, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidFormat, err)
	}

	shape := map[string]byte{"items": '[', "tags": '[', "collections": '[', "settings": '{'}
	for key, open := range shape {
		v := bytes.TrimSpace(top[key])
		if len(v) == 0 || v[0] != open {
			return nil, fmt.Errorf("%w: %s is missing or has the wrong type", domain.ErrInvalidFormat, key)
		}
	}

	var raw rawBackup
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidFormat, err)
	}
	if raw.Version == nil || *raw.Version == "" {
		return nil, fmt.Errorf("%w: version is missing", domain.ErrInvalidFormat)
	}
	var exportDate time.Time
	if len(raw.ExportDate) == 0 || json.Unmarshal(raw.ExportDate, &exportDate) != nil {
		return nil, fmt.Errorf("%w: exportDate is missing or invalid", domain.ErrInvalidFormat)
	}
	return &raw, nil
}

// Import adds the records of a JSON snapshot that are not present yet.
// Tags match by name ignoring case, collections by name, items by URL.
// Each record is stored all-or-nothing; a record that fails is counted as
// skipped and the import continues.
func (s *BackupService) Import(ctx context.Context, data []byte) (*domain.ImportStats, error) {
	raw, err := parseBackup(data)
	if err != nil {
		s.logger.Warn("Rejected backup: %v", err)
		return nil, err
	}
	s.logger.Info("Importing backup version %s: %d items, %d tags, %d collections",
		*raw.Version, len(raw.Items), len(raw.Tags), len(raw.Collections))

	stats := &domain.ImportStats{}
	tagIDs := s.importTags(ctx, raw.Tags, stats)
	s.importCollections(ctx, raw.Collections, tagIDs, stats)
	s.importItems(ctx, raw.Items, tagIDs, stats)

	var patch domain.SettingsPatch
	if err := json.Unmarshal(raw.Settings, &patch); err != nil {
		s.logger.Warn("Ignoring unreadable settings in backup: %v", err)
	} else if _, err := s.settings.Update(ctx, patch.Sanitize()); err != nil {
		s.logger.Error("Failed to merge imported settings: %v", err)
		return stats, fmt.Errorf("failed to merge settings: %w", err)
	}

	s.logger.Info("Import finished: %+v", *stats)
	return stats, nil
}

// importTags returns a map from backup tag id to local tag id
func (s *BackupService) importTags(ctx context.Context, raws []json.RawMessage, stats *domain.ImportStats) map[string]string {
	ids := make(map[string]string, len(raws))
	var parents []domain.Tag

	for _, r := range raws {
		var tag domain.Tag
		if err := json.Unmarshal(r, &tag); err != nil || strings.TrimSpace(tag.Name) == "" {
			stats.SkippedTags++
			continue
		}

		existing, err := s.tags.GetByName(ctx, tag.Name)
		if err == nil {
			ids[tag.ID] = existing.ID
			stats.SkippedTags++
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("Skipping tag '%s': %v", tag.Name, err)
			stats.SkippedTags++
			continue
		}

		created, err := s.tags.Add(ctx, domain.NewTag{Name: tag.Name, Color: tag.Color})
		if err != nil {
			s.logger.Warn("Skipping tag '%s': %v", tag.Name, err)
			stats.SkippedTags++
			continue
		}
		ids[tag.ID] = created.ID
		stats.ImportedTags++
		if tag.Parent != nil {
			parents = append(parents, domain.Tag{ID: created.ID, Parent: tag.Parent})
		}
	}

	// parents may appear after their children in the backup
	for _, t := range parents {
		local, ok := ids[*t.Parent]
		if !ok {
			continue
		}
		if _, err := s.tags.Update(ctx, t.ID, domain.TagPatch{Parent: &local}); err != nil {
			s.logger.Warn("Failed to restore parent of tag %s: %v", t.ID, err)
		}
	}
	return ids
}

func (s *BackupService) importCollections(
	ctx context.Context, raws []json.RawMessage, tagIDs map[string]string, stats *domain.ImportStats,
) {
	for _, r := range raws {
		var c domain.Collection
		if err := json.Unmarshal(r, &c); err != nil || strings.TrimSpace(c.Name) == "" {
			stats.SkippedCollections++
			continue
		}

		_, err := s.collections.GetByName(ctx, c.Name)
		if err == nil || !errors.Is(err, domain.ErrNotFound) {
			stats.SkippedCollections++
			continue
		}

		_, err = s.collections.Add(ctx, domain.NewCollection{
			Name:        c.Name,
			Description: c.Description,
			Rules:       remapRuleTags(c.Rules, tagIDs),
			IsSystem:    c.IsSystem,
			Icon:        c.Icon,
		})
		if err != nil {
			s.logger.Warn("Skipping collection '%s': %v", c.Name, err)
			stats.SkippedCollections++
			continue
		}
		stats.ImportedCollections++
	}
}

// remapRuleTags rewrites tag ids referenced by rules on the tags field
func remapRuleTags(rules []domain.CollectionRule, tagIDs map[string]string) []domain.CollectionRule {
	out := make([]domain.CollectionRule, len(rules))
	for i, r := range rules {
		if r.Field == "tags" {
			if id, ok := r.Value.(string); ok {
				if local, ok := tagIDs[id]; ok {
					r.Value = local
				}
			}
		}
		out[i] = r
	}
	return out
}

func (s *BackupService) importItems(
	ctx context.Context, raws []json.RawMessage, tagIDs map[string]string, stats *domain.ImportStats,
) {
	for _, r := range raws {
		var item domain.Item
		if err := json.Unmarshal(r, &item); err != nil || strings.TrimSpace(item.URL) == "" {
			stats.SkippedItems++
			continue
		}

		_, err := s.items.GetByURL(ctx, item.URL)
		if err == nil || !errors.Is(err, domain.ErrNotFound) {
			stats.SkippedItems++
			continue
		}

		local := make([]string, 0, len(item.Tags))
		for _, id := range item.Tags {
			if mapped, ok := tagIDs[id]; ok {
				local = append(local, mapped)
			}
		}
		item.Tags = local

		if _, err := s.items.Restore(ctx, item); err != nil && !IsUsageError(err) {
			s.logger.Warn("Skipping item '%s': %v", item.URL, err)
			stats.SkippedItems++
			continue
		}
		stats.ImportedItems++
	}
}
