package domain

import "time"

// SettingsID is the key of the singleton settings record
const SettingsID = "default"

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

type ViewMode string

const (
	ViewGrid    ViewMode = "grid"
	ViewList    ViewMode = "list"
	ViewCompact ViewMode = "compact"
)

type SortOption string

const (
	SortDateAdded   SortOption = "dateAdded"
	SortPriority    SortOption = "priority"
	SortReadingTime SortOption = "readingTime"
	SortTitle       SortOption = "title"
	SortDomain      SortOption = "domain"
)

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Settings is the singleton user preference record. DefaultPriority,
// AutoFetch and LastBackupDate are kept for compatibility with older backups.
type Settings struct {
	Theme             Theme         `json:"theme"`
	ViewMode          ViewMode      `json:"viewMode"`
	SortBy            SortOption    `json:"sortBy"`
	SortDirection     SortDirection `json:"sortDirection"`
	SidebarCollapsed  bool          `json:"sidebarCollapsed"`
	ItemsPerPage      int           `json:"itemsPerPage"`
	ShowReadingTime   bool          `json:"showReadingTime"`
	ReadingSpeed      int           `json:"readingSpeed"`
	AutoFetchMetadata bool          `json:"autoFetchMetadata"`
	ConfirmDelete     bool          `json:"confirmDelete"`
	DefaultPriority   *Priority     `json:"defaultPriority,omitempty"`
	AutoFetch         *bool         `json:"autoFetch,omitempty"`
	LastBackupDate    *time.Time    `json:"lastBackupDate,omitempty"`
}

// DefaultSettings returns the settings used before the user changes anything
func DefaultSettings() Settings {
	priority := PriorityMedium
	autoFetch := true
	return Settings{
		Theme:             ThemeSystem,
		ViewMode:          ViewList,
		SortBy:            SortDateAdded,
		SortDirection:     SortDesc,
		SidebarCollapsed:  false,
		ItemsPerPage:      50,
		ShowReadingTime:   true,
		ReadingSpeed:      200,
		AutoFetchMetadata: true,
		ConfirmDelete:     true,
		DefaultPriority:   &priority,
		AutoFetch:         &autoFetch,
	}
}

// SettingsPatch is a partial settings record; nil fields are left untouched
// when applied. Stored settings and imported settings both decode into it so
// absent keys can be told apart from zero values.
type SettingsPatch struct {
	Theme             *Theme         `json:"theme,omitempty"`
	ViewMode          *ViewMode      `json:"viewMode,omitempty"`
	SortBy            *SortOption    `json:"sortBy,omitempty"`
	SortDirection     *SortDirection `json:"sortDirection,omitempty"`
	SidebarCollapsed  *bool          `json:"sidebarCollapsed,omitempty"`
	ItemsPerPage      *int           `json:"itemsPerPage,omitempty"`
	ShowReadingTime   *bool          `json:"showReadingTime,omitempty"`
	ReadingSpeed      *int           `json:"readingSpeed,omitempty"`
	AutoFetchMetadata *bool          `json:"autoFetchMetadata,omitempty"`
	ConfirmDelete     *bool          `json:"confirmDelete,omitempty"`
	DefaultPriority   *Priority      `json:"defaultPriority,omitempty"`
	AutoFetch         *bool          `json:"autoFetch,omitempty"`
	LastBackupDate    *time.Time     `json:"lastBackupDate,omitempty"`
}

// Apply merges the patch into s field by field and returns the result
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.ViewMode != nil {
		s.ViewMode = *p.ViewMode
	}
	if p.SortBy != nil {
		s.SortBy = *p.SortBy
	}
	if p.SortDirection != nil {
		s.SortDirection = *p.SortDirection
	}
	if p.SidebarCollapsed != nil {
		s.SidebarCollapsed = *p.SidebarCollapsed
	}
	if p.ItemsPerPage != nil {
		s.ItemsPerPage = *p.ItemsPerPage
	}
	if p.ShowReadingTime != nil {
		s.ShowReadingTime = *p.ShowReadingTime
	}
	if p.ReadingSpeed != nil {
		s.ReadingSpeed = *p.ReadingSpeed
	}
	if p.ConfirmDelete != nil {
		s.ConfirmDelete = *p.ConfirmDelete
	}
	if p.DefaultPriority != nil {
		priority := *p.DefaultPriority
		s.DefaultPriority = &priority
	}
	if p.AutoFetch != nil {
		autoFetch := *p.AutoFetch
		s.AutoFetch = &autoFetch
	}
	if p.LastBackupDate != nil {
		backup := *p.LastBackupDate
		s.LastBackupDate = &backup
	}

	// The legacy flag stands in for the primary one when only it is given
	switch {
	case p.AutoFetchMetadata != nil:
		s.AutoFetchMetadata = *p.AutoFetchMetadata
	case p.AutoFetch != nil:
		s.AutoFetchMetadata = *p.AutoFetch
	}

	return s
}

// Validate rejects out-of-range or unknown values
func (p SettingsPatch) Validate() error {
	if p.Theme != nil && *p.Theme != ThemeLight && *p.Theme != ThemeDark && *p.Theme != ThemeSystem {
		return ValidationError{Field: "theme", Message: "must be light, dark or system"}
	}
	if p.ViewMode != nil && *p.ViewMode != ViewGrid && *p.ViewMode != ViewList && *p.ViewMode != ViewCompact {
		return ValidationError{Field: "viewMode", Message: "must be grid, list or compact"}
	}
	if p.SortBy != nil && !validSortOption(*p.SortBy) {
		return ValidationError{Field: "sortBy", Message: "unknown sort option"}
	}
	if p.SortDirection != nil && *p.SortDirection != SortAsc && *p.SortDirection != SortDesc {
		return ValidationError{Field: "sortDirection", Message: "must be asc or desc"}
	}
	if p.ItemsPerPage != nil && *p.ItemsPerPage <= 0 {
		return ValidationError{Field: "itemsPerPage", Message: "must be positive"}
	}
	if p.ReadingSpeed != nil && *p.ReadingSpeed <= 0 {
		return ValidationError{Field: "readingSpeed", Message: "must be positive"}
	}
	if p.DefaultPriority != nil && !p.DefaultPriority.Valid() {
		return ValidationError{Field: "defaultPriority", Message: "unknown priority"}
	}
	return nil
}

// Sanitize drops every field that would fail validation
func (p SettingsPatch) Sanitize() SettingsPatch {
	if p.Theme != nil && (SettingsPatch{Theme: p.Theme}).Validate() != nil {
		p.Theme = nil
	}
	if p.ViewMode != nil && (SettingsPatch{ViewMode: p.ViewMode}).Validate() != nil {
		p.ViewMode = nil
	}
	if p.SortBy != nil && !validSortOption(*p.SortBy) {
		p.SortBy = nil
	}
	if p.SortDirection != nil && (SettingsPatch{SortDirection: p.SortDirection}).Validate() != nil {
		p.SortDirection = nil
	}
	if p.ItemsPerPage != nil && *p.ItemsPerPage <= 0 {
		p.ItemsPerPage = nil
	}
	if p.ReadingSpeed != nil && *p.ReadingSpeed <= 0 {
		p.ReadingSpeed = nil
	}
	if p.DefaultPriority != nil && !p.DefaultPriority.Valid() {
		p.DefaultPriority = nil
	}
	return p
}

func validSortOption(o SortOption) bool {
	switch o {
	case SortDateAdded, SortPriority, SortReadingTime, SortTitle, SortDomain:
		return true
	}
	return false
}
