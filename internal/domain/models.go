package domain

import (
	"time"
)

// Priority is the urgency assigned to an item
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities lists every priority from least to most urgent
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Valid reports whether p is a known priority
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Rank orders priorities for sorting; unknown values rank lowest
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	}
	return 0
}

// Status is the reading state of an item
type Status string

const (
	StatusUnread    Status = "unread"
	StatusReading   Status = "reading"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

// Statuses lists every reading status
var Statuses = []Status{StatusUnread, StatusReading, StatusCompleted, StatusArchived}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusUnread, StatusReading, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// Item represents a saved link
type Item struct {
	ID              string     `json:"id" db:"id"`
	URL             string     `json:"url" db:"url"`
	Title           string     `json:"title" db:"title"`
	Description     *string    `json:"description,omitempty" db:"description"`
	Domain          string     `json:"domain" db:"domain"`
	Favicon         *string    `json:"favicon,omitempty" db:"favicon"`
	Tags            []string   `json:"tags"`
	Priority        Priority   `json:"priority" db:"priority"`
	Status          Status     `json:"status" db:"status"`
	EstMinutes      *int       `json:"estMinutes,omitempty" db:"est_minutes"`
	WordCount       *int       `json:"wordCount,omitempty" db:"word_count"`
	Notes           *string    `json:"notes,omitempty" db:"notes"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time  `json:"updatedAt" db:"updated_at"`
	LastOpenedAt    *time.Time `json:"lastOpenedAt,omitempty" db:"last_opened_at"`
	MetadataFetched bool       `json:"metadataFetched" db:"metadata_fetched"`
}

// HasTag reports whether the item references tagID
func (i Item) HasTag(tagID string) bool {
	for _, t := range i.Tags {
		if t == tagID {
			return true
		}
	}
	return false
}

// NewItem is the caller-supplied part of an item; the store fills in
// identifier, domain and timestamps
type NewItem struct {
	URL             string   `json:"url"`
	Title           string   `json:"title"`
	Description     *string  `json:"description,omitempty"`
	Favicon         *string  `json:"favicon,omitempty"`
	Tags            []string `json:"tags"`
	Priority        Priority `json:"priority"`
	Status          Status   `json:"status"`
	EstMinutes      *int     `json:"estMinutes,omitempty"`
	WordCount       *int     `json:"wordCount,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
	MetadataFetched bool     `json:"metadataFetched"`
}

// ItemPatch holds the fields to change on an item; nil means unchanged
type ItemPatch struct {
	URL             *string    `json:"url,omitempty"`
	Title           *string    `json:"title,omitempty"`
	Description     *string    `json:"description,omitempty"`
	Favicon         *string    `json:"favicon,omitempty"`
	Tags            *[]string  `json:"tags,omitempty"`
	Priority        *Priority  `json:"priority,omitempty"`
	Status          *Status    `json:"status,omitempty"`
	EstMinutes      *int       `json:"estMinutes,omitempty"`
	WordCount       *int       `json:"wordCount,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	LastOpenedAt    *time.Time `json:"lastOpenedAt,omitempty"`
	MetadataFetched *bool      `json:"metadataFetched,omitempty"`
}

// Tag represents a user-defined label
type Tag struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Color      string    `json:"color" db:"color"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UsageCount int       `json:"usageCount" db:"usage_count"`
	Parent     *string   `json:"parent,omitempty" db:"parent"`
}

// NewTag is the caller-supplied part of a tag
type NewTag struct {
	Name   string  `json:"name"`
	Color  string  `json:"color,omitempty"`
	Parent *string `json:"parent,omitempty"`
}

// TagPatch holds the fields to change on a tag
type TagPatch struct {
	Name   *string `json:"name,omitempty"`
	Color  *string `json:"color,omitempty"`
	Parent *string `json:"parent,omitempty"`
}

// Operator names a collection rule comparison
type Operator string

const (
	OpEquals      Operator = "equals"
	OpContains    Operator = "contains"
	OpStartsWith  Operator = "startsWith"
	OpEndsWith    Operator = "endsWith"
	OpGreaterThan Operator = "greaterThan"
	OpLessThan    Operator = "lessThan"
	OpIn          Operator = "in"
	OpBetween     Operator = "between"
)

// CollectionRule is a single field/operator/value predicate
type CollectionRule struct {
	Field           string   `json:"field"`
	Operator        Operator `json:"operator"`
	Value           any      `json:"value"`
	LogicalOperator string   `json:"logicalOperator,omitempty"`
}

// Collection is a named, rule-defined grouping of items
type Collection struct {
	ID          string           `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	Description *string          `json:"description,omitempty" db:"description"`
	Rules       []CollectionRule `json:"rules" db:"rules"`
	CreatedAt   time.Time        `json:"createdAt" db:"created_at"`
	IsSystem    bool             `json:"isSystem" db:"is_system"`
	Icon        *string          `json:"icon,omitempty" db:"icon"`
}

// NewCollection is the caller-supplied part of a collection
type NewCollection struct {
	Name        string           `json:"name"`
	Description *string          `json:"description,omitempty"`
	Rules       []CollectionRule `json:"rules"`
	IsSystem    bool             `json:"isSystem"`
	Icon        *string          `json:"icon,omitempty"`
}

// CollectionPatch holds the fields to change on a collection
type CollectionPatch struct {
	Name        *string           `json:"name,omitempty"`
	Description *string           `json:"description,omitempty"`
	Rules       *[]CollectionRule `json:"rules,omitempty"`
	Icon        *string           `json:"icon,omitempty"`
}

// ItemFilter narrows an item query; empty fields are ignored and the
// remaining dimensions are combined with AND
type ItemFilter struct {
	Status        Status     `json:"status,omitempty"`
	Priority      Priority   `json:"priority,omitempty"`
	Domain        string     `json:"domain,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	Query         string     `json:"query,omitempty"`
	CreatedAfter  *time.Time `json:"createdAfter,omitempty"`
	CreatedBefore *time.Time `json:"createdBefore,omitempty"`
	MinEstMinutes *int       `json:"minEstMinutes,omitempty"`
	MaxEstMinutes *int       `json:"maxEstMinutes,omitempty"`
}

// ItemStats summarizes the reading list
type ItemStats struct {
	Total              int              `json:"total"`
	Unread             int              `json:"unread"`
	Reading            int              `json:"reading"`
	Completed          int              `json:"completed"`
	Archived           int              `json:"archived"`
	ByPriority         map[Priority]int `json:"byPriority"`
	ByDomain           map[string]int   `json:"byDomain"`
	TotalReadingTime   int              `json:"totalReadingTime"`
	AverageReadingTime float64          `json:"averageReadingTime"`
	CompletedThisWeek  int              `json:"completedThisWeek"`
	CompletedThisMonth int              `json:"completedThisMonth"`
}

// OpenCount is an item together with how often it was opened in a window
type OpenCount struct {
	Count  int    `json:"count"`
	ItemID string `json:"itemId"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}

// MetadataResult is the best-effort outcome of scraping a page
type MetadataResult struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Favicon     *string `json:"favicon,omitempty"`
	WordCount   *int    `json:"wordCount,omitempty"`
	EstMinutes  *int    `json:"estMinutes,omitempty"`
	Success     bool    `json:"success"`
	Error       string  `json:"error,omitempty"`
}
