package domain

import "time"

// BackupVersion tags every exported snapshot
const BackupVersion = "1.0.0"

// BackupData is the versioned JSON snapshot of the whole reading list
type BackupData struct {
	Version     string       `json:"version"`
	ExportDate  time.Time    `json:"exportDate"`
	Items       []Item       `json:"items"`
	Tags        []Tag        `json:"tags"`
	Collections []Collection `json:"collections"`
	Settings    Settings     `json:"settings"`
}

// ImportStats counts imported and skipped records per kind
type ImportStats struct {
	ImportedItems       int `json:"importedItems"`
	SkippedItems        int `json:"skippedItems"`
	ImportedTags        int `json:"importedTags"`
	SkippedTags         int `json:"skippedTags"`
	ImportedCollections int `json:"importedCollections"`
	SkippedCollections  int `json:"skippedCollections"`
}
