package service

import (
	"testing"

	"readinglist/internal/domain"
)

func TestMatchesQuery(t *testing.T) {
	item := domain.Item{
		Title:       "Effective Go",
		Domain:      "go.dev",
		Description: strp("Tips for writing clear code"),
		Notes:       strp("Read the CHANNELS part again"),
		URL:         "https://go.dev/doc/effective_go",
	}

	tests := []struct {
		query string
		want  bool
	}{
		{"", true},
		{"effective", true},
		{"GO.DEV", true},
		{"clear code", true},
		{"channels", true},
		{"effective_go", false},
		{"rust", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := MatchesQuery(item, tt.query); got != tt.want {
				t.Errorf("MatchesQuery(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestMatchesQuery_AbsentOptionalFields(t *testing.T) {
	item := domain.Item{Title: "Plain", Domain: "example.com"}
	if MatchesQuery(item, "notes") {
		t.Error("MatchesQuery() matched a field the item does not have")
	}
}
