// Package show provides the catalog record shared by the extractor, the store and the view.
package show

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UnknownTitle is stored when the upstream document carries no title text.
const UnknownTitle = "Unknown"

// NoPlot is the plot used for search results whose detail page has no plot text.
const NoPlot = "No plot available."

// Show is one catalog entry. Optional fields are nil when unknown.
//
// Writes are full-row replace: a nil field overwrites whatever the store held.
type Show struct {
	// ===== Identification =====
	ID   string `json:"id" yaml:"id"`
	Rank *int   `json:"rank,omitempty" yaml:"rank,omitempty"`

	// ===== Descriptive =====
	Title       string   `json:"title" yaml:"title"`
	Image       *string  `json:"image,omitempty" yaml:"image,omitempty"`
	Rating      *float64 `json:"rating,omitempty" yaml:"rating,omitempty"`
	Votes       *int     `json:"votes,omitempty" yaml:"votes,omitempty"`
	ReleaseDate *string  `json:"releaseDate,omitempty" yaml:"releaseDate,omitempty"` // D/M/YYYY, parts may be empty
	Plot        *string  `json:"plot,omitempty" yaml:"plot,omitempty"`
	Genres      []string `json:"titleGenres" yaml:"titleGenres"`

	// ===== Series detail =====
	Episodes *int    `json:"episodes,omitempty" yaml:"episodes,omitempty"`
	Seasons  *int    `json:"seasons,omitempty" yaml:"seasons,omitempty"`
	Trailer  *string `json:"trailer,omitempty" yaml:"trailer,omitempty"`
}

// Validate checks the fields the store depends on.
func (s *Show) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if s.Title == "" {
		return fmt.Errorf("title is required")
	}
	if s.Votes != nil && *s.Votes < 0 {
		return fmt.Errorf("votes must be non-negative (got %d)", *s.Votes)
	}
	return nil
}

// SetDefaults applies the placeholder title and the empty genre list.
func (s *Show) SetDefaults() {
	if s.Title == "" {
		s.Title = UnknownTitle
	}
	if s.Genres == nil {
		s.Genres = []string{}
	}
}

// Clone returns a deep copy, so callers can hand shows across goroutines.
func (s Show) Clone() Show {
	out := s
	out.Rank = cloneInt(s.Rank)
	out.Image = cloneString(s.Image)
	out.Rating = cloneFloat(s.Rating)
	out.Votes = cloneInt(s.Votes)
	out.ReleaseDate = cloneString(s.ReleaseDate)
	out.Plot = cloneString(s.Plot)
	out.Episodes = cloneInt(s.Episodes)
	out.Seasons = cloneInt(s.Seasons)
	out.Trailer = cloneString(s.Trailer)
	if s.Genres != nil {
		out.Genres = append(make([]string, 0, len(s.Genres)), s.Genres...)
	}
	return out
}

// EncodeGenres serializes a genre list for the titleGenres column.
func EncodeGenres(genres []string) (string, error) {
	if genres == nil {
		genres = []string{}
	}
	data, err := json.Marshal(genres)
	if err != nil {
		return "", fmt.Errorf("failed to marshal genres: %w", err)
	}
	return string(data), nil
}

// DecodeGenres parses the titleGenres column. Empty and null decode to an empty list.
func DecodeGenres(raw string) ([]string, error) {
	if raw == "" || raw == "null" {
		return []string{}, nil
	}
	var genres []string
	if err := json.Unmarshal([]byte(raw), &genres); err != nil {
		return nil, fmt.Errorf("failed to unmarshal genres: %w", err)
	}
	if genres == nil {
		genres = []string{}
	}
	return genres, nil
}

// FormatReleaseDate joins the date parts as day/month/year, leaving missing parts empty.
func FormatReleaseDate(day, month, year string) string {
	return day + "/" + month + "/" + year
}

// ParseReleaseDate interprets a D/M/YYYY text as a calendar date.
// Any missing or zero component reports false.
func ParseReleaseDate(text string) (time.Time, bool) {
	parts := strings.Split(text, "/")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n <= 0 {
			return time.Time{}, false
		}
		nums[i] = n
	}
	day, month, year := nums[0], nums[1], nums[2]
	if month > 12 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

// Released returns the parsed release date of s, if it has a complete one.
func (s *Show) Released() (time.Time, bool) {
	if s.ReleaseDate == nil {
		return time.Time{}, false
	}
	return ParseReleaseDate(*s.ReleaseDate)
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
