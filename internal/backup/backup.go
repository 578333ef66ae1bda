// Package backup writes the cache to a portable snapshot file and restores it.
//
// Snapshots are JSON or YAML, chosen by file extension. Restoring upserts every
// show and then re-adds the memberships, so a snapshot can be merged into a
// cache that already holds data.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vadimfor/showdeck/internal/show"
	"github.com/vadimfor/showdeck/internal/store"
)

// Format is a snapshot encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts a format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (want json or yaml)", s)
	}
}

// FormatFor picks the format from a file extension, defaulting to JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Snapshot is the file layout.
type Snapshot struct {
	Language   string      `json:"language" yaml:"language"`
	ExportedAt time.Time   `json:"exported_at" yaml:"exported_at"`
	Shows      []show.Show `json:"shows" yaml:"shows"`
	Favorites  []string    `json:"favorites" yaml:"favorites"`
	Saved      []string    `json:"saved" yaml:"saved"`
}

// Members returns the ids of collection c.
func (s *Snapshot) Members(c show.Collection) []string {
	if c == show.Favorites {
		return s.Favorites
	}
	return s.Saved
}

// Encode writes snap to w in format f.
func Encode(w io.Writer, f Format, snap *Snapshot) error {
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	}
}

// WriteFile writes snap to path atomically, in the format its extension names.
func WriteFile(path string, snap *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, FormatFor(path), snap); err != nil {
		return err
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// ReadFile reads a snapshot and applies show defaults.
func ReadFile(path string) (*Snapshot, error) {
	// #nosec G304 - controlled path from CLI
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	switch FormatFor(path) {
	case FormatYAML:
		err = yaml.Unmarshal(data, &snap)
	default:
		err = json.Unmarshal(data, &snap)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot %s: %w", filepath.Base(path), err)
	}

	for i := range snap.Shows {
		snap.Shows[i].SetDefaults()
	}
	return &snap, nil
}

// Store is the persistence a restore writes to. store.DB implements it.
type Store interface {
	UpsertShows(ctx context.Context, shows []show.Show) store.UpsertResult
	AddMembership(ctx context.Context, c show.Collection, id string) error
}

// RestoreOptions contains configuration for a restore.
type RestoreOptions struct {
	DryRun bool // count without writing
}

// RestoreResult contains statistics about a restore.
type RestoreResult struct {
	ShowsWritten     int
	MembershipsAdded int
	Errors           []string
}

// Restore writes the snapshot's shows and memberships to st.
// Per-item failures are collected in the result; only a cancelled context
// stops the restore early.
func Restore(ctx context.Context, st Store, snap *Snapshot, opts RestoreOptions) (*RestoreResult, error) {
	result := &RestoreResult{}

	written := make(map[string]bool, len(snap.Shows))
	if opts.DryRun {
		for _, sh := range snap.Shows {
			if err := sh.Validate(); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("invalid show %q: %v", sh.ID, err))
				continue
			}
			written[sh.ID] = true
			result.ShowsWritten++
		}
	} else {
		res := st.UpsertShows(ctx, snap.Shows)
		failed := make(map[string]bool, len(res.FailedIDs))
		for _, id := range res.FailedIDs {
			failed[id] = true
			result.Errors = append(result.Errors, fmt.Sprintf("failed to write show %q", id))
		}
		for _, sh := range snap.Shows {
			if !failed[sh.ID] {
				written[sh.ID] = true
			}
		}
		result.ShowsWritten = res.Written
	}

	for _, c := range show.Collections {
		for _, id := range snap.Members(c) {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			if !written[id] {
				result.Errors = append(result.Errors, fmt.Sprintf("skipped %s member %s: show not in snapshot", c, id))
				continue
			}
			if !opts.DryRun {
				if err := st.AddMembership(ctx, c, id); err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("failed to add %s member %s: %v", c, id, err))
					continue
				}
			}
			result.MembershipsAdded++
		}
	}

	return result, nil
}
