// Package view holds the in-memory state the CLI and dashboard read from.
//
// The view mirrors the store: the show list plus the favorites and saved id
// sets. It is filled by Reload, grown by MergeShows and PatchShow, and its
// memberships are flipped optimistically by the toggle service before the
// store catches up. All methods are safe for concurrent use and return copies.
package view

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vadimfor/showdeck/internal/show"
	"github.com/vadimfor/showdeck/internal/store"
)

// Loader is the part of the store a reload reads from.
type Loader interface {
	ListShows(ctx context.Context, order store.Order) ([]show.Show, error)
	MembershipIDs(ctx context.Context, c show.Collection) ([]string, error)
}

// SortKey selects the order returned by Sorted.
type SortKey string

const (
	SortRank        SortKey = "rank"
	SortReleaseDate SortKey = "release"
	SortTitle       SortKey = "title"
)

// ParseSortKey accepts a sort key name.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rank":
		return SortRank, nil
	case "release", "date", "releasedate":
		return SortReleaseDate, nil
	case "title", "name":
		return SortTitle, nil
	default:
		return "", fmt.Errorf("unknown sort %q (want rank, release or title)", s)
	}
}

// idSet keeps membership ids in insertion order.
type idSet struct {
	order []string
	has   map[string]bool
}

func newIDSet(ids []string) *idSet {
	s := &idSet{has: make(map[string]bool, len(ids))}
	for _, id := range ids {
		s.add(id)
	}
	return s
}

func (s *idSet) add(id string) {
	if s.has[id] {
		return
	}
	s.has[id] = true
	s.order = append(s.order, id)
}

func (s *idSet) remove(id string) {
	if !s.has[id] {
		return
	}
	delete(s.has, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// View is the in-memory catalog.
type View struct {
	mu      sync.RWMutex
	shows   []show.Show
	index   map[string]int
	members map[show.Collection]*idSet
	loading bool
}

// New returns an empty view.
func New() *View {
	return &View{
		index: make(map[string]int),
		members: map[show.Collection]*idSet{
			show.Favorites: newIDSet(nil),
			show.Saved:     newIDSet(nil),
		},
	}
}

// Reload replaces the whole view with what the store holds. On error the
// current state is kept.
func (v *View) Reload(ctx context.Context, l Loader) error {
	shows, err := l.ListShows(ctx, store.OrderRank)
	if err != nil {
		return fmt.Errorf("failed to load shows: %w", err)
	}
	members := make(map[show.Collection]*idSet, len(show.Collections))
	for _, c := range show.Collections {
		ids, err := l.MembershipIDs(ctx, c)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", c, err)
		}
		members[c] = newIDSet(ids)
	}

	index := make(map[string]int, len(shows))
	for i, sh := range shows {
		index[sh.ID] = i
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.shows = shows
	v.index = index
	v.members = members
	return nil
}

// MergeShows replaces shows with a known id and appends the rest.
func (v *View) MergeShows(shows []show.Show) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, sh := range shows {
		sh = sh.Clone()
		if i, ok := v.index[sh.ID]; ok {
			v.shows[i] = sh
			continue
		}
		v.index[sh.ID] = len(v.shows)
		v.shows = append(v.shows, sh)
	}
}

// PatchShow merges p onto the show with id and returns the result.
// ok is false, and nothing changes, if the id is unknown.
func (v *View) PatchShow(id string, p show.Patch) (show.Show, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	i, ok := v.index[id]
	if !ok {
		return show.Show{}, false
	}
	p.ApplyTo(&v.shows[i])
	return v.shows[i].Clone(), true
}

// Get returns the show with id.
func (v *View) Get(id string) (show.Show, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	i, ok := v.index[id]
	if !ok {
		return show.Show{}, false
	}
	return v.shows[i].Clone(), true
}

// Len returns the number of shows.
func (v *View) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.shows)
}

// Shows returns every show in view order.
func (v *View) Shows() []show.Show {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return cloneAll(v.shows)
}

// Sorted returns every show ordered by key.
func (v *View) Sorted(key SortKey) []show.Show {
	out := v.Shows()
	Sort(out, key)
	return out
}

// ReleasedSince returns the shows released on or after t, newest first.
// Shows without a complete release date are left out.
func (v *View) ReleasedSince(t time.Time) []show.Show {
	var out []show.Show
	for _, sh := range v.Sorted(SortReleaseDate) {
		if d, ok := sh.Released(); ok && !d.Before(t) {
			out = append(out, sh)
		}
	}
	return out
}

// Has reports whether id is in collection c.
func (v *View) Has(c show.Collection, id string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()

	set, ok := v.members[c]
	return ok && set.has[id]
}

// Toggle flips the membership of id in c and returns the new state.
// An unknown collection is left alone and reports false.
func (v *View) Toggle(c show.Collection, id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	set, ok := v.members[c]
	if !ok {
		return false
	}
	if set.has[id] {
		set.remove(id)
		return false
	}
	set.add(id)
	return true
}

// IDs returns the ids in collection c.
func (v *View) IDs(c show.Collection) []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	set, ok := v.members[c]
	if !ok {
		return []string{}
	}
	return append([]string{}, set.order...)
}

// Members returns the shows in collection c, in view order.
// Ids without a known show are skipped.
func (v *View) Members(c show.Collection) []show.Show {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := []show.Show{}
	set, ok := v.members[c]
	if !ok {
		return out
	}
	for _, sh := range v.shows {
		if set.has[sh.ID] {
			out = append(out, sh.Clone())
		}
	}
	return out
}

// Favorites returns the followed shows.
func (v *View) Favorites() []show.Show { return v.Members(show.Favorites) }

// Saved returns the bookmarked shows.
func (v *View) Saved() []show.Show { return v.Members(show.Saved) }

// SetLoading marks a sync as running or finished.
func (v *View) SetLoading(loading bool) {
	v.mu.Lock()
	v.loading = loading
	v.mu.Unlock()
}

// Loading reports whether a sync is running.
func (v *View) Loading() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loading
}

func cloneAll(shows []show.Show) []show.Show {
	out := make([]show.Show, len(shows))
	for i, sh := range shows {
		out[i] = sh.Clone()
	}
	return out
}
