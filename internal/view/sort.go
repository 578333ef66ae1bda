package view

import (
	"sort"
	"strings"

	"github.com/vadimfor/showdeck/internal/show"
)

// Sort orders shows in place by key. Ties keep their id order.
//
// Rank sorts ascending with unranked shows last. Release date sorts newest
// first with incomplete dates last. Title sorts case-insensitively.
func Sort(shows []show.Show, key SortKey) {
	var less func(a, b *show.Show) bool
	switch key {
	case SortReleaseDate:
		less = func(a, b *show.Show) bool {
			da, okA := a.Released()
			db, okB := b.Released()
			if okA != okB {
				return okA
			}
			if okA && !da.Equal(db) {
				return da.After(db)
			}
			return a.ID < b.ID
		}
	case SortTitle:
		less = func(a, b *show.Show) bool {
			ta, tb := strings.ToLower(a.Title), strings.ToLower(b.Title)
			if ta != tb {
				return ta < tb
			}
			return a.ID < b.ID
		}
	default:
		less = func(a, b *show.Show) bool {
			if (a.Rank == nil) != (b.Rank == nil) {
				return a.Rank != nil
			}
			if a.Rank != nil && *a.Rank != *b.Rank {
				return *a.Rank < *b.Rank
			}
			return a.ID < b.ID
		}
	}

	sort.SliceStable(shows, func(i, j int) bool {
		return less(&shows[i], &shows[j])
	})
}
