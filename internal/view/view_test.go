package view

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vadimfor/showdeck/internal/show"
	"github.com/vadimfor/showdeck/internal/store"
)

// fakeLoader serves a fixed state, or fails.
type fakeLoader struct {
	shows   []show.Show
	members map[show.Collection][]string
	err     error
}

func (f *fakeLoader) ListShows(ctx context.Context, order store.Order) ([]show.Show, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.shows, nil
}

func (f *fakeLoader) MembershipIDs(ctx context.Context, c show.Collection) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.members[c], nil
}

func ids(shows []show.Show) []string {
	out := []string{}
	for _, sh := range shows {
		out = append(out, sh.ID)
	}
	return out
}

func TestReload(t *testing.T) {
	v := New()
	l := &fakeLoader{
		shows: []show.Show{
			{ID: "tt1", Title: "One", Rank: show.Ptr(1)},
			{ID: "tt2", Title: "Two", Rank: show.Ptr(2)},
		},
		members: map[show.Collection][]string{show.Favorites: {"tt2"}},
	}

	if err := v.Reload(context.Background(), l); err != nil {
		t.Fatalf("Reload() failed: %v", err)
	}
	if v.Len() != 2 {
		t.Errorf("Len() = %d, want 2", v.Len())
	}
	if diff := cmp.Diff([]string{"tt2"}, ids(v.Favorites())); diff != "" {
		t.Errorf("Favorites() mismatch (-want +got):\n%s", diff)
	}
	if got := v.Saved(); len(got) != 0 {
		t.Errorf("Saved() = %v, want empty", ids(got))
	}
}

func TestReload_ErrorKeepsState(t *testing.T) {
	v := New()
	v.MergeShows([]show.Show{{ID: "tt1", Title: "One"}})
	v.Toggle(show.Saved, "tt1")

	err := v.Reload(context.Background(), &fakeLoader{err: errors.New("disk gone")})
	if err == nil {
		t.Fatal("Reload() should fail")
	}
	if v.Len() != 1 || !v.Has(show.Saved, "tt1") {
		t.Error("failed Reload() must keep the previous state")
	}
}

func TestMergeShows_ReplacesByID(t *testing.T) {
	v := New()
	v.MergeShows([]show.Show{
		{ID: "tt1", Title: "One"},
		{ID: "tt2", Title: "Two"},
	})
	v.MergeShows([]show.Show{
		{ID: "tt2", Title: "Two (updated)"},
		{ID: "tt3", Title: "Three"},
		{ID: "tt3", Title: "Three again"},
	})

	got := v.Shows()
	want := []show.Show{
		{ID: "tt1", Title: "One"},
		{ID: "tt2", Title: "Two (updated)"},
		{ID: "tt3", Title: "Three again"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Shows() mismatch (-want +got):\n%s", diff)
	}
}

func TestPatchShow(t *testing.T) {
	v := New()
	v.MergeShows([]show.Show{{ID: "tt1", Title: "One", Rating: show.Ptr(8.0)}})

	got, ok := v.PatchShow("tt1", show.Patch{Seasons: show.Ptr(4)})
	if !ok {
		t.Fatal("PatchShow() ok = false for a known id")
	}
	if got.Seasons == nil || *got.Seasons != 4 || got.Rating == nil || *got.Rating != 8.0 {
		t.Errorf("PatchShow() = %+v, want seasons 4 and rating kept", got)
	}

	if _, ok := v.PatchShow("tt-missing", show.Patch{Seasons: show.Ptr(1)}); ok {
		t.Error("PatchShow() ok = true for an unknown id")
	}
	if v.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after a no-op patch", v.Len())
	}
}

func TestShows_ReturnsCopies(t *testing.T) {
	v := New()
	v.MergeShows([]show.Show{{ID: "tt1", Title: "One", Genres: []string{"Drama"}}})

	got := v.Shows()
	got[0].Title = "mutated"
	got[0].Genres[0] = "mutated"

	again, _ := v.Get("tt1")
	if again.Title != "One" || again.Genres[0] != "Drama" {
		t.Errorf("view changed through a returned copy: %+v", again)
	}
}

func TestToggle(t *testing.T) {
	v := New()
	if !v.Toggle(show.Favorites, "tt1") {
		t.Error("first Toggle() should report true")
	}
	if !v.Has(show.Favorites, "tt1") {
		t.Error("Has() = false after toggling on")
	}
	if v.Has(show.Saved, "tt1") {
		t.Error("toggling favorites must not touch saved")
	}
	if v.Toggle(show.Favorites, "tt1") {
		t.Error("second Toggle() should report false")
	}
	if got := v.IDs(show.Favorites); len(got) != 0 {
		t.Errorf("IDs() = %v after toggling off, want empty", got)
	}
}

func TestMembers_SkipsUnknownShows(t *testing.T) {
	v := New()
	v.MergeShows([]show.Show{{ID: "tt1", Title: "One"}})
	v.Toggle(show.Saved, "tt1")
	v.Toggle(show.Saved, "tt-ghost")

	if diff := cmp.Diff([]string{"tt1"}, ids(v.Saved())); diff != "" {
		t.Errorf("Saved() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"tt1", "tt-ghost"}, v.IDs(show.Saved)); diff != "" {
		t.Errorf("IDs() mismatch (-want +got):\n%s", diff)
	}
}

func TestSorted(t *testing.T) {
	v := New()
	v.MergeShows([]show.Show{
		{ID: "tt1", Title: "bravo", Rank: show.Ptr(3), ReleaseDate: show.Ptr("1/1/2010")},
		{ID: "tt2", Title: "Alpha", ReleaseDate: show.Ptr("//2020")},
		{ID: "tt3", Title: "charlie", Rank: show.Ptr(1), ReleaseDate: show.Ptr("5/6/2021")},
		{ID: "tt4", Title: "delta", Rank: show.Ptr(2)},
	})

	tests := []struct {
		key  SortKey
		want []string
	}{
		{SortRank, []string{"tt3", "tt4", "tt1", "tt2"}},
		{SortReleaseDate, []string{"tt3", "tt1", "tt2", "tt4"}},
		{SortTitle, []string{"tt2", "tt1", "tt3", "tt4"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, ids(v.Sorted(tt.key))); diff != "" {
			t.Errorf("Sorted(%s) mismatch (-want +got):\n%s", tt.key, diff)
		}
	}
}

func TestReleasedSince(t *testing.T) {
	v := New()
	v.MergeShows([]show.Show{
		{ID: "old", Title: "Old", ReleaseDate: show.Ptr("1/1/1999")},
		{ID: "new", Title: "New", ReleaseDate: show.Ptr("1/3/2024")},
		{ID: "partial", Title: "Partial", ReleaseDate: show.Ptr("//2024")},
	})

	got := v.ReleasedSince(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	if diff := cmp.Diff([]string{"new"}, ids(got)); diff != "" {
		t.Errorf("ReleasedSince() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSortKey(t *testing.T) {
	if k, err := ParseSortKey("release"); err != nil || k != SortReleaseDate {
		t.Errorf("ParseSortKey(release) = %q, %v", k, err)
	}
	if _, err := ParseSortKey("votes"); err == nil {
		t.Error("ParseSortKey(votes) should fail")
	}
}

func TestLoading(t *testing.T) {
	v := New()
	v.SetLoading(true)
	if !v.Loading() {
		t.Error("Loading() = false after SetLoading(true)")
	}
	v.SetLoading(false)
	if v.Loading() {
		t.Error("Loading() = true after SetLoading(false)")
	}
}

func TestConcurrentAccess(t *testing.T) {
	v := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			v.MergeShows([]show.Show{{ID: "tt1", Title: "One", Rank: show.Ptr(i)}})
			v.Toggle(show.Favorites, "tt1")
		}(i)
		go func() {
			defer wg.Done()
			_ = v.Sorted(SortRank)
			_ = v.Favorites()
		}()
	}
	wg.Wait()

	if v.Len() != 1 {
		t.Errorf("Len() = %d, want 1", v.Len())
	}
	// Eight flips land back where they started.
	if v.Has(show.Favorites, "tt1") {
		t.Error("even number of toggles should leave tt1 out of favorites")
	}
}
