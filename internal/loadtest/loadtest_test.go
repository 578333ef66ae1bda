package loadtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/vadimfor/showdeck/internal/show"
	"github.com/vadimfor/showdeck/internal/store"
)

// TestCreateTestDatabase verifies the database is populated as described.
func TestCreateTestDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	td, err := CreateTestDatabase(dbPath, 100, 0.3)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	defer td.Close()

	if len(td.ShowIDs) != 100 {
		t.Errorf("Expected 100 shows, got %d", len(td.ShowIDs))
	}
	if len(td.FavoriteIDs) != 30 {
		t.Errorf("Expected 30 favorites, got %d", len(td.FavoriteIDs))
	}
	if len(td.SavedIDs) != 15 {
		t.Errorf("Expected 15 saved, got %d", len(td.SavedIDs))
	}

	ctx := context.Background()
	count, err := td.DB.ShowCount(ctx)
	if err != nil {
		t.Fatalf("ShowCount() error = %v", err)
	}
	if count != 100 {
		t.Errorf("ShowCount() = %d, want 100", count)
	}

	favCount, err := td.DB.MembershipCount(ctx, show.Favorites)
	if err != nil {
		t.Fatalf("MembershipCount() error = %v", err)
	}
	if favCount != len(td.FavoriteIDs) {
		t.Errorf("MembershipCount(favorites) = %d, want %d", favCount, len(td.FavoriteIDs))
	}

	t.Logf("Database stats: %+v", td.GetStats())
}

func TestPickMembers_Disjoint(t *testing.T) {
	ids := make([]string, 50)
	for i := range ids {
		ids[i] = makeShow(i).ID
	}

	favorites, saved := pickMembers(ids, 0.5)
	seen := make(map[string]bool)
	for _, id := range favorites {
		seen[id] = true
	}
	for _, id := range saved {
		if seen[id] {
			t.Errorf("%s is both favorite and saved", id)
		}
	}
	if len(favorites) != 25 || len(saved) != 12 {
		t.Errorf("pickMembers() = %d favorites, %d saved; want 25 and 12", len(favorites), len(saved))
	}

	if f, s := pickMembers(ids, 0); f != nil || s != nil {
		t.Errorf("pickMembers(0) = %v, %v; want nothing", f, s)
	}
}

// TestConcurrentQueries_Small verifies basic concurrent reload functionality.
func TestConcurrentQueries_Small(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	td, err := CreateTestDatabase(dbPath, 100, 0.3)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	defer td.Close()

	// 10 concurrent readers, 5 reloads each
	stats, err := td.RunConcurrentQueries(10, 5)
	if err != nil {
		t.Fatalf("Concurrent queries failed: %v", err)
	}

	if stats.Errors > 0 {
		t.Errorf("Got %d errors during queries", stats.Errors)
	}
	if stats.TotalQueries != 50 {
		t.Errorf("Expected 50 total queries, got %d", stats.TotalQueries)
	}

	stats.PrintStats()

	if stats.Min > stats.P50 || stats.P50 > stats.P99 || stats.P99 > stats.Max {
		t.Errorf("percentiles out of order: %+v", stats)
	}
}

// TestNoRaceConditions runs readers against toggle writers.
func TestNoRaceConditions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping race test in short mode")
	}

	dbPath := filepath.Join(t.TempDir(), "test.db")

	td, err := CreateTestDatabase(dbPath, 250, 0.3)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	defer td.Close()

	t.Log("Testing for race conditions with 10 readers and 10 writers for 1 second...")
	if err := td.VerifyNoRaceConditions(10, time.Second); err != nil {
		t.Errorf("Race condition detected: %v", err)
	}
}

func TestCheckConsistency(t *testing.T) {
	ranked := func(id string, rank int) show.Show { return show.Show{ID: id, Rank: show.Ptr(rank)} }

	tests := []struct {
		name    string
		shows   []show.Show
		members []string
		wantErr bool
	}{
		{
			name:    "ordered",
			shows:   []show.Show{ranked("tt1", 1), ranked("tt2", 2), {ID: "tt3"}},
			members: []string{"tt3"},
		},
		{
			name:    "rank regression",
			shows:   []show.Show{ranked("tt1", 2), ranked("tt2", 1)},
			wantErr: true,
		},
		{
			name:    "ranked after unranked",
			shows:   []show.Show{{ID: "tt3"}, ranked("tt1", 1)},
			wantErr: true,
		},
		{
			name:    "dangling member",
			shows:   []show.Show{ranked("tt1", 1)},
			members: []string{"tt9"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkConsistency(tt.shows, tt.members, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkConsistency() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestComputeLatencyStats(t *testing.T) {
	durations := make([]time.Duration, 100)
	for i := range durations {
		durations[i] = time.Duration(100-i) * time.Millisecond
	}

	stats := computeLatencyStats(durations)
	if stats.Min != time.Millisecond || stats.Max != 100*time.Millisecond {
		t.Errorf("Min/Max = %v/%v", stats.Min, stats.Max)
	}
	if stats.P50 != 51*time.Millisecond {
		t.Errorf("P50 = %v, want 51ms", stats.P50)
	}
	if stats.P99 != 100*time.Millisecond {
		t.Errorf("P99 = %v, want 100ms", stats.P99)
	}
	if stats.TotalQueries != 100 {
		t.Errorf("TotalQueries = %d", stats.TotalQueries)
	}

	if empty := computeLatencyStats(nil); empty.TotalQueries != 0 {
		t.Errorf("empty stats = %+v", empty)
	}
}

// BenchmarkListShows_250 benchmarks a chart-sized catalog listing.
func BenchmarkListShows_250(b *testing.B) {
	dbPath := filepath.Join(b.TempDir(), "bench.db")

	td, err := CreateTestDatabase(dbPath, 250, 0.3)
	if err != nil {
		b.Fatalf("Failed to create test database: %v", err)
	}
	defer td.Close()

	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := td.DB.ListShows(ctx, store.OrderRank); err != nil {
			b.Fatalf("Query failed: %v", err)
		}
	}
}

// BenchmarkConcurrentQueries_20Readers benchmarks 20 concurrent reloading clients.
func BenchmarkConcurrentQueries_20Readers(b *testing.B) {
	dbPath := filepath.Join(b.TempDir(), "bench.db")

	td, err := CreateTestDatabase(dbPath, 250, 0.3)
	if err != nil {
		b.Fatalf("Failed to create test database: %v", err)
	}
	defer td.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := td.RunConcurrentQueries(20, 5); err != nil {
			b.Fatalf("Concurrent queries failed: %v", err)
		}
	}
}
