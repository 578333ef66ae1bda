// Package loadtest exercises the store the way a busy client does.
//
// It fills a database with a chart-sized catalog plus memberships, then
// replays view reloads from many goroutines while toggles write behind them,
// measuring latency and checking that readers never see inconsistent data.
package loadtest

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/vadimfor/showdeck/internal/show"
	"github.com/vadimfor/showdeck/internal/store"
)

// TestDatabase represents a populated database for load testing.
type TestDatabase struct {
	DB          *store.DB
	ShowIDs     []string
	FavoriteIDs []string
	SavedIDs    []string
	TotalShows  int
	MemberPct   float64
}

// LatencyStats captures performance metrics from load tests.
type LatencyStats struct {
	Min          time.Duration
	Max          time.Duration
	Mean         time.Duration
	P50          time.Duration // Median
	P95          time.Duration
	P99          time.Duration
	TotalQueries int
	Errors       int
	Durations    []time.Duration
}

// CreateTestDatabase creates a database at dbPath holding numShows shows.
//
// The catalog is populated with:
//   - Ranks 1..n, with every tenth show unranked
//   - Ratings between 5.0 and 9.9 and vote counts in the thousands
//   - Release dates spread over 1990-2025 in the stored D/M/YYYY form
//   - Genres drawn from a small fixed set
//
// memberPct of the shows are favorites and a disjoint half as many are saved.
func CreateTestDatabase(dbPath string, numShows int, memberPct float64) (*TestDatabase, error) {
	config := store.DefaultConfig()
	config.MaxOpenConns = 50
	config.Logger = log.New(io.Discard, "", 0)

	database, err := store.OpenWithConfig(dbPath, config)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.InitSchema(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	td := &TestDatabase{
		DB:         database,
		ShowIDs:    make([]string, 0, numShows),
		TotalShows: numShows,
		MemberPct:  memberPct,
	}

	ctx := context.Background()
	shows := generateShows(numShows)
	res := database.UpsertShows(ctx, shows)
	if res.Failed > 0 {
		_ = database.Close()
		return nil, fmt.Errorf("failed to insert %d shows: %v", res.Failed, res.FailedIDs)
	}
	for _, sh := range shows {
		td.ShowIDs = append(td.ShowIDs, sh.ID)
	}

	favorites, saved := pickMembers(td.ShowIDs, memberPct)
	for _, id := range favorites {
		if err := database.AddMembership(ctx, show.Favorites, id); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("failed to add favorite %s: %w", id, err)
		}
	}
	for _, id := range saved {
		if err := database.AddMembership(ctx, show.Saved, id); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("failed to add saved %s: %w", id, err)
		}
	}
	td.FavoriteIDs = favorites
	td.SavedIDs = saved

	return td, nil
}

// Close closes the test database connection.
func (td *TestDatabase) Close() error {
	if td.DB != nil {
		return td.DB.Close()
	}
	return nil
}

// reload performs the reads of one view reload.
func (td *TestDatabase) reload(ctx context.Context) ([]show.Show, []string, []string, error) {
	shows, err := td.DB.ListShows(ctx, store.OrderRank)
	if err != nil {
		return nil, nil, nil, err
	}
	favorites, err := td.DB.MembershipIDs(ctx, show.Favorites)
	if err != nil {
		return nil, nil, nil, err
	}
	saved, err := td.DB.MembershipIDs(ctx, show.Saved)
	if err != nil {
		return nil, nil, nil, err
	}
	return shows, favorites, saved, nil
}

// RunConcurrentQueries simulates numReaders clients reloading their views.
//
// Each reader performs queriesPerReader reloads, recording latency for each.
// Returns aggregated latency statistics.
func (td *TestDatabase) RunConcurrentQueries(numReaders int, queriesPerReader int) (*LatencyStats, error) {
	var wg sync.WaitGroup
	var allDurations []time.Duration
	var errorCount int

	resultsChan := make(chan []time.Duration, numReaders)
	errorsChan := make(chan error, numReaders)

	for i := 0; i < numReaders; i++ {
		wg.Add(1)
		go func(readerID int) {
			defer wg.Done()

			durations := make([]time.Duration, 0, queriesPerReader)
			ctx := context.Background()

			for j := 0; j < queriesPerReader; j++ {
				start := time.Now()
				_, _, _, err := td.reload(ctx)
				durations = append(durations, time.Since(start))

				if err != nil {
					errorsChan <- fmt.Errorf("reader %d reload %d failed: %w", readerID, j, err)
					return
				}
			}

			resultsChan <- durations
		}(i)
	}

	wg.Wait()
	close(resultsChan)
	close(errorsChan)

	for err := range errorsChan {
		errorCount++
		fmt.Printf("Error: %v\n", err)
	}

	for durations := range resultsChan {
		allDurations = append(allDurations, durations...)
	}

	if len(allDurations) == 0 {
		return nil, fmt.Errorf("no successful queries completed")
	}

	stats := computeLatencyStats(allDurations)
	stats.Errors = errorCount

	return stats, nil
}

// VerifyNoRaceConditions runs readers against concurrent toggle writers.
//
// Readers check that every reload is ordered by rank and that every member
// id refers to a stored show. Writers flip memberships and rewrite shows.
func (td *TestDatabase) VerifyNoRaceConditions(numAgents int, duration time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var wg sync.WaitGroup
	errorsChan := make(chan error, 2*numAgents)

	for i := 0; i < numAgents; i++ {
		wg.Add(1)
		go func(agentID int) {
			defer wg.Done()

			for ctx.Err() == nil {
				shows, favorites, saved, err := td.reload(ctx)
				if err != nil {
					if ctx.Err() == nil {
						errorsChan <- fmt.Errorf("reader %d reload failed: %w", agentID, err)
					}
					return
				}
				if err := checkConsistency(shows, favorites, saved); err != nil {
					errorsChan <- fmt.Errorf("reader %d: %w", agentID, err)
					return
				}
				time.Sleep(time.Millisecond)
			}
		}(i)

		wg.Add(1)
		go func(agentID int) {
			defer wg.Done()

			rng := rand.New(rand.NewSource(int64(agentID)))
			for ctx.Err() == nil {
				sh := td.randomShow(rng)
				c := show.Collections[rng.Intn(len(show.Collections))]

				var err error
				if rng.Intn(2) == 0 {
					err = td.DB.EnsureMembership(ctx, c, &sh)
				} else {
					err = td.DB.RemoveMembership(ctx, c, sh.ID)
				}
				if err == nil && rng.Intn(4) == 0 {
					err = td.DB.UpsertShow(ctx, &sh)
				}
				if err != nil && ctx.Err() == nil {
					errorsChan <- fmt.Errorf("writer %d failed on %s: %w", agentID, sh.ID, err)
					return
				}
				time.Sleep(time.Millisecond)
			}
		}(i)
	}

	wg.Wait()
	close(errorsChan)

	if err, ok := <-errorsChan; ok {
		return err
	}
	return nil
}

// GetStats returns statistics about the test database.
func (td *TestDatabase) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"total_shows":       td.TotalShows,
		"favorite_shows":    len(td.FavoriteIDs),
		"saved_shows":       len(td.SavedIDs),
		"favorites_percent": float64(len(td.FavoriteIDs)) / float64(td.TotalShows) * 100,
		"saved_percent":     float64(len(td.SavedIDs)) / float64(td.TotalShows) * 100,
	}
}

func (td *TestDatabase) randomShow(rng *rand.Rand) show.Show {
	i := rng.Intn(len(td.ShowIDs))
	return makeShow(i)
}

// generateShows creates count shows with a realistic spread of fields.
func generateShows(count int) []show.Show {
	shows := make([]show.Show, count)
	for i := range shows {
		shows[i] = makeShow(i)
	}
	return shows
}

var genres = []string{"Drama", "Comedy", "Crime", "Sci-Fi", "Thriller", "Animation", "Documentary"}

// makeShow returns the deterministic show number i.
func makeShow(i int) show.Show {
	sh := show.Show{
		ID:          fmt.Sprintf("tt%07d", 1000000+i),
		Title:       fmt.Sprintf("Show %d", i),
		Image:       show.Ptr(fmt.Sprintf("https://img.example.com/%d.jpg", i)),
		Rating:      show.Ptr(5.0 + float64(i%50)/10),
		Votes:       show.Ptr(1000 + i*37),
		ReleaseDate: show.Ptr(show.FormatReleaseDate(strconv.Itoa(1+i%28), strconv.Itoa(1+i%12), strconv.Itoa(1990+i%36))),
		Plot:        show.Ptr(fmt.Sprintf("Plot of show %d.", i)),
		Genres:      []string{genres[i%len(genres)], genres[(i+3)%len(genres)]},
		Episodes:    show.Ptr(6 + i%60),
		Seasons:     show.Ptr(1 + i%8),
	}
	if i%10 != 9 {
		sh.Rank = show.Ptr(i + 1)
	}
	sh.SetDefaults()
	return sh
}

// pickMembers selects favorites and a disjoint set of saved shows.
func pickMembers(ids []string, pct float64) (favorites, saved []string) {
	if pct <= 0 || len(ids) == 0 {
		return nil, nil
	}
	if pct > 1 {
		pct = 1
	}

	// Deterministic for reproducibility
	rng := rand.New(rand.NewSource(42))
	perm := rng.Perm(len(ids))

	numFav := int(float64(len(ids)) * pct)
	numSaved := numFav / 2
	if numFav+numSaved > len(ids) {
		numSaved = len(ids) - numFav
	}

	for _, i := range perm[:numFav] {
		favorites = append(favorites, ids[i])
	}
	for _, i := range perm[numFav : numFav+numSaved] {
		saved = append(saved, ids[i])
	}
	sort.Strings(favorites)
	sort.Strings(saved)
	return favorites, saved
}

// checkConsistency validates one reload.
func checkConsistency(shows []show.Show, favorites, saved []string) error {
	known := make(map[string]bool, len(shows))
	lastRank := 0
	unranked := false
	for _, sh := range shows {
		if sh.ID == "" {
			return fmt.Errorf("found show with empty id")
		}
		known[sh.ID] = true

		switch {
		case sh.Rank == nil:
			unranked = true
		case unranked:
			return fmt.Errorf("ranked show %s listed after unranked shows", sh.ID)
		case *sh.Rank < lastRank:
			return fmt.Errorf("show %s rank %d listed after rank %d", sh.ID, *sh.Rank, lastRank)
		default:
			lastRank = *sh.Rank
		}
	}

	for _, ids := range [][]string{favorites, saved} {
		for _, id := range ids {
			if !known[id] {
				return fmt.Errorf("member %s has no stored show", id)
			}
		}
	}
	return nil
}

// computeLatencyStats calculates statistics from a slice of durations.
func computeLatencyStats(durations []time.Duration) *LatencyStats {
	if len(durations) == 0 {
		return &LatencyStats{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return &LatencyStats{
		Min:          sorted[0],
		Max:          sorted[len(sorted)-1],
		Mean:         sum / time.Duration(len(durations)),
		P50:          sorted[len(sorted)*50/100],
		P95:          sorted[len(sorted)*95/100],
		P99:          sorted[len(sorted)*99/100],
		TotalQueries: len(durations),
		Durations:    sorted,
	}
}

// PrintStats formats and prints latency statistics.
func (s *LatencyStats) PrintStats() {
	s.Fprint(nil)
}

// Fprint writes the statistics to w, or stdout when w is nil.
func (s *LatencyStats) Fprint(w io.Writer) {
	printf := func(format string, args ...interface{}) {
		if w == nil {
			fmt.Printf(format, args...)
			return
		}
		fmt.Fprintf(w, format, args...)
	}
	printf("Latency Statistics:\n")
	printf("  Total Queries: %d\n", s.TotalQueries)
	printf("  Errors:        %d\n", s.Errors)
	printf("  Min:           %v\n", s.Min)
	printf("  P50 (Median):  %v\n", s.P50)
	printf("  Mean:          %v\n", s.Mean)
	printf("  P95:           %v\n", s.P95)
	printf("  P99:           %v\n", s.P99)
	printf("  Max:           %v\n", s.Max)
}
