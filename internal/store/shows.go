package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"

	"github.com/vadimfor/showdeck/internal/show"
)

// Order selects the sort applied by ListShows. Ties are broken by id.
type Order int

const (
	// OrderRank sorts by chart rank ascending, shows without a rank last.
	OrderRank Order = iota
	// OrderReleaseDate sorts by the stored release date text.
	OrderReleaseDate
	// OrderTitle sorts by title, case-insensitively.
	OrderTitle
)

func (o Order) clause() string {
	switch o {
	case OrderReleaseDate:
		return "releaseDate IS NULL, releaseDate ASC, id ASC"
	case OrderTitle:
		return "title COLLATE NOCASE ASC, id ASC"
	default:
		return "rank IS NULL, rank ASC, id ASC"
	}
}

const showColumns = `id, rank, title, image, rating, votes, releaseDate, plot, titleGenres, episodes, seasons, trailer`

// UpsertResult reports how a batch write went.
type UpsertResult struct {
	Written   int
	Failed    int
	FailedIDs []string
}

// UpsertShow inserts a show or replaces every column of the existing row.
// Optional fields that are nil are written as NULL.
func (db *DB) UpsertShow(ctx context.Context, sh *show.Show) error {
	if err := db.ensureSchema(ctx); err != nil {
		return err
	}
	if err := sh.Validate(); err != nil {
		return fmt.Errorf("invalid show: %w", err)
	}

	args, err := showArgs(sh)
	if err != nil {
		return err
	}

	query := `INSERT INTO records (` + showColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			rank = excluded.rank,
			title = excluded.title,
			image = excluded.image,
			rating = excluded.rating,
			votes = excluded.votes,
			releaseDate = excluded.releaseDate,
			plot = excluded.plot,
			titleGenres = excluded.titleGenres,
			episodes = excluded.episodes,
			seasons = excluded.seasons,
			trailer = excluded.trailer`

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert show %s: %w", sh.ID, err)
	}
	return nil
}

// UpsertShows writes a batch concurrently with a bounded worker pool.
// A failed record is logged and counted; it never stops its siblings.
// Nothing already written is rolled back if ctx is cancelled mid-batch.
func (db *DB) UpsertShows(ctx context.Context, shows []show.Show) UpsertResult {
	var (
		written atomic.Int64
		mu      sync.Mutex
		failed  []string
	)

	p := pool.New().WithMaxGoroutines(db.config.Workers)
	for i := range shows {
		sh := shows[i]
		p.Go(func() {
			if err := db.UpsertShow(ctx, &sh); err != nil {
				db.config.Logger.Printf("Warning: failed to write show %q: %v", sh.ID, err)
				mu.Lock()
				failed = append(failed, sh.ID)
				mu.Unlock()
				return
			}
			written.Add(1)
		})
	}
	p.Wait()

	sort.Strings(failed)
	return UpsertResult{
		Written:   int(written.Load()),
		Failed:    len(failed),
		FailedIDs: failed,
	}
}

// GetShow retrieves a show by id. Returns sql.ErrNoRows if not found.
func (db *DB) GetShow(ctx context.Context, id string) (*show.Show, error) {
	if err := db.ensureSchema(ctx); err != nil {
		return nil, err
	}

	row := db.conn.QueryRowContext(ctx, `SELECT `+showColumns+` FROM records WHERE id = ?`, id)
	sh, err := scanShow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get show %s: %w", id, err)
	}
	return sh, nil
}

// ListShows returns every stored show in the given order.
func (db *DB) ListShows(ctx context.Context, order Order) ([]show.Show, error) {
	if err := db.ensureSchema(ctx); err != nil {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx, `SELECT `+showColumns+` FROM records ORDER BY `+order.clause())
	if err != nil {
		return nil, fmt.Errorf("failed to list shows: %w", err)
	}
	defer rows.Close()

	shows := []show.Show{}
	for rows.Next() {
		sh, err := scanShow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan show: %w", err)
		}
		shows = append(shows, *sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shows: %w", err)
	}
	return shows, nil
}

// DeleteShow removes a show. Its memberships go with it.
func (db *DB) DeleteShow(ctx context.Context, id string) error {
	if err := db.ensureSchema(ctx); err != nil {
		return err
	}
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete show %s: %w", id, err)
	}
	return nil
}

// Clear empties all three tables in one transaction.
func (db *DB) Clear(ctx context.Context) error {
	if err := db.ensureSchema(ctx); err != nil {
		return err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"favorites", "saved", "records"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clear: %w", err)
	}
	return nil
}

// ShowCount returns the number of stored shows.
func (db *DB) ShowCount(ctx context.Context) (int, error) {
	if err := db.ensureSchema(ctx); err != nil {
		return 0, err
	}
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count shows: %w", err)
	}
	return n, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanShow(r rowScanner) (*show.Show, error) {
	var (
		sh          show.Show
		rank        sql.NullInt64
		title       sql.NullString
		image       sql.NullString
		rating      sql.NullFloat64
		votes       sql.NullInt64
		releaseDate sql.NullString
		plot        sql.NullString
		genres      sql.NullString
		episodes    sql.NullInt64
		seasons     sql.NullInt64
		trailer     sql.NullString
	)

	err := r.Scan(&sh.ID, &rank, &title, &image, &rating, &votes, &releaseDate,
		&plot, &genres, &episodes, &seasons, &trailer)
	if err != nil {
		return nil, err
	}

	sh.Rank = intPtr(rank)
	sh.Title = title.String
	sh.Image = stringPtr(image)
	sh.Rating = floatPtr(rating)
	sh.Votes = intPtr(votes)
	sh.ReleaseDate = stringPtr(releaseDate)
	sh.Plot = stringPtr(plot)
	sh.Episodes = intPtr(episodes)
	sh.Seasons = intPtr(seasons)
	sh.Trailer = stringPtr(trailer)

	sh.Genres, err = show.DecodeGenres(genres.String)
	if err != nil {
		return nil, fmt.Errorf("show %s: %w", sh.ID, err)
	}
	return &sh, nil
}

// showArgs returns the insert arguments in showColumns order.
func showArgs(sh *show.Show) ([]interface{}, error) {
	genres, err := show.EncodeGenres(sh.Genres)
	if err != nil {
		return nil, err
	}
	return []interface{}{
		sh.ID,
		nullInt(sh.Rank),
		sh.Title,
		nullString(sh.Image),
		nullFloat(sh.Rating),
		nullInt(sh.Votes),
		nullString(sh.ReleaseDate),
		nullString(sh.Plot),
		genres,
		nullInt(sh.Episodes),
		nullInt(sh.Seasons),
		nullString(sh.Trailer),
	}, nil
}

// Helper functions for nullable columns

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}
