package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/vadimfor/showdeck/internal/events"
	"github.com/vadimfor/showdeck/internal/extract"
	"github.com/vadimfor/showdeck/internal/locale"
	"github.com/vadimfor/showdeck/internal/show"
	"github.com/vadimfor/showdeck/internal/view"
)

// Config wires a Coordinator.
type Config struct {
	Fetcher   Fetcher
	Store     Store
	View      *view.View
	Extractor *extract.Extractor // nil uses extract.New(Logger)
	Logger    *log.Logger        // nil writes to stderr
	Language  locale.Lang        // zero value uses locale.Default
	Notifier  events.Notifier    // nil discards events
}

// RefreshResult summarizes a catalog load.
type RefreshResult struct {
	Skipped   bool // the view already held shows
	Extracted int
	Written   int
	Failed    int
	Duration  time.Duration
}

// Coordinator runs catalog refreshes, searches and detail enrichment.
// Operations are serialized; it is safe to call from several goroutines.
type Coordinator struct {
	fetcher   Fetcher
	store     Store
	view      *view.View
	extractor *extract.Extractor
	logger    *log.Logger
	notifier  events.Notifier

	langMu sync.RWMutex
	lang   locale.Lang

	opMu sync.Mutex
}

// New creates a coordinator.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.View == nil {
		return nil, fmt.Errorf("view is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[catalog] ", log.LstdFlags)
	}
	if cfg.Extractor == nil {
		cfg.Extractor = extract.New(cfg.Logger)
	}
	if cfg.Notifier == nil {
		cfg.Notifier = events.Nop{}
	}
	if !cfg.Language.Valid() {
		cfg.Language = locale.Default
	}

	return &Coordinator{
		fetcher:   cfg.Fetcher,
		store:     cfg.Store,
		view:      cfg.View,
		extractor: cfg.Extractor,
		logger:    cfg.Logger,
		notifier:  cfg.Notifier,
		lang:      cfg.Language,
	}, nil
}

// Language returns the language pages are requested in.
func (c *Coordinator) Language() locale.Lang {
	c.langMu.RLock()
	defer c.langMu.RUnlock()
	return c.lang
}

// SetLanguage changes the language for subsequent fetches.
func (c *Coordinator) SetLanguage(lang locale.Lang) {
	if !lang.Valid() {
		lang = locale.Default
	}
	c.langMu.Lock()
	c.lang = lang
	c.langMu.Unlock()
}

// RefreshCatalog loads the chart unless the view already holds shows.
func (c *Coordinator) RefreshCatalog(ctx context.Context) (RefreshResult, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	// Checked under opMu: concurrent first callers fetch once.
	if n := c.view.Len(); n > 0 {
		c.logger.Printf("Catalog already loaded (%d shows), skipping refresh", n)
		return RefreshResult{Skipped: true}, nil
	}
	return c.refresh(ctx)
}

// ForceRefresh loads the chart, merges it into the store and reloads the view.
func (c *Coordinator) ForceRefresh(ctx context.Context) (RefreshResult, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	return c.refresh(ctx)
}

// refresh fetches and merges the chart. Callers hold opMu.
func (c *Coordinator) refresh(ctx context.Context) (RefreshResult, error) {
	start := time.Now()
	c.view.SetLoading(true)
	defer c.view.SetLoading(false)

	lang := c.Language()
	c.logger.Printf("Refreshing catalog (language=%s)", lang)

	raw, err := c.fetcher.Fetch(ctx, c.fetcher.ChartURL(lang), lang)
	if err != nil {
		return RefreshResult{Duration: time.Since(start)}, c.failed("refresh", start, fmt.Errorf("failed to fetch catalog: %w", err))
	}
	return c.mergeCatalog(ctx, raw, start)
}

// ImportCatalog merges a chart page obtained elsewhere.
func (c *Coordinator) ImportCatalog(ctx context.Context, raw string) (RefreshResult, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	start := time.Now()
	c.view.SetLoading(true)
	defer c.view.SetLoading(false)

	return c.mergeCatalog(ctx, raw, start)
}

func (c *Coordinator) mergeCatalog(ctx context.Context, raw string, start time.Time) (RefreshResult, error) {
	shows := c.extractor.Catalog(raw)
	res := RefreshResult{Extracted: len(shows)}
	if len(shows) == 0 {
		res.Duration = time.Since(start)
		return res, c.failed("refresh", start, ErrNoShows)
	}

	written := c.store.UpsertShows(ctx, shows)
	res.Written, res.Failed = written.Written, written.Failed
	if written.Written == 0 {
		res.Duration = time.Since(start)
		return res, c.failed("refresh", start, fmt.Errorf("failed to write any of %d shows", len(shows)))
	}

	if err := c.view.Reload(ctx, c.store); err != nil {
		res.Duration = time.Since(start)
		return res, c.failed("refresh", start, fmt.Errorf("failed to reload view: %w", err))
	}
	res.Duration = time.Since(start)

	c.notifier.Publish(events.New(events.ShowsMerged, events.ShowsMergedData{Source: "catalog", IDs: showIDs(shows)}))
	c.notifier.Publish(events.New(events.SyncComplete, events.SyncData{
		Operation: "refresh",
		Written:   res.Written,
		Failed:    res.Failed,
		Duration:  res.Duration,
	}))
	c.logger.Printf("Catalog sync complete: shows=%d (failed=%d) in %s",
		res.Written, res.Failed, res.Duration.Round(time.Millisecond))
	return res, nil
}

// Search looks query up and returns the matching series, enriched from their
// detail pages. A hit whose detail page cannot be fetched or read is left out.
// Only a failure to load the search page itself is returned as an error.
func (c *Coordinator) Search(ctx context.Context, query string) ([]show.Show, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []show.Show{}, nil
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	start := time.Now()
	c.view.SetLoading(true)
	defer c.view.SetLoading(false)

	lang := c.Language()
	raw, err := c.fetcher.Fetch(ctx, c.fetcher.FindURL(query), lang)
	if err != nil {
		return nil, c.failed("search", start, fmt.Errorf("failed to fetch search results: %w", err))
	}

	hits := c.extractor.Search(raw)
	shows := []show.Show{}
	dropped := 0

	// One hit at a time, to stay polite to the remote site.
	for _, hit := range hits {
		if err := ctx.Err(); err != nil {
			return nil, c.failed("search", start, err)
		}

		detailRaw, err := c.fetcher.Fetch(ctx, c.fetcher.TitleURL(hit.ID), lang)
		if err != nil {
			c.logger.Printf("Warning: failed to fetch details for %s: %v", hit.ID, err)
			dropped++
			continue
		}
		d, ok := c.extractor.Detail(detailRaw)
		if !ok {
			c.logger.Printf("Warning: no details found for %s", hit.ID)
			dropped++
			continue
		}
		shows = append(shows, d.ShowFor(hit))
	}

	var written, failed int
	if len(shows) > 0 {
		res := c.store.UpsertShows(ctx, shows)
		written, failed = res.Written, res.Failed
		c.view.MergeShows(shows)
		c.notifier.Publish(events.New(events.ShowsMerged, events.ShowsMergedData{Source: "search", IDs: showIDs(shows)}))
	}

	c.notifier.Publish(events.New(events.SyncComplete, events.SyncData{
		Operation: "search",
		Written:   written,
		Failed:    failed,
		Duration:  time.Since(start),
	}))
	c.logger.Printf("Search %q complete: hits=%d shows=%d (dropped=%d, write failures=%d)",
		query, len(hits), len(shows), dropped, failed)
	return shows, nil
}

// EnrichDetail fetches the detail page of a known show and merges its fields.
func (c *Coordinator) EnrichDetail(ctx context.Context, id string) (show.Show, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	base, err := c.known(ctx, id)
	if err != nil {
		return show.Show{}, err
	}

	raw, err := c.fetcher.Fetch(ctx, c.fetcher.TitleURL(id), c.Language())
	if err != nil {
		c.logger.Printf("Warning: failed to fetch details for %s: %v", id, err)
		return show.Show{}, fmt.Errorf("failed to fetch details for %s: %w", id, err)
	}
	return c.mergeDetail(ctx, base, raw)
}

// ImportDetail merges a detail page obtained elsewhere into a known show.
func (c *Coordinator) ImportDetail(ctx context.Context, id, raw string) (show.Show, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	base, err := c.known(ctx, id)
	if err != nil {
		return show.Show{}, err
	}
	return c.mergeDetail(ctx, base, raw)
}

// known returns the show from the view, or from the store if the view has not
// loaded it.
func (c *Coordinator) known(ctx context.Context, id string) (show.Show, error) {
	if sh, ok := c.view.Get(id); ok {
		return sh, nil
	}
	sh, err := c.store.GetShow(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return show.Show{}, fmt.Errorf("%w: %s", ErrUnknownShow, id)
	}
	if err != nil {
		return show.Show{}, err
	}
	return *sh, nil
}

func (c *Coordinator) mergeDetail(ctx context.Context, base show.Show, raw string) (show.Show, error) {
	d, ok := c.extractor.Detail(raw)
	if !ok {
		return show.Show{}, fmt.Errorf("%w: %s", ErrNoDetail, base.ID)
	}

	patch := d.Patch()
	merged := base.Clone()
	patch.ApplyTo(&merged)

	if err := c.store.UpsertShow(ctx, &merged); err != nil {
		c.logger.Printf("Warning: failed to store details for %s: %v", base.ID, err)
		return show.Show{}, err
	}

	if _, ok := c.view.PatchShow(base.ID, patch); !ok {
		c.view.MergeShows([]show.Show{merged})
	}

	c.notifier.Publish(events.New(events.ShowPatched, events.ShowPatchedData{Show: merged}))
	c.logger.Printf("Enriched %s (%s)", merged.ID, merged.Title)
	return merged, nil
}

// failed logs err, publishes a sync_failed event and returns err.
func (c *Coordinator) failed(op string, start time.Time, err error) error {
	c.logger.Printf("ERROR: %s failed: %v", op, err)
	c.notifier.Publish(events.New(events.SyncFailed, events.SyncData{
		Operation: op,
		Duration:  time.Since(start),
		Error:     err.Error(),
	}))
	return err
}

func showIDs(shows []show.Show) []string {
	ids := make([]string, len(shows))
	for i, sh := range shows {
		ids[i] = sh.ID
	}
	return ids
}
