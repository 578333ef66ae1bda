// Package daemon keeps the catalog current while showdeck runs in the background.
//
// The daemon:
// 1. Imports every page already sitting in the inbox directory
// 2. Watches the inbox for new or rewritten pages and imports them, debounced
// 3. Optionally forces a catalog refresh from the remote site on an interval
// 4. Shuts down gracefully when its context is cancelled
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vadimfor/showdeck/internal/catalog"
	"github.com/vadimfor/showdeck/internal/show"
)

// Importer merges pages into the catalog. *catalog.Coordinator implements it.
type Importer interface {
	ImportCatalog(ctx context.Context, raw string) (catalog.RefreshResult, error)
	ImportDetail(ctx context.Context, id, raw string) (show.Show, error)
	ForceRefresh(ctx context.Context) (catalog.RefreshResult, error)
}

// Config holds configuration for the daemon.
type Config struct {
	// RefreshInterval is how often to reload the chart from the remote site.
	// Zero disables periodic refresh.
	RefreshInterval time.Duration

	// DebounceInterval is how long a file must stay quiet before it is imported.
	// Browsers and download tools write pages in several chunks.
	DebounceInterval time.Duration

	// OnIdle, if set, runs after each batch of imports.
	OnIdle func()

	// Logger for daemon activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 500 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Stats counts imported inbox files.
type Stats struct {
	Imported  int64
	Failed    int64
	Refreshes int64
}

// Daemon watches the inbox and feeds pages to the importer.
type Daemon struct {
	importer Importer
	inbox    string
	config   *Config

	watcher       *fsnotify.Watcher
	changeQueue   map[string]time.Time // filepath -> last event
	changeQueueMu sync.Mutex

	imported  atomic.Int64
	failed    atomic.Int64
	refreshes atomic.Int64

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a daemon for the given inbox directory, creating it if needed.
//
// Use Start() to begin watching.
func New(importer Importer, inbox string) (*Daemon, error) {
	return NewWithConfig(importer, inbox, DefaultConfig())
}

// NewWithConfig creates a daemon with custom configuration.
func NewWithConfig(importer Importer, inbox string, config *Config) (*Daemon, error) {
	if importer == nil {
		return nil, fmt.Errorf("importer cannot be nil")
	}
	if inbox == "" {
		return nil, fmt.Errorf("inbox cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = DefaultConfig().DebounceInterval
	}

	if err := os.MkdirAll(inbox, 0755); err != nil {
		return nil, fmt.Errorf("failed to create inbox: %w", err)
	}
	abs, err := filepath.Abs(inbox)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve inbox path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		importer:    importer,
		inbox:       abs,
		config:      config,
		watcher:     watcher,
		changeQueue: make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Inbox returns the watched directory.
func (d *Daemon) Inbox() string {
	return d.inbox
}

// Stats returns a snapshot of the counters.
func (d *Daemon) Stats() Stats {
	return Stats{
		Imported:  d.imported.Load(),
		Failed:    d.failed.Load(),
		Refreshes: d.refreshes.Load(),
	}
}

// Start imports what the inbox already holds, then watches it.
//
// This blocks until ctx is cancelled or Stop is called.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	if err := d.watcher.Add(d.inbox); err != nil {
		return fmt.Errorf("failed to watch inbox: %w", err)
	}

	// Watch before the initial scan so nothing written in between is missed.
	if err := d.ImportAll(); err != nil {
		return fmt.Errorf("initial import failed: %w", err)
	}

	d.config.Logger.Printf("Watching: %s", d.inbox)

	d.wg.Add(2)
	go d.watchFileEvents()
	go d.processChangeQueue()
	if d.config.RefreshInterval > 0 {
		d.wg.Add(1)
		go d.refreshCatalog()
	}

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon. Safe to call more than once.
func (d *Daemon) Stop() error {
	d.stopOnce.Do(func() {
		d.config.Logger.Println("Stopping daemon")
		d.cancel()

		if err := d.watcher.Close(); err != nil {
			d.config.Logger.Printf("Error closing watcher: %v", err)
		}

		d.wg.Wait()
		d.config.Logger.Println("Daemon stopped")
	})
	return nil
}

// ImportAll imports every page in the inbox, catalogs before details so a
// detail page finds its show. Individual failures are logged, not returned.
func (d *Daemon) ImportAll() error {
	entries, err := os.ReadDir(d.inbox)
	if err != nil {
		return fmt.Errorf("failed to read inbox: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(d.inbox, entry.Name())
		if kind, _ := Classify(path); kind != KindIgnored {
			paths = append(paths, path)
		}
	}
	if len(paths) == 0 {
		return nil
	}

	d.config.Logger.Printf("Importing %d inbox files", len(paths))
	d.importBatch(paths)
	return nil
}

// watchFileEvents monitors filesystem events and queues changes.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}

			// Removals and renames away need no import
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if kind, _ := Classify(event.Name); kind == KindIgnored {
				continue
			}

			d.queueChange(event.Name)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// queueChange records the latest event time for path.
func (d *Daemon) queueChange(path string) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	d.changeQueue[path] = time.Now()
}

// processChangeQueue imports files once they have been quiet long enough.
func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.processPendingChanges()
		}
	}
}

// processPendingChanges imports files whose last event is older than the
// debounce interval.
func (d *Daemon) processPendingChanges() {
	d.changeQueueMu.Lock()
	now := time.Now()
	var ready []string
	for path, queuedAt := range d.changeQueue {
		if now.Sub(queuedAt) < d.config.DebounceInterval {
			continue
		}
		ready = append(ready, path)
		delete(d.changeQueue, path)
	}
	d.changeQueueMu.Unlock()

	if len(ready) > 0 {
		d.importBatch(ready)
	}
}

// importBatch imports catalogs first, then details, each group in name order.
func (d *Daemon) importBatch(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		ki, _ := Classify(paths[i])
		kj, _ := Classify(paths[j])
		if ki != kj {
			return ki < kj
		}
		return paths[i] < paths[j]
	})

	for _, path := range paths {
		if d.ctx.Err() != nil {
			return
		}
		if err := d.importFile(path); err != nil {
			d.failed.Add(1)
			d.config.Logger.Printf("Warning: failed to import %s: %v", filepath.Base(path), err)
			continue
		}
		d.imported.Add(1)
	}

	if d.config.OnIdle != nil {
		d.config.OnIdle()
	}
}

// importFile imports a single inbox file.
func (d *Daemon) importFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// Gone before we got to it.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	kind, id := Classify(path)
	d.config.Logger.Printf("Importing %s page: %s", kind, filepath.Base(path))

	switch kind {
	case KindCatalog:
		res, err := d.importer.ImportCatalog(d.ctx, string(data))
		if err != nil {
			return err
		}
		d.config.Logger.Printf("Imported %d shows (failed=%d)", res.Written, res.Failed)
	case KindDetail:
		sh, err := d.importer.ImportDetail(d.ctx, id, string(data))
		if err != nil {
			return err
		}
		d.config.Logger.Printf("Imported details for %s (%s)", sh.ID, sh.Title)
	}
	return nil
}

// refreshCatalog periodically reloads the chart from the remote site.
func (d *Daemon) refreshCatalog() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.refreshes.Add(1)
			if _, err := d.importer.ForceRefresh(d.ctx); err != nil {
				d.config.Logger.Printf("Error refreshing catalog: %v", err)
			}
		}
	}
}
