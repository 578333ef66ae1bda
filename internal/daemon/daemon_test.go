package daemon

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vadimfor/showdeck/internal/catalog"
	"github.com/vadimfor/showdeck/internal/show"
)

// fakeImporter records what the daemon hands it.
type fakeImporter struct {
	mu        sync.Mutex
	calls     []string
	refreshes int
	failOn    map[string]bool
}

func (f *fakeImporter) ImportCatalog(ctx context.Context, raw string) (catalog.RefreshResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "catalog:"+raw)
	if f.failOn[raw] {
		return catalog.RefreshResult{}, catalog.ErrNoShows
	}
	return catalog.RefreshResult{Extracted: 1, Written: 1}, nil
}

func (f *fakeImporter) ImportDetail(ctx context.Context, id, raw string) (show.Show, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "detail:"+id+":"+raw)
	if f.failOn[raw] {
		return show.Show{}, catalog.ErrUnknownShow
	}
	return show.Show{ID: id, Title: raw}, nil
}

func (f *fakeImporter) ForceRefresh(ctx context.Context) (catalog.RefreshResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return catalog.RefreshResult{}, errors.New("offline")
}

func (f *fakeImporter) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func testConfig() *Config {
	config := DefaultConfig()
	config.DebounceInterval = 50 * time.Millisecond
	config.Logger = log.New(io.Discard, "", 0)
	return config
}

// writeInboxFile writes a page into the inbox.
func writeInboxFile(t *testing.T, dir, name, content string) {
	t.Helper()

	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write inbox file: %v", err)
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		path     string
		wantKind DocKind
		wantID   string
	}{
		{"/in/chart.html", KindCatalog, ""},
		{"/in/tvmeter.HTM", KindCatalog, ""},
		{"/in/tt0903747.html", KindDetail, "tt0903747"},
		{"/in/tt0903747-copy.html", KindCatalog, ""},
		{"/in/notes.txt", KindIgnored, ""},
		{"/in/.chart.html.swp", KindIgnored, ""},
		{"/in/.tt1.html", KindIgnored, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			kind, id := Classify(tt.path)
			if kind != tt.wantKind || id != tt.wantID {
				t.Errorf("Classify(%q) = (%s, %q), want (%s, %q)", tt.path, kind, id, tt.wantKind, tt.wantID)
			}
		})
	}
}

func TestNew(t *testing.T) {
	inbox := filepath.Join(t.TempDir(), "inbox")

	tests := []struct {
		name     string
		importer Importer
		inbox    string
		wantErr  bool
	}{
		{name: "valid configuration", importer: &fakeImporter{}, inbox: inbox},
		{name: "nil importer", importer: nil, inbox: inbox, wantErr: true},
		{name: "empty inbox", importer: &fakeImporter{}, inbox: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			daemon, err := NewWithConfig(tt.importer, tt.inbox, testConfig())
			if (err != nil) != tt.wantErr {
				t.Errorf("NewWithConfig() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if daemon != nil {
				defer daemon.Stop()
			}
		})
	}

	if _, err := os.Stat(inbox); err != nil {
		t.Errorf("inbox was not created: %v", err)
	}
}

func TestDaemon_ImportAll(t *testing.T) {
	inbox := t.TempDir()
	writeInboxFile(t, inbox, "tt2.html", "second-detail")
	writeInboxFile(t, inbox, "chart.html", "chart")
	writeInboxFile(t, inbox, "tt1.html", "first-detail")
	writeInboxFile(t, inbox, "readme.txt", "ignored")

	importer := &fakeImporter{}
	daemon, err := NewWithConfig(importer, inbox, testConfig())
	if err != nil {
		t.Fatalf("Failed to create daemon: %v", err)
	}
	defer daemon.Stop()

	if err := daemon.ImportAll(); err != nil {
		t.Fatalf("ImportAll() error = %v", err)
	}

	// Catalog pages go first so details find their shows.
	want := []string{"catalog:chart", "detail:tt1:first-detail", "detail:tt2:second-detail"}
	if diff := cmp.Diff(want, importer.snapshot()); diff != "" {
		t.Errorf("import order mismatch (-want +got):\n%s", diff)
	}
	if got := daemon.Stats(); got.Imported != 3 || got.Failed != 0 {
		t.Errorf("Stats() = %+v, want 3 imported", got)
	}
}

func TestDaemon_ImportAllCountsFailures(t *testing.T) {
	inbox := t.TempDir()
	writeInboxFile(t, inbox, "chart.html", "broken")
	writeInboxFile(t, inbox, "tt1.html", "ok")

	importer := &fakeImporter{failOn: map[string]bool{"broken": true}}
	daemon, err := NewWithConfig(importer, inbox, testConfig())
	if err != nil {
		t.Fatalf("Failed to create daemon: %v", err)
	}
	defer daemon.Stop()

	if err := daemon.ImportAll(); err != nil {
		t.Fatalf("ImportAll() error = %v", err)
	}

	if got := daemon.Stats(); got.Imported != 1 || got.Failed != 1 {
		t.Errorf("Stats() = %+v, want 1 imported and 1 failed", got)
	}
}

func TestDaemon_FileWatching(t *testing.T) {
	inbox := t.TempDir()
	writeInboxFile(t, inbox, "chart.html", "initial")

	importer := &fakeImporter{}
	var idle sync.WaitGroup
	idle.Add(1)
	var once sync.Once
	config := testConfig()
	config.OnIdle = func() { once.Do(idle.Done) }

	daemon, err := NewWithConfig(importer, inbox, config)
	if err != nil {
		t.Fatalf("Failed to create daemon: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- daemon.Start(ctx) }()

	// Initial scan
	idle.Wait()

	writeInboxFile(t, inbox, "tt42.html", "new-detail")
	writeInboxFile(t, inbox, "notes.txt", "ignored")

	waitFor(t, 5*time.Second, func() bool { return len(importer.snapshot()) >= 2 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}

	want := []string{"catalog:initial", "detail:tt42:new-detail"}
	if diff := cmp.Diff(want, importer.snapshot()[:2]); diff != "" {
		t.Errorf("imports mismatch (-want +got):\n%s", diff)
	}
}

func TestDaemon_Debounce(t *testing.T) {
	inbox := t.TempDir()
	importer := &fakeImporter{}

	daemon, err := NewWithConfig(importer, inbox, testConfig())
	if err != nil {
		t.Fatalf("Failed to create daemon: %v", err)
	}
	defer daemon.Stop()

	path := filepath.Join(inbox, "chart.html")
	for i := 0; i < 5; i++ {
		daemon.queueChange(path)
	}
	writeInboxFile(t, inbox, "chart.html", "final")

	// Still inside the debounce window
	daemon.processPendingChanges()
	if got := len(importer.snapshot()); got != 0 {
		t.Fatalf("imported %d files before debounce elapsed", got)
	}

	time.Sleep(2 * daemon.config.DebounceInterval)
	daemon.processPendingChanges()

	want := []string{"catalog:final"}
	if diff := cmp.Diff(want, importer.snapshot()); diff != "" {
		t.Errorf("imports mismatch (-want +got):\n%s", diff)
	}
}

func TestDaemon_PeriodicRefresh(t *testing.T) {
	importer := &fakeImporter{}
	config := testConfig()
	config.RefreshInterval = 20 * time.Millisecond

	daemon, err := NewWithConfig(importer, t.TempDir(), config)
	if err != nil {
		t.Fatalf("Failed to create daemon: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go daemon.Start(ctx)

	// Refresh errors are logged and the loop keeps going.
	waitFor(t, 5*time.Second, func() bool { return daemon.Stats().Refreshes >= 2 })

	if err := daemon.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := daemon.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}
