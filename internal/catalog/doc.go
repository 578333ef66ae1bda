// Package catalog keeps the local store and the in-memory view in step with
// the remote catalog.
//
// Overview
//
// The coordinator fetches pages, hands them to the extractor, writes the
// resulting shows to the store, and then updates the view:
//
//	remote page (HTML)
//	     ↓ Fetcher
//	embedded JSON
//	     ↓ extract.Extractor
//	[]show.Show
//	     ↓ store.UpsertShows       (per-record failures logged, never fatal)
//	SQLite cache
//	     ↓ view.Reload / MergeShows / PatchShow
//	in-memory view
//
// Operations
//
// RefreshCatalog loads the popular-series chart, but only when the view is
// still empty; ForceRefresh always loads it. Search looks a query up, fetches
// the detail page of every series hit one by one, and merges the enriched
// shows. EnrichDetail adds detail-page fields (trailer, seasons) to a show the
// user is looking at. ImportCatalog and ImportDetail run the same merge paths
// on documents that were obtained some other way, such as the daemon inbox.
//
// Failures
//
// Every failure is logged and returned; the view is left as it was. The
// view's loading flag is cleared however an operation ends. A write that
// completed before a failure or cancellation stays in the store.
//
// Usage
//
//	database, err := store.Open("showdeck.db")
//	if err != nil {
//	    return err
//	}
//	defer database.Close()
//
//	v := view.New()
//	coord, err := catalog.New(catalog.Config{
//	    Fetcher:   remote.New(remote.DefaultOptions()),
//	    Store:     database,
//	    View:      v,
//	    Extractor: extract.New(nil),
//	    Language:  locale.English,
//	})
//	if err != nil {
//	    return err
//	}
//
//	if _, err := coord.RefreshCatalog(ctx); err != nil {
//	    return err
//	}
//	for _, sh := range v.Shows() {
//	    fmt.Println(sh.Title)
//	}
package catalog
