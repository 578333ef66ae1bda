package main

import (
	"context"
	"fmt"
	"os"

	"github.com/vadimfor/showdeck/internal/catalog"
	"github.com/vadimfor/showdeck/internal/events"
	"github.com/vadimfor/showdeck/internal/membership"
	"github.com/vadimfor/showdeck/internal/remote"
	"github.com/vadimfor/showdeck/internal/store"
	"github.com/vadimfor/showdeck/internal/view"
)

// app is the wired client: store, view, coordinator and toggle service.
type app struct {
	db      *store.DB
	view    *view.View
	client  *remote.Client
	coord   *catalog.Coordinator
	members *membership.Service
	events  *events.Fanout
}

// openApp opens the store and restores the view from it.
func openApp(ctx context.Context) (*app, error) {
	db, err := store.OpenWithConfig(cfg.Database.Path, &store.Config{
		Workers: cfg.Store.Workers,
		Logger:  logOut.Logger("store"),
	})
	if err != nil {
		return nil, err
	}
	if err := db.InitSchemaContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &app{
		db:     db,
		view:   view.New(),
		events: &events.Fanout{},
	}
	if err := a.view.Reload(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to load cached catalog: %w", err)
	}

	a.client = remote.New(remote.Options{
		BaseURL:    cfg.Remote.BaseURL,
		Timeout:    cfg.Remote.Timeout.Std(),
		Retries:    cfg.Remote.Retries,
		RetryDelay: cfg.Remote.RetryDelay.Std(),
		UserAgents: cfg.Remote.UserAgents,
		Logger:     logOut.Logger("remote"),
	})

	a.coord, err = catalog.New(catalog.Config{
		Fetcher:  a.client,
		Store:    db,
		View:     a.view,
		Logger:   logOut.Logger("catalog"),
		Language: cfg.Lang(),
		Notifier: a.events,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a.members = membership.New(db, a.view, logOut.Logger("membership"), a.events)
	return a, nil
}

// mustOpenApp opens the app or exits.
func mustOpenApp(ctx context.Context) *app {
	a, err := openApp(ctx)
	if err != nil {
		fatal("%v", err)
	}
	return a
}

// Close waits for pending membership writes, then closes the store.
func (a *app) Close() error {
	a.members.Wait()
	if n := a.members.Failures(); n > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %d membership changes could not be saved\n", n)
	}
	return a.db.Close()
}
