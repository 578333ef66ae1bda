package catalog

import (
	"context"
	"errors"

	"github.com/vadimfor/showdeck/internal/locale"
	"github.com/vadimfor/showdeck/internal/show"
	"github.com/vadimfor/showdeck/internal/store"
	"github.com/vadimfor/showdeck/internal/view"
)

// Errors returned by the coordinator.
var (
	// ErrNoShows means the catalog page yielded no shows at all.
	ErrNoShows = errors.New("catalog page contained no shows")

	// ErrUnknownShow means a detail operation named a show that is neither
	// in the view nor in the store.
	ErrUnknownShow = errors.New("unknown show")

	// ErrNoDetail means a detail page carried no title data.
	ErrNoDetail = errors.New("detail page contained no title data")
)

// Fetcher retrieves remote pages.
//
// remote.Client is the production implementation. Fetch returns the raw
// document body; the URL methods build addresses for the given page kinds.
type Fetcher interface {
	// Fetch downloads url, asking for content in lang.
	Fetch(ctx context.Context, url string, lang locale.Lang) (string, error)

	// ChartURL returns the popular-series chart address.
	ChartURL(lang locale.Lang) string

	// FindURL returns the search page address for query.
	FindURL(query string) string

	// TitleURL returns the detail page address for a show id.
	TitleURL(id string) string
}

// Store is the persistence the coordinator writes to and reloads from.
//
// store.DB is the production implementation.
type Store interface {
	view.Loader

	// UpsertShows writes a batch; per-record failures are reported, not returned.
	UpsertShows(ctx context.Context, shows []show.Show) store.UpsertResult

	// UpsertShow writes a single show with full-row replace.
	UpsertShow(ctx context.Context, sh *show.Show) error

	// GetShow returns a stored show or sql.ErrNoRows.
	GetShow(ctx context.Context, id string) (*show.Show, error)
}
