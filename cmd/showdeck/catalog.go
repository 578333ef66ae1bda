package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/vadimfor/showdeck/internal/catalog"
	"github.com/vadimfor/showdeck/internal/show"
	"github.com/vadimfor/showdeck/internal/ui"
	"github.com/vadimfor/showdeck/internal/view"
)

// signalContext is cancelled on Ctrl+C.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var refreshCmd = &cobra.Command{
	Use:     "refresh",
	GroupID: "catalog",
	Short:   "Load the popular series chart",
	Long: `Load the popular TV series chart into the local cache.

Without --force nothing is fetched when the cache already holds shows.
Favorites and saved shows are kept across refreshes.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")

		ctx, cancel := signalContext()
		defer cancel()

		a := mustOpenApp(ctx)
		defer a.Close()

		fmt.Printf("%s Loading chart (%s)...\n", ui.RenderAccent("🔄"), a.coord.Language().Name())

		var res catalog.RefreshResult
		var err error
		if force {
			res, err = a.coord.ForceRefresh(ctx)
		} else {
			res, err = a.coord.RefreshCatalog(ctx)
		}
		if err != nil {
			a.Close()
			fatal("refresh failed: %v", err)
		}

		if res.Skipped {
			fmt.Printf("%s Catalog already cached (%d shows). Use --force to reload.\n", ui.RenderPass("✓"), a.view.Len())
			return
		}
		fmt.Printf("%s Loaded %d shows in %v\n", ui.RenderPass("✓"), res.Written, res.Duration.Round(time.Millisecond))
		if res.Failed > 0 {
			fmt.Printf("%s %d shows could not be saved\n", ui.RenderWarn("⚠"), res.Failed)
		}
	},
}

var searchCmd = &cobra.Command{
	Use:     "search <query...>",
	GroupID: "catalog",
	Short:   "Search for series by title",
	Long: `Search for TV series and mini-series by title.

Every hit is completed from its detail page and added to the cache. Hits whose
detail page cannot be loaded are left out.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		query := strings.Join(args, " ")

		ctx, cancel := signalContext()
		defer cancel()

		a := mustOpenApp(ctx)
		defer a.Close()

		shows, err := a.coord.Search(ctx, query)
		if err != nil {
			a.Close()
			fatal("search failed: %v", err)
		}

		if len(shows) == 0 {
			fmt.Printf("No series found for %q\n", query)
			return
		}
		fmt.Printf("\n%s %d series found for %q\n\n", ui.RenderAccent("🔍"), len(shows), query)
		printShows(a.view, shows)
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	GroupID: "catalog",
	Short:   "List cached shows",
	Long: `List the cached shows.

--sort selects rank (default), release (newest first) or title.
--since keeps shows released on or after a date, e.g. 2020-01-01 or "last year".`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		sortFlag, _ := cmd.Flags().GetString("sort")
		since, _ := cmd.Flags().GetString("since")
		limit, _ := cmd.Flags().GetInt("limit")

		key, err := view.ParseSortKey(sortFlag)
		if err != nil {
			fatal("%v", err)
		}

		ctx, cancel := signalContext()
		defer cancel()

		a := mustOpenApp(ctx)
		defer a.Close()

		var shows []show.Show
		if since != "" {
			t, err := parseSince(since, time.Now())
			if err != nil {
				a.Close()
				fatal("%v", err)
			}
			shows = a.view.ReleasedSince(t)
			view.Sort(shows, key)
		} else {
			shows = a.view.Sorted(key)
		}

		if len(shows) == 0 {
			fmt.Printf("\n%s No shows cached. Run 'showdeck refresh' first.\n\n", ui.RenderWarn("⚠"))
			return
		}
		if limit > 0 && len(shows) > limit {
			shows = shows[:limit]
		}
		printShows(a.view, shows)
	},
}

var showCmd = &cobra.Command{
	Use:     "show <id>",
	GroupID: "catalog",
	Short:   "Show everything known about a series",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		enrich, _ := cmd.Flags().GetBool("enrich")
		id := args[0]

		ctx, cancel := signalContext()
		defer cancel()

		a := mustOpenApp(ctx)
		defer a.Close()

		sh, ok := a.view.Get(id)
		if !ok {
			a.Close()
			fatal("show %s is not cached (run 'showdeck refresh' or 'showdeck search' first)", id)
		}

		if enrich {
			enriched, err := a.coord.EnrichDetail(ctx, id)
			switch {
			case errors.Is(err, catalog.ErrNoDetail):
				fmt.Fprintf(os.Stderr, "Warning: no details found for %s\n", id)
			case err != nil:
				a.Close()
				fatal("failed to load details: %v", err)
			default:
				sh = enriched
			}
		}

		fmt.Print(ui.ShowDetail(sh, a.view.Has(show.Favorites, id), a.view.Has(show.Saved, id)))
		fmt.Println()
	},
}

// printShows prints one line per show with its membership marks.
func printShows(v *view.View, shows []show.Show) {
	for _, sh := range shows {
		fmt.Println(ui.ShowLine(sh, v.Has(show.Favorites, sh.ID), v.Has(show.Saved, sh.ID)))
	}
	fmt.Println()
}

// parseSince accepts an ISO date or a natural-language one like "last year".
func parseSince(text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	for _, layout := range []string{"2006-01-02", "2006"} {
		if t, err := time.Parse(layout, text); err == nil {
			return t, nil
		}
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(text, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q: %w", text, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not understand date %q", text)
	}
	return r.Time, nil
}

func init() {
	refreshCmd.Flags().BoolP("force", "f", false, "Reload even when shows are cached")

	listCmd.Flags().StringP("sort", "s", "rank", "Sort by rank, release or title")
	listCmd.Flags().String("since", "", "Only shows released on or after this date")
	listCmd.Flags().IntP("limit", "n", 0, "Show at most this many (0 = all)")

	showCmd.Flags().BoolP("enrich", "e", false, "Fetch the detail page first (trailer, seasons)")

	rootCmd.AddCommand(refreshCmd, searchCmd, listCmd, showCmd)
}
