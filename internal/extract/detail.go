package extract

import (
	"fmt"

	"github.com/vadimfor/showdeck/internal/show"
)

const (
	abovePath = "props.pageProps.aboveTheFoldData"
	mainPath  = "props.pageProps.mainColumnData"
)

// Detail holds the fields read from a title's detail page. Unset fields are nil.
type Detail struct {
	Rank        *int
	Title       *string
	Image       *string
	Rating      *float64
	Votes       *int
	ReleaseDate *string
	Plot        *string
	Genres      []string
	Episodes    *int
	Seasons     *int
	Trailer     *string
}

// Detail extracts a title detail page. ok is false when the page carries no
// title data at all.
func (e *Extractor) Detail(raw string) (Detail, bool) {
	root, ok := e.parse("detail", raw)
	if !ok {
		return Detail{}, false
	}

	above := root.Get(abovePath)
	if !above.IsObject() {
		e.fail("detail", raw, fmt.Errorf("missing %s", abovePath))
		return Detail{}, false
	}
	main := root.Get(mainPath)

	d := Detail{
		Rank:        optInt(above, "meterRanking.currentRank"),
		Title:       optString(above, "titleText.text"),
		Image:       optString(above, "primaryImage.url"),
		Rating:      optFloat(above, "ratingsSummary.aggregateRating"),
		Votes:       optInt(above, "ratingsSummary.voteCount"),
		ReleaseDate: releaseDate(above, "releaseDate"),
		Plot:        optString(above, "plot.plotText.plainText"),
		Genres:      optTexts(above, "genres.genres", "text"),
		Trailer:     optString(above, "primaryVideos.edges.0.node.playbackURLs.0.url"),
	}

	// Zero episodes means the page has no episode guide.
	if n := optInt(main, "episodes.episodes.total"); n != nil && *n > 0 {
		d.Episodes = n
	}
	if seasons := main.Get("episodes.seasons"); seasons.IsArray() {
		n := len(seasons.Array())
		d.Seasons = &n
	}
	return d, true
}

// Patch converts d into a patch for a show that is already known.
// The title is left out so a localized page does not rename the show.
func (d Detail) Patch() show.Patch {
	return show.Patch{
		Rank:        d.Rank,
		Image:       d.Image,
		Rating:      d.Rating,
		Votes:       d.Votes,
		ReleaseDate: d.ReleaseDate,
		Plot:        d.Plot,
		Genres:      d.Genres,
		Episodes:    d.Episodes,
		Seasons:     d.Seasons,
		Trailer:     d.Trailer,
	}
}

// ShowFor builds the show for a search hit from its detail page. The title
// comes from the hit; a missing or empty plot becomes show.NoPlot.
func (d Detail) ShowFor(hit SearchHit) show.Show {
	sh := show.Show{
		ID:          hit.ID,
		Title:       hit.Title,
		Rank:        d.Rank,
		Image:       d.Image,
		Rating:      d.Rating,
		Votes:       d.Votes,
		ReleaseDate: d.ReleaseDate,
		Plot:        d.Plot,
		Genres:      d.Genres,
		Episodes:    d.Episodes,
		Seasons:     d.Seasons,
		Trailer:     d.Trailer,
	}
	if sh.Title == "" && d.Title != nil {
		sh.Title = *d.Title
	}
	if sh.Image == nil {
		sh.Image = hit.PosterURL
	}
	if sh.Plot == nil || *sh.Plot == "" {
		sh.Plot = show.Ptr(show.NoPlot)
	}
	sh.SetDefaults()
	return sh
}
