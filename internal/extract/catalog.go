package extract

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/vadimfor/showdeck/internal/show"
)

const chartEdgesPath = "props.pageProps.pageData.chartTitles.edges"

// Catalog extracts the chart listing from a chart page. The result is empty,
// never nil, when the document cannot be parsed.
func (e *Extractor) Catalog(raw string) []show.Show {
	shows := []show.Show{}

	root, ok := e.parse("catalog", raw)
	if !ok {
		return shows
	}

	edges := root.Get(chartEdgesPath)
	if !edges.IsArray() {
		e.fail("catalog", raw, fmt.Errorf("missing %s", chartEdgesPath))
		return shows
	}

	edges.ForEach(func(_, edge gjson.Result) bool {
		sh, ok := catalogShow(edge)
		if !ok {
			e.dropped.Add(1)
			return true
		}
		shows = append(shows, sh)
		return true
	})

	if dropped := len(edges.Array()) - len(shows); dropped > 0 {
		e.logger.Printf("Warning: dropped %d chart entries without an id", dropped)
	}
	return shows
}

func catalogShow(edge gjson.Result) (show.Show, bool) {
	node := edge.Get("node")
	id := optString(node, "id")
	if id == nil || *id == "" {
		return show.Show{}, false
	}

	sh := show.Show{
		ID:          *id,
		Rank:        optInt(edge, "currentRank"),
		Image:       optString(node, "primaryImage.url"),
		Rating:      optFloat(node, "ratingsSummary.aggregateRating"),
		Votes:       optInt(node, "ratingsSummary.voteCount"),
		ReleaseDate: releaseDate(node, "releaseDate"),
		Plot:        optString(node, "plot.plotText.plainText"),
		Genres:      texts(node, "titleGenres.genres", "genre.text"),
		Episodes:    optInt(node, "episodes.episodes.total"),
	}
	if title := optString(node, "titleText.text"); title != nil {
		sh.Title = *title
	}
	sh.SetDefaults()
	return sh, true
}
