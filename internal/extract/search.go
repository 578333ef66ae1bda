package extract

import (
	"fmt"

	"github.com/tidwall/gjson"
)

const searchResultsPath = "props.pageProps.titleResults.results"

// Only series results are kept; films and episodes are ignored.
var seriesTypes = map[string]bool{
	"tvSeries":     true,
	"tvMiniSeries": true,
}

// SearchHit is one series result from a search page. It carries just enough
// to fetch and label the title's detail page.
type SearchHit struct {
	ID          string   `json:"id"`
	ImageType   string   `json:"imageType"`
	Title       string   `json:"titleNameText"`
	PosterURL   *string  `json:"titlePosterImageModel_url,omitempty"`
	ReleaseText string   `json:"titleReleaseText"`
	TypeText    string   `json:"titleTypeText"`
	TopCredits  []string `json:"topCredits"`
}

// Search extracts series hits from a search page, in page order.
func (e *Extractor) Search(raw string) []SearchHit {
	hits := []SearchHit{}

	root, ok := e.parse("search", raw)
	if !ok {
		return hits
	}

	results := root.Get(searchResultsPath)
	if !results.IsArray() {
		e.fail("search", raw, fmt.Errorf("missing %s", searchResultsPath))
		return hits
	}

	results.ForEach(func(_, r gjson.Result) bool {
		if !seriesTypes[r.Get("imageType").String()] {
			return true
		}
		hit, ok := searchHit(r)
		if !ok {
			e.dropped.Add(1)
			return true
		}
		hits = append(hits, hit)
		return true
	})
	return hits
}

func searchHit(r gjson.Result) (SearchHit, bool) {
	id := optString(r, "id")
	if id == nil || *id == "" {
		return SearchHit{}, false
	}

	hit := SearchHit{
		ID:         *id,
		ImageType:  r.Get("imageType").String(),
		Title:      r.Get("titleNameText").String(),
		PosterURL:  optString(r, "titlePosterImageModel.url"),
		TypeText:   r.Get("titleTypeText").String(),
		TopCredits: []string{},
	}

	// The release text is usually a year range string but some pages send a bare number.
	if rt := r.Get("titleReleaseText"); rt.Exists() && rt.Type != gjson.Null {
		hit.ReleaseText = rt.String()
	}

	r.Get("topCredits").ForEach(func(_, c gjson.Result) bool {
		hit.TopCredits = append(hit.TopCredits, c.String())
		return true
	})
	return hit, true
}
