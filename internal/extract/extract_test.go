package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vadimfor/showdeck/internal/show"
)

// page wraps a JSON blob the way the catalog site embeds it.
func page(title, blob string) string {
	return "<html><head><title>" + title + "</title></head><body>" +
		StartMarker + blob + EndMarker +
		"<script>window.x = 1;</script></body></html>"
}

func quietExtractor() *Extractor {
	return New(log.New(io.Discard, "", 0))
}

const chartBlob = `{"props":{"pageProps":{"pageData":{"chartTitles":{"edges":[
	{"currentRank":1,"node":{
		"id":"tt0903747",
		"titleText":{"text":"Breaking Bad"},
		"releaseDate":{"day":20,"month":1,"year":2008},
		"primaryImage":{"url":"https://img/bb.jpg"},
		"ratingsSummary":{"aggregateRating":9.5,"voteCount":2100000},
		"titleGenres":{"genres":[{"genre":{"text":"Crime"}},{"genre":{"text":"Drama"}},{"genre":{}}]},
		"plot":{"plotText":{"plainText":"A chemist turns to crime."}},
		"episodes":{"episodes":{"total":62}}
	}},
	{"currentRank":2,"node":{
		"id":"tt7366338",
		"titleText":{"text":"Chernobyl"},
		"releaseDate":{"year":2019}
	}},
	{"currentRank":3,"node":{"titleText":{"text":"no id"}}},
	{"node":{"id":"tt9999999"}}
]}}}}}`

func TestBlob(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{"found", page("x", `{"a":1}`), `{"a":1}`, nil},
		{"no start", "<html><title>Blocked</title></html>", "", ErrStartMarker},
		{"no end", "<html>" + StartMarker + `{"a":1}`, "", ErrEndMarker},
		{"bad json", page("x", `{"a":`), "", ErrInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Blob(tt.raw)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Blob() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Blob() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCatalog(t *testing.T) {
	e := quietExtractor()
	shows := e.Catalog(page("Top TV", chartBlob))

	want := []show.Show{
		{
			ID:          "tt0903747",
			Rank:        show.Ptr(1),
			Title:       "Breaking Bad",
			Image:       show.Ptr("https://img/bb.jpg"),
			Rating:      show.Ptr(9.5),
			Votes:       show.Ptr(2100000),
			ReleaseDate: show.Ptr("20/1/2008"),
			Plot:        show.Ptr("A chemist turns to crime."),
			Genres:      []string{"Crime", "Drama", ""},
			Episodes:    show.Ptr(62),
		},
		{
			ID:          "tt7366338",
			Rank:        show.Ptr(2),
			Title:       "Chernobyl",
			ReleaseDate: show.Ptr("//2019"),
			Genres:      []string{},
		},
		{
			ID:     "tt9999999",
			Title:  show.UnknownTitle,
			Genres: []string{},
		},
	}
	if diff := cmp.Diff(want, shows); diff != "" {
		t.Errorf("Catalog() mismatch (-want +got):\n%s", diff)
	}

	stats := e.Stats()
	if stats.Documents != 1 || stats.Failures != 0 || stats.Dropped != 1 {
		t.Errorf("Stats() = %+v, want 1 document, 0 failures, 1 dropped", stats)
	}
}

// A node without ratingsSummary still yields a show with the other fields intact.
func TestCatalog_PartialPaths(t *testing.T) {
	blob := `{"props":{"pageProps":{"pageData":{"chartTitles":{"edges":[
		{"currentRank":7,"node":{"id":"tt1","titleText":{"text":"Partial"},
		 "ratingsSummary":null,"plot":{"plotText":{"plainText":"Still here."}},
		 "episodes":{"episodes":"many"}}}
	]}}}}}`

	shows := quietExtractor().Catalog(page("x", blob))
	if len(shows) != 1 {
		t.Fatalf("Catalog() returned %d shows, want 1", len(shows))
	}
	sh := shows[0]
	if sh.Rating != nil || sh.Votes != nil {
		t.Errorf("Rating, Votes = %v, %v; want nil", sh.Rating, sh.Votes)
	}
	if sh.Episodes != nil {
		t.Errorf("Episodes = %v for a non-numeric total, want nil", *sh.Episodes)
	}
	if sh.Plot == nil || *sh.Plot != "Still here." {
		t.Errorf("Plot = %v, want \"Still here.\"", sh.Plot)
	}
	if sh.Rank == nil || *sh.Rank != 7 {
		t.Errorf("Rank = %v, want 7", sh.Rank)
	}
}

func TestCatalog_SoftFailure(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty document", ""},
		{"challenge page", "<html><head><title>Verify you are human</title></head></html>"},
		{"truncated", "<html>" + StartMarker + `{"props":`},
		{"malformed json", page("x", `{"props":{`)},
		{"wrong shape", page("x", `{"props":{"pageProps":{}}}`)},
		{"edges not an array", page("x", `{"props":{"pageProps":{"pageData":{"chartTitles":{"edges":{}}}}}}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			e := New(log.New(&buf, "", 0))

			shows := e.Catalog(tt.raw)
			if shows == nil || len(shows) != 0 {
				t.Errorf("Catalog() = %#v, want empty non-nil list", shows)
			}
			if got := e.Stats().Failures; got != 1 {
				t.Errorf("Failures = %d, want 1", got)
			}
			if buf.Len() == 0 {
				t.Error("soft failure should be logged")
			}
		})
	}
}

func TestCatalog_LogsPageTitleWhenMarkerMissing(t *testing.T) {
	var buf bytes.Buffer
	e := New(log.New(&buf, "", 0))

	e.Catalog("<html><head><title> Access Denied </title></head><body></body></html>")

	if !strings.Contains(buf.String(), `"Access Denied"`) {
		t.Errorf("log = %q, want it to mention the page title", buf.String())
	}
}

const searchBlob = `{"props":{"pageProps":{"titleResults":{"results":[
	{"id":"tt0903747","imageType":"tvSeries","titleNameText":"Breaking Bad",
	 "titlePosterImageModel":{"url":"https://img/bb.jpg"},"titleReleaseText":"2008–2013",
	 "titleTypeText":"TV Series","topCredits":["Bryan Cranston","Aaron Paul"]},
	{"id":"tt1","imageType":"movie","titleNameText":"A Film"},
	{"id":"tt7366338","imageType":"tvMiniSeries","titleNameText":"Chernobyl","titleReleaseText":2019},
	{"imageType":"tvSeries","titleNameText":"No id"}
]}}}}`

func TestSearch(t *testing.T) {
	e := quietExtractor()
	hits := e.Search(page("Find", searchBlob))

	want := []SearchHit{
		{
			ID:          "tt0903747",
			ImageType:   "tvSeries",
			Title:       "Breaking Bad",
			PosterURL:   show.Ptr("https://img/bb.jpg"),
			ReleaseText: "2008–2013",
			TypeText:    "TV Series",
			TopCredits:  []string{"Bryan Cranston", "Aaron Paul"},
		},
		{
			ID:          "tt7366338",
			ImageType:   "tvMiniSeries",
			Title:       "Chernobyl",
			ReleaseText: "2019",
			TopCredits:  []string{},
		},
	}
	if diff := cmp.Diff(want, hits); diff != "" {
		t.Errorf("Search() mismatch (-want +got):\n%s", diff)
	}
}

func TestSearch_SoftFailure(t *testing.T) {
	e := quietExtractor()
	if hits := e.Search("not html at all"); hits == nil || len(hits) != 0 {
		t.Errorf("Search() = %#v, want empty non-nil list", hits)
	}
}

const detailBlob = `{"props":{"pageProps":{
	"aboveTheFoldData":{
		"titleText":{"text":"Chernobyl"},
		"meterRanking":{"currentRank":12},
		"primaryImage":{"url":"https://img/ch.jpg"},
		"ratingsSummary":{"aggregateRating":9.3,"voteCount":900000},
		"releaseDate":{"day":6,"month":5,"year":2019},
		"genres":{"genres":[{"text":"Drama"},{"text":"History"}]},
		"primaryVideos":{"edges":[{"node":{"playbackURLs":[{"url":"https://video/ch.mp4"}]}}]}
	},
	"mainColumnData":{"episodes":{"episodes":{"total":5},"seasons":[{"value":"1"}]}}
}}}`

func TestDetail(t *testing.T) {
	d, ok := quietExtractor().Detail(page("Chernobyl", detailBlob))
	if !ok {
		t.Fatal("Detail() ok = false, want true")
	}

	want := Detail{
		Rank:        show.Ptr(12),
		Title:       show.Ptr("Chernobyl"),
		Image:       show.Ptr("https://img/ch.jpg"),
		Rating:      show.Ptr(9.3),
		Votes:       show.Ptr(900000),
		ReleaseDate: show.Ptr("6/5/2019"),
		Genres:      []string{"Drama", "History"},
		Episodes:    show.Ptr(5),
		Seasons:     show.Ptr(1),
		Trailer:     show.Ptr("https://video/ch.mp4"),
	}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("Detail() mismatch (-want +got):\n%s", diff)
	}
}

func TestDetail_ZeroEpisodesIsAbsent(t *testing.T) {
	blob := `{"props":{"pageProps":{"aboveTheFoldData":{},"mainColumnData":{"episodes":{"episodes":{"total":0},"seasons":[]}}}}}`
	d, ok := quietExtractor().Detail(page("x", blob))
	if !ok {
		t.Fatal("Detail() ok = false, want true")
	}
	if d.Episodes != nil || d.Trailer != nil {
		t.Errorf("Episodes, Trailer = %v, %v; want both nil", d.Episodes, d.Trailer)
	}
	// An empty season list is still a count.
	if d.Seasons == nil || *d.Seasons != 0 {
		t.Errorf("Seasons = %v, want 0", d.Seasons)
	}
}

func TestDetail_MissingGenresIsAbsent(t *testing.T) {
	blob := `{"props":{"pageProps":{"aboveTheFoldData":{"titleText":{"text":"x"}}}}}`
	d, ok := quietExtractor().Detail(page("x", blob))
	if !ok {
		t.Fatal("Detail() ok = false, want true")
	}
	if d.Genres != nil {
		t.Errorf("Genres = %#v, want nil", d.Genres)
	}
	if d.Seasons != nil {
		t.Errorf("Seasons = %v, want nil without an episode guide", d.Seasons)
	}

	sh := show.Show{ID: "tt1", Title: "x", Genres: []string{"Comedy"}}
	d.Patch().ApplyTo(&sh)
	if diff := cmp.Diff([]string{"Comedy"}, sh.Genres); diff != "" {
		t.Errorf("Patch() changed genres (-want +got):\n%s", diff)
	}
}

func TestDetail_MissingAboveTheFold(t *testing.T) {
	e := quietExtractor()
	if _, ok := e.Detail(page("x", `{"props":{"pageProps":{"mainColumnData":{}}}}`)); ok {
		t.Error("Detail() ok = true for a page without title data")
	}
	if got := e.Stats().Failures; got != 1 {
		t.Errorf("Failures = %d, want 1", got)
	}
}

func TestDetail_ShowFor(t *testing.T) {
	hit := SearchHit{ID: "tt1", Title: "Hit Title", PosterURL: show.Ptr("https://img/poster.jpg")}
	d := Detail{
		Title:   show.Ptr("Localized"),
		Rating:  show.Ptr(6.5),
		Plot:    show.Ptr(""),
		Seasons: show.Ptr(3),
		Trailer: show.Ptr("https://video/hit.mp4"),
	}

	got := d.ShowFor(hit)
	want := show.Show{
		ID:      "tt1",
		Title:   "Hit Title",
		Image:   show.Ptr("https://img/poster.jpg"),
		Rating:  show.Ptr(6.5),
		Plot:    show.Ptr(show.NoPlot),
		Genres:  []string{},
		Seasons: show.Ptr(3),
		Trailer: show.Ptr("https://video/hit.mp4"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ShowFor() mismatch (-want +got):\n%s", diff)
	}
}

func TestDetail_PatchKeepsTitle(t *testing.T) {
	d := Detail{Title: show.Ptr("Localized"), Trailer: show.Ptr("https://video/1.mp4")}
	sh := show.Show{ID: "tt1", Title: "Original"}
	d.Patch().ApplyTo(&sh)

	if sh.Title != "Original" {
		t.Errorf("Title = %q, want Original", sh.Title)
	}
	if sh.Trailer == nil || *sh.Trailer != "https://video/1.mp4" {
		t.Errorf("Trailer = %v, want patched", sh.Trailer)
	}
}

func ExampleExtractor_Catalog() {
	raw := page("Top TV", `{"props":{"pageProps":{"pageData":{"chartTitles":{"edges":[
		{"currentRank":1,"node":{"id":"tt0903747","titleText":{"text":"Breaking Bad"}}}
	]}}}}}`)

	for _, sh := range New(log.New(io.Discard, "", 0)).Catalog(raw) {
		fmt.Println(*sh.Rank, sh.ID, sh.Title)
	}
	// Output: 1 tt0903747 Breaking Bad
}
