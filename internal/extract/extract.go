// Package extract turns catalog HTML documents into shows.
//
// Every page of the catalog site embeds its data as one JSON blob in a
// `<script id="__NEXT_DATA__">` element. The extractor locates that blob and
// reads three shapes out of it: the chart listing, search results, and the
// per-title detail page.
//
// Extraction never fails loudly. A document that cannot be parsed produces an
// empty result, a log line, and a bump of the failure counter. A field that is
// missing or has an unexpected type is simply left unset.
package extract

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

// Markers delimiting the embedded JSON blob.
const (
	StartMarker = `<script id="__NEXT_DATA__" type="application/json">`
	EndMarker   = `</script>`
)

// Sentinel errors returned by Blob.
var (
	ErrStartMarker = errors.New("embedded data start marker not found")
	ErrEndMarker   = errors.New("embedded data end marker not found")
	ErrInvalidJSON = errors.New("embedded data is not valid JSON")
)

// Stats counts what the extractor has seen.
type Stats struct {
	Documents int64 // documents handed to Catalog, Search or Detail
	Failures  int64 // documents that produced no usable data
	Dropped   int64 // entries skipped for lacking an identifier
}

// Extractor parses catalog documents. It is safe for concurrent use.
type Extractor struct {
	logger *log.Logger

	documents atomic.Int64
	failures  atomic.Int64
	dropped   atomic.Int64
}

// New creates an extractor that reports soft failures to logger.
// A nil logger writes to stderr.
func New(logger *log.Logger) *Extractor {
	if logger == nil {
		logger = log.New(os.Stderr, "[extract] ", log.LstdFlags)
	}
	return &Extractor{logger: logger}
}

// Stats returns a snapshot of the counters.
func (e *Extractor) Stats() Stats {
	return Stats{
		Documents: e.documents.Load(),
		Failures:  e.failures.Load(),
		Dropped:   e.dropped.Load(),
	}
}

// Blob returns the JSON text embedded in raw.
func Blob(raw string) (string, error) {
	start := strings.Index(raw, StartMarker)
	if start < 0 {
		return "", ErrStartMarker
	}
	rest := raw[start+len(StartMarker):]

	end := strings.Index(rest, EndMarker)
	if end < 0 {
		return "", ErrEndMarker
	}
	blob := rest[:end]

	if !gjson.Valid(blob) {
		return "", ErrInvalidJSON
	}
	return blob, nil
}

// parse locates the blob and counts the document. On failure it logs and
// returns false.
func (e *Extractor) parse(kind, raw string) (gjson.Result, bool) {
	e.documents.Add(1)

	blob, err := Blob(raw)
	if err != nil {
		e.fail(kind, raw, err)
		return gjson.Result{}, false
	}
	return gjson.Parse(blob), true
}

func (e *Extractor) fail(kind, raw string, err error) {
	e.failures.Add(1)
	if errors.Is(err, ErrStartMarker) {
		// Usually a challenge or error page rather than a format change.
		e.logger.Printf("Warning: %s document has no embedded data (page title %q): %v", kind, docTitle(raw), err)
		return
	}
	e.logger.Printf("Warning: %s document: %v", kind, err)
}

// docTitle returns the <title> text of an HTML document, or "" if it has none.
func docTitle(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// Optional accessors. Each returns nil when the path is missing, null, or
// holds a value of another type.

func optString(r gjson.Result, path string) *string {
	v := r.Get(path)
	if v.Type != gjson.String {
		return nil
	}
	s := v.Str
	return &s
}

func optInt(r gjson.Result, path string) *int {
	v := r.Get(path)
	if v.Type != gjson.Number {
		return nil
	}
	n := int(v.Int())
	return &n
}

func optFloat(r gjson.Result, path string) *float64 {
	v := r.Get(path)
	if v.Type != gjson.Number {
		return nil
	}
	f := v.Float()
	return &f
}

// releaseDate renders a {day, month, year} object as D/M/YYYY. Missing parts
// are left empty; a missing object yields nil.
func releaseDate(r gjson.Result, path string) *string {
	v := r.Get(path)
	if !v.IsObject() {
		return nil
	}
	s := fmt.Sprintf("%s/%s/%s", datePart(v.Get("day")), datePart(v.Get("month")), datePart(v.Get("year")))
	return &s
}

func datePart(v gjson.Result) string {
	switch v.Type {
	case gjson.Number:
		return v.Raw
	case gjson.String:
		return v.Str
	default:
		return ""
	}
}

// texts collects path (relative to each element) over an array, using "" for
// elements where it is missing. A missing array yields an empty list.
func texts(r gjson.Result, arrayPath, textPath string) []string {
	out := []string{}
	arr := r.Get(arrayPath)
	if !arr.IsArray() {
		return out
	}
	arr.ForEach(func(_, el gjson.Result) bool {
		v := el.Get(textPath)
		if v.Type == gjson.String {
			out = append(out, v.Str)
		} else {
			out = append(out, "")
		}
		return true
	})
	return out
}

// optTexts is texts for patch sources: a missing array yields nil, so the
// genres already known for a show are kept.
func optTexts(r gjson.Result, arrayPath, textPath string) []string {
	if !r.Get(arrayPath).IsArray() {
		return nil
	}
	return texts(r, arrayPath, textPath)
}
