// Package locale maps the user's display language to request headers.
package locale

import "strings"

// Lang is a supported display language.
type Lang string

const (
	English Lang = "en"
	Spanish Lang = "es"
	Russian Lang = "ru"
)

// Default is used when no language has been chosen.
const Default = English

// All lists the supported languages in menu order.
var All = []Lang{English, Spanish, Russian}

var names = map[Lang]string{
	English: "English",
	Spanish: "Español",
	Russian: "Русский",
}

var tags = map[Lang]string{
	English: "en-US",
	Spanish: "es-ES",
	Russian: "ru-RU",
}

// Parse accepts a language code or a full tag ("es", "es-ES", "ES_es").
// Unknown input falls back to Default with ok=false.
func Parse(s string) (Lang, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexAny(s, "-_"); i >= 0 {
		s = s[:i]
	}
	l := Lang(s)
	if _, known := tags[l]; !known {
		return Default, false
	}
	return l, true
}

// Valid reports whether l is supported.
func (l Lang) Valid() bool {
	_, ok := tags[l]
	return ok
}

// Tag returns the region tag, e.g. "es-ES".
func (l Lang) Tag() string {
	if t, ok := tags[l]; ok {
		return t
	}
	return tags[Default]
}

// AcceptLanguage returns the Accept-Language header value for l.
func (l Lang) AcceptLanguage() string {
	return l.Tag() + "," + string(l.normalize()) + ";q=0.9"
}

// Name returns the language's own name for menus.
func (l Lang) Name() string {
	return names[l.normalize()]
}

func (l Lang) String() string {
	return string(l.normalize())
}

func (l Lang) normalize() Lang {
	if l.Valid() {
		return l
	}
	return Default
}
