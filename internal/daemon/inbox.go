package daemon

import (
	"path/filepath"
	"regexp"
	"strings"
)

// DocKind says how an inbox file is imported.
type DocKind int

const (
	// KindIgnored is anything that is not an HTML page.
	KindIgnored DocKind = iota
	// KindCatalog is a chart page, merged as a whole catalog.
	KindCatalog
	// KindDetail is a title page named after its show id, e.g. tt0903747.html.
	KindDetail
)

// String returns a human-readable representation of the kind.
func (k DocKind) String() string {
	switch k {
	case KindCatalog:
		return "catalog"
	case KindDetail:
		return "detail"
	default:
		return "ignored"
	}
}

var titleFileRE = regexp.MustCompile(`^(tt\d+)$`)

// Classify returns the kind of the inbox file at path and, for detail pages,
// the show id taken from its name.
func Classify(path string) (DocKind, string) {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return KindIgnored, ""
	}

	ext := strings.ToLower(filepath.Ext(base))
	if ext != ".html" && ext != ".htm" {
		return KindIgnored, ""
	}

	name := strings.TrimSuffix(base, filepath.Ext(base))
	if m := titleFileRE.FindStringSubmatch(name); m != nil {
		return KindDetail, m[1]
	}
	return KindCatalog, ""
}
