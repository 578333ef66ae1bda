package show

import (
	"fmt"
	"strings"
)

// Collection names one of the two membership sets a user can put a show in.
type Collection string

const (
	// Favorites holds shows the user follows.
	Favorites Collection = "favorites"
	// Saved holds shows bookmarked for later.
	Saved Collection = "saved"
)

// Collections lists every collection in a stable order.
var Collections = []Collection{Favorites, Saved}

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	return c == Favorites || c == Saved
}

// Table returns the table backing c. Only valid collections reach SQL text.
func (c Collection) Table() (string, error) {
	if !c.Valid() {
		return "", fmt.Errorf("unknown collection %q", string(c))
	}
	return string(c), nil
}

// String implements fmt.Stringer.
func (c Collection) String() string {
	return string(c)
}

// ParseCollection accepts the collection name and a few CLI spellings.
func ParseCollection(s string) (Collection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "favorites", "favorite", "fav", "favs", "followed":
		return Favorites, nil
	case "saved", "save", "bookmarks":
		return Saved, nil
	default:
		return "", fmt.Errorf("unknown collection %q (want favorites or saved)", s)
	}
}
