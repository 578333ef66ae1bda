package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vadimfor/showdeck/internal/show"
	"github.com/vadimfor/showdeck/internal/view"
)

// Source is the read side of the view. *view.View implements it.
type Source interface {
	Len() int
	Loading() bool
	Get(id string) (show.Show, bool)
	Sorted(key view.SortKey) []show.Show
	Has(c show.Collection, id string) bool
	IDs(c show.Collection) []string
	Members(c show.Collection) []show.Show
}

// StatsData summarizes the view.
type StatsData struct {
	Total     int  `json:"total"`
	Favorites int  `json:"favorites"`
	Saved     int  `json:"saved"`
	Loading   bool `json:"loading"`
}

// ShowEntry is a show with its membership flags.
type ShowEntry struct {
	show.Show
	Favorite bool `json:"favorite"`
	Saved    bool `json:"saved"`
}

// Stats returns the current statistics.
func (s *Server) Stats() StatsData {
	return StatsData{
		Total:     s.source.Len(),
		Favorites: len(s.source.IDs(show.Favorites)),
		Saved:     len(s.source.IDs(show.Saved)),
		Loading:   s.source.Loading(),
	}
}

func (s *Server) statsMessage() Message {
	data, err := json.Marshal(s.Stats())
	if err != nil {
		s.logger.Printf("Failed to marshal stats: %v", err)
	}
	return Message{Type: MessageStats, Data: data}
}

func (s *Server) entries(shows []show.Show) []ShowEntry {
	out := make([]ShowEntry, len(shows))
	for i, sh := range shows {
		out[i] = ShowEntry{
			Show:     sh,
			Favorite: s.source.Has(show.Favorites, sh.ID),
			Saved:    s.source.Has(show.Saved, sh.ID),
		}
	}
	return out
}

// handleShows lists the catalog: /api/shows?sort=rank|release|title
func (s *Server) handleShows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	key, err := view.ParseSortKey(r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.entries(s.source.Sorted(key)))
}

// handleShow returns one show: /api/shows/{id}
func (s *Server) handleShow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/shows/"), "/")
	if id == "" {
		s.handleShows(w, r)
		return
	}

	sh, ok := s.source.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("show %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, s.entries([]show.Show{sh})[0])
}

// handleMembers lists a collection: /api/favorites, /api/saved
func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	c, err := show.ParseCollection(strings.TrimPrefix(r.URL.Path, "/api/"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.entries(s.source.Members(c)))
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"clients": s.ClientCount(),
		"shows":   s.source.Len(),
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleRoot returns basic server information
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>Showdeck Dashboard</title>
</head>
<body>
    <h1>Showdeck Dashboard</h1>
    <p>WebSocket endpoint: <code>ws://%s/ws</code></p>
    <p>Catalog: <a href="/api/shows">/api/shows</a> (sort=rank, release or title)</p>
    <p>Collections: <a href="/api/favorites">/api/favorites</a>, <a href="/api/saved">/api/saved</a></p>
    <p>Health check: <a href="/health">/health</a></p>
</body>
</html>`, r.Host)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
