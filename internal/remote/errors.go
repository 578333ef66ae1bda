package remote

import (
	"fmt"
	"strings"
)

// HTTPStatusError reports a non-2xx response.
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d fetching %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("HTTP %d fetching %s (location=%s)", e.StatusCode, e.URL, loc)
}

// Retryable reports whether the status is worth another attempt.
func (e *HTTPStatusError) Retryable() bool {
	return e.StatusCode >= 500
}

// BlockedError reports that the site answered with a bot challenge instead of
// the page. These are not retried; the same client would be challenged again.
type BlockedError struct {
	URL    string
	Reason string // e.g. "waf-challenge"
}

func (e *BlockedError) Error() string {
	if e == nil {
		return "blocked"
	}
	if strings.TrimSpace(e.Reason) == "" {
		return "blocked fetching " + e.URL
	}
	return "blocked fetching " + e.URL + ": " + strings.TrimSpace(e.Reason)
}
