// Package events defines the change notifications published by the sync
// coordinator and the toggle service.
package events

import (
	"sync"
	"time"

	"github.com/vadimfor/showdeck/internal/show"
)

// Type names an event.
type Type string

const (
	ShowsMerged       Type = "shows_merged"
	ShowPatched       Type = "show_patched"
	SyncComplete      Type = "sync_complete"
	SyncFailed        Type = "sync_failed"
	MembershipChanged Type = "membership_changed"
)

// Event is one notification. Data holds one of the payload types below.
type Event struct {
	Type      Type        `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// ShowsMergedData lists the shows that were merged into the view.
type ShowsMergedData struct {
	Source string   `json:"source"` // "catalog", "search" or "import"
	IDs    []string `json:"ids"`
}

// ShowPatchedData carries the show after a detail patch.
type ShowPatchedData struct {
	Show show.Show `json:"show"`
}

// SyncData summarizes a finished refresh or search.
type SyncData struct {
	Operation string        `json:"operation"`
	Written   int           `json:"written"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// MembershipData reports a toggle.
type MembershipData struct {
	Collection show.Collection `json:"collection"`
	ID         string          `json:"id"`
	Member     bool            `json:"member"`
}

// Notifier receives events. Publish must not block for long.
type Notifier interface {
	Publish(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

// Publish calls f(e).
func (f NotifierFunc) Publish(e Event) { f(e) }

// Nop discards events.
type Nop struct{}

func (Nop) Publish(Event) {}

// New stamps an event with the current time.
func New(t Type, data interface{}) Event {
	return Event{Type: t, Timestamp: time.Now(), Data: data}
}

// Fanout forwards each event to every subscriber, in subscription order.
type Fanout struct {
	mu   sync.RWMutex
	subs []Notifier
}

// Subscribe adds n to the subscribers.
func (f *Fanout) Subscribe(n Notifier) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, n)
}

// Publish implements Notifier.
func (f *Fanout) Publish(e Event) {
	f.mu.RLock()
	subs := f.subs
	f.mu.RUnlock()

	for _, n := range subs {
		n.Publish(e)
	}
}
