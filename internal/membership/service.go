// Package membership flips favorites and saved flags.
//
// A toggle updates the view at once and persists in the background. Writes
// for one (collection, id) pair never overlap: while a write is running, any
// further toggle of the same pair just marks it dirty, and the writer runs
// again when it finishes. Each write looks at the view at the moment it runs
// and persists that state, so however fast the user toggles, the store ends
// up agreeing with the last flip.
//
// Failed writes are logged and counted but not rolled back in the view; the
// next reload from the store settles any difference.
package membership

import (
	"context"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vadimfor/showdeck/internal/events"
	"github.com/vadimfor/showdeck/internal/show"
	"github.com/vadimfor/showdeck/internal/view"
)

// writeTimeout bounds a single background write.
const writeTimeout = 30 * time.Second

// Store is the persistence the service writes to.
type Store interface {
	EnsureMembership(ctx context.Context, c show.Collection, sh *show.Show) error
	RemoveMembership(ctx context.Context, c show.Collection, id string) error
}

type key struct {
	c  show.Collection
	id string
}

type writer struct {
	dirty bool
}

// Service applies toggles to the view and persists them.
type Service struct {
	store    Store
	view     *view.View
	logger   *log.Logger
	notifier events.Notifier

	mu      sync.Mutex
	idle    *sync.Cond
	writers map[key]*writer

	writes   atomic.Int64
	failures atomic.Int64
}

// New creates a toggle service. A nil logger writes to stderr and a nil
// notifier discards events.
func New(store Store, v *view.View, logger *log.Logger, notifier events.Notifier) *Service {
	if logger == nil {
		logger = log.New(os.Stderr, "[membership] ", log.LstdFlags)
	}
	if notifier == nil {
		notifier = events.Nop{}
	}
	s := &Service{
		store:    store,
		view:     v,
		logger:   logger,
		notifier: notifier,
		writers:  make(map[key]*writer),
	}
	s.idle = sync.NewCond(&s.mu)
	return s
}

// ToggleFavorite flips whether sh is followed and returns the new state.
func (s *Service) ToggleFavorite(sh show.Show) bool {
	return s.Toggle(show.Favorites, sh)
}

// ToggleSave flips whether sh is bookmarked and returns the new state.
func (s *Service) ToggleSave(sh show.Show) bool {
	return s.Toggle(show.Saved, sh)
}

// Toggle flips the membership of sh in c. The view changes before Toggle
// returns; the store follows asynchronously. A show the view does not know
// yet is merged into it first.
func (s *Service) Toggle(c show.Collection, sh show.Show) bool {
	if !c.Valid() {
		s.logger.Printf("Warning: ignoring toggle for unknown collection %q", c)
		return false
	}
	if strings.TrimSpace(sh.ID) == "" {
		s.logger.Printf("Warning: ignoring %s toggle for a show without an id", c)
		return false
	}
	if _, ok := s.view.Get(sh.ID); !ok {
		sh.SetDefaults()
		s.view.MergeShows([]show.Show{sh})
	}

	member := s.view.Toggle(c, sh.ID)
	s.schedule(key{c: c, id: sh.ID})

	s.notifier.Publish(events.New(events.MembershipChanged, events.MembershipData{
		Collection: c,
		ID:         sh.ID,
		Member:     member,
	}))
	return member
}

// Wait blocks until every pending write has finished.
func (s *Service) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.writers) > 0 {
		s.idle.Wait()
	}
}

// Failures returns how many background writes have failed.
func (s *Service) Failures() int64 {
	return s.failures.Load()
}

// Writes returns how many background writes have run.
func (s *Service) Writes() int64 {
	return s.writes.Load()
}

// schedule starts a writer for k, or marks the running one dirty.
func (s *Service) schedule(k key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.writers[k]; ok {
		w.dirty = true
		return
	}
	s.writers[k] = &writer{}
	go s.run(k)
}

func (s *Service) run(k key) {
	for {
		s.write(k)

		s.mu.Lock()
		w := s.writers[k]
		if !w.dirty {
			delete(s.writers, k)
			if len(s.writers) == 0 {
				s.idle.Broadcast()
			}
			s.mu.Unlock()
			return
		}
		w.dirty = false
		s.mu.Unlock()
	}
}

// write persists the membership the view holds right now.
func (s *Service) write(k key) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	s.writes.Add(1)

	var err error
	if s.view.Has(k.c, k.id) {
		sh, ok := s.view.Get(k.id)
		if !ok {
			sh = show.Show{ID: k.id}
		}
		sh.SetDefaults()
		err = s.store.EnsureMembership(ctx, k.c, &sh)
	} else {
		err = s.store.RemoveMembership(ctx, k.c, k.id)
	}

	if err != nil {
		s.failures.Add(1)
		s.logger.Printf("Warning: failed to persist %s membership for %s: %v", k.c, k.id, err)
	}
}
