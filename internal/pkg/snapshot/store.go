// Package snapshot holds the one shared piece of state in the service: the
// most recently published comparison snapshot.
package snapshot

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Vodeneev/linecompare/internal/pkg/models"
)

// Store publishes immutable snapshots through a single atomic pointer swap.
// Readers never block and never see a snapshot being built.
type Store struct {
	current atomic.Pointer[models.Snapshot]

	subMu sync.Mutex
	subs  map[chan *models.Snapshot]struct{}
}

// NewStore returns a store holding an empty snapshot, so Load never returns nil.
func NewStore() *Store {
	s := &Store{subs: make(map[chan *models.Snapshot]struct{})}
	s.current.Store(&models.Snapshot{})
	return s
}

// Load returns the most recently published snapshot. Callers must treat it as read-only.
func (s *Store) Load() *models.Snapshot {
	return s.current.Load()
}

// Publish replaces the current snapshot and notifies subscribers.
// snap must be fully built; it must not be modified afterwards.
func (s *Store) Publish(snap *models.Snapshot) {
	if snap == nil {
		return
	}
	s.current.Store(snap)

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		// Subscribers only care about the latest snapshot: replace an
		// unread one instead of blocking the poller.
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// Subscribe returns a channel receiving every published snapshot (latest wins
// for slow readers) and a function that unsubscribes and closes it.
func (s *Store) Subscribe() (<-chan *models.Snapshot, func()) {
	ch := make(chan *models.Snapshot, 1)

	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, ch)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

// EventsByName returns the current events whose team names contain query
// (case-insensitive).
func (s *Store) EventsByName(query string) []models.Event {
	q := strings.ToLower(strings.TrimSpace(query))
	snap := s.Load()
	if q == "" {
		return nil
	}
	out := make([]models.Event, 0)
	for _, ev := range snap.Events {
		t1 := strings.ToLower(ev.Team1)
		t2 := strings.ToLower(ev.Team2)
		if strings.Contains(t1, q) || strings.Contains(t2, q) ||
			strings.Contains(t1+" vs "+t2, q) || strings.Contains(t1+" - "+t2, q) {
			out = append(out, ev)
		}
	}
	return out
}
