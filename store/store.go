// Package store holds the application state and reports every committed
// write by the path it changed.
package store

import (
	"sync"

	"rssagg/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var notifications = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "rssagg_store_notifications_total",
	Help: "Number of change notifications dispatched, by state path",
}, []string{"path"})

// Reaction is called synchronously after a write to path has been applied.
// The state must only be read through the argument. A reaction must not call
// Mutate, Read or Snapshot on the same store: the store lock is held while
// reactions run.
type Reaction func(path Path, state *models.State)

// Store wraps a state tree. All writes go through Mutate.
type Store struct {
	mu    sync.Mutex
	state models.State

	regMu     sync.RWMutex
	watchers  []Reaction
	reactions map[Path][]Reaction
}

// New starts observing initial. The store owns the value from here on.
func New(initial models.State) *Store {
	if initial.UI.SeenPosts == nil {
		initial.UI.SeenPosts = map[string]struct{}{}
	}
	return &Store{
		state:     initial,
		reactions: make(map[Path][]Reaction),
	}
}

// Watch registers a reaction for every path the store computes, including
// paths outside the Boundary.
func (s *Store) Watch(r Reaction) {
	s.regMu.Lock()
	defer s.regMu.Unlock()
	s.watchers = append(s.watchers, r)
}

// On registers a reaction for a single path. Paths that are never written
// simply never fire.
func (s *Store) On(path Path, r Reaction) {
	s.regMu.Lock()
	defer s.regMu.Unlock()
	s.reactions[path] = append(s.reactions[path], r)
}

// Mutate runs fn with exclusive write access. Each write made through tx is
// dispatched as soon as it is applied, in the order the writes happen.
func (s *Store) Mutate(fn func(tx *Tx)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&Tx{store: s})
}

// Read gives fn a consistent view of the state. fn must not keep references
// to slices or maps past its return.
func (s *Store) Read(fn func(state *models.State)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.state)
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() models.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.Clone()
}

func (s *Store) dispatch(path Path) {
	s.regMu.RLock()
	watchers := s.watchers
	reactions := s.reactions[path]
	s.regMu.RUnlock()

	notifications.WithLabelValues(string(path)).Inc()

	if len(watchers) == 0 && len(reactions) == 0 {
		log.WithFields(log.Fields{
			"path": path,
		}).Debug("No reactions for state change")
		return
	}

	for _, r := range watchers {
		r(path, &s.state)
	}
	for _, r := range reactions {
		r(path, &s.state)
	}
}
