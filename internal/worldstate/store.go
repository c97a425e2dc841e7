// Package worldstate holds the entity graph a scenario run mutates.
//
// The store serves read-only snapshots to the pipeline and serializes all
// mutations per entity key, so concurrent scenario runs sharing one store
// never observe interleaved partial updates — including cascading-impact
// updates that touch several entities at once.
package worldstate

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/scenariod/internal/scenario"
)

// ErrUnknownEntity reports an update against an id the store does not hold.
var ErrUnknownEntity = fmt.Errorf("worldstate: unknown entity")

// Change records one applied status mutation for the store's history.
type Change struct {
	EntityID  string                `json:"entity_id"`
	From      scenario.EntityStatus `json:"from"`
	To        scenario.EntityStatus `json:"to"`
	CausedBy  string                `json:"caused_by"`
	AppliedAt time.Time             `json:"applied_at"`
}

// Store is a thread-safe entity store with a static dependency edge set.
type Store struct {
	mu       sync.RWMutex
	entities map[string]scenario.Entity
	history  []Change

	// deps maps an entity id to the ids that depend on it. Cascades
	// propagate along these edges.
	deps map[string][]string

	// keyLocks serializes mutations per entity id across goroutines.
	keyLocks sync.Map

	logger *zap.Logger
}

// NewStore creates a store over the given entities and dependency edges.
// deps may be nil for a flat topology.
func NewStore(entities []scenario.Entity, deps map[string][]string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := make(map[string]scenario.Entity, len(entities))
	for _, e := range entities {
		m[e.ID] = e
	}
	return &Store{
		entities: m,
		deps:     deps,
		logger:   logger,
	}
}

// Snapshot returns a read-only copy of the current world state.
func (s *Store) Snapshot() scenario.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(scenario.Snapshot, len(s.entities))
	for id, e := range s.entities {
		snap[id] = e
	}
	return snap
}

// UpdateStatus mutates a single entity's status. The mutation is serialized
// on the entity's key lock.
func (s *Store) UpdateStatus(entityID string, status scenario.EntityStatus, causedBy string) error {
	unlock := s.lockKeys([]string{entityID})
	defer unlock()
	return s.apply(entityID, status, causedBy)
}

// ApplyImpact applies a previously computed cascading impact as one unit:
// the source entity plus every affected entity change status while all
// involved key locks are held, so no reader of UpdateStatus interleaves a
// partial cascade.
func (s *Store) ApplyImpact(entityID string, status scenario.EntityStatus, impact Impact, causedBy string) error {
	keys := append([]string{entityID}, impact.AffectedEntities...)
	unlock := s.lockKeys(keys)
	defer unlock()

	if err := s.apply(entityID, status, causedBy); err != nil {
		return err
	}
	for _, id := range impact.AffectedEntities {
		// dependents degrade rather than copy the source status
		if err := s.apply(id, scenario.EntityDegraded, "cascade:"+entityID); err != nil {
			return err
		}
	}
	return nil
}

// History returns a copy of all applied changes, oldest first.
func (s *Store) History() []Change {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Change, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Store) apply(entityID string, status scenario.EntityStatus, causedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[entityID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, entityID)
	}
	if e.Status == status {
		return nil
	}

	s.history = append(s.history, Change{
		EntityID:  entityID,
		From:      e.Status,
		To:        status,
		CausedBy:  causedBy,
		AppliedAt: time.Now().UTC(),
	})
	e.Status = status
	s.entities[entityID] = e

	s.logger.Debug("entity status changed",
		zap.String("entity_id", entityID),
		zap.String("status", string(status)),
		zap.String("caused_by", causedBy))
	return nil
}

// lockKeys acquires per-key mutexes in sorted order (deduplicated) and
// returns the matching unlock function. Sorted acquisition keeps two
// overlapping cascades from deadlocking.
func (s *Store) lockKeys(ids []string) func() {
	uniq := map[string]bool{}
	for _, id := range ids {
		uniq[id] = true
	}
	keys := make([]string, 0, len(uniq))
	for id := range uniq {
		keys = append(keys, id)
	}
	sort.Strings(keys)

	locked := make([]*sync.Mutex, 0, len(keys))
	for _, id := range keys {
		v, _ := s.keyLocks.LoadOrStore(id, &sync.Mutex{})
		mu := v.(*sync.Mutex)
		mu.Lock()
		locked = append(locked, mu)
	}
	return func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].Unlock()
		}
	}
}
