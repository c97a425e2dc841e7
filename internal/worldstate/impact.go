package worldstate

import (
	"sort"
	"time"

	"github.com/fyrsmithlabs/scenariod/internal/scenario"
)

// Impact describes the projected blast radius of a status change.
type Impact struct {
	// AffectedEntities lists downstream entity ids, sorted, source excluded.
	AffectedEntities []string `json:"affected_entities"`

	// CriticalPaths lists dependency chains that end in a critical entity.
	CriticalPaths [][]string `json:"critical_paths,omitempty"`

	// Severity grades the overall impact.
	Severity scenario.Severity `json:"severity"`

	// EstimatedRecovery is a coarse projection of time to restore.
	EstimatedRecovery time.Duration `json:"estimated_recovery"`
}

// ComputeCascadingImpact walks the dependency edges from the given entity
// up to maxDepth hops and reports what would be dragged down by the status
// change. The computation is read-only; pair it with ApplyImpact to commit.
func (s *Store) ComputeCascadingImpact(entityID string, status scenario.EntityStatus, maxDepth int) Impact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	impact := Impact{Severity: scenario.SeverityLow}
	if _, ok := s.entities[entityID]; !ok || maxDepth <= 0 {
		return impact
	}
	if !status.Impaired() && status != scenario.EntityDegraded && status != scenario.EntityIsolated {
		// returning to active drags nothing down
		return impact
	}

	visited := map[string]bool{entityID: true}
	var affected []string
	var criticalPaths [][]string

	type node struct {
		id    string
		depth int
		path  []string
	}
	queue := []node{{id: entityID, depth: 0, path: []string{entityID}}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		for _, dep := range s.deps[cur.id] {
			if visited[dep] {
				continue
			}
			visited[dep] = true
			path := append(append([]string{}, cur.path...), dep)
			affected = append(affected, dep)
			if e, ok := s.entities[dep]; ok && e.Critical {
				criticalPaths = append(criticalPaths, path)
			}
			queue = append(queue, node{id: dep, depth: cur.depth + 1, path: path})
		}
	}

	sort.Strings(affected)
	impact.AffectedEntities = affected
	impact.CriticalPaths = criticalPaths
	impact.Severity = impactSeverity(len(affected), len(criticalPaths), status)
	impact.EstimatedRecovery = estimateRecovery(len(affected), status)
	return impact
}

func impactSeverity(affected, criticalPaths int, status scenario.EntityStatus) scenario.Severity {
	switch {
	case criticalPaths > 0 && (status == scenario.EntityCompromised || status == scenario.EntityEncrypted):
		return scenario.SeverityCritical
	case criticalPaths > 0:
		return scenario.SeverityHigh
	case affected > 2:
		return scenario.SeverityHigh
	case affected > 0:
		return scenario.SeverityMedium
	default:
		return scenario.SeverityLow
	}
}

func estimateRecovery(affected int, status scenario.EntityStatus) time.Duration {
	base := 2 * time.Hour
	if status == scenario.EntityEncrypted {
		base = 12 * time.Hour
	}
	return base + time.Duration(affected)*time.Hour
}
