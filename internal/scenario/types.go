package scenario

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Phase represents a discrete stage of scenario progression.
// Transitions between phases are gated by the FSM in internal/phase.
type Phase string

const (
	// PhaseNormal is baseline operations; every scenario starts here.
	PhaseNormal Phase = "normal"

	// PhaseInitialAccess covers the first foothold events.
	PhaseInitialAccess Phase = "initial_access"

	// PhaseEscalation covers privilege escalation and persistence.
	PhaseEscalation Phase = "escalation"

	// PhaseLateral covers lateral movement between entities.
	PhaseLateral Phase = "lateral_movement"

	// PhaseExfiltration covers data staging and exfiltration.
	PhaseExfiltration Phase = "exfiltration"

	// PhaseContainment covers defensive isolation and mitigation.
	PhaseContainment Phase = "containment"

	// PhaseRecovery covers restoration and post-incident cleanup.
	PhaseRecovery Phase = "recovery"
)

// AllPhases returns every phase in canonical forward order.
func AllPhases() []Phase {
	return []Phase{
		PhaseNormal,
		PhaseInitialAccess,
		PhaseEscalation,
		PhaseLateral,
		PhaseExfiltration,
		PhaseContainment,
		PhaseRecovery,
	}
}

// Valid reports whether p is a member of the closed phase set.
func (p Phase) Valid() bool {
	for _, known := range AllPhases() {
		if p == known {
			return true
		}
	}
	return false
}

// Severity indicates how serious an inject is for the simulated defenders.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity level.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// InjectStatus tracks an inject through its draft lifecycle.
type InjectStatus string

const (
	// StatusDraft marks an inject proposal not yet accepted.
	StatusDraft InjectStatus = "draft"

	// StatusAccepted marks an inject appended to the scenario timeline.
	StatusAccepted InjectStatus = "accepted"
)

// Modality describes the delivery channel of an inject.
type Modality string

const (
	ModalityEmail    Modality = "email"
	ModalityAlert    Modality = "alert"
	ModalityPhone    Modality = "phone"
	ModalityTicket   Modality = "ticket"
	ModalityNewsItem Modality = "news"
)

// Inject is a single timestamped narrative event within a scenario.
//
// Injects are created as drafts by the pipeline's Draft stage and promoted
// to accepted by Commit. ForceAccepted marks injects that exhausted the
// refine budget and were accepted despite a failing verdict.
type Inject struct {
	ID               string       `json:"id"`
	TimeOffset       string       `json:"time_offset"`
	Phase            Phase        `json:"phase"`
	Source           string       `json:"source"`
	Target           string       `json:"target"`
	Modality         Modality     `json:"modality"`
	Content          string       `json:"content"`
	TechniqueID      string       `json:"technique_id,omitempty"`
	AffectedEntities []string     `json:"affected_entities"`
	Severity         Severity     `json:"severity"`
	ComplianceTag    string       `json:"compliance_tag,omitempty"`
	Status           InjectStatus `json:"status"`
	ForceAccepted    bool         `json:"force_accepted,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}

// OffsetMinutes returns the inject's time offset in minutes since scenario
// start, using the lenient parse rules of ParseOffset.
func (in Inject) OffsetMinutes() int {
	return ParseOffset(in.TimeOffset)
}

// EndCondition is the terminal classification of a scenario run.
// It transitions only Continue -> {Fatal, Victory, NormalEnd} and is
// terminal once set to a non-Continue value.
type EndCondition string

const (
	EndContinue  EndCondition = "continue"
	EndFatal     EndCondition = "fatal"
	EndVictory   EndCondition = "victory"
	EndNormalEnd EndCondition = "normal_end"
)

// Terminal reports whether the condition stops the run.
func (e EndCondition) Terminal() bool {
	return e != EndContinue && e != ""
}

// Type categorizes the kind of incident being simulated.
type Type string

const (
	TypeRansomware    Type = "ransomware"
	TypePhishing      Type = "phishing"
	TypeInsiderThreat Type = "insider_threat"
	TypeSupplyChain   Type = "supply_chain"
	TypeDataBreach    Type = "data_breach"
)

// Scenario owns the accepted inject sequence for one run.
//
// The inject list is owned exclusively by the scenario: only the
// orchestrator's Commit stage appends to it, and accepted injects are never
// mutated afterwards.
type Scenario struct {
	ID           string            `json:"id"`
	Type         Type              `json:"type"`
	CurrentPhase Phase             `json:"current_phase"`
	Injects      []Inject          `json:"injects"`
	Iteration    int               `json:"iteration"`
	EndCondition EndCondition      `json:"end_condition"`
	StartTime    time.Time         `json:"start_time"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// New creates a scenario of the given type in the fixed initial phase.
func New(typ Type) *Scenario {
	return &Scenario{
		ID:           uuid.NewString(),
		Type:         typ,
		CurrentPhase: PhaseNormal,
		EndCondition: EndContinue,
		StartTime:    time.Now().UTC(),
		Metadata:     map[string]string{},
	}
}

// LatestOffset returns the time offset in minutes of the most recently
// accepted inject, or 0 when the timeline is empty.
func (s *Scenario) LatestOffset() int {
	if len(s.Injects) == 0 {
		return 0
	}
	return s.Injects[len(s.Injects)-1].OffsetMinutes()
}

// RecentInjects returns up to n of the most recently accepted injects,
// oldest first.
func (s *Scenario) RecentInjects(n int) []Inject {
	if n <= 0 || len(s.Injects) == 0 {
		return nil
	}
	if n > len(s.Injects) {
		n = len(s.Injects)
	}
	return s.Injects[len(s.Injects)-n:]
}

// CountSevereInjects returns how many accepted injects are High or Critical.
func (s *Scenario) CountSevereInjects() int {
	count := 0
	for _, in := range s.Injects {
		if in.Severity == SeverityHigh || in.Severity == SeverityCritical {
			count++
		}
	}
	return count
}

// InjectsInPhase returns how many accepted injects belong to the given phase.
func (s *Scenario) InjectsInPhase(p Phase) int {
	count := 0
	for _, in := range s.Injects {
		if in.Phase == p {
			count++
		}
	}
	return count
}

// EntityStatus describes the operational state of a world entity.
type EntityStatus string

const (
	EntityActive      EntityStatus = "active"
	EntityDegraded    EntityStatus = "degraded"
	EntityOffline     EntityStatus = "offline"
	EntityCompromised EntityStatus = "compromised"
	EntityEncrypted   EntityStatus = "encrypted"
	EntityIsolated    EntityStatus = "isolated"
)

// Impaired reports whether the status means the entity cannot be treated
// as operating normally.
func (s EntityStatus) Impaired() bool {
	switch s {
	case EntityOffline, EntityCompromised, EntityEncrypted:
		return true
	}
	return false
}

// Entity is one element of a world-state snapshot.
type Entity struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Type     string       `json:"type"`
	Status   EntityStatus `json:"status"`
	Critical bool         `json:"critical,omitempty"`
}

// Snapshot is a read-only view of the world state taken once per iteration.
// Validation and scoring for a given draft always use the snapshot captured
// immediately before that validation.
type Snapshot map[string]Entity

// IDs returns the entity ids present in the snapshot, sorted.
func (s Snapshot) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Compromised returns the ids of entities currently compromised or encrypted.
func (s Snapshot) Compromised() []string {
	var ids []string
	for id, e := range s {
		if e.Status == EntityCompromised || e.Status == EntityEncrypted {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// CriticalRatioCompromised returns the fraction of critical entities that
// are compromised or encrypted. Zero critical entities yields 0.
func (s Snapshot) CriticalRatioCompromised() float64 {
	total, hit := 0, 0
	for _, e := range s {
		if !e.Critical {
			continue
		}
		total++
		if e.Status == EntityCompromised || e.Status == EntityEncrypted {
			hit++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hit) / float64(total)
}

// Clone returns a deep copy, so callers can hold snapshots across store
// mutations without aliasing.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for id, e := range s {
		out[id] = e
	}
	return out
}
