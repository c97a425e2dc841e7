package scenario

import "strings"

// Technique is a domain attack-pattern descriptor used when drafting and
// causally validating injects.
type Technique struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Technique identifiers carry a family prefix (e.g. "EXFIL-T1041"). The
// causal tables below key on the family, so catalog-specific suffixes never
// need table updates.

// TechniqueFamily extracts the family portion of a technique id.
// "EXFIL-T1041" -> "EXFIL"; a bare family id maps to itself.
func TechniqueFamily(techniqueID string) string {
	id := strings.ToUpper(strings.TrimSpace(techniqueID))
	if idx := strings.IndexByte(id, '-'); idx > 0 {
		return id[:idx]
	}
	return id
}

// techniquePhases maps a technique family to the phases it is plausible in.
var techniquePhases = map[string][]Phase{
	"RECON":   {PhaseNormal, PhaseInitialAccess},
	"PHISH":   {PhaseNormal, PhaseInitialAccess},
	"ACCESS":  {PhaseInitialAccess},
	"PRIVESC": {PhaseEscalation},
	"PERSIST": {PhaseEscalation, PhaseLateral},
	"LATMOVE": {PhaseLateral, PhaseEscalation},
	"C2":      {PhaseEscalation, PhaseLateral, PhaseExfiltration},
	"EXFIL":   {PhaseExfiltration},
	"RANSOM":  {PhaseExfiltration, PhaseEscalation},
	"DEFEND":  {PhaseContainment, PhaseRecovery},
	"RESTORE": {PhaseRecovery},
}

// impossibleSequences lists (technique family, phase) pairs that can never
// co-occur in a coherent narrative. A hit here is a hard causal block, even
// when a semantic check says otherwise.
var impossibleSequences = map[string][]Phase{
	"EXFIL":   {PhaseNormal, PhaseRecovery},
	"RANSOM":  {PhaseNormal, PhaseRecovery},
	"LATMOVE": {PhaseNormal},
	"PRIVESC": {PhaseNormal},
	"RESTORE": {PhaseNormal, PhaseInitialAccess, PhaseEscalation},
}

// TechniqueCompatible reports whether the technique family is plausible in
// the given phase. Unknown families are treated as compatible; the tables
// only encode what is known to be wrong.
func TechniqueCompatible(techniqueID string, p Phase) bool {
	family := TechniqueFamily(techniqueID)
	phases, ok := techniquePhases[family]
	if !ok {
		return true
	}
	for _, allowed := range phases {
		if allowed == p {
			return true
		}
	}
	return false
}

// ImpossibleSequence reports whether the (technique, phase) pair is in the
// fixed impossible-sequence table.
func ImpossibleSequence(techniqueID string, p Phase) bool {
	family := TechniqueFamily(techniqueID)
	for _, blocked := range impossibleSequences[family] {
		if blocked == p {
			return true
		}
	}
	return false
}
