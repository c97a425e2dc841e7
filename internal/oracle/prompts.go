package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/scenariod/internal/scenario"
)

// Prompt builders. Each prompt pins the expected JSON shape explicitly;
// the extractor tolerates surrounding prose either way.

func planPrompt(req PlanRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are directing a simulated %s incident exercise.\n", req.ScenarioType)
	fmt.Fprintf(&b, "Current phase: %s. Iteration: %d.\n\n", req.Phase, req.Iteration)
	writeTimeline(&b, req.RecentInjects)
	writeSnapshot(&b, req.Snapshot)
	b.WriteString("\nPropose the narrative direction for the next event.\n")
	b.WriteString("Respond with a JSON object:\n")
	b.WriteString(`{"direction": "<one sentence>", "suggested_phase": "<phase>", "focus_entities": ["<entity id>"]}` + "\n")
	return b.String()
}

func draftPrompt(req DraftRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are writing the next inject for a simulated %s incident exercise.\n", req.ScenarioType)
	fmt.Fprintf(&b, "Target phase: %s.\n", req.Phase)
	if req.Plan.Direction != "" {
		fmt.Fprintf(&b, "Narrative direction: %s\n", req.Plan.Direction)
	}
	if req.Technique.ID != "" {
		fmt.Fprintf(&b, "Technique to portray: %s (%s): %s\n",
			req.Technique.ID, req.Technique.Name, req.Technique.Description)
	}
	fmt.Fprintf(&b, "The latest accepted event happened at %s; this one must be later.\n", req.LatestOffset)
	writeTimeline(&b, req.RecentInjects)
	writeSnapshot(&b, req.Snapshot)

	if req.Feedback != nil {
		b.WriteString("\nThe previous draft was rejected. Fix these specific problems:\n")
		for _, e := range req.Feedback.Errors {
			fmt.Fprintf(&b, "- ERROR: %s\n", e)
		}
		for _, w := range req.Feedback.Warnings {
			fmt.Fprintf(&b, "- warning: %s\n", w)
		}
	}

	b.WriteString("\nRespond with a JSON object:\n")
	b.WriteString(`{"time_offset": "T+DD:HH:MM", "phase": "<phase>", "source": "<who reports it>", ` +
		`"target": "<who receives it>", "modality": "email|alert|phone|ticket|news", ` +
		`"content": "<the narrative event text>", "technique_id": "<id>", ` +
		`"affected_entities": ["<entity id>"], "severity": "low|medium|high|critical", ` +
		`"compliance_tag": ""}` + "\n")
	return b.String()
}

func verifyPrompt(req VerifyRequest) string {
	var b strings.Builder
	b.WriteString("You are auditing a draft inject of a simulated incident exercise for semantic consistency.\n\n")
	b.WriteString("Draft under review:\n")
	writeJSON(&b, req.Draft)
	writeTimeline(&b, req.History)
	writeSnapshot(&b, req.Snapshot)
	if len(req.ComplianceChecklist) > 0 {
		b.WriteString("\nCompliance checklist:\n")
		for _, item := range req.ComplianceChecklist {
			fmt.Fprintf(&b, "- %s\n", item)
		}
	}
	b.WriteString("\nJudge logical consistency with the timeline, causal validity of the ")
	b.WriteString("technique in this phase, and compliance coverage.\n")
	b.WriteString("Respond with a JSON object:\n")
	b.WriteString(`{"logical_consistency": true, "causal_validity": true, "compliance": true, ` +
		`"errors": [], "warnings": []}` + "\n")
	return b.String()
}

func writeTimeline(b *strings.Builder, injects []scenario.Inject) {
	if len(injects) == 0 {
		return
	}
	b.WriteString("\nRecent accepted events, oldest first:\n")
	for _, in := range injects {
		fmt.Fprintf(b, "- [%s] (%s, %s) %s\n", in.TimeOffset, in.Phase, in.Severity, in.Content)
	}
}

func writeSnapshot(b *strings.Builder, snap scenario.Snapshot) {
	if len(snap) == 0 {
		return
	}
	b.WriteString("\nWorld state:\n")
	for _, id := range snap.IDs() {
		e := snap[id]
		fmt.Fprintf(b, "- %s (%s, %s): %s\n", e.ID, e.Name, e.Type, e.Status)
	}
}

func writeJSON(b *strings.Builder, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(b, "%+v\n", v)
		return
	}
	b.Write(data)
	b.WriteByte('\n')
}
