// Package orchestrator drives a scenario run through the fixed pipeline:
// Snapshot, Plan, Retrieve, SelectAction, Draft, Validate, Commit.
//
// Each iteration takes one world-state snapshot, asks the oracle for a
// direction, retrieves candidate techniques, drafts an inject, validates it
// through the critic with a bounded refine loop, and commits the result.
// Commit appends to the timeline, applies cascading world-state impact and
// evaluates the end condition as a pure function.
//
// In interactive mode the run suspends at decision points and resumes only
// through an explicit Resume call carrying the chosen option. Hard ceilings
// on iterations, pipeline steps and accumulated errors force a warned end
// so a run can never spin forever.
package orchestrator
