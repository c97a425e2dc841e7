// Package scenario defines the core data model for incident scenario runs:
// scenarios, injects, world-state snapshots, decisions, and the T+DD:HH:MM
// time-offset codec. It carries no behavior beyond construction, validation,
// and encoding, so every other package can depend on it without cycles.
package scenario
