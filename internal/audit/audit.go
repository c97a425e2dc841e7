// Package audit is the append-only forensic sink for scenario runs.
//
// Every draft attempt and every final verdict lands here with the full
// draft, per-layer verdict detail, raw oracle text, and the snapshot used.
// Records are never mutated. Write failures are logged and swallowed: the
// audit trail degrades, the pipeline never aborts because of it.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/scenariod/internal/scenario"
)

// RecordKind distinguishes the events the sink receives.
type RecordKind string

const (
	// KindDraftAttempt records one draft submission to the critic.
	KindDraftAttempt RecordKind = "draft_attempt"

	// KindFinalVerdict records the verdict that settled an inject.
	KindFinalVerdict RecordKind = "final_verdict"

	// KindDecision records an interactive decision and its resolution.
	KindDecision RecordKind = "decision"

	// KindRunEnd records the terminal end condition of a run.
	KindRunEnd RecordKind = "run_end"
)

// Record is one durable audit entry.
type Record struct {
	Kind       RecordKind        `json:"kind"`
	ScenarioID string            `json:"scenario_id"`
	Iteration  int               `json:"iteration"`
	Attempt    int               `json:"attempt,omitempty"`
	Draft      *scenario.Inject  `json:"draft,omitempty"`
	Verdict    json.RawMessage   `json:"verdict,omitempty"`
	OracleRaw  string            `json:"oracle_raw,omitempty"`
	Snapshot   scenario.Snapshot `json:"snapshot,omitempty"`
	Detail     map[string]string `json:"detail,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Log appends JSONL records to one file per scenario run.
type Log struct {
	mu     sync.Mutex
	file   *os.File
	path   string
	logger *zap.Logger

	// dropped counts records lost to write failures.
	dropped int
}

// Open creates (or appends to) the audit file for a scenario under dir.
func Open(dir, scenarioID string, logger *zap.Logger) (*Log, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating audit dir: %w", err)
	}
	path := filepath.Join(dir, scenarioID+".audit.jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening audit file: %w", err)
	}
	return &Log{file: f, path: path, logger: logger}, nil
}

// Path returns the audit file location.
func (l *Log) Path() string {
	return l.path
}

// Dropped returns how many records were lost to write failures.
func (l *Log) Dropped() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// Append writes one record. Failures are swallowed after logging.
func (l *Log) Append(rec Record) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		l.dropped++
		l.logger.Error("audit record not serializable, dropped",
			zap.String("kind", string(rec.Kind)), zap.Error(err))
		return
	}
	if _, err := l.file.Write(append(data, '\n')); err != nil {
		l.dropped++
		l.logger.Error("audit write failed, record dropped",
			zap.String("kind", string(rec.Kind)), zap.Error(err))
	}
}

// Close releases the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
