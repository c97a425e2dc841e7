package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/scenariod/internal/audit"
	"github.com/fyrsmithlabs/scenariod/internal/critic"
	"github.com/fyrsmithlabs/scenariod/internal/oracle"
	"github.com/fyrsmithlabs/scenariod/internal/orchestrator"
	"github.com/fyrsmithlabs/scenariod/internal/scenario"
	"github.com/fyrsmithlabs/scenariod/internal/scoring"
	"github.com/fyrsmithlabs/scenariod/internal/worldstate"
)

// ErrRunNotFound reports an unknown run id.
var ErrRunNotFound = errors.New("server: run not found")

// ManagerConfig tunes run creation.
type ManagerConfig struct {
	// AuditDir is where per-run audit files land. Empty disables auditing.
	AuditDir string

	Run    orchestrator.Config
	Critic critic.Config
}

// Manager owns the live runs. Each run gets its own orchestrator, world
// state, critic and audit file; the oracle, technique source and metrics
// are shared.
type Manager struct {
	cfg        ManagerConfig
	oracle     oracle.Oracle
	techniques orchestrator.TechniqueSource
	metrics    *orchestrator.Metrics
	logger     *zap.Logger

	mu   sync.RWMutex
	runs map[string]*run
}

type run struct {
	mu       sync.Mutex
	orch     *orchestrator.Orchestrator
	auditLog *audit.Log
	ctx      context.Context
	cancel   context.CancelFunc
	looping  bool
	runErr   error
}

// NewManager creates a run manager.
func NewManager(cfg ManagerConfig, o oracle.Oracle, techniques orchestrator.TechniqueSource, metrics *orchestrator.Metrics, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:        cfg,
		oracle:     o,
		techniques: techniques,
		metrics:    metrics,
		logger:     logger,
		runs:       map[string]*run{},
	}
}

// StartRun creates a scenario run and starts stepping it in the background.
func (m *Manager) StartRun(typ scenario.Type, interactive bool) (RunView, error) {
	scn := scenario.New(typ)

	var auditLog *audit.Log
	if m.cfg.AuditDir != "" {
		var err error
		auditLog, err = audit.Open(m.cfg.AuditDir, scn.ID, m.logger)
		if err != nil {
			return RunView{}, fmt.Errorf("opening audit log: %w", err)
		}
	}

	entities, deps := worldstate.DefaultTopology()
	world := worldstate.NewStore(entities, deps, m.logger)

	cr := critic.New(m.cfg.Critic, m.oracle, scoring.NewEngine(), m.logger)
	cr.RegisterStandard(critic.ReportingStandard{})

	runCfg := m.cfg.Run
	runCfg.Interactive = interactive

	orch, err := orchestrator.New(runCfg, scn, orchestrator.Deps{
		Oracle:     m.oracle,
		Critic:     cr,
		Techniques: m.techniques,
		World:      world,
		Audit:      auditLog,
		Metrics:    m.metrics,
		Logger:     m.logger,
	})
	if err != nil {
		if auditLog != nil {
			_ = auditLog.Close()
		}
		return RunView{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &run{orch: orch, auditLog: auditLog, ctx: ctx, cancel: cancel}

	m.mu.Lock()
	m.runs[scn.ID] = r
	m.mu.Unlock()

	m.startLoop(r)
	m.logger.Info("run started",
		zap.String("scenario_id", scn.ID),
		zap.String("type", string(typ)),
		zap.Bool("interactive", interactive))
	return m.view(r, false), nil
}

// startLoop steps the orchestrator until it suspends, finishes or fails.
// The run lock is released between steps so reads stay responsive.
func (m *Manager) startLoop(r *run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.looping {
		return
	}
	r.looping = true

	go func() {
		for {
			r.mu.Lock()
			if r.orch.Status() != orchestrator.StatusRunning {
				r.looping = false
				if r.orch.Status() == orchestrator.StatusFinished && r.auditLog != nil {
					_ = r.auditLog.Close()
				}
				r.mu.Unlock()
				return
			}
			err := r.orch.Step(r.ctx)
			if err != nil {
				r.runErr = err
				r.looping = false
				r.mu.Unlock()
				m.logger.Warn("run loop stopped", zap.Error(err))
				return
			}
			r.mu.Unlock()
		}
	}()
}

// Run returns the detailed view of one run.
func (m *Manager) Run(id string) (RunView, error) {
	r, err := m.get(id)
	if err != nil {
		return RunView{}, err
	}
	return m.view(r, true), nil
}

// Runs lists all runs, without timelines.
func (m *Manager) Runs() []RunView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RunView, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, m.view(r, false))
	}
	return out
}

// PendingDecision returns the decision blocking a run, or nil.
func (m *Manager) PendingDecision(id string) (*scenario.Decision, error) {
	r, err := m.get(id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orch.PendingDecision(), nil
}

// ResolveDecision resolves a pending decision and resumes the run loop.
func (m *Manager) ResolveDecision(id, optionID, notes string) error {
	r, err := m.get(id)
	if err != nil {
		return err
	}
	r.mu.Lock()
	err = r.orch.Resume(context.Background(), optionID, notes)
	r.mu.Unlock()
	if err != nil {
		return err
	}
	m.startLoop(r)
	return nil
}

// Close cancels every run and closes their audit files.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		r.cancel()
		r.mu.Lock()
		if r.auditLog != nil {
			_ = r.auditLog.Close()
		}
		r.mu.Unlock()
	}
}

func (m *Manager) get(id string) (*run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return r, nil
}

// RunView is the externally visible state of a run.
type RunView struct {
	ID           string                 `json:"id"`
	Type         scenario.Type          `json:"type"`
	Status       orchestrator.RunStatus `json:"status"`
	Phase        scenario.Phase         `json:"phase"`
	Iteration    int                    `json:"iteration"`
	EndCondition scenario.EndCondition  `json:"end_condition"`
	StopReason   string                 `json:"stop_reason,omitempty"`
	InjectCount  int                    `json:"inject_count"`
	Injects      []scenario.Inject      `json:"injects,omitempty"`
	Decision     *scenario.Decision     `json:"pending_decision,omitempty"`
	Error        string                 `json:"error,omitempty"`
}

func (m *Manager) view(r *run, detailed bool) RunView {
	r.mu.Lock()
	defer r.mu.Unlock()

	scn := r.orch.Scenario()
	v := RunView{
		ID:           scn.ID,
		Type:         scn.Type,
		Status:       r.orch.Status(),
		Phase:        scn.CurrentPhase,
		Iteration:    scn.Iteration,
		EndCondition: scn.EndCondition,
		StopReason:   r.orch.StopReason(),
		InjectCount:  len(scn.Injects),
	}
	if r.runErr != nil {
		v.Error = r.runErr.Error()
	}
	if detailed {
		v.Injects = append([]scenario.Inject(nil), scn.Injects...)
		v.Decision = r.orch.PendingDecision()
	}
	return v
}
