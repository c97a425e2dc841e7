package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/scenariod/internal/oracle"
	"github.com/fyrsmithlabs/scenariod/internal/orchestrator"
	"github.com/fyrsmithlabs/scenariod/internal/scenario"
)

type fixedTechniques struct{}

func (fixedTechniques) TechniquesForPhase(context.Context, scenario.Phase, int) []scenario.Technique {
	return []scenario.Technique{{ID: "RECON-T1595", Name: "Active Scanning"}}
}

func newTestServer(t *testing.T, runCfg orchestrator.Config) *Server {
	t.Helper()
	mgr := NewManager(ManagerConfig{
		AuditDir: t.TempDir(),
		Run:      runCfg,
	}, oracle.NewStub(), fixedTechniques{}, nil, nil)
	t.Cleanup(mgr.Close)

	srv, err := NewServer(mgr, ":0", nil)
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echoContentType, "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	return rec
}

const echoContentType = "Content-Type"

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, orchestrator.Config{})
	rec := doJSON(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestStartRun_RunsToCeiling(t *testing.T) {
	srv := newTestServer(t, orchestrator.Config{MaxIterations: 2})

	rec := doJSON(t, srv, http.MethodPost, "/v1/runs", `{"type":"phishing"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var view RunView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.NotEmpty(t, view.ID)

	require.Eventually(t, func() bool {
		got := doJSON(t, srv, http.MethodGet, "/v1/runs/"+view.ID, "")
		if got.Code != http.StatusOK {
			return false
		}
		var v RunView
		if err := json.Unmarshal(got.Body.Bytes(), &v); err != nil {
			return false
		}
		return v.Status == orchestrator.StatusFinished && v.InjectCount == 2
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStartRun_ValidatesBody(t *testing.T) {
	srv := newTestServer(t, orchestrator.Config{})

	rec := doJSON(t, srv, http.MethodPost, "/v1/runs", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/v1/runs", `{garbage`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRun_NotFound(t *testing.T) {
	srv := newTestServer(t, orchestrator.Config{})
	rec := doJSON(t, srv, http.MethodGet, "/v1/runs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInteractiveRun_DecisionRoundTrip(t *testing.T) {
	srv := newTestServer(t, orchestrator.Config{DecisionInterval: 1, MaxIterations: 10})

	rec := doJSON(t, srv, http.MethodPost, "/v1/runs", `{"type":"ransomware","interactive":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var view RunView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))

	// wait for the first suspension
	require.Eventually(t, func() bool {
		got := doJSON(t, srv, http.MethodGet, "/v1/runs/"+view.ID, "")
		var v RunView
		if err := json.Unmarshal(got.Body.Bytes(), &v); err != nil {
			return false
		}
		return v.Status == orchestrator.StatusSuspended
	}, 5*time.Second, 10*time.Millisecond)

	got := doJSON(t, srv, http.MethodGet, "/v1/runs/"+view.ID+"/decision", "")
	require.Equal(t, http.StatusOK, got.Code)
	var d scenario.Decision
	require.NoError(t, json.Unmarshal(got.Body.Bytes(), &d))
	require.NotEmpty(t, d.Options)

	resolved := doJSON(t, srv, http.MethodPost, "/v1/runs/"+view.ID+"/decision",
		`{"option_id":"observe","notes":"keep watching"}`)
	require.Equal(t, http.StatusOK, resolved.Code)

	// resolving again conflicts until the next suspension
	again := doJSON(t, srv, http.MethodPost, "/v1/runs/"+view.ID+"/decision",
		`{"option_id":"observe"}`)
	assert.Contains(t, []int{http.StatusConflict, http.StatusOK}, again.Code)
}

func TestGetDecision_NoneWhenRunning(t *testing.T) {
	srv := newTestServer(t, orchestrator.Config{MaxIterations: 1})

	rec := doJSON(t, srv, http.MethodPost, "/v1/runs", `{"type":"phishing"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var view RunView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))

	require.Eventually(t, func() bool {
		got := doJSON(t, srv, http.MethodGet, "/v1/runs/"+view.ID, "")
		var v RunView
		_ = json.Unmarshal(got.Body.Bytes(), &v)
		return v.Status == orchestrator.StatusFinished
	}, 5*time.Second, 10*time.Millisecond)

	got := doJSON(t, srv, http.MethodGet, "/v1/runs/"+view.ID+"/decision", "")
	assert.Equal(t, http.StatusNotFound, got.Code)
}
