//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/genpipe/internal/agent"
	"github.com/dusk-indust/genpipe/internal/catalog"
	"github.com/dusk-indust/genpipe/internal/config"
	"github.com/dusk-indust/genpipe/internal/launcher"
	"github.com/dusk-indust/genpipe/internal/orchestrator"
	"github.com/dusk-indust/genpipe/internal/server"
	"github.com/dusk-indust/genpipe/internal/store"
)

func fixtureDir() string {
	return filepath.Join("..", "..", "testdata", "fixtures")
}

type stack struct {
	cfg      *config.ProjectConfig
	registry *orchestrator.Registry
	svc      *launcher.Service
	archive  *store.SQLiteStore
	http     *httptest.Server
}

// newStack wires config, agents, catalog, launcher, archive and HTTP server
// the way the genpipe binary does. setup may replace agents before the
// pipelines are built.
func newStack(t *testing.T, latency time.Duration, setup func(*agent.Registry)) *stack {
	t.Helper()

	cfg, err := config.Load(fixtureDir())
	require.NoError(t, err)

	agents := agent.NewRegistry()
	agents.SetLatency(latency)
	if setup != nil {
		setup(agents)
	}

	reg := orchestrator.NewRegistry()
	require.NoError(t, catalog.NewBuilder(agents, cfg).Register(reg))

	archive, err := store.OpenSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)

	quiet := log.New(io.Discard, "", 0)
	exec := orchestrator.NewExecutor(
		orchestrator.WithMaxParallel(cfg.MaxParallel),
		orchestrator.WithLogger(quiet),
	)
	svc := launcher.NewService(reg, exec, launcher.WithArchive(archive), launcher.WithLogger(quiet))
	ts := httptest.NewServer(server.New(svc))

	t.Cleanup(func() {
		ts.Close()
		svc.Close()
		archive.Close()
	})
	return &stack{cfg: cfg, registry: reg, svc: svc, archive: archive, http: ts}
}

func (s *stack) start(t *testing.T, pipeline string, params map[string]any) string {
	t.Helper()
	body, err := json.Marshal(map[string]any{"pipeline": pipeline, "params": params})
	require.NoError(t, err)

	resp, err := http.Post(s.http.URL+"/runs", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out["runId"])
	return out["runId"]
}

func TestFixtureConfig(t *testing.T) {
	s := newStack(t, 0, nil)
	assert.Equal(t, 3, s.cfg.Contributors())
	assert.Equal(t, 2, s.cfg.MaxParallel)

	bp, ok := s.registry.Lookup(catalog.BusinessPlanID)
	require.True(t, ok)
	synth, _ := bp.Stage(catalog.SynthesizeStage)
	assert.Equal(t, 2*time.Second, synth.Timeout)
	market, _ := bp.Stage("marketSize")
	assert.Equal(t, 5*time.Second, market.Timeout)

	mvp, ok := s.registry.Lookup(catalog.MVPBuildID)
	require.True(t, ok)
	analytics, _ := mvp.Stage("setupAnalytics")
	assert.Nil(t, analytics.Fallback)
}

// TestBusinessPlan_E2E starts a run over HTTP, follows its event stream to the
// end and checks the artifact and the archived record.
func TestBusinessPlan_E2E(t *testing.T) {
	s := newStack(t, 5*time.Millisecond, nil)
	runID := s.start(t, catalog.BusinessPlanID, map[string]any{
		"idea": "AI tutor for students", "industry": "EdTech", "targetMarket": "B2C Consumer",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.http.URL+"/runs/"+runID+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	var (
		last     float64
		final    *orchestrator.ProgressEvent
		statuses = map[orchestrator.StageID]orchestrator.StageStatus{}
	)
	for ev := range server.ReadEvents(ctx, resp.Body) {
		require.NoError(t, ev.Err)
		assert.GreaterOrEqual(t, ev.Event.Progress, last, "progress decreased")
		last = ev.Event.Progress
		if ev.Event.Final {
			e := ev.Event
			final = &e
			continue
		}
		statuses[ev.Event.Stage] = ev.Event.Status
	}
	require.NotNil(t, final)
	assert.InDelta(t, 100, final.Progress, 0.001)
	for _, id := range []orchestrator.StageID{"marketSize", "competitors", "pricing", "gtmInsights", "synthesize"} {
		assert.Equal(t, orchestrator.StatusCompleted, statuses[id], id)
	}

	run, err := s.svc.Wait(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, orchestrator.OutcomeSucceeded, run.Outcome)
	require.NotNil(t, run.Artifact)
	assert.Equal(t, 88, run.Artifact.Confidence)

	archived, err := s.archive.Get(runID)
	require.NoError(t, err)
	assert.Equal(t, run.Outcome, archived.Outcome)
	require.NotNil(t, archived.Artifact)
	assert.Equal(t, run.Artifact.Confidence, archived.Artifact.Confidence)

	md, err := http.Get(s.http.URL + "/runs/" + runID + "/artifact?format=markdown")
	require.NoError(t, err)
	defer md.Body.Close()
	body, _ := io.ReadAll(md.Body)
	assert.Contains(t, string(body), "# AI tutor for - EdTech Solution")
	assert.Contains(t, string(body), "## Confidence")
}

func TestBusinessPlan_E2E_Fallback(t *testing.T) {
	s := newStack(t, 0, func(agents *agent.Registry) {
		agents.Register(agent.RoleMarketSize, func() agent.Agent {
			return agent.NewBaseAgent(agent.Card{Role: agent.RoleMarketSize, Name: "flaky"},
				func(context.Context, agent.Brief, orchestrator.GenerationRequest) (orchestrator.Payload, error) {
					return nil, io.ErrUnexpectedEOF
				})
		})
	})

	ctx := context.Background()
	runID, err := s.svc.StartRun(ctx, catalog.BusinessPlanID, map[string]any{"idea": "AI tutor", "industry": "EdTech"})
	require.NoError(t, err)
	run, err := s.svc.Wait(ctx, runID)
	require.NoError(t, err)

	assert.Equal(t, orchestrator.StatusCompletedWithFallback, run.Statuses["marketSize"])
	assert.Equal(t, orchestrator.OutcomeSucceeded, run.Outcome)
	require.NotNil(t, run.Artifact)
	assert.Equal(t, "$100B TAM, $10B SAM, $1B SOM", run.Artifact.Fields["marketSize"])
	assert.Less(t, run.Artifact.Confidence, 88)
}

func TestMVPBuild_E2E_Cancel(t *testing.T) {
	s := newStack(t, 2*time.Second, nil)
	runID := s.start(t, catalog.MVPBuildID, map[string]any{"idea": "habit tracker"})

	resp, err := http.Post(s.http.URL+"/runs/"+runID+"/cancel", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	run, err := s.svc.Wait(ctx, runID)
	require.NoError(t, err)

	assert.True(t, run.Cancelled)
	assert.Equal(t, orchestrator.OutcomePartialFailure, run.Outcome)
	assert.NotEqual(t, orchestrator.StatusCompleted, run.Statuses["deploy"])

	archived, err := s.archive.Get(runID)
	require.NoError(t, err)
	assert.True(t, archived.Cancelled)
}
