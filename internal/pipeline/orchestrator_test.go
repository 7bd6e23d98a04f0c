package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/fyrsmithlabs/reposmith/internal/config"
	"github.com/fyrsmithlabs/reposmith/internal/domain"
	"github.com/fyrsmithlabs/reposmith/internal/logging"
	"github.com/fyrsmithlabs/reposmith/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

const (
	targetURL = "https://github.com/acme/app.git"
	sourceA   = "https://github.com/acme/lib-a.git"
	sourceB   = "https://github.com/acme/lib-b.git"
)

func allCredentials(string) (string, bool) { return "set", true }

func noCredentials(string) (string, bool) { return "", false }

type harness struct {
	repos   *MockRepositoryAccess
	synth   *MockSynthesizer
	gen     *MockGenerator
	metrics *Metrics
	logger  *logging.TestLogger
	events  []StageProgress
}

func newHarness() *harness {
	return &harness{
		repos:   &MockRepositoryAccess{},
		synth:   &MockSynthesizer{},
		gen:     &MockGenerator{},
		metrics: NewMetricsWithRegistry(prometheus.NewRegistry()),
		logger:  logging.NewTestLogger(),
	}
}

func (h *harness) collaborators() CollaboratorsFunc {
	return func() (Collaborators, error) {
		return Collaborators{Repositories: h.repos, Knowledge: h.synth, Improvements: h.gen}, nil
	}
}

func (h *harness) orchestrator(t *testing.T, req Request, opts ...Option) *Orchestrator {
	t.Helper()
	base := []Option{
		WithCredentialLookup(allCredentials),
		WithMetrics(h.metrics),
		WithLogger(h.logger.Logger),
		WithProgress(func(p StageProgress) { h.events = append(h.events, p) }),
	}
	orch, err := New(req, h.collaborators(), append(base, opts...)...)
	require.NoError(t, err)
	return orch
}

func mustRequest(t *testing.T, sources []string, opts ...RequestOption) Request {
	t.Helper()
	req, err := NewRequest(targetURL, sources, opts...)
	require.NoError(t, err)
	return req
}

func improvementsN(n int) []domain.Improvement {
	out := make([]domain.Improvement, n)
	for i := range out {
		out[i] = domain.Improvement{ID: string(rune('a' + i)), Path: "file.go"}
	}
	return out
}

var fullSet = CloneSet{Sources: []string{"/w/clone-a", "/w/clone-b"}, Target: "/w/clone-t"}

func TestNew_MissingCredentialsListsEveryName(t *testing.T) {
	built := false
	build := func() (Collaborators, error) {
		built = true
		return Collaborators{}, nil
	}

	_, err := New(mustRequest(t, nil), build, WithCredentialLookup(noCredentials))

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	var missing *config.MissingCredentialsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"ANTHROPIC_API_KEY", "GITHUB_TOKEN"}, missing.Names)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
	assert.Contains(t, err.Error(), "GITHUB_TOKEN")
	assert.False(t, built, "collaborators must not be created before validation passes")
}

func TestNew_MissingOneCredential(t *testing.T) {
	lookup := func(k string) (string, bool) {
		if k == config.EnvAnthropicAPIKey {
			return "key", true
		}
		return "", false
	}

	_, err := New(mustRequest(t, nil), newHarness().collaborators(), WithCredentialLookup(lookup))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "GITHUB_TOKEN")
	assert.NotContains(t, err.Error(), "ANTHROPIC_API_KEY")
}

func TestNew_ConfigurationErrors(t *testing.T) {
	h := newHarness()
	tests := []struct {
		name  string
		req   Request
		build CollaboratorsFunc
		field string
	}{
		{"zero request", Request{}, h.collaborators(), "target"},
		{"nil builder", mustRequest(t, nil), nil, "collaborators"},
		{"builder error", mustRequest(t, nil), func() (Collaborators, error) {
			return Collaborators{}, errors.New("no model")
		}, "collaborators"},
		{"nil collaborator", mustRequest(t, nil), func() (Collaborators, error) {
			return Collaborators{Repositories: h.repos}, nil
		}, "collaborators"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.req, tt.build, WithCredentialLookup(allCredentials))

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestRun_AppliedScenario(t *testing.T) {
	h := newHarness()
	req := mustRequest(t, []string{sourceA, sourceB})
	knowledge := &domain.Knowledge{Sources: []domain.SourceSummary{{Path: "/w/clone-a"}, {Path: "/w/clone-b"}}}
	generated := improvementsN(3)

	h.repos.On("Clone", mock.Anything, CloneRequest{Sources: []string{sourceA, sourceB}, Target: targetURL}).Return(fullSet, nil)
	h.synth.On("Synthesize", mock.Anything, []string{"/w/clone-a", "/w/clone-b"}).Return(knowledge, nil)
	h.gen.On("Generate", mock.Anything, GenerateRequest{
		Knowledge:     knowledge,
		TargetPath:    "/w/clone-t",
		MaxIterations: DefaultMaxIterations,
		SafetyChecks:  true,
	}).Return(generated, nil)
	h.repos.On("Apply", mock.Anything, ApplyRequest{
		TargetPath:   "/w/clone-t",
		Improvements: generated,
		Branch:       DefaultBranch,
	}).Return(generated, nil)
	h.repos.On("Cleanup", mock.Anything, mock.Anything).Return(nil)

	res := h.orchestrator(t, req).Run(context.Background())

	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.True(t, res.Success())
	assert.Equal(t, 3, res.RepositoriesAnalyzed)
	assert.Equal(t, 3, res.ImprovementsGenerated)
	assert.Equal(t, 3, res.ImprovementsApplied)
	assert.Equal(t, DefaultBranch, res.Branch)
	assert.Equal(t, "/w/clone-t", res.TargetPath)
	assert.Empty(t, res.Error)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, [][]string{{"/w/clone-a", "/w/clone-b", "/w/clone-t"}}, h.repos.cleanupCalls())
	h.repos.AssertExpectations(t)
	h.synth.AssertExpectations(t)
	h.gen.AssertExpectations(t)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.RunsTotal.WithLabelValues("applied")))
	assert.Equal(t, 3.0, testutil.ToFloat64(h.metrics.ImprovementsApplied))
	h.logger.AssertLogged(t, zapcore.InfoLevel, "run finished")
	h.logger.AssertRunCorrelation(t, "run finished")
}

func TestRun_AppliedFewerThanGenerated(t *testing.T) {
	h := newHarness()
	generated := improvementsN(4)

	h.repos.On("Clone", mock.Anything, mock.Anything).Return(fullSet, nil)
	h.synth.On("Synthesize", mock.Anything, mock.Anything).Return(&domain.Knowledge{}, nil)
	h.gen.On("Generate", mock.Anything, mock.Anything).Return(generated, nil)
	h.repos.On("Apply", mock.Anything, mock.MatchedBy(func(r ApplyRequest) bool {
		return len(r.Improvements) == 4
	})).Return(generated[:1], nil)
	h.repos.On("Cleanup", mock.Anything, mock.Anything).Return(nil)

	res := h.orchestrator(t, mustRequest(t, []string{sourceA, sourceB})).Run(context.Background())

	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, 4, res.ImprovementsGenerated)
	assert.Equal(t, 1, res.ImprovementsApplied)
}

func TestRun_NothingAppliedReportsNoBranch(t *testing.T) {
	h := newHarness()
	generated := improvementsN(2)

	h.repos.On("Clone", mock.Anything, mock.Anything).Return(fullSet, nil)
	h.synth.On("Synthesize", mock.Anything, mock.Anything).Return(&domain.Knowledge{}, nil)
	h.gen.On("Generate", mock.Anything, mock.Anything).Return(generated, nil)
	h.repos.On("Apply", mock.Anything, mock.Anything).Return([]domain.Improvement{}, nil)
	h.repos.On("Cleanup", mock.Anything, mock.Anything).Return(nil)

	res := h.orchestrator(t, mustRequest(t, []string{sourceA, sourceB})).Run(context.Background())

	assert.Equal(t, OutcomeNoChanges, res.Outcome)
	assert.True(t, res.Success())
	assert.Equal(t, 2, res.ImprovementsGenerated)
	assert.Zero(t, res.ImprovementsApplied)
	assert.Empty(t, res.Branch)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.RunsTotal.WithLabelValues("no_changes")))
}

func TestRun_EmptyGenerationIsNoOp(t *testing.T) {
	h := newHarness()

	h.repos.On("Clone", mock.Anything, mock.Anything).Return(fullSet, nil)
	h.synth.On("Synthesize", mock.Anything, mock.Anything).Return(&domain.Knowledge{}, nil)
	h.gen.On("Generate", mock.Anything, mock.Anything).Return([]domain.Improvement{}, nil)
	h.repos.On("Cleanup", mock.Anything, mock.Anything).Return(nil)

	res := h.orchestrator(t, mustRequest(t, []string{sourceA, sourceB}, WithBranch("bot/x"))).Run(context.Background())

	assert.Equal(t, OutcomeNoChanges, res.Outcome)
	assert.True(t, res.Success())
	assert.Zero(t, res.ImprovementsGenerated)
	assert.Zero(t, res.ImprovementsApplied)
	assert.Empty(t, res.Branch)
	assert.Equal(t, "/w/clone-t", res.TargetPath)
	h.repos.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything)
	assert.Len(t, h.repos.cleanupCalls(), 1)
}

func TestRun_NoSourcesSkipsSynthesis(t *testing.T) {
	h := newHarness()
	req := mustRequest(t, nil, WithFiles("main.go"), WithMaxIterations(2), WithoutSafetyChecks())

	h.repos.On("Clone", mock.Anything, CloneRequest{Sources: []string{}, Target: targetURL}).
		Return(CloneSet{Target: "/w/clone-t"}, nil)
	h.gen.On("Generate", mock.Anything, GenerateRequest{
		Knowledge:     nil,
		TargetPath:    "/w/clone-t",
		Files:         []string{"main.go"},
		MaxIterations: 2,
		SafetyChecks:  false,
	}).Return(nil, nil)
	h.repos.On("Cleanup", mock.Anything, []string{"/w/clone-t"}).Return(nil)

	res := h.orchestrator(t, req).Run(context.Background())

	assert.Equal(t, OutcomeNoChanges, res.Outcome)
	assert.Equal(t, 1, res.RepositoriesAnalyzed)
	assert.Equal(t, FilesTargeted{Count: 1}, res.FilesTargeted)
	h.synth.AssertNotCalled(t, "Synthesize", mock.Anything, mock.Anything)
	h.gen.AssertExpectations(t)
	assert.Contains(t, h.events, StageProgress{
		RunID: res.RunID, Stage: StageSynthesize, Status: StatusSkipped, Message: "no source repositories",
	})
}

func TestRun_CloneFailureCleansUpPartialSet(t *testing.T) {
	h := newHarness()
	partial := CloneSet{Sources: []string{"/w/clone-a"}}

	h.repos.On("Clone", mock.Anything, mock.Anything).Return(partial, errors.New("authentication required"))
	h.repos.On("Cleanup", mock.Anything, mock.Anything).Return(nil)

	res := h.orchestrator(t, mustRequest(t, []string{sourceA, sourceB})).Run(context.Background())

	assert.Equal(t, OutcomeOperationalFailure, res.Outcome)
	assert.False(t, res.Success())
	assert.Equal(t, 3, res.RepositoriesAnalyzed)
	assert.Equal(t, "operational failure during clone: authentication required", res.Error)
	assert.Empty(t, res.TargetPath)
	var opErr *OperationalError
	require.ErrorAs(t, res.Err, &opErr)
	assert.Equal(t, StageClone, opErr.Stage)
	assert.Equal(t, [][]string{{"/w/clone-a"}}, h.repos.cleanupCalls())
	h.synth.AssertNotCalled(t, "Synthesize", mock.Anything, mock.Anything)
}

func TestRun_CloneFailureWithNothingClonedStillCallsCleanup(t *testing.T) {
	h := newHarness()

	h.repos.On("Clone", mock.Anything, mock.Anything).Return(CloneSet{}, errors.New("dns failure"))
	h.repos.On("Cleanup", mock.Anything, mock.Anything).Return(nil)

	res := h.orchestrator(t, mustRequest(t, []string{sourceA, sourceB})).Run(context.Background())

	assert.Equal(t, OutcomeOperationalFailure, res.Outcome)
	assert.Equal(t, [][]string{{}}, h.repos.cleanupCalls())
}

func TestRun_IntegrityFailures(t *testing.T) {
	tests := []struct {
		name     string
		set      CloneSet
		returned int
	}{
		{"missing source", CloneSet{Sources: []string{"/w/clone-a"}, Target: "/w/clone-t"}, 2},
		{"missing target", CloneSet{Sources: []string{"/w/clone-a", "/w/clone-b"}}, 2},
		{"extra source", CloneSet{Sources: []string{"/w/1", "/w/2", "/w/3"}, Target: "/w/t"}, 4},
		{"empty set", CloneSet{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.repos.On("Clone", mock.Anything, mock.Anything).Return(tt.set, nil)
			h.repos.On("Cleanup", mock.Anything, mock.Anything).Return(nil)

			res := h.orchestrator(t, mustRequest(t, []string{sourceA, sourceB})).Run(context.Background())

			assert.Equal(t, OutcomeIntegrityFailure, res.Outcome)
			assert.False(t, res.Success())
			assert.Equal(t, 3, res.RepositoriesAnalyzed)
			var intErr *IntegrityError
			require.ErrorAs(t, res.Err, &intErr)
			assert.Equal(t, IntegrityError{Requested: 3, Returned: tt.returned}, *intErr)
			assert.Contains(t, res.Error, "integrity failure")
			assert.Equal(t, [][]string{tt.set.Paths()}, h.repos.cleanupCalls())
			h.synth.AssertNotCalled(t, "Synthesize", mock.Anything, mock.Anything)
			h.gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)

			var cloneStatuses []StageStatus
			for _, ev := range h.events {
				if ev.Stage == StageClone {
					cloneStatuses = append(cloneStatuses, ev.Status)
				}
			}
			assert.Equal(t, []StageStatus{StatusStarted, StatusFailed}, cloneStatuses)
		})
	}
}

func TestRun_CleanupExactlyOncePerExitPath(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		setup   func(h *harness)
		outcome Outcome
		stage   Stage
	}{
		{
			name: "synthesize fails",
			setup: func(h *harness) {
				h.synth.On("Synthesize", mock.Anything, mock.Anything).Return(nil, boom)
			},
			outcome: OutcomeOperationalFailure,
			stage:   StageSynthesize,
		},
		{
			name: "generate fails",
			setup: func(h *harness) {
				h.synth.On("Synthesize", mock.Anything, mock.Anything).Return(&domain.Knowledge{}, nil)
				h.gen.On("Generate", mock.Anything, mock.Anything).Return(nil, boom)
			},
			outcome: OutcomeOperationalFailure,
			stage:   StageGenerate,
		},
		{
			name: "apply fails",
			setup: func(h *harness) {
				h.synth.On("Synthesize", mock.Anything, mock.Anything).Return(&domain.Knowledge{}, nil)
				h.gen.On("Generate", mock.Anything, mock.Anything).Return(improvementsN(2), nil)
				h.repos.On("Apply", mock.Anything, mock.Anything).Return(nil, boom)
			},
			outcome: OutcomeOperationalFailure,
			stage:   StageApply,
		},
		{
			name: "no-op success",
			setup: func(h *harness) {
				h.synth.On("Synthesize", mock.Anything, mock.Anything).Return(&domain.Knowledge{}, nil)
				h.gen.On("Generate", mock.Anything, mock.Anything).Return(nil, nil)
			},
			outcome: OutcomeNoChanges,
		},
		{
			name: "applied success",
			setup: func(h *harness) {
				h.synth.On("Synthesize", mock.Anything, mock.Anything).Return(&domain.Knowledge{}, nil)
				h.gen.On("Generate", mock.Anything, mock.Anything).Return(improvementsN(1), nil)
				h.repos.On("Apply", mock.Anything, mock.Anything).Return(improvementsN(1), nil)
			},
			outcome: OutcomeApplied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.repos.On("Clone", mock.Anything, mock.Anything).Return(fullSet, nil)
			h.repos.On("Cleanup", mock.Anything, mock.Anything).Return(nil)
			tt.setup(h)

			res := h.orchestrator(t, mustRequest(t, []string{sourceA, sourceB})).Run(context.Background())

			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, 3, res.RepositoriesAnalyzed)
			assert.Equal(t, "/w/clone-t", res.TargetPath, "target path survives later failures")
			assert.Equal(t, [][]string{fullSet.Paths()}, h.repos.cleanupCalls())
			if tt.stage != "" {
				var opErr *OperationalError
				require.ErrorAs(t, res.Err, &opErr)
				assert.Equal(t, tt.stage, opErr.Stage)
				assert.ErrorIs(t, res.Err, boom)
				assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.StageFailuresTotal.WithLabelValues(string(tt.stage))))
			}
		})
	}
}

func TestRun_ApplyFailureKeepsGeneratedCount(t *testing.T) {
	h := newHarness()
	h.repos.On("Clone", mock.Anything, mock.Anything).Return(fullSet, nil)
	h.synth.On("Synthesize", mock.Anything, mock.Anything).Return(&domain.Knowledge{}, nil)
	h.gen.On("Generate", mock.Anything, mock.Anything).Return(improvementsN(2), nil)
	h.repos.On("Apply", mock.Anything, mock.Anything).Return(nil, errors.New("branch exists"))
	h.repos.On("Cleanup", mock.Anything, mock.Anything).Return(nil)

	res := h.orchestrator(t, mustRequest(t, []string{sourceA, sourceB})).Run(context.Background())

	assert.Equal(t, OutcomeOperationalFailure, res.Outcome)
	assert.Equal(t, 2, res.ImprovementsGenerated)
	assert.Zero(t, res.ImprovementsApplied)
	assert.Empty(t, res.Branch)
}

func TestRun_CleanupFailureDoesNotChangeOutcome(t *testing.T) {
	h := newHarness()
	h.repos.On("Clone", mock.Anything, mock.Anything).Return(fullSet, nil)
	h.synth.On("Synthesize", mock.Anything, mock.Anything).Return(&domain.Knowledge{}, nil)
	h.gen.On("Generate", mock.Anything, mock.Anything).Return(nil, nil)
	h.repos.On("Cleanup", mock.Anything, mock.Anything).Return(errors.New("device busy"))

	res := h.orchestrator(t, mustRequest(t, []string{sourceA, sourceB})).Run(context.Background())

	assert.Equal(t, OutcomeNoChanges, res.Outcome)
	assert.True(t, res.Success())
	assert.Empty(t, res.Error)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.CleanupFailuresTotal))
	h.logger.AssertLogged(t, zapcore.WarnLevel, "cleanup failed")
}

func TestRun_CollaboratorPanicIsOperationalFailure(t *testing.T) {
	h := newHarness()
	h.repos.On("Clone", mock.Anything, mock.Anything).Return(fullSet, nil)
	h.synth.On("Synthesize", mock.Anything, mock.Anything).Return(&domain.Knowledge{}, nil)
	h.repos.On("Cleanup", mock.Anything, mock.Anything).Return(nil)

	build := func() (Collaborators, error) {
		return Collaborators{Repositories: h.repos, Knowledge: h.synth, Improvements: panickingGenerator{}}, nil
	}
	orch, err := New(mustRequest(t, []string{sourceA, sourceB}), build,
		WithCredentialLookup(allCredentials), WithMetrics(h.metrics))
	require.NoError(t, err)

	var res Result
	require.NotPanics(t, func() { res = orch.Run(context.Background()) })

	assert.Equal(t, OutcomeOperationalFailure, res.Outcome)
	assert.ErrorIs(t, res.Err, errPanic)
	assert.Contains(t, res.Error, "operational failure during generate")
	assert.Contains(t, res.Error, "generator exploded")
	assert.Len(t, h.repos.cleanupCalls(), 1)
}

func TestRun_CleanupIgnoresCancellation(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())

	h.repos.On("Clone", mock.Anything, mock.Anything).Run(func(mock.Arguments) { cancel() }).
		Return(CloneSet{}, context.Canceled)
	h.repos.On("Cleanup", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }), mock.Anything).
		Return(nil)

	res := h.orchestrator(t, mustRequest(t, []string{sourceA})).Run(ctx)

	assert.Equal(t, OutcomeOperationalFailure, res.Outcome)
	assert.ErrorIs(t, res.Err, context.Canceled)
	h.repos.AssertExpectations(t)
}

func TestRun_RepositoriesAnalyzedOnEveryOutcome(t *testing.T) {
	for _, sources := range [][]string{nil, {sourceA}, {sourceA, sourceB}} {
		h := newHarness()
		h.repos.On("Clone", mock.Anything, mock.Anything).Return(CloneSet{}, errors.New("offline"))
		h.repos.On("Cleanup", mock.Anything, mock.Anything).Return(nil)

		res := h.orchestrator(t, mustRequest(t, sources)).Run(context.Background())

		assert.Equal(t, len(sources)+1, res.RepositoriesAnalyzed)
	}
}

func TestRun_ProgressEvents(t *testing.T) {
	h := newHarness()
	h.repos.On("Clone", mock.Anything, mock.Anything).Return(fullSet, nil)
	h.synth.On("Synthesize", mock.Anything, mock.Anything).Return(&domain.Knowledge{}, nil)
	h.gen.On("Generate", mock.Anything, mock.Anything).Return(improvementsN(1), nil)
	h.repos.On("Apply", mock.Anything, mock.Anything).Return(improvementsN(1), nil)
	h.repos.On("Cleanup", mock.Anything, mock.Anything).Return(nil)

	res := h.orchestrator(t, mustRequest(t, []string{sourceA, sourceB})).Run(context.Background())

	var got []string
	for _, e := range h.events {
		assert.Equal(t, res.RunID, e.RunID)
		got = append(got, string(e.Stage)+":"+string(e.Status))
	}
	assert.Equal(t, []string{
		"clone:started", "clone:completed",
		"synthesize:started", "synthesize:completed",
		"generate:started", "generate:completed",
		"apply:started", "apply:completed",
		"cleanup:started", "cleanup:completed",
	}, got)
}

func TestRun_Spans(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	h := newHarness()
	h.repos.On("Clone", mock.Anything, mock.Anything).Return(fullSet, nil)
	h.synth.On("Synthesize", mock.Anything, mock.Anything).Return(nil, errors.New("index unavailable"))
	h.repos.On("Cleanup", mock.Anything, mock.Anything).Return(nil)

	res := h.orchestrator(t, mustRequest(t, []string{sourceA, sourceB}), WithTracer(tt.Tracer("test"))).Run(context.Background())

	require.Equal(t, OutcomeOperationalFailure, res.Outcome)
	tt.AssertSpanExists(t, "pipeline.run")
	tt.AssertSpanExists(t, "pipeline.clone")
	tt.AssertSpanExists(t, "pipeline.cleanup")
	tt.AssertSpanError(t, "pipeline.synthesize")
	tt.AssertSpanError(t, "pipeline.run")
	tt.AssertSpanAttribute(t, "pipeline.run", "outcome", "operational_failure")
	tt.AssertSpanAttribute(t, "pipeline.run", "repositories", int64(3))
	tt.AssertSpanParent(t, "pipeline.run", "pipeline.clone")
	tt.AssertSpanParent(t, "pipeline.run", "pipeline.cleanup")
}

func TestRun_IndependentRuns(t *testing.T) {
	h := newHarness()
	h.repos.On("Clone", mock.Anything, mock.Anything).Return(fullSet, nil)
	h.synth.On("Synthesize", mock.Anything, mock.Anything).Return(&domain.Knowledge{}, nil)
	h.gen.On("Generate", mock.Anything, mock.Anything).Return(nil, nil)
	h.repos.On("Cleanup", mock.Anything, mock.Anything).Return(nil)
	orch := h.orchestrator(t, mustRequest(t, []string{sourceA, sourceB}))

	first := orch.Run(context.Background())
	second := orch.Run(context.Background())

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Len(t, h.repos.cleanupCalls(), 2)
	h.repos.AssertNumberOfCalls(t, "Clone", 2)
}
