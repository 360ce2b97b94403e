package apiserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beefkknd/deterministic-planner/internal/driver"
	"github.com/beefkknd/deterministic-planner/internal/engine"
	"github.com/beefkknd/deterministic-planner/internal/executor"
	"github.com/beefkknd/deterministic-planner/internal/joinreduce"
	"github.com/beefkknd/deterministic-planner/internal/llmclient"
	"github.com/beefkknd/deterministic-planner/internal/memory"
	"github.com/beefkknd/deterministic-planner/internal/normalizer"
	"github.com/beefkknd/deterministic-planner/internal/planner"
	"github.com/beefkknd/deterministic-planner/internal/registry"
	"github.com/beefkknd/deterministic-planner/internal/runlog"
	"github.com/beefkknd/deterministic-planner/internal/session"
	"github.com/beefkknd/deterministic-planner/internal/state"
	"github.com/beefkknd/deterministic-planner/internal/synthesizer"
	"github.com/beefkknd/deterministic-planner/internal/telemetry"
)

func newTestDriver(t *testing.T) (*driver.Driver, *llmclient.FakeClient) {
	t.Helper()
	client := llmclient.NewFakeClient()
	reg := registry.New()
	reg.MustRegister(registry.Capability{Name: "common_helpdesk", Outputs: []string{"answer"}, GoalType: string(state.Deliverable), SynthesisMode: registry.Display})

	bodies := executor.NewBodies()
	bodies.Register("common_helpdesk", func(ctx context.Context, input state.WorkerInput) (map[string]any, error) {
		return map[string]any{"answer": "Our support hours are 9-5."}, nil
	})

	norm := normalizer.New(client, telemetry.NewNoopLogger())
	plan := planner.New(client, reg, telemetry.NewNoopLogger())
	exec := executor.New(bodies, telemetry.NewNoopLogger())
	join := joinreduce.New(reg)
	synth := synthesizer.New(client, reg)
	eng := engine.New()

	return driver.New(norm, plan, exec, join, synth, eng, runlog.NewInMemStore(),
		telemetry.NewNoopLogger(), telemetry.NewNoopMetrics(), telemetry.NewNoopTracer()), client
}

func newTestServer(t *testing.T, jwtSecret string) (*Server, *llmclient.FakeClient) {
	t.Helper()
	drv, client := newTestDriver(t)
	srv := New(drv, session.NewInMemStore(), memory.NewInMemStore(), jwtSecret, telemetry.NewNoopLogger(), nil)
	return srv, client
}

func queueHelpdeskTurn(client *llmclient.FakeClient, question string) {
	client.QueueStructured(normalizer.TemplateName(), map[string]any{"question": question})
	client.QueueStructured(planner.TemplateName(), map[string]any{
		"action": "continue",
		"sub_goals": []map[string]any{
			{"worker": "common_helpdesk", "goal_type": "deliverable"},
		},
	})
	client.QueueStructured(planner.TemplateName(), map[string]any{
		"action":    "done",
		"reasoning": "helpdesk answer delivered",
	})
}

func TestHealthz_ReturnsOK(t *testing.T) {
	srv, _ := newTestServer(t, "")
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRunTurn_SucceedsWithoutJWTWhenNoneConfigured(t *testing.T) {
	srv, client := newTestServer(t, "")
	queueHelpdeskTurn(client, "what are your hours?")

	body, _ := json.Marshal(runTurnRequest{Question: "what are your hours?", MaxRounds: 4})
	req := httptest.NewRequest(http.MethodPost, "/sessions/s1/turns", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp runTurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, state.Done, resp.Status)
	assert.NotEmpty(t, resp.FinalResponse)
}

func TestRunTurn_MissingQuestionIsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t, "")
	req := httptest.NewRequest(http.MethodPost, "/sessions/s1/turns", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunTurn_RejectsMissingBearerTokenWhenJWTConfigured(t *testing.T) {
	srv, _ := newTestServer(t, "test-secret")
	body, _ := json.Marshal(runTurnRequest{Question: "hi"})
	req := httptest.NewRequest(http.MethodPost, "/sessions/s1/turns", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRunTurn_RejectsInvalidBearerToken(t *testing.T) {
	srv, _ := newTestServer(t, "test-secret")
	body, _ := json.Marshal(runTurnRequest{Question: "hi"})
	req := httptest.NewRequest(http.MethodPost, "/sessions/s1/turns", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRunTurn_AcceptsValidBearerToken(t *testing.T) {
	srv, client := newTestServer(t, "test-secret")
	queueHelpdeskTurn(client, "what are your hours?")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	body, _ := json.Marshal(runTurnRequest{Question: "what are your hours?", MaxRounds: 4})
	req := httptest.NewRequest(http.MethodPost, "/sessions/s1/turns", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRunTurn_SecondCallInSameSessionAppendsToHistory(t *testing.T) {
	srv, client := newTestServer(t, "")
	queueHelpdeskTurn(client, "what are your hours?")
	queueHelpdeskTurn(client, "what are your hours again?")

	for i := 0; i < 2; i++ {
		body, _ := json.Marshal(runTurnRequest{Question: "what are your hours?", MaxRounds: 4})
		req := httptest.NewRequest(http.MethodPost, "/sessions/s-repeat/turns", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	history, err := srv.memory.History(context.Background(), "s-repeat")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[0].TurnID)
	assert.Equal(t, 2, history[1].TurnID)
}

func TestRunTurn_EndedSessionReturnsConflict(t *testing.T) {
	drv, client := newTestDriver(t)
	sessions := session.NewInMemStore()
	_, err := sessions.CreateSession(context.Background(), "s-ended", time.Now().UTC())
	require.NoError(t, err)
	_, err = sessions.EndSession(context.Background(), "s-ended", time.Now().UTC())
	require.NoError(t, err)

	srv := New(drv, sessions, memory.NewInMemStore(), "", telemetry.NewNoopLogger(), nil)
	queueHelpdeskTurn(client, "hi")

	body, _ := json.Marshal(runTurnRequest{Question: "hi"})
	req := httptest.NewRequest(http.MethodPost, "/sessions/s-ended/turns", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}
