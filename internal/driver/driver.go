// Package driver implements the turn driver: the single entry point that
// wires the Normalizer, Planner, Dispatch Router, Worker Executor,
// Join/Reduce, and Synthesizer into one turn (spec §6 "Driver boundary").
package driver

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/beefkknd/deterministic-planner/internal/dispatch"
	"github.com/beefkknd/deterministic-planner/internal/engine"
	"github.com/beefkknd/deterministic-planner/internal/executor"
	"github.com/beefkknd/deterministic-planner/internal/joinreduce"
	"github.com/beefkknd/deterministic-planner/internal/normalizer"
	"github.com/beefkknd/deterministic-planner/internal/planner"
	"github.com/beefkknd/deterministic-planner/internal/runlog"
	"github.com/beefkknd/deterministic-planner/internal/state"
	"github.com/beefkknd/deterministic-planner/internal/synthesizer"
	"github.com/beefkknd/deterministic-planner/internal/telemetry"
)

// defaultMaxRounds matches the spec's typical default round budget.
const defaultMaxRounds = 10

// TurnResult is what runTurn returns to its caller (spec §6).
type TurnResult struct {
	FinalResponse string
	NewArtifacts  []state.KeyArtifact
	Status        state.StatusLabel
}

// Driver wires the per-turn component chain together. It holds no per-turn
// state itself; RunTurn constructs a fresh PlanState each call.
type Driver struct {
	normalizer  *normalizer.Normalizer
	planner     *planner.Planner
	executor    *executor.Executor
	joinReduce  *joinreduce.JoinReduce
	synthesizer *synthesizer.Synthesizer
	engine      engine.Engine
	runlog      runlog.Store
	logger      telemetry.Logger
	metrics     telemetry.Metrics
	tracer      telemetry.Tracer
}

// New constructs a Driver from its component collaborators. logger, metrics,
// and tracer may be the telemetry package's no-op implementations.
func New(
	norm *normalizer.Normalizer,
	plan *planner.Planner,
	exec *executor.Executor,
	join *joinreduce.JoinReduce,
	synth *synthesizer.Synthesizer,
	eng engine.Engine,
	runlogStore runlog.Store,
	logger telemetry.Logger,
	metrics telemetry.Metrics,
	tracer telemetry.Tracer,
) *Driver {
	return &Driver{
		normalizer:  norm,
		planner:     plan,
		executor:    exec,
		joinReduce:  join,
		synthesizer: synth,
		engine:      eng,
		runlog:      runlogStore,
		logger:      logger,
		metrics:     metrics,
		tracer:      tracer,
	}
}

// RunTurn is the core's sole entry point (spec §6): runTurn(question,
// history, max_rounds) → {final_response, new_artifacts, status}. sessionID
// and turnID scope run-log events; they are not part of the spec's core
// contract but are needed to address a collaborator store.
func (d *Driver) RunTurn(ctx context.Context, sessionID string, turnID int, question string, history []state.TurnSummary, maxRounds int) (TurnResult, error) {
	if maxRounds <= 0 {
		maxRounds = defaultMaxRounds
	}

	ctx, span := d.tracer.Start(ctx, "driver.RunTurn")
	defer span.End()

	turnIDStr := strconv.Itoa(turnID)

	norm := d.normalizer.Normalize(ctx, question, history)
	st := state.PlanState{
		OriginalQuestion: question,
		Question:         norm.Question,
		ConversationHistory: history,
		CompletedOutputs:    map[int]map[string]any{state.ContextSlot: norm.ContextSlots},
		Round:               1,
		MaxRounds:           maxRounds,
		Status:              state.Planning,
		PlannerReasoning:    norm.PlannerReasoning,
	}

	var artifacts []state.KeyArtifact

	var err error
	st, err = d.planner.Plan(ctx, st)
	if err != nil {
		return TurnResult{}, err
	}
	d.appendRoundStarted(ctx, sessionID, turnIDStr, st)

	for {
		route := dispatch.Decide(st)
		switch route {
		case dispatch.RouteSynthesize:
			st, err = d.synthesizer.Synthesize(ctx, st)
			if err != nil {
				return TurnResult{}, err
			}
			d.appendSynthesized(ctx, sessionID, turnIDStr, st)
			return TurnResult{FinalResponse: st.FinalResponse, NewArtifacts: artifacts, Status: st.Status}, nil

		case dispatch.RouteTerminate:
			d.appendFailed(ctx, sessionID, turnIDStr, st)
			return TurnResult{NewArtifacts: artifacts, Status: st.Status}, nil

		case dispatch.RouteDispatch:
			ready := dispatch.Ready(st)
			// traceID correlates every sub-goal completed by this one
			// dispatch round in the run log, since DispatchRound runs them
			// concurrently and their completion order is otherwise
			// unordered with respect to each other.
			traceID := uuid.NewString()
			d.logger.Info(ctx, "driver: dispatching round", "round", st.Round, "ready_count", len(ready), "dispatch_trace_id", traceID)
			results := d.engine.DispatchRound(ctx, ready, func(ctx context.Context, sg state.SubGoal) state.WorkerResult {
				input := dispatch.Hydrate(st, sg)
				result := d.executor.Execute(ctx, input)
				d.appendSubGoalCompleted(ctx, sessionID, turnIDStr, traceID, result)
				return result
			})
			st.WorkerResults = state.MergeWorkerResults(st.WorkerResults, results)
			fallthrough

		case dispatch.RouteJoin:
			st, artifacts = d.joinReduce.Reduce(turnID, st, artifacts)
			d.appendJoinReduced(ctx, sessionID, turnIDStr, st)

			st, err = d.planner.Plan(ctx, st)
			if err != nil {
				return TurnResult{}, err
			}
			d.appendRoundStarted(ctx, sessionID, turnIDStr, st)
		}
	}
}

func (d *Driver) appendRoundStarted(ctx context.Context, sessionID, turnID string, st state.PlanState) {
	d.append(ctx, sessionID, turnID, runlog.EventRoundStarted, map[string]any{"round": st.Round, "status": st.Status})
}

func (d *Driver) appendSubGoalCompleted(ctx context.Context, sessionID, turnID, traceID string, result state.WorkerResult) {
	d.append(ctx, sessionID, turnID, runlog.EventSubGoalCompleted, map[string]any{
		"sub_goal_id":       result.SubGoalID,
		"status":            result.Status,
		"dispatch_trace_id": traceID,
	})
}

func (d *Driver) appendJoinReduced(ctx context.Context, sessionID, turnID string, st state.PlanState) {
	d.append(ctx, sessionID, turnID, runlog.EventJoinReduced, map[string]any{"round": st.Round, "reasoning": st.PlannerReasoning})
}

func (d *Driver) appendSynthesized(ctx context.Context, sessionID, turnID string, st state.PlanState) {
	d.append(ctx, sessionID, turnID, runlog.EventTurnSynthesized, map[string]any{"final_response": st.FinalResponse})
}

func (d *Driver) appendFailed(ctx context.Context, sessionID, turnID string, st state.PlanState) {
	d.append(ctx, sessionID, turnID, runlog.EventTurnFailed, map[string]any{"reasoning": st.PlannerReasoning})
}

func (d *Driver) append(ctx context.Context, sessionID, turnID string, eventType runlog.EventType, payload map[string]any) {
	if d.runlog == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		d.logger.Warn(ctx, "driver: failed to marshal run-log payload", "error", err.Error())
		return
	}
	event := &runlog.Event{
		TurnID:    turnID,
		SessionID: sessionID,
		Type:      eventType,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}
	if err := d.runlog.Append(ctx, event); err != nil {
		d.logger.Warn(ctx, "driver: failed to append run-log event", "error", err.Error())
	}
}
