// Package executor implements the Worker Executor (C6): looks up a worker
// body by name and runs it against one hydrated WorkerInput, producing a
// uniform WorkerResult (spec §4.6).
package executor

import (
	"context"
	"fmt"

	"github.com/beefkknd/deterministic-planner/internal/state"
	"github.com/beefkknd/deterministic-planner/internal/telemetry"
	"github.com/beefkknd/deterministic-planner/internal/werrors"
)

// WorkerFunc is a worker body's executable contract: given a hydrated
// WorkerInput, produce the slots it contributes to completed_outputs, or an
// error. Implementations live in the workers package.
type WorkerFunc func(ctx context.Context, input state.WorkerInput) (map[string]any, error)

// Bodies is the process-wide table of executable worker bodies, keyed by
// the same names used in registry.Registry capability descriptors. It is
// distinct from registry.Registry: the registry describes a worker's
// contract for the Planner/Dispatch/Join/Synthesizer, Bodies supplies the
// callable implementation the Executor invokes.
type Bodies struct {
	funcs map[string]WorkerFunc
}

// NewBodies constructs an empty Bodies table.
func NewBodies() *Bodies {
	return &Bodies{funcs: make(map[string]WorkerFunc)}
}

// Register binds name to fn, overwriting any previous binding.
func (b *Bodies) Register(name string, fn WorkerFunc) {
	b.funcs[name] = fn
}

// Lookup returns the WorkerFunc bound to name.
func (b *Bodies) Lookup(name string) (WorkerFunc, bool) {
	fn, ok := b.funcs[name]
	return fn, ok
}

// Executor is the C6 implementation.
type Executor struct {
	bodies *Bodies
	logger telemetry.Logger
}

// New constructs an Executor over bodies. logger may be telemetry.NoopLogger{}.
func New(bodies *Bodies, logger telemetry.Logger) *Executor {
	return &Executor{bodies: bodies, logger: logger}
}

// Execute runs the worker named by input.SubGoal.Worker. Three failure modes
// produce a failed WorkerResult without invoking the body — empty name,
// unknown name, a panic raised by the body — each preserving the original
// sub-goal id (spec §4.6). Execute never panics.
func (e *Executor) Execute(ctx context.Context, input state.WorkerInput) (result state.WorkerResult) {
	id := input.SubGoal.ID
	name := input.SubGoal.Worker

	if name == "" {
		return failure(id, werrors.New(werrors.KindRouting, "executor: empty worker name"))
	}

	fn, ok := e.bodies.Lookup(name)
	if !ok {
		return failure(id, werrors.Newf(werrors.KindRouting, "executor: unknown worker %q", name))
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error(ctx, "executor: worker body panicked", "worker", name, "sub_goal_id", id, "panic", fmt.Sprint(r))
			result = failure(id, werrors.Newf(werrors.KindWorker, "executor: worker %q panicked: %v", name, r))
		}
	}()

	outputs, err := fn(ctx, input)
	if err != nil {
		return failure(id, werrors.Wrap(werrors.KindWorker, fmt.Sprintf("executor: worker %q failed", name), err))
	}
	return state.WorkerResult{SubGoalID: id, Status: state.Success, Outputs: outputs}
}

func failure(id int, err error) state.WorkerResult {
	return state.WorkerResult{SubGoalID: id, Status: state.Failed, Error: err.Error()}
}
