// Package state defines the plan's data model (spec §3) and its reducer
// semantics (spec §4.1): an append-only plan with fan-out/fan-in where
// parallel branches contribute partial results that are merged
// deterministically regardless of arrival order.
package state

// InputRef is a dependency pointer: read Slot from the completed outputs of
// FromSubGoal. Value semantics; it never owns memory.
type InputRef struct {
	FromSubGoal int
	Slot        string
}

// GoalType classifies a SubGoal. Only Deliverable sub-goals may contribute to
// the final answer by default (spec glossary).
type GoalType string

const (
	// Support sub-goals exist to produce intermediate data for other sub-goals.
	Support GoalType = "support"
	// Deliverable sub-goals may be selected by the Synthesizer.
	Deliverable GoalType = "deliverable"
)

// Status is the lifecycle state of a SubGoal. Once a SubGoal leaves Pending
// it never returns to Pending (spec §3 invariant).
type Status string

const (
	Pending Status = "pending"
	Success Status = "success"
	Failed  Status = "failed"
)

// SubGoal is the unit of work: a planner-emitted instruction bound to one
// registered worker, wired to its dependencies via InputRef.
type SubGoal struct {
	// ID is monotonically increasing and unique within a turn. 0 is reserved
	// for the Normalizer's synthetic context slot table and is never assigned
	// to a planner-created SubGoal.
	ID int

	Worker      string
	Description string

	// Inputs maps a local input name to the InputRef it resolves from.
	Inputs map[string]InputRef

	// Params are static, planner-supplied parameters with no dependency
	// resolution (e.g. bundles_with_sub_goal).
	Params map[string]any

	// Outputs lists the slot names the registry declares this worker
	// produces. Copied from the registry at creation time so pre-execution
	// reference checking does not need a registry lookup later.
	Outputs []string

	GoalType GoalType
	Status   Status

	// Result holds produced slot values once Status is Success.
	Result map[string]any
	// Error holds a short diagnostic once Status is Failed.
	Error string
}

// WorkerInput is delivered to a worker by the Dispatch Router: the SubGoal
// plus its hydrated (resolved) inputs, one entry per declared InputRef.
type WorkerInput struct {
	SubGoal        SubGoal
	ResolvedInputs map[string]any
}

// WorkerResult is the uniform result record produced by the Worker Executor
// and consumed by Join/Reduce.
type WorkerResult struct {
	SubGoalID int
	Status    Status
	Outputs   map[string]any
	Error     string
	Message   string
}

// TurnSummary records one completed turn for cross-turn conversational memory
// (spec §3, §4.3, §6).
type TurnSummary struct {
	TurnID       int
	HumanMessage string
	AIResponse   string
	KeyArtifacts []KeyArtifact
}

// ArtifactType discriminates the closed set of KeyArtifact kinds the core
// defines; additional types are a forward-compatible string tag (spec §3).
type ArtifactType string

const (
	ArtifactEsQuery        ArtifactType = "es_query"
	ArtifactAnalysisResult ArtifactType = "analysis_result"
)

// KeyArtifact is a cross-turn memory record: {type, sub_goal_id, turn_id,
// intent, slots}. Bit-stable wire shape per spec §6.
type KeyArtifact struct {
	Type      ArtifactType
	SubGoalID int
	TurnID    int
	Intent    string
	Slots     map[string]any
}

// PlanState is the per-turn plan. Mutated only by the components named in
// spec §4; discarded once the Synthesizer completes.
type PlanState struct {
	OriginalQuestion string
	Question         string

	ConversationHistory []TurnSummary

	SubGoals []SubGoal

	// CompletedOutputs maps sub-goal id to its produced slot values. Key 0 is
	// reserved for the Normalizer's context slot table.
	CompletedOutputs map[int]map[string]any

	Round     int
	MaxRounds int

	Status StatusLabel

	FinalResponse string

	// PlannerReasoning is a short trace line updated by every core component.
	PlannerReasoning string

	// SynthesisInputs is set by the planner when it declares done: the named
	// (from, slot) pairs that feed the Synthesizer.
	SynthesisInputs map[string]InputRef

	// WorkerResults is the mergeable accumulator populated by parallel
	// executors and drained by Join/Reduce (spec §4.1, §5).
	WorkerResults []WorkerResult
}

// StatusLabel is the PlanState lifecycle label.
type StatusLabel string

const (
	Planning  StatusLabel = "planning"
	Executing StatusLabel = "executing"
	Done      StatusLabel = "done"
	PlanFailed StatusLabel = "failed"
)

// ContextSlot is the reserved id for the Normalizer's context slot table.
const ContextSlot = 0
