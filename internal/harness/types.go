package harness

// Outcome recorded for a step that returned no error.
const OutcomeOK = "ok"

// TraceEvent records one scenario step.
// Seq 0 is the engine start; step i of the scenario is recorded at Seq i+1.
type TraceEvent struct {
	Seq     int            `json:"seq"`
	Kind    string         `json:"kind"`
	Args    map[string]any `json:"args,omitempty"`
	Outcome string         `json:"outcome"`
	Result  map[string]any `json:"result,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step matched its expected outcome and all assertions held.
	Pass bool `json:"pass"`

	// Trace contains one event per step, preceded by the start event.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State holds the final group and participant vitalities.
	State State `json:"state"`
}

// State is the final state captured after the last step.
type State struct {
	Groups       []GroupState       `json:"groups"`
	Participants map[string]float64 `json:"participants"`
}

// GroupState is the stored state of one group.
type GroupState struct {
	Name     string  `json:"name"`
	Vitality float64 `json:"vitality"`
	Members  int     `json:"members"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:  true,
		Trace: []TraceEvent{},
		State: State{Participants: make(map[string]float64)},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a trace event with the next sequence number.
func (r *Result) AddTrace(kind string, args map[string]any, outcome string, result map[string]any) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:     len(r.Trace),
		Kind:    kind,
		Args:    args,
		Outcome: outcome,
		Result:  result,
	})
}

// StepEvent returns the trace event of scenario step i.
func (r *Result) StepEvent(i int) (TraceEvent, bool) {
	if i < 0 || i+1 >= len(r.Trace) {
		return TraceEvent{}, false
	}
	return r.Trace[i+1], true
}
