package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/syncedhp/internal/engine"
	"github.com/roach88/syncedhp/internal/sim"
	"github.com/roach88/syncedhp/internal/store"
	"github.com/roach88/syncedhp/internal/testutil"
)

// RespawnTimeout bounds how long a respawn step waits for its watcher.
const RespawnTimeout = 2 * time.Second

// OutcomeTimeout is recorded when a respawn watcher does not finish in time,
// typically because the participant never left the death location.
const OutcomeTimeout = "TIMEOUT"

// Harness is the test execution engine.
// It runs scenarios against a real engine over an in-memory store, with a
// simulated world as host and a deterministic clock.
type Harness struct {
	store  *store.Store
	world  *sim.World
	engine *engine.Engine
	clock  *testutil.DeterministicClock
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
//  1. Create fresh in-memory database and import the seed document
//  2. Spawn participants and start the engine
//  3. Execute steps, recording one trace event each
//  4. Capture final state and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	if scenario.Document.Kind != 0 {
		doc, err := yaml.Marshal(&scenario.Document)
		if err != nil {
			return nil, fmt.Errorf("failed to encode seed document: %w", err)
		}
		if err := st.Import(ctx, bytes.NewReader(doc), nil); err != nil {
			return nil, fmt.Errorf("failed to seed document: %w", err)
		}
	}

	world := sim.NewWorld()
	if err := world.Load(sim.Session{Participants: scenario.Participants}); err != nil {
		return nil, fmt.Errorf("failed to spawn participants: %w", err)
	}

	h := &Harness{
		store:  st,
		world:  world,
		clock:  testutil.NewDeterministicClock(testutil.Epoch, time.Minute),
		logger: testutil.DiscardLogger(),
	}

	result := NewResult()
	h.start(ctx, result)
	defer func() { h.engine.Stop() }()

	for i, step := range scenario.Steps {
		event, err := h.execute(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		result.AddTrace(event.Kind, event.Args, event.Outcome, event.Result)

		if want := expectedOutcome(step); event.Outcome != want {
			result.AddError(fmt.Sprintf("step %d (%s): expected outcome %s, got %s", i, event.Kind, want, event.Outcome))
		}
	}

	h.captureState(result)

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}

// start creates a fresh engine over the harness store and records the
// outcome of its startup load.
func (h *Harness) start(ctx context.Context, result *Result) {
	h.engine = engine.New(h.store, h.world,
		engine.WithClock(h.clock),
		engine.WithLogger(h.logger),
		engine.WithPollInterval(time.Millisecond),
	)
	err := h.engine.Start(ctx)
	result.AddTrace(KindStart, nil, outcomeOf(err), h.groupsResult())
}

// execute runs one step and describes it as a trace event.
// Engine errors become the outcome; only harness failures are returned.
func (h *Harness) execute(ctx context.Context, step Step) (TraceEvent, error) {
	kind, err := step.Kind()
	if err != nil {
		return TraceEvent{}, err
	}
	event := TraceEvent{Kind: kind}
	eng := h.engine

	switch kind {
	case KindCreate:
		event.Args = map[string]any{"group": step.Create}
		info, err := eng.CreateGroup(ctx, step.Create)
		event.Outcome = outcomeOf(err)
		if err == nil {
			event.Result = map[string]any{"pool": info.Vitality}
		}

	case KindDelete:
		event.Args = map[string]any{"group": step.Delete}
		event.Outcome = outcomeOf(eng.DeleteGroup(ctx, step.Delete))

	case KindAdd:
		event.Args = map[string]any{"participant": step.Add.Participant, "group": step.Add.Group}
		event.Outcome = outcomeOf(eng.AddParticipant(ctx, step.Add.Participant, step.Add.Group))
		if p, ok := h.world.ByName(step.Add.Participant); ok {
			event.Result = map[string]any{"vitality": p.Vitality()}
		}

	case KindRemove:
		event.Args = map[string]any{"participant": step.Remove}
		event.Outcome = outcomeOf(eng.RemoveParticipant(ctx, step.Remove))

	case KindList:
		event.Args = map[string]any{"group": step.List}
		members, err := eng.ListMembers(ctx, step.List)
		event.Outcome = outcomeOf(err)
		if err == nil {
			names := make([]string, 0, len(members))
			for _, m := range members {
				names = append(names, m.Name)
			}
			event.Result = map[string]any{"members": names}
		}

	case KindJoin:
		p, err := h.participant(step.Join)
		if err != nil {
			return TraceEvent{}, err
		}
		event.Args = map[string]any{"participant": step.Join}
		event.Outcome = outcomeOf(h.world.Join(ctx, eng, p))
		event.Result = h.vitalities(p)

	case KindQuit:
		p, err := h.participant(step.Quit)
		if err != nil {
			return TraceEvent{}, err
		}
		event.Args = map[string]any{"participant": step.Quit}
		event.Outcome = outcomeOf(h.world.Quit(eng, p))

	case KindDamage:
		p, err := h.participant(step.Damage.Participant)
		if err != nil {
			return TraceEvent{}, err
		}
		event.Args = map[string]any{"participant": step.Damage.Participant, "amount": step.Damage.Amount}
		event.Outcome = outcomeOf(h.world.Damage(ctx, eng, p, step.Damage.Amount))
		event.Result = h.vitalities(p)

	case KindHeal:
		p, err := h.participant(step.Heal.Participant)
		if err != nil {
			return TraceEvent{}, err
		}
		cause := step.Heal.Cause
		if cause == "" {
			cause = engine.CauseMagic
		}
		event.Args = map[string]any{"participant": step.Heal.Participant, "amount": step.Heal.Amount, "cause": string(cause)}
		applied, err := h.world.Heal(ctx, eng, p, step.Heal.Amount, cause)
		event.Outcome = outcomeOf(err)
		event.Result = h.vitalities(p)
		event.Result["applied"] = applied

	case KindRespawn:
		p, err := h.participant(step.Respawn)
		if err != nil {
			return TraceEvent{}, err
		}
		event.Args = map[string]any{"participant": step.Respawn}
		event.Outcome = outcomeOf(h.respawn(ctx, p))
		event.Result = h.vitalities(p)

	case KindMove:
		p, err := h.participant(step.Move.Participant)
		if err != nil {
			return TraceEvent{}, err
		}
		event.Args = map[string]any{"participant": step.Move.Participant, "world": step.Move.Location.World}
		p.MoveTo(step.Move.Location)
		event.Outcome = OutcomeOK

	case KindRename:
		p, err := h.participant(step.Rename.Participant)
		if err != nil {
			return TraceEvent{}, err
		}
		event.Args = map[string]any{"participant": step.Rename.Participant, "name": step.Rename.Name}
		p.Rename(step.Rename.Name)
		event.Outcome = OutcomeOK

	case KindRestart:
		eng.Stop()
		restart := NewResult()
		h.start(ctx, restart)
		event.Outcome = restart.Trace[0].Outcome
		event.Result = restart.Trace[0].Result
	}

	return event, nil
}

// respawn plays the host's respawn sequence and waits for the watcher.
func (h *Harness) respawn(ctx context.Context, p *sim.Participant) error {
	if err := h.world.Respawn(h.engine, p); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, RespawnTimeout)
	defer cancel()
	return h.engine.WaitIdle(waitCtx)
}

func (h *Harness) participant(name string) (*sim.Participant, error) {
	p, ok := h.world.ByName(name)
	if !ok {
		return nil, fmt.Errorf("unknown participant %q", name)
	}
	return p, nil
}

// vitalities reports p's own vitality and, when grouped, its pool.
func (h *Harness) vitalities(p *sim.Participant) map[string]any {
	out := map[string]any{"vitality": p.Vitality()}
	if info, ok := h.engine.Registry().GroupOf(p.ID()); ok {
		out["pool"] = info.Vitality
	}
	return out
}

func (h *Harness) groupsResult() map[string]any {
	groups, err := h.engine.Groups()
	if err != nil {
		return nil
	}
	return map[string]any{"groups": len(groups)}
}

// captureState records final group and participant vitalities.
func (h *Harness) captureState(result *Result) {
	result.State.Groups = []GroupState{}
	if groups, err := h.engine.Groups(); err == nil {
		for _, g := range groups {
			result.State.Groups = append(result.State.Groups, GroupState{
				Name:     g.Name,
				Vitality: g.Vitality,
				Members:  g.Members,
			})
		}
	}
	for _, p := range h.world.All() {
		result.State.Participants[p.Name()] = p.Vitality()
	}
}

// outcomeOf maps an error to its trace outcome.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	}
	if code := engine.CodeOf(err); code != "" {
		return string(code)
	}
	return "ERROR"
}

func expectedOutcome(step Step) string {
	if step.Expect == "" {
		return OutcomeOK
	}
	return step.Expect
}
