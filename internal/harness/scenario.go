package harness

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/syncedhp/internal/engine"
	"github.com/roach88/syncedhp/internal/sim"
)

// Scenario defines an engine test scenario.
// Scenarios drive the engine through host events and administrative
// commands, then assert on the resulting trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Participants are spawned into the simulated world before the engine
	// starts. Those not marked offline are connected.
	Participants []sim.Spec `yaml:"participants,omitempty"`

	// Document optionally seeds the store with a nested document before the
	// engine starts. It is imported without shape validation so scenarios
	// can describe corrupted documents.
	Document yaml.Node `yaml:"document,omitempty"`

	// Steps run in order. Each step sets exactly one action field.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one scenario action.
type Step struct {
	Create  string    `yaml:"create,omitempty"`
	Delete  string    `yaml:"delete,omitempty"`
	Add     *AddStep  `yaml:"add,omitempty"`
	Remove  string    `yaml:"remove,omitempty"`
	List    string    `yaml:"list,omitempty"`
	Join    string    `yaml:"join,omitempty"`
	Quit    string    `yaml:"quit,omitempty"`
	Damage  *Amount   `yaml:"damage,omitempty"`
	Heal    *Amount   `yaml:"heal,omitempty"`
	Respawn string    `yaml:"respawn,omitempty"`
	Move    *MoveStep `yaml:"move,omitempty"`
	Rename  *Rename   `yaml:"rename,omitempty"`
	Restart bool      `yaml:"restart,omitempty"`

	// Expect is the error code the step must produce, or empty for success.
	Expect string `yaml:"expect,omitempty"`
}

// AddStep adds a participant to a group.
type AddStep struct {
	Participant string `yaml:"participant"`
	Group       string `yaml:"group"`
}

// Amount is a damage or heal event.
type Amount struct {
	Participant string             `yaml:"participant"`
	Amount      float64            `yaml:"amount"`
	Cause       engine.RegainCause `yaml:"cause,omitempty"`
}

// MoveStep changes a participant's location.
type MoveStep struct {
	Participant string          `yaml:"participant"`
	Location    engine.Location `yaml:"location"`
}

// Rename changes a participant's display name.
type Rename struct {
	Participant string `yaml:"participant"`
	Name        string `yaml:"name"`
}

// Step kinds, as recorded in the trace.
const (
	KindStart   = "start"
	KindCreate  = "create"
	KindDelete  = "delete"
	KindAdd     = "add"
	KindRemove  = "remove"
	KindList    = "list"
	KindJoin    = "join"
	KindQuit    = "quit"
	KindDamage  = "damage"
	KindHeal    = "heal"
	KindRespawn = "respawn"
	KindMove    = "move"
	KindRename  = "rename"
	KindRestart = "restart"
)

// Kind returns the single action the step sets.
func (s Step) Kind() (string, error) {
	var kinds []string
	set := func(ok bool, kind string) {
		if ok {
			kinds = append(kinds, kind)
		}
	}
	set(s.Create != "", KindCreate)
	set(s.Delete != "", KindDelete)
	set(s.Add != nil, KindAdd)
	set(s.Remove != "", KindRemove)
	set(s.List != "", KindList)
	set(s.Join != "", KindJoin)
	set(s.Quit != "", KindQuit)
	set(s.Damage != nil, KindDamage)
	set(s.Heal != nil, KindHeal)
	set(s.Respawn != "", KindRespawn)
	set(s.Move != nil, KindMove)
	set(s.Rename != nil, KindRename)
	set(s.Restart, KindRestart)

	switch len(kinds) {
	case 0:
		return "", fmt.Errorf("no action set")
	case 1:
		return kinds[0], nil
	default:
		return "", fmt.Errorf("multiple actions set: %v", kinds)
	}
}

// Assertion validates final state or the trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "group_vitality": pool vitality of Group equals Value
	// - "participant_vitality": own vitality of Participant equals Value
	// - "member_count": stored member count of Group equals Count
	// - "group_count": number of groups equals Count
	// - "group_index": Group is stored at Index
	// - "error": step number Step produced error Code ("" for success)
	// - "trace_count": Kind appears exactly Count times in the trace
	Type string `yaml:"type"`

	Group       string   `yaml:"group,omitempty"`
	Participant string   `yaml:"participant,omitempty"`
	Value       *float64 `yaml:"value,omitempty"`
	Count       *int     `yaml:"count,omitempty"`
	Index       *int     `yaml:"index,omitempty"`
	Step        *int     `yaml:"step,omitempty"`
	Code        string   `yaml:"code,omitempty"`
	Kind        string   `yaml:"kind,omitempty"`
}

// Assertion type constants.
const (
	AssertGroupVitality       = "group_vitality"
	AssertParticipantVitality = "participant_vitality"
	AssertMemberCount         = "member_count"
	AssertGroupCount          = "group_count"
	AssertGroupIndex          = "group_index"
	AssertError               = "error"
	AssertTraceCount          = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Document.Kind != 0 && s.Document.Kind != yaml.MappingNode {
		return fmt.Errorf("document must be a mapping")
	}

	names := make(map[string]bool)
	for i, p := range s.Participants {
		if p.Name == "" {
			return fmt.Errorf("participants[%d]: name is required", i)
		}
		if names[p.Name] {
			return fmt.Errorf("participants[%d]: duplicate name %q", i, p.Name)
		}
		names[p.Name] = true
	}

	for i, step := range s.Steps {
		kind, err := step.Kind()
		if err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		if err := validateStep(kind, step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, len(s.Steps)); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(kind string, s Step) error {
	switch kind {
	case KindAdd:
		if s.Add.Participant == "" || s.Add.Group == "" {
			return fmt.Errorf("add: participant and group are required")
		}
	case KindDamage, KindHeal:
		a := s.Damage
		if kind == KindHeal {
			a = s.Heal
		}
		if a.Participant == "" {
			return fmt.Errorf("%s: participant is required", kind)
		}
		if a.Amount < 0 || math.IsNaN(a.Amount) || math.IsInf(a.Amount, 0) {
			return fmt.Errorf("%s: amount must be a finite non-negative number", kind)
		}
	case KindMove:
		if s.Move.Participant == "" {
			return fmt.Errorf("move: participant is required")
		}
	case KindRename:
		if s.Rename.Participant == "" || s.Rename.Name == "" {
			return fmt.Errorf("rename: participant and name are required")
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertGroupVitality:
		if a.Group == "" || a.Value == nil {
			return fmt.Errorf("assertions[%d]: group and value are required for group_vitality", index)
		}
	case AssertParticipantVitality:
		if a.Participant == "" || a.Value == nil {
			return fmt.Errorf("assertions[%d]: participant and value are required for participant_vitality", index)
		}
	case AssertMemberCount:
		if a.Group == "" || a.Count == nil {
			return fmt.Errorf("assertions[%d]: group and count are required for member_count", index)
		}
	case AssertGroupCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for group_count", index)
		}
	case AssertGroupIndex:
		if a.Group == "" || a.Index == nil {
			return fmt.Errorf("assertions[%d]: group and index are required for group_index", index)
		}
	case AssertError:
		if a.Step == nil {
			return fmt.Errorf("assertions[%d]: step is required for error", index)
		}
		if *a.Step < 0 || *a.Step >= steps {
			return fmt.Errorf("assertions[%d]: step %d outside 0..%d", index, *a.Step, steps-1)
		}
	case AssertTraceCount:
		if a.Kind == "" || a.Count == nil {
			return fmt.Errorf("assertions[%d]: kind and count are required for trace_count", index)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
