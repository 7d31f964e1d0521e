package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %v -> %s\n", event.Seq, event.Kind, event.Args, event.Outcome)
		}
	}

	return buf.String()
}

func findGroup(state State, name string) (GroupState, int, bool) {
	for i, g := range state.Groups {
		if g.Name == name {
			return g, i, true
		}
	}
	return GroupState{}, -1, false
}

func missingGroup(assertion Assertion, trace []TraceEvent) error {
	return &AssertionError{
		Type:     assertion.Type,
		Expected: fmt.Sprintf("group %q to exist", assertion.Group),
		Actual:   "no such group",
		Trace:    trace,
	}
}

// assertGroupVitality checks the pool vitality of a group.
func assertGroupVitality(result *Result, assertion Assertion) error {
	g, _, ok := findGroup(result.State, assertion.Group)
	if !ok {
		return missingGroup(assertion, result.Trace)
	}
	if g.Vitality != *assertion.Value {
		return &AssertionError{
			Type:     AssertGroupVitality,
			Expected: fmt.Sprintf("group %q at %v", assertion.Group, *assertion.Value),
			Actual:   fmt.Sprintf("%v", g.Vitality),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertParticipantVitality checks a participant's own vitality.
func assertParticipantVitality(result *Result, assertion Assertion) error {
	v, ok := result.State.Participants[assertion.Participant]
	if !ok {
		return &AssertionError{
			Type:     AssertParticipantVitality,
			Expected: fmt.Sprintf("participant %q to exist", assertion.Participant),
			Actual:   "no such participant",
			Trace:    result.Trace,
		}
	}
	if v != *assertion.Value {
		return &AssertionError{
			Type:     AssertParticipantVitality,
			Expected: fmt.Sprintf("participant %q at %v", assertion.Participant, *assertion.Value),
			Actual:   fmt.Sprintf("%v", v),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertMemberCount checks the stored member count of a group.
func assertMemberCount(result *Result, assertion Assertion) error {
	g, _, ok := findGroup(result.State, assertion.Group)
	if !ok {
		return missingGroup(assertion, result.Trace)
	}
	if g.Members != *assertion.Count {
		return &AssertionError{
			Type:     AssertMemberCount,
			Expected: fmt.Sprintf("%d members in %q", *assertion.Count, assertion.Group),
			Actual:   fmt.Sprintf("%d members", g.Members),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertGroupCount checks the number of groups.
func assertGroupCount(result *Result, assertion Assertion) error {
	if n := len(result.State.Groups); n != *assertion.Count {
		return &AssertionError{
			Type:     AssertGroupCount,
			Expected: fmt.Sprintf("%d groups", *assertion.Count),
			Actual:   fmt.Sprintf("%d groups", n),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertGroupIndex checks the stored position of a group.
func assertGroupIndex(result *Result, assertion Assertion) error {
	_, i, ok := findGroup(result.State, assertion.Group)
	if !ok {
		return missingGroup(assertion, result.Trace)
	}
	if i != *assertion.Index {
		return &AssertionError{
			Type:     AssertGroupIndex,
			Expected: fmt.Sprintf("group %q at index %d", assertion.Group, *assertion.Index),
			Actual:   fmt.Sprintf("index %d", i),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertError checks the outcome of one step.
func assertError(result *Result, assertion Assertion) error {
	event, ok := result.StepEvent(*assertion.Step)
	if !ok {
		return fmt.Errorf("error assertion: step %d not in trace", *assertion.Step)
	}
	want := assertion.Code
	if want == "" {
		want = OutcomeOK
	}
	if event.Outcome != want {
		return &AssertionError{
			Type:     AssertError,
			Expected: fmt.Sprintf("step %d (%s) to end with %s", *assertion.Step, event.Kind, want),
			Actual:   event.Outcome,
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertTraceCount checks if the step kind appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Kind == assertion.Kind {
			count++
		}
	}

	if count != *assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", *assertion.Count, assertion.Kind),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertGroupVitality:
			err = assertGroupVitality(result, assertion)
		case AssertParticipantVitality:
			err = assertParticipantVitality(result, assertion)
		case AssertMemberCount:
			err = assertMemberCount(result, assertion)
		case AssertGroupCount:
			err = assertGroupCount(result, assertion)
		case AssertGroupIndex:
			err = assertGroupIndex(result, assertion)
		case AssertError:
			err = assertError(result, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
