// Package harness runs scenario tests against the vitality engine.
//
// A scenario drives a real engine, backed by an in-memory store, through a
// sequence of host events and administrative commands. A simulated world
// stands in for the host and a deterministic clock stamps member records,
// so the same scenario always produces the same trace.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: shared_damage
//	description: "Damage to one member reaches the other"
//	participants:
//	  - name: Steve
//	  - name: Alex
//	    offline: true
//	document:            # optional seed, imported without validation
//	  Health Bar Count: 0
//	steps:
//	  - create: Alpha
//	  - add: { participant: Steve, group: Alpha }
//	  - damage: { participant: Steve, amount: 5 }
//	  - heal: { participant: Steve, amount: 2, cause: SATIATED }
//	  - respawn: Steve
//	  - restart: true
//	  - create: Alpha
//	    expect: NAME_TAKEN
//	assertions:
//	  - type: group_vitality
//	    group: Alpha
//	    value: 17
//
// Every step sets exactly one action. A step succeeds unless expect names
// the error code it must produce.
//
// # Assertion Types
//
//   - group_vitality: pool vitality of a group
//   - participant_vitality: a participant's own vitality
//   - member_count: stored member count of a group
//   - group_count: number of groups
//   - group_index: stored position of a group
//   - error: outcome of one step, by index
//   - trace_count: number of trace events of a kind
//
// # Golden Traces
//
// Each step appends a trace event (kind, arguments, outcome and a small
// result). RunWithGolden compares the trace and final state against
// testdata/golden/{name}.golden.
package harness
