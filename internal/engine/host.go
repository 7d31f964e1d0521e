package engine

import "github.com/google/uuid"

// MaxVitality is the upper bound of every pool.
const MaxVitality = 20.0

// SatiationThreshold is the minimum mean satiation a group needs for
// passive regeneration to apply.
const SatiationThreshold = 18.0

// Participant is the host's view of one online participant.
//
// Implementations must be safe for concurrent use: respawn watchers read
// Location from their own goroutines.
type Participant interface {
	ID() uuid.UUID
	Name() string
	Vitality() float64
	SetVitality(v float64)

	// Defeated reports the participant is dead and has not respawned yet.
	Defeated() bool

	// Satiation is the participant's food level on a 0..20 scale.
	Satiation() int

	// Location fails once the participant is no longer connected.
	Location() (Location, error)
}

// Host lists the participants currently connected.
type Host interface {
	Online() []Participant
}

// Location is a participant position. Two locations are equal when every
// field is equal.
type Location struct {
	World string  `json:"world" yaml:"world"`
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
	Z     float64 `json:"z" yaml:"z"`
	Yaw   float64 `json:"yaw,omitempty" yaml:"yaw,omitempty"`
	Pitch float64 `json:"pitch,omitempty" yaml:"pitch,omitempty"`
}

// RegainCause names why a participant regains vitality.
type RegainCause string

const (
	// CauseSatiated is passive regeneration from a full food bar.
	CauseSatiated RegainCause = "SATIATED"

	// CauseMagic covers potions and other instant heals.
	CauseMagic RegainCause = "MAGIC"

	// CauseCustom is any other host-defined heal.
	CauseCustom RegainCause = "CUSTOM"
)

// onlineByName finds the online participant whose name equals name after
// NFC normalisation of both sides.
func onlineByName(h Host, name string) (Participant, bool) {
	name = normalizeName(name)
	for _, p := range h.Online() {
		if normalizeName(p.Name()) == name {
			return p, true
		}
	}
	return nil, false
}
