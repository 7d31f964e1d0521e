package sim

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/syncedhp/internal/engine"
)

// ErrDisconnected is returned by Location once a participant has left.
var ErrDisconnected = errors.New("participant disconnected")

// Participant is a simulated online participant. It applies damage and
// healing to itself the way a game host does before notifying the engine.
//
// Thread-safety: All methods are safe for concurrent use.
type Participant struct {
	id uuid.UUID

	mu        sync.Mutex
	name      string
	vitality  float64
	satiation int
	location  engine.Location
	spawn     engine.Location
	connected bool
}

var _ engine.Participant = (*Participant)(nil)

// ID returns the participant's stable identity.
func (p *Participant) ID() uuid.UUID { return p.id }

// Name returns the current display name.
func (p *Participant) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

// Vitality returns the participant's own vitality.
func (p *Participant) Vitality() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vitality
}

// SetVitality overwrites the participant's vitality, clamped to the pool
// bounds.
func (p *Participant) SetVitality(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vitality = max(0, min(v, engine.MaxVitality))
}

// Defeated reports a participant at zero vitality.
func (p *Participant) Defeated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vitality == 0
}

// Satiation returns the food level.
func (p *Participant) Satiation() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.satiation
}

// SetSatiation sets the food level, clamped to 0..20.
func (p *Participant) SetSatiation(s int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.satiation = max(0, min(s, 20))
}

// Location returns the current position, or ErrDisconnected.
func (p *Participant) Location() (engine.Location, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return engine.Location{}, ErrDisconnected
	}
	return p.location, nil
}

// MoveTo sets the participant's position.
func (p *Participant) MoveTo(loc engine.Location) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.location = loc
}

// Damage subtracts amount from the participant's own vitality.
func (p *Participant) Damage(amount float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vitality = max(0, p.vitality-amount)
}

// Heal adds amount to the participant's own vitality.
func (p *Participant) Heal(amount float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vitality = min(engine.MaxVitality, p.vitality+amount)
}

// Respawn resets vitality to full without moving the participant; call
// Teleport afterwards to finish the respawn.
func (p *Participant) Respawn() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vitality = engine.MaxVitality
}

// Teleport moves the participant to its spawn point.
func (p *Participant) Teleport() {
	p.MoveTo(p.spawnPoint())
}

func (p *Participant) spawnPoint() engine.Location {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.spawn
}

func (p *Participant) setConnected(c bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = c
}

// Rename changes the display name, as when a player renames their account.
func (p *Participant) Rename(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.name = name
}
