// Package sim provides an in-process host for the engine: a set of
// simulated participants that connect, take damage and respawn.
//
// The CLI uses it to describe who is online when running administrative
// commands; the scenario harness drives it step by step.
package sim

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/roach88/syncedhp/internal/engine"
)

// Spec describes one participant in a session file.
type Spec struct {
	Name      string          `yaml:"name"`
	ID        string          `yaml:"id,omitempty"`
	Satiation *int            `yaml:"satiation,omitempty"`
	Vitality  *float64        `yaml:"vitality,omitempty"`
	Location  engine.Location `yaml:"location,omitempty"`
	Spawn     engine.Location `yaml:"spawn,omitempty"`
	Offline   bool            `yaml:"offline,omitempty"`
}

// Session is the on-disk description of a world.
type Session struct {
	Participants []Spec `yaml:"participants"`
}

// World is a simulated host. It implements engine.Host.
type World struct {
	mu           sync.Mutex
	participants []*Participant
}

var _ engine.Host = (*World)(nil)

// NewWorld creates an empty world.
func NewWorld() *World {
	return &World{}
}

// Spawn registers a participant without connecting it. Participants
// without an ID get a deterministic one derived from their name.
func (w *World) Spawn(spec Spec) (*Participant, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("participant name is required")
	}

	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(spec.Name))
	if spec.ID != "" {
		parsed, err := uuid.Parse(spec.ID)
		if err != nil {
			return nil, fmt.Errorf("participant %q: invalid id: %w", spec.Name, err)
		}
		id = parsed
	}

	p := &Participant{
		id:        id,
		name:      spec.Name,
		vitality:  engine.MaxVitality,
		satiation: 20,
		location:  spec.Location,
		spawn:     spec.Spawn,
	}
	if spec.Satiation != nil {
		p.SetSatiation(*spec.Satiation)
	}
	if spec.Vitality != nil {
		p.SetVitality(*spec.Vitality)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, other := range w.participants {
		if other.id == id {
			return nil, fmt.Errorf("participant %q: id %s already used by %q", spec.Name, id, other.Name())
		}
	}
	w.participants = append(w.participants, p)
	return p, nil
}

// Connect marks p online.
func (w *World) Connect(p *Participant) {
	p.setConnected(true)
}

// Disconnect marks p offline. Its location becomes unreadable.
func (w *World) Disconnect(p *Participant) {
	p.setConnected(false)
}

// Online lists connected participants in spawn order.
func (w *World) Online() []engine.Participant {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []engine.Participant
	for _, p := range w.participants {
		if _, err := p.Location(); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// All lists every participant, online or not, in spawn order.
func (w *World) All() []*Participant {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*Participant(nil), w.participants...)
}

// ByName finds a participant, online or not, by current display name.
func (w *World) ByName(name string) (*Participant, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, p := range w.participants {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// Load spawns every participant of a session, connecting those not marked
// offline.
func (w *World) Load(s Session) error {
	for _, spec := range s.Participants {
		p, err := w.Spawn(spec)
		if err != nil {
			return err
		}
		if !spec.Offline {
			w.Connect(p)
		}
	}
	return nil
}

// LoadSession reads a session YAML file into a new world.
func LoadSession(path string) (*World, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	defer f.Close()

	var s Session
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", path, err)
	}

	w := NewWorld()
	if err := w.Load(s); err != nil {
		return nil, fmt.Errorf("session %s: %w", path, err)
	}
	return w, nil
}
