package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/syncedhp/internal/testutil"
)

var errDisconnected = errors.New("disconnected")

// fakeParticipant records every vitality write so tests can assert that
// propagation skipped it.
type fakeParticipant struct {
	mu        sync.Mutex
	id        uuid.UUID
	name      string
	vitality  float64
	writes    int
	defeated  bool
	satiation int
	location  Location
	gone      bool
}

func newFake(name string) *fakeParticipant {
	return &fakeParticipant{
		id:        uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)),
		name:      name,
		vitality:  MaxVitality,
		satiation: 20,
		location:  Location{World: "world"},
	}
}

func (p *fakeParticipant) ID() uuid.UUID { return p.id }

func (p *fakeParticipant) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

func (p *fakeParticipant) Vitality() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vitality
}

func (p *fakeParticipant) SetVitality(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vitality = v
	p.writes++
}

func (p *fakeParticipant) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

func (p *fakeParticipant) Defeated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.defeated
}

func (p *fakeParticipant) Satiation() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.satiation
}

func (p *fakeParticipant) Location() (Location, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gone {
		return Location{}, errDisconnected
	}
	return p.location, nil
}

func (p *fakeParticipant) set(fn func(p *fakeParticipant)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p)
}

type fakeHost struct {
	mu     sync.Mutex
	online []Participant
}

func (h *fakeHost) Online() []Participant {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Participant(nil), h.online...)
}

func (h *fakeHost) connect(ps ...*fakeParticipant) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, p := range ps {
		h.online = append(h.online, p)
	}
}

func (h *fakeHost) disconnect(p *fakeParticipant) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, o := range h.online {
		if o.ID() == p.ID() {
			h.online = append(h.online[:i], h.online[i+1:]...)
			return
		}
	}
}

func testOptions(clock Clock) []Option {
	return []Option{
		WithLogger(testutil.DiscardLogger()),
		WithClock(clock),
		WithPollInterval(time.Millisecond),
	}
}
