package engine

import (
	"time"

	"github.com/google/uuid"
)

// group is the in-memory state of one pool. All fields are guarded by the
// owning Registry's lock.
type group struct {
	name     string
	vitality float64
	members  int
	online   []Participant
}

func (g *group) info() GroupInfo {
	return GroupInfo{
		Name:     g.name,
		Vitality: g.vitality,
		Members:  g.members,
		Online:   len(g.online),
	}
}

func (g *group) addOnline(p Participant) {
	for _, m := range g.online {
		if m.ID() == p.ID() {
			return
		}
	}
	g.online = append(g.online, p)
}

func (g *group) dropOnline(id uuid.UUID) {
	for i, m := range g.online {
		if m.ID() == id {
			g.online = append(g.online[:i], g.online[i+1:]...)
			return
		}
	}
}

// meanSatiation averages the satiation of the online members. The boolean
// is false when nobody is online.
func (g *group) meanSatiation() (float64, bool) {
	if len(g.online) == 0 {
		return 0, false
	}
	total := 0
	for _, m := range g.online {
		total += m.Satiation()
	}
	return float64(total) / float64(len(g.online)), true
}

// GroupInfo is a snapshot of a group.
type GroupInfo struct {
	Name     string  `json:"name"`
	Vitality float64 `json:"vitality"`
	Members  int     `json:"members"`
	Online   int     `json:"online"`
}

// MemberInfo is a snapshot of one persisted member record.
type MemberInfo struct {
	Name      string    `json:"name"`
	ID        uuid.UUID `json:"id"`
	LastLogin time.Time `json:"last_login"`
	Online    bool      `json:"online"`
}
