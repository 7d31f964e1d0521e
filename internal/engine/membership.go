package engine

import (
	"github.com/google/uuid"

	"github.com/roach88/syncedhp/internal/store"
)

// Slot addresses one persisted member record.
type Slot struct {
	Group  int
	Member int
}

// Resolver maps participants to persisted member slots.
//
// Lookups are linear scans over the stored document. Groups and members
// number in the tens, so a scan per operation costs less than keeping a
// second persisted index consistent with the document.
type Resolver struct {
	rec records
}

// NewResolver returns a resolver reading through tx.
func NewResolver(tx *store.Tx) *Resolver {
	return &Resolver{rec: records{tx: tx}}
}

// scan visits every stored member in document order. visit returns false
// to stop early.
func (r *Resolver) scan(visit func(Slot, memberRecord) bool) error {
	groups, err := r.rec.groupCount()
	if err != nil {
		return err
	}
	for i := 0; i < groups; i++ {
		members, err := r.rec.memberCount(i)
		if err != nil {
			return err
		}
		for j := 0; j < members; j++ {
			m, err := r.rec.member(i, j)
			if err != nil {
				return err
			}
			if !visit(Slot{Group: i, Member: j}, m) {
				return nil
			}
		}
	}
	return nil
}

// IndexOf returns the slot holding id, or a NOT_A_MEMBER error.
func (r *Resolver) IndexOf(id uuid.UUID) (Slot, error) {
	var (
		found Slot
		ok    bool
	)
	err := r.scan(func(s Slot, m memberRecord) bool {
		if m.ID == id {
			found, ok = s, true
			return false
		}
		return true
	})
	if err != nil {
		return Slot{}, err
	}
	if !ok {
		return Slot{}, notAMember(id.String())
	}
	return found, nil
}

// IndicesOf returns every slot whose display name equals name, in document
// order. Display names are not unique.
func (r *Resolver) IndicesOf(name string) ([]Slot, error) {
	name = normalizeName(name)
	var slots []Slot
	err := r.scan(func(s Slot, m memberRecord) bool {
		if m.Name == name {
			slots = append(slots, s)
		}
		return true
	})
	return slots, err
}

// ResolveRemoval picks the slot to delete when removing an offline
// participant by display name: the record with the most recent
// last-transition time. On equal times the first record in document
// order is chosen.
func (r *Resolver) ResolveRemoval(name string) (Slot, memberRecord, error) {
	slots, err := r.IndicesOf(name)
	if err != nil {
		return Slot{}, memberRecord{}, err
	}
	if len(slots) == 0 {
		return Slot{}, memberRecord{}, notAMember(name)
	}

	var (
		best    Slot
		bestRec memberRecord
	)
	for i, s := range slots {
		m, err := r.rec.member(s.Group, s.Member)
		if err != nil {
			return Slot{}, memberRecord{}, err
		}
		if i == 0 || bestRec.LastLogin.Before(m.LastLogin) {
			best, bestRec = s, m
		}
	}
	return best, bestRec, nil
}
