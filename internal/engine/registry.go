package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/syncedhp/internal/metrics"
	"github.com/roach88/syncedhp/internal/store"
)

// Registry is the authoritative list of groups.
//
// One RWMutex guards the group list, every group's fields and the online
// index. Mutations hold the write lock across their store transaction, so
// create, delete, add, remove and delta application are atomic with
// respect to each other.
type Registry struct {
	store   *store.Store
	clock   Clock
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	groups []*group
	online map[uuid.UUID]*group
}

// NewRegistry returns an empty registry backed by s. Call LoadAll before use.
func NewRegistry(s *store.Store, opts ...Option) *Registry {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return newRegistry(s, o)
}

func newRegistry(s *store.Store, o options) *Registry {
	return &Registry{
		store:   s,
		clock:   o.clock,
		logger:  o.logger,
		metrics: o.metrics,
		online:  make(map[uuid.UUID]*group),
	}
}

// lookup returns the group named name and its index. Caller holds the lock.
func (r *Registry) lookup(name string) (*group, int) {
	for i, g := range r.groups {
		if g.name == name {
			return g, i
		}
	}
	return nil, -1
}

func (r *Registry) indexOf(g *group) int {
	for i, c := range r.groups {
		if c == g {
			return i
		}
	}
	return -1
}

// groupAt returns the in-memory group for a stored index after checking
// that both views agree on its name.
func (r *Registry) groupAt(rec records, i int) (*group, error) {
	if i < 0 || i >= len(r.groups) {
		return nil, corrupted(groupPath(i), "index outside the %d loaded groups", len(r.groups))
	}
	g := r.groups[i]
	if err := rec.checkGroup(i, g.name); err != nil {
		return nil, err
	}
	return g, nil
}

func (r *Registry) dropOnline(id uuid.UUID) {
	if g, ok := r.online[id]; ok {
		g.dropOnline(id)
		delete(r.online, id)
	}
}

// LoadAll rebuilds the registry from the stored document and reconciles the
// given online participants with their persisted membership. An absent
// group counter is initialised to zero; any other structural problem is a
// CORRUPTED_STORE error and leaves the registry empty.
func (r *Registry) LoadAll(ctx context.Context, online []Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.groups = nil
	r.online = make(map[uuid.UUID]*group)
	r.metrics.SetGroups(0)

	var doc []groupRecord
	err := r.store.Update(ctx, func(tx *store.Tx) error {
		_, found, err := tx.Get(KeyGroupCount)
		if err != nil {
			return corruptedCause(KeyGroupCount, err)
		}
		if !found {
			if err := (records{tx: tx}).setCount(KeyGroupCount, 0); err != nil {
				return err
			}
		}
		doc, err = readDocument(records{tx: tx})
		return err
	})
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	owner := make(map[uuid.UUID]*group)
	for _, rec := range doc {
		g := &group{name: rec.Name, vitality: rec.Vitality, members: len(rec.Members)}
		for _, m := range rec.Members {
			owner[m.ID] = g
		}
		r.groups = append(r.groups, g)
	}

	reconciled := 0
	for _, p := range online {
		g, ok := owner[p.ID()]
		if !ok {
			continue
		}
		g.addOnline(p)
		r.online[p.ID()] = g
		reconciled++
	}

	r.metrics.SetGroups(len(r.groups))
	r.logger.Info("registry loaded", "groups", len(r.groups), "reconciled", reconciled)
	return nil
}

// readDocument reads and validates every group. The group counter must be
// present.
func readDocument(rec records) ([]groupRecord, error) {
	n, err := rec.groupCount()
	if err != nil {
		return nil, err
	}

	names := make(map[string]int, n)
	ids := make(map[uuid.UUID]Slot)
	doc := make([]groupRecord, 0, n)
	for i := 0; i < n; i++ {
		g, err := rec.group(i)
		if err != nil {
			return nil, err
		}
		if prev, dup := names[g.Name]; dup {
			return nil, corrupted(groupPath(i), "duplicate group name %q (also %s)", g.Name, groupPath(prev))
		}
		names[g.Name] = i
		for j, m := range g.Members {
			if prev, dup := ids[m.ID]; dup {
				return nil, corrupted(memberPath(i, j), "identity %s already stored at %s", m.ID, memberPath(prev.Group, prev.Member))
			}
			ids[m.ID] = Slot{Group: i, Member: j}
		}
		doc = append(doc, g)
	}

	extra, err := rec.tx.Exists(groupPath(n))
	if err != nil {
		return nil, corruptedCause(groupPath(n), err)
	}
	if extra {
		return nil, corrupted(groupPath(n), "group beyond %s %d", KeyGroupCount, n)
	}
	return doc, nil
}

// Verify checks a stored document without loading it. It returns the
// number of groups. A document with no group counter is empty.
func Verify(ctx context.Context, s *store.Store) (int, error) {
	var groups int
	err := s.View(ctx, func(tx *store.Tx) error {
		_, found, err := tx.Get(KeyGroupCount)
		if err != nil {
			return corruptedCause(KeyGroupCount, err)
		}
		if !found {
			return nil
		}
		doc, err := readDocument(records{tx: tx})
		groups = len(doc)
		return err
	})
	return groups, err
}

// Create adds a group at full vitality with no members.
func (r *Registry) Create(ctx context.Context, name string) (GroupInfo, error) {
	name = normalizeName(name)
	if name == "" {
		return GroupInfo{}, invalidName("group")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if g, _ := r.lookup(name); g != nil {
		return GroupInfo{}, nameTaken(name)
	}

	i := len(r.groups)
	err := r.store.Update(ctx, func(tx *store.Tx) error {
		rec := records{tx: tx}
		n, err := rec.groupCount()
		if err != nil {
			return err
		}
		if n != i {
			return corrupted(KeyGroupCount, "holds %d, registry has %d groups", n, i)
		}
		if err := rec.putGroup(i, name, MaxVitality); err != nil {
			return err
		}
		return rec.setCount(KeyGroupCount, n+1)
	})
	if err != nil {
		return GroupInfo{}, fmt.Errorf("create group %q: %w", name, err)
	}

	g := &group{name: name, vitality: MaxVitality}
	r.groups = append(r.groups, g)
	r.metrics.SetGroups(len(r.groups))
	r.logger.Info("group created", "group", name, "index", i)
	return g.info(), nil
}

// Find returns a snapshot of the named group.
func (r *Registry) Find(name string) (GroupInfo, error) {
	name = normalizeName(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	g, _ := r.lookup(name)
	if g == nil {
		return GroupInfo{}, notFound(name)
	}
	return g.info(), nil
}

// Delete removes the named group and its members, shifting every later
// group down one index.
func (r *Registry) Delete(ctx context.Context, name string) error {
	name = normalizeName(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	g, i := r.lookup(name)
	if g == nil {
		return notFound(name)
	}

	err := r.store.Update(ctx, func(tx *store.Tx) error {
		rec := records{tx: tx}
		if err := rec.checkGroup(i, name); err != nil {
			return err
		}
		n, err := rec.groupCount()
		if err != nil {
			return err
		}
		if err := compact(tx, groupPath, i, n); err != nil {
			return err
		}
		return rec.setCount(KeyGroupCount, n-1)
	})
	if err != nil {
		return fmt.Errorf("delete group %q: %w", name, err)
	}

	r.groups = append(r.groups[:i], r.groups[i+1:]...)
	for _, p := range g.online {
		delete(r.online, p.ID())
	}
	g.online = nil
	r.metrics.SetGroups(len(r.groups))
	r.logger.Info("group deleted", "group", name, "index", i, "members", g.members)
	return nil
}

// Groups returns a snapshot of every group in index order.
func (r *Registry) Groups() []GroupInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]GroupInfo, len(r.groups))
	for i, g := range r.groups {
		out[i] = g.info()
	}
	return out
}

// Members lists the persisted member records of the named group, online or
// not, in slot order.
func (r *Registry) Members(ctx context.Context, name string) ([]MemberInfo, error) {
	name = normalizeName(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	g, i := r.lookup(name)
	if g == nil {
		return nil, notFound(name)
	}

	var out []MemberInfo
	err := r.store.View(ctx, func(tx *store.Tx) error {
		rec := records{tx: tx}
		if err := rec.checkGroup(i, name); err != nil {
			return err
		}
		n, err := rec.memberCount(i)
		if err != nil {
			return err
		}
		out = make([]MemberInfo, 0, n)
		for j := 0; j < n; j++ {
			m, err := rec.member(i, j)
			if err != nil {
				return err
			}
			out = append(out, MemberInfo{
				Name:      m.Name,
				ID:        m.ID,
				LastLogin: m.LastLogin,
				Online:    r.online[m.ID] == g,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list members of %q: %w", name, err)
	}
	return out, nil
}

// Add stores p as the newest member of the named group and sets p's
// vitality to the group's. p must not belong to any group.
func (r *Registry) Add(ctx context.Context, p Participant, groupName string) error {
	groupName = normalizeName(groupName)

	r.mu.Lock()
	defer r.mu.Unlock()

	g, i := r.lookup(groupName)
	if g == nil {
		return notFound(groupName)
	}
	if cur, ok := r.online[p.ID()]; ok {
		return alreadyMember(p.Name(), cur.name)
	}

	err := r.store.Update(ctx, func(tx *store.Tx) error {
		rec := records{tx: tx}
		slot, err := NewResolver(tx).IndexOf(p.ID())
		switch {
		case err == nil:
			owner, _ := rec.groupName(slot.Group)
			return alreadyMember(p.Name(), owner)
		case !IsNotAMember(err):
			return err
		}

		if err := rec.checkGroup(i, groupName); err != nil {
			return err
		}
		n, err := rec.memberCount(i)
		if err != nil {
			return err
		}
		m := memberRecord{Name: normalizeName(p.Name()), ID: p.ID(), LastLogin: r.clock.Now()}
		if err := rec.putMember(i, n, m); err != nil {
			return err
		}
		return rec.setCount(store.Join(groupPath(i), KeyMemberCount), n+1)
	})
	if err != nil {
		return fmt.Errorf("add %q to %q: %w", p.Name(), groupName, err)
	}

	g.members++
	g.addOnline(p)
	r.online[p.ID()] = g
	p.SetVitality(g.vitality)
	r.logger.Info("participant added", "group", groupName, "participant", p.Name(), "id", p.ID())
	return nil
}

// removeSlot deletes one member record and compacts the group's slots.
func (r *Registry) removeSlot(rec records, slot Slot) (*group, error) {
	g, err := r.groupAt(rec, slot.Group)
	if err != nil {
		return nil, err
	}
	n, err := rec.memberCount(slot.Group)
	if err != nil {
		return nil, err
	}
	path := func(j int) string { return memberPath(slot.Group, j) }
	if err := compact(rec.tx, path, slot.Member, n); err != nil {
		return nil, err
	}
	if err := rec.setCount(store.Join(groupPath(slot.Group), KeyMemberCount), n-1); err != nil {
		return nil, err
	}
	return g, nil
}

// Remove deletes the member record of an online participant.
func (r *Registry) Remove(ctx context.Context, p Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var g *group
	err := r.store.Update(ctx, func(tx *store.Tx) error {
		slot, err := NewResolver(tx).IndexOf(p.ID())
		if IsNotAMember(err) {
			return notAMember(p.Name())
		}
		if err != nil {
			return err
		}
		g, err = r.removeSlot(records{tx: tx}, slot)
		return err
	})
	if err != nil {
		return fmt.Errorf("remove %q: %w", p.Name(), err)
	}

	g.members--
	r.dropOnline(p.ID())
	r.logger.Info("participant removed", "group", g.name, "participant", p.Name(), "id", p.ID())
	return nil
}

// RemoveByName deletes the member record of a participant who is not
// connected. When several records share the name, the one with the most
// recent last-transition time is removed.
func (r *Registry) RemoveByName(ctx context.Context, name string) error {
	name = normalizeName(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		g       *group
		removed memberRecord
	)
	err := r.store.Update(ctx, func(tx *store.Tx) error {
		slot, m, err := NewResolver(tx).ResolveRemoval(name)
		if err != nil {
			return err
		}
		removed = m
		g, err = r.removeSlot(records{tx: tx}, slot)
		return err
	})
	if err != nil {
		return fmt.Errorf("remove %q: %w", name, err)
	}

	g.members--
	r.dropOnline(removed.ID)
	r.logger.Info("participant removed", "group", g.name, "participant", name, "id", removed.ID, "offline", true)
	return nil
}

// Join marks p online in its persisted group, refreshes the stored display
// name and timestamp, and sets p's vitality to the group's.
func (r *Registry) Join(ctx context.Context, p Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var g *group
	err := r.store.Update(ctx, func(tx *store.Tx) error {
		slot, err := NewResolver(tx).IndexOf(p.ID())
		if IsNotAMember(err) {
			return notAMember(p.Name())
		}
		if err != nil {
			return err
		}
		rec := records{tx: tx}
		if g, err = r.groupAt(rec, slot.Group); err != nil {
			return err
		}
		return rec.touchMember(slot.Group, slot.Member, normalizeName(p.Name()), r.clock.Now())
	})
	if err != nil {
		return fmt.Errorf("join %q: %w", p.Name(), err)
	}

	if prev, ok := r.online[p.ID()]; ok && prev != g {
		prev.dropOnline(p.ID())
	}
	g.addOnline(p)
	r.online[p.ID()] = g
	p.SetVitality(g.vitality)
	r.logger.Debug("participant joined", "group", g.name, "participant", p.Name(), "vitality", g.vitality)
	return nil
}

// Quit marks p offline. Only the in-memory online list changes.
func (r *Registry) Quit(p Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.online[p.ID()]; !ok {
		return notAMember(p.Name())
	}
	r.dropOnline(p.ID())
	return nil
}

// GroupOf returns the group an online participant belongs to.
func (r *Registry) GroupOf(id uuid.UUID) (GroupInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.online[id]
	if !ok {
		return GroupInfo{}, false
	}
	return g.info(), true
}

// VitalityOf returns the pool vitality of an online participant's group.
func (r *Registry) VitalityOf(id uuid.UUID) (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.online[id]
	if !ok {
		return 0, false
	}
	return g.vitality, true
}
