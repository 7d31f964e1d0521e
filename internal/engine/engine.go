package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/syncedhp/internal/store"
)

// Engine connects host events and administrative commands to the group
// registry.
//
// Thread-safety model:
//   - Handle* and admin methods: safe from any goroutine
//   - Start/Stop: called once each by the owner
//
// An engine whose startup load fails stays disabled: admin methods return
// DISABLED and event handlers do nothing until the document is repaired
// and a new engine is started.
type Engine struct {
	store    *store.Store
	host     Host
	registry *Registry
	opts     options
	logger   *slog.Logger

	mu       sync.Mutex
	started  bool
	loadErr  error
	ctx      context.Context
	cancel   context.CancelFunc
	watchers sync.WaitGroup

	// active counts running watchers; idle is closed when it drops to zero.
	active int
	idle   chan struct{}
}

// New creates an engine over s. Participants are discovered through host.
func New(s *store.Store, host Host, opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{
		store:    s,
		host:     host,
		registry: newRegistry(s, o),
		opts:     o,
		logger:   o.logger,
	}
}

// Registry returns the engine's group registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Start loads the registry from the store and reconciles the participants
// currently online. On failure the engine is disabled and the load error
// is returned.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}

	if err := e.registry.LoadAll(ctx, e.host.Online()); err != nil {
		e.loadErr = err
		e.logger.Error("startup load failed, engine disabled", "error", err)
		return err
	}

	e.loadErr = nil
	e.ctx, e.cancel = context.WithCancel(context.WithoutCancel(ctx))
	e.started = true
	e.logger.Info("engine started")
	return nil
}

// Stop cancels every respawn watcher and waits for them to exit.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return
	}
	e.started = false
	e.cancel()
	e.mu.Unlock()

	e.watchers.Wait()
	e.logger.Info("engine stopped")
}

// WaitIdle blocks until no respawn watcher is running or ctx is done.
// Watchers started while it waits are waited for as well.
func (e *Engine) WaitIdle(ctx context.Context) error {
	for {
		e.mu.Lock()
		if e.active == 0 {
			e.mu.Unlock()
			return nil
		}
		idle := e.idle
		e.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// watcherStarted and watcherDone track the running watchers. Caller of
// watcherStarted holds e.mu.
func (e *Engine) watcherStarted() {
	if e.active == 0 {
		e.idle = make(chan struct{})
	}
	e.active++
	e.watchers.Add(1)
}

func (e *Engine) watcherDone() {
	e.mu.Lock()
	e.active--
	if e.active == 0 {
		close(e.idle)
	}
	e.mu.Unlock()
	e.watchers.Done()
}

func (e *Engine) ready() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loadErr != nil {
		return disabled(e.loadErr)
	}
	if !e.started {
		return &Error{Code: ErrCodeDisabled, Message: "engine not started"}
	}
	return nil
}

// ignoreRace drops the errors that are expected when host events race with
// administrative changes.
func ignoreRace(err error) error {
	if IsNotAMember(err) {
		return nil
	}
	return err
}

// HandleJoin reconciles a connecting participant with their stored
// membership and resyncs their vitality.
func (e *Engine) HandleJoin(ctx context.Context, p Participant) error {
	if e.ready() != nil {
		return nil
	}
	return ignoreRace(e.registry.Join(ctx, p))
}

// HandleQuit marks a participant offline.
func (e *Engine) HandleQuit(p Participant) error {
	if e.ready() != nil {
		return nil
	}
	return ignoreRace(e.registry.Quit(p))
}

// HandleDamage applies amount of damage to the participant's pool. The
// host has already applied the raw damage to p itself.
func (e *Engine) HandleDamage(ctx context.Context, p Participant, amount float64) error {
	if e.ready() != nil {
		return nil
	}
	_, err := e.registry.ApplyDelta(ctx, p, -amount)
	return ignoreRace(err)
}

// HandleRegain applies a heal to the participant's pool. It returns false
// when the heal was cancelled and the host should cancel it too.
func (e *Engine) HandleRegain(ctx context.Context, p Participant, amount float64, cause RegainCause) (bool, error) {
	if e.ready() != nil {
		return true, nil
	}
	applied, _, err := e.registry.Regain(ctx, p, amount, cause)
	if IsNotAMember(err) {
		return true, nil
	}
	return applied, err
}

// HandleRespawn starts a watcher that restores the pool vitality once the
// host has repositioned p. Participants without a group are ignored.
func (e *Engine) HandleRespawn(p Participant) error {
	if _, ok := e.registry.GroupOf(p.ID()); !ok {
		return nil
	}
	snapshot, err := p.Location()
	if err != nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return nil
	}

	w := &respawnWatcher{
		participant: p,
		snapshot:    snapshot,
		registry:    e.registry,
		interval:    e.opts.pollInterval,
		logger:      e.logger,
		metrics:     e.opts.metrics,
	}
	ctx := e.ctx
	e.watcherStarted()
	go func() {
		defer e.watcherDone()
		outcome := w.run(ctx)
		e.logger.Debug("respawn watcher finished", "participant", p.Name(), "outcome", outcome)
	}()
	e.logger.Debug("respawn watcher started", "participant", p.Name(), "location", snapshot)
	return nil
}

// CreateGroup creates a group at full vitality.
func (e *Engine) CreateGroup(ctx context.Context, name string) (GroupInfo, error) {
	if err := e.ready(); err != nil {
		return GroupInfo{}, err
	}
	return e.registry.Create(ctx, name)
}

// DeleteGroup deletes a group and all its member records.
func (e *Engine) DeleteGroup(ctx context.Context, name string) error {
	if err := e.ready(); err != nil {
		return err
	}
	return e.registry.Delete(ctx, name)
}

// AddParticipant adds the online participant called name to a group.
func (e *Engine) AddParticipant(ctx context.Context, name, groupName string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if _, err := e.registry.Find(groupName); err != nil {
		return err
	}
	p, ok := onlineByName(e.host, normalizeName(name))
	if !ok {
		return notOnline(name)
	}
	return e.registry.Add(ctx, p, groupName)
}

// RemoveParticipant removes the participant called name from their group.
// An online participant is matched by identity, anyone else by stored
// display name.
func (e *Engine) RemoveParticipant(ctx context.Context, name string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if p, ok := onlineByName(e.host, normalizeName(name)); ok {
		return e.registry.Remove(ctx, p)
	}
	return e.registry.RemoveByName(ctx, name)
}

// ListMembers returns the stored members of a group.
func (e *Engine) ListMembers(ctx context.Context, groupName string) ([]MemberInfo, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.registry.Members(ctx, groupName)
}

// Groups returns a snapshot of every group.
func (e *Engine) Groups() ([]GroupInfo, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.registry.Groups(), nil
}
