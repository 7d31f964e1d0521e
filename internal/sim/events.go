package sim

import (
	"context"

	"github.com/roach88/syncedhp/internal/engine"
)

// Handler receives host events. *engine.Engine implements it.
type Handler interface {
	HandleJoin(ctx context.Context, p engine.Participant) error
	HandleQuit(p engine.Participant) error
	HandleDamage(ctx context.Context, p engine.Participant, amount float64) error
	HandleRegain(ctx context.Context, p engine.Participant, amount float64, cause engine.RegainCause) (bool, error)
	HandleRespawn(p engine.Participant) error
}

var _ Handler = (*engine.Engine)(nil)

// Join connects p and reports the join.
func (w *World) Join(ctx context.Context, h Handler, p *Participant) error {
	w.Connect(p)
	return h.HandleJoin(ctx, p)
}

// Quit reports the quit, then disconnects p.
func (w *World) Quit(h Handler, p *Participant) error {
	err := h.HandleQuit(p)
	w.Disconnect(p)
	return err
}

// Damage applies raw damage to p and then reports it. A non-finite amount
// is rejected before p changes.
func (w *World) Damage(ctx context.Context, h Handler, p *Participant, amount float64) error {
	if err := engine.CheckAmount(amount); err != nil {
		return err
	}
	p.Damage(amount)
	return h.HandleDamage(ctx, p, amount)
}

// Heal reports a heal and applies it to p unless the handler cancels it.
func (w *World) Heal(ctx context.Context, h Handler, p *Participant, amount float64, cause engine.RegainCause) (bool, error) {
	if err := engine.CheckAmount(amount); err != nil {
		return false, err
	}
	applied, err := h.HandleRegain(ctx, p, amount, cause)
	if applied {
		p.Heal(amount)
	}
	return applied, err
}

// Respawn reports the respawn at the death location, restores p and moves
// it to its spawn point.
func (w *World) Respawn(h Handler, p *Participant) error {
	if err := h.HandleRespawn(p); err != nil {
		return err
	}
	p.Respawn()
	p.Teleport()
	return nil
}
