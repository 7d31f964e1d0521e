package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/roach88/syncedhp/internal/metrics"
	"github.com/roach88/syncedhp/internal/store"
)

// ApplyDelta adds delta to the pool of the initiator's group and mirrors the
// result to the group's other online members. It returns the pool vitality
// after the change.
//
// The initiator must be online and grouped; otherwise a NOT_A_MEMBER error
// is returned and nothing changes. A non-finite delta is rejected with
// INVALID_AMOUNT.
func (r *Registry) ApplyDelta(ctx context.Context, initiator Participant, delta float64) (float64, error) {
	if err := CheckAmount(delta); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.online[initiator.ID()]
	if !ok {
		return 0, notAMember(initiator.Name())
	}
	return r.applyDelta(ctx, g, initiator.ID(), delta)
}

// Regain applies a heal of amount for p. A satiation heal is cancelled when
// the group's mean satiation is below SatiationThreshold; applied is false
// in that case and the pool is untouched.
func (r *Registry) Regain(ctx context.Context, p Participant, amount float64, cause RegainCause) (applied bool, vitality float64, err error) {
	if err := CheckAmount(amount); err != nil {
		return false, 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.online[p.ID()]
	if !ok {
		return false, 0, notAMember(p.Name())
	}

	if cause == CauseSatiated {
		if mean, ok := g.meanSatiation(); ok && mean < SatiationThreshold {
			r.metrics.RegenSuppressed()
			r.logger.Debug("regeneration suppressed", "group", g.name, "mean_satiation", mean)
			return false, g.vitality, nil
		}
	}

	v, err := r.applyDelta(ctx, g, p.ID(), amount)
	if err != nil {
		return false, g.vitality, err
	}
	return true, v, nil
}

// CheckAmount rejects NaN and infinite vitality changes, which would
// otherwise escape the [0, MaxVitality] clamp.
func CheckAmount(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalidAmount(v)
	}
	return nil
}

// applyDelta clamps the new pool value to [0, MaxVitality]. A pool that
// reaches zero is stored as MaxVitality in the same write, while the
// members still receive the clamped value so the whole group is defeated
// together. Caller holds the write lock.
func (r *Registry) applyDelta(ctx context.Context, g *group, initiator uuid.UUID, delta float64) (float64, error) {
	i := r.indexOf(g)
	if i < 0 {
		return 0, notFound(g.name)
	}

	raw := clamp(g.vitality + delta)
	next := raw
	depleted := raw == 0
	if depleted {
		next = MaxVitality
	}

	err := r.store.Update(ctx, func(tx *store.Tx) error {
		rec := records{tx: tx}
		if err := rec.checkGroup(i, g.name); err != nil {
			return err
		}
		return rec.setVitality(i, next)
	})
	if err != nil {
		return g.vitality, fmt.Errorf("apply delta to %q: %w", g.name, err)
	}

	prev := g.vitality
	g.vitality = next

	kind := metrics.KindHeal
	if delta < 0 {
		kind = metrics.KindDamage
	}
	r.metrics.Delta(kind)
	if depleted {
		r.metrics.Depleted()
	}

	propagated := 0
	for _, m := range g.online {
		if m.ID() == initiator || m.Defeated() {
			continue
		}
		m.SetVitality(raw)
		propagated++
	}

	r.logger.Debug("delta applied",
		"group", g.name,
		"delta", delta,
		"from", prev,
		"to", next,
		"depleted", depleted,
		"propagated", propagated,
	)
	return next, nil
}
