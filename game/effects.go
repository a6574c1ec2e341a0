package game

import "sort"

// EffectKind tags a status effect.
type EffectKind string

const (
	EffectInvulnerability EffectKind = "invulnerability"
	EffectStunned         EffectKind = "stunned"
	EffectBloodlust       EffectKind = "bloodlust"
	EffectBerserker       EffectKind = "berserker"
	EffectToughened       EffectKind = "toughened"
	EffectRegenerating    EffectKind = "regenerating"
)

// EffectSpec is the behaviour table entry for one effect kind. When multiple
// effects gate the same computation the highest priority present wins.
type EffectSpec struct {
	Kind        EffectKind
	Priority    int
	DisplayName string

	// OnTick advances effect-specific behaviour. delta is game-time ms
	// since the previous tick. Optional.
	OnTick func(p *Player, e *Effect, gameTime, delta int64)
}

// Effect is a live, time-bounded modifier on a player.
type Effect struct {
	Spec      *EffectSpec
	AppliedAt int64
	Duration  int64 // ms; 0 means indefinite
	Payload   float64

	acc int64 // accumulator for periodic payloads
}

// Expired reports whether the effect has run out at gameTime.
func (e *Effect) Expired(gameTime int64) bool {
	return e.Duration > 0 && e.AppliedAt+e.Duration <= gameTime
}

// Remaining returns the ms left, or -1 for indefinite effects.
func (e *Effect) Remaining(gameTime int64) int64 {
	if e.Duration == 0 {
		return -1
	}
	left := e.AppliedAt + e.Duration - gameTime
	if left < 0 {
		return 0
	}
	return left
}

func (e *Effect) snapshot(gameTime int64) EffectSnapshot {
	return EffectSnapshot{
		Kind:        string(e.Spec.Kind),
		DisplayName: e.Spec.DisplayName,
		Remaining:   e.Remaining(gameTime),
		Priority:    e.Spec.Priority,
	}
}

// EffectRegistry maps effect kinds to their behaviour tables.
type EffectRegistry struct {
	specs map[EffectKind]*EffectSpec
}

// NewEffectRegistry builds the registry with the built-in effects.
func NewEffectRegistry() *EffectRegistry {
	r := &EffectRegistry{specs: make(map[EffectKind]*EffectSpec)}
	for _, s := range builtinEffects() {
		r.specs[s.Kind] = s
	}
	return r
}

// Get returns the spec for kind, or nil when unknown.
func (r *EffectRegistry) Get(kind EffectKind) *EffectSpec {
	return r.specs[kind]
}

// Kinds lists registered kinds sorted by descending priority.
func (r *EffectRegistry) Kinds() []EffectKind {
	out := make([]EffectKind, 0, len(r.specs))
	for k := range r.specs {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := r.specs[out[i]], r.specs[out[j]]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.Kind < b.Kind
	})
	return out
}

func builtinEffects() []*EffectSpec {
	return []*EffectSpec{
		{
			Kind:        EffectInvulnerability,
			Priority:    100,
			DisplayName: "Invulnerable",
		},
		{
			Kind:        EffectStunned,
			Priority:    90,
			DisplayName: "Stunned",
		},
		{
			Kind:        EffectBloodlust,
			Priority:    80,
			DisplayName: "Bloodlust",
		},
		{
			Kind:        EffectBerserker,
			Priority:    70,
			DisplayName: "Berserk",
		},
		{
			Kind:        EffectToughened,
			Priority:    60,
			DisplayName: "Toughened",
		},
		{
			Kind:        EffectRegenerating,
			Priority:    50,
			DisplayName: "Regenerating",
			OnTick: func(p *Player, e *Effect, gameTime, delta int64) {
				// Payload is healing per second, applied once per
				// accumulated second.
				e.acc += delta
				for e.acc >= 1000 {
					e.acc -= 1000
					p.Heal(e.Payload)
				}
			},
		},
	}
}
