package game

import "sort"

// DefaultMovement is the baseline movement tuning; roles may override it.
var DefaultMovement = MovementConfig{
	DangerThreshold:  0.35,
	DamageMultiplier: 1.0,
}

// Player holds the per-player runtime state for one round. Identity (ID,
// Name, Number) survives across rounds; the rest is rebuilt each round.
//
// Players are owned by the engine and mutated only under the engine lock.
type Player struct {
	ID       string
	Name     string
	Number   int
	SocketID string
	IsBot    bool

	Role *Role

	IsAlive           bool
	AccumulatedDamage float64
	Toughness         float64

	Points      int
	TotalPoints int
	DeathCount  int

	// DisconnectedAt is the game time the socket dropped during active
	// play, or -1 while connected.
	DisconnectedAt int64

	IsReady bool

	Movement MovementConfig

	// RespawnAt schedules a respawn in modes that allow it; 0 means none.
	RespawnAt int64

	effects map[EffectKind]*Effect
	reg     *EffectRegistry
}

// NewPlayer creates a fresh, alive player bound to an identity.
func NewPlayer(id, name string, number int, socketID string, reg *EffectRegistry) *Player {
	return &Player{
		ID:             id,
		Name:           name,
		Number:         number,
		SocketID:       socketID,
		IsAlive:        true,
		Toughness:      1.0,
		DisconnectedAt: -1,
		Movement:       DefaultMovement,
		effects:        make(map[EffectKind]*Effect),
		reg:            reg,
	}
}

// ApplyEffect attaches an effect of kind, replacing any existing instance of
// the same kind. duration 0 means indefinite. Unknown kinds are ignored and
// reported with false.
func (p *Player) ApplyEffect(kind EffectKind, gameTime, duration int64, payload float64) bool {
	spec := p.reg.Get(kind)
	if spec == nil {
		return false
	}
	p.effects[kind] = &Effect{
		Spec:      spec,
		AppliedAt: gameTime,
		Duration:  duration,
		Payload:   payload,
	}
	return true
}

// ClearEffect removes an effect of kind, if present.
func (p *Player) ClearEffect(kind EffectKind) {
	delete(p.effects, kind)
}

// ClearAllEffects removes every active effect.
func (p *Player) ClearAllEffects() {
	p.effects = make(map[EffectKind]*Effect)
}

// HasEffect reports whether an effect of kind is active.
func (p *Player) HasEffect(kind EffectKind) bool {
	_, ok := p.effects[kind]
	return ok
}

// GetEffect returns the active effect of kind, or nil.
func (p *Player) GetEffect(kind EffectKind) *Effect {
	return p.effects[kind]
}

// SortedEffects returns active effects in descending priority order.
func (p *Player) SortedEffects() []*Effect {
	out := make([]*Effect, 0, len(p.effects))
	for _, e := range p.effects {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Spec.Priority != out[j].Spec.Priority {
			return out[i].Spec.Priority > out[j].Spec.Priority
		}
		return out[i].Spec.Kind < out[j].Spec.Kind
	})
	return out
}

// TickEffects runs effect hooks and drops expired effects in the same pass.
func (p *Player) TickEffects(gameTime, delta int64) {
	for kind, e := range p.effects {
		if e.Expired(gameTime) {
			delete(p.effects, kind)
			continue
		}
		if e.Spec.OnTick != nil {
			e.Spec.OnTick(p, e, gameTime, delta)
		}
	}
}

// MovementDamage converts a movement intensity sample into damage, applying
// effect modifiers. Returns 0 when the sample is below the danger threshold
// or an effect gates damage entirely.
func (p *Player) MovementDamage(intensity float64) float64 {
	if !p.IsAlive {
		return 0
	}
	if intensity <= p.Movement.DangerThreshold {
		return 0
	}
	// Stunned ignores movement; Invulnerability blocks damage. Both
	// outrank the amplifying effects by priority.
	if p.HasEffect(EffectStunned) || p.HasEffect(EffectInvulnerability) {
		return 0
	}

	dmg := (intensity - p.Movement.DangerThreshold) * p.Movement.DamageMultiplier * 100
	if e := p.GetEffect(EffectBerserker); e != nil {
		dmg *= e.Payload
	}
	if e := p.GetEffect(EffectToughened); e != nil {
		dmg *= e.Payload
	}
	if p.Toughness > 0 {
		dmg /= p.Toughness
	}
	if dmg < 0 {
		dmg = 0
	}
	return dmg
}

// Heal reduces accumulated damage, never below zero.
func (p *Player) Heal(amount float64) {
	p.AccumulatedDamage -= amount
	if p.AccumulatedDamage < 0 {
		p.AccumulatedDamage = 0
	}
}

// Kill marks the player dead and counts the death. Effects are kept; the
// round reset clears them.
func (p *Player) Kill() {
	if !p.IsAlive {
		return
	}
	p.IsAlive = false
	p.DeathCount++
}

// Respawn brings the player back with a clean damage slate.
func (p *Player) Respawn() {
	p.IsAlive = true
	p.AccumulatedDamage = 0
	p.RespawnAt = 0
}

// SetDisconnected records the game time the transport dropped.
func (p *Player) SetDisconnected(gameTime int64) {
	p.DisconnectedAt = gameTime
}

// SetReconnected clears disconnect state and rebinds the socket.
func (p *Player) SetReconnected(socketID string) {
	p.DisconnectedAt = -1
	p.SocketID = socketID
}

// IsDisconnected reports whether the player currently has no socket.
func (p *Player) IsDisconnected() bool {
	return p.DisconnectedAt >= 0
}

// DisconnectedBeyondGrace reports whether the disconnect grace window has
// fully elapsed at now.
func (p *Player) DisconnectedBeyondGrace(now int64) bool {
	return p.IsDisconnected() && now-p.DisconnectedAt >= GracePeriodMillis
}

// GraceRemaining returns the ms left in the disconnect grace window.
func (p *Player) GraceRemaining(now int64) int64 {
	if !p.IsDisconnected() {
		return 0
	}
	left := GracePeriodMillis - (now - p.DisconnectedAt)
	if left < 0 {
		return 0
	}
	return left
}

// EffectivelyOut reports dead-or-gone status for win-condition counting:
// dead, or disconnected beyond grace.
func (p *Player) EffectivelyOut(now int64) bool {
	return !p.IsAlive || p.DisconnectedBeyondGrace(now)
}

// Snapshot renders the player into its game:tick wire form.
func (p *Player) Snapshot(gameTime int64, teamID *int) PlayerSnapshot {
	effects := p.SortedEffects()
	es := make([]EffectSnapshot, len(effects))
	for i, e := range effects {
		es[i] = e.snapshot(gameTime)
	}
	snap := PlayerSnapshot{
		ID:             p.ID,
		Name:           p.Name,
		Number:         p.Number,
		IsAlive:        p.IsAlive,
		Damage:         p.AccumulatedDamage,
		Points:         p.Points,
		TotalPoints:    p.TotalPoints,
		Toughness:      p.Toughness,
		DeathCount:     p.DeathCount,
		IsDisconnected: p.IsDisconnected(),
		StatusEffects:  es,
		TeamID:         teamID,
	}
	if p.IsDisconnected() {
		snap.GraceTimeRemaining = p.GraceRemaining(gameTime)
	}
	// Role is deliberately absent: roles are secret and reach their owner
	// via the role:assigned unicast, never a broadcast.
	return snap
}

// priority returns the role priority used for tick ordering.
func (p *Player) priority() int {
	if p.Role != nil {
		return p.Role.Spec.Priority
	}
	return 0
}
