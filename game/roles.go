package game

import (
	"math/rand"

	"github.com/shakeparty/server/events"
)

// RoleFamily groups themed role variants sharing the same mechanics.
type RoleFamily string

const (
	FamilyVampire   RoleFamily = "vampire"
	FamilyAngel     RoleFamily = "angel"
	FamilyBeast     RoleFamily = "beast"
	FamilyHunter    RoleFamily = "hunter"
	FamilyAssassin  RoleFamily = "assassin"
	FamilyTank      RoleFamily = "tank"
	FamilyMedic     RoleFamily = "medic"
	FamilyBerserker RoleFamily = "berserker"
)

// RoleKind names a concrete, theme-specific role.
type RoleKind string

// Vampire pacing.
const (
	bloodlustInterval = int64(30000)
	bloodlustWindow   = int64(5000)
)

// RoleSpec is the behaviour table for one role kind. The engine invokes the
// hooks; nothing is dispatched by name at call sites.
type RoleSpec struct {
	Kind        RoleKind
	Family      RoleFamily
	DisplayName string
	Description string
	Priority    int // tick processing order, higher first
	Difficulty  int // 1 easy .. 3 hard
	Toughness   float64
	Movement    *MovementConfig

	OnRoundStart  func(e *Engine, p *Player)
	OnTick        func(e *Engine, p *Player, gameTime, delta int64)
	BeforeDeath   func(e *Engine, p *Player, gameTime int64) bool // true vetoes the death
	OnPlayerDeath func(e *Engine, p *Player, victim *Player, gameTime int64)
}

// Role is a spec plus its per-round state on one player.
type Role struct {
	Spec *RoleSpec

	TargetID       string
	NextBloodlust  int64
	BloodlustUntil int64
	SavedDeath     bool
}

// RoleRegistry holds role specs keyed by kind plus the themed pools.
type RoleRegistry struct {
	specs map[RoleKind]*RoleSpec
	pools map[string][]RoleKind
}

// Themes lists the installed role themes.
func (r *RoleRegistry) Themes() []string {
	return []string{"standard", "halloween", "mafia", "fantasy", "scifi"}
}

// Get returns the spec for kind, or nil when unknown.
func (r *RoleRegistry) Get(kind RoleKind) *RoleSpec {
	return r.specs[kind]
}

// Pool returns the role kinds of a theme; unknown themes fall back to
// standard.
func (r *RoleRegistry) Pool(theme string) []RoleKind {
	if pool, ok := r.pools[theme]; ok {
		return pool
	}
	return r.pools["standard"]
}

// Draw picks n role kinds from the theme pool, shuffled, repeating the pool
// when n exceeds its size.
func (r *RoleRegistry) Draw(theme string, n int, rng *rand.Rand) []RoleKind {
	pool := r.Pool(theme)
	if len(pool) == 0 || n <= 0 {
		return nil
	}
	out := make([]RoleKind, 0, n)
	for len(out) < n {
		batch := make([]RoleKind, len(pool))
		copy(batch, pool)
		rng.Shuffle(len(batch), func(i, j int) { batch[i], batch[j] = batch[j], batch[i] })
		out = append(out, batch...)
	}
	return out[:n]
}

// NewRole instantiates per-round role state for kind. Returns nil for the
// empty kind so plain (non-role) players work uniformly.
func (r *RoleRegistry) NewRole(kind RoleKind) *Role {
	spec := r.specs[kind]
	if spec == nil {
		return nil
	}
	return &Role{Spec: spec}
}

// NewRoleRegistry builds the registry with every themed role installed.
func NewRoleRegistry() *RoleRegistry {
	r := &RoleRegistry{
		specs: make(map[RoleKind]*RoleSpec),
		pools: make(map[string][]RoleKind),
	}

	base := map[RoleFamily]*RoleSpec{
		FamilyVampire: {
			Family:     FamilyVampire,
			Priority:   80,
			Difficulty: 3,
			OnRoundStart: func(e *Engine, p *Player) {
				p.Role.NextBloodlust = bloodlustInterval
			},
			OnTick: func(e *Engine, p *Player, gameTime, delta int64) {
				r := p.Role
				if r.BloodlustUntil == 0 && gameTime >= r.NextBloodlust {
					p.ApplyEffect(EffectBloodlust, gameTime, bloodlustWindow, 0)
					r.BloodlustUntil = gameTime + bloodlustWindow
					e.bus.Emit(events.ModeEvent, ModeEventPayload{
						EventType: "bloodlust",
						Data:      map[string]any{"playerId": p.ID},
					})
					return
				}
				// No kill inside the window: the thirst wins.
				if r.BloodlustUntil > 0 && gameTime >= r.BloodlustUntil {
					r.BloodlustUntil = 0
					r.NextBloodlust = gameTime + bloodlustInterval
					p.ClearEffect(EffectBloodlust)
					e.killPlayer(p, gameTime, true)
				}
			},
			OnPlayerDeath: func(e *Engine, p *Player, victim *Player, gameTime int64) {
				r := p.Role
				if r.BloodlustUntil > 0 && victim.ID != p.ID {
					r.BloodlustUntil = 0
					r.NextBloodlust = gameTime + bloodlustInterval
					p.ClearEffect(EffectBloodlust)
				}
			},
		},
		FamilyAngel: {
			Family:     FamilyAngel,
			Priority:   60,
			Difficulty: 1,
			BeforeDeath: func(e *Engine, p *Player, gameTime int64) bool {
				if p.Role.SavedDeath {
					return false
				}
				p.Role.SavedDeath = true
				p.AccumulatedDamage = DeathDamage / 2
				p.ApplyEffect(EffectInvulnerability, gameTime, 3000, 0)
				return true
			},
		},
		FamilyBeast: {
			Family:     FamilyBeast,
			Priority:   90,
			Difficulty: 2,
			Toughness:  2.0,
		},
		FamilyHunter: {
			Family:     FamilyHunter,
			Priority:   50,
			Difficulty: 2,
			OnPlayerDeath: func(e *Engine, p *Player, victim *Player, gameTime int64) {
				if victim.Role != nil && victim.Role.Spec.Family == FamilyBeast {
					p.Points++
				}
			},
		},
		FamilyAssassin: {
			Family:     FamilyAssassin,
			Priority:   70,
			Difficulty: 3,
			OnRoundStart: func(e *Engine, p *Player) {
				p.Role.TargetID = e.pickTarget(p)
			},
			OnPlayerDeath: func(e *Engine, p *Player, victim *Player, gameTime int64) {
				if p.Role.TargetID != "" && victim.ID == p.Role.TargetID {
					p.Points++
					p.Role.TargetID = ""
				}
			},
		},
		FamilyTank: {
			Family:     FamilyTank,
			Priority:   40,
			Difficulty: 1,
			OnRoundStart: func(e *Engine, p *Player) {
				p.ApplyEffect(EffectToughened, 0, 0, 0.6)
			},
		},
		FamilyMedic: {
			Family:     FamilyMedic,
			Priority:   30,
			Difficulty: 1,
			OnRoundStart: func(e *Engine, p *Player) {
				p.ApplyEffect(EffectRegenerating, 0, 0, 2.0)
			},
		},
		FamilyBerserker: {
			Family:     FamilyBerserker,
			Priority:   20,
			Difficulty: 3,
			OnRoundStart: func(e *Engine, p *Player) {
				p.ApplyEffect(EffectBerserker, 0, 0, 1.5)
			},
		},
	}

	type themed struct {
		family      RoleFamily
		kind        RoleKind
		displayName string
		description string
	}

	themes := map[string][]themed{
		"standard": {
			{FamilyVampire, "vampire", "Vampire", "Enter bloodlust every 30 seconds; feed within 5 or perish."},
			{FamilyAngel, "angel", "Angel", "Your first death is forgiven."},
			{FamilyBeast, "beast", "Beast", "Twice as hard to kill. Everyone knows it."},
			{FamilyHunter, "beasthunter", "Beast Hunter", "Earn a bonus when the Beast falls."},
			{FamilyAssassin, "assassin", "Assassin", "You have a target. Outlive them."},
			{FamilyTank, "tank", "Tank", "Shrug off part of every hit."},
			{FamilyMedic, "medic", "Medic", "Slowly regenerate through the round."},
			{FamilyBerserker, "berserker", "Berserker", "Take amplified damage. Live dangerously."},
		},
		"halloween": {
			{FamilyVampire, "hw:vampire", "Vampire", "The thirst returns every 30 seconds."},
			{FamilyAngel, "hw:ghost", "Ghost", "Death passes through you, once."},
			{FamilyBeast, "hw:werewolf", "Werewolf", "Thick hide, short temper."},
			{FamilyHunter, "hw:vanhelsing", "Van Helsing", "Paid by the monster."},
			{FamilyAssassin, "hw:reaper", "Reaper", "One name on the list."},
		},
		"mafia": {
			{FamilyBeast, "mafia:godfather", "Godfather", "Hard to touch."},
			{FamilyHunter, "mafia:detective", "Detective", "Close the big case."},
			{FamilyAssassin, "mafia:hitman", "Hitman", "One contract per round."},
			{FamilyMedic, "mafia:doctor", "Doctor", "Patches everyone up, starting with himself."},
			{FamilyAngel, "mafia:bodyguard", "Bodyguard", "Takes the first bullet."},
		},
		"fantasy": {
			{FamilyBeast, "fan:dragon", "Dragon", "Scales like armor plate."},
			{FamilyHunter, "fan:slayer", "Dragon Slayer", "Glory awaits."},
			{FamilyVampire, "fan:necromancer", "Necromancer", "Hungers on a schedule."},
			{FamilyMedic, "fan:cleric", "Cleric", "Mends wounds over time."},
			{FamilyAngel, "fan:paladin", "Paladin", "Blessed against the first blow."},
		},
		"scifi": {
			{FamilyBeast, "sf:alien", "Alien", "Exoskeleton included."},
			{FamilyHunter, "sf:mechhunter", "Mech Hunter", "Bounty on the xeno."},
			{FamilyTank, "sf:android", "Android", "Reinforced chassis."},
			{FamilyMedic, "sf:nanomedic", "Nanomedic", "Self-repairing swarm."},
			{FamilyAssassin, "sf:saboteur", "Saboteur", "Marked objective."},
		},
	}

	for theme, list := range themes {
		pool := make([]RoleKind, 0, len(list))
		for _, tr := range list {
			spec := *base[tr.family]
			spec.Kind = tr.kind
			spec.DisplayName = tr.displayName
			spec.Description = tr.description
			r.specs[tr.kind] = &spec
			pool = append(pool, tr.kind)
		}
		r.pools[theme] = pool
	}
	return r
}
