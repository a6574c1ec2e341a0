package game

import (
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/decred/slog"

	"github.com/shakeparty/server/events"
)

// PlayerInfo is the identity snapshot the connection layer hands the engine
// at launch and on round re-creation.
type PlayerInfo struct {
	ID       string
	Name     string
	Number   int
	SocketID string
	IsBot    bool
}

// LaunchOptions tunes a game launch.
type LaunchOptions struct {
	ModeKey          string
	Theme            string
	CountdownSeconds int // -1 = default
	SkipPreGame      bool
	RolePool         []RoleKind // test override
}

// Result is the typed outcome of an engine mutator.
type Result struct {
	OK      bool
	Code    string
	Message string
}

func ok() Result { return Result{OK: true} }

func fail(code, msg string) Result { return Result{Code: code, Message: msg} }

// Engine owns the game loop, the state machine, the players and the current
// mode. Every mutator takes the engine lock; timers re-lock when they fire
// and re-check state, so a stop racing a tick is benign.
type Engine struct {
	mu  sync.Mutex
	bus *events.Bus
	log slog.Logger
	rng *rand.Rand

	roles   *RoleRegistry
	effects *EffectRegistry
	modes   *ModeRegistry
	teams   *TeamManager
	bases   *BaseManager

	state    State
	mode     Mode
	settings Settings

	players    []*Player // priority desc, then number asc
	byID       map[string]*Player
	playerData []PlayerInfo

	currentRound int
	gameTime     int64
	gameTimeAtom atomic.Int64
	moveScale    float64

	lastModeKey      string
	lastFinalScores  []ScoreEntry
	countdownSeconds int

	ready      *ReadyStateManager
	countdown  *CountdownManager
	gameEvents *GameEventManager

	readyDelay      time.Duration
	readyDelayTimer *time.Timer

	stopTick chan struct{}
	testMode bool

	// OnAutoRelaunch is invoked (on its own goroutine, lock released)
	// when everyone readies up after a finished game; the gateway
	// relaunches the last mode with the current lobby.
	OnAutoRelaunch func()
}

// EngineConfig wires the engine's collaborators.
type EngineConfig struct {
	Bus      *events.Bus
	Log      slog.Logger
	Roles    *RoleRegistry
	Effects  *EffectRegistry
	Modes    *ModeRegistry
	Teams    *TeamManager
	Bases    *BaseManager
	TestMode bool
	Seed     int64 // 0 = time-based
}

// NewEngine constructs an idle engine in the waiting state.
func NewEngine(cfg EngineConfig) *Engine {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	e := &Engine{
		bus:              cfg.Bus,
		log:              cfg.Log,
		rng:              rand.New(rand.NewSource(seed)),
		roles:            cfg.Roles,
		effects:          cfg.Effects,
		modes:            cfg.Modes,
		teams:            cfg.Teams,
		bases:            cfg.Bases,
		state:            StateWaiting,
		byID:             make(map[string]*Player),
		moveScale:        1.0,
		countdownSeconds: DefaultCountdownSeconds,
		readyDelay:       time.Duration(ReadyDelayMillis) * time.Millisecond,
		testMode:         cfg.TestMode,
	}
	e.ready = NewReadyStateManager(cfg.Bus)
	e.countdown = NewCountdownManager()
	return e
}

// GameTime reports the current game time in ms. Lock-free so the log
// backend can stamp lines from any goroutine.
func (e *Engine) GameTime() int64 { return e.gameTimeAtom.Load() }

// State returns the current phase.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// CurrentRound returns the 1-based round number.
func (e *Engine) CurrentRound() int { return e.currentRound }

// Roster returns the players in tick order. Callers already under the
// engine lock (modes, roles) get the live slice.
func (e *Engine) Roster() []*Player { return e.players }

// PlayerByID looks a player up; nil when absent.
func (e *Engine) PlayerByID(id string) *Player { return e.byID[id] }

// Teams exposes the team manager.
func (e *Engine) Teams() *TeamManager { return e.teams }

// Bases exposes the base manager.
func (e *Engine) Bases() *BaseManager { return e.bases }

// Mode returns the active mode, or nil.
func (e *Engine) Mode() Mode { return e.mode }

// Modes exposes the installed mode registry.
func (e *Engine) Modes() *ModeRegistry { return e.modes }

// Roles exposes the role registry.
func (e *Engine) Roles() *RoleRegistry { return e.roles }

// LastFinalScores returns the scoreboard persisted after the last game:end
// so late-joining dashboards can render it.
func (e *Engine) LastFinalScores() []ScoreEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastFinalScores
}

// StartGame launches a game with the given roster and settings snapshot.
func (e *Engine) StartGame(data []PlayerInfo, settings Settings, opts LaunchOptions) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateWaiting && e.state != StateFinished {
		return fail("invalid-state", "game already running in state "+string(e.state))
	}
	if len(data) < MinPlayers {
		return fail("not-enough-players", "need at least 2 connected players")
	}

	if opts.ModeKey != "" {
		settings.GameMode = opts.ModeKey
	}
	if opts.Theme != "" {
		settings.Theme = opts.Theme
	}
	mode, found := e.modes.Create(settings.GameMode, settings, e.roles)
	if !found {
		return fail("unknown-mode", "unknown game mode "+settings.GameMode)
	}

	e.settings = settings
	e.mode = mode
	e.lastModeKey = settings.GameMode
	e.playerData = append([]PlayerInfo(nil), data...)
	e.currentRound = 1
	if opts.CountdownSeconds >= 0 {
		e.countdownSeconds = opts.CountdownSeconds
	} else {
		e.countdownSeconds = DefaultCountdownSeconds
	}

	mode.OnModeSelected(e)
	if settings.TeamsEnabled || mode.Key() == "domination" {
		e.teams.Configure(settings.TeamCount)
		ids := make([]string, 0, len(data))
		for _, d := range data {
			if _, assigned := e.teams.TeamOf(d.ID); !assigned {
				ids = append(ids, d.ID)
			}
		}
		e.teams.AssignSequential(ids)
	}

	e.assignRolesForRoundLocked(opts.RolePool)
	e.log.Infof("game start: mode=%s players=%d rounds=%d", mode.Key(), len(data), mode.RoundCount())
	e.bus.Emit(events.GameStart, map[string]any{
		"mode":        mode.Key(),
		"totalRounds": mode.RoundCount(),
	})

	if opts.SkipPreGame {
		e.beginCountdownLocked()
		return ok()
	}
	e.state = StatePreGame
	e.ready.Reset(e.players)
	e.ready.Enable()
	return ok()
}

// assignRolesForRoundLocked rebuilds the player set from the cached
// identities, preserving total points, and deals roles from the pool.
func (e *Engine) assignRolesForRoundLocked(overridePool []RoleKind) {
	prevTotals := make(map[string]int, len(e.players))
	prevDisconnects := make(map[string]int64, len(e.players))
	for _, p := range e.players {
		prevTotals[p.ID] = p.TotalPoints
		if p.IsDisconnected() {
			prevDisconnects[p.ID] = p.DisconnectedAt
		}
	}

	pool := overridePool
	if pool == nil {
		pool = e.mode.RolePool(len(e.playerData), e.rng)
	}

	mc := e.settings.Movement()
	e.players = e.players[:0]
	e.byID = make(map[string]*Player, len(e.playerData))
	for i, d := range e.playerData {
		p := NewPlayer(d.ID, d.Name, d.Number, d.SocketID, e.effects)
		p.IsBot = d.IsBot
		p.TotalPoints = prevTotals[d.ID]
		p.Movement = mc
		if at, wasGone := prevDisconnects[d.ID]; wasGone {
			p.DisconnectedAt = at
		}
		if i < len(pool) {
			p.Role = e.roles.NewRole(pool[i])
		}
		if p.Role != nil {
			spec := p.Role.Spec
			if spec.Toughness > 0 {
				p.Toughness = spec.Toughness
			}
			if spec.Movement != nil {
				p.Movement = *spec.Movement
			}
		}
		e.players = append(e.players, p)
		e.byID[p.ID] = p
	}
	e.sortPlayersLocked()
}

// sortPlayersLocked orders the roster priority desc, ties by lower number,
// fixing the per-tick processing order.
func (e *Engine) sortPlayersLocked() {
	sort.SliceStable(e.players, func(i, j int) bool {
		if e.players[i].priority() != e.players[j].priority() {
			return e.players[i].priority() > e.players[j].priority()
		}
		return e.players[i].Number < e.players[j].Number
	})
}

// ForceCountdown is the admin override out of pre-game.
func (e *Engine) ForceCountdown() Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePreGame {
		return fail("invalid-state", "not in pre-game (state "+string(e.state)+")")
	}
	e.beginCountdownLocked()
	return ok()
}

// beginCountdownLocked resets the roster for a fresh round, announces roles
// and runs the 1 Hz countdown. Zero seconds jumps straight to go.
func (e *Engine) beginCountdownLocked() {
	e.state = StateCountdown
	e.setGameTimeLocked(0)
	e.moveScale = 1.0

	for _, p := range e.players {
		p.IsAlive = true
		p.AccumulatedDamage = 0
		p.RespawnAt = 0
		p.ClearAllEffects()
	}

	if e.mode.UsesRoles() {
		for _, p := range e.players {
			e.emitRoleAssignmentLocked(p)
		}
	}
	// One snapshot so dashboards render the fresh roster during the
	// countdown.
	e.emitTickLocked()

	if e.countdownSeconds <= 0 {
		e.emitCountdownLocked(0, "go")
		e.startRoundLocked()
		return
	}
	e.emitCountdownLocked(e.countdownSeconds, "countdown")
	remaining := e.countdownSeconds - 1
	e.countdown.Schedule(time.Second, func() { e.countdownStep(remaining) })
}

func (e *Engine) countdownStep(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateCountdown {
		return
	}
	if n <= 0 {
		e.emitCountdownLocked(0, "go")
		e.startRoundLocked()
		return
	}
	e.emitCountdownLocked(n, "countdown")
	e.countdown.Schedule(time.Second, func() { e.countdownStep(n - 1) })
}

func (e *Engine) emitCountdownLocked(n int, phase string) {
	e.bus.Emit(events.GameCountdown, CountdownPayload{
		SecondsRemaining: n,
		Phase:            phase,
		RoundNumber:      e.currentRound,
		TotalRounds:      e.mode.RoundCount(),
	})
}

func (e *Engine) emitRoleAssignmentLocked(p *Player) {
	if p.Role == nil {
		return
	}
	spec := p.Role.Spec
	payload := RoleAssignedPayload{
		PlayerID:    p.ID,
		SocketID:    p.SocketID,
		Name:        string(spec.Kind),
		DisplayName: spec.DisplayName,
		Description: spec.Description,
		Difficulty:  spec.Difficulty,
	}
	if p.Role.TargetID != "" {
		if t := e.byID[p.Role.TargetID]; t != nil {
			payload.TargetNumber = t.Number
			payload.TargetName = t.Name
		}
	}
	e.bus.Emit(events.RoleAssigned, payload)
}

// startRoundLocked flips to active and spins up the ticker.
func (e *Engine) startRoundLocked() {
	e.state = StateActive
	e.setGameTimeLocked(0)
	e.gameEvents = newGameEventManager(e.mode.GameEvents())
	e.mode.OnRoundStart(e, 0)

	// Assassin targets exist only after OnRoundStart; tell the phones.
	if e.mode.UsesRoles() {
		for _, p := range e.players {
			if p.Role != nil && p.Role.TargetID != "" {
				e.emitRoleAssignmentLocked(p)
			}
		}
	}

	e.log.Infof("round %d start", e.currentRound)
	e.bus.Emit(events.RoundStart, RoundStartPayload{
		RoundNumber: e.currentRound,
		TotalRounds: e.mode.RoundCount(),
		GameEvents:  e.gameEvents.Names(),
	})
	e.startTickerLocked()
}

func (e *Engine) startTickerLocked() {
	if e.testMode {
		return
	}
	stop := make(chan struct{})
	e.stopTick = stop
	go func() {
		t := time.NewTicker(TickRate)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				e.Tick()
			}
		}
	}()
}

func (e *Engine) stopTickerLocked() {
	if e.stopTick != nil {
		close(e.stopTick)
		e.stopTick = nil
	}
}

// Tick advances the game by one fixed step. The background ticker calls it
// every TickRate; tests call it directly.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateActive {
		return
	}
	e.setGameTimeLocked(e.gameTime + TickMillis)
	delta := TickMillis

	e.mode.OnTick(e, e.gameTime, delta)
	e.gameEvents.Tick(e, e.gameTime, delta)

	for _, p := range e.players {
		if !p.IsAlive {
			continue
		}
		p.TickEffects(e.gameTime, delta)
		if p.Role != nil && p.Role.Spec.OnTick != nil {
			p.Role.Spec.OnTick(e, p, e.gameTime, delta)
		}
	}

	e.emitTickLocked()

	cond := e.mode.CheckWin(e, e.gameTime)
	if cond.RoundEnded {
		e.endRoundLocked(cond)
	}
}

func (e *Engine) setGameTimeLocked(t int64) {
	e.gameTime = t
	e.gameTimeAtom.Store(t)
}

func (e *Engine) emitTickLocked() {
	remaining := int64(-1)
	if d := e.mode.RoundDuration(); d > 0 {
		remaining = d - e.gameTime
		if remaining < 0 {
			remaining = 0
		}
	}
	snaps := make([]PlayerSnapshot, len(e.players))
	for i, p := range e.players {
		var teamID *int
		if id, okT := e.teams.TeamOf(p.ID); okT {
			v := id
			teamID = &v
		}
		snaps[i] = p.Snapshot(e.gameTime, teamID)
	}
	e.bus.Emit(events.GameTick, TickPayload{
		GameTime:           e.gameTime,
		RoundTimeRemaining: remaining,
		Players:            snaps,
	})
}

// HandleMove applies a movement intensity sample. Samples for unknown or
// dead players are dropped silently; stunned and invulnerable players take
// no damage by effect gating.
func (e *Engine) HandleMove(playerID string, intensity float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateActive {
		return
	}
	p := e.byID[playerID]
	if p == nil || !p.IsAlive {
		return
	}
	if intensity < 0 {
		intensity = 0
	}
	if intensity > 1 {
		intensity = 1
	}

	dmg := p.MovementDamage(intensity) * e.moveScale
	if dmg > 0 {
		p.AccumulatedDamage += dmg
	}
	e.mode.OnPlayerMove(e, p, intensity, e.gameTime)

	if p.IsAlive && p.AccumulatedDamage >= DeathDamage {
		e.killPlayer(p, e.gameTime, false)
	}
}

// killPlayer runs the death pipeline: role veto (unless forced), then the
// kill, the death event and the mode hook — in that order, synchronously,
// so every subscriber sees the death before the next tick.
func (e *Engine) killPlayer(p *Player, gameTime int64, force bool) {
	if !p.IsAlive {
		return
	}
	if !force && p.Role != nil && p.Role.Spec.BeforeDeath != nil {
		if p.Role.Spec.BeforeDeath(e, p, gameTime) {
			e.log.Debugf("death of %s vetoed by role %s", p.Name, p.Role.Spec.Kind)
			return
		}
	}
	p.Kill()
	e.log.Infof("player %d (%s) died", p.Number, p.Name)
	e.bus.Emit(events.PlayerDeath, DeathPayload{
		VictimID:     p.ID,
		VictimNumber: p.Number,
		VictimName:   p.Name,
		GameTime:     gameTime,
	})
	e.mode.OnPlayerDeath(e, p, gameTime)
}

// pickTarget draws a random other roster member (assassin assignment).
func (e *Engine) pickTarget(p *Player) string {
	candidates := make([]string, 0, len(e.players))
	for _, other := range e.players {
		if other.ID != p.ID {
			candidates = append(candidates, other.ID)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[e.rng.Intn(len(candidates))]
}

// endRoundLocked stops the loop, scores the round and either tees up the
// next round or finishes the game.
func (e *Engine) endRoundLocked(cond WinCondition) {
	e.stopTickerLocked()
	e.state = StateRoundEnded

	gameOver := cond.GameEnded
	if e.mode.OnRoundEnd(e, cond) {
		gameOver = true
	}
	// The only place points fold into totals.
	roundPoints := make(map[string]int, len(e.players))
	for _, p := range e.players {
		roundPoints[p.ID] = p.Points
		p.TotalPoints += p.Points
		p.Points = 0
	}

	e.bus.ClearRoundListeners()
	e.ready.Reset(e.players)
	e.startReadyDelayLocked()

	scores := e.mode.FinalScores(e)
	// FinalScores runs after the fold, so restore the round column.
	for i := range scores {
		scores[i].Points = roundPoints[scores[i].PlayerID]
	}
	e.log.Infof("round %d end (%s)", e.currentRound, cond.Reason)
	e.bus.Emit(events.RoundEnd, RoundEndPayload{
		RoundNumber: e.currentRound,
		Scores:      scores,
		WinnerID:    cond.WinnerID,
	})

	if gameOver {
		e.endGameLocked(cond, scores)
	}
}

func (e *Engine) startReadyDelayLocked() {
	if e.testMode {
		e.ready.Enable()
		return
	}
	e.ready.Disable()
	if e.readyDelayTimer != nil {
		e.readyDelayTimer.Stop()
	}
	e.readyDelayTimer = time.AfterFunc(e.readyDelay, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.state == StateRoundEnded || e.state == StateFinished {
			e.ready.Enable()
		}
	})
}

func (e *Engine) endGameLocked(cond WinCondition, scores []ScoreEntry) {
	e.state = StateFinished
	e.lastFinalScores = scores

	payload := GameEndPayload{
		Scores:      scores,
		TotalRounds: e.mode.RoundCount(),
	}
	if cond.WinnerTeam >= 0 && e.mode.Key() == "domination" {
		payload.WinnerTeam = cond.WinnerTeam
		payload.Winner = e.teams.TeamName(cond.WinnerTeam)
	} else if len(scores) > 0 {
		payload.Winner = scores[0].Name
	}

	e.mode.OnGameEnd(e)
	e.log.Infof("game end: winner=%s", payload.Winner)
	e.bus.Emit(events.GameEnd, payload)
}

// advanceRoundLocked moves round-ended to the next countdown with fresh
// roles.
func (e *Engine) advanceRoundLocked() {
	e.currentRound++
	e.assignRolesForRoundLocked(nil)
	e.beginCountdownLocked()
}

// NextRound is the control-plane round advance; valid only in round-ended.
func (e *Engine) NextRound() Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateRoundEnded {
		return fail("invalid-state", "not between rounds (state "+string(e.state)+")")
	}
	e.advanceRoundLocked()
	return ok()
}

// StopGame is the emergency stop: back to waiting from any state, all
// timers cancelled.
func (e *Engine) StopGame() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTickerLocked()
	e.countdown.Cancel()
	if e.readyDelayTimer != nil {
		e.readyDelayTimer.Stop()
		e.readyDelayTimer = nil
	}
	e.bus.ClearRoundListeners()
	e.players = nil
	e.byID = make(map[string]*Player)
	e.playerData = nil
	e.mode = nil
	e.currentRound = 0
	e.setGameTimeLocked(0)
	e.moveScale = 1.0
	e.ready.Enable()
	e.state = StateWaiting
	e.log.Infof("game stopped")
	e.bus.Emit(events.GameStopped, struct{}{})
}

// HandleReady toggles a player's between-round ready flag. During the
// ready-delay window the request is rejected and nothing is emitted.
func (e *Engine) HandleReady(playerID string) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StatePreGame, StateRoundEnded, StateFinished:
	default:
		return fail("invalid-state", "ready not accepted in state "+string(e.state))
	}
	if !e.ready.Enabled() {
		return fail("ready-delay", "ready input disabled during round-end delay")
	}
	p := e.byID[playerID]
	if p == nil {
		e.log.Warnf("ready from unknown player %q", playerID)
		return fail("unknown-player", "unknown player")
	}

	p.IsReady = !p.IsReady
	e.bus.Emit(events.PlayerReady, PlayerReadyPayload{
		PlayerID:     p.ID,
		PlayerName:   p.Name,
		PlayerNumber: p.Number,
		IsReady:      p.IsReady,
	})
	e.bus.Emit(events.ReadyUpdate, e.ready.Count(e.players))

	if !e.ready.AllReady(e.players, MinPlayers) {
		return ok()
	}
	switch e.state {
	case StatePreGame:
		e.beginCountdownLocked()
	case StateRoundEnded:
		e.advanceRoundLocked()
	case StateFinished:
		if e.OnAutoRelaunch != nil {
			go e.OnAutoRelaunch()
		}
	}
	return ok()
}

// HandlePlayerDisconnect marks a mid-game disconnect; the grace window
// starts counting in game time.
func (e *Engine) HandlePlayerDisconnect(playerID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.byID[playerID]
	if p == nil {
		return
	}
	p.SetDisconnected(e.gameTime)
	e.log.Warnf("player %d (%s) disconnected mid-game", p.Number, p.Name)
}

// HandlePlayerReconnect rebinds a player to a new socket; no state is lost.
func (e *Engine) HandlePlayerReconnect(playerID, socketID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.byID[playerID]
	if p == nil {
		return false
	}
	p.SetReconnected(socketID)
	// The cached roster data seeds the next round's players; without this
	// the round-2 role assignment would unicast to the dead socket.
	for i := range e.playerData {
		if e.playerData[i].ID == playerID {
			e.playerData[i].SocketID = socketID
			break
		}
	}
	e.log.Infof("player %d (%s) reconnected", p.Number, p.Name)
	return true
}

// CycleTeam moves a player to the next team; allowed while no round is
// running.
func (e *Engine) CycleTeam(playerID string) (int, Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case StateWaiting, StatePreGame:
	default:
		return 0, fail("invalid-state", "cannot switch teams in state "+string(e.state))
	}
	return e.teams.Cycle(playerID), ok()
}

// HandleBaseJoin registers a base device.
func (e *Engine) HandleBaseJoin(baseID, socketID string) *Base {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bases.Register(baseID, socketID)
}

// HandleBaseTap cycles base ownership; only meaningful during active play.
func (e *Engine) HandleBaseTap(baseID string) Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateActive {
		e.log.Warnf("base tap outside active play ignored (state %s)", e.state)
		return fail("invalid-state", "no round in progress")
	}
	if _, tapped := e.bases.HandleTap(baseID, e.teams.Count(), e.gameTime); !tapped {
		return fail("unknown-base", "unknown base")
	}
	return ok()
}

// HandleBaseDisconnect marks or purges a base after its socket drops.
func (e *Engine) HandleBaseDisconnect(socketID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	inGame := e.state == StateActive || e.state == StateCountdown || e.state == StateRoundEnded
	e.bases.HandleDisconnect(socketID, inGame)
}

// Snapshot is the full engine state for the control plane.
type Snapshot struct {
	State           State            `json:"state"`
	Mode            string           `json:"mode,omitempty"`
	CurrentRound    int              `json:"currentRound"`
	TotalRounds     int              `json:"totalRounds"`
	GameTime        int64            `json:"gameTime"`
	Players         []PlayerSnapshot `json:"players"`
	Teams           []Team           `json:"teams,omitempty"`
	TeamScores      map[int]int      `json:"teamScores,omitempty"`
	Bases           []*Base          `json:"bases,omitempty"`
	LastFinalScores []ScoreEntry     `json:"lastFinalScores,omitempty"`
}

// Snapshot renders the current engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := Snapshot{
		State:           e.state,
		CurrentRound:    e.currentRound,
		GameTime:        e.gameTime,
		LastFinalScores: e.lastFinalScores,
	}
	if e.mode != nil {
		snap.Mode = e.mode.Key()
		snap.TotalRounds = e.mode.RoundCount()
		if dom, isDom := e.mode.(*dominationMode); isDom {
			snap.TeamScores = dom.TeamScores()
			snap.Teams = e.teams.Teams()
			snap.Bases = e.bases.Bases()
		}
	}
	snap.Players = make([]PlayerSnapshot, len(e.players))
	for i, p := range e.players {
		var teamID *int
		if id, okT := e.teams.TeamOf(p.ID); okT {
			v := id
			teamID = &v
		}
		snap.Players[i] = p.Snapshot(e.gameTime, teamID)
		// The admin snapshot may show roles; the broadcast tick never does.
		if p.Role != nil {
			snap.Players[i].Role = string(p.Role.Spec.Kind)
		}
	}
	return snap
}

// LastModeKey returns the key of the most recently launched mode.
func (e *Engine) LastModeKey() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastModeKey
}
