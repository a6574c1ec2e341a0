package server

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shakeparty/server/game"
)

// Bot pacing.
const (
	botSampleInterval = 100 * time.Millisecond
	botReadyDelay     = 2500 * time.Millisecond // past the post-round ready-delay window
	maxBots           = 16
)

// botPlayer is one simulated phone.
type botPlayer struct {
	playerID   string
	aggression float64 // scales shake intensity; timid bots outlive wild ones
}

// BotManager drives dev-mode bot players: they join the lobby, shake at
// 10 Hz during rounds and ready up between them. Debug control plane only.
type BotManager struct {
	mu     sync.Mutex
	server *Server
	rng    *rand.Rand
	bots   []*botPlayer
	seq    int

	stop      chan struct{}
	prevState game.State
	readyAt   time.Time
	readied   bool
}

// NewBotManager creates an idle manager.
func NewBotManager(s *Server) *BotManager {
	return &BotManager{
		server: s,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Add joins count bots to the lobby and returns how many were added.
func (m *BotManager) Add(count int) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	added := 0
	for i := 0; i < count && len(m.bots) < maxBots; i++ {
		m.seq++
		id := uuid.NewString()
		name := fmt.Sprintf("Bot %d", m.seq)
		m.server.conns.Register(id, "bot:"+id, name, true)
		m.server.conns.MarkBot(id)
		m.server.conns.SetPlayerReady(id, true)
		m.bots = append(m.bots, &botPlayer{
			playerID:   id,
			aggression: 0.4 + m.rng.Float64()*0.6,
		})
		added++
	}
	if added > 0 && m.stop == nil {
		m.stop = make(chan struct{})
		go m.run(m.stop)
	}
	m.server.log.Infof("added %d bots (%d total)", added, len(m.bots))
	return added
}

// RemoveAll purges every bot session and stops the driver.
func (m *BotManager) RemoveAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bots {
		m.server.conns.RemovePlayer(b.playerID)
	}
	m.bots = nil
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
}

// run is the bot driver loop.
func (m *BotManager) run(stop chan struct{}) {
	t := time.NewTicker(botSampleInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			m.step()
		}
	}
}

func (m *BotManager) step() {
	m.mu.Lock()
	bots := append([]*botPlayer(nil), m.bots...)
	m.mu.Unlock()
	if len(bots) == 0 {
		return
	}

	state := m.server.engine.State()
	m.mu.Lock()
	if state != m.prevState {
		m.prevState = state
		m.readyAt = time.Now().Add(botReadyDelay)
		m.readied = false
	}
	shouldReady := !m.readied && time.Now().After(m.readyAt)
	if shouldReady {
		m.readied = true
	}
	m.mu.Unlock()

	switch state {
	case game.StateActive:
		for _, b := range bots {
			m.mu.Lock()
			intensity := m.rng.Float64() * b.aggression
			m.mu.Unlock()
			m.server.engine.HandleMove(b.playerID, intensity)
		}
	case game.StatePreGame, game.StateRoundEnded, game.StateFinished:
		if shouldReady {
			for _, b := range bots {
				m.server.engine.HandleReady(b.playerID)
			}
		}
	}
}
