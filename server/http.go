package server

import (
	"encoding/json"
	"net/http"

	"github.com/shakeparty/server/game"
)

// RingReader exposes recent log lines for the debug endpoint.
type RingReader interface {
	Lines() []string
}

// SetLogRing attaches the in-memory log ring served by /api/debug/logs.
func (s *Server) SetLogRing(r RingReader) { s.logRing = r }

// Routes builds the control-plane mux: the websocket endpoint, the game API
// and, in dev mode, the debug surface.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/game/config", s.handleConfig)
	mux.HandleFunc("/api/game/modes", s.handleModes)
	mux.HandleFunc("/api/game/lobby", s.handleLobby)
	mux.HandleFunc("/api/game/settings", s.handleSettings)
	mux.HandleFunc("/api/game/launch", s.handleLaunch)
	mux.HandleFunc("/api/game/next-round", s.handleNextRound)
	mux.HandleFunc("/api/game/stop", s.handleStop)
	mux.HandleFunc("/api/game/state", s.handleState)

	if s.cfg.DevMode {
		mux.HandleFunc("/api/debug/bots", s.handleDebugBots)
		mux.HandleFunc("/api/debug/tick", s.handleDebugTick)
		mux.HandleFunc("/api/debug/reset", s.handleDebugReset)
		mux.HandleFunc("/api/debug/logs", s.handleDebugLogs)
	}
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "method-not-allowed", method+" required")
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": int64(s.Uptime().Seconds()),
		"state":  s.engine.State(),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"devMode": s.cfg.DevMode})
}

func (s *Server) handleModes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Modes().List())
}

func (s *Server) handleLobby(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"players": s.lobbyWithTeams()})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"settings":           s.settings.Snapshot(),
			"availableModes":     s.engine.Modes().List(),
			"availableThemes":    s.engine.Roles().Themes(),
			"sensitivityPresets": game.SensitivityPresets,
		})
	case http.MethodPost:
		var patch SettingsPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "bad-payload", "malformed settings payload")
			return
		}
		updated, err := s.settings.Update(patch)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid-setting", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"settings": updated})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method-not-allowed", "GET or POST required")
	}
}

type launchRequest struct {
	Mode              string `json:"mode"`
	Theme             string `json:"theme"`
	CountdownDuration *int   `json:"countdownDuration"`
}

func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req launchRequest
	if r.Body != nil {
		// An empty body launches with the stored settings.
		json.NewDecoder(r.Body).Decode(&req)
	}

	if s.conns.ConnectedCount() < game.MinPlayers {
		writeError(w, http.StatusBadRequest, "not-enough-players", "need at least 2 connected players")
		return
	}

	opts := game.LaunchOptions{
		ModeKey:          req.Mode,
		Theme:            req.Theme,
		CountdownSeconds: -1,
	}
	if req.CountdownDuration != nil {
		opts.CountdownSeconds = *req.CountdownDuration
	}

	res := s.engine.StartGame(s.conns.PlayerInfos(), s.settings.Snapshot(), opts)
	if !res.OK {
		writeError(w, http.StatusBadRequest, res.Code, res.Message)
		return
	}
	s.conns.ResetReady()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "state": s.engine.State()})
}

func (s *Server) handleNextRound(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if res := s.engine.NextRound(); !res.OK {
		writeError(w, http.StatusBadRequest, res.Code, res.Message)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "state": s.engine.State()})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	s.engine.StopGame()
	s.conns.ResetReady()
	s.emitLobby()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "state": s.engine.State()})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

type debugBotsRequest struct {
	Count int `json:"count"`
}

func (s *Server) handleDebugBots(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req debugBotsRequest
	json.NewDecoder(r.Body).Decode(&req)
	added := s.bots.Add(req.Count)
	s.emitLobby()
	writeJSON(w, http.StatusOK, map[string]any{"added": added})
}

type debugTickRequest struct {
	Ticks int `json:"ticks"`
}

func (s *Server) handleDebugTick(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req debugTickRequest
	json.NewDecoder(r.Body).Decode(&req)
	if req.Ticks < 1 {
		req.Ticks = 1
	}
	if req.Ticks > 10000 {
		req.Ticks = 10000
	}
	for i := 0; i < req.Ticks; i++ {
		s.engine.Tick()
	}
	writeJSON(w, http.StatusOK, map[string]any{"gameTime": s.engine.GameTime()})
}

func (s *Server) handleDebugReset(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	s.engine.StopGame()
	s.bots.RemoveAll()
	s.conns.ResetReady()
	s.emitLobby()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleDebugLogs(w http.ResponseWriter, r *http.Request) {
	if s.logRing == nil {
		writeJSON(w, http.StatusOK, map[string]any{"lines": []string{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lines": s.logRing.Lines()})
}
