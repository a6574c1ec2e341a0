package server

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/decred/slog"

	"github.com/shakeparty/server/game"
)

// SettingsStore is the single writer for game settings: a defaults struct
// overlaid with a JSON snapshot file that survives restarts. Reads hand out
// copies; the engine receives a snapshot at launch, so edits mid-game only
// affect the next launch.
type SettingsStore struct {
	mu      sync.Mutex
	path    string
	log     slog.Logger
	current game.Settings

	validModes  map[string]bool
	validThemes map[string]bool
}

// NewSettingsStore loads the snapshot at path, falling back to defaults
// when the file is missing or unreadable.
func NewSettingsStore(path string, modes []game.ModeInfo, themes []string, log slog.Logger) *SettingsStore {
	s := &SettingsStore{
		path:        path,
		log:         log,
		current:     game.DefaultSettings(),
		validModes:  make(map[string]bool, len(modes)),
		validThemes: make(map[string]bool, len(themes)),
	}
	for _, m := range modes {
		s.validModes[m.Key] = true
	}
	for _, t := range themes {
		s.validThemes[t] = true
	}

	if path == "" {
		return s
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("settings file unreadable, using defaults: %v", err)
		}
		return s
	}
	loaded := game.DefaultSettings()
	if err := json.Unmarshal(raw, &loaded); err != nil {
		log.Warnf("settings file corrupt, using defaults: %v", err)
		return s
	}
	s.current = loaded
	log.Infof("settings restored from %s", path)
	return s
}

// Snapshot returns a copy of the current settings.
func (s *SettingsStore) Snapshot() game.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SettingsPatch is a partial settings update; nil fields are left alone.
type SettingsPatch struct {
	Sensitivity      *string  `json:"sensitivity"`
	GameMode         *string  `json:"gameMode"`
	Theme            *string  `json:"theme"`
	RoundCount       *int     `json:"roundCount"`
	RoundDuration    *int     `json:"roundDuration"`
	DangerThreshold  *float64 `json:"dangerThreshold"`
	DamageMultiplier *float64 `json:"damageMultiplier"`
	TeamsEnabled     *bool    `json:"teamsEnabled"`
	TeamCount        *int     `json:"teamCount"`
	TargetScore      *int     `json:"targetScore"`

	DominationPointTarget     *int `json:"dominationPointTarget"`
	DominationControlInterval *int `json:"dominationControlInterval"`
	DominationBaseCount       *int `json:"dominationBaseCount"`

	DeathCountRespawnTime *int `json:"deathCountRespawnTime"`
}

// Update validates and applies a patch, persists the result and returns the
// new settings. A failed validation leaves the store untouched.
func (s *SettingsStore) Update(patch SettingsPatch) (game.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	if patch.Sensitivity != nil {
		if _, ok := game.SensitivityPresets[*patch.Sensitivity]; !ok {
			return s.current, fmt.Errorf("unknown sensitivity preset %q", *patch.Sensitivity)
		}
		next.Sensitivity = *patch.Sensitivity
	}
	if patch.GameMode != nil {
		if !s.validModes[*patch.GameMode] {
			return s.current, fmt.Errorf("unknown game mode %q", *patch.GameMode)
		}
		next.GameMode = *patch.GameMode
	}
	if patch.Theme != nil {
		if !s.validThemes[*patch.Theme] {
			return s.current, fmt.Errorf("unknown theme %q", *patch.Theme)
		}
		next.Theme = *patch.Theme
	}
	if patch.RoundCount != nil {
		if *patch.RoundCount < 1 || *patch.RoundCount > 10 {
			return s.current, fmt.Errorf("roundCount %d out of range 1-10", *patch.RoundCount)
		}
		next.RoundCount = *patch.RoundCount
	}
	if patch.RoundDuration != nil {
		if *patch.RoundDuration < 30 || *patch.RoundDuration > 300 {
			return s.current, fmt.Errorf("roundDuration %d out of range 30-300", *patch.RoundDuration)
		}
		next.RoundDuration = *patch.RoundDuration
	}
	if patch.DangerThreshold != nil {
		if *patch.DangerThreshold < 0 || *patch.DangerThreshold > 1 {
			return s.current, fmt.Errorf("dangerThreshold %v out of range 0-1", *patch.DangerThreshold)
		}
		next.DangerThreshold = *patch.DangerThreshold
	}
	if patch.DamageMultiplier != nil {
		if *patch.DamageMultiplier <= 0 || *patch.DamageMultiplier > 10 {
			return s.current, fmt.Errorf("damageMultiplier %v out of range", *patch.DamageMultiplier)
		}
		next.DamageMultiplier = *patch.DamageMultiplier
	}
	if patch.TeamsEnabled != nil {
		next.TeamsEnabled = *patch.TeamsEnabled
	}
	if patch.TeamCount != nil {
		if *patch.TeamCount < 2 || *patch.TeamCount > 4 {
			return s.current, fmt.Errorf("teamCount %d out of range 2-4", *patch.TeamCount)
		}
		next.TeamCount = *patch.TeamCount
	}
	if patch.TargetScore != nil {
		if *patch.TargetScore < 1 {
			return s.current, fmt.Errorf("targetScore must be positive")
		}
		next.TargetScore = *patch.TargetScore
	}
	if patch.DominationPointTarget != nil {
		if *patch.DominationPointTarget < 1 {
			return s.current, fmt.Errorf("dominationPointTarget must be positive")
		}
		next.DominationPointTarget = *patch.DominationPointTarget
	}
	if patch.DominationControlInterval != nil {
		if *patch.DominationControlInterval < 1 || *patch.DominationControlInterval > 60 {
			return s.current, fmt.Errorf("dominationControlInterval %d out of range 1-60", *patch.DominationControlInterval)
		}
		next.DominationControlInterval = *patch.DominationControlInterval
	}
	if patch.DominationBaseCount != nil {
		if *patch.DominationBaseCount < 1 || *patch.DominationBaseCount > 8 {
			return s.current, fmt.Errorf("dominationBaseCount %d out of range 1-8", *patch.DominationBaseCount)
		}
		next.DominationBaseCount = *patch.DominationBaseCount
	}
	if patch.DeathCountRespawnTime != nil {
		if *patch.DeathCountRespawnTime < 1 || *patch.DeathCountRespawnTime > 30 {
			return s.current, fmt.Errorf("deathCountRespawnTime %d out of range 1-30", *patch.DeathCountRespawnTime)
		}
		next.DeathCountRespawnTime = *patch.DeathCountRespawnTime
	}

	s.current = next
	s.persistLocked()
	return s.current, nil
}

// persistLocked writes the snapshot via a temp file and rename so a crash
// mid-write never corrupts the stored settings.
func (s *SettingsStore) persistLocked() {
	if s.path == "" {
		return
	}
	raw, err := json.MarshalIndent(s.current, "", "  ")
	if err != nil {
		s.log.Errorf("marshal settings: %v", err)
		return
	}
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.log.Errorf("create settings dir: %v", err)
		return
	}
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		s.log.Errorf("write settings: %v", err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.log.Errorf("replace settings: %v", err)
	}
}
