package api

import (
	"fmt"
	"sync"
)

// PipelineSettings is the admin-tunable slice of the pipeline config.
type PipelineSettings struct {
	EMAAlpha           float64 `json:"ema_alpha"`
	AlertThreshold     float64 `json:"alert_threshold"`
	AlertCooldownHours int     `json:"alert_cooldown_hours"`
}

// Settings holds the live pipeline parameters behind the admin settings
// endpoint. Updates apply to this process only; workers pick up new
// values on restart.
type Settings struct {
	mu      sync.RWMutex
	current PipelineSettings

	// onUpdate, when set, is called with each accepted update while the
	// settings lock is not held.
	onUpdate func(PipelineSettings)
}

func NewSettings(initial PipelineSettings) *Settings {
	return &Settings{current: initial}
}

// OnUpdate registers a callback fired after every accepted update.
func (s *Settings) OnUpdate(fn func(PipelineSettings)) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

// Snapshot returns the current values.
func (s *Settings) Snapshot() PipelineSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update validates and applies new values. The admin surface accepts a
// narrower threshold range than the raw config file does.
func (s *Settings) Update(next PipelineSettings) error {
	if next.EMAAlpha < 0.01 || next.EMAAlpha > 1 {
		return fmt.Errorf("ema_alpha must be in [0.01, 1], got %g", next.EMAAlpha)
	}
	if next.AlertThreshold < 1 || next.AlertThreshold > 5 {
		return fmt.Errorf("alert_threshold must be in [1, 5], got %g", next.AlertThreshold)
	}
	if next.AlertCooldownHours < 1 || next.AlertCooldownHours > 168 {
		return fmt.Errorf("alert_cooldown_hours must be in [1, 168], got %d", next.AlertCooldownHours)
	}

	s.mu.Lock()
	s.current = next
	fn := s.onUpdate
	s.mu.Unlock()

	if fn != nil {
		fn(next)
	}
	return nil
}
