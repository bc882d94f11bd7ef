// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package facetrack

import "sync"

// Actuator drives a servo on a named output channel.
// Writes are fire and forget; value is nominally 0..180.
type Actuator interface {
	WriteServo(channel string, value float64)
}

// ActuatorFunc adapts a function to the Actuator interface.
type ActuatorFunc func(channel string, value float64)

func (f ActuatorFunc) WriteServo(channel string, value float64) { f(channel, value) }

// MapperConfig holds the channel bindings and ranges for a Mapper.
type MapperConfig struct {
	YawChannel   string
	PitchChannel string
	// Allowed lists the channels accepted as per-call overrides.
	Allowed    []string
	YawRange   Range
	PitchRange Range
}

// Mapper turns the cached yaw and pitch into servo commands.
type Mapper struct {
	store *Store
	out   Actuator

	yawRange   Range
	pitchRange Range
	allowed    map[string]struct{}

	mu           sync.RWMutex
	yawChannel   string
	pitchChannel string
}

// NewMapper binds a store to an actuator. Zero ranges fall back to the
// default yaw and pitch ranges.
func NewMapper(store *Store, out Actuator, cfg MapperConfig) *Mapper {
	if cfg.YawRange == (Range{}) {
		cfg.YawRange = DefaultYawRange
	}
	if cfg.PitchRange == (Range{}) {
		cfg.PitchRange = DefaultPitchRange
	}
	allowed := make(map[string]struct{}, len(cfg.Allowed))
	for _, ch := range cfg.Allowed {
		allowed[ch] = struct{}{}
	}
	return &Mapper{
		store:        store,
		out:          out,
		yawRange:     cfg.YawRange,
		pitchRange:   cfg.PitchRange,
		allowed:      allowed,
		yawChannel:   cfg.YawChannel,
		pitchChannel: cfg.PitchChannel,
	}
}

// MapYawToActuator writes the remapped yaw to the yaw channel, or to
// override[0] when it is an allowed channel. It returns the command written.
func (m *Mapper) MapYawToActuator(override ...string) float64 {
	m.mu.RLock()
	ch := m.pick(m.yawChannel, override)
	m.mu.RUnlock()

	v := m.yawRange.Apply(m.store.Yaw())
	m.out.WriteServo(ch, v)
	return v
}

// MapPitchToActuator writes the remapped pitch to the pitch channel, or to
// override[0] when it is an allowed channel. It returns the command written.
func (m *Mapper) MapPitchToActuator(override ...string) float64 {
	m.mu.RLock()
	ch := m.pick(m.pitchChannel, override)
	m.mu.RUnlock()

	v := m.pitchRange.Apply(m.store.Pitch())
	m.out.WriteServo(ch, v)
	return v
}

// SetYawActuatorChannel rebinds the yaw channel. The value is not checked
// against the override whitelist.
func (m *Mapper) SetYawActuatorChannel(ch string) {
	m.mu.Lock()
	m.yawChannel = ch
	m.mu.Unlock()
}

// SetPitchActuatorChannel rebinds the pitch channel. The value is not checked
// against the override whitelist.
func (m *Mapper) SetPitchActuatorChannel(ch string) {
	m.mu.Lock()
	m.pitchChannel = ch
	m.mu.Unlock()
}

// Bindings returns the current yaw and pitch channels.
func (m *Mapper) Bindings() (yaw, pitch string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.yawChannel, m.pitchChannel
}

// Allowed reports whether ch may be used as a per-call override.
func (m *Mapper) Allowed(ch string) bool {
	_, ok := m.allowed[ch]
	return ok
}

// pick falls back to def for a missing or unknown override.
func (m *Mapper) pick(def string, override []string) string {
	if len(override) == 0 || !m.Allowed(override[0]) {
		return def
	}
	return override[0]
}
