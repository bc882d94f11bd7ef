// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package servo implements the actuator backends that receive the
// yaw/pitch servo commands.
package servo

import (
	"fmt"
	"log"
	"math"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/face_tracker/internal/config"
	"github.com/relabs-tech/face_tracker/internal/facetrack"
)

// Full servo travel in degrees.
const (
	MinAngle = 0.0
	MaxAngle = 180.0
)

// Driver is an actuator backend that owns hardware.
type Driver interface {
	facetrack.Actuator
	Close() error
}

// ClampAngle limits a command to the servo's travel. The mapper never
// clamps; hardware backends do it right before driving a pulse.
func ClampAngle(v float64) float64 {
	return math.Max(MinAngle, math.Min(MaxAngle, v))
}

// PulseWidthUS converts a command in degrees to a pulse width in
// microseconds between minUS and maxUS.
func PulseWidthUS(angle float64, minUS, maxUS int) float64 {
	a := ClampAngle(angle)
	return float64(minUS) + a/MaxAngle*float64(maxUS-minUS)
}

// New builds the backend named by cfg.ActuatorDriver. The MQTT client is
// only used by the "mqtt" driver and may be nil otherwise.
func New(cfg *config.Config, client mqtt.Client) (Driver, error) {
	switch cfg.ActuatorDriver {
	case "periph":
		return NewPeriph(cfg.ChannelMap, cfg.ServoMinPulseUS, cfg.ServoMaxPulseUS)
	case "pca9685":
		return NewPCA9685(cfg.PCA9685I2CDev, cfg.PCA9685I2CAddr, cfg.ChannelMap, cfg.ServoMinPulseUS, cfg.ServoMaxPulseUS)
	case "mqtt":
		if client == nil {
			return nil, fmt.Errorf("mqtt servo driver needs an MQTT client")
		}
		return NewMQTT(client, cfg.TopicServo), nil
	case "log", "":
		return NewLog(), nil
	default:
		return nil, fmt.Errorf("unknown actuator driver %q", cfg.ActuatorDriver)
	}
}

// LogDriver logs servo commands instead of driving hardware. Repeated
// identical commands on a channel are logged once.
type LogDriver struct {
	mu   sync.Mutex
	last map[string]float64
}

func NewLog() *LogDriver {
	return &LogDriver{last: make(map[string]float64)}
}

func (d *LogDriver) WriteServo(channel string, value float64) {
	d.mu.Lock()
	prev, seen := d.last[channel]
	d.last[channel] = value
	d.mu.Unlock()

	if seen && (prev == value || (math.IsNaN(prev) && math.IsNaN(value))) {
		return
	}
	log.Printf("servo: %s <- %.2f", channel, value)
}

// Last returns the last command written to channel.
func (d *LogDriver) Last(channel string) (float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.last[channel]
	return v, ok
}

func (d *LogDriver) Close() error { return nil }

// Tee fans each command out to every actuator.
func Tee(outs ...facetrack.Actuator) facetrack.Actuator {
	return facetrack.ActuatorFunc(func(channel string, value float64) {
		for _, out := range outs {
			out.WriteServo(channel, value)
		}
	})
}
