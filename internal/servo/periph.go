// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package servo

import (
	"fmt"
	"log"
	"math"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// ServoFrequency is the standard hobby servo refresh rate.
const ServoFrequency = 50 * physic.Hertz

// servoPeriodUS is one PWM period at ServoFrequency.
const servoPeriodUS = 20000.0

// PeriphDriver drives servos from GPIO pins with hardware PWM.
type PeriphDriver struct {
	minUS, maxUS int

	mu   sync.Mutex
	pins map[string]gpio.PinIO
}

// NewPeriph initializes the periph host and registers each channel id
// in aliases as a GPIO alias, e.g. "P0" -> "GPIO12". Channels without an
// alias are looked up by their own name.
func NewPeriph(aliases map[string]string, minUS, maxUS int) (*PeriphDriver, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	for id, target := range aliases {
		if err := gpioreg.RegisterAlias(id, target); err != nil {
			return nil, fmt.Errorf("servo channel %s -> %s: %w", id, target, err)
		}
		log.Printf("servo: channel %s mapped to %s", id, target)
	}
	return &PeriphDriver{minUS: minUS, maxUS: maxUS, pins: make(map[string]gpio.PinIO)}, nil
}

// Duty converts a command in degrees to a PWM duty cycle at ServoFrequency.
func Duty(angle float64, minUS, maxUS int) gpio.Duty {
	return gpio.Duty(PulseWidthUS(angle, minUS, maxUS) / servoPeriodUS * float64(gpio.DutyMax))
}

// WriteServo sets the pulse on channel. Unknown pins and NaN commands are
// logged and dropped.
func (d *PeriphDriver) WriteServo(channel string, value float64) {
	if math.IsNaN(value) {
		return
	}
	pin, err := d.pin(channel)
	if err != nil {
		log.Printf("servo: %v", err)
		return
	}
	if err := pin.PWM(Duty(value, d.minUS, d.maxUS), ServoFrequency); err != nil {
		log.Printf("servo: %s PWM: %v", channel, err)
	}
}

func (d *PeriphDriver) pin(channel string) (gpio.PinIO, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.pins[channel]; ok {
		return p, nil
	}
	p := gpioreg.ByName(channel)
	if p == nil {
		return nil, fmt.Errorf("channel %q: GPIO pin not found", channel)
	}
	d.pins[channel] = p
	return p, nil
}

// Close stops PWM on every pin that was driven.
func (d *PeriphDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var first error
	for name, p := range d.pins {
		if err := p.Halt(); err != nil && first == nil {
			first = fmt.Errorf("halt %s: %w", name, err)
		}
	}
	return first
}
