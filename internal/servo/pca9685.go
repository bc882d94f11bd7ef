// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package servo

import (
	"fmt"
	"log"
	"math"
	"strconv"

	"github.com/googolgl/go-i2c"
	"github.com/googolgl/go-pca9685"
)

// MaxPCA9685Channels is the number of outputs on one PCA9685 board.
const MaxPCA9685Channels = 16

// PCA9685Driver drives servos through a PCA9685 PWM board over I2C.
type PCA9685Driver struct {
	driver *pca9685.PCA9685
	servos map[string]*pca9685.Servo
}

// NewPCA9685 opens the board and creates one servo per entry in
// channels, which maps channel ids to board outputs ("P0" -> "0").
func NewPCA9685(dev string, addr uint8, channels map[string]string, minUS, maxUS int) (*PCA9685Driver, error) {
	bus, err := i2c.New(addr, dev)
	if err != nil {
		return nil, fmt.Errorf("pca9685: i2c %s addr 0x%02X: %w", dev, addr, err)
	}

	driver, err := pca9685.New(bus, nil)
	if err != nil {
		return nil, fmt.Errorf("pca9685: driver: %w", err)
	}

	d := &PCA9685Driver{driver: driver, servos: make(map[string]*pca9685.Servo, len(channels))}
	for id, out := range channels {
		n, err := strconv.Atoi(out)
		if err != nil || n < 0 || n >= MaxPCA9685Channels {
			return nil, fmt.Errorf("pca9685: channel %s: output %q must be 0-%d", id, out, MaxPCA9685Channels-1)
		}
		d.servos[id] = driver.ServoNew(n, &pca9685.ServOptions{
			AcRange:  pca9685.ServoRangeDef,
			MinPulse: float32(minUS),
			MaxPulse: float32(maxUS),
		})
		log.Printf("pca9685: servo %s on output %d", id, n)
	}
	return d, nil
}

// WriteServo moves the servo on channel. Unknown channels and NaN
// commands are dropped.
func (d *PCA9685Driver) WriteServo(channel string, value float64) {
	if math.IsNaN(value) {
		return
	}
	s, ok := d.servos[channel]
	if !ok {
		log.Printf("pca9685: no servo on channel %q", channel)
		return
	}
	if err := s.Fraction(float32(ClampAngle(value) / MaxAngle)); err != nil {
		log.Printf("pca9685: channel %s value %.2f: %v", channel, value, err)
	}
}

// Close centers every servo.
func (d *PCA9685Driver) Close() error {
	for id, s := range d.servos {
		if err := s.Fraction(0.5); err != nil {
			return fmt.Errorf("pca9685: center %s: %w", id, err)
		}
	}
	return nil
}
