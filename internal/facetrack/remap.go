// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package facetrack

import "fmt"

// Range describes a linear mapping from [InLow, InHigh] to [OutLow, OutHigh].
type Range struct {
	InLow   float64
	InHigh  float64
	OutLow  float64
	OutHigh float64
}

var (
	// DefaultYawRange maps yaw 0..10 onto 180..0 (inverted).
	DefaultYawRange = Range{InLow: 0, InHigh: 10, OutLow: 180, OutHigh: 0}
	// DefaultPitchRange maps pitch 10..100 onto 0..90.
	DefaultPitchRange = Range{InLow: 10, InHigh: 100, OutLow: 0, OutHigh: 90}
)

// Remap linearly rescales x. Values outside the input domain
// extrapolate; nothing is clamped.
func Remap(x, inLow, inHigh, outLow, outHigh float64) float64 {
	return (x-inLow)*(outHigh-outLow)/(inHigh-inLow) + outLow
}

// Apply remaps x through r.
func (r Range) Apply(x float64) float64 {
	return Remap(x, r.InLow, r.InHigh, r.OutLow, r.OutHigh)
}

// Validate rejects an empty input domain.
func (r Range) Validate() error {
	if r.InLow == r.InHigh {
		return fmt.Errorf("input range is empty (%g..%g)", r.InLow, r.InHigh)
	}
	return nil
}

func (r Range) String() string {
	return fmt.Sprintf("[%g,%g]->[%g,%g]", r.InLow, r.InHigh, r.OutLow, r.OutHigh)
}
