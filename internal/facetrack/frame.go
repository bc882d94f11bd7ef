// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package facetrack

import (
	"encoding/json"
	"math"
)

// Frame is one decoded face-tracking packet.
// Fields that failed to parse hold NaN.
type Frame struct {
	X     float64
	Y     float64
	Z     float64
	Yaw   float64
	Pitch float64
	Roll  float64
	Mouth float64
}

// frameJSON is the wire shape used on MQTT and the web API.
// NaN cannot be encoded by encoding/json, so it travels as null.
type frameJSON struct {
	X     *float64 `json:"x"`
	Y     *float64 `json:"y"`
	Z     *float64 `json:"z"`
	Yaw   *float64 `json:"yaw"`
	Pitch *float64 `json:"pitch"`
	Roll  *float64 `json:"roll"`
	Mouth *float64 `json:"mouth"`
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func fromNullable(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// MarshalJSON encodes NaN fields as null.
func (f Frame) MarshalJSON() ([]byte, error) {
	return json.Marshal(frameJSON{
		X:     nullable(f.X),
		Y:     nullable(f.Y),
		Z:     nullable(f.Z),
		Yaw:   nullable(f.Yaw),
		Pitch: nullable(f.Pitch),
		Roll:  nullable(f.Roll),
		Mouth: nullable(f.Mouth),
	})
}

// UnmarshalJSON decodes null (or missing) fields as NaN.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var w frameJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*f = Frame{
		X:     fromNullable(w.X),
		Y:     fromNullable(w.Y),
		Z:     fromNullable(w.Z),
		Yaw:   fromNullable(w.Yaw),
		Pitch: fromNullable(w.Pitch),
		Roll:  fromNullable(w.Roll),
		Mouth: fromNullable(w.Mouth),
	}
	return nil
}
