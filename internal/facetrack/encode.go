// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package facetrack

import (
	"math"
	"strconv"
	"strings"
)

// Encode renders f in the peripheral's packet layout, without the
// delimiter. Each field is rounded and clamped to 00..99; NaN fields
// are sent as "--" so they decode back to NaN.
func Encode(f Frame) string {
	var b strings.Builder
	b.Grow(PacketLen)
	for _, v := range []float64{f.X, f.Y, f.Z, f.Yaw, f.Pitch, f.Roll, f.Mouth} {
		b.WriteString(encodeField(v))
	}
	return b.String()
}

func encodeField(v float64) string {
	if math.IsNaN(v) {
		return "--"
	}
	n := int(math.Round(v))
	if n < 0 {
		n = 0
	}
	if n > 99 {
		n = 99
	}
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
