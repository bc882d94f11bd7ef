// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package facetrack

import (
	"math"
	"strconv"
)

// Packet layout: seven 2-character fields, back to back.
//
//	offset:  0  2  4  6   8     10   12
//	field:   x  y  z  yaw pitch roll mouth
const (
	FieldWidth = 2
	FieldCount = 7
	PacketLen  = FieldWidth * FieldCount
)

const (
	offX     = 0
	offY     = 2
	offZ     = 4
	offYaw   = 6
	offPitch = 8
	offRoll  = 10
	offMouth = 12
)

// Decode extracts the seven fixed-width fields from one packet line.
// Each field parses on its own; a bad or missing field becomes NaN
// and does not affect the others. Decode never fails.
func Decode(line string) Frame {
	return Frame{
		X:     parseField(line, offX),
		Y:     parseField(line, offY),
		Z:     parseField(line, offZ),
		Yaw:   parseField(line, offYaw),
		Pitch: parseField(line, offPitch),
		Roll:  parseField(line, offRoll),
		Mouth: parseField(line, offMouth),
	}
}

// field returns the substring at off, truncated at the end of line.
// Offsets count bytes; the wire format is ASCII.
func field(line string, off int) string {
	if off >= len(line) {
		return ""
	}
	end := off + FieldWidth
	if end > len(line) {
		end = len(line)
	}
	return line[off:end]
}

func parseField(line string, off int) float64 {
	return ParseFloatPrefix(field(line, off))
}

// ParseFloatPrefix parses the longest numeric prefix of s, after leading
// whitespace, the way the peripheral's host parses packet fields:
// "5a" is 5, " 7" is 7, "a5" and "" are NaN.
func ParseFloatPrefix(s string) float64 {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	s = s[i:]

	n := 0
	if n < len(s) && (s[n] == '+' || s[n] == '-') {
		n++
	}
	intDigits := countDigits(s[n:])
	n += intDigits
	fracDigits := 0
	if n < len(s) && s[n] == '.' {
		fracDigits = countDigits(s[n+1:])
		if intDigits > 0 || fracDigits > 0 {
			n += 1 + fracDigits
		}
	}
	if intDigits == 0 && fracDigits == 0 {
		return math.NaN()
	}
	if n < len(s) && (s[n] == 'e' || s[n] == 'E') {
		m := n + 1
		if m < len(s) && (s[m] == '+' || s[m] == '-') {
			m++
		}
		if d := countDigits(s[m:]); d > 0 {
			n = m + d
		}
	}

	v, err := strconv.ParseFloat(s[:n], 64)
	if err != nil {
		// out of range still yields ±Inf from ParseFloat
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return v
		}
		return math.NaN()
	}
	return v
}

func countDigits(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
