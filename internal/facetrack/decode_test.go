package facetrack

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_FullPacket(t *testing.T) {
	f := Decode("05124803910007")

	assert.Equal(t, 5.0, f.X)
	assert.Equal(t, 12.0, f.Y)
	assert.Equal(t, 48.0, f.Z)
	assert.Equal(t, 3.0, f.Yaw)
	assert.Equal(t, 91.0, f.Pitch)
	assert.Equal(t, 0.0, f.Roll)
	assert.Equal(t, 7.0, f.Mouth)
}

func TestDecode_IgnoresTrailingBytes(t *testing.T) {
	f := Decode("0102030405060799999")
	assert.Equal(t, Frame{X: 1, Y: 2, Z: 3, Yaw: 4, Pitch: 5, Roll: 6, Mouth: 7}, f)
}

func TestDecode_MalformedFieldIsIsolated(t *testing.T) {
	f := Decode("05xx4803910007")

	assert.Equal(t, 5.0, f.X)
	assert.True(t, math.IsNaN(f.Y), "Y should be NaN, got %v", f.Y)
	assert.Equal(t, 48.0, f.Z)
	assert.Equal(t, 3.0, f.Yaw)
	assert.Equal(t, 91.0, f.Pitch)
	assert.Equal(t, 0.0, f.Roll)
	assert.Equal(t, 7.0, f.Mouth)
}

func TestDecode_ShortLine(t *testing.T) {
	t.Run("cut at a field boundary", func(t *testing.T) {
		f := Decode("051248")
		assert.Equal(t, 5.0, f.X)
		assert.Equal(t, 12.0, f.Y)
		assert.Equal(t, 48.0, f.Z)
		for name, v := range map[string]float64{"yaw": f.Yaw, "pitch": f.Pitch, "roll": f.Roll, "mouth": f.Mouth} {
			assert.True(t, math.IsNaN(v), "%s should be NaN, got %v", name, v)
		}
	})

	t.Run("empty line", func(t *testing.T) {
		f := Decode("")
		for _, v := range []float64{f.X, f.Y, f.Z, f.Yaw, f.Pitch, f.Roll, f.Mouth} {
			assert.True(t, math.IsNaN(v))
		}
	})

	t.Run("half a field parses its single character", func(t *testing.T) {
		f := Decode("0512480391000")
		assert.Equal(t, 0.0, f.Roll)
		assert.Equal(t, 0.0, f.Mouth)

		f = Decode("051")
		assert.Equal(t, 5.0, f.X)
		assert.Equal(t, 1.0, f.Y)
		assert.True(t, math.IsNaN(f.Z))
	})
}

func TestDecode_OffsetsCountBytes(t *testing.T) {
	// "é" is two bytes and fills the X field on its own
	f := Decode("é0203040506070")

	assert.True(t, math.IsNaN(f.X))
	assert.Equal(t, 2.0, f.Y)
	assert.Equal(t, 3.0, f.Z)
	assert.Equal(t, 7.0, f.Mouth)
}

func TestParseFloatPrefix(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		nan  bool
	}{
		{in: "42", want: 42},
		{in: "07", want: 7},
		{in: "-5", want: -5},
		{in: "+5", want: 5},
		{in: "1.", want: 1},
		{in: ".5", want: 0.5},
		{in: " 7", want: 7},
		{in: "5a", want: 5},
		{in: "1e", want: 1},
		{in: "1e3", want: 1000},
		{in: "0x", want: 0},
		{in: "a5", nan: true},
		{in: "--", nan: true},
		{in: "-", nan: true},
		{in: ".", nan: true},
		{in: "  ", nan: true},
		{in: "", nan: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseFloatPrefix(tt.in)
			if tt.nan {
				assert.True(t, math.IsNaN(got), "ParseFloatPrefix(%q) = %v, want NaN", tt.in, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFrame_JSONCarriesNaNAsNull(t *testing.T) {
	f := Decode("05xx")

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":5,"y":null,"z":null,"yaw":null,"pitch":null,"roll":null,"mouth":null}`, string(data))

	var back Frame
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 5.0, back.X)
	assert.True(t, math.IsNaN(back.Y))
	assert.True(t, math.IsNaN(back.Mouth))
}
