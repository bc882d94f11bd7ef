// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"io"
	"math"
	"sync"
	"time"

	"github.com/relabs-tech/face_tracker/internal/facetrack"
)

// MockFrame generates a smoothly changing face pose at elapsed seconds.
// Yaw sweeps 0..10, pitch 10..100 and the mouth opens and closes.
func MockFrame(elapsed float64) facetrack.Frame {
	return facetrack.Frame{
		X:     50 + 30*math.Sin(elapsed*0.5),
		Y:     50 + 20*math.Cos(elapsed*0.3),
		Z:     40 + 10*math.Sin(elapsed*0.2),
		Yaw:   5 + 5*math.Sin(elapsed),
		Pitch: 55 + 44*math.Cos(elapsed*0.7),
		Roll:  50 + 15*math.Sin(elapsed*1.3),
		Mouth: 49.5 + 49.5*math.Sin(elapsed*2),
	}
}

// MockOpener returns an opener for a simulated peripheral that writes
// one packet line every interval until the stream is closed.
func MockOpener(interval time.Duration) Opener {
	return func() (io.ReadWriteCloser, error) {
		return newMockPeripheral(interval), nil
	}
}

type mockPeripheral struct {
	pr   *io.PipeReader
	pw   *io.PipeWriter
	stop chan struct{}
	once sync.Once
}

func newMockPeripheral(interval time.Duration) *mockPeripheral {
	pr, pw := io.Pipe()
	m := &mockPeripheral{pr: pr, pw: pw, stop: make(chan struct{})}
	go m.run(interval)
	return m
}

func (m *mockPeripheral) run(interval time.Duration) {
	start := time.Now()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			line := facetrack.Encode(MockFrame(time.Since(start).Seconds())) + "\n"
			if _, err := m.pw.Write([]byte(line)); err != nil {
				return
			}
		}
	}
}

func (m *mockPeripheral) Read(p []byte) (int, error) { return m.pr.Read(p) }

// Write discards data; the peripheral takes no commands.
func (m *mockPeripheral) Write(p []byte) (int, error) { return len(p), nil }

func (m *mockPeripheral) Close() error {
	m.once.Do(func() {
		close(m.stop)
		_ = m.pw.Close()
		_ = m.pr.Close()
	})
	return nil
}
