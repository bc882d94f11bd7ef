// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package facetrack

import "sync"

// Store holds the most recently decoded frame.
// A new frame replaces all seven fields under one lock, so readers
// never see fields from two different packets.
type Store struct {
	mu    sync.RWMutex
	frame Frame
	seq   uint64
}

// NewStore returns a store with every field at zero.
func NewStore() *Store {
	return &Store{}
}

// Update overwrites the current frame.
func (s *Store) Update(f Frame) {
	s.mu.Lock()
	s.frame = f
	s.seq++
	s.mu.Unlock()
}

// Snapshot returns a consistent copy of the current frame and the
// number of frames stored so far.
func (s *Store) Snapshot() (Frame, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame, s.seq
}

// Received reports whether at least one packet has been stored.
func (s *Store) Received() bool {
	_, seq := s.Snapshot()
	return seq > 0
}

// Seq returns the number of frames stored so far.
func (s *Store) Seq() uint64 {
	_, seq := s.Snapshot()
	return seq
}

func (s *Store) X() float64     { f, _ := s.Snapshot(); return f.X }
func (s *Store) Y() float64     { f, _ := s.Snapshot(); return f.Y }
func (s *Store) Z() float64     { f, _ := s.Snapshot(); return f.Z }
func (s *Store) Yaw() float64   { f, _ := s.Snapshot(); return f.Yaw }
func (s *Store) Pitch() float64 { f, _ := s.Snapshot(); return f.Pitch }
func (s *Store) Roll() float64  { f, _ := s.Snapshot(); return f.Roll }
func (s *Store) Mouth() float64 { f, _ := s.Snapshot(); return f.Mouth }
