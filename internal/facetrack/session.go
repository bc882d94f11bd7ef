// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package facetrack

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// Delimiter terminates every packet line.
const Delimiter = '\n'

// LineLink is the transport a Session reads packets from.
// The handler registered with OnLineReceived runs once per buffered line
// and retrieves it with ReadUntil.
type LineLink interface {
	Start(ctx context.Context) error
	Ready() bool
	OnLineReceived(delim byte, fn func())
	ReadUntil(delim byte) string
}

// Session owns the frame store and servo bindings for one connected
// face-tracking peripheral.
type Session struct {
	link   LineLink
	store  *Store
	mapper *Mapper

	startOnce sync.Once
	startErr  error
}

// NewSession wires a link and an actuator around a fresh store.
// The link may be nil when frames are fed through HandleLine directly.
func NewSession(link LineLink, out Actuator, cfg MapperConfig) *Session {
	store := NewStore()
	return &Session{
		link:   link,
		store:  store,
		mapper: NewMapper(store, out, cfg),
	}
}

// Start registers the packet handler and starts the link if it is not
// already running. Only the first call has any effect.
func (s *Session) Start(ctx context.Context) error {
	s.startOnce.Do(func() {
		if s.link == nil {
			return
		}
		s.link.OnLineReceived(Delimiter, func() {
			s.HandleLine(s.link.ReadUntil(Delimiter))
		})
		if s.link.Ready() {
			return
		}
		if err := s.link.Start(ctx); err != nil {
			s.startErr = fmt.Errorf("start link: %w", err)
			return
		}
		log.Println("session: link started")
	})
	return s.startErr
}

// HandleLine decodes one packet line into the store.
func (s *Session) HandleLine(line string) {
	s.store.Update(Decode(line))
}

// Store exposes the session's frame store.
func (s *Session) Store() *Store { return s.store }

// Mapper exposes the session's servo mapper.
func (s *Session) Mapper() *Mapper { return s.mapper }

func (s *Session) Snapshot() (Frame, uint64) { return s.store.Snapshot() }

func (s *Session) X() float64     { return s.store.X() }
func (s *Session) Y() float64     { return s.store.Y() }
func (s *Session) Z() float64     { return s.store.Z() }
func (s *Session) Yaw() float64   { return s.store.Yaw() }
func (s *Session) Pitch() float64 { return s.store.Pitch() }
func (s *Session) Roll() float64  { return s.store.Roll() }
func (s *Session) Mouth() float64 { return s.store.Mouth() }

func (s *Session) MapYawToActuator(override ...string) float64 {
	return s.mapper.MapYawToActuator(override...)
}

func (s *Session) MapPitchToActuator(override ...string) float64 {
	return s.mapper.MapPitchToActuator(override...)
}

func (s *Session) SetYawActuatorChannel(ch string)   { s.mapper.SetYawActuatorChannel(ch) }
func (s *Session) SetPitchActuatorChannel(ch string) { s.mapper.SetPitchActuatorChannel(ch) }
