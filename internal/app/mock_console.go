// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/relabs-tech/face_tracker/internal/facetrack"
	"github.com/relabs-tech/face_tracker/internal/link"
	"github.com/relabs-tech/face_tracker/internal/servo"
)

// RunMockConsole decodes packets from a simulated peripheral and prints
// the frame and servo commands. It needs no hardware and no broker.
func RunMockConsole() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	lk, err := link.New(link.Config{Name: "mock", Open: link.MockOpener(50 * time.Millisecond)})
	if err != nil {
		return err
	}
	defer lk.Close()

	session := facetrack.NewSession(lk, servo.NewLog(), facetrack.MapperConfig{
		YawChannel:   "P0",
		PitchChannel: "P1",
	})
	if err := session.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			f, seq := session.Snapshot()
			if seq == 0 {
				continue
			}
			yaw := session.MapYawToActuator()
			pitch := session.MapPitchToActuator()
			fmt.Printf("%s  -> yaw servo %6.1f  pitch servo %6.1f\n", formatFrame(seq, f), yaw, pitch)
		}
	}
}
