// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"log"

	"github.com/relabs-tech/face_tracker/internal/app"
	"github.com/relabs-tech/face_tracker/internal/config"
)

func main() {
	log.Println("starting face-tracker OLED display (MQTT subscriber)")

	if err := config.InitGlobal("face_tracker_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunDisplay(config.Get()); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
