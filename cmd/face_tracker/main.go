// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/relabs-tech/face_tracker/internal/app"
	"github.com/relabs-tech/face_tracker/internal/config"
	"github.com/relabs-tech/face_tracker/internal/link"
)

func main() {
	configPath := flag.String("config", "face_tracker_config.txt", "path to config file")
	listPorts := flag.Bool("list-ports", false, "list serial ports and exit")
	flag.Parse()

	if *listPorts {
		ports, err := link.ListPorts()
		if err != nil {
			log.Fatalf("list ports: %v", err)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	log.Println("starting face-tracker")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunFaceTracker(config.Get()); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
