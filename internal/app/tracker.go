// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/face_tracker/internal/config"
	"github.com/relabs-tech/face_tracker/internal/facetrack"
	"github.com/relabs-tech/face_tracker/internal/link"
	"github.com/relabs-tech/face_tracker/internal/servo"
)

// RunFaceTracker reads packets from the peripheral, drives the yaw and
// pitch servos from the latest frame and publishes frames and link
// status to MQTT until SIGINT/SIGTERM.
func RunFaceTracker(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- 1) Connect to MQTT broker ----
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDTracker).
		SetAutoReconnect(true).
		SetWill(cfg.TopicStatus, string(statusPayload(StateOffline)), 0, true)

	client, err := connectMQTT(opts)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("tracker: connected to MQTT broker at %s", cfg.MQTTBroker)

	// ---- 2) Servo backend ----
	driver, err := servo.New(cfg, client)
	if err != nil {
		return fmt.Errorf("servo driver: %w", err)
	}
	defer driver.Close()
	log.Printf("tracker: servo driver %q, yaw on %s, pitch on %s", cfg.ActuatorDriver, cfg.YawChannel, cfg.PitchChannel)

	var out facetrack.Actuator = driver
	if cfg.ActuatorDriver != "mqtt" {
		// mirror hardware writes so the console can follow them
		out = servo.Tee(driver, servo.NewMQTT(client, cfg.TopicServo))
	}

	// ---- 3) Peripheral link ----
	opener := link.SerialOpener(cfg.LinkSerialPort, cfg.LinkBaudRate)
	name := "link " + cfg.LinkSerialPort
	if cfg.LinkMock {
		opener = link.MockOpener(time.Duration(cfg.MockPacketInterval) * time.Millisecond)
		name = "link mock"
	}
	lk, err := link.New(link.Config{
		Name:           name,
		Open:           opener,
		ReconnectDelay: time.Duration(cfg.LinkReconnectDelay) * time.Millisecond,
	})
	if err != nil {
		return err
	}
	defer lk.Close()

	lk.OnStatus(func(connected bool) {
		state := StateDisconnected
		if connected {
			state = StateConnected
		}
		client.Publish(cfg.TopicStatus, 0, true, statusPayload(state))
	})

	// ---- 4) Session ----
	session := facetrack.NewSession(lk, out, cfg.MapperConfig())
	if err := session.Start(ctx); err != nil {
		return err
	}

	if err := subscribe(client, cfg.TopicCommand, func(_ mqtt.Client, msg mqtt.Message) {
		if err := handleCommand(session, msg.Payload()); err != nil {
			log.Printf("tracker: command: %v", err)
		}
	}); err != nil {
		return err
	}
	log.Printf("tracker: listening for commands on %s", cfg.TopicCommand)

	// ---- 5) Servo / publish loop ----
	ticker := time.NewTicker(time.Duration(cfg.ServoUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		select {
		case <-ctx.Done():
			log.Println("tracker: shutting down")
			return nil
		case <-lk.Done():
			return fmt.Errorf("tracker: link closed")
		case <-ticker.C:
			lastSeq = tick(session, client, cfg.TopicFrame, lastSeq)
		}
	}
}

// tick drives both servos from the latest frame and publishes the frame
// if it is new. Nothing is written before the first packet arrives.
func tick(s *facetrack.Session, client mqtt.Client, topic string, lastSeq uint64) uint64 {
	frame, seq := s.Snapshot()
	if seq == 0 {
		return lastSeq
	}
	s.MapYawToActuator()
	s.MapPitchToActuator()

	if seq == lastSeq {
		return lastSeq
	}
	payload, err := json.Marshal(FrameMessage{Seq: seq, Time: nowRFC3339(), Frame: frame})
	if err != nil {
		log.Printf("tracker: frame marshal error: %v", err)
		return seq
	}
	client.Publish(topic, 0, true, payload)
	return seq
}

// handleCommand applies one command message to the session.
func handleCommand(s *facetrack.Session, payload []byte) error {
	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	switch cmd.Action {
	case "set_yaw_channel":
		if cmd.Channel == "" {
			return fmt.Errorf("%s: channel is required", cmd.Action)
		}
		s.SetYawActuatorChannel(cmd.Channel)
		log.Printf("tracker: yaw servo now on %s", cmd.Channel)
	case "set_pitch_channel":
		if cmd.Channel == "" {
			return fmt.Errorf("%s: channel is required", cmd.Action)
		}
		s.SetPitchActuatorChannel(cmd.Channel)
		log.Printf("tracker: pitch servo now on %s", cmd.Channel)
	case "map_yaw":
		s.MapYawToActuator(cmd.Channel)
	case "map_pitch":
		s.MapPitchToActuator(cmd.Channel)
	default:
		return fmt.Errorf("unknown action %q", cmd.Action)
	}
	return nil
}
