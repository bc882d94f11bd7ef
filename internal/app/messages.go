// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/face_tracker/internal/facetrack"
)

// FrameMessage is published on the frame topic for every new packet.
type FrameMessage struct {
	Seq   uint64          `json:"seq"`
	Time  string          `json:"time"`
	Frame facetrack.Frame `json:"frame"`
}

// Link states published on the status topic.
const (
	StateConnected    = "connected"
	StateDisconnected = "disconnected"
	StateOffline      = "offline" // broker will message
)

// StatusMessage reports the peripheral link state.
type StatusMessage struct {
	State string `json:"state"`
	Time  string `json:"time"`
}

// CommandMessage is accepted on the command topic.
//
//	{"action":"set_yaw_channel","channel":"P2"}
//	{"action":"map_pitch","channel":"P16"}
type CommandMessage struct {
	Action  string `json:"action"`
	Channel string `json:"channel,omitempty"`
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func statusPayload(state string) []byte {
	b, _ := json.Marshal(StatusMessage{State: state, Time: nowRFC3339()})
	return b
}

// connectMQTT connects with the given options and waits for the result.
func connectMQTT(opts *mqtt.ClientOptions) (mqtt.Client, error) {
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect: %w", token.Error())
	}
	return client, nil
}

// subscribe blocks until the broker acknowledges the subscription.
func subscribe(client mqtt.Client, topic string, handler mqtt.MessageHandler) error {
	token := client.Subscribe(topic, 0, handler)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	return nil
}
