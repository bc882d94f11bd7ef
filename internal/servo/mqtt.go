// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package servo

import (
	"encoding/json"
	"log"
	"math"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Command is the JSON published for each servo write.
type Command struct {
	Channel string  `json:"channel"`
	Value   float64 `json:"value"`
	Time    string  `json:"time"`
}

// MQTTDriver publishes servo commands for a remote controller.
type MQTTDriver struct {
	client mqtt.Client
	topic  string
}

func NewMQTT(client mqtt.Client, topic string) *MQTTDriver {
	return &MQTTDriver{client: client, topic: topic}
}

// WriteServo publishes without waiting for the broker.
func (d *MQTTDriver) WriteServo(channel string, value float64) {
	if math.IsNaN(value) {
		return
	}
	payload, err := json.Marshal(Command{
		Channel: channel,
		Value:   value,
		Time:    time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		log.Printf("servo: marshal command: %v", err)
		return
	}
	d.client.Publish(d.topic, 0, false, payload)
}

func (d *MQTTDriver) Close() error { return nil }
