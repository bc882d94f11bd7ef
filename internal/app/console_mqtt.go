package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/face_tracker/internal/config"
	"github.com/relabs-tech/face_tracker/internal/facetrack"
	"github.com/relabs-tech/face_tracker/internal/servo"
)

func RunConsoleMQTT(cfg *config.Config) error {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client, err := connectMQTT(opts)
	if err != nil {
		return err
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Subscribe to frames
	if err := subscribe(client, cfg.TopicFrame, func(_ mqtt.Client, msg mqtt.Message) {
		var m FrameMessage
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			log.Printf("console: frame unmarshal error: %v", err)
			return
		}
		fmt.Println(formatFrame(m.Seq, m.Frame))
	}); err != nil {
		return err
	}
	log.Printf("console: subscribed to %s", cfg.TopicFrame)

	// Subscribe to link status
	if err := subscribe(client, cfg.TopicStatus, func(_ mqtt.Client, msg mqtt.Message) {
		var s StatusMessage
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: status unmarshal error: %v", err)
			return
		}
		fmt.Printf("[LINK ] %s at %s\n", s.State, s.Time)
	}); err != nil {
		return err
	}
	log.Printf("console: subscribed to %s", cfg.TopicStatus)

	// Subscribe to servo writes
	if err := subscribe(client, cfg.TopicServo, func(_ mqtt.Client, msg mqtt.Message) {
		var c servo.Command
		if err := json.Unmarshal(msg.Payload(), &c); err != nil {
			log.Printf("console: servo unmarshal error: %v", err)
			return
		}
		fmt.Printf("[SERVO] %-4s <- %7.2f\n", c.Channel, c.Value)
	}); err != nil {
		return err
	}
	log.Printf("console: subscribed to %s", cfg.TopicServo)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

// formatFrame renders one frame as a console line. NaN fields print as "NaN".
func formatFrame(seq uint64, f facetrack.Frame) string {
	return fmt.Sprintf(
		"[FACE ] #%-6d X=%5.1f Y=%5.1f Z=%5.1f  YAW=%5.1f PITCH=%5.1f ROLL=%5.1f  MOUTH=%5.1f",
		seq, f.X, f.Y, f.Z, f.Yaw, f.Pitch, f.Roll, f.Mouth,
	)
}
