package app

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/face_tracker/internal/config"
)

func RunDisplay(cfg *config.Config) error {
	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, cfg.DisplayI2CAddr, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized at 0x%02X", cfg.DisplayI2CAddr)

	if err := dev.Draw(dev.Bounds(), renderLines([]string{"", " Face Tracker", "  waiting..."}), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	cache := &frameCache{}

	// Connect to MQTT
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)

	client, err := connectMQTT(opts)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	if err := subscribe(client, cfg.TopicFrame, func(_ mqtt.Client, msg mqtt.Message) {
		var m FrameMessage
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			log.Printf("display: frame unmarshal error: %v", err)
			return
		}
		cache.setFrame(m)
	}); err != nil {
		return err
	}
	if err := subscribe(client, cfg.TopicStatus, func(_ mqtt.Client, msg mqtt.Message) {
		var s StatusMessage
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("display: status unmarshal error: %v", err)
			return
		}
		cache.setStatus(s)
	}); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("display: starting update loop")
	displayLoop(ctx, time.Duration(cfg.DisplayUpdateInterval)*time.Millisecond, cache, func(img *image1bit.VerticalLSB) error {
		return dev.Draw(dev.Bounds(), img, image.Point{})
	})

	log.Println("display: shutting down")
	return dev.Halt()
}

// displayLoop redraws the screen from cache every interval until ctx is done.
func displayLoop(ctx context.Context, interval time.Duration, cache *frameCache, draw func(*image1bit.VerticalLSB) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m, ok := cache.frame()
			if err := draw(renderLines(displayLines(m, ok, cache.linkStatus().State))); err != nil {
				log.Printf("display: error updating display: %v", err)
			}
		}
	}
}

// displayLines lays out the 128x64 screen: link state, then yaw, pitch
// and mouth.
func displayLines(m FrameMessage, haveData bool, state string) []string {
	head := "Link: ?"
	switch state {
	case StateConnected:
		head = "Link: :)"
	case StateDisconnected, StateOffline:
		head = "Link: X"
	}

	if !haveData {
		return []string{head, "Face", "Waiting..."}
	}
	return []string{
		head,
		"Yaw:   " + displayValue(m.Frame.Yaw),
		"Pitch: " + displayValue(m.Frame.Pitch),
		"Mouth: " + displayValue(m.Frame.Mouth),
	}
}

func displayValue(v float64) string {
	if math.IsNaN(v) {
		return "  --"
	}
	return fmt.Sprintf("%4.0f", v)
}

// renderLines draws up to four 13px text rows.
func renderLines(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	for i, line := range lines {
		if i >= 4 {
			break
		}
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawBytes([]byte(line))
	}
	return img
}
