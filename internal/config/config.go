package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/relabs-tech/face_tracker/internal/facetrack"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientIDTracker string
	MQTTClientIDConsole string
	MQTTClientIDWeb     string
	MQTTClientIDDisplay string

	// Topics
	TopicFrame   string
	TopicStatus  string
	TopicServo   string
	TopicCommand string

	// Link to the face-tracking peripheral
	LinkSerialPort     string
	LinkBaudRate       int
	LinkMock           bool
	LinkReconnectDelay int // milliseconds
	MockPacketInterval int // milliseconds

	// Actuators
	ActuatorDriver  string            // "periph", "pca9685", "mqtt" or "log"
	Channels        []string          // channels accepted as per-call overrides
	ChannelMap      map[string]string // channel id -> GPIO name (periph) or PCA9685 output (pca9685)
	YawChannel      string
	PitchChannel    string
	YawRange        facetrack.Range
	PitchRange      facetrack.Range
	ServoMinPulseUS int
	ServoMaxPulseUS int
	PCA9685I2CDev   string
	PCA9685I2CAddr  uint8

	// Timing
	ServoUpdateInterval int // milliseconds

	// Web Server
	WebServerPort int

	// Display
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal() and Get().
//   - configOnce: ensures InitGlobal() only runs once.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for keys absent from the file.
// The channel set mirrors the output pins the peripheral kit exposes.
func Default() *Config {
	return &Config{
		MQTTBroker:          "tcp://localhost:1883",
		MQTTClientIDTracker: "face-tracker",
		MQTTClientIDConsole: "face-tracker-console",
		MQTTClientIDWeb:     "face-tracker-web",
		MQTTClientIDDisplay: "face-tracker-display",

		TopicFrame:   "facetrack/frame",
		TopicStatus:  "facetrack/status",
		TopicServo:   "facetrack/servo",
		TopicCommand: "facetrack/cmd",

		LinkBaudRate:       115200,
		LinkReconnectDelay: 1000,
		MockPacketInterval: 50,

		ActuatorDriver: "log",
		Channels:       []string{"P0", "P1", "P2", "P4", "P10", "P16", "P18"},
		ChannelMap:     map[string]string{},
		YawChannel:     "P0",
		PitchChannel:   "P1",
		YawRange:       facetrack.DefaultYawRange,
		PitchRange:     facetrack.DefaultPitchRange,

		ServoMinPulseUS: 500,
		ServoMaxPulseUS: 2500,
		PCA9685I2CDev:   "/dev/i2c-1",
		PCA9685I2CAddr:  0x40,

		ServoUpdateInterval: 50,
		WebServerPort:       8080,

		DisplayI2CAddr:        0x3C,
		DisplayUpdateInterval: 200,
	}
}

// Load reads the configuration file on top of Default().
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_TRACKER":
		c.MQTTClientIDTracker = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_FRAME":
		c.TopicFrame = value
	case "TOPIC_STATUS":
		c.TopicStatus = value
	case "TOPIC_SERVO":
		c.TopicServo = value
	case "TOPIC_COMMAND":
		c.TopicCommand = value

	// Link
	case "LINK_SERIAL_PORT":
		c.LinkSerialPort = value
	case "LINK_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid LINK_BAUD_RATE %q: %w", value, err)
		}
		c.LinkBaudRate = rate
	case "LINK_MOCK":
		mock, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid LINK_MOCK %q: %w", value, err)
		}
		c.LinkMock = mock
	case "LINK_RECONNECT_DELAY":
		delay, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid LINK_RECONNECT_DELAY %q: %w", value, err)
		}
		c.LinkReconnectDelay = delay
	case "MOCK_PACKET_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MOCK_PACKET_INTERVAL %q: %w", value, err)
		}
		c.MockPacketInterval = interval

	// Actuators
	case "ACTUATOR_DRIVER":
		switch value {
		case "periph", "pca9685", "mqtt", "log":
			c.ActuatorDriver = value
		default:
			return fmt.Errorf("ACTUATOR_DRIVER must be periph, pca9685, mqtt or log, got %q", value)
		}
	case "CHANNELS":
		c.Channels = splitList(value)
	case "CHANNEL_MAP":
		m, err := parseChannelMap(value)
		if err != nil {
			return fmt.Errorf("invalid CHANNEL_MAP: %w", err)
		}
		c.ChannelMap = m
	case "YAW_CHANNEL":
		c.YawChannel = value
	case "PITCH_CHANNEL":
		c.PitchChannel = value
	case "YAW_MAP":
		r, err := parseRange(value)
		if err != nil {
			return fmt.Errorf("invalid YAW_MAP %q: %w", value, err)
		}
		c.YawRange = r
	case "PITCH_MAP":
		r, err := parseRange(value)
		if err != nil {
			return fmt.Errorf("invalid PITCH_MAP %q: %w", value, err)
		}
		c.PitchRange = r
	case "SERVO_MIN_PULSE_US":
		us, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SERVO_MIN_PULSE_US %q: %w", value, err)
		}
		c.ServoMinPulseUS = us
	case "SERVO_MAX_PULSE_US":
		us, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SERVO_MAX_PULSE_US %q: %w", value, err)
		}
		c.ServoMaxPulseUS = us
	case "PCA9685_I2C_DEVICE":
		c.PCA9685I2CDev = value
	case "PCA9685_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 8)
		if err != nil {
			return fmt.Errorf("invalid PCA9685_I2C_ADDR %q: %w", value, err)
		}
		c.PCA9685I2CAddr = uint8(addr)

	// Timing
	case "SERVO_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SERVO_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.ServoUpdateInterval = interval

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, err)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks required fields and that the configured servo
// bindings are channels the rig actually exposes.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if !c.LinkMock && c.LinkSerialPort == "" {
		return fmt.Errorf("LINK_SERIAL_PORT is required unless LINK_MOCK=true")
	}
	if c.LinkBaudRate <= 0 {
		return fmt.Errorf("LINK_BAUD_RATE must be positive, got %d", c.LinkBaudRate)
	}
	if c.ServoUpdateInterval <= 0 {
		return fmt.Errorf("SERVO_UPDATE_INTERVAL must be positive, got %d", c.ServoUpdateInterval)
	}
	if c.MockPacketInterval <= 0 {
		return fmt.Errorf("MOCK_PACKET_INTERVAL must be positive, got %d", c.MockPacketInterval)
	}
	if len(c.Channels) == 0 {
		return fmt.Errorf("CHANNELS must list at least one channel")
	}
	if !c.HasChannel(c.YawChannel) {
		return fmt.Errorf("YAW_CHANNEL %q is not in CHANNELS %v", c.YawChannel, c.Channels)
	}
	if !c.HasChannel(c.PitchChannel) {
		return fmt.Errorf("PITCH_CHANNEL %q is not in CHANNELS %v", c.PitchChannel, c.Channels)
	}
	for id := range c.ChannelMap {
		if !c.HasChannel(id) {
			return fmt.Errorf("CHANNEL_MAP entry %q is not in CHANNELS %v", id, c.Channels)
		}
	}
	if err := c.YawRange.Validate(); err != nil {
		return fmt.Errorf("YAW_MAP: %w", err)
	}
	if err := c.PitchRange.Validate(); err != nil {
		return fmt.Errorf("PITCH_MAP: %w", err)
	}
	if c.ServoMinPulseUS <= 0 || c.ServoMaxPulseUS <= c.ServoMinPulseUS {
		return fmt.Errorf("servo pulse range must satisfy 0 < SERVO_MIN_PULSE_US < SERVO_MAX_PULSE_US, got %d..%d",
			c.ServoMinPulseUS, c.ServoMaxPulseUS)
	}
	return nil
}

// HasChannel reports whether id is one of the configured channels.
func (c *Config) HasChannel(id string) bool {
	for _, ch := range c.Channels {
		if ch == id {
			return true
		}
	}
	return false
}

// MapperConfig returns the servo bindings for a facetrack session.
func (c *Config) MapperConfig() facetrack.MapperConfig {
	return facetrack.MapperConfig{
		YawChannel:   c.YawChannel,
		PitchChannel: c.PitchChannel,
		Allowed:      c.Channels,
		YawRange:     c.YawRange,
		PitchRange:   c.PitchRange,
	}
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseChannelMap parses "P0:GPIO12,P1:GPIO13".
func parseChannelMap(value string) (map[string]string, error) {
	m := make(map[string]string)
	for _, item := range splitList(value) {
		id, target, ok := strings.Cut(item, ":")
		id, target = strings.TrimSpace(id), strings.TrimSpace(target)
		if !ok || id == "" || target == "" {
			return nil, fmt.Errorf("entry %q must be CHANNEL:TARGET", item)
		}
		m[id] = target
	}
	return m, nil
}

// parseRange parses "inLow,inHigh,outLow,outHigh".
func parseRange(value string) (facetrack.Range, error) {
	parts := splitList(value)
	if len(parts) != 4 {
		return facetrack.Range{}, fmt.Errorf("want 4 comma-separated numbers, got %d", len(parts))
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return facetrack.Range{}, err
		}
		v[i] = f
	}
	return facetrack.Range{InLow: v[0], InHigh: v[1], OutLow: v[2], OutHigh: v[3]}, nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
