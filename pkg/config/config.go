package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/itohio/linetracer/pkg/position"
	"gopkg.in/yaml.v3"
)

// ErrInvalidWeights is returned by Validate when the sensor weights do not describe a symmetric array.
var ErrInvalidWeights = errors.New("invalid sensor weights")

// Config represents the application configuration.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Sensor      SensorConfig      `yaml:"sensor"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Control     ControlConfig     `yaml:"control"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	HostIO      HostIOConfig      `yaml:"hostio"`
	Mock        MockConfig        `yaml:"mock"`
}

// SerialConfig contains the ADC bridge serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// SensorConfig describes the physical layout of the sensor array.
type SensorConfig struct {
	Weights []float32 `yaml:"weights"` // Leftmost first, sign-symmetric around the center
}

// CalibrationConfig contains the timing of the button-gated calibration protocol.
type CalibrationConfig struct {
	Window   time.Duration `yaml:"window"`   // Averaging window per exposure
	Interval time.Duration `yaml:"interval"` // Poll interval inside the window
	Debounce time.Duration `yaml:"debounce"` // Button must hold its state longer than this
	Settle   time.Duration `yaml:"settle"`   // Pause after a button gate
}

// ControlConfig contains steering gains and duty limits.
type ControlConfig struct {
	Kp             float32       `yaml:"kp"`
	Ki             float32       `yaml:"ki"`
	Kd             float32       `yaml:"kd"`
	SymmetricClamp bool          `yaml:"symmetric_clamp"` // Also floor the integral at -max (behaviour change)
	NeutralSpeed   int32         `yaml:"neutral_speed"`
	DutyMax        int32         `yaml:"duty_max"`
	Period         time.Duration `yaml:"period"` // Sleep between loop iterations, 0 = free running
}

// TelemetryConfig contains diagnostic output settings.
type TelemetryConfig struct {
	Every         int     `yaml:"every"` // Emit a frame every N loop iterations (0 = off)
	SerialPort    string  `yaml:"serial_port"`
	MQTTBroker    string  `yaml:"mqtt_broker"`
	MQTTTopic     string  `yaml:"mqtt_topic"`
	MQTTClientID  string  `yaml:"mqtt_client_id"`
	WebsocketAddr string  `yaml:"websocket_addr"`
	WindowSeconds float64 `yaml:"window_seconds"` // History kept by the monitor
}

// HostIOConfig contains periph pin names for running on a Linux board.
type HostIOConfig struct {
	ButtonPin    string `yaml:"button_pin"`
	LeftCWPin    string `yaml:"left_cw_pin"`
	LeftCCWPin   string `yaml:"left_ccw_pin"`
	RightCWPin   string `yaml:"right_cw_pin"`
	RightCCWPin  string `yaml:"right_ccw_pin"`
	PWMFrequency int    `yaml:"pwm_frequency"` // Hz
}

// MockConfig contains simulated track and button configuration.
type MockConfig struct {
	SampleRate  time.Duration `yaml:"sample_rate"`  // Interval between completed scans
	Noise       float64       `yaml:"noise"`        // Noise amplitude in raw counts
	Background  float64       `yaml:"background"`   // Raw reading over the floor
	Mark        float64       `yaml:"mark"`         // Raw reading over the line
	LineWidth   float64       `yaml:"line_width"`   // Line width in sensor pitches
	Amplitude   float64       `yaml:"amplitude"`    // Peak line offset in sensor pitches
	Period      time.Duration `yaml:"period"`       // Line wander period
	ButtonPress time.Duration `yaml:"button_press"` // How long the scripted operator holds each state
}

// DefaultWeights returns the reference sensor weights, outer channels weighted most.
func DefaultWeights() []float32 {
	w := position.DefaultWeights()
	return w[:]
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0",
			BaudRate: 115200,
		},
		Sensor: SensorConfig{
			Weights: DefaultWeights(),
		},
		Calibration: CalibrationConfig{
			Window:   200 * time.Millisecond,
			Interval: time.Millisecond,
			Debounce: 500 * time.Millisecond,
			Settle:   time.Second,
		},
		Control: ControlConfig{
			Kp:           -2.0,
			Ki:           0.0,
			Kd:           -0.00001,
			NeutralSpeed: 6000,
			DutyMax:      24000,
		},
		Telemetry: TelemetryConfig{
			Every:         100,
			MQTTTopic:     "linetracer/telemetry",
			MQTTClientID:  "linetracer",
			WindowSeconds: 10,
		},
		HostIO: HostIOConfig{
			ButtonPin:    "GPIO5",
			LeftCWPin:    "GPIO12",
			LeftCCWPin:   "GPIO13",
			RightCWPin:   "GPIO18",
			RightCCWPin:  "GPIO19",
			PWMFrequency: 20000,
		},
		Mock: MockConfig{
			SampleRate:  time.Millisecond,
			Noise:       8,
			Background:  400,
			Mark:        3600,
			LineWidth:   1.2,
			Amplitude:   2.5,
			Period:      4 * time.Second,
			ButtonPress: 700 * time.Millisecond,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filename, err)
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks invariants that defaults cannot repair.
func (c *Config) Validate() error {
	if _, err := position.WeightsFrom(c.Sensor.Weights); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidWeights, err)
	}

	if c.Control.NeutralSpeed < 0 || c.Control.NeutralSpeed > c.Control.DutyMax {
		return fmt.Errorf("neutral speed %d outside [0, %d]", c.Control.NeutralSpeed, c.Control.DutyMax)
	}
	if c.Control.Period < 0 {
		return fmt.Errorf("negative control period %v", c.Control.Period)
	}
	if c.Mock.SampleRate <= 0 {
		return fmt.Errorf("mock sample rate %v must be positive", c.Mock.SampleRate)
	}
	if c.Telemetry.WindowSeconds <= 0 {
		return fmt.Errorf("telemetry window %vs must be positive", c.Telemetry.WindowSeconds)
	}
	if c.Calibration.Interval > c.Calibration.Window {
		return fmt.Errorf("calibration interval %v longer than window %v", c.Calibration.Interval, c.Calibration.Window)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if len(c.Sensor.Weights) == 0 {
		c.Sensor.Weights = def.Sensor.Weights
	}

	if c.Calibration.Window == 0 {
		c.Calibration.Window = def.Calibration.Window
	}
	if c.Calibration.Interval == 0 {
		c.Calibration.Interval = def.Calibration.Interval
	}
	if c.Calibration.Debounce == 0 {
		c.Calibration.Debounce = def.Calibration.Debounce
	}
	if c.Calibration.Settle == 0 {
		c.Calibration.Settle = def.Calibration.Settle
	}

	if c.Control.DutyMax == 0 {
		c.Control.DutyMax = def.Control.DutyMax
	}

	if c.Telemetry.MQTTTopic == "" {
		c.Telemetry.MQTTTopic = def.Telemetry.MQTTTopic
	}
	if c.Telemetry.MQTTClientID == "" {
		c.Telemetry.MQTTClientID = def.Telemetry.MQTTClientID
	}
	if c.Telemetry.WindowSeconds == 0 {
		c.Telemetry.WindowSeconds = def.Telemetry.WindowSeconds
	}

	if c.HostIO.PWMFrequency == 0 {
		c.HostIO.PWMFrequency = def.HostIO.PWMFrequency
	}

	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}
	if c.Mock.Mark == 0 {
		c.Mock.Mark = def.Mock.Mark
	}
	if c.Mock.LineWidth == 0 {
		c.Mock.LineWidth = def.Mock.LineWidth
	}
	if c.Mock.Period == 0 {
		c.Mock.Period = def.Mock.Period
	}
	if c.Mock.ButtonPress == 0 {
		c.Mock.ButtonPress = def.Mock.ButtonPress
	}
}
