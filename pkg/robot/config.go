package robot

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the robot configuration
type Config struct {
	Bus     BusConfig     `yaml:"bus"`
	Motors  Calibration   `yaml:"motors,omitempty"`
	Gesture GestureConfig `yaml:"gesture"`
	Sensors SensorsConfig `yaml:"sensors"`
	Control ControlConfig `yaml:"control"`
}

// BusConfig describes the serial servo bus.
type BusConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// GestureConfig describes the armband bridge.
type GestureConfig struct {
	Broker        string `yaml:"broker"`
	ClientID      string `yaml:"client_id"`
	TopicPrefix   string `yaml:"topic_prefix"`
	WaitTimeoutMs int    `yaml:"wait_timeout_ms"` // how long to wait for the band at startup
}

// SensorsConfig describes the limit sensors.
type SensorsConfig struct {
	MockGPIO      bool `yaml:"mock_gpio"`
	AmbientPin    int  `yaml:"ambient_pin"`
	AmbientInvert bool `yaml:"ambient_invert"`
	TouchPin      int  `yaml:"touch_pin"`
}

// ControlConfig tunes the control loop.
type ControlConfig struct {
	Hz                    int     `yaml:"hz"`
	SleepDelayMs          int     `yaml:"sleep_delay_ms"`
	Scale                 int     `yaml:"scale"`
	HorizontalSensitivity int     `yaml:"horizontal_sensitivity"`
	HorizontalMax         int     `yaml:"horizontal_max"`
	VerticalSensitivity   int     `yaml:"vertical_sensitivity"`
	AmbientThreshold      float64 `yaml:"ambient_threshold"`
	GripperOpenDeg        int     `yaml:"gripper_open_deg"`
	GripperClosedDeg      int     `yaml:"gripper_closed_deg"`
}

// IsCalibrated returns true if every motor has calibration data
func (c *Config) IsCalibrated() bool {
	for _, name := range AllMotors() {
		mc, ok := c.Motors[name]
		if !ok || mc.RangeMax <= mc.RangeMin {
			return false
		}
	}
	return true
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfigFrom loads configuration from a specific file
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Bus.BaudRate <= 0 {
		c.Bus.BaudRate = 1_000_000
	}
	if c.Gesture.Broker == "" {
		c.Gesture.Broker = "tcp://localhost:1883"
	}
	if c.Gesture.ClientID == "" {
		c.Gesture.ClientID = "gesturearm"
	}
	if c.Gesture.TopicPrefix == "" {
		c.Gesture.TopicPrefix = "myo"
	}
	if c.Gesture.WaitTimeoutMs <= 0 {
		c.Gesture.WaitTimeoutMs = 10_000
	}
	if c.Sensors.AmbientPin == 0 {
		c.Sensors.AmbientPin = 17
	}
	if c.Sensors.TouchPin == 0 {
		c.Sensors.TouchPin = 27
	}
	if c.Control.Hz <= 0 {
		c.Control.Hz = 20 // hub polled every 1000/20 ms
	}
	if c.Control.SleepDelayMs <= 0 {
		c.Control.SleepDelayMs = 200
	}
	if c.Control.Scale <= 0 {
		c.Control.Scale = 20
	}
	if c.Control.HorizontalSensitivity <= 0 {
		c.Control.HorizontalSensitivity = 10
	}
	if c.Control.HorizontalMax <= 0 {
		c.Control.HorizontalMax = 20
	}
	if c.Control.VerticalSensitivity <= 0 {
		c.Control.VerticalSensitivity = 2
	}
	if c.Control.AmbientThreshold <= 0 {
		c.Control.AmbientThreshold = 0.05
	}
	if c.Control.GripperOpenDeg == 0 {
		c.Control.GripperOpenDeg = 90
	}
	if c.Control.GripperClosedDeg == 0 {
		c.Control.GripperClosedDeg = -90
	}
	for name, mc := range c.Motors {
		if mc.MaxSpeed <= 0 {
			mc.MaxSpeed = 360
		}
		if mc.Acceleration <= 0 {
			mc.Acceleration = 200
		}
		c.Motors[name] = mc
	}
}

func (c *Config) validate() error {
	if c.Control.Hz > 1000 {
		return fmt.Errorf("control.hz must be <= 1000, got %d", c.Control.Hz)
	}
	if c.Control.AmbientThreshold > 1 {
		return fmt.Errorf("control.ambient_threshold must be in (0, 1], got %.3f", c.Control.AmbientThreshold)
	}
	if c.Sensors.AmbientPin == c.Sensors.TouchPin {
		return fmt.Errorf("sensors.ambient_pin and sensors.touch_pin must differ (both %d)", c.Sensors.TouchPin)
	}
	seen := make(map[int]MotorName)
	for name, mc := range c.Motors {
		if other, dup := seen[mc.ID]; dup {
			return fmt.Errorf("motors.%s and motors.%s share servo id %d", name, other, mc.ID)
		}
		seen[mc.ID] = name
		if mc.RangeMax < mc.RangeMin {
			return fmt.Errorf("motors.%s: range_max %d < range_min %d", name, mc.RangeMax, mc.RangeMin)
		}
	}
	return nil
}

// Period returns the control loop tick interval.
func (c *Config) Period() time.Duration {
	return time.Second / time.Duration(c.Control.Hz)
}

// SleepDelay returns the idle delay while the loop is sleeping.
func (c *Config) SleepDelay() time.Duration {
	return time.Duration(c.Control.SleepDelayMs) * time.Millisecond
}

// WaitTimeout returns how long to wait for the armband at startup.
func (c *Config) WaitTimeout() time.Duration {
	return time.Duration(c.Gesture.WaitTimeoutMs) * time.Millisecond
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
