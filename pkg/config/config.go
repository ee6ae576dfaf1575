package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every error returned from Validate.
var ErrInvalid = errors.New("invalid configuration")

// SensorKind describes how a raw ADC code maps to a physical quantity.
type SensorKind string

const (
	// VoltageLinear sensors report the divider output voltage directly.
	VoltageLinear SensorKind = "voltage-linear"
	// ResistiveDivider sensors are converted to sensor resistance Rs (kΩ).
	ResistiveDivider SensorKind = "resistive-divider"
)

// RatioKind selects the normalization applied to a converted reading.
type RatioKind string

const (
	SignedLinear  RatioKind = "signed-linear"
	Inverted      RatioKind = "inverted"
	ZScore        RatioKind = "z-score"
	PercentChange RatioKind = "percent-change"
)

// BaselineMode selects how sensor reference values are acquired.
type BaselineMode string

const (
	// BaselineComputed derives references from the leading background window.
	BaselineComputed BaselineMode = "computed"
	// BaselineManual uses the fixed raw-count table in BaselineConfig.Manual.
	BaselineManual BaselineMode = "manual"
)

// Config represents the application configuration.
type Config struct {
	Serial        SerialConfig        `yaml:"serial"`
	ADC           ADCConfig           `yaml:"adc"`
	Sensors       []SensorConfig      `yaml:"sensors"`
	Environment   []string            `yaml:"environment"`
	RawSuffix     string              `yaml:"raw_suffix"`
	Baseline      BaselineConfig      `yaml:"baseline"`
	Phase         PhaseConfig         `yaml:"phase"`
	Smoothing     SmoothingConfig     `yaml:"smoothing"`
	Fusion        FusionConfig        `yaml:"fusion"`
	Concentration ConcentrationConfig `yaml:"concentration"`
	Acquisition   AcquisitionConfig   `yaml:"acquisition"`
	Mock          MockConfig          `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// ADCConfig holds the converter parameters shared by all sensors.
type ADCConfig struct {
	VRef float64 `yaml:"vref"` // Reference supply voltage (V)
	Max  float64 `yaml:"max"`  // Full-scale code (1023 for 10-bit)
}

// SensorConfig describes a single gas sensor channel.
type SensorConfig struct {
	Name           string     `yaml:"name"`
	Kind           SensorKind `yaml:"kind"`
	LoadResistance float64    `yaml:"load_resistance,omitempty"` // kΩ, resistive-divider only
	Ratio          RatioKind  `yaml:"ratio"`
}

// BaselineConfig contains baseline acquisition parameters.
type BaselineConfig struct {
	Mode   BaselineMode `yaml:"mode"`
	Window int          `yaml:"window"` // Leading background samples (K); 0 uses the whole dataset
	Manual ManualTable  `yaml:"manual"` // Raw counts per sensor for manual mode
}

// ManualTable maps sensor names to fixed raw baseline counts.
type ManualTable map[string]float64

// Count returns the count for a sensor. An exact key wins; otherwise keys
// match case-insensitively, like Config.Sensor.
func (m ManualTable) Count(name string) (float64, bool) {
	if v, ok := m[name]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return 0, false
}

// PhaseConfig controls what happens to background rows.
type PhaseConfig struct {
	ExcludeBackground bool `yaml:"exclude_background"`
}

// SmoothingConfig contains the centered moving average parameters.
type SmoothingConfig struct {
	Window int `yaml:"window"`
}

// FusionConfig lists the sensors whose ratios form the distance vector.
// Empty means all sensors, in declaration order.
type FusionConfig struct {
	Sensors []string `yaml:"sensors"`
}

// ConcentrationConfig contains the inverse log-log curve for one sensor.
type ConcentrationConfig struct {
	Sensor    string  `yaml:"sensor"` // Empty disables estimation
	Slope     float64 `yaml:"slope"`
	Intercept float64 `yaml:"intercept"`
	RatioMin  float64 `yaml:"ratio_min"`
	RatioMax  float64 `yaml:"ratio_max"` // Declared for future validity checks, not enforced
}

// AcquisitionConfig contains parameters for recording raw samples.
type AcquisitionConfig struct {
	AverageSamples int `yaml:"average_samples"` // Block-average N raw samples (0 or 1 = disabled)
	BufferSize     int `yaml:"buffer_size"`
}

// MockConfig contains mock device configuration.
type MockConfig struct {
	NoiseLevel     float64       `yaml:"noise_level"`     // Noise amplitude (ADC codes)
	ExposureGain   float64       `yaml:"exposure_gain"`   // Count increase at full exposure
	ExposureAfter  time.Duration `yaml:"exposure_after"`  // Clean-air period before exposure
	ExposureRamp   time.Duration `yaml:"exposure_ramp"`   // Time to reach full exposure
	SampleRate     time.Duration `yaml:"sample_rate"`     // Sample period
	Temperature    float64       `yaml:"temperature"`     // Simulated ambient (°C)
	Humidity       float64       `yaml:"humidity"`        // Simulated relative humidity (%)
	Pressure       float64       `yaml:"pressure"`        // Simulated pressure (hPa)
	EnvironmentLag time.Duration `yaml:"environment_lag"` // Time constant of environment drift
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0",
			BaudRate: 115200,
		},
		ADC: ADCConfig{
			VRef: 5.0,
			Max:  1023,
		},
		Sensors: []SensorConfig{
			{Name: "MQ2", Kind: VoltageLinear, Ratio: SignedLinear},
			{Name: "MQ3", Kind: ResistiveDivider, LoadResistance: 200, Ratio: Inverted},
			{Name: "MQ9", Kind: VoltageLinear, Ratio: SignedLinear},
			{Name: "MQ135", Kind: ResistiveDivider, LoadResistance: 10, Ratio: Inverted},
			{Name: "TGS2602", Kind: ResistiveDivider, LoadResistance: 10, Ratio: Inverted},
		},
		RawSuffix: "_raw",
		Baseline: BaselineConfig{
			Mode:   BaselineComputed,
			Window: 60,
			Manual: map[string]float64{
				"MQ2":     139,
				"MQ3":     110,
				"MQ9":     240,
				"MQ135":   215,
				"TGS2602": 416,
			},
		},
		Phase: PhaseConfig{
			ExcludeBackground: true,
		},
		Smoothing: SmoothingConfig{
			Window: 10,
		},
		Concentration: ConcentrationConfig{
			Sensor:    "MQ3",
			Slope:     -0.77,
			Intercept: 1.60,
			RatioMin:  0.05,
			RatioMax:  20.0,
		},
		Acquisition: AcquisitionConfig{
			AverageSamples: 0,
			BufferSize:     100,
		},
		Mock: MockConfig{
			NoiseLevel:     2,
			ExposureGain:   120,
			ExposureAfter:  60 * time.Second,
			ExposureRamp:   20 * time.Second,
			SampleRate:     time.Second, // Same cadence as the MCP3008 poller
			Temperature:    24.0,
			Humidity:       55.0,
			Pressure:       1013.25,
			EnvironmentLag: 5 * time.Minute,
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
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	// A file that replaces the sensor list without naming a concentration
	// sensor must not inherit a default that no longer exists.
	var explicit struct {
		Concentration struct {
			Sensor *string `yaml:"sensor"`
		} `yaml:"concentration"`
	}
	if err := yaml.Unmarshal(data, &explicit); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if explicit.Concentration.Sensor == nil {
		if _, ok := cfg.Sensor(cfg.Concentration.Sensor); !ok {
			cfg.Concentration.Sensor = ""
		}
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

// Sensor returns the sensor with the given name (case-insensitive).
func (c *Config) Sensor(name string) (SensorConfig, bool) {
	for _, s := range c.Sensors {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return SensorConfig{}, false
}

// SensorNames returns sensor names in declaration order.
func (c *Config) SensorNames() []string {
	names := make([]string, len(c.Sensors))
	for i, s := range c.Sensors {
		names[i] = s.Name
	}
	return names
}

// FusedSensors returns the ordered sensor set used for the composite distance.
// Names are returned as declared in Sensors, whatever their case in Fusion.
func (c *Config) FusedSensors() []string {
	if len(c.Fusion.Sensors) == 0 {
		return c.SensorNames()
	}
	names := make([]string, len(c.Fusion.Sensors))
	for i, name := range c.Fusion.Sensors {
		names[i] = name
		if s, ok := c.Sensor(name); ok {
			names[i] = s.Name
		}
	}
	return names
}

// RawColumn returns the input column name holding a sensor's raw count.
func (c *Config) RawColumn(sensor string) string {
	return sensor + c.RawSuffix
}

// Validate checks the configuration for combinations the pipeline cannot run.
func (c *Config) Validate() error {
	if c.ADC.VRef <= 0 {
		return fmt.Errorf("%w: adc.vref must be positive, got %g", ErrInvalid, c.ADC.VRef)
	}
	if c.ADC.Max < 2 {
		return fmt.Errorf("%w: adc.max must be at least 2, got %g", ErrInvalid, c.ADC.Max)
	}
	if len(c.Sensors) == 0 {
		return fmt.Errorf("%w: no sensors configured", ErrInvalid)
	}

	seen := make(map[string]bool, len(c.Sensors))
	for _, s := range c.Sensors {
		key := strings.ToLower(s.Name)
		if s.Name == "" {
			return fmt.Errorf("%w: sensor without a name", ErrInvalid)
		}
		if seen[key] {
			return fmt.Errorf("%w: duplicate sensor %q", ErrInvalid, s.Name)
		}
		seen[key] = true

		switch s.Kind {
		case VoltageLinear:
		case ResistiveDivider:
			if s.LoadResistance <= 0 {
				return fmt.Errorf("%w: sensor %s needs a positive load_resistance", ErrInvalid, s.Name)
			}
		default:
			return fmt.Errorf("%w: sensor %s has unknown kind %q", ErrInvalid, s.Name, s.Kind)
		}

		switch s.Ratio {
		case SignedLinear, Inverted, PercentChange:
		case ZScore:
			// Manual baselines carry no spread to divide by.
			if c.Baseline.Mode == BaselineManual {
				return fmt.Errorf("%w: sensor %s uses z-score with a manual baseline", ErrInvalid, s.Name)
			}
		default:
			return fmt.Errorf("%w: sensor %s has unknown ratio %q", ErrInvalid, s.Name, s.Ratio)
		}
	}

	switch c.Baseline.Mode {
	case BaselineComputed:
	case BaselineManual:
		for _, s := range c.Sensors {
			if _, ok := c.Baseline.Manual.Count(s.Name); !ok {
				return fmt.Errorf("%w: manual baseline has no count for %s", ErrInvalid, s.Name)
			}
		}
	default:
		return fmt.Errorf("%w: unknown baseline mode %q", ErrInvalid, c.Baseline.Mode)
	}

	for _, name := range c.Fusion.Sensors {
		if _, ok := c.Sensor(name); !ok {
			return fmt.Errorf("%w: fusion references unknown sensor %q", ErrInvalid, name)
		}
	}

	if c.Concentration.Sensor != "" {
		s, ok := c.Sensor(c.Concentration.Sensor)
		if !ok {
			return fmt.Errorf("%w: concentration references unknown sensor %q", ErrInvalid, c.Concentration.Sensor)
		}
		if s.Kind != ResistiveDivider {
			return fmt.Errorf("%w: concentration sensor %s must be resistive-divider", ErrInvalid, s.Name)
		}
		if c.Concentration.Slope == 0 {
			return fmt.Errorf("%w: concentration slope must be non-zero", ErrInvalid)
		}
	}

	if c.Smoothing.Window < 0 {
		return fmt.Errorf("%w: smoothing.window must not be negative, got %d", ErrInvalid, c.Smoothing.Window)
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

	if c.ADC.VRef == 0 {
		c.ADC.VRef = def.ADC.VRef
	}
	if c.ADC.Max == 0 {
		c.ADC.Max = def.ADC.Max
	}

	if len(c.Sensors) == 0 {
		c.Sensors = def.Sensors
	}
	for i := range c.Sensors {
		if c.Sensors[i].Kind == "" {
			c.Sensors[i].Kind = VoltageLinear
		}
		if c.Sensors[i].Ratio == "" {
			// Resistance drops as concentration rises, so flip the sign by default.
			if c.Sensors[i].Kind == ResistiveDivider {
				c.Sensors[i].Ratio = Inverted
			} else {
				c.Sensors[i].Ratio = SignedLinear
			}
		}
	}

	if c.RawSuffix == "" {
		c.RawSuffix = def.RawSuffix
	}

	if c.Baseline.Mode == "" {
		c.Baseline.Mode = def.Baseline.Mode
	}
	if c.Concentration.RatioMin == 0 {
		c.Concentration.RatioMin = def.Concentration.RatioMin
	}
	if c.Concentration.RatioMax == 0 {
		c.Concentration.RatioMax = def.Concentration.RatioMax
	}

	if c.Acquisition.BufferSize == 0 {
		c.Acquisition.BufferSize = def.Acquisition.BufferSize
	}

	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}
	if c.Mock.ExposureRamp == 0 {
		c.Mock.ExposureRamp = def.Mock.ExposureRamp
	}
	if c.Mock.EnvironmentLag == 0 {
		c.Mock.EnvironmentLag = def.Mock.EnvironmentLag
	}
}
