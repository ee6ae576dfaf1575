package sample

import (
	"errors"
	"fmt"
	"time"

	"github.com/itohio/enose/pkg/config"
)

// ErrMissingSensor is returned when a raw sample lacks a configured sensor count.
var ErrMissingSensor = errors.New("missing sensor count")

// RawSample represents one time step of raw readings.
// Counts holds ADC codes per sensor name, nominally integers in [0, ADCMax].
// Env holds environment fields (temperature, humidity, pressure) which may be absent.
type RawSample struct {
	Timestamp time.Time
	Counts    map[string]float64
	Env       map[string]Value
}

// Sample represents a converted sample with physical values per sensor:
// volts for voltage-linear sensors, kΩ for resistive-divider sensors.
type Sample struct {
	Timestamp time.Time
	Values    map[string]float64
}

// Clamp limits an ADC code to [1, adcMax-1] so neither the voltage nor the
// divider remainder is ever zero.
func Clamp(raw, adcMax float64) float64 {
	if raw < 1 {
		return 1
	}
	if raw > adcMax-1 {
		return adcMax - 1
	}
	return raw
}

// ToVoltage converts an ADC code to volts.
func ToVoltage(raw, vref, adcMax float64) float64 {
	return Clamp(raw, adcMax) * (vref / adcMax)
}

// ToResistance converts an ADC code to sensor resistance through a load resistor.
// Formula: Rs = RL * (VRef - V) / V
// The result has the unit of rl and decreases as raw increases.
func ToResistance(raw, rl, vref, adcMax float64) float64 {
	v := ToVoltage(raw, vref, adcMax)
	return rl * (vref - v) / v
}

// Converter transforms RawSample to Sample using the configured sensors.
type Converter struct {
	vref    float64
	adcMax  float64
	sensors []config.SensorConfig
}

// NewConverter creates a converter for all sensors in cfg.
func NewConverter(cfg *config.Config) *Converter {
	return &Converter{
		vref:    cfg.ADC.VRef,
		adcMax:  cfg.ADC.Max,
		sensors: append([]config.SensorConfig(nil), cfg.Sensors...),
	}
}

// Count converts a single raw code for the given sensor.
func (c *Converter) Count(sensor config.SensorConfig, raw float64) float64 {
	if sensor.Kind == config.ResistiveDivider {
		return ToResistance(raw, sensor.LoadResistance, c.vref, c.adcMax)
	}
	return ToVoltage(raw, c.vref, c.adcMax)
}

// Convert converts every configured sensor of raw.
func (c *Converter) Convert(raw RawSample) (Sample, error) {
	values := make(map[string]float64, len(c.sensors))
	for _, s := range c.sensors {
		count, ok := raw.Counts[s.Name]
		if !ok {
			return Sample{}, fmt.Errorf("%w: %s", ErrMissingSensor, s.Name)
		}
		values[s.Name] = c.Count(s, count)
	}

	return Sample{
		Timestamp: raw.Timestamp,
		Values:    values,
	}, nil
}

// ConvertAll converts a whole sequence, failing on the first malformed row.
func (c *Converter) ConvertAll(raw []RawSample) ([]Sample, error) {
	out := make([]Sample, len(raw))
	for i, r := range raw {
		s, err := c.Convert(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}
