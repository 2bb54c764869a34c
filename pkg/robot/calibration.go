package robot

import "math"

// StepsPerRev is the resolution of the feetech STS servos.
const StepsPerRev = 4096

// MotorCalibration holds calibration data for a single motor.
type MotorCalibration struct {
	ID        int `yaml:"id"`
	DriveMode int `yaml:"drive_mode"` // 1 inverts forward/backward
	RangeMin  int `yaml:"range_min"`
	RangeMax  int `yaml:"range_max"`
	// Home is the raw position treated as 0°. Zero means the middle of the range.
	Home int `yaml:"home,omitempty"`
	// MaxSpeed in degrees per second, reported by Motor.MaxSpeed.
	MaxSpeed float64 `yaml:"max_speed"`
	// Acceleration in degrees per second², applied at startup.
	Acceleration int `yaml:"acceleration"`
}

// Calibration holds calibration data for all motors, keyed by motor name.
type Calibration map[MotorName]MotorCalibration

// Center returns the raw position of 0°.
func (c MotorCalibration) Center() int {
	if c.Home != 0 {
		return c.Home
	}
	return (c.RangeMin + c.RangeMax) / 2
}

// Clamp limits raw to the calibrated range.
func (c MotorCalibration) Clamp(raw int) int {
	if c.RangeMax <= c.RangeMin {
		return raw
	}
	if raw < c.RangeMin {
		return c.RangeMin
	}
	if raw > c.RangeMax {
		return c.RangeMax
	}
	return raw
}

// StepsFromDegrees converts an angle to servo steps.
func StepsFromDegrees(deg float64) int {
	return int(math.Round(deg * StepsPerRev / 360))
}

// DegreesFromSteps converts servo steps to an angle.
func DegreesFromSteps(steps int) float64 {
	return float64(steps) * 360 / StepsPerRev
}

// Degrees converts a raw servo position to degrees from Center.
func (c MotorCalibration) Degrees(raw int) float64 {
	return DegreesFromSteps(raw - c.Center())
}

// Raw converts degrees from Center to a clamped raw position.
func (c MotorCalibration) Raw(deg float64) int {
	return c.Clamp(c.Center() + StepsFromDegrees(deg))
}

// MotorIDs returns the servo IDs for all motors in the calibration.
func (c Calibration) MotorIDs() []int {
	ids := make([]int, 0, len(c))
	// Use AllMotors() to ensure consistent ordering
	for _, name := range AllMotors() {
		if mc, ok := c[name]; ok {
			ids = append(ids, mc.ID)
		}
	}
	return ids
}

// ByID returns motor name and calibration for a given servo ID.
func (c Calibration) ByID(id int) (MotorName, MotorCalibration, bool) {
	for name, mc := range c {
		if mc.ID == id {
			return name, mc, true
		}
	}
	return "", MotorCalibration{}, false
}
