// Package actuation maps normalised wrist angles and limit sensor samples
// to motor commands for the horizontal and vertical axes.
package actuation

import (
	"fmt"
	"math"

	"github.com/gwillem/gesturearm/pkg/gesture"
)

// Axis identifies a continuously driven motor.
type Axis int

const (
	Horizontal Axis = iota
	Vertical
)

func (a Axis) String() string {
	switch a {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// Direction is what the motor is told to do after its speed is set.
type Direction int

const (
	Stop Direction = iota
	Forward
	Backward
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return "stop"
	}
}

// Command is the per-tick output for one axis.
type Command struct {
	Axis      Axis
	Speed     int // signed; the motor uses its magnitude
	Direction Direction
}

// Default tuning, matching the arm the controller was built for.
const (
	DefaultScale                 = 20
	DefaultHorizontalMax         = 20
	DefaultHorizontalSensitivity = 10
	DefaultVerticalSensitivity   = 2
	DefaultAmbientThreshold      = 0.05
	TouchPressed                 = 1.0
	verticalSpeedDivisor         = 5
)

// AxisConfig holds the fixed tuning of one axis.
type AxisConfig struct {
	// Sensitivity is >= 1. Higher values respond faster near the centre.
	Sensitivity int
	// MotorScale is the speed produced per scale unit of deflection.
	MotorScale int
}

// ScaleUnit returns scale/2/sensitivity using integer division.
func (c AxisConfig) ScaleUnit(scale int) int {
	sens := c.Sensitivity
	if sens < 1 {
		sens = 1
	}
	unit := scale / 2 / sens
	if unit < 1 {
		unit = 1
	}
	return unit
}

// Speed computes the signed command speed for normalised angle v.
//
// The dead-band centre is ScaleUnit*Sensitivity. Negative angles, which only
// occur while the armband is disconnected, produce 0 rather than a ramp, as
// do NaN and infinite angles.
func (c AxisConfig) Speed(v float64, scale int) int {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	s := c.ScaleUnit(scale)
	sens := c.Sensitivity
	if sens < 1 {
		sens = 1
	}
	return int((v - float64(s*sens)) * float64(c.MotorScale/s))
}

// Config describes a Mapper.
type Config struct {
	Scale                 int
	HorizontalSensitivity int
	HorizontalMax         int
	VerticalSensitivity   int
	// VerticalMaxSpeed is the vertical motor's reported maximum speed.
	VerticalMaxSpeed float64
	AmbientThreshold float64
}

// Mapper turns angles and sensor samples into motor commands. It holds no
// state between calls.
type Mapper struct {
	Scale            int
	HorizontalAxis   AxisConfig
	VerticalAxis     AxisConfig
	AmbientThreshold float64
}

// NewMapper builds a Mapper, filling zero fields with the defaults.
func NewMapper(cfg Config) *Mapper {
	if cfg.Scale <= 0 {
		cfg.Scale = DefaultScale
	}
	if cfg.HorizontalSensitivity <= 0 {
		cfg.HorizontalSensitivity = DefaultHorizontalSensitivity
	}
	if cfg.HorizontalMax <= 0 {
		cfg.HorizontalMax = DefaultHorizontalMax
	}
	if cfg.VerticalSensitivity <= 0 {
		cfg.VerticalSensitivity = DefaultVerticalSensitivity
	}
	if cfg.AmbientThreshold <= 0 {
		cfg.AmbientThreshold = DefaultAmbientThreshold
	}

	return &Mapper{
		Scale: cfg.Scale,
		HorizontalAxis: AxisConfig{
			Sensitivity: cfg.HorizontalSensitivity,
			MotorScale:  -cfg.HorizontalMax,
		},
		VerticalAxis: AxisConfig{
			Sensitivity: cfg.VerticalSensitivity,
			MotorScale:  int(cfg.VerticalMaxSpeed / verticalSpeedDivisor),
		},
		AmbientThreshold: cfg.AmbientThreshold,
	}
}

// Vertical maps hand pitch to a lift command. When retracting, an ambient
// sample at or below the threshold means the top of travel is reached.
func (m *Mapper) Vertical(pitch, ambient float64) Command {
	speed := m.VerticalAxis.Speed(pitch, m.Scale)
	cmd := Command{Axis: Vertical, Speed: speed}

	switch {
	case speed < 0:
		cmd.Direction = Forward
	case ambient > m.AmbientThreshold:
		cmd.Direction = Backward
	default:
		cmd.Direction = Stop
	}
	return cmd
}

// Horizontal maps wrist roll to a slew command. The sign is inverted for a
// left arm; an unsynced armband uses the right-arm convention. Moving
// forward stops when the touch sensor is pressed.
func (m *Mapper) Horizontal(roll float64, arm gesture.Arm, touch float64) Command {
	speed := m.HorizontalAxis.Speed(roll, m.Scale)
	if arm == gesture.ArmLeft {
		speed = -speed
	}
	cmd := Command{Axis: Horizontal, Speed: speed}

	switch {
	case speed >= 0:
		cmd.Direction = Backward
	case touch == TouchPressed:
		cmd.Direction = Stop
	default:
		cmd.Direction = Forward
	}
	return cmd
}
