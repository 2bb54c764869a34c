package actuation

import (
	"math"
	"testing"

	"github.com/gwillem/gesturearm/pkg/gesture"
)

// newTestMapper uses the defaults with a vertical motor reporting 740 deg/s,
// giving a vertical factor of int(740/5)/5 = 29 and a horizontal factor of -20.
func newTestMapper() *Mapper {
	return NewMapper(Config{VerticalMaxSpeed: 740})
}

func TestNewMapper_Defaults(t *testing.T) {
	m := newTestMapper()

	if m.Scale != 20 {
		t.Errorf("Scale = %d, want 20", m.Scale)
	}
	if m.HorizontalAxis.ScaleUnit(m.Scale) != 1 {
		t.Errorf("horizontal ScaleUnit = %d, want 1", m.HorizontalAxis.ScaleUnit(m.Scale))
	}
	if m.VerticalAxis.ScaleUnit(m.Scale) != 5 {
		t.Errorf("vertical ScaleUnit = %d, want 5", m.VerticalAxis.ScaleUnit(m.Scale))
	}
	if m.HorizontalAxis.MotorScale != -20 {
		t.Errorf("horizontal MotorScale = %d, want -20", m.HorizontalAxis.MotorScale)
	}
	if m.VerticalAxis.MotorScale != 148 {
		t.Errorf("vertical MotorScale = %d, want 148", m.VerticalAxis.MotorScale)
	}
	if m.AmbientThreshold != 0.05 {
		t.Errorf("AmbientThreshold = %f, want 0.05", m.AmbientThreshold)
	}
}

func TestAxisConfig_Speed(t *testing.T) {
	vert := AxisConfig{Sensitivity: 2, MotorScale: 148}

	tests := []struct {
		v    float64
		want int
	}{
		{10, 0},     // dead-band centre
		{12, 58},    // (12-10)*29
		{8, -58},    // (8-10)*29
		{20, 290},   // top of range
		{0, -290},   // bottom of range still ramps
		{-1, 0},     // disconnected reads
		{-0.001, 0}, // any negative value
		{10.02, 0},  // truncated toward zero
		{9.98, 0},   // truncated toward zero
		{10.5, 14},  // 0.5*29 = 14.5
		{9.5, -14},  // -0.5*29 = -14.5
	}

	for _, tt := range tests {
		if got := vert.Speed(tt.v, 20); got != tt.want {
			t.Errorf("Speed(%v) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

// The ramp jumps from full reverse at v=0 to zero at v<0. This asymmetry is
// kept on purpose; the test pins it down.
func TestAxisConfig_SpeedBoundaryAtZero(t *testing.T) {
	vert := AxisConfig{Sensitivity: 2, MotorScale: 148}

	atZero := vert.Speed(0, 20)
	belowZero := vert.Speed(-1e-9, 20)
	if atZero != -290 || belowZero != 0 {
		t.Errorf("Speed(0) = %d, Speed(-ε) = %d; want -290 and 0", atZero, belowZero)
	}
}

func TestAxisConfig_SpeedNonFinite(t *testing.T) {
	vert := AxisConfig{Sensitivity: 2, MotorScale: 148}
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if got := vert.Speed(v, 20); got != 0 {
			t.Errorf("Speed(%v) = %d, want 0", v, got)
		}
	}
}

func TestMapper_NaNPitchStaysBounded(t *testing.T) {
	m := newTestMapper()
	cmd := m.Vertical(math.NaN(), 1)
	if cmd.Speed != 0 {
		t.Errorf("vertical command for NaN pitch = %+v, want zero speed", cmd)
	}
}

func TestAxisConfig_ScaleUnitNeverZero(t *testing.T) {
	c := AxisConfig{Sensitivity: 50, MotorScale: 10}
	if u := c.ScaleUnit(20); u != 1 {
		t.Errorf("ScaleUnit = %d, want 1", u)
	}
	c = AxisConfig{Sensitivity: 0, MotorScale: 10}
	if u := c.ScaleUnit(20); u != 10 {
		t.Errorf("ScaleUnit with zero sensitivity = %d, want 10", u)
	}
}

func TestMapper_Vertical(t *testing.T) {
	m := newTestMapper()

	tests := []struct {
		name      string
		pitch     float64
		ambient   float64
		wantSpeed int
		wantDir   Direction
	}{
		{"raise, limit not reached", 12, 0.10, 58, Backward},
		{"raise, limit boundary", 12, 0.05, 58, Stop},
		{"raise, dark", 12, 0.0, 58, Stop},
		{"centre, bright", 10, 0.10, 0, Backward},
		{"centre, dark", 10, 0.01, 0, Stop},
		{"lower ignores sensor", 8, 0.0, -58, Forward},
		{"lower, bright", 8, 0.9, -58, Forward},
		{"disconnected", -1, 0.10, 0, Backward},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := m.Vertical(tt.pitch, tt.ambient)
			if cmd.Axis != Vertical {
				t.Errorf("Axis = %s, want vertical", cmd.Axis)
			}
			if cmd.Speed != tt.wantSpeed {
				t.Errorf("Speed = %d, want %d", cmd.Speed, tt.wantSpeed)
			}
			if cmd.Direction != tt.wantDir {
				t.Errorf("Direction = %s, want %s", cmd.Direction, tt.wantDir)
			}
		})
	}
}

func TestMapper_Horizontal(t *testing.T) {
	m := newTestMapper()

	tests := []struct {
		name      string
		roll      float64
		arm       gesture.Arm
		touch     float64
		wantSpeed int
		wantDir   Direction
	}{
		{"right arm, raw +50", 7.5, gesture.ArmRight, 0, 50, Backward},
		{"left arm inverts +50", 7.5, gesture.ArmLeft, 0, -50, Forward},
		{"left arm, touch pressed", 7.5, gesture.ArmLeft, 1, -50, Stop},
		{"unknown arm uses right convention", 7.5, gesture.ArmUnknown, 0, 50, Backward},
		{"right arm, raw -40", 12, gesture.ArmRight, 0, -40, Forward},
		{"right arm, raw -40, pressed", 12, gesture.ArmRight, 1, -40, Stop},
		{"pressed ignored when moving backward", 7.5, gesture.ArmRight, 1, 50, Backward},
		{"half-pressed reading is not a stop", 12, gesture.ArmRight, 0.5, -40, Forward},
		{"centre", 10, gesture.ArmRight, 1, 0, Backward},
		{"disconnected", -1, gesture.ArmLeft, 1, 0, Backward},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := m.Horizontal(tt.roll, tt.arm, tt.touch)
			if cmd.Axis != Horizontal {
				t.Errorf("Axis = %s, want horizontal", cmd.Axis)
			}
			if cmd.Speed != tt.wantSpeed {
				t.Errorf("Speed = %d, want %d", cmd.Speed, tt.wantSpeed)
			}
			if cmd.Direction != tt.wantDir {
				t.Errorf("Direction = %s, want %s", cmd.Direction, tt.wantDir)
			}
		})
	}
}

func TestMapper_TouchStopsRegardlessOfMagnitude(t *testing.T) {
	m := newTestMapper()
	for roll := 10.1; roll <= 20; roll += 0.7 {
		cmd := m.Horizontal(roll, gesture.ArmRight, TouchPressed)
		if cmd.Speed >= 0 {
			continue
		}
		if cmd.Direction != Stop {
			t.Errorf("roll %.1f: Direction = %s, want stop", roll, cmd.Direction)
		}
	}
}
