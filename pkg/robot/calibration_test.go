package robot

import (
	"math"
	"testing"
)

func TestMotorCalibration_Center(t *testing.T) {
	tests := []struct {
		cal      MotorCalibration
		expected int
	}{
		{MotorCalibration{RangeMin: 1000, RangeMax: 3000}, 2000},
		{MotorCalibration{RangeMin: 1000, RangeMax: 3000, Home: 1200}, 1200},
		{MotorCalibration{RangeMin: 0, RangeMax: 4095}, 2047},
	}

	for _, tt := range tests {
		if got := tt.cal.Center(); got != tt.expected {
			t.Errorf("Center() of %+v = %d, want %d", tt.cal, got, tt.expected)
		}
	}
}

func TestMotorCalibration_Degrees(t *testing.T) {
	cal := MotorCalibration{
		RangeMin: 1000,
		RangeMax: 3000,
	}

	tests := []struct {
		raw      int
		expected float64
	}{
		{2000, 0.0},  // center -> 0
		{3024, 90.0}, // quarter turn up
		{976, -90.0}, // quarter turn down
		{2512, 45.0},
		{1488, -45.0},
	}

	for _, tt := range tests {
		got := cal.Degrees(tt.raw)
		if math.Abs(got-tt.expected) > 0.001 {
			t.Errorf("Degrees(%d) = %f, want %f", tt.raw, got, tt.expected)
		}
	}
}

func TestMotorCalibration_Raw(t *testing.T) {
	cal := MotorCalibration{
		RangeMin: 1000,
		RangeMax: 3000,
	}

	tests := []struct {
		deg      float64
		expected int
	}{
		{0, 2000},
		{45, 2512},
		{-45, 1488},
		{90, 3000},   // 3024 clamped to max
		{-90, 1000},  // 976 clamped to min
		{180, 3000},  // far out of range
		{-180, 1000}, // far out of range
	}

	for _, tt := range tests {
		if got := cal.Raw(tt.deg); got != tt.expected {
			t.Errorf("Raw(%f) = %d, want %d", tt.deg, got, tt.expected)
		}
	}
}

func TestMotorCalibration_ClampUncalibrated(t *testing.T) {
	var cal MotorCalibration
	for _, raw := range []int{-5, 0, 5000} {
		if got := cal.Clamp(raw); got != raw {
			t.Errorf("Clamp(%d) without range = %d, want unchanged", raw, got)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	cal := MotorCalibration{
		RangeMin: 500,
		RangeMax: 3500,
	}

	// Test that Degrees(Raw(x)) ≈ x for in-range angles
	for deg := -90.0; deg <= 90.0; deg += 7.5 {
		raw := cal.Raw(deg)
		back := cal.Degrees(raw)
		if math.Abs(back-deg) > 0.1 {
			t.Errorf("Round trip failed: %f -> %d -> %f", deg, raw, back)
		}
	}
}

func TestStepsFromDegrees(t *testing.T) {
	tests := []struct {
		deg      float64
		expected int
	}{
		{0, 0},
		{360, 4096},
		{90, 1024},
		{-90, -1024},
		{1, 11}, // 11.38 rounds down
	}

	for _, tt := range tests {
		if got := StepsFromDegrees(tt.deg); got != tt.expected {
			t.Errorf("StepsFromDegrees(%f) = %d, want %d", tt.deg, got, tt.expected)
		}
	}
}

func TestCalibration_MotorIDs(t *testing.T) {
	cal := Calibration{
		Gripper:    {ID: 3},
		Horizontal: {ID: 1},
		Vertical:   {ID: 2},
	}

	ids := cal.MotorIDs()
	want := []int{1, 2, 3}
	if len(ids) != len(want) {
		t.Fatalf("MotorIDs() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("MotorIDs()[%d] = %d, want %d", i, ids[i], want[i])
		}
	}
}

func TestCalibration_ByID(t *testing.T) {
	cal := Calibration{
		Horizontal: {ID: 1, RangeMin: 100},
		Vertical:   {ID: 2, RangeMin: 200},
	}

	name, mc, ok := cal.ByID(2)
	if !ok || name != Vertical || mc.RangeMin != 200 {
		t.Errorf("ByID(2) = %q, %+v, %v", name, mc, ok)
	}
	if _, _, ok := cal.ByID(9); ok {
		t.Error("ByID(9) found a motor, want none")
	}
}
