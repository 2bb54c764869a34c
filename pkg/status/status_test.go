package status

import (
	"strings"
	"testing"

	"github.com/gwillem/gesturearm/pkg/gesture"
)

func TestLine(t *testing.T) {
	tests := []struct {
		name     string
		snap     Snapshot
		expected string
	}{
		{
			name:     "small scale without pose",
			snap:     Snapshot{Roll: 2, Pitch: 0, Scale: 4, Arm: gesture.ArmLeft},
			expected: "Horizontal Speed: [**  ] Vertical Speed: [    ] ARM: [L] POSE: [" + strings.Repeat(" ", 14) + "]",
		},
		{
			name: "fractional angles truncate",
			snap: Snapshot{Roll: 7.5, Pitch: 12, Scale: 20, Arm: gesture.ArmRight, Pose: gesture.PoseRest, HasPose: true},
			expected: "Horizontal Speed: [" + strings.Repeat("*", 7) + strings.Repeat(" ", 12) +
				"] Vertical Speed: [" + strings.Repeat("*", 12) + strings.Repeat(" ", 8) +
				"] ARM: [R] POSE: [REST" + strings.Repeat(" ", 16) + "]",
		},
		{
			name: "unknown arm",
			snap: Snapshot{Roll: 10, Pitch: 10, Scale: 20, Pose: gesture.PoseFingersSpread, HasPose: true},
			expected: "Horizontal Speed: [" + strings.Repeat("*", 10) + strings.Repeat(" ", 10) +
				"] Vertical Speed: [" + strings.Repeat("*", 10) + strings.Repeat(" ", 10) +
				"] ARM: [?] POSE: [FINGERS_SPREAD      ]",
		},
		{
			name:     "disconnected sentinel",
			snap:     Snapshot{Roll: -1, Pitch: -1, Scale: 4},
			expected: "Horizontal Speed: [     ] Vertical Speed: [     ] ARM: [?] POSE: [" + strings.Repeat(" ", 14) + "]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Line(tt.snap); got != tt.expected {
				t.Errorf("Line() =\n%q\nwant\n%q", got, tt.expected)
			}
		})
	}
}

func TestLine_PoseWiderThanScale(t *testing.T) {
	got := Line(Snapshot{Scale: 4, Pose: gesture.PoseDoubleTap, HasPose: true})
	if !strings.HasSuffix(got, "POSE: [DOUBLE_TAP]") {
		t.Errorf("Line() = %q, want unpadded pose name", got)
	}
}

func TestGauge(t *testing.T) {
	tests := []struct {
		v        float64
		scale    int
		expected string
	}{
		{0, 3, "   "},
		{3, 3, "***"},
		{1.9, 3, "* "},
		{25, 20, strings.Repeat("*", 25)},
	}

	for _, tt := range tests {
		if got := Gauge(tt.v, tt.scale); got != tt.expected {
			t.Errorf("Gauge(%v, %d) = %q, want %q", tt.v, tt.scale, got, tt.expected)
		}
	}
}
