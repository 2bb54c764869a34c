// Package status renders the one-line status display.
package status

import (
	"strings"

	"github.com/gwillem/gesturearm/pkg/gesture"
)

// noPoseWidth is the blank pose field shown before the first pose arrives.
const noPoseWidth = 14

// Snapshot is what the status line shows.
type Snapshot struct {
	Roll    float64 // normalised, drives the horizontal gauge
	Pitch   float64 // normalised, drives the vertical gauge
	Scale   int
	Arm     gesture.Arm
	Pose    gesture.Pose
	HasPose bool
}

// Line formats s as
//
//	Horizontal Speed: [*****     ] Vertical Speed: [***       ] ARM: [R] POSE: [REST      ]
//
// Each gauge is int(v) asterisks followed by int(Scale-v) spaces; the pose
// name is padded to Scale characters.
func Line(s Snapshot) string {
	var b strings.Builder
	b.WriteString("Horizontal Speed: [")
	writeGauge(&b, s.Roll, s.Scale)
	b.WriteString("] Vertical Speed: [")
	writeGauge(&b, s.Pitch, s.Scale)
	b.WriteString("] ARM: [")
	b.WriteString(s.Arm.Short())
	b.WriteString("] POSE: [")
	if s.HasPose {
		name := s.Pose.String()
		b.WriteString(name)
		b.WriteString(repeat(' ', s.Scale-len(name)))
	} else {
		b.WriteString(repeat(' ', noPoseWidth))
	}
	b.WriteString("]")
	return b.String()
}

// Gauge returns just the bar for v, without brackets.
func Gauge(v float64, scale int) string {
	var b strings.Builder
	writeGauge(&b, v, scale)
	return b.String()
}

func writeGauge(b *strings.Builder, v float64, scale int) {
	b.WriteString(repeat('*', int(v)))
	b.WriteString(repeat(' ', int(float64(scale)-v)))
}

func repeat(c byte, n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(string(c), n)
}
