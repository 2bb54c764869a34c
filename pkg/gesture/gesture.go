// Package gesture defines the armband event stream and the sources that
// produce it.
package gesture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gwillem/gesturearm/pkg/orientation"
)

// ErrDeviceNotFound is returned when no armband connects within the wait timeout.
var ErrDeviceNotFound = errors.New("gesture: armband not found")

// Pose is a discrete hand gesture classified by the armband.
type Pose int

const (
	PoseUnknown Pose = iota
	PoseRest
	PoseFist
	PoseFingersSpread
	PoseWaveIn
	PoseWaveOut
	PoseDoubleTap
)

var poseNames = map[Pose]string{
	PoseUnknown:       "UNKNOWN",
	PoseRest:          "REST",
	PoseFist:          "FIST",
	PoseFingersSpread: "FINGERS_SPREAD",
	PoseWaveIn:        "WAVE_IN",
	PoseWaveOut:       "WAVE_OUT",
	PoseDoubleTap:     "DOUBLE_TAP",
}

func (p Pose) String() string {
	if s, ok := poseNames[p]; ok {
		return s
	}
	return fmt.Sprintf("POSE(%d)", int(p))
}

// ParsePose accepts the upper-case names produced by String as well as
// lower-case and camel-case variants ("fingersSpread", "wave_out").
func ParsePose(s string) (Pose, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for p, name := range poseNames {
		if norm == name || norm == strings.ReplaceAll(name, "_", "") {
			return p, nil
		}
	}
	return PoseUnknown, fmt.Errorf("gesture: unknown pose %q", s)
}

// Arm is the arm the band was synced to.
type Arm int

const (
	ArmUnknown Arm = iota
	ArmLeft
	ArmRight
)

// Short returns the single-letter form shown on the status line.
func (a Arm) Short() string {
	switch a {
	case ArmLeft:
		return "L"
	case ArmRight:
		return "R"
	default:
		return "?"
	}
}

func (a Arm) String() string {
	switch a {
	case ArmLeft:
		return "left"
	case ArmRight:
		return "right"
	default:
		return "unknown"
	}
}

// ParseArm parses "left"/"right" (any case, or "L"/"R"). Anything else is ArmUnknown.
func ParseArm(s string) Arm {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "l", "arm_left":
		return ArmLeft
	case "right", "r", "arm_right":
		return ArmRight
	default:
		return ArmUnknown
	}
}

// Vibration is the length of a haptic pulse.
type Vibration int

const (
	VibrationShort Vibration = iota
	VibrationMedium
	VibrationLong
)

func (v Vibration) String() string {
	switch v {
	case VibrationShort:
		return "short"
	case VibrationMedium:
		return "medium"
	case VibrationLong:
		return "long"
	default:
		return fmt.Sprintf("vibration(%d)", int(v))
	}
}

// UnlockType controls how long the band stays unlocked.
type UnlockType int

const (
	UnlockTimed UnlockType = iota
	UnlockHold
)

func (u UnlockType) String() string {
	if u == UnlockHold {
		return "hold"
	}
	return "timed"
}

// EventKind tags an Event.
type EventKind int

const (
	EventOrientation EventKind = iota
	EventPose
	EventArmSync
	EventArmUnsync
	EventConnect
	EventDisconnect
	EventPair
	EventUnpair
)

var eventKindNames = map[EventKind]string{
	EventOrientation: "orientation",
	EventPose:        "pose",
	EventArmSync:     "arm_sync",
	EventArmUnsync:   "arm_unsync",
	EventConnect:     "connect",
	EventDisconnect:  "disconnect",
	EventPair:        "pair",
	EventUnpair:      "unpair",
}

func (k EventKind) String() string {
	if s, ok := eventKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// ParseEventKind is the inverse of EventKind.String.
func ParseEventKind(s string) (EventKind, error) {
	for k, name := range eventKindNames {
		if s == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("gesture: unknown event kind %q", s)
}

// Event is one notification from the armband. Only the fields relevant to
// Kind are set.
type Event struct {
	Kind      EventKind
	Timestamp time.Time
	Rotation  orientation.Quaternion // EventOrientation
	Pose      Pose                   // EventPose
	Arm       Arm                    // EventArmSync
}

// Source delivers armband events and accepts feedback requests.
type Source interface {
	// Events returns the event stream. It is closed when the source is closed.
	Events() <-chan Event
	// Vibrate requests a haptic pulse.
	Vibrate(ctx context.Context, v Vibration) error
	// Unlock keeps the band from locking itself.
	Unlock(ctx context.Context, u UnlockType) error
	Close() error
}

// WaitForConnect consumes events from src until a connect (or pair) event
// arrives and returns it. Events read while waiting are returned as well so
// the caller can replay them. If nothing connects within timeout it
// returns ErrDeviceNotFound.
func WaitForConnect(ctx context.Context, src Source, timeout time.Duration) ([]Event, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var seen []Event
	for {
		select {
		case <-ctx.Done():
			return seen, ctx.Err()
		case <-timer.C:
			return seen, ErrDeviceNotFound
		case ev, ok := <-src.Events():
			if !ok {
				return seen, ErrDeviceNotFound
			}
			seen = append(seen, ev)
			if ev.Kind == EventConnect || ev.Kind == EventPair {
				return seen, nil
			}
		}
	}
}
