package gesture

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPoseEdge_Observe(t *testing.T) {
	var e PoseEdge

	steps := []struct {
		pose Pose
		want bool
	}{
		{PoseFist, true},
		{PoseFist, false}, // repeated report, no transition
		{PoseRest, true},
		{PoseFist, true},
		{PoseDoubleTap, true},
		{PoseDoubleTap, false},
		{PoseWaveOut, true},
	}

	for i, s := range steps {
		if got := e.Observe(s.pose); got != s.want {
			t.Errorf("step %d: Observe(%s) = %v, want %v", i, s.pose, got, s.want)
		}
	}

	e.Reset()
	if !e.Observe(PoseWaveOut) {
		t.Error("Observe after Reset should report a transition")
	}
}

func TestParsePose(t *testing.T) {
	tests := []struct {
		in   string
		want Pose
	}{
		{"FIST", PoseFist},
		{"fist", PoseFist},
		{"fingers_spread", PoseFingersSpread},
		{"fingersSpread", PoseFingersSpread},
		{"wave-out", PoseWaveOut},
		{"WAVE_IN", PoseWaveIn},
		{"double_tap", PoseDoubleTap},
		{"rest", PoseRest},
	}

	for _, tt := range tests {
		got, err := ParsePose(tt.in)
		if err != nil {
			t.Errorf("ParsePose(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePose(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := ParsePose("thumbs_up"); err == nil {
		t.Error("ParsePose(thumbs_up) should fail")
	}
}

func TestArm_Short(t *testing.T) {
	if ArmLeft.Short() != "L" || ArmRight.Short() != "R" || ArmUnknown.Short() != "?" {
		t.Errorf("Short() = %q %q %q", ArmLeft.Short(), ArmRight.Short(), ArmUnknown.Short())
	}
	if ParseArm("LEFT") != ArmLeft || ParseArm("r") != ArmRight || ParseArm("") != ArmUnknown {
		t.Error("ParseArm mismatch")
	}
}

func TestDecodeEvent(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"type":"orientation","ts":1700000000000000,"rotation":{"w":1,"x":0,"y":0,"z":0}}`))
	if err != nil {
		t.Fatalf("orientation: %v", err)
	}
	if ev.Kind != EventOrientation || ev.Rotation.W != 1 {
		t.Errorf("orientation event = %+v", ev)
	}
	if ev.Timestamp.UnixMicro() != 1700000000000000 {
		t.Errorf("timestamp = %v", ev.Timestamp)
	}

	ev, err = DecodeEvent([]byte(`{"type":"pose","pose":"FINGERS_SPREAD"}`))
	if err != nil {
		t.Fatalf("pose: %v", err)
	}
	if ev.Kind != EventPose || ev.Pose != PoseFingersSpread {
		t.Errorf("pose event = %+v", ev)
	}

	ev, err = DecodeEvent([]byte(`{"type":"arm_sync","arm":"left"}`))
	if err != nil {
		t.Fatalf("arm_sync: %v", err)
	}
	if ev.Kind != EventArmSync || ev.Arm != ArmLeft {
		t.Errorf("arm_sync event = %+v", ev)
	}

	bad := []string{
		`not json`,
		`{"type":"teleport"}`,
		`{"type":"orientation"}`,
		`{"type":"pose","pose":"moonwalk"}`,
	}
	for _, b := range bad {
		if _, err := DecodeEvent([]byte(b)); err == nil {
			t.Errorf("DecodeEvent(%s) should fail", b)
		}
	}
}

func TestWaitForConnect(t *testing.T) {
	src := NewSimSource(ArmRight, 0)
	defer src.Close()

	seen, err := WaitForConnect(context.Background(), src, time.Second)
	if err != nil {
		t.Fatalf("WaitForConnect: %v", err)
	}
	if last := seen[len(seen)-1]; last.Kind != EventPair && last.Kind != EventConnect {
		t.Errorf("last event = %s, want pair or connect", last.Kind)
	}
}

func TestWaitForConnect_Timeout(t *testing.T) {
	src := &SimSource{events: make(chan Event), done: make(chan struct{})}

	_, err := WaitForConnect(context.Background(), src, 10*time.Millisecond)
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("err = %v, want ErrDeviceNotFound", err)
	}
}

func TestSimSource_RecordsFeedback(t *testing.T) {
	src := NewSimSource(ArmLeft, 0)
	ctx := context.Background()

	src.Vibrate(ctx, VibrationMedium)
	src.Vibrate(ctx, VibrationShort)
	src.Unlock(ctx, UnlockHold)

	v := src.Vibrations()
	if len(v) != 2 || v[0] != VibrationMedium || v[1] != VibrationShort {
		t.Errorf("Vibrations() = %v", v)
	}
	if u := src.Unlocks(); len(u) != 1 || u[0] != UnlockHold {
		t.Errorf("Unlocks() = %v", u)
	}

	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Drain: the stream must be closed.
	for range src.Events() {
	}
	src.InjectPose(PoseFist) // must not panic after Close
}
