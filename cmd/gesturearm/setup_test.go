package main

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/gwillem/gesturearm/pkg/robot"
	"github.com/gwillem/gesturearm/pkg/teleop"
	"github.com/gwillem/gesturearm/pkg/web"
)

func TestMinSpan(t *testing.T) {
	cfg := robot.Default()
	if got := minSpan(cfg, robot.Gripper); got != 180 {
		t.Errorf("gripper span = %v, want 180", got)
	}
	if got := minSpan(cfg, robot.Vertical); got != 45 {
		t.Errorf("vertical span = %v, want 45", got)
	}
}

func TestRangeModel_Track(t *testing.T) {
	m := newRangeModel(robot.Default(), nil)
	for _, name := range m.motors {
		m.start(name, 2048)
	}
	if m.complete() {
		t.Fatal("complete before any movement")
	}

	m.track(robot.Horizontal, 1500)
	m.track(robot.Horizontal, 2600)
	m.track(robot.Horizontal, 2000)
	if m.lo[robot.Horizontal] != 1500 || m.hi[robot.Horizontal] != 2600 || m.cur[robot.Horizontal] != 2000 {
		t.Errorf("horizontal = cur %d lo %d hi %d", m.cur[robot.Horizontal], m.lo[robot.Horizontal], m.hi[robot.Horizontal])
	}

	m.track(robot.Vertical, 2048+robot.StepsFromDegrees(50))
	m.track(robot.Gripper, 2048-robot.StepsFromDegrees(100))
	if m.complete() {
		t.Error("complete with a gripper span of 100°")
	}
	m.track(robot.Gripper, 2048+robot.StepsFromDegrees(90))
	if !m.complete() {
		t.Error("not complete after every motor covered its span")
	}
}

func TestUnassigned(t *testing.T) {
	ids := map[robot.MotorName]int{robot.Vertical: 2}
	want := []robot.MotorName{robot.Horizontal, robot.Gripper}
	if got := unassigned(ids); !slices.Equal(got, want) {
		t.Errorf("unassigned = %v, want %v", got, want)
	}
}

func TestFanOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan teleop.State)
	b := web.NewBroadcaster()
	out := fanOut(ctx, in, b)

	in <- teleop.State{Mode: teleop.Running}
	select {
	case s := <-out:
		if s.Mode != teleop.Running {
			t.Errorf("forwarded mode = %v", s.Mode)
		}
	case <-time.After(time.Second):
		t.Fatal("state not forwarded")
	}
	if b.Latest() == nil {
		t.Error("state not published")
	}

	close(in)
	select {
	case _, ok := <-out:
		if ok {
			t.Error("out not closed after in closed")
		}
	case <-time.After(time.Second):
		t.Fatal("out not closed")
	}
}
