package robot

import (
	"context"
	"sync"
	"time"
)

// SimServo is an in-memory ServoDriver. Timed moves travel linearly from
// the position at the time of the command to the goal.
type SimServo struct {
	mu       sync.Mutex
	from     int
	goal     int
	start    time.Time
	duration time.Duration
	enabled  bool
	now      func() time.Time
}

// NewSimServo returns a servo resting at pos.
func NewSimServo(pos int) *SimServo {
	return &SimServo{from: pos, goal: pos, now: time.Now}
}

func (s *SimServo) position() int {
	if s.duration <= 0 {
		return s.goal
	}
	elapsed := s.now().Sub(s.start)
	if elapsed >= s.duration {
		return s.goal
	}
	frac := float64(elapsed) / float64(s.duration)
	return s.from + int(float64(s.goal-s.from)*frac)
}

// Position implements ServoDriver.
func (s *SimServo) Position(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position(), nil
}

// SetPosition implements ServoDriver.
func (s *SimServo) SetPosition(ctx context.Context, pos int) error {
	return s.SetPositionWithTime(ctx, pos, 0)
}

// SetPositionWithTime implements ServoDriver.
func (s *SimServo) SetPositionWithTime(_ context.Context, pos int, timeMs int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.from = s.position()
	s.goal = pos
	s.start = s.now()
	s.duration = time.Duration(timeMs) * time.Millisecond
	s.enabled = true
	return nil
}

// Enable implements ServoDriver.
func (s *SimServo) Enable(context.Context) error {
	s.mu.Lock()
	s.enabled = true
	s.mu.Unlock()
	return nil
}

// Disable implements ServoDriver. The servo stays where it is.
func (s *SimServo) Disable(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goal = s.position()
	s.duration = 0
	s.enabled = false
	return nil
}

// Enabled reports whether torque is on.
func (s *SimServo) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// NewSimMotors builds a ServoMotor on a SimServo for every calibrated motor,
// each starting at its centre.
func NewSimMotors(cal Calibration) map[MotorName]*ServoMotor {
	motors := make(map[MotorName]*ServoMotor, len(cal))
	for name, mc := range cal {
		motors[name] = NewServoMotor(name, NewSimServo(mc.Center()), mc)
	}
	return motors
}

// SimCalibration is a calibration for running without hardware.
func SimCalibration() Calibration {
	cal := make(Calibration)
	for i, name := range AllMotors() {
		cal[name] = MotorCalibration{
			ID:           i + 1,
			RangeMin:     1024,
			RangeMax:     3072,
			MaxSpeed:     360,
			Acceleration: 200,
		}
	}
	return cal
}
