package robot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// Motor is a regulated motor: it runs continuously at a set speed in a
// direction until stopped, or rotates to an angle.
type Motor interface {
	SetSpeed(ctx context.Context, speed int) error
	SetAcceleration(ctx context.Context, accel int) error
	Forward(ctx context.Context) error
	Backward(ctx context.Context) error
	Stop(ctx context.Context, immediate bool) error
	RotateTo(ctx context.Context, deg int) error
	Rotate(ctx context.Context, deg int, immediate bool) error
	MaxSpeed(ctx context.Context) (float64, error)
	Close() error
}

// CommError is the result of a motor call that failed to reach the servo.
type CommError struct {
	Motor MotorName
	Op    string
	Err   error
}

func (e *CommError) Error() string {
	return fmt.Sprintf("%s motor: %s: %v", e.Motor, e.Op, e.Err)
}

func (e *CommError) Unwrap() error { return e.Err }

// IsCommFailure reports whether err is (or wraps) a CommError.
func IsCommFailure(err error) bool {
	var ce *CommError
	return errors.As(err, &ce)
}

// ServoDriver is the part of *feetech.Servo a ServoMotor needs.
type ServoDriver interface {
	Position(ctx context.Context) (int, error)
	SetPosition(ctx context.Context, position int) error
	SetPositionWithTime(ctx context.Context, position int, timeMs int) error
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
}

// ServoMotor emulates a regulated motor on a position-controlled servo.
// Forward and Backward command a move to the end of the calibrated range,
// timed so that the servo travels at the set speed; Stop holds the current
// position.
type ServoMotor struct {
	name  MotorName
	servo ServoDriver
	cal   MotorCalibration

	mu    sync.Mutex
	speed int // degrees per second, unsigned
	accel int // degrees per second², 0 = instant
}

// NewServoMotor wraps servo with the given calibration.
func NewServoMotor(name MotorName, servo ServoDriver, cal MotorCalibration) *ServoMotor {
	return &ServoMotor{
		name:  name,
		servo: servo,
		cal:   cal,
		accel: cal.Acceleration,
	}
}

// Name returns the motor's name.
func (m *ServoMotor) Name() MotorName {
	return m.name
}

func (m *ServoMotor) fail(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CommError{Motor: m.name, Op: op, Err: err}
}

// SetSpeed sets the speed in degrees per second. The sign is ignored; the
// direction comes from Forward or Backward.
func (m *ServoMotor) SetSpeed(_ context.Context, speed int) error {
	if speed == math.MinInt {
		speed = math.MaxInt
	} else if speed < 0 {
		speed = -speed
	}
	if limit := int(m.cal.MaxSpeed); limit > 0 && speed > limit {
		speed = limit
	}
	m.mu.Lock()
	m.speed = speed
	m.mu.Unlock()
	return nil
}

// SetAcceleration sets the ramp used when computing move times.
func (m *ServoMotor) SetAcceleration(_ context.Context, accel int) error {
	if accel < 0 {
		return fmt.Errorf("%s motor: negative acceleration %d", m.name, accel)
	}
	m.mu.Lock()
	m.accel = accel
	m.mu.Unlock()
	return nil
}

// Forward runs toward the top of the calibrated range.
func (m *ServoMotor) Forward(ctx context.Context) error {
	goal := m.cal.RangeMax
	if m.cal.DriveMode == 1 {
		goal = m.cal.RangeMin
	}
	return m.run(ctx, "forward", goal)
}

// Backward runs toward the bottom of the calibrated range.
func (m *ServoMotor) Backward(ctx context.Context) error {
	goal := m.cal.RangeMin
	if m.cal.DriveMode == 1 {
		goal = m.cal.RangeMax
	}
	return m.run(ctx, "backward", goal)
}

func (m *ServoMotor) run(ctx context.Context, op string, goal int) error {
	m.mu.Lock()
	speed, accel := m.speed, m.accel
	m.mu.Unlock()

	pos, err := m.servo.Position(ctx)
	if err != nil {
		return m.fail(op, err)
	}
	if speed == 0 {
		return m.fail(op, m.servo.SetPosition(ctx, pos))
	}
	return m.fail(op, m.servo.SetPositionWithTime(ctx, goal, MoveTimeMs(pos, goal, speed, accel)))
}

// Stop holds the current position. The servo stops at once, so immediate
// only matters for callers that share the interface with slower motors.
func (m *ServoMotor) Stop(ctx context.Context, _ bool) error {
	pos, err := m.servo.Position(ctx)
	if err != nil {
		return m.fail("stop", err)
	}
	return m.fail("stop", m.servo.SetPosition(ctx, pos))
}

// RotateTo moves to deg degrees from the home position. It returns once the
// move is commanded.
func (m *ServoMotor) RotateTo(ctx context.Context, deg int) error {
	return m.moveTo(ctx, "rotate_to", m.cal.Raw(float64(deg)), true)
}

// Rotate moves by deg degrees relative to the current position. With
// immediate set it returns as soon as the move is commanded.
func (m *ServoMotor) Rotate(ctx context.Context, deg int, immediate bool) error {
	pos, err := m.servo.Position(ctx)
	if err != nil {
		return m.fail("rotate", err)
	}
	return m.moveTo(ctx, "rotate", m.cal.Clamp(pos+StepsFromDegrees(float64(deg))), immediate)
}

func (m *ServoMotor) moveTo(ctx context.Context, op string, goal int, immediate bool) error {
	m.mu.Lock()
	speed, accel := m.speed, m.accel
	m.mu.Unlock()
	if speed == 0 {
		speed = int(m.cal.MaxSpeed)
	}

	pos, err := m.servo.Position(ctx)
	if err != nil {
		return m.fail(op, err)
	}
	ms := MoveTimeMs(pos, goal, speed, accel)
	if err := m.servo.SetPositionWithTime(ctx, goal, ms); err != nil {
		return m.fail(op, err)
	}
	if immediate {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(ms) * time.Millisecond):
		return nil
	}
}

// MaxSpeed returns the calibrated maximum speed in degrees per second.
func (m *ServoMotor) MaxSpeed(_ context.Context) (float64, error) {
	return m.cal.MaxSpeed, nil
}

// Close releases torque so the joint can be moved by hand.
func (m *ServoMotor) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return m.fail("close", m.servo.Disable(ctx))
}

// maxMoveTimeMs is the largest move time the servo register holds.
const maxMoveTimeMs = 65535

// MoveTimeMs returns how long a move from pos to goal takes at speed
// degrees per second. A non-zero accel adds the time lost ramping up and
// down (speed/accel for a trapezoidal profile). speed must be > 0.
func MoveTimeMs(pos, goal, speed, accel int) int {
	if speed <= 0 {
		return 0
	}
	dist := goal - pos
	if dist < 0 {
		dist = -dist
	}
	ms := int(DegreesFromSteps(dist) * 1000 / float64(speed))
	if accel > 0 {
		ms += speed * 1000 / accel
	}
	if ms > maxMoveTimeMs {
		ms = maxMoveTimeMs
	}
	return ms
}
