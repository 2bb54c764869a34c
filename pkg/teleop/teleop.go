// Package teleop runs the gesture control loop: armband events in, motor
// commands out.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gwillem/gesturearm/internal/log"
	"github.com/gwillem/gesturearm/pkg/actuation"
	"github.com/gwillem/gesturearm/pkg/gesture"
	"github.com/gwillem/gesturearm/pkg/orientation"
	"github.com/gwillem/gesturearm/pkg/robot"
	"github.com/gwillem/gesturearm/pkg/sensor"
	"github.com/gwillem/gesturearm/pkg/status"
)

var (
	// ErrNotReady is returned when a collaborator is missing.
	ErrNotReady = errors.New("teleop: controller not ready")
	// ErrAlreadyRunning is returned by a second Start.
	ErrAlreadyRunning = errors.New("teleop: already running")
)

// Mode is the state of the control loop.
type Mode int

const (
	Sleeping Mode = iota
	Running
)

func (m Mode) String() string {
	if m == Running {
		return "running"
	}
	return "sleeping"
}

// State is published after every tick.
type State struct {
	Mode       Mode
	Connected  bool
	Angles     orientation.Angles
	Scale      int
	Arm        gesture.Arm
	Pose       gesture.Pose
	HasPose    bool
	Ambient    float64
	Touch      float64
	Horizontal actuation.Command
	Vertical   actuation.Command
	Closing    bool
	Timestamp  time.Time
	Error      error
}

// Status returns the part of s shown on the status line.
func (s State) Status() status.Snapshot {
	return status.Snapshot{
		Roll:    s.Angles.Roll,
		Pitch:   s.Angles.Pitch,
		Scale:   s.Scale,
		Arm:     s.Arm,
		Pose:    s.Pose,
		HasPose: s.HasPose,
	}
}

// Config holds configuration for the controller.
type Config struct {
	Source     gesture.Source
	Horizontal robot.Motor
	Vertical   robot.Motor
	Gripper    robot.Motor
	Ambient    sensor.Ambient
	Touch      sensor.Touch

	// Mapper tuning. VerticalMaxSpeed is read from the vertical motor.
	Mapping actuation.Config

	Period       time.Duration // tick while running
	SleepDelay   time.Duration // tick while sleeping
	WaitTimeout  time.Duration // how long Start waits for the armband
	Acceleration int           // applied to both axes at startup
	GripperOpen  int           // degrees
	GripperClose int           // degrees
}

// Controller manages the gesture control loop. All collaborator calls are
// made from the goroutine running Start.
type Controller struct {
	cfg    Config
	filter orientation.Filter
	mapper *actuation.Mapper

	mu      sync.Mutex
	running bool
	stateCh chan State
	logCh   chan string

	// loop state
	mode      Mode
	connected bool
	angles    orientation.Angles
	arm       gesture.Arm
	edge      gesture.PoseEdge
	pose      gesture.Pose
	hasPose   bool
	lastErr   error
	ambient   float64
	touch     float64
	hcmd      actuation.Command
	vcmd      actuation.Command
}

// NewController creates a controller. Every collaborator is required.
func NewController(cfg Config) (*Controller, error) {
	switch {
	case cfg.Source == nil:
		return nil, fmt.Errorf("%w: no gesture source", ErrNotReady)
	case cfg.Horizontal == nil, cfg.Vertical == nil, cfg.Gripper == nil:
		return nil, fmt.Errorf("%w: missing motor", ErrNotReady)
	case cfg.Ambient == nil, cfg.Touch == nil:
		return nil, fmt.Errorf("%w: missing sensor", ErrNotReady)
	}

	if cfg.Mapping.Scale <= 0 {
		cfg.Mapping.Scale = actuation.DefaultScale
	}
	if cfg.Period <= 0 {
		cfg.Period = time.Second / 20
	}
	if cfg.SleepDelay <= 0 {
		cfg.SleepDelay = 200 * time.Millisecond
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 10 * time.Second
	}
	if cfg.Acceleration <= 0 {
		cfg.Acceleration = 200
	}
	if cfg.GripperOpen == 0 && cfg.GripperClose == 0 {
		cfg.GripperOpen, cfg.GripperClose = 90, -90
	}

	return &Controller{
		cfg:     cfg,
		filter:  orientation.NewFilter(float64(cfg.Mapping.Scale)),
		stateCh: make(chan State, 1),
		logCh:   make(chan string, 10),
		angles:  orientation.Disconnected,
	}, nil
}

// Close releases the armband, motors and sensors.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	var errs []error
	closers := []interface{ Close() error }{
		c.cfg.Source, c.cfg.Horizontal, c.cfg.Vertical, c.cfg.Gripper, c.cfg.Ambient, c.cfg.Touch,
	}
	for _, cl := range closers {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %w", errors.Join(errs...))
	}
	return nil
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the control frequency while running.
func (c *Controller) Hz() int {
	return int(time.Second / c.cfg.Period)
}

// Scale returns the normalised angle range.
func (c *Controller) Scale() int {
	return c.cfg.Mapping.Scale
}

func (c *Controller) log(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	log.Debug(text, "component", "teleop")
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), text)
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start runs the control loop until ctx is cancelled. It initialises the
// motors, waits for the armband to connect and then ticks in the current
// mode, starting in Sleeping.
func (c *Controller) Start(ctx context.Context) error {
	if c == nil || c.cfg.Source == nil {
		return ErrNotReady
	}
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	c.initMotors(ctx)

	maxSpeed, err := c.cfg.Vertical.MaxSpeed(ctx)
	if err != nil {
		c.log("Warning: vertical max speed: %v", err)
	}
	mapping := c.cfg.Mapping
	mapping.VerticalMaxSpeed = maxSpeed
	c.mapper = actuation.NewMapper(mapping)

	c.log("Waiting for armband (%s)...", c.cfg.WaitTimeout)
	seen, err := gesture.WaitForConnect(ctx, c.cfg.Source, c.cfg.WaitTimeout)
	for _, ev := range seen {
		c.handleEvent(ctx, ev)
	}
	if err != nil {
		c.shutdown()
		return fmt.Errorf("wait for armband: %w", err)
	}
	if err := c.cfg.Source.Unlock(ctx, gesture.UnlockHold); err != nil {
		c.log("Warning: unlock armband: %v", err)
	}
	c.log("Armband connected; wave out to start")

	mode := c.mode
	ticker := time.NewTicker(c.interval(mode))
	defer ticker.Stop()

	events := c.cfg.Source.Events()
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				c.log("Armband event stream closed")
				events = nil
				ev = gesture.Event{Kind: gesture.EventDisconnect}
			}
			c.handleEvent(ctx, ev)
		case <-ticker.C:
			events = c.drain(ctx, events)
			c.step(ctx)
		}

		if c.mode != mode {
			mode = c.mode
			ticker.Reset(c.interval(mode))
		}
	}
}

func (c *Controller) interval(m Mode) time.Duration {
	if m == Running {
		return c.cfg.Period
	}
	return c.cfg.SleepDelay
}

// drain dispatches events that are already queued so that pose actions
// precede this tick's axis commands.
func (c *Controller) drain(ctx context.Context, events <-chan gesture.Event) <-chan gesture.Event {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				c.log("Armband event stream closed")
				c.handleEvent(ctx, gesture.Event{Kind: gesture.EventDisconnect})
				return nil
			}
			c.handleEvent(ctx, ev)
		default:
			return events
		}
	}
}

func (c *Controller) initMotors(ctx context.Context) {
	for _, m := range []struct {
		name  robot.MotorName
		motor robot.Motor
	}{
		{robot.Horizontal, c.cfg.Horizontal},
		{robot.Vertical, c.cfg.Vertical},
	} {
		err := errors.Join(
			m.motor.SetSpeed(ctx, 0),
			m.motor.SetAcceleration(ctx, c.cfg.Acceleration),
			m.motor.Stop(ctx, true),
		)
		if err != nil {
			c.log("Warning: init %s motor: %v", m.name, err)
		}
	}
}

func (c *Controller) handleEvent(ctx context.Context, ev gesture.Event) {
	switch ev.Kind {
	case gesture.EventOrientation:
		a := c.filter.Apply(ev.Rotation.Normalized())
		if !a.Finite() {
			log.Debug("dropped orientation sample", "rotation", ev.Rotation)
			return
		}
		c.angles = a
	case gesture.EventPose:
		c.dispatchPose(ctx, ev.Pose)
	case gesture.EventArmSync:
		c.arm = ev.Arm
		c.log("Synced to %s arm", ev.Arm)
	case gesture.EventArmUnsync:
		c.arm = gesture.ArmUnknown
		c.log("Arm unsynced")
	case gesture.EventConnect:
		c.connected = true
	case gesture.EventPair:
		c.connected = true
		c.log("Armband paired")
	case gesture.EventDisconnect, gesture.EventUnpair:
		if c.connected || c.mode == Running {
			c.log("Armband %s", ev.Kind)
		}
		c.connected = false
		c.edge.Reset()
		c.setMode(Sleeping)
	}
}

// dispatchPose fires the one-shot action for p once per pose transition.
func (c *Controller) dispatchPose(ctx context.Context, p gesture.Pose) {
	if !c.edge.Observe(p) {
		return
	}
	c.pose, c.hasPose = p, true

	switch p {
	case gesture.PoseWaveOut:
		c.setMode(Running)
		c.vibrate(ctx, gesture.VibrationMedium)
	case gesture.PoseFist:
		c.moveGripper(ctx, c.cfg.GripperClose, "close")
		c.vibrate(ctx, gesture.VibrationShort)
		c.pose = gesture.PoseRest
	case gesture.PoseFingersSpread:
		c.moveGripper(ctx, c.cfg.GripperOpen, "open")
		c.vibrate(ctx, gesture.VibrationShort)
		c.pose = gesture.PoseRest
	case gesture.PoseDoubleTap:
		c.setMode(Sleeping)
		c.vibrate(ctx, gesture.VibrationMedium)
		c.pose = gesture.PoseRest
	}
}

func (c *Controller) setMode(m Mode) {
	if c.mode == m {
		return
	}
	c.mode = m
	if m == Running {
		c.log("Running")
		return
	}
	c.log("Sleeping")
	c.stopAxes(context.Background())
}

func (c *Controller) moveGripper(ctx context.Context, deg int, what string) {
	if err := c.cfg.Gripper.RotateTo(ctx, deg); err != nil {
		c.commFailure(err)
		return
	}
	c.log("Gripper %s (%d°)", what, deg)
}

func (c *Controller) vibrate(ctx context.Context, v gesture.Vibration) {
	if err := c.cfg.Source.Vibrate(ctx, v); err != nil {
		c.log("Warning: vibrate: %v", err)
	}
}

func (c *Controller) commFailure(err error) {
	c.lastErr = err
	if robot.IsCommFailure(err) {
		c.log("Comm error: %v", err)
		return
	}
	c.log("Error: %v", err)
}

func (c *Controller) step(ctx context.Context) {
	c.lastErr = nil
	if c.mode == Running {
		angles := c.angles
		if !c.connected {
			angles = orientation.Disconnected
		}

		// A failed sample reads as the limit being reached.
		ambient, err := c.cfg.Ambient.FetchAmbientSample(ctx)
		if err != nil {
			c.commFailure(err)
			ambient = 0
		}
		c.ambient = ambient
		c.vcmd = c.mapper.Vertical(angles.Pitch, ambient)
		c.send(ctx, c.cfg.Vertical, c.vcmd)

		touch, err := c.cfg.Touch.FetchTouchSample(ctx)
		if err != nil {
			c.commFailure(err)
			touch = actuation.TouchPressed
		}
		c.touch = touch
		c.hcmd = c.mapper.Horizontal(angles.Roll, c.arm, touch)
		c.send(ctx, c.cfg.Horizontal, c.hcmd)
	}

	c.sendState(c.state())
}

func (c *Controller) send(ctx context.Context, m robot.Motor, cmd actuation.Command) {
	if err := m.SetSpeed(ctx, cmd.Speed); err != nil {
		c.commFailure(err)
		return
	}
	var err error
	switch cmd.Direction {
	case actuation.Forward:
		err = m.Forward(ctx)
	case actuation.Backward:
		err = m.Backward(ctx)
	default:
		err = m.Stop(ctx, true)
	}
	if err != nil {
		c.commFailure(err)
	}
}

func (c *Controller) state() State {
	return State{
		Mode:       c.mode,
		Connected:  c.connected,
		Angles:     c.angles,
		Scale:      c.cfg.Mapping.Scale,
		Arm:        c.arm,
		Pose:       c.pose,
		HasPose:    c.hasPose,
		Ambient:    c.ambient,
		Touch:      c.touch,
		Horizontal: c.hcmd,
		Vertical:   c.vcmd,
		Timestamp:  time.Now(),
		Error:      c.lastErr,
	}
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

// stopAxes halts both continuously driven motors.
func (c *Controller) stopAxes(ctx context.Context) {
	c.hcmd = actuation.Command{Axis: actuation.Horizontal}
	c.vcmd = actuation.Command{Axis: actuation.Vertical}
	for _, m := range []robot.Motor{c.cfg.Vertical, c.cfg.Horizontal} {
		if err := m.Stop(ctx, true); err != nil {
			c.commFailure(err)
		}
	}
}

func (c *Controller) shutdown() {
	c.log("Closing...")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c.stopAxes(ctx)

	s := c.state()
	s.Closing = true
	c.sendState(s)
	c.log("Control loop stopped")
}
