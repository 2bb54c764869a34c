package gesture

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/gwillem/gesturearm/pkg/orientation"
)

// SimSource is an in-process armband. It emits a smoothly changing
// orientation and lets the caller inject any other event, e.g. poses typed
// on the keyboard.
type SimSource struct {
	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup
	start  time.Time

	mu         sync.Mutex
	closed     bool
	vibrations []Vibration
	unlocks    []UnlockType
}

// NewSimSource starts a simulated armband synced to arm. Orientation is
// emitted every period; a zero period disables the generator so tests can
// drive the source with Inject only.
func NewSimSource(arm Arm, period time.Duration) *SimSource {
	s := &SimSource{
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
		start:  time.Now(),
	}
	s.Inject(Event{Kind: EventPair})
	s.Inject(Event{Kind: EventConnect})
	if arm != ArmUnknown {
		s.Inject(Event{Kind: EventArmSync, Arm: arm})
	}

	if period > 0 {
		s.wg.Add(1)
		go s.generate(period)
	}
	return s
}

func (s *SimSource) generate(period time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case t := <-ticker.C:
			s.Inject(Event{
				Kind:      EventOrientation,
				Timestamp: t,
				Rotation:  simRotation(t.Sub(s.start).Seconds()),
			})
		}
	}
}

// simRotation sweeps roll and pitch slowly around the rest position.
func simRotation(elapsed float64) orientation.Quaternion {
	roll := 0.6 * math.Sin(elapsed*0.5)
	pitch := 0.4 * math.Cos(elapsed*0.35)
	yaw := math.Mod(elapsed*0.2, 2*math.Pi) - math.Pi
	return orientation.FromEuler(roll, pitch, yaw)
}

// Inject queues ev. Events injected after Close are dropped.
func (s *SimSource) Inject(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
	}
}

// InjectPose is shorthand for injecting a pose event.
func (s *SimSource) InjectPose(p Pose) {
	s.Inject(Event{Kind: EventPose, Pose: p})
}

// Events implements Source.
func (s *SimSource) Events() <-chan Event {
	return s.events
}

// Vibrate implements Source and records the request.
func (s *SimSource) Vibrate(_ context.Context, v Vibration) error {
	s.mu.Lock()
	s.vibrations = append(s.vibrations, v)
	s.mu.Unlock()
	return nil
}

// Unlock implements Source and records the request.
func (s *SimSource) Unlock(_ context.Context, u UnlockType) error {
	s.mu.Lock()
	s.unlocks = append(s.unlocks, u)
	s.mu.Unlock()
	return nil
}

// Vibrations returns the haptic requests received so far.
func (s *SimSource) Vibrations() []Vibration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Vibration(nil), s.vibrations...)
}

// Unlocks returns the unlock requests received so far.
func (s *SimSource) Unlocks() []UnlockType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]UnlockType(nil), s.unlocks...)
}

// Close stops the generator and closes the event stream.
func (s *SimSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	s.wg.Wait()

	s.mu.Lock()
	close(s.events)
	s.mu.Unlock()
	return nil
}
