package robot

import (
	"context"
	"fmt"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// Arm represents the gesture-controlled arm: three servos on one bus.
type Arm struct {
	bus         *feetech.Bus
	group       *feetech.ServoGroup
	calibration Calibration
	motors      map[MotorName]*ServoMotor
}

// NewArm opens the bus, checks every calibrated servo answers, and wraps
// each one as a regulated motor.
func NewArm(ctx context.Context, bus BusConfig, cal Calibration) (*Arm, error) {
	if bus.Port == "" {
		return nil, fmt.Errorf("open bus: no port configured")
	}
	baud := bus.BaudRate
	if baud <= 0 {
		baud = 1_000_000
	}

	// Open serial bus
	b, err := feetech.NewBus(feetech.BusConfig{
		Port:     bus.Port,
		BaudRate: baud,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	ids := cal.MotorIDs()
	if len(ids) == 0 {
		b.Close()
		return nil, fmt.Errorf("no motors calibrated")
	}
	minID, maxID := ids[0], ids[0]
	for _, id := range ids {
		minID = min(minID, id)
		maxID = max(maxID, id)
	}

	found, err := b.Scan(ctx, minID, maxID)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("scan bus: %w", err)
	}
	byID := make(map[int]feetech.FoundServo, len(found))
	for _, s := range found {
		byID[s.ID] = s
	}

	motors := make(map[MotorName]*ServoMotor, len(cal))
	for _, name := range AllMotors() {
		mc, ok := cal[name]
		if !ok {
			continue
		}
		fs, ok := byID[mc.ID]
		if !ok {
			b.Close()
			return nil, fmt.Errorf("%s motor: servo %d not found on %s", name, mc.ID, bus.Port)
		}
		motors[name] = NewServoMotor(name, feetech.NewServo(b, fs.ID, fs.Model), mc)
	}

	return &Arm{
		bus:         b,
		group:       feetech.NewServoGroupByIDs(b, ids...),
		calibration: cal,
		motors:      motors,
	}, nil
}

// Motor returns the named motor, or nil if it is not calibrated.
func (a *Arm) Motor(name MotorName) Motor {
	m, ok := a.motors[name]
	if !ok {
		return nil
	}
	return m
}

// Close closes the bus. The motors are closed by their owner, the
// controller, before the bus goes away.
func (a *Arm) Close() error {
	return a.bus.Close()
}

// ReadAngles reads current positions from all motors, in degrees from home.
func (a *Arm) ReadAngles(ctx context.Context) (map[MotorName]float64, error) {
	// Read raw positions using sync read
	rawPositions, err := a.group.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	angles := make(map[MotorName]float64, len(rawPositions))
	for id, raw := range rawPositions {
		name, mc, ok := a.calibration.ByID(id)
		if !ok {
			continue
		}
		angles[name] = mc.Degrees(raw)
	}

	return angles, nil
}
