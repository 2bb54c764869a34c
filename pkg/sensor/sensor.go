// Package sensor provides the two limit sensors of the arm: an ambient light
// sensor that darkens at the top of the lift travel and a touch switch at
// the end of the slew travel. Both are sampled fresh on every call.
package sensor

import (
	"context"
	"fmt"

	"github.com/gwillem/gesturearm/pkg/gpio"
)

// Ambient reports ambient light intensity in [0, 1].
type Ambient interface {
	FetchAmbientSample(ctx context.Context) (float64, error)
	Close() error
}

// Touch reports 1 when pressed and 0 when released.
type Touch interface {
	FetchTouchSample(ctx context.Context) (float64, error)
	Close() error
}

// ReadError is returned when a sensor read fails.
type ReadError struct {
	Sensor string
	Pin    int
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s sensor (pin %d): %v", e.Sensor, e.Pin, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// GPIOAmbient reads a light module with a digital threshold output. A high
// line means light is present (1.0); low means dark (0.0).
type GPIOAmbient struct {
	drv    gpio.Driver
	pin    int
	invert bool
}

// NewGPIOAmbient configures pin as an input. Set invert for modules whose
// output is active-low.
func NewGPIOAmbient(drv gpio.Driver, pin int, invert bool) (*GPIOAmbient, error) {
	if err := drv.SetupPin(pin, gpio.Input); err != nil {
		return nil, &ReadError{Sensor: "ambient", Pin: pin, Err: err}
	}
	return &GPIOAmbient{drv: drv, pin: pin, invert: invert}, nil
}

func (a *GPIOAmbient) FetchAmbientSample(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	lvl, err := a.drv.ReadPin(a.pin)
	if err != nil {
		return 0, &ReadError{Sensor: "ambient", Pin: a.pin, Err: err}
	}
	if bool(lvl) != a.invert {
		return 1, nil
	}
	return 0, nil
}

// Close is a no-op; the driver is owned by the caller.
func (a *GPIOAmbient) Close() error { return nil }

// GPIOTouch reads a push switch wired to ground with the internal pull-up,
// so a low line means pressed.
type GPIOTouch struct {
	drv gpio.Driver
	pin int
}

// NewGPIOTouch configures pin as an input.
func NewGPIOTouch(drv gpio.Driver, pin int) (*GPIOTouch, error) {
	if err := drv.SetupPin(pin, gpio.Input); err != nil {
		return nil, &ReadError{Sensor: "touch", Pin: pin, Err: err}
	}
	return &GPIOTouch{drv: drv, pin: pin}, nil
}

func (t *GPIOTouch) FetchTouchSample(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	lvl, err := t.drv.ReadPin(t.pin)
	if err != nil {
		return 0, &ReadError{Sensor: "touch", Pin: t.pin, Err: err}
	}
	if lvl == gpio.Low {
		return 1, nil
	}
	return 0, nil
}

// Close is a no-op; the driver is owned by the caller.
func (t *GPIOTouch) Close() error { return nil }
