// Package gpio reads the digital limit-sensor lines.
package gpio

import (
	"sync"

	"github.com/gwillem/gesturearm/internal/log"
)

// Level represents the logical state of a GPIO pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "high"
	}
	return "low"
}

// PinMode indicates whether a GPIO is input or output.
type PinMode int

const (
	Input PinMode = iota
	Output
)

// Driver is the minimal GPIO interface the sensors need.
// The real implementation uses go-rpio on a Raspberry Pi; MockDriver is for
// development on a PC and for tests.
type Driver interface {
	SetupPin(pin int, mode PinMode) error
	ReadPin(pin int) (Level, error)
	Close() error
}

// NewDriver returns a MockDriver when mock is true, otherwise the Raspberry Pi driver.
func NewDriver(mock bool) (Driver, error) {
	if mock {
		log.Info("gpio: using mock driver")
		return NewMockDriver(), nil
	}
	return NewRPiDriver()
}

// MockDriver keeps pin levels in memory. Unset pins read High, which the
// sensors interpret as "light present" and "button released" respectively
// when wired active-low.
type MockDriver struct {
	mu     sync.Mutex
	levels map[int]Level
	reads  map[int]int
}

// NewMockDriver returns an empty mock.
func NewMockDriver() *MockDriver {
	return &MockDriver{
		levels: make(map[int]Level),
		reads:  make(map[int]int),
	}
}

func (m *MockDriver) SetupPin(pin int, mode PinMode) error {
	log.Debug("gpio: setup pin (mock)", "pin", pin, "mode", mode)
	return nil
}

func (m *MockDriver) ReadPin(pin int) (Level, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads[pin]++
	if l, ok := m.levels[pin]; ok {
		return l, nil
	}
	return High, nil
}

// Set forces the level a pin reads.
func (m *MockDriver) Set(pin int, l Level) {
	m.mu.Lock()
	m.levels[pin] = l
	m.mu.Unlock()
}

// Reads returns how often pin was read.
func (m *MockDriver) Reads(pin int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads[pin]
}

func (m *MockDriver) Close() error {
	log.Debug("gpio: close (mock)")
	return nil
}
