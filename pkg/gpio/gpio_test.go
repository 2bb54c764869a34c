package gpio

import "testing"

func TestMockDriver(t *testing.T) {
	d := NewMockDriver()
	if err := d.SetupPin(17, Input); err != nil {
		t.Fatalf("SetupPin: %v", err)
	}

	if l, err := d.ReadPin(17); err != nil || l != High {
		t.Errorf("unset pin = %v, %v; want high", l, err)
	}

	d.Set(17, Low)
	if l, _ := d.ReadPin(17); l != Low {
		t.Errorf("pin after Set(Low) = %v", l)
	}
	if got := d.Reads(17); got != 2 {
		t.Errorf("Reads(17) = %d, want 2", got)
	}
	if got := d.Reads(27); got != 0 {
		t.Errorf("Reads(27) = %d, want 0", got)
	}
}

func TestNewDriver_Mock(t *testing.T) {
	d, err := NewDriver(true)
	if err != nil {
		t.Fatalf("NewDriver(true): %v", err)
	}
	if _, ok := d.(*MockDriver); !ok {
		t.Errorf("NewDriver(true) = %T, want *MockDriver", d)
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestLevelString(t *testing.T) {
	if High.String() != "high" || Low.String() != "low" {
		t.Errorf("String() = %q, %q", High.String(), Low.String())
	}
}
