package hwio

import (
	"testing"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

type dacRegWrite struct {
	reg byte
	val []byte
}

// fakeDACBus is a minimal i2c.Bus double: the DAC never reads back (every
// call has r == nil), so Tx only needs to record writes.
type fakeDACBus struct {
	writes []dacRegWrite
}

func (b *fakeDACBus) Tx(addr uint16, w, r []byte) error {
	if len(w) > 0 {
		b.writes = append(b.writes, dacRegWrite{reg: w[0], val: append([]byte(nil), w[1:]...)})
	}
	return nil
}

func (b *fakeDACBus) String() string      { return "fakedac" }
func (b *fakeDACBus) Halt() error         { return nil }
func (b *fakeDACBus) Duplex() conn.Duplex { return conn.Half }
func (b *fakeDACBus) SCL() gpio.PinIO     { return nil }
func (b *fakeDACBus) SDA() gpio.PinIO     { return nil }

type fakePin struct {
	name   string
	levels []gpio.Level
}

func (p *fakePin) Name() string             { return p.name }
func (p *fakePin) String() string           { return p.name }
func (p *fakePin) Halt() error              { return nil }
func (p *fakePin) Number() int               { return 0 }
func (p *fakePin) Function() string          { return "" }
func (p *fakePin) Out(l gpio.Level) error    { p.levels = append(p.levels, l); return nil }
func (p *fakePin) PWM(gpio.Duty, physic.Frequency) error { return nil }

func TestNewDACConfiguresRangeAndZeroesOutputs(t *testing.T) {
	bus := &fakeDACBus{}
	gate := &fakePin{name: "gate"}
	trig := &fakePin{name: "trig"}

	dac, err := NewDAC((i2c.Bus)(bus), gate, trig)
	if err != nil {
		t.Fatalf("NewDAC: %v", err)
	}
	if dac == nil {
		t.Fatalf("expected a non-nil DAC")
	}

	if len(bus.writes) < 3 {
		t.Fatalf("expected at least 3 register writes (range + 2 channels), got %d", len(bus.writes))
	}
	if bus.writes[0].reg != dacRegRange {
		t.Fatalf("first write reg = 0x%02X, want range register 0x%02X", bus.writes[0].reg, dacRegRange)
	}
	if len(gate.levels) == 0 || gate.levels[len(gate.levels)-1] != gpio.Low {
		t.Fatalf("expected gate to end initialization low")
	}
}

func TestSetVoltageClampsAndEncodesFullScale(t *testing.T) {
	bus := &fakeDACBus{}
	gate := &fakePin{name: "gate"}
	trig := &fakePin{name: "trig"}
	dac, err := NewDAC((i2c.Bus)(bus), gate, trig)
	if err != nil {
		t.Fatalf("NewDAC: %v", err)
	}

	if err := dac.SetVoltage(0, 20); err != nil { // above range, should clamp to 10V
		t.Fatalf("SetVoltage: %v", err)
	}
	last := bus.writes[len(bus.writes)-1]
	if last.reg != dacRegCh0 {
		t.Fatalf("expected write to channel 0 register, got 0x%02X", last.reg)
	}
	code := uint16(last.val[0])>>4 | uint16(last.val[1])<<4
	if code != 0xFFF {
		t.Fatalf("expected full-scale code 0xFFF for a clamped 10V request, got 0x%03X", code)
	}
}

func TestSetVoltageRejectsInvalidChannel(t *testing.T) {
	bus := &fakeDACBus{}
	gate := &fakePin{name: "gate"}
	trig := &fakePin{name: "trig"}
	dac, err := NewDAC((i2c.Bus)(bus), gate, trig)
	if err != nil {
		t.Fatalf("NewDAC: %v", err)
	}
	if err := dac.SetVoltage(2, 1); err == nil {
		t.Fatalf("expected an error for an out-of-range channel")
	}
}

func TestPulseTriggerDrivesHighThenLow(t *testing.T) {
	bus := &fakeDACBus{}
	gate := &fakePin{name: "gate"}
	trig := &fakePin{name: "trig"}
	dac, err := NewDAC((i2c.Bus)(bus), gate, trig)
	if err != nil {
		t.Fatalf("NewDAC: %v", err)
	}

	if err := dac.PulseTrigger(); err != nil {
		t.Fatalf("PulseTrigger: %v", err)
	}
	if len(trig.levels) < 2 {
		t.Fatalf("expected at least 2 trigger pin writes, got %d", len(trig.levels))
	}
	if trig.levels[len(trig.levels)-2] != gpio.High || trig.levels[len(trig.levels)-1] != gpio.Low {
		t.Fatalf("expected trigger to go high then low, got %v", trig.levels)
	}
}
