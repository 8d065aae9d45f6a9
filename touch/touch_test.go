package touch

import (
	"testing"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
)

type regWrite struct {
	addr uint16
	reg  byte
	val  byte
}

// fakeBus is a minimal i2c.Bus double, addressed exactly like the real bus:
// Tx takes the target device address as its first argument (periph.io
// bakes per-device addressing into the Bus.Tx call, not into a separate
// per-device connection type). It answers register writes by recording
// them, and answers the 38-byte data-block read with whatever filtered/
// baseline values the test preloaded for that address.
type fakeBus struct {
	failAddr uint16 // if non-zero, Tx to this address always errors
	writes   []regWrite

	filtered map[uint16][channelsPerDevice]uint16
	baseline map[uint16][channelsPerDevice]byte
}

func (b *fakeBus) Tx(addr uint16, w, r []byte) error {
	if b.failAddr != 0 && b.failAddr == addr {
		return errNack
	}
	if len(w) == 0 && len(r) == 0 {
		return nil // ping
	}
	if len(w) == 1 && w[0] == regDataStart && len(r) == dataBlockBytes {
		filt := b.filtered[addr]
		base := b.baseline[addr]
		for ch := 0; ch < channelsPerDevice; ch++ {
			r[ch*2] = byte(filt[ch])
			r[ch*2+1] = byte(filt[ch] >> 8)
		}
		for ch := 0; ch < channelsPerDevice; ch++ {
			r[26+ch] = base[ch]
		}
		return nil
	}
	if len(w) == 2 {
		b.writes = append(b.writes, regWrite{addr: addr, reg: w[0], val: w[1]})
		return nil
	}
	return nil
}

func (b *fakeBus) String() string      { return "fake" }
func (b *fakeBus) Halt() error         { return nil }
func (b *fakeBus) Duplex() conn.Duplex { return conn.Half }
func (b *fakeBus) SCL() gpio.PinIO     { return nil }
func (b *fakeBus) SDA() gpio.PinIO     { return nil }

var errNack = &simpleErr{"simulated nack"}

type simpleErr struct{ s string }

func (e *simpleErr) Error() string { return e.s }

func newTestFrontEnd(bus *fakeBus) *FrontEnd {
	return NewFrontEnd(bus)
}

func TestRunAutoconfigurationProgramsBothSensors(t *testing.T) {
	bus := &fakeBus{
		filtered: map[uint16][channelsPerDevice]uint16{},
		baseline: map[uint16][channelsPerDevice]byte{},
	}
	fe := newTestFrontEnd(bus)

	if err := fe.RunAutoconfiguration(550); err != nil {
		t.Fatalf("RunAutoconfiguration: %v", err)
	}
	if !fe.Initialized {
		t.Fatalf("expected Initialized = true")
	}

	var sawTL, sawUSL, sawLSL, sawAutoconfig, sawRunMode [2]bool
	devIndex := func(addr uint16) int {
		if addr == AddrSensorA {
			return 0
		}
		return 1
	}
	for _, w := range bus.writes {
		i := devIndex(w.addr)
		switch w.reg {
		case regTL:
			sawTL[i] = true
			if w.val != byte(550/4) {
				t.Fatalf("sensor %d TL = %d, want %d", i, w.val, 550/4)
			}
		case regUSL:
			sawUSL[i] = true
		case regLSL:
			sawLSL[i] = true
		case regAutoconfig0:
			if w.val != 0x0B {
				t.Fatalf("sensor %d AUTOCONFIG0 = 0x%02X, want 0x0B", i, w.val)
			}
			sawAutoconfig[i] = true
		case regECR:
			if w.val == 0x0C {
				sawRunMode[i] = true
			}
		}
	}
	for i := 0; i < 2; i++ {
		if !sawTL[i] || !sawUSL[i] || !sawLSL[i] || !sawAutoconfig[i] || !sawRunMode[i] {
			t.Fatalf("sensor %d missing expected register writes: tl=%v usl=%v lsl=%v autoconfig=%v run=%v",
				i, sawTL[i], sawUSL[i], sawLSL[i], sawAutoconfig[i], sawRunMode[i])
		}
	}
}

func TestRunAutoconfigurationFailsWhenSensorMissing(t *testing.T) {
	bus := &fakeBus{failAddr: AddrSensorB}
	fe := newTestFrontEnd(bus)

	if err := fe.RunAutoconfiguration(550); err == nil {
		t.Fatalf("expected error when sensor B is absent")
	}
	if fe.Initialized {
		t.Fatalf("expected Initialized = false after failed autoconfiguration")
	}
}

func TestPollPopulatesFilteredAndBaselineAcrossBothDevices(t *testing.T) {
	bus := &fakeBus{
		filtered: map[uint16][channelsPerDevice]uint16{
			AddrSensorA: {100, 101, 102, 103, 104, 105, 106, 107, 108, 109, 110, 111},
			AddrSensorB: {200, 201, 202, 203, 204, 205, 206, 207, 208, 209, 210, 211},
		},
		baseline: map[uint16][channelsPerDevice]byte{
			AddrSensorA: {10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10},
			AddrSensorB: {20, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20},
		},
	}
	fe := newTestFrontEnd(bus)
	fe.Initialized = true

	if err := fe.Poll(); err != nil {
		t.Fatalf("Poll: %v", err)
	}

	if fe.Filtered[0] != 100 || fe.Filtered[11] != 111 {
		t.Fatalf("sensor A filtered channels wrong: %v", fe.Filtered[:12])
	}
	if fe.Filtered[12] != 200 || fe.Filtered[23] != 211 {
		t.Fatalf("sensor B filtered channels wrong: %v", fe.Filtered[12:24])
	}
	if fe.Baseline[0] != 10<<2 || fe.Baseline[23] != 20<<2 {
		t.Fatalf("baseline scaling wrong: A[0]=%d B[11]=%d", fe.Baseline[0], fe.Baseline[23])
	}
}

func TestPollRejectsWhenNotInitialized(t *testing.T) {
	fe := newTestFrontEnd(&fakeBus{})
	if err := fe.Poll(); err == nil {
		t.Fatalf("expected error polling an uninitialized front end")
	}
}

func TestPollMarksUninitializedOnBusFailure(t *testing.T) {
	bus := &fakeBus{failAddr: AddrSensorA}
	fe := newTestFrontEnd(bus)
	fe.Initialized = true

	if err := fe.Poll(); err == nil {
		t.Fatalf("expected error when the bus nacks mid-poll")
	}
	if fe.Initialized {
		t.Fatalf("expected Initialized to drop to false after a bus failure")
	}
}
