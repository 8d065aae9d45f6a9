// Command capsense-sim is the control-voltage analogue of the teacher's
// cmd/piano-render: it feeds a scripted, deterministic delta ramp through
// keyboard.Loop (no real hardware involved) and prints the resulting
// output snapshot every tick, so the pipeline/engine chain can be
// inspected without a board.
package main

import (
	"flag"
	"fmt"
	"os"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"

	"github.com/corvidaudio/capsense-core/calibration"
	"github.com/corvidaudio/capsense-core/internal/clock"
	"github.com/corvidaudio/capsense-core/keyboard"
	"github.com/corvidaudio/capsense-core/touch"
)

func main() {
	key := flag.Int("key", 0, "pipeline key index to press (0-23)")
	ticks := flag.Int("ticks", 200, "number of ticks to simulate")
	tickMs := flag.Int("tick-ms", 5, "milliseconds advanced per tick")
	peakDelta := flag.Int("peak-delta", 380, "peak baseline-minus-filtered delta reached at mid-press")
	holdTicks := flag.Int("hold-ticks", 80, "ticks the key stays at peak-delta before releasing")
	mode := flag.String("mode", "pressure_glide", "starting mode: pressure_glide, interval, or midi")
	flag.Parse()

	if *key < 0 || *key >= touch.NumKeys {
		fmt.Fprintf(os.Stderr, "capsense-sim: key must be in 0..%d\n", touch.NumKeys-1)
		os.Exit(1)
	}

	bus := &simBus{baseline: 800}
	front := touch.NewFrontEnd(bus)
	if err := front.RunAutoconfiguration(touch.SensitivityPresets[0]); err != nil {
		fmt.Fprintf(os.Stderr, "capsense-sim: autoconfiguration failed: %v\n", err)
		os.Exit(1)
	}

	rec := calibration.DefaultRecord()
	out := &printingOutput{}
	loop := keyboard.NewLoop(front, rec, out, keyboard.NopEffectSink{})

	switch *mode {
	case "pressure_glide":
	case "interval":
		loop.ModeSelector().SetMode(keyboard.ModeInterval)
	case "midi":
		loop.ModeSelector().SetMode(keyboard.ModeMidi)
	default:
		fmt.Fprintf(os.Stderr, "capsense-sim: unknown mode %q\n", *mode)
		os.Exit(1)
	}

	src := clock.NewManual(0)
	for i := 0; i < *ticks; i++ {
		bus.setDelta(*key, rampDelta(i, *ticks, *peakDelta, *holdTicks))

		now := src.Now()
		if err := loop.Tick(now, keyboard.RawInputs{}); err != nil {
			fmt.Fprintf(os.Stderr, "tick %d: %v\n", i, err)
			os.Exit(1)
		}

		fmt.Printf("t=%-6d key=%d delta=%-4d pitch_v=%6.3f aux_v=%6.3f gate=%v retrigger=%v\n",
			now, *key, bus.deltaOf(*key), out.lastSnapshot.PitchV, out.lastSnapshot.AuxV,
			out.lastSnapshot.Gate, out.lastSnapshot.Retrigger)

		src.Advance(clock.Time(*tickMs))
	}
}

// rampDelta produces a trapezoidal press/hold/release profile over the run:
// rising from 0 to peak across the first third, holding at peak for
// holdTicks, then falling back to 0 for the remainder.
func rampDelta(i, total, peak, holdTicks int) int {
	rise := total / 3
	if rise < 1 {
		rise = 1
	}
	switch {
	case i < rise:
		return peak * i / rise
	case i < rise+holdTicks:
		return peak
	default:
		fallStart := rise + holdTicks
		fallLen := total - fallStart
		if fallLen < 1 {
			return 0
		}
		remaining := total - i
		if remaining < 0 {
			remaining = 0
		}
		return peak * remaining / fallLen
	}
}

// simBus is a minimal periph i2c.Bus double that reports a fixed baseline
// and a per-key delta on both sensor addresses, enough to drive
// touch.FrontEnd end to end without real hardware.
type simBus struct {
	baseline uint16
	deltas   [touch.NumKeys]int
}

func (b *simBus) setDelta(key, delta int) { b.deltas[key] = delta }
func (b *simBus) deltaOf(key int) int     { return b.deltas[key] }

func (b *simBus) Tx(addr uint16, w, r []byte) error {
	if len(r) == 0 {
		return nil
	}
	devBase := 0
	if addr == touch.AddrSensorB {
		devBase = 12
	}
	for ch := 0; ch < 12 && ch*2+1 < len(r); ch++ {
		filtered := int(b.baseline) - b.deltas[devBase+ch]
		if filtered < 0 {
			filtered = 0
		}
		r[ch*2] = byte(filtered)
		r[ch*2+1] = byte(filtered >> 8)
	}
	for ch := 0; ch < 12 && 26+ch < len(r); ch++ {
		r[26+ch] = byte(b.baseline >> 2)
	}
	return nil
}

func (b *simBus) String() string      { return "sim" }
func (b *simBus) Halt() error         { return nil }
func (b *simBus) Duplex() conn.Duplex { return conn.Half }
func (b *simBus) SCL() gpio.PinIO     { return nil }
func (b *simBus) SDA() gpio.PinIO     { return nil }

// printingOutput implements keyboard.AnalogOutput, recording the last
// commit for the per-tick print line instead of driving real hardware.
type printingOutput struct {
	lastSnapshot keyboard.OutputSnapshot
}

func (p *printingOutput) SetVoltage(channel int, volts float32) error {
	if channel == 0 {
		p.lastSnapshot.PitchV = volts
		p.lastSnapshot.Retrigger = false // one-shot flag, cleared at the start of each tick's commit
	} else {
		p.lastSnapshot.AuxV = volts
	}
	return nil
}

func (p *printingOutput) SetGate(on bool) error {
	p.lastSnapshot.Gate = on
	return nil
}

func (p *printingOutput) PulseTrigger() error {
	p.lastSnapshot.Retrigger = true
	return nil
}
