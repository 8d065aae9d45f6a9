// Package hwio binds the keyboard package's abstract AnalogOutput,
// RawInputs, and UIEffectSink contracts to real peripherals: a two-channel
// DAC and gate/trigger lines over periph.io's I²C/GPIO conn layer, and the
// four buttons, quadrature rotary, and sensitivity pot over a Linux GPIO
// character device via go-gpiocdev. Nothing here performs musical
// interpretation; it only moves bytes and pin levels.
package hwio

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
)

// trigPulseWidth is how long the trigger line is held high for a single
// retrigger pulse, matching a typical Eurorack-style trigger convention
// (well above most downstream gate detectors' minimum pulse width, well
// under the pipeline's own tick period).
const trigPulseWidth = 2 * time.Millisecond

// AddrDAC is the fixed I²C address of the pitch/aux dual-channel DAC
// (spec.md §6's "DAC... 0x5F"), grounded on original_source/src/
// DACManager.cpp's GP8403 target (Pitch on channel 0, Aux on channel 1).
const AddrDAC uint16 = 0x5F

// Register map for the GP8403-family DAC: one range-config register
// followed by a 12-bit output register per channel, matching the original
// driver's "configure 0-10V range, then write millivolts" sequence.
const (
	dacRegRange = 0x01
	dacRegCh0   = 0x02
	dacRegCh1   = 0x04

	dacRange10V = 0x11
)

// DAC drives the GP8403-style dual-channel 0-10V output and the gate/
// trigger GPIO lines. It implements keyboard.AnalogOutput.
type DAC struct {
	dev  *i2c.Dev
	gate gpio.PinOut
	trig gpio.PinOut
}

// NewDAC wraps bus as the DAC device and binds the gate/trigger output
// pins. Both pins are driven active-high, matching the original firmware's
// "digitalWrite(HIGH) on retrigger" gate/trigger contract.
func NewDAC(bus i2c.Bus, gate, trig gpio.PinOut) (*DAC, error) {
	d := &DAC{
		dev:  &i2c.Dev{Bus: bus, Addr: AddrDAC},
		gate: gate,
		trig: trig,
	}
	if err := d.dev.Tx([]byte{dacRegRange, dacRange10V, dacRange10V}, nil); err != nil {
		return nil, wrapf("configure output range: %v", err)
	}
	if err := d.SetVoltage(0, 0); err != nil {
		return nil, err
	}
	if err := d.SetVoltage(1, 0); err != nil {
		return nil, err
	}
	if err := d.SetGate(false); err != nil {
		return nil, err
	}
	return d, nil
}

// SetVoltage implements keyboard.AnalogOutput. channel 0 is pitch, 1 is aux
// (spec.md §6); volts is clamped to the DAC's 0-10V range before being
// scaled to the 12-bit millivolt-ish code the GP8403 register expects.
func (d *DAC) SetVoltage(channel int, volts float32) error {
	if channel < 0 || channel > 1 {
		return fmt.Errorf("hwio: invalid DAC channel %d", channel)
	}
	if volts < 0 {
		volts = 0
	}
	if volts > 10 {
		volts = 10
	}
	code := uint16(volts / 10 * 0xFFF)
	reg := byte(dacRegCh0)
	if channel == 1 {
		reg = dacRegCh1
	}
	lo := byte(code << 4)
	hi := byte(code >> 4)
	if err := d.dev.Tx([]byte{reg, lo, hi}, nil); err != nil {
		return wrapf("set channel %d voltage: %v", channel, err)
	}
	return nil
}

// SetGate implements keyboard.AnalogOutput.
func (d *DAC) SetGate(on bool) error {
	level := gpio.Low
	if on {
		level = gpio.High
	}
	if err := d.gate.Out(level); err != nil {
		return wrapf("set gate: %v", err)
	}
	return nil
}

// PulseTrigger implements keyboard.AnalogOutput: a synchronous high-then-low
// pulse on the trigger pin. OutputSnapshot.Retrigger is itself a one-shot
// flag (spec.md §4.F/G, consumed exactly once per note edge), so the pulse
// width is self-contained here rather than spanning multiple ticks.
func (d *DAC) PulseTrigger() error {
	if err := d.trig.Out(gpio.High); err != nil {
		return wrapf("pulse trigger: %v", err)
	}
	time.Sleep(trigPulseWidth)
	if err := d.trig.Out(gpio.Low); err != nil {
		return wrapf("lower trigger: %v", err)
	}
	return nil
}

func wrapf(format string, a ...interface{}) error {
	return fmt.Errorf("hwio: "+format, a...)
}
