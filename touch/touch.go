// Package touch drives the two 12-channel capacitive touch front-ends
// (MPR121-family sensors) that feed the pressure pipeline. It owns the
// two-wire bus transactions only; no musical interpretation of the raw
// samples happens here.
package touch

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/i2c"
)

// NumKeys is the total channel count across both devices.
const NumKeys = 24

// channelsPerDevice is the electrode count configured on each sensor.
const channelsPerDevice = 12

// Bus addresses of the two sensor devices (spec.md §6).
const (
	AddrSensorA uint16 = 0x5A
	AddrSensorB uint16 = 0x5B
)

// Register map used by this driver (spec.md §6).
const (
	regDataStart     = 0x04
	regTouchThresh   = 0x41 // + 2*electrode
	regReleaseThresh = 0x42 // + 2*electrode
	regACCR0         = 0x5B
	regECR           = 0x5E
	regAutoconfig0   = 0x7B
	regUSL           = 0x7D
	regLSL           = 0x7E
	regTL            = 0x7F
)

const dataBlockBytes = channelsPerDevice*2 + 2 + channelsPerDevice // filtered + reserved + baseline

// SensitivityPresets are the target-baseline values an operator can cycle
// through during calibration (spec.md §4.A).
var SensitivityPresets = [5]uint16{550, 650, 750, 850, 900}

// SensitivityPresetNames are display labels for SensitivityPresets, carried
// from the original firmware's calibration UI (SPEC_FULL.md §4.D).
var SensitivityPresetNames = [5]string{"Standard", "Sensitive", "Very Sensitive", "High Perf", "Max Gain"}

// FrontEnd polls the two capacitive sensors and exposes the concatenated
// 24-channel filtered/baseline arrays.
type FrontEnd struct {
	Debug       bool
	Initialized bool

	Filtered [NumKeys]uint16
	Baseline [NumKeys]uint16

	devs [2]*i2c.Dev
}

// NewFrontEnd wraps bus as the two sensor devices at their fixed addresses.
func NewFrontEnd(bus i2c.Bus) *FrontEnd {
	return &FrontEnd{
		devs: [2]*i2c.Dev{
			{Bus: bus, Addr: AddrSensorA},
			{Bus: bus, Addr: AddrSensorB},
		},
	}
}

// RunAutoconfiguration programs both sensors for the given target baseline
// and enters run mode for 12 electrodes each (spec.md §4.A). On failure
// (a device does not acknowledge its address) Initialized is left false
// and the pipeline must suppress all note output.
func (f *FrontEnd) RunAutoconfiguration(targetBaseline uint16) error {
	tl := byte(targetBaseline / 4)
	usl := byte(float64(targetBaseline) * 1.1 / 4)
	lsl := byte(float64(targetBaseline) * 0.7 / 4)

	for i, dev := range f.devs {
		if err := f.pingDevice(dev); err != nil {
			f.Initialized = false
			return fmt.Errorf("touch: sensor %d (addr 0x%02X) not found: %w", i, dev.Addr, err)
		}

		if err := writeReg(dev, regECR, 0x00); err != nil { // stop config mode
			return wrapf("stop config mode on sensor %d: %v", i, err)
		}
		for e := 0; e < channelsPerDevice; e++ {
			if err := writeReg(dev, regTouchThresh+2*byte(e), 12); err != nil {
				return wrapf("set touch threshold electrode %d: %v", e, err)
			}
			if err := writeReg(dev, regReleaseThresh+2*byte(e), 6); err != nil {
				return wrapf("set release threshold electrode %d: %v", e, err)
			}
		}

		if err := writeReg(dev, regACCR0, 0x00); err != nil {
			return wrapf("clear ACCR0 on sensor %d: %v", i, err)
		}
		if err := writeReg(dev, regUSL, usl); err != nil {
			return wrapf("set USL on sensor %d: %v", i, err)
		}
		if err := writeReg(dev, regLSL, lsl); err != nil {
			return wrapf("set LSL on sensor %d: %v", i, err)
		}
		if err := writeReg(dev, regTL, tl); err != nil {
			return wrapf("set TL on sensor %d: %v", i, err)
		}
		if err := writeReg(dev, regAutoconfig0, 0x0B); err != nil {
			return wrapf("enable autoconfig on sensor %d: %v", i, err)
		}
		if err := writeReg(dev, regECR, 0x0C); err != nil { // run mode, 12 electrodes
			return wrapf("enter run mode on sensor %d: %v", i, err)
		}

		if f.Debug {
			log.Printf("touch: sensor %d configured (target=%d tl=%d usl=%d lsl=%d)", i, targetBaseline, tl, usl, lsl)
		}
	}

	f.Initialized = true
	return nil
}

// Poll reads the contiguous 38-byte data block from each device and
// updates Filtered/Baseline. If the driver was never successfully
// autoconfigured, Poll is a no-op returning an error so the caller (the
// pressure pipeline) suppresses output.
func (f *FrontEnd) Poll() error {
	if !f.Initialized {
		return fmt.Errorf("touch: not initialized")
	}

	for devIdx, dev := range f.devs {
		buf := make([]byte, dataBlockBytes)
		if err := dev.Tx([]byte{regDataStart}, buf); err != nil {
			f.Initialized = false
			return wrapf("poll sensor %d: %v", devIdx, err)
		}

		base := devIdx * channelsPerDevice
		for ch := 0; ch < channelsPerDevice; ch++ {
			lo := buf[ch*2]
			hi := buf[ch*2+1]
			f.Filtered[base+ch] = uint16(lo) | uint16(hi)<<8
		}
		// Skip the 2 reserved bytes at buf[24:26].
		for ch := 0; ch < channelsPerDevice; ch++ {
			f.Baseline[base+ch] = uint16(buf[26+ch]) << 2
		}
	}
	return nil
}

// BaselineTable returns a copy of the current baseline array, used only for
// the calibration FSM's live diagnostic display.
func (f *FrontEnd) BaselineTable() [NumKeys]uint16 {
	return f.Baseline
}

func (f *FrontEnd) pingDevice(dev *i2c.Dev) error {
	return dev.Tx(nil, nil)
}

func writeReg(dev *i2c.Dev, reg, value byte) error {
	return dev.Tx([]byte{reg, value}, nil)
}

func wrapf(format string, a ...interface{}) error {
	return fmt.Errorf("touch: "+format, a...)
}
