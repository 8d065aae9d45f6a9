package hwio

import "periph.io/x/conn/v3/i2c"

// AddrSensPot is the I²C address of the single-channel ADC feeding the
// sensitivity potentiometer, read the same two-byte-register way the touch
// front-end reads its data block (regDataStart-style single conversion
// register).
const AddrSensPot uint16 = 0x4D

const potRegConversion = 0x00

// SensPot reads the raw 10-bit sensitivity pot count over I²C. The
// dispatcher's own one-pole smoothing and deadzone gating (spec.md §4.E)
// run downstream of this; SensPot itself does no filtering.
type SensPot struct {
	dev *i2c.Dev
}

// NewSensPot wraps bus as the pot's ADC device.
func NewSensPot(bus i2c.Bus) *SensPot {
	return &SensPot{dev: &i2c.Dev{Bus: bus, Addr: AddrSensPot}}
}

// Read returns the current raw count in [0, 1023].
func (p *SensPot) Read() (int, error) {
	buf := make([]byte, 2)
	if err := p.dev.Tx([]byte{potRegConversion}, buf); err != nil {
		return 0, wrapf("read sens pot conversion register: %v", err)
	}
	raw := int(buf[0])<<8 | int(buf[1])
	return raw & 0x3FF, nil
}
