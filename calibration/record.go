// Package calibration implements the versioned non-volatile calibration
// record: per-key max-delta and the target baseline used for capacitive
// sensor autoconfiguration. The record is a fixed 54-byte little-endian
// layout persisted at offset 0 of non-volatile storage (an EEPROM, or
// anything else addressable as an io.ReaderAt/io.WriterAt).
package calibration

import (
	"encoding/binary"
	"errors"
	"io"
)

// NumKeys is the number of capacitive keys the record holds a max-delta
// entry for.
const NumKeys = 24

const (
	// Magic identifies a valid record.
	Magic uint16 = 0xBEEF
	// Version is the current record layout version.
	Version uint8 = 3

	// RecordSize is the fixed on-disk size in bytes: 2 (magic) + 1
	// (version) + 1 (reserved) + 2 (target_baseline) + 24*2 (max_delta).
	RecordSize = 2 + 1 + 1 + 2 + NumKeys*2

	// DefaultMaxDelta and DefaultTargetBaseline are applied when no valid
	// record is found.
	DefaultMaxDelta       uint16 = 400
	DefaultTargetBaseline uint16 = 550
)

// ErrInvalid is returned by Load when the stored record's magic or version
// does not match; the caller should apply DefaultRecord and continue.
var ErrInvalid = errors.New("calibration: invalid or absent record")

// Record is the calibration data persisted across reboots.
type Record struct {
	Version        uint8
	TargetBaseline uint16
	MaxDelta       [NumKeys]uint16
}

// DefaultRecord returns the factory-default calibration used when no valid
// record is present.
func DefaultRecord() Record {
	rec := Record{
		Version:        Version,
		TargetBaseline: DefaultTargetBaseline,
	}
	for i := range rec.MaxDelta {
		rec.MaxDelta[i] = DefaultMaxDelta
	}
	return rec
}

// Load reads and validates the record at offset 0 of r. On a magic or
// version mismatch it returns (DefaultRecord(), ErrInvalid); the zero value
// of the error is never returned together with an unusable record, so
// callers can always use the returned Record regardless of the error.
func Load(r io.ReaderAt) (Record, error) {
	buf := make([]byte, RecordSize)
	if _, err := r.ReadAt(buf, 0); err != nil && err != io.EOF {
		return DefaultRecord(), ErrInvalid
	}

	magic := binary.LittleEndian.Uint16(buf[0:2])
	version := buf[2]
	if magic != Magic || version != Version {
		return DefaultRecord(), ErrInvalid
	}

	rec := Record{
		Version:        version,
		TargetBaseline: binary.LittleEndian.Uint16(buf[4:6]),
	}
	for i := 0; i < NumKeys; i++ {
		off := 6 + i*2
		rec.MaxDelta[i] = binary.LittleEndian.Uint16(buf[off : off+2])
	}
	return rec, nil
}

// Save writes rec to offset 0 of w in the fixed little-endian layout. The
// whole record is built in memory and written in one WriteAt call, so it
// is atomic with respect to any underlying medium that itself commits a
// single write atomically (e.g. one EEPROM page).
func Save(w io.WriterAt, rec Record) error {
	buf := make([]byte, RecordSize)
	binary.LittleEndian.PutUint16(buf[0:2], Magic)
	buf[2] = Version
	buf[3] = 0 // reserved
	binary.LittleEndian.PutUint16(buf[4:6], rec.TargetBaseline)
	for i := 0; i < NumKeys; i++ {
		off := 6 + i*2
		binary.LittleEndian.PutUint16(buf[off:off+2], rec.MaxDelta[i])
	}
	_, err := w.WriteAt(buf, 0)
	return err
}
