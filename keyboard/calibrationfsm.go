package keyboard

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/corvidaudio/capsense-core/calibration"
	"github.com/corvidaudio/capsense-core/internal/clock"
	"github.com/corvidaudio/capsense-core/touch"
)

// calMinDeltaWarn is the measured-delta floor below which a key is flagged
// as weak during the per-key measurement phase (spec.md §4.D, §7: "warn if
// < 300").
const calMinDeltaWarn = 300

type calState int

const (
	calPurgeHold calState = iota
	calInit
	calTuneSensitivity
	calApplyingConfig
	calWaitReleaseAfterApply
	calWaitReleaseAfterTune
	calPrepareKey
	calMeasureKey
	calWaitReleaseAfterMeasure
	calFinalConfirmation
	calSaveExit
	calFinished
)

// Calibrator drives the interactive per-key sensitivity/delta calibration
// routine. It owns no hardware directly: it reads FrontEnd's live baseline/
// filtered data, drives the UI through UIEffectSink, and persists the
// result through calibration.Save. Grounded state-by-state on
// original_source/src/KeyboardCalibrator.cpp::run().
type Calibrator struct {
	Debug bool

	state calState

	hold, mode, octPlus, octMinus buttonState

	sensitivityIndex int
	helpDisplayed    bool
	recapDisplayed   bool

	referenceBaselines [touch.NumKeys]uint16
	measuredDeltas     [touch.NumKeys]uint16
	targetBaseline     uint16

	currentKey      int
	currentMaxDelta uint16
	lastPrintedMax  uint16
	lastPrintTime   clock.Time

	outputsZeroed bool
	aborted       bool

	front *touch.FrontEnd
	out   AnalogOutput
	leds  UIEffectSink
	store io.WriterAt
}

// NewCalibrator constructs a Calibrator bound to the given front-end,
// analog output (zeroed for safety during the whole routine), LED sink, and
// non-volatile store.
func NewCalibrator(front *touch.FrontEnd, out AnalogOutput, leds UIEffectSink, store io.WriterAt) *Calibrator {
	return &Calibrator{
		front: front,
		out:   out,
		leds:  leds,
		store: store,
	}
}

// Done reports whether the routine has finished (saved or aborted).
func (c *Calibrator) Done() bool { return c.state == calFinished }

// Aborted reports whether the routine exited early due to a front-end
// failure, in which case no record was written.
func (c *Calibrator) Aborted() bool { return c.aborted }

// Step advances the calibration state machine by one tick. raw carries the
// four calibration buttons' current physical levels; the front-end is
// polled by the caller beforehand, same as every other tick in the fixed
// tick order (spec.md §5). Step returns true once the routine is finished.
func (c *Calibrator) Step(now clock.Time, raw RawInputs) bool {
	if c.state == calFinished {
		return true
	}

	if !c.outputsZeroed {
		c.out.SetVoltage(0, 0)
		c.out.SetVoltage(1, 0)
		c.out.SetGate(false)
		c.outputsZeroed = true
	}

	holdRose, holdFell := c.hold.debounce(now, raw.HoldPressed)
	modeRose, modeFell := c.mode.debounce(now, raw.ModePressed)
	octPlusRose, _ := c.octPlus.debounce(now, raw.OctPlusPressed)
	octMinusRose, _ := c.octMinus.debounce(now, raw.OctMinusPressed)

	switch c.state {
	case calPurgeHold:
		// Safety gate: don't start until the button that requested
		// calibration mode has been released. Checked against the raw
		// level, not the debounced one, since the button may already have
		// been held for a while before this routine started running.
		if !raw.HoldPressed {
			c.logf("entering calibration")
			c.state = calInit
		}

	case calInit:
		c.leds.RequestEffect(EffectChase)
		target := touch.SensitivityPresets[c.sensitivityIndex]
		if err := c.front.RunAutoconfiguration(target); err != nil {
			c.logf("autoconfiguration failed: %v", err)
			c.aborted = true
			c.state = calFinished
			return true
		}
		c.leds.RequestEffect(EffectCountdown)
		c.helpDisplayed = false
		c.state = calTuneSensitivity

	case calTuneSensitivity:
		if !c.helpDisplayed {
			c.logf("tuning sensitivity: OCT+/- select preset, MODE applies it, HOLD confirms")
			c.leds.DisplayBargraph((c.sensitivityIndex + 1) * 100 / len(touch.SensitivityPresets))
			c.helpDisplayed = true
		}
		if now.Since(c.lastPrintTime) > 500 {
			c.logf("preset %q target=%d", touch.SensitivityPresetNames[c.sensitivityIndex], touch.SensitivityPresets[c.sensitivityIndex])
			c.logf("baseline table: %s", FormatBaselineTable(c.front.BaselineTable()))
			c.lastPrintTime = now
		}

		if octPlusRose && c.sensitivityIndex < len(touch.SensitivityPresets)-1 {
			c.sensitivityIndex++
			c.leds.DisplayBargraph((c.sensitivityIndex + 1) * 100 / len(touch.SensitivityPresets))
		}
		if octMinusRose && c.sensitivityIndex > 0 {
			c.sensitivityIndex--
			c.leds.DisplayBargraph((c.sensitivityIndex + 1) * 100 / len(touch.SensitivityPresets))
		}
		if modeRose {
			c.state = calApplyingConfig
		}
		if holdRose {
			c.referenceBaselines = c.front.BaselineTable()
			c.targetBaseline = touch.SensitivityPresets[c.sensitivityIndex]
			c.logf("sensitivity confirmed, target=%d", c.targetBaseline)
			c.state = calWaitReleaseAfterTune
		}

	case calApplyingConfig:
		target := touch.SensitivityPresets[c.sensitivityIndex]
		c.logf("applying preset, target=%d", target)
		c.leds.RequestEffect(EffectValidate)
		if err := c.front.RunAutoconfiguration(target); err != nil {
			c.logf("autoconfiguration failed: %v", err)
			c.aborted = true
			c.state = calFinished
			return true
		}
		c.state = calWaitReleaseAfterApply

	case calWaitReleaseAfterApply:
		if modeFell {
			c.helpDisplayed = false
			c.state = calTuneSensitivity
		}

	case calWaitReleaseAfterTune:
		c.leds.RequestEffect(EffectValidate)
		if holdFell {
			c.currentKey = 0
			c.state = calPrepareKey
		}

	case calPrepareKey:
		if c.currentKey == 0 {
			c.logf("measuring per-key delta-max")
		}
		c.currentMaxDelta = 0
		c.lastPrintedMax = 0
		c.logf("key %d: press fully, then confirm with HOLD", c.currentKey)
		c.leds.DisplayBargraph(0)
		c.state = calMeasureKey

	case calMeasureKey:
		filtered := c.front.Filtered[c.currentKey]
		ref := c.referenceBaselines[c.currentKey]
		var delta uint16
		if ref > filtered {
			delta = ref - filtered
		}
		if delta > c.currentMaxDelta {
			c.currentMaxDelta = delta
			if c.currentMaxDelta > c.lastPrintedMax+20 {
				c.logf("  new max: %d", c.currentMaxDelta)
				c.lastPrintedMax = c.currentMaxDelta
			}
		}
		if holdRose {
			c.measuredDeltas[c.currentKey] = c.currentMaxDelta
			c.logf("key %d validated, delta_max=%d", c.currentKey, c.currentMaxDelta)
			if c.currentMaxDelta < calMinDeltaWarn {
				c.logf("  warning: delta_max is low")
			}
			c.state = calWaitReleaseAfterMeasure
		}

	case calWaitReleaseAfterMeasure:
		c.leds.RequestEffect(EffectValidate)
		if holdFell {
			c.currentKey++
			if c.currentKey < touch.NumKeys {
				c.state = calPrepareKey
			} else {
				c.state = calFinalConfirmation
			}
		}

	case calFinalConfirmation:
		if !c.recapDisplayed {
			c.logf("final confirmation: %q target=%d", touch.SensitivityPresetNames[c.sensitivityIndex], c.targetBaseline)
			c.logf("measured deltas: %s", formatDeltaRecap(c.measuredDeltas))
			c.logf("HOLD to save and exit, MODE to restart calibration")
			c.recapDisplayed = true
		}
		if holdRose {
			c.state = calSaveExit
		}
		if modeRose {
			c.recapDisplayed = false
			c.sensitivityIndex = 0
			c.state = calInit
		}

	case calSaveExit:
		c.leds.RequestEffect(EffectValidate)
		rec := calibration.Record{
			Version:        calibration.Version,
			TargetBaseline: c.targetBaseline,
			MaxDelta:       c.measuredDeltas,
		}
		if err := calibration.Save(c.store, rec); err != nil {
			c.logf("save failed: %v", err)
		} else {
			c.logf("calibration saved")
		}
		c.state = calFinished
		return true
	}

	return c.state == calFinished
}

func (c *Calibrator) logf(format string, a ...interface{}) {
	if c.Debug {
		log.Printf("calibration: "+format, a...)
	}
}

// FormatBaselineTable renders a baseline snapshot as a compact diagnostic
// line, used by the calibration UI's live readout.
func FormatBaselineTable(baseline [touch.NumKeys]uint16) string {
	parts := make([]string, touch.NumKeys)
	for i, v := range baseline {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ",")
}

func formatDeltaRecap(deltas [touch.NumKeys]uint16) string {
	parts := make([]string, touch.NumKeys)
	for i, v := range deltas {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ",")
}
