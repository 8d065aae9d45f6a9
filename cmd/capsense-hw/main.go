// Command capsense-hw wires the hwio peripheral adapters to keyboard.Loop
// for a real board: open the I²C bus, request the GPIO lines, load the
// non-volatile calibration record, and run the fixed per-tick order at a
// fixed rate until interrupted.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/corvidaudio/capsense-core/calibration"
	"github.com/corvidaudio/capsense-core/hwio"
	"github.com/corvidaudio/capsense-core/internal/clock"
	"github.com/corvidaudio/capsense-core/keyboard"
	"github.com/corvidaudio/capsense-core/touch"
)

func main() {
	i2cBus := flag.String("i2c-bus", "", "I²C bus name (empty: periph's default)")
	gpioChip := flag.String("gpio-chip", "/dev/gpiochip0", "GPIO character device for buttons/rotary")
	holdPin := flag.Int("pin-hold", 17, "HOLD button GPIO offset")
	modePin := flag.Int("pin-mode", 27, "MODE button GPIO offset")
	octPlusPin := flag.Int("pin-oct-plus", 22, "OCT+ button GPIO offset")
	octMinusPin := flag.Int("pin-oct-minus", 23, "OCT- button GPIO offset")
	rotaryAPin := flag.Int("pin-rotary-a", 24, "rotary phase A GPIO offset")
	rotaryBPin := flag.Int("pin-rotary-b", 25, "rotary phase B GPIO offset")
	gatePinName := flag.String("pin-gate", "GPIO5", "gate output pin name")
	trigPinName := flag.String("pin-trig", "GPIO6", "trigger output pin name")
	calPath := flag.String("calibration", "/var/lib/capsense/calibration.bin", "calibration record file path")
	tickMs := flag.Int("tick-ms", 5, "milliseconds per tick")
	debug := flag.Bool("debug", false, "enable diagnostic logging")
	flag.Parse()

	if _, err := host.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "capsense-hw: host init: %v\n", err)
		os.Exit(1)
	}

	bus, err := i2creg.Open(*i2cBus)
	if err != nil {
		fmt.Fprintf(os.Stderr, "capsense-hw: open i2c bus: %v\n", err)
		os.Exit(1)
	}
	defer bus.Close()

	gatePin := gpioreg.ByName(*gatePinName)
	trigPin := gpioreg.ByName(*trigPinName)
	if gatePin == nil || trigPin == nil {
		fmt.Fprintf(os.Stderr, "capsense-hw: gate/trigger pin not found (gate=%q trig=%q)\n", *gatePinName, *trigPinName)
		os.Exit(1)
	}

	dac, err := hwio.NewDAC(bus, gatePin, trigPin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "capsense-hw: init DAC: %v\n", err)
		os.Exit(1)
	}

	pot := hwio.NewSensPot(bus)
	controls, err := hwio.NewControlSurface(hwio.ControlPins{
		Chip:     *gpioChip,
		Hold:     *holdPin,
		Mode:     *modePin,
		OctPlus:  *octPlusPin,
		OctMinus: *octMinusPin,
		RotaryA:  *rotaryAPin,
		RotaryB:  *rotaryBPin,
	}, pot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "capsense-hw: init control surface: %v\n", err)
		os.Exit(1)
	}
	defer controls.Close()

	front := touch.NewFrontEnd(bus)
	front.Debug = *debug
	rec := loadOrDefaultRecord(*calPath)
	if err := front.RunAutoconfiguration(rec.TargetBaseline); err != nil {
		fmt.Fprintf(os.Stderr, "capsense-hw: initial autoconfiguration: %v\n", err)
		os.Exit(1)
	}

	// If HOLD is already pressed at power-on, the calibration routine runs
	// to completion before normal play begins (spec.md §6, §4.D).
	bootRaw, err := controls.Read()
	if err != nil {
		fmt.Fprintf(os.Stderr, "capsense-hw: read controls at boot: %v\n", err)
		os.Exit(1)
	}
	if bootRaw.HoldPressed {
		if err := runCalibration(front, controls, dac, *calPath, *debug, *tickMs); err != nil {
			fmt.Fprintf(os.Stderr, "capsense-hw: calibration: %v\n", err)
		}
		// Reload the just-saved record so the measured max-delta values and
		// target baseline take effect immediately, without a reboot.
		rec = loadOrDefaultRecord(*calPath)
		if err := front.RunAutoconfiguration(rec.TargetBaseline); err != nil {
			fmt.Fprintf(os.Stderr, "capsense-hw: post-calibration autoconfiguration: %v\n", err)
			os.Exit(1)
		}
	}

	loop := keyboard.NewLoop(front, rec, dac, keyboard.NopEffectSink{})
	loop.Debug = *debug

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	src := clock.NewReal()
	ticker := time.NewTicker(time.Duration(*tickMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			dac.SetGate(false)
			return
		case <-ticker.C:
			raw, err := controls.Read()
			if err != nil {
				fmt.Fprintf(os.Stderr, "capsense-hw: read controls: %v\n", err)
				continue
			}
			if err := loop.Tick(src.Now(), raw); err != nil {
				fmt.Fprintf(os.Stderr, "capsense-hw: tick: %v\n", err)
				continue
			}
		}
	}
}

// runCalibration drives keyboard.Calibrator to completion at the fixed tick
// rate, reading controls and polling the touch front-end itself since the
// calibration routine replaces the normal play loop entirely (spec.md §5).
// The measured record is persisted to calPath as the routine's SaveExit
// state runs.
func runCalibration(front *touch.FrontEnd, controls *hwio.ControlSurface, out keyboard.AnalogOutput, calPath string, debug bool, tickMs int) error {
	store, err := os.OpenFile(calPath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("open calibration store: %w", err)
	}
	defer store.Close()

	cal := keyboard.NewCalibrator(front, out, keyboard.NopEffectSink{}, store)
	cal.Debug = debug

	src := clock.NewReal()
	ticker := time.NewTicker(time.Duration(tickMs) * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		raw, err := controls.Read()
		if err != nil {
			continue
		}
		if err := front.Poll(); err != nil {
			continue
		}
		if cal.Step(src.Now(), raw) {
			break
		}
	}

	if cal.Aborted() {
		return fmt.Errorf("calibration aborted")
	}
	return nil
}

func loadOrDefaultRecord(path string) calibration.Record {
	f, err := os.Open(path)
	if err != nil {
		return calibration.DefaultRecord()
	}
	defer f.Close()

	rec, err := calibration.Load(f)
	if err != nil {
		return calibration.DefaultRecord()
	}
	return rec
}
