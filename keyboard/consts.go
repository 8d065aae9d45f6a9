package keyboard

// Pipeline constants (spec.md §4.B).
const (
	numKeys         = 24
	historyLen      = 4   // W
	slewPerTick     = 150 // counts per tick
	deadzoneMax     = 250
	pressMinFloor   = 20
	releaseMinFloor = 10
)

// Calibration-derived threshold factors.
const (
	pressThresholdFactor   = 0.15
	releaseThresholdFactor = 0.08
)

// keyPitchOffset maps a pipeline key index (0..23) onto the MIDI-style
// pitch number the engines operate on: key 0 is pitch 36.
const keyPitchOffset = 36

// Engine #1 constants (spec.md §4.F).
const (
	noteStackCapacity = 16
	centerVoltage     = 5.0
	refMIDI           = 47
	voltsPerOctave    = 1.0
	octaveOffsetMin   = -2
	octaveOffsetMax   = 2
	auxAlphaMin       = 0.001
	auxAlphaMax       = 0.9
	glideMsMin        = 0
	glideMsMax        = 1000
)

// Engine #2 constants (spec.md §4.G).
const (
	arpSetCapacity = 8
	bpmMin         = 5
	bpmMax         = 900
	gateLengthMin  = 0.1
	gateLengthMax  = 0.9
	doubleTapMs    = 250
)

// Velocity-scaled rotary step constants (spec.md §4.H).
const (
	glideStepMin   = 0.5
	glideStepMax   = 50
	glideStepGamma = 2.2

	bpmStepMin   = 0.5
	bpmStepMax   = 35
	bpmStepGamma = 1.8
)

// Input dispatcher constants (spec.md §4.E).
const (
	debounceMs        = 30
	longPressHoldMs   = 1000
	longPressOctMs    = 500
	rotaryDebounceMs  = 2
	rotaryWindowMs    = 80 // W
	rotaryVMax        = 20
	rotaryDecayFactor = 0.9
	sensPotAlpha      = 0.05
	sensPotDeadzone   = 4
)
