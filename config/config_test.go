package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/corvidaudio/capsense-core/keyboard"
)

func TestLoadJSONAppliesAllFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "defaults.json")
	content := `{
  "sensitivity_preset_index": 2,
  "arp_bpm": 140,
  "arp_gate_length": 0.3,
  "arp_pattern": "diverge",
  "glide_ms": 80,
  "aux_alpha": 0.05
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write defaults: %v", err)
	}

	sel := keyboard.NewModeSelector()
	d, err := LoadJSON(path, sel)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if d.SensitivityPresetIndex != 2 {
		t.Fatalf("SensitivityPresetIndex = %d, want 2", d.SensitivityPresetIndex)
	}
	if sel.Engine2().BPM() != 140 {
		t.Fatalf("Engine2 BPM = %v, want 140", sel.Engine2().BPM())
	}
	if sel.Engine2().GateLength() != 0.3 {
		t.Fatalf("Engine2 GateLength = %v, want 0.3", sel.Engine2().GateLength())
	}
	if sel.Engine2().Pattern() != keyboard.PatternDiverge {
		t.Fatalf("Engine2 Pattern = %v, want PatternDiverge", sel.Engine2().Pattern())
	}
	if sel.Engine1().AuxAlpha() != 0.05 {
		t.Fatalf("Engine1 AuxAlpha = %v, want 0.05", sel.Engine1().AuxAlpha())
	}
}

func TestApplyFileLeavesUnsetFieldsAtFactoryDefault(t *testing.T) {
	sel := keyboard.NewModeSelector()
	beforeAlpha := sel.Engine1().AuxAlpha()
	beforeBPM := sel.Engine2().BPM()

	d, err := ApplyFile(sel, &File{})
	if err != nil {
		t.Fatalf("ApplyFile: %v", err)
	}
	if d.SensitivityPresetIndex != 0 {
		t.Fatalf("SensitivityPresetIndex = %d, want 0 (factory default)", d.SensitivityPresetIndex)
	}
	if sel.Engine1().AuxAlpha() != beforeAlpha {
		t.Fatalf("AuxAlpha changed despite an empty file")
	}
	if sel.Engine2().BPM() != beforeBPM {
		t.Fatalf("BPM changed despite an empty file")
	}
}

func TestApplyFileRejectsOutOfRangeSensitivityIndex(t *testing.T) {
	sel := keyboard.NewModeSelector()
	bad := 99
	_, err := ApplyFile(sel, &File{SensitivityPresetIndex: &bad})
	if err == nil {
		t.Fatalf("expected an error for an out-of-range sensitivity_preset_index")
	}
}

func TestApplyFileRejectsUnknownPattern(t *testing.T) {
	sel := keyboard.NewModeSelector()
	bad := "not_a_real_pattern"
	_, err := ApplyFile(sel, &File{ArpPattern: &bad})
	if err == nil {
		t.Fatalf("expected an error for an unknown arp_pattern")
	}
}

func TestApplyFileRejectsNonPositiveBPM(t *testing.T) {
	sel := keyboard.NewModeSelector()
	bad := float32(0)
	_, err := ApplyFile(sel, &File{ArpBPM: &bad})
	if err == nil {
		t.Fatalf("expected an error for a non-positive arp_bpm")
	}
}

func TestApplyFileNilSelectorErrors(t *testing.T) {
	if _, err := ApplyFile(nil, &File{}); err == nil {
		t.Fatalf("expected an error for a nil mode selector")
	}
}
