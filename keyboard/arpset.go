package keyboard

import "github.com/corvidaudio/capsense-core/internal/clock"

// arpSet is the fixed-capacity-8 sorted note set behind Engine #2
// (spec.md §3). Always kept sorted ascending by pitch after every
// mutation; parallel arrays mirror the C-style layout the original
// firmware uses (notes / pressures / last_press_time).
type arpSet struct {
	notes         [arpSetCapacity]uint8
	pressures     [arpSetCapacity]uint16
	lastPressTime [arpSetCapacity]clock.Time
	count         int
}

// indexOf returns the index of pitch, or -1.
func (s *arpSet) indexOf(pitch uint8) int {
	for i := 0; i < s.count; i++ {
		if s.notes[i] == pitch {
			return i
		}
	}
	return -1
}

// insert adds pitch/value at now. If the set is already full it first
// drops the entry at index 0 (the lowest pitch); Engine2.NoteOn evicts the
// least recently pressed entry itself before calling insert, so it never
// calls insert on a full set. Returns the index the note ends up at and
// whether an eviction happened here.
func (s *arpSet) insert(pitch uint8, value uint16, now clock.Time) (newIndex int, evicted bool) {
	if s.count == arpSetCapacity {
		copy(s.notes[0:], s.notes[1:])
		copy(s.pressures[0:], s.pressures[1:])
		copy(s.lastPressTime[0:], s.lastPressTime[1:])
		s.count--
		evicted = true
	}

	idx := s.count
	for idx > 0 && s.notes[idx-1] > pitch {
		idx--
	}
	copy(s.notes[idx+1:s.count+1], s.notes[idx:s.count])
	copy(s.pressures[idx+1:s.count+1], s.pressures[idx:s.count])
	copy(s.lastPressTime[idx+1:s.count+1], s.lastPressTime[idx:s.count])
	s.notes[idx] = pitch
	s.pressures[idx] = value
	s.lastPressTime[idx] = now
	s.count++

	return idx, evicted
}

// remove deletes the entry at index i, keeping the array sorted and
// contiguous.
func (s *arpSet) remove(i int) {
	copy(s.notes[i:], s.notes[i+1:s.count])
	copy(s.pressures[i:], s.pressures[i+1:s.count])
	copy(s.lastPressTime[i:], s.lastPressTime[i+1:s.count])
	s.count--
}

// updateValue sets the pressure of the entry at pitch, if present.
func (s *arpSet) updateValue(pitch uint8, value uint16) bool {
	i := s.indexOf(pitch)
	if i < 0 {
		return false
	}
	s.pressures[i] = value
	return true
}
