// Package features normalises a student's grade history and derives the
// numeric indicators the dropout classifiers consume.
package features

import (
	"github.com/okian/dropout/internal/domain/coerce"
	"github.com/okian/dropout/internal/domain/model"
)

// SlotCount is the number of modelled terms.
const SlotCount = 8

// Slot is one normalised term: a grade or a missing marker.
type Slot struct {
	Value   float64
	Present bool
}

// Trajectory is a grade history padded or truncated to SlotCount terms.
type Trajectory [SlotCount]Slot

// Normalize right-pads grades with missing slots up to SlotCount and drops
// anything beyond it. A nil or empty input yields an all-missing trajectory.
func Normalize(grades []*float64) Trajectory {
	var t Trajectory
	for i := 0; i < SlotCount && i < len(grades); i++ {
		if g := grades[i]; g != nil {
			t[i] = Slot{Value: *g, Present: true}
		}
	}
	return t
}

// Filled returns the slot value with missing slots read as 0.
func (s Slot) Filled() float64 {
	if !s.Present {
		return 0
	}
	return s.Value
}

// observed returns present, non-zero values in slot order. A recorded 0.0
// is indistinguishable from a missing term here.
func (t Trajectory) observed() []float64 {
	out := make([]float64, 0, SlotCount)
	for _, s := range t {
		if s.Present && s.Value != 0 {
			out = append(out, s.Value)
		}
	}
	return out
}

// Static holds the encoded, time-invariant student attributes.
type Static struct {
	FacultyCode int
	GenderCode  int
	GPAX        float64
	CountF      int

	// Set when the corresponding label was unknown and mapped to 0.
	FacultyFallback bool
	GenderFallback  bool
}

// StaticOf encodes the static part of a record through the lenient
// coercion policy.
func StaticOf(rec model.StudentRecord) Static {
	fac := coerce.Faculty(rec.Faculty)
	gen := coerce.Gender(rec.Gender)
	return Static{
		FacultyCode:     fac.Value,
		GenderCode:      gen.Value,
		GPAX:            rec.GPAX,
		CountF:          rec.CountF,
		FacultyFallback: fac.Fallback,
		GenderFallback:  gen.Fallback,
	}
}

// FromRecord normalises and derives in one step.
func FromRecord(rec model.StudentRecord, currentTerm int) Vector {
	return Derive(StaticOf(rec), Normalize(rec.Terms), currentTerm)
}
