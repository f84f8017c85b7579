// Package model contains domain models passed between layers.
package model

// Term bounds accepted at the input boundary.
const (
	MaxTermInputs   = 10 // year1_term1 .. year5_term2
	MaxRoutingTerms = 3  // routing buckets: 1, 2, 3+
)

// StudentRecord is the per-request view of a student: static attributes plus
// an ordered, possibly sparse list of term grades. A nil grade means the term
// has no recorded value. Treat records as immutable; use WithTerm to derive a
// modified copy.
type StudentRecord struct {
	Faculty string     // faculty name, mapped leniently to a code
	Gender  string     // gender name, mapped leniently to a code
	GPAX    float64    // cumulative pre-enrollment GPA (0-4)
	CountF  int        // total number of F grades
	Terms   []*float64 // up to MaxTermInputs term grades, nil = missing
}

// Grade returns a pointer to v, convenient for building term lists.
func Grade(v float64) *float64 {
	return &v
}

// Grades builds a fully observed term list. Use nil entries in Terms
// directly when a gap is needed.
func Grades(vs ...float64) []*float64 {
	out := make([]*float64, len(vs))
	for i, v := range vs {
		out[i] = Grade(v)
	}
	return out
}

// CompletedTerms counts term inputs that carry a value. Every accepted
// input counts, including terms beyond the modelled eight.
func (r StudentRecord) CompletedTerms() int {
	n := 0
	for i, g := range r.Terms {
		if i >= MaxTermInputs {
			break
		}
		if g != nil {
			n++
		}
	}
	return n
}

// CurrentTerm is the completed-terms count clamped into [1, MaxRoutingTerms].
// It is both the derivation hint and the routing count for single-record
// predictions.
func (r StudentRecord) CurrentTerm() int {
	return ClampTerm(r.CompletedTerms())
}

// ClampTerm clamps a term count into [1, MaxRoutingTerms].
func ClampTerm(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxRoutingTerms {
		return MaxRoutingTerms
	}
	return n
}

// WithTerm returns a copy of r whose term at index i (0-based) is set to
// grade. The term list is extended with missing entries when needed.
func (r StudentRecord) WithTerm(i int, grade float64) StudentRecord {
	size := len(r.Terms)
	if i >= size {
		size = i + 1
	}
	terms := make([]*float64, size)
	for j, g := range r.Terms {
		if g != nil {
			v := *g
			terms[j] = &v
		}
	}
	terms[i] = Grade(grade)
	out := r
	out.Terms = terms
	return out
}
