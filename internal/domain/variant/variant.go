// Package variant selects which classifier serves a student and assembles
// that classifier's input vector.
package variant

import (
	"fmt"

	"github.com/okian/dropout/internal/domain/features"
)

// ID names a classifier variant.
type ID int

const (
	Term1 ID = iota + 1
	Term2
	Term3Plus
)

// All lists the variants in routing order.
var All = []ID{Term1, Term2, Term3Plus}

// String returns the wire name, which is also the model key.
func (id ID) String() string {
	switch id {
	case Term1:
		return "term1"
	case Term2:
		return "term2"
	case Term3Plus:
		return "term3"
	default:
		return fmt.Sprintf("variant(%d)", int(id))
	}
}

// Parse maps a wire name back to an ID.
func Parse(s string) (ID, error) {
	for _, id := range All {
		if id.String() == s {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown variant %q", s)
}

// Select routes a completed-terms count: 1 and 2 have their own variants,
// everything else (including 0) goes to Term3Plus.
func Select(terms int) ID {
	switch terms {
	case 1:
		return Term1
	case 2:
		return Term2
	default:
		return Term3Plus
	}
}

// Descriptor is the ordered input schema of one variant.
type Descriptor struct {
	ID     ID
	Fields []features.Field
}

// Names returns the declared feature names in order.
func (d Descriptor) Names() []string {
	out := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		out[i] = f.Name
	}
	return out
}

// Len is the classifier input width.
func (d Descriptor) Len() int { return len(d.Fields) }

// Source yields a value for a field. Both a derived *features.Vector and a
// caller supplied features.Raw satisfy it.
type Source interface {
	Value(features.Field) float64
}

// Project reads d's fields from src in declared order.
func Project(d Descriptor, src Source) []float64 {
	out := make([]float64, len(d.Fields))
	for i, f := range d.Fields {
		out[i] = src.Value(f)
	}
	return out
}

// Describe returns the descriptor for id. It panics on an unknown id.
func Describe(id ID) Descriptor {
	d, ok := descriptors[id]
	if !ok {
		panic(fmt.Sprintf("variant: no descriptor for %v", id))
	}
	return d
}
