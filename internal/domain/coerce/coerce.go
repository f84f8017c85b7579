// Package coerce holds the lenient coercion policy applied to caller input.
//
// Nothing here returns an error. Unknown categories and malformed numbers
// map to a default value and the result records that the fallback was taken,
// so callers and tests can tell a real zero from a substituted one.
package coerce

import (
	"encoding/json"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Result is a coerced value plus whether the default was substituted.
type Result[T any] struct {
	Value    T
	Fallback bool
}

// Faculty codes as the classifiers were trained with.
const (
	FacultyEducation = iota
	FacultyScience
	FacultyManagement
	FacultyHumanities
	FacultyIndustrialTech
	FacultyAgriculturalTech
	FacultyOther
)

// Gender codes.
const (
	GenderMale = iota
	GenderFemale
)

var faculties = index(map[string]int{
	"คณะครุศาสตร์":                   FacultyEducation,
	"คณะวิทยาศาสตร์และเทคโนโลยี":     FacultyScience,
	"คณะวิทยาการจัดการ":              FacultyManagement,
	"คณะมนุษยศาสตร์และสังคมศาสตร์":   FacultyHumanities,
	"คณะเทคโนโลยีอุตสาหกรรม":         FacultyIndustrialTech,
	"คณะเทคโนโลยีการเกษตร":           FacultyAgriculturalTech,
	"อื่นๆ":                          FacultyOther,
})

var genders = index(map[string]int{
	"ชาย":  GenderMale,
	"หญิง": GenderFemale,
})

// key canonicalises a category label: NFC, trimmed, case-folded.
func key(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

func index(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[key(k)] = v
	}
	return out
}

// Faculty maps a faculty name to its code; unknown names map to 0.
func Faculty(raw string) Result[int] {
	return lookup(faculties, raw)
}

// Gender maps a gender name to its code; unknown names map to 0.
func Gender(raw string) Result[int] {
	return lookup(genders, raw)
}

func lookup(m map[string]int, raw string) Result[int] {
	if v, ok := m[key(raw)]; ok {
		return Result[int]{Value: v}
	}
	return Result[int]{Value: 0, Fallback: true}
}

// FacultyNames returns the known faculty labels keyed by code.
func FacultyNames() map[int]string {
	return map[int]string{
		FacultyEducation:        "คณะครุศาสตร์",
		FacultyScience:          "คณะวิทยาศาสตร์และเทคโนโลยี",
		FacultyManagement:       "คณะวิทยาการจัดการ",
		FacultyHumanities:       "คณะมนุษยศาสตร์และสังคมศาสตร์",
		FacultyIndustrialTech:   "คณะเทคโนโลยีอุตสาหกรรม",
		FacultyAgriculturalTech: "คณะเทคโนโลยีการเกษตร",
		FacultyOther:            "อื่นๆ",
	}
}

// Number coerces an arbitrary decoded value to a finite float64.
// Numbers pass through, booleans become 1/0, and anything else (strings,
// nil, NaN, infinities, composites) falls back to 0.
func Number(v any) Result[float64] {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case bool:
		if x {
			f = 1
		}
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return Result[float64]{Fallback: true}
		}
		f = n
	default:
		return Result[float64]{Fallback: true}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Result[float64]{Fallback: true}
	}
	return Result[float64]{Value: f}
}
