package features

import (
	"fmt"

	"github.com/okian/dropout/internal/domain/coerce"
)

// Field is a named, typed accessor into a Vector. Names match the feature
// names the classifiers were trained with.
type Field struct {
	Name string
	get  func(*Vector) float64
}

// Of reads the field from v.
func (f Field) Of(v *Vector) float64 {
	return f.get(v)
}

func num(name string, get func(*Vector) float64) Field {
	return Field{Name: name, get: get}
}

func flag(name string, get func(*Vector) bool) Field {
	return Field{Name: name, get: func(v *Vector) float64 { return float64(b2i(get(v))) }}
}

func count(name string, get func(*Vector) int) Field {
	return Field{Name: name, get: func(v *Vector) float64 { return float64(get(v)) }}
}

// Term slot accessors, 1-based.
func TermField(n int) Field {
	return num(fmt.Sprintf("TERM%d", n), func(v *Vector) float64 { return v.Terms[n-1] })
}

func MissingField(n int) Field {
	return flag(fmt.Sprintf("TERM%d_missing", n), func(v *Vector) bool { return v.Missing[n-1] })
}

func TermLowField(n int) Field {
	return flag(fmt.Sprintf("term%d_low", n), func(v *Vector) bool { return v.TermLow[n-1] })
}

func TermExcellentField(n int) Field {
	return flag(fmt.Sprintf("term%d_excellent", n), func(v *Vector) bool { return v.TermExcellent[n-1] })
}

// Named fields.
var (
	OldGPA      = num("OLD_GPA_M6", func(v *Vector) float64 { return v.OldGPA })
	GenderCode  = count("GENDER_ENCODED", func(v *Vector) int { return v.GenderCode })
	FacultyCode = count("FAC_ENCODED", func(v *Vector) int { return v.FacultyCode })
	CountF      = count("COUNT_F", func(v *Vector) int { return v.CountF })
	CountWIU    = count("COUNT_WIU", func(v *Vector) int { return v.CountWIU })

	Avg               = num("avg_gpa_up_to_now", func(v *Vector) float64 { return v.Avg })
	Min               = num("min_gpa_up_to_now", func(v *Vector) float64 { return v.Min })
	Max               = num("max_gpa_up_to_now", func(v *Vector) float64 { return v.Max })
	Range             = num("gpa_range", func(v *Vector) float64 { return v.Range })
	Std               = num("gpa_std", func(v *Vector) float64 { return v.Std })
	ChangeFromStart   = num("gpa_change_from_start", func(v *Vector) float64 { return v.ChangeFromStart })
	ImprovementFromHS = num("improvement_from_hs", func(v *Vector) float64 { return v.ImprovementFromHS })

	HasF       = flag("has_F", func(v *Vector) bool { return v.HasF })
	MultipleF  = flag("multiple_F", func(v *Vector) bool { return v.MultipleF })
	ExcessiveF = flag("excessive_F", func(v *Vector) bool { return v.ExcessiveF })
	HasWIU     = flag("has_WIU", func(v *Vector) bool { return v.HasWIU })

	Low      = flag("low_gpa", func(v *Vector) bool { return v.LowGPA })
	VeryLow  = flag("very_low_gpa", func(v *Vector) bool { return v.VeryLowGPA })
	Critical = flag("critical_gpa", func(v *Vector) bool { return v.CriticalGPA })

	Warning             = flag("early_warning", func(v *Vector) bool { return v.EarlyWarning })
	Declining           = flag("declining_trend", func(v *Vector) bool { return v.Declining })
	Improving           = flag("improving_trend", func(v *Vector) bool { return v.Improving })
	DeclineLastTerm     = flag("decline_last_term", func(v *Vector) bool { return v.DeclineLastTerm })
	ConsecutiveDecline2 = flag("consecutive_decline_2", func(v *Vector) bool { return v.ConsecutiveDecline2 })
	ImprovingTerm4      = flag("improving_term4", func(v *Vector) bool { return v.ImprovingTerm4 })
	ImprovingTerm5      = flag("improving_term5", func(v *Vector) bool { return v.ImprovingTerm5 })
	LongDecline3Terms   = flag("long_decline_3terms", func(v *Vector) bool { return v.LongDecline3Terms })

	TermsWithData = count("num_terms_with_data", func(v *Vector) int { return v.TermsWithData })
	LatestGPA     = num("latest_available_gpa", func(v *Vector) float64 { return v.LatestGPA })
	Stability     = num("overall_gpa_stability", func(v *Vector) float64 { return v.Stability })
	HasRecovered  = flag("has_recovered", func(v *Vector) bool { return v.HasRecovered })

	PerformanceCategory = count("performance_category", func(v *Vector) int { return v.PerformanceCategory })
	RiskScore           = count("risk_score", func(v *Vector) int { return v.RiskScore })
	CurrentTerm         = count("current_term", func(v *Vector) int { return v.CurrentTerm })
)

var catalogue = buildCatalogue()

func buildCatalogue() []Field {
	out := make([]Field, 0, 72)
	for n := 1; n <= SlotCount; n++ {
		out = append(out, TermField(n))
	}
	for n := 1; n <= SlotCount; n++ {
		out = append(out, MissingField(n))
	}
	out = append(out,
		OldGPA, GenderCode, FacultyCode, CountF, CountWIU,
		Avg, Min, Max, Range, Std, ChangeFromStart, ImprovementFromHS,
		HasF, MultipleF, ExcessiveF, HasWIU,
		Low, VeryLow, Critical,
		Warning, TermLowField(1), TermExcellentField(1), TermLowField(2),
		Declining, Improving, DeclineLastTerm, ConsecutiveDecline2, TermLowField(3),
		TermsWithData, LatestGPA,
		ImprovingTerm4, ImprovingTerm5, LongDecline3Terms, Stability, HasRecovered,
		PerformanceCategory, RiskScore, CurrentTerm,
	)
	for n := 4; n <= SlotCount; n++ {
		out = append(out, TermLowField(n), TermExcellentField(n))
	}
	return out
}

// Fields lists every field a Vector exposes, in a stable order.
func Fields() []Field {
	out := make([]Field, len(catalogue))
	copy(out, catalogue)
	return out
}

// FieldByName looks up a catalogue field.
func FieldByName(name string) (Field, bool) {
	for _, f := range catalogue {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Map renders the vector as name -> value, the shape used on the wire.
func (v *Vector) Map() map[string]float64 {
	out := make(map[string]float64, len(catalogue))
	for _, f := range catalogue {
		out[f.Name] = f.get(v)
	}
	return out
}

// Value implements the projection source contract for a derived vector.
func (v *Vector) Value(f Field) float64 {
	return f.get(v)
}

// Raw is an already-engineered feature map supplied by a caller. Absent
// names read as 0 and values go through coerce.Number.
type Raw map[string]any

// Value implements the projection source contract for a raw map.
func (r Raw) Value(f Field) float64 {
	return coerce.Number(r[f.Name]).Value
}

// TermsWithData counts TERM1..TERM8 entries that coerce to a value > 0.
func (r Raw) TermsWithData() int {
	n := 0
	for i := 1; i <= SlotCount; i++ {
		if r.Value(TermField(i)) > 0 {
			n++
		}
	}
	return n
}
