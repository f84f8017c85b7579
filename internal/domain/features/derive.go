package features

import "math"

// Thresholds used by the derived flags.
const (
	LowGPA        = 2.5
	VeryLowGPA    = 2.0
	CriticalGPA   = 1.75
	TermLow       = 2.5
	TermExcellent = 3.5
	EarlyWarning  = 2.0
	TrendBand     = 0.1
	StabilityEps  = 0.1
	RecoveredMin  = 2.0
	RecoveredTo   = 2.5
)

// performance_category bin edges, lowest edge inclusive.
var performanceEdges = [...]float64{0, 2.0, 2.5, 3.0, 4.1}

// Vector is the full set of derived indicators for one student. Every
// classifier variant projects a subset of it; see Fields for the names.
type Vector struct {
	OldGPA      float64
	GenderCode  int
	FacultyCode int
	CountF      int
	CountWIU    int

	Terms   [SlotCount]float64 // missing terms read as 0
	Missing [SlotCount]bool

	Avg               float64
	Min               float64
	Max               float64
	Range             float64
	Std               float64
	ChangeFromStart   float64
	ImprovementFromHS float64

	HasF       bool
	MultipleF  bool
	ExcessiveF bool
	HasWIU     bool

	LowGPA      bool
	VeryLowGPA  bool
	CriticalGPA bool

	EarlyWarning  bool
	TermLow       [SlotCount]bool
	TermExcellent [SlotCount]bool

	Declining           bool
	Improving           bool
	DeclineLastTerm     bool
	ConsecutiveDecline2 bool
	ImprovingTerm4      bool
	ImprovingTerm5      bool
	LongDecline3Terms   bool

	TermsWithData int
	LatestGPA     float64
	Stability     float64
	HasRecovered  bool

	PerformanceCategory int
	RiskScore           int
	CurrentTerm         int
}

// Derive computes the indicator vector for s and t. currentTerm is passed
// through unchanged as the current_term feature.
func Derive(s Static, t Trajectory, currentTerm int) Vector {
	v := Vector{
		OldGPA:      s.GPAX,
		GenderCode:  s.GenderCode,
		FacultyCode: s.FacultyCode,
		CountF:      s.CountF,
		CurrentTerm: currentTerm,
	}

	for i, slot := range t {
		v.Terms[i] = slot.Filled()
		v.Missing[i] = !slot.Present
		v.TermLow[i] = v.Terms[i] < TermLow
		v.TermExcellent[i] = v.Terms[i] >= TermExcellent
	}

	obs := t.observed()
	v.Avg = s.GPAX
	if len(obs) > 0 {
		v.Avg = mean(obs)
		v.Min, v.Max = minMax(obs)
	}
	v.Range = v.Max - v.Min
	if len(obs) > 1 {
		v.Std = stddev(obs, v.Avg)
		v.ChangeFromStart = obs[len(obs)-1] - obs[0]
		v.DeclineLastTerm = obs[len(obs)-1] < obs[len(obs)-2]
	}
	v.ImprovementFromHS = v.Avg - s.GPAX

	v.HasF = s.CountF > 0
	v.MultipleF = s.CountF >= 2
	v.ExcessiveF = s.CountF >= 3

	v.LowGPA = v.Avg < LowGPA
	v.VeryLowGPA = v.Avg < VeryLowGPA
	v.CriticalGPA = v.Avg < CriticalGPA

	tv := v.Terms
	v.EarlyWarning = tv[0] < EarlyWarning
	v.Declining = v.ChangeFromStart < -TrendBand
	v.Improving = v.ChangeFromStart > TrendBand
	v.ConsecutiveDecline2 = tv[1] < tv[0] && tv[2] < tv[1]
	v.ImprovingTerm4 = tv[3] > tv[2] && tv[2] > 0
	v.ImprovingTerm5 = tv[4] > tv[3] && tv[3] > 0
	v.LongDecline3Terms = tv[3] < tv[2] && tv[4] < tv[3] && tv[5] < tv[4]

	for _, g := range tv {
		if g > 0 {
			v.TermsWithData++
			v.LatestGPA = g
		}
	}

	v.Stability = 1 / (v.Std + StabilityEps)
	v.HasRecovered = v.Min < RecoveredMin && v.LatestGPA >= RecoveredTo
	v.PerformanceCategory = performanceCategory(v.Avg)
	v.RiskScore = 2*b2i(v.HasF) + 3*b2i(v.VeryLowGPA) + 2*b2i(v.Declining)
	return v
}

// performanceCategory bins avg into 0..3. Values outside the edges map to 0.
func performanceCategory(avg float64) int {
	e := performanceEdges
	if math.IsNaN(avg) || avg < e[0] || avg > e[len(e)-1] {
		return 0
	}
	for i := 1; i < len(e); i++ {
		if avg <= e[i] {
			return i - 1
		}
	}
	return 0
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func minMax(xs []float64) (lo, hi float64) {
	lo, hi = xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

// stddev is the population standard deviation.
func stddev(xs []float64, mu float64) float64 {
	var ss float64
	for _, x := range xs {
		d := x - mu
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
