package variant

import f "github.com/okian/dropout/internal/domain/features"

var descriptors = map[ID]Descriptor{
	Term1:     {ID: Term1, Fields: term1()},
	Term2:     {ID: Term2, Fields: term2()},
	Term3Plus: {ID: Term3Plus, Fields: term3Plus()},
}

func static() []f.Field {
	return []f.Field{f.OldGPA, f.GenderCode, f.FacultyCode, f.CountF, f.CountWIU}
}

// terms interleaves TERMn with TERMn_missing for n in 1..upTo.
func terms(upTo int) []f.Field {
	out := make([]f.Field, 0, 2*upTo)
	for n := 1; n <= upTo; n++ {
		out = append(out, f.TermField(n), f.MissingField(n))
	}
	return out
}

func spread() []f.Field {
	return []f.Field{f.Avg, f.Min, f.Max, f.Range, f.Std}
}

func fails() []f.Field {
	return []f.Field{f.HasF, f.MultipleF, f.ExcessiveF, f.HasWIU}
}

func bands() []f.Field {
	return []f.Field{f.Low, f.VeryLow, f.Critical}
}

func firstTerm() []f.Field {
	return []f.Field{f.Warning, f.TermLowField(1), f.TermExcellentField(1)}
}

func trend() []f.Field {
	return []f.Field{f.TermLowField(2), f.Declining, f.Improving, f.DeclineLastTerm}
}

func tail() []f.Field {
	return []f.Field{f.PerformanceCategory, f.RiskScore, f.CurrentTerm}
}

func concat(groups ...[]f.Field) []f.Field {
	var out []f.Field
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func term1() []f.Field {
	return concat(
		static(), terms(1), spread(),
		[]f.Field{f.ImprovementFromHS},
		fails(), bands(), firstTerm(), tail(),
	)
}

func term2() []f.Field {
	return concat(
		static(), terms(2), spread(),
		[]f.Field{f.ChangeFromStart, f.ImprovementFromHS},
		fails(), bands(), firstTerm(), trend(), tail(),
	)
}

func term3Plus() []f.Field {
	late := make([]f.Field, 0, 10)
	for n := 4; n <= f.SlotCount; n++ {
		late = append(late, f.TermLowField(n), f.TermExcellentField(n))
	}
	return concat(
		static(), terms(f.SlotCount), spread(),
		[]f.Field{f.ChangeFromStart, f.ImprovementFromHS},
		fails(), bands(), firstTerm(), trend(),
		[]f.Field{f.ConsecutiveDecline2, f.TermLowField(3), f.TermsWithData, f.LatestGPA},
		late,
		[]f.Field{f.ImprovingTerm4, f.ImprovingTerm5, f.LongDecline3Terms, f.Stability, f.HasRecovered},
		tail(),
	)
}
