// Package scenario compares a student's current dropout risk with the risk
// under an assumed grade for the next term.
package scenario

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/dropout/internal/domain/classifier"
	"github.com/okian/dropout/internal/domain/features"
	"github.com/okian/dropout/internal/domain/model"
	"github.com/okian/dropout/internal/domain/variant"
)

// Predictor classifies a projected source for a completed-terms count.
type Predictor interface {
	Classify(ctx context.Context, src variant.Source, terms int) (classifier.Prediction, error)
}

// Result is the counterfactual comparison. Delta is current minus future,
// so a positive delta means the assumed grade lowers the risk.
type Result struct {
	Assumed        float64
	Current        float64
	Future         float64
	Delta          float64
	CurrentVariant variant.ID
	FutureVariant  variant.ID
}

// Compare classifies rec as it stands and again with assumed written into
// the next term slot. The next slot index is the clamped current term, so
// students past their third term have slot four overwritten.
func Compare(ctx context.Context, p Predictor, rec model.StudentRecord, assumed float64) (Result, error) {
	current := rec.CurrentTerm()
	next := model.ClampTerm(current + 1)

	hypothetical := rec
	if current < features.SlotCount {
		hypothetical = rec.WithTerm(current, assumed)
	}

	now := features.FromRecord(rec, current)
	then := features.FromRecord(hypothetical, next)

	cp, err := p.Classify(ctx, &now, current)
	if err != nil {
		return Result{}, fmt.Errorf("classify current: %w", err)
	}
	fp, err := p.Classify(ctx, &then, next)
	if err != nil {
		return Result{}, fmt.Errorf("classify scenario: %w", err)
	}

	return Result{
		Assumed:        assumed,
		Current:        cp.Probability,
		Future:         fp.Probability,
		Delta:          cp.Probability - fp.Probability,
		CurrentVariant: cp.Variant,
		FutureVariant:  fp.Variant,
	}, nil
}

// Percent renders a probability or delta as "12.3%".
func Percent(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}

// Interpret phrases r for the student.
func (r Result) Interpret() string {
	lead := fmt.Sprintf("หากได้เกรด %.2f ในเทอมถัดไป", r.Assumed)
	switch {
	case r.Delta > 0:
		return fmt.Sprintf("%s ความเสี่ยงจะลดลง %s", lead, Percent(r.Delta))
	case r.Delta < 0:
		return fmt.Sprintf("%s ความเสี่ยงจะเพิ่มขึ้น %s", lead, Percent(math.Abs(r.Delta)))
	default:
		return lead + " ความเสี่ยงจะไม่เปลี่ยนแปลง"
	}
}
