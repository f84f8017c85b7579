package advice

import (
	"fmt"

	"github.com/okian/dropout/internal/domain/features"
)

// Significant decline for the trend explanation.
const significantDecline = -0.3

// Explain returns short explanations keyed by feature name for the
// indicators worth surfacing next to a prediction.
func Explain(v *features.Vector) map[string]string {
	out := make(map[string]string, 3)
	if v.CountF > 0 {
		out[features.CountF.Name] = fmt.Sprintf("จำนวนวิชาที่ได้ F: %d วิชา", v.CountF)
	}
	if v.EarlyWarning {
		out[features.Warning.Name] = "มีสัญญาณเตือน: เกรดต่ำและมี F"
	}
	if v.Declining && v.TermsWithData >= 3 && v.ChangeFromStart <= significantDecline {
		out[features.Declining.Name] = "แนวโน้มเกรดลดลงอย่างมีนัยสำคัญ"
	}
	return out
}
