// Package advice turns derived indicators into student-facing guidance.
package advice

import (
	"fmt"
	"strings"

	"github.com/okian/dropout/internal/domain/features"
	"github.com/okian/dropout/internal/domain/risk"
)

// Separator joins advice fragments.
const Separator = " | "

// Stability below this (and above zero) counts as volatile.
const volatileStability = 5

const (
	msgManyF      = "มีหลายวิชาที่ได้ F: เข้าพบอาจารย์ที่ปรึกษา วางแผนแก้รายวิชาที่ตก และขอ/เข้ากลุ่มติวเสริม"
	msgSomeF      = "มีประวัติ F: ทบทวนวิชาที่อ่อน และขอคำปรึกษาเพื่อวางแผนการเรียนซ้ำ"
	msgCritical   = "เกรดเฉลี่ยต่ำมาก (<1.75): จัดตารางเรียนใหม่ ลดภาระกิจชั่วคราว และเข้ารับการติว/เสริมอย่างใกล้ชิด"
	msgVeryLow    = "เกรดเฉลี่ยต่ำ (<2.0): เพิ่มเวลาอ่าน ทบทวนพื้นฐานวิชาหลัก และขอความช่วยเหลือจากอาจารย์/เพื่อนติว"
	msgLow        = "เกรดเฉลี่ยต่ำ (<2.5): ตั้งเป้าเกรดรายวิชาและจัดตารางอ่านหนังสือสม่ำเสมอ"
	msgTwoDecline = "เกรดลดลงต่อเนื่อง 2 เทอม: ทำแผนฟื้นฟูผลการเรียนร่วมกับอาจารย์ที่ปรึกษา"
	msgDeclining  = "แนวโน้มเกรดลดลง: ทบทวนสาเหตุ (เวลาเรียน/งาน/สุขภาพ) และปรับตารางเรียน-พักผ่อน"
	msgImproving  = "แนวโน้มดีขึ้น: รักษาวิธีการเรียนปัจจุบัน และติดตามความก้าวหน้าอย่างต่อเนื่อง"
	msgLatestLow  = "เทอมล่าสุดเกรดต่ำ: โฟกัสวิชาหลักของเทอมนั้น จัดตารางอ่าน/ติวเสริมก่อนสอบ"
	msgTermLow    = "เทอม %d เกรดต่ำ: ทบทวนวิชาหลักของเทอม %d และจัดเวลาติวเสริม"
	msgEarly      = "สัญญาณเตือนตั้งแต่เทอมแรก: ขอการสนับสนุน/ติวพิเศษตั้งแต่เนิ่น ๆ"
	msgRecovered  = "กลับมาฟื้นตัวแล้ว: รักษาแนวทางเดิมและติดตามผลเป็นระยะ"
	msgVolatile   = "ความผันผวนของ GPA สูง: จัดตารางเรียน/พักให้สม่ำเสมอ ลดงานซ้อนช่วงสอบ"
	msgRiskScore  = "ความเสี่ยงรวมสูง: นัดหมายที่ปรึกษาเพื่อทำแผนเร่งด่วนและติดตามรายสัปดาห์"

	msgFallbackHigh   = "ความเสี่ยงสูง: ปรึกษาที่ปรึกษาและทำแผนฟื้นฟูทันที"
	msgFallbackMedium = "ความเสี่ยงปานกลาง: เพิ่มเวลาทบทวนและติดตามผลการเรียนทุกสัปดาห์"
	msgFallbackLow    = "ความเสี่ยงต่ำ: รักษาพฤติกรรมการเรียนและทบทวนสม่ำเสมอ"
)

// rule contributes at most one fragment.
type rule func(v *features.Vector) (string, bool)

// rules run in order; each category is independent of the others.
var rules = []rule{
	failures,
	gpaLevel,
	trend,
	latestTerm,
	lateTerm,
	when(func(v *features.Vector) bool { return v.EarlyWarning }, msgEarly),
	when(func(v *features.Vector) bool { return v.HasRecovered }, msgRecovered),
	when(func(v *features.Vector) bool {
		return v.TermsWithData >= 2 && v.Stability != 0 && v.Stability < volatileStability
	}, msgVolatile),
	when(func(v *features.Vector) bool { return v.RiskScore >= 4 }, msgRiskScore),
}

// Recommend builds the advice string for v. The band only matters when no
// rule fires.
func Recommend(v *features.Vector, band risk.Band, _ float64) string {
	var out []string
	for _, r := range rules {
		if msg, ok := r(v); ok {
			out = append(out, msg)
		}
	}
	if len(out) == 0 {
		out = append(out, fallback(band))
	}
	return strings.Join(out, Separator)
}

func when(cond func(*features.Vector) bool, msg string) rule {
	return func(v *features.Vector) (string, bool) {
		return msg, cond(v)
	}
}

func failures(v *features.Vector) (string, bool) {
	switch {
	case v.ExcessiveF || v.MultipleF:
		return msgManyF, true
	case v.HasF || v.CountF > 0:
		return msgSomeF, true
	}
	return "", false
}

func gpaLevel(v *features.Vector) (string, bool) {
	switch {
	case v.CriticalGPA:
		return msgCritical, true
	case v.VeryLowGPA:
		return msgVeryLow, true
	case v.LowGPA:
		return msgLow, true
	}
	return "", false
}

func trend(v *features.Vector) (string, bool) {
	n := v.TermsWithData
	switch {
	case n >= 3 && v.ConsecutiveDecline2:
		return msgTwoDecline, true
	case n >= 2 && (v.Declining || v.DeclineLastTerm):
		return msgDeclining, true
	case n >= 2 && v.Improving:
		return msgImproving, true
	}
	return "", false
}

func latestTerm(v *features.Vector) (string, bool) {
	n := v.TermsWithData
	low := v.TermLow
	if (low[2] && n >= 3) || (low[1] && n >= 2) || (low[0] && n >= 1) {
		return msgLatestLow, true
	}
	return "", false
}

// lateTerm reports the first of terms 4..8 that is observed and low.
func lateTerm(v *features.Vector) (string, bool) {
	for t := 4; t <= features.SlotCount; t++ {
		if t <= v.TermsWithData && v.TermLow[t-1] && v.Terms[t-1] > 0 {
			return fmt.Sprintf(msgTermLow, t, t), true
		}
	}
	return "", false
}

func fallback(band risk.Band) string {
	switch band {
	case risk.High:
		return msgFallbackHigh
	case risk.Medium:
		return msgFallbackMedium
	default:
		return msgFallbackLow
	}
}
