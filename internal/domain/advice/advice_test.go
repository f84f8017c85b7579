package advice_test

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/dropout/internal/domain/advice"
	"github.com/okian/dropout/internal/domain/features"
	"github.com/okian/dropout/internal/domain/model"
	"github.com/okian/dropout/internal/domain/risk"
)

func derive(gpax float64, countF int, grades ...float64) *features.Vector {
	rec := model.StudentRecord{GPAX: gpax, CountF: countF, Terms: model.Grades(grades...)}
	v := features.FromRecord(rec, rec.CurrentTerm())
	return &v
}

func fragments(s string) []string {
	return strings.Split(s, advice.Separator)
}

func TestRecommendFallback(t *testing.T) {
	Convey("Given a strong, stable student", t, func() {
		v := derive(3.5, 0, 3.6, 3.6)

		Convey("Then only the band fallback is emitted", func() {
			So(advice.Recommend(v, risk.Low, 0.1), ShouldEqual, "ความเสี่ยงต่ำ: รักษาพฤติกรรมการเรียนและทบทวนสม่ำเสมอ")
			So(advice.Recommend(v, risk.Medium, 0.4), ShouldEqual, "ความเสี่ยงปานกลาง: เพิ่มเวลาทบทวนและติดตามผลการเรียนทุกสัปดาห์")
			So(advice.Recommend(v, risk.High, 0.9), ShouldEqual, "ความเสี่ยงสูง: ปรึกษาที่ปรึกษาและทำแผนฟื้นฟูทันที")
		})
	})
}

func TestRecommendCategories(t *testing.T) {
	Convey("Given a single very low first term", t, func() {
		v := derive(2.0, 0, 1.8)
		got := fragments(advice.Recommend(v, risk.High, 0.8))

		Convey("Then GPA, latest-term and early-warning advice fire in order", func() {
			So(got, ShouldResemble, []string{
				"เกรดเฉลี่ยต่ำ (<2.0): เพิ่มเวลาอ่าน ทบทวนพื้นฐานวิชาหลัก และขอความช่วยเหลือจากอาจารย์/เพื่อนติว",
				"เทอมล่าสุดเกรดต่ำ: โฟกัสวิชาหลักของเทอมนั้น จัดตารางอ่าน/ติวเสริมก่อนสอบ",
				"สัญญาณเตือนตั้งแต่เทอมแรก: ขอการสนับสนุน/ติวพิเศษตั้งแต่เนิ่น ๆ",
			})
		})
	})

	Convey("Given many fails and a critical average", t, func() {
		v := derive(2.0, 3, 2.2, 1.6, 1.2)
		got := fragments(advice.Recommend(v, risk.High, 0.95))

		Convey("Then each category contributes its most severe message once", func() {
			So(got[0], ShouldStartWith, "มีหลายวิชาที่ได้ F")
			So(got[1], ShouldStartWith, "เกรดเฉลี่ยต่ำมาก (<1.75)")
			So(got[2], ShouldStartWith, "เกรดลดลงต่อเนื่อง 2 เทอม")
			So(strings.Join(got, "\n"), ShouldNotContainSubstring, "แนวโน้มเกรดลดลง:")
			So(got[len(got)-1], ShouldStartWith, "ความเสี่ยงรวมสูง")
		})
	})

	Convey("Given a single fail and a mild average", t, func() {
		v := derive(3.0, 1, 2.4, 2.45)
		got := advice.Recommend(v, risk.Medium, 0.4)
		So(fragments(got)[0], ShouldStartWith, "มีประวัติ F")
		So(got, ShouldContainSubstring, "เกรดเฉลี่ยต่ำ (<2.5)")
	})

	Convey("Given an improving two-term history", t, func() {
		v := derive(2.5, 0, 2.6, 3.2)
		got := fragments(advice.Recommend(v, risk.Low, 0.1))
		So(got[0], ShouldStartWith, "แนวโน้มดีขึ้น")
	})

	Convey("Given a decline on the last observed term only", t, func() {
		v := derive(3.0, 0, 3.0, 3.5, 3.45)
		got := advice.Recommend(v, risk.Low, 0.1)
		So(got, ShouldStartWith, "แนวโน้มเกรดลดลง")
	})

	Convey("Given a recovered student", t, func() {
		v := derive(2.0, 0, 1.9, 2.4, 3.0)
		got := advice.Recommend(v, risk.Low, 0.1)
		So(got, ShouldContainSubstring, "กลับมาฟื้นตัวแล้ว")
		So(got, ShouldContainSubstring, "สัญญาณเตือนตั้งแต่เทอมแรก")
		So(got, ShouldContainSubstring, "ความผันผวนของ GPA สูง")
	})
}

func TestRecommendLateTerms(t *testing.T) {
	Convey("Given low grades in terms five and six", t, func() {
		v := derive(3.0, 0, 3.0, 3.0, 3.0, 3.0, 2.0, 2.2)
		got := advice.Recommend(v, risk.Low, 0.2)

		Convey("Then only the first low late term is reported", func() {
			So(got, ShouldContainSubstring, "เทอม 5 เกรดต่ำ: ทบทวนวิชาหลักของเทอม 5 และจัดเวลาติวเสริม")
			So(got, ShouldNotContainSubstring, "เทอม 6 เกรดต่ำ")
			So(got, ShouldNotContainSubstring, "เทอมล่าสุดเกรดต่ำ")
		})
	})

	Convey("Given unreached late terms", t, func() {
		v := derive(3.0, 0, 3.0, 3.2, 3.1)
		So(advice.Recommend(v, risk.Low, 0.1), ShouldNotContainSubstring, "เทอม 4")
	})
}

func TestExplain(t *testing.T) {
	Convey("Explanations", t, func() {
		Convey("name the fail count and early warning", func() {
			e := advice.Explain(derive(2.0, 2, 1.5))
			So(e, ShouldResemble, map[string]string{
				"COUNT_F":       "จำนวนวิชาที่ได้ F: 2 วิชา",
				"early_warning": "มีสัญญาณเตือน: เกรดต่ำและมี F",
			})
		})

		Convey("report a significant decline only with three observed terms", func() {
			So(advice.Explain(derive(3.0, 0, 3.0, 2.6, 2.5)), ShouldContainKey, "declining_trend")
			So(advice.Explain(derive(3.0, 0, 3.0, 2.5)), ShouldNotContainKey, "declining_trend")
			So(advice.Explain(derive(3.0, 0, 3.0, 2.9, 2.8)), ShouldNotContainKey, "declining_trend")
		})

		Convey("are empty for a clean record", func() {
			So(advice.Explain(derive(3.0, 0, 3.2)), ShouldBeEmpty)
		})
	})
}

func TestRecommendDeterministic(t *testing.T) {
	Convey("Recommendations are stable for the same input", t, func() {
		v := derive(2.4, 1, 2.0, 2.8, 1.9, 2.6)
		So(advice.Recommend(v, risk.Medium, 0.5), ShouldEqual, advice.Recommend(v, risk.Medium, 0.5))
	})
}
