package risk_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/dropout/internal/domain/risk"
)

func TestClassify(t *testing.T) {
	Convey("Risk banding", t, func() {
		Convey("boundaries belong to the higher band", func() {
			So(risk.Classify(0.2999999), ShouldEqual, risk.Low)
			So(risk.Classify(0.30), ShouldEqual, risk.Medium)
			So(risk.Classify(0.5999999), ShouldEqual, risk.Medium)
			So(risk.Classify(0.60), ShouldEqual, risk.High)
		})

		Convey("bands are monotonic over [0,1]", func() {
			prev := risk.Low
			order := map[risk.Band]int{risk.Low: 0, risk.Medium: 1, risk.High: 2}
			for i := 0; i <= 100; i++ {
				b := risk.Classify(float64(i) / 100)
				So(order[b], ShouldBeGreaterThanOrEqualTo, order[prev])
				prev = b
			}
			So(risk.Classify(0), ShouldEqual, risk.Low)
			So(risk.Classify(1), ShouldEqual, risk.High)
		})

		Convey("each band has a color", func() {
			So(risk.Low.Color(), ShouldEqual, "green")
			So(risk.Medium.Color(), ShouldEqual, "orange")
			So(risk.High.Color(), ShouldEqual, "red")
		})
	})
}
