package coerce_test

import (
	"encoding/json"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/dropout/internal/domain/coerce"
)

func TestFaculty(t *testing.T) {
	Convey("Faculty codes", t, func() {
		Convey("known names map to their code", func() {
			for code, name := range coerce.FacultyNames() {
				r := coerce.Faculty(name)
				So(r.Value, ShouldEqual, code)
				So(r.Fallback, ShouldBeFalse)
			}
		})

		Convey("the catch-all faculty is code 6", func() {
			So(coerce.Faculty("อื่นๆ").Value, ShouldEqual, 6)
		})

		Convey("surrounding whitespace is ignored", func() {
			r := coerce.Faculty("  คณะวิทยาการจัดการ\n")
			So(r.Value, ShouldEqual, coerce.FacultyManagement)
			So(r.Fallback, ShouldBeFalse)
		})

		Convey("unknown names fall back to 0", func() {
			for _, raw := range []string{"", "Engineering", "คณะแพทยศาสตร์"} {
				r := coerce.Faculty(raw)
				So(r.Value, ShouldEqual, 0)
				So(r.Fallback, ShouldBeTrue)
			}
		})
	})
}

func TestGender(t *testing.T) {
	Convey("Gender codes", t, func() {
		So(coerce.Gender("ชาย"), ShouldResemble, coerce.Result[int]{Value: 0})
		So(coerce.Gender("หญิง"), ShouldResemble, coerce.Result[int]{Value: 1})
		So(coerce.Gender("other"), ShouldResemble, coerce.Result[int]{Value: 0, Fallback: true})
	})
}

func TestNumber(t *testing.T) {
	Convey("Number coercion", t, func() {
		Convey("numeric kinds pass through", func() {
			So(coerce.Number(2.5).Value, ShouldEqual, 2.5)
			So(coerce.Number(float32(1.5)).Value, ShouldEqual, 1.5)
			So(coerce.Number(3).Value, ShouldEqual, 3)
			So(coerce.Number(int64(-2)).Value, ShouldEqual, -2)
			So(coerce.Number(uint8(7)).Value, ShouldEqual, 7)
			So(coerce.Number(json.Number("3.25")).Value, ShouldEqual, 3.25)
			So(coerce.Number(0.0).Fallback, ShouldBeFalse)
		})

		Convey("booleans become 1 and 0", func() {
			So(coerce.Number(true).Value, ShouldEqual, 1)
			So(coerce.Number(false).Value, ShouldEqual, 0)
			So(coerce.Number(false).Fallback, ShouldBeFalse)
		})

		Convey("malformed values fall back to 0", func() {
			for _, v := range []any{nil, "2.5", json.Number("x"), math.NaN(), math.Inf(1), []any{1}, map[string]any{}} {
				r := coerce.Number(v)
				So(r.Value, ShouldEqual, 0)
				So(r.Fallback, ShouldBeTrue)
			}
		})
	})
}
