package model_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/dropout/internal/domain/model"
)

func TestCompletedTerms(t *testing.T) {
	Convey("Completed terms count non-missing inputs", t, func() {
		rec := model.StudentRecord{Terms: []*float64{model.Grade(3), nil, model.Grade(0), nil}}
		So(rec.CompletedTerms(), ShouldEqual, 2)
		So(rec.CurrentTerm(), ShouldEqual, 2)

		Convey("including terms nine and ten but nothing beyond", func() {
			rec := model.StudentRecord{Terms: model.Grades(3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3)}
			So(rec.CompletedTerms(), ShouldEqual, model.MaxTermInputs)
			So(rec.CurrentTerm(), ShouldEqual, model.MaxRoutingTerms)
		})

		Convey("and an empty history still routes as one term", func() {
			So(model.StudentRecord{}.CurrentTerm(), ShouldEqual, 1)
		})
	})
}

func TestWithTerm(t *testing.T) {
	Convey("Given a record with two grades", t, func() {
		rec := model.StudentRecord{Faculty: "x", Terms: model.Grades(2.5, 2.8)}

		Convey("When a later term is set", func() {
			next := rec.WithTerm(3, 3.1)

			Convey("Then the list grows with gaps and the original is untouched", func() {
				So(len(next.Terms), ShouldEqual, 4)
				So(next.Terms[2], ShouldBeNil)
				So(*next.Terms[3], ShouldEqual, 3.1)
				So(len(rec.Terms), ShouldEqual, 2)
				So(next.Faculty, ShouldEqual, "x")
			})

			Convey("Then grades are copied, not shared", func() {
				*next.Terms[0] = 0
				So(*rec.Terms[0], ShouldEqual, 2.5)
			})
		})
	})
}
