package batch_test

import (
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/xuri/excelize/v2"

	"github.com/okian/dropout/internal/adapters/batch"
)

const header = "student_id,name,faculty,gender,gpax,count_f,year1_term1,year1_term2,year2_term1,year2_term2,year3_term1,year3_term2,year4_term1,year4_term2"

func TestReadCSV(t *testing.T) {
	Convey("Given a CSV upload", t, func() {
		body := header + "\n" +
			"s1,Alice,วิศวกรรมศาสตร์,หญิง,3.2,0,3.1,2.9,,,,,,\n" +
			",,,,,,,,,,,,,\n" +
			"s2,Bob,science,male,2.5,2,1.8,2.1,2.0,,,,,\n"

		rows, err := batch.Read(strings.NewReader(body), "students.csv")
		So(err, ShouldBeNil)

		Convey("Then blank lines are skipped and rows are indexed densely", func() {
			So(len(rows), ShouldEqual, 2)
			So(rows[0].Index, ShouldEqual, 0)
			So(rows[1].Index, ShouldEqual, 1)
		})

		Convey("Then identity and static columns are carried", func() {
			So(rows[0].StudentID, ShouldEqual, "s1")
			So(rows[0].Name, ShouldEqual, "Alice")
			So(rows[0].Record.Faculty, ShouldEqual, "วิศวกรรมศาสตร์")
			So(rows[1].Record.GPAX, ShouldEqual, 2.5)
			So(rows[1].Record.CountF, ShouldEqual, 2)
		})

		Convey("Then blank grade cells are missing terms", func() {
			terms := rows[1].Record.Terms
			So(len(terms), ShouldEqual, 8)
			So(*terms[0], ShouldEqual, 1.8)
			So(*terms[2], ShouldEqual, 2.0)
			So(terms[3], ShouldBeNil)
			So(rows[1].Record.CompletedTerms(), ShouldEqual, 3)
		})
	})

	Convey("Optional year 5 columns extend the term list", t, func() {
		body := header + ",year5_term1\n" + "s,n,f,g,3,0,3,3,3,3,3,3,3,3,2.5\n"
		rows, err := batch.Read(strings.NewReader(body), "x.csv")
		So(err, ShouldBeNil)
		So(len(rows[0].Record.Terms), ShouldEqual, 9)
		So(rows[0].Record.CompletedTerms(), ShouldEqual, 9)
	})

	Convey("Headers are matched case-insensitively after a BOM", t, func() {
		body := "\ufeffFACULTY," + strings.TrimPrefix(header, "student_id,name,faculty,") + "\nf,g,3,0,3,,,,,,,\n"
		rows, err := batch.Read(strings.NewReader(body), "x.csv")
		So(err, ShouldBeNil)
		So(rows[0].Record.Faculty, ShouldEqual, "f")
	})
}

func TestReadErrors(t *testing.T) {
	Convey("Read reports", t, func() {
		Convey("every missing required column", func() {
			_, err := batch.Read(strings.NewReader("faculty,gender,gpax\nx,y,3\n"), "x.csv")
			So(errors.Is(err, batch.ErrMissingColumns), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "count_f, year1_term1")
			So(err.Error(), ShouldContainSubstring, "year4_term2")
		})

		Convey("an empty upload", func() {
			_, err := batch.Read(strings.NewReader(""), "x.csv")
			So(errors.Is(err, batch.ErrEmpty), ShouldBeTrue)
		})

		Convey("a non-numeric grade with its position", func() {
			body := header + "\ns,n,f,g,3,0,A,,,,,,,\n"
			_, err := batch.Read(strings.NewReader(body), "x.csv")
			So(errors.Is(err, batch.ErrInvalidCell), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "line 2 column year1_term1")
		})

		Convey("legacy workbooks", func() {
			_, err := batch.Read(strings.NewReader(""), "old.XLS")
			So(errors.Is(err, batch.ErrUnsupportedFormat), ShouldBeTrue)
		})

		Convey("uploads over the row limit", func() {
			body := header + "\ns,n,f,g,3,0,3,,,,,,,\ns,n,f,g,3,0,3,,,,,,,\n"
			_, err := batch.Read(strings.NewReader(body), "x.csv", batch.WithMaxRows(1))
			So(errors.Is(err, batch.ErrTooManyRows), ShouldBeTrue)
		})
	})
}

func TestReadXLSX(t *testing.T) {
	Convey("Given a workbook", t, func() {
		wb := excelize.NewFile()
		sheet := wb.GetSheetName(0)
		cols := strings.Split(header, ",")
		hdr := make([]any, len(cols))
		for i, c := range cols {
			hdr[i] = c
		}
		So(wb.SetSheetRow(sheet, "A1", &hdr), ShouldBeNil)
		row := []any{"s9", "Carol", "ครุศาสตร์", "F", 3.75, 1, 2.25, 3.5}
		So(wb.SetSheetRow(sheet, "A2", &row), ShouldBeNil)
		buf, err := wb.WriteToBuffer()
		So(err, ShouldBeNil)

		rows, err := batch.Read(buf, "upload.xlsx")
		So(err, ShouldBeNil)

		Convey("Then cells are read from the first sheet", func() {
			So(len(rows), ShouldEqual, 1)
			r := rows[0]
			So(r.StudentID, ShouldEqual, "s9")
			So(r.Record.GPAX, ShouldEqual, 3.75)
			So(r.Record.CountF, ShouldEqual, 1)
			So(*r.Record.Terms[0], ShouldEqual, 2.25)
			So(*r.Record.Terms[1], ShouldEqual, 3.5)
			So(r.Record.Terms[2], ShouldBeNil)
		})
	})

	Convey("A corrupt workbook is rejected", t, func() {
		_, err := batch.Read(strings.NewReader("not a zip"), "bad.xlsx")
		So(err, ShouldNotBeNil)
	})
}
