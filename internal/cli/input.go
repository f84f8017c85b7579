package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/okian/dropout/internal/domain/model"
	"github.com/spf13/cobra"
)

var errMissingField = errors.New("missing required field")

// record is the JSON shape of a student record, the same one the HTTP API
// accepts.
type record struct {
	Faculty    string   `json:"faculty"`
	Gender     string   `json:"gender"`
	GPAX       *float64 `json:"gpax"`
	CountF     *int     `json:"count_f"`
	Year1Term1 *float64 `json:"year1_term1"`
	Year1Term2 *float64 `json:"year1_term2"`
	Year2Term1 *float64 `json:"year2_term1"`
	Year2Term2 *float64 `json:"year2_term2"`
	Year3Term1 *float64 `json:"year3_term1"`
	Year3Term2 *float64 `json:"year3_term2"`
	Year4Term1 *float64 `json:"year4_term1"`
	Year4Term2 *float64 `json:"year4_term2"`
	Year5Term1 *float64 `json:"year5_term1"`
	Year5Term2 *float64 `json:"year5_term2"`
}

func (r record) student() (model.StudentRecord, error) {
	if r.GPAX == nil {
		return model.StudentRecord{}, fmt.Errorf("%w: gpax", errMissingField)
	}
	if r.CountF == nil {
		return model.StudentRecord{}, fmt.Errorf("%w: count_f", errMissingField)
	}
	return model.StudentRecord{
		Faculty: r.Faculty,
		Gender:  r.Gender,
		GPAX:    *r.GPAX,
		CountF:  *r.CountF,
		Terms: []*float64{
			r.Year1Term1, r.Year1Term2,
			r.Year2Term1, r.Year2Term2,
			r.Year3Term1, r.Year3Term2,
			r.Year4Term1, r.Year4Term2,
			r.Year5Term1, r.Year5Term2,
		},
	}, nil
}

// readRecord decodes the record from --input, or stdin when unset.
func readRecord(cmd *cobra.Command) (model.StudentRecord, error) {
	var src io.Reader = cmd.InOrStdin()
	if path, _ := cmd.Flags().GetString("input"); path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return model.StudentRecord{}, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		src = f
	}
	var r record
	if err := json.NewDecoder(src).Decode(&r); err != nil {
		return model.StudentRecord{}, fmt.Errorf("decode student record: %w", err)
	}
	return r.student()
}
