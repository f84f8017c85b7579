package model

import "time"

// BatchRow is one uploaded row. Index is the 0-based data row position.
type BatchRow struct {
	Index     int
	StudentID string
	Name      string
	Record    StudentRecord
}

// RowResult is the outcome of running one BatchRow through the prediction
// pipeline. Error is set instead of the prediction fields when the row failed.
type RowResult struct {
	Index        int               `json:"row_index"`
	StudentID    string            `json:"student_id,omitempty"`
	Name         string            `json:"name,omitempty"`
	Prediction   int               `json:"prediction"`
	Label        string            `json:"prediction_label"`
	Probability  float64           `json:"dropout_probability"`
	Percentage   string            `json:"dropout_percentage"`
	RiskLevel    string            `json:"risk_level"`
	RiskColor    string            `json:"risk_color"`
	Explanations map[string]string `json:"feature_explanations"`
	Variant      string            `json:"model_variant,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// Failed reports whether the row could not be scored.
func (r RowResult) Failed() bool { return r.Error != "" }

// JobStatus is the lifecycle state of an asynchronous batch job.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
)

// Job is a snapshot of an asynchronous batch job. Results holds the rows
// finished so far, ordered by row index.
type Job struct {
	ID        string      `json:"job_id"`
	Status    JobStatus   `json:"status"`
	Total     int         `json:"total"`
	Completed int         `json:"completed"`
	Failed    int         `json:"failed"`
	Results   []RowResult `json:"results"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Task is the unit of work on the job queue: one row of one job.
type Task struct {
	JobID string
	Row   BatchRow
}
