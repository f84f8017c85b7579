// Package types contains the response shapes shared by the service, the HTTP
// API and the CLI.
package types

import (
	"time"

	"github.com/okian/dropout/internal/domain/model"
)

// Prediction labels.
const (
	LabelDropout  = "Dropout"
	LabelGraduate = "Graduate"
)

// LabelName maps a binary label to its display name.
func LabelName(label int) string {
	if label == 1 {
		return LabelDropout
	}
	return LabelGraduate
}

// Prediction is the outcome of a single-record prediction.
type Prediction struct {
	Label          int               `json:"prediction"`
	LabelName      string            `json:"prediction_label"`
	Probability    float64           `json:"dropout_probability"`
	Percentage     string            `json:"dropout_percentage"`
	RiskLevel      string            `json:"risk_level"`
	RiskColor      string            `json:"risk_color"`
	Recommendation string            `json:"recommendation"`
	Explanations   map[string]string `json:"feature_explanations,omitempty"`
	Variant        string            `json:"model_variant"`
	Timestamp      time.Time         `json:"timestamp"`
}

// Future compares the current risk with the risk under an assumed grade.
type Future struct {
	CurrentProbability    float64 `json:"current_probability"`
	FutureProbability     float64 `json:"future_probability"`
	CurrentPercentage     string  `json:"current_percentage"`
	FuturePercentage      string  `json:"future_percentage"`
	Improvement           float64 `json:"improvement"`
	ImprovementPercentage string  `json:"improvement_percentage"`
	Recommendation        string  `json:"recommendation"`
}

// Batch is the synchronous batch response.
type Batch struct {
	Count   int               `json:"count"`
	Results []model.RowResult `json:"results"`
}

// Health reports which classifiers are loaded.
type Health struct {
	Status      string          `json:"status"`
	ModelLoaded bool            `json:"model_loaded"`
	LoadedTerms map[string]bool `json:"loaded_terms"`
	LoadedCount int             `json:"loaded_count"`
}

// Health statuses.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Submission acknowledges an asynchronous batch job.
type Submission struct {
	JobID     string `json:"job_id"`
	Total     int    `json:"total"`
	Duplicate bool   `json:"duplicate,omitempty"`
}
