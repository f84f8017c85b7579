// Package xgboost evaluates gradient-boosted tree models saved with
// XGBoost's JSON format (Booster.save_model("model.json")).
//
// Only binary classifiers built with the gbtree booster and a logistic
// objective are supported. Evaluation is pure Go and safe for concurrent use.
package xgboost

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/okian/dropout/internal/domain/classifier"
)

// Sentinel errors.
var (
	ErrInvalidModel         = errors.New("invalid xgboost model")
	ErrUnsupportedObjective = errors.New("unsupported xgboost objective")
	ErrInputWidth           = errors.New("input width does not match model")
)

const leafMarker = -1

var supportedObjectives = map[string]bool{
	"binary:logistic": true,
	"reg:logistic":    true,
}

// Model is a parsed, validated booster.
type Model struct {
	numFeature   int
	featureNames []string
	baseMargin   float64
	objective    string
	trees        []tree
}

type tree struct {
	left, right []int32
	split       []int32
	cond        []float32
	defaultLeft []bool
}

// document mirrors the parts of the JSON layout that evaluation needs.
type document struct {
	Learner struct {
		FeatureNames    []string `json:"feature_names"`
		GradientBooster struct {
			Name  string `json:"name"`
			Model struct {
				Trees []struct {
					LeftChildren    []int32   `json:"left_children"`
					RightChildren   []int32   `json:"right_children"`
					SplitIndices    []int32   `json:"split_indices"`
					SplitConditions []float64 `json:"split_conditions"`
					DefaultLeft     flags     `json:"default_left"`
				} `json:"trees"`
				TreeInfo []int `json:"tree_info"`
			} `json:"model"`
		} `json:"gradient_booster"`
		LearnerModelParam struct {
			BaseScore  string `json:"base_score"`
			NumFeature string `json:"num_feature"`
			NumClass   string `json:"num_class"`
		} `json:"learner_model_param"`
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
	} `json:"learner"`
}

// flags accepts default_left written either as 0/1 integers or booleans.
type flags []bool

func (f *flags) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make([]bool, len(raw))
	for i, r := range raw {
		switch strings.TrimSpace(string(r)) {
		case "1", "true":
			out[i] = true
		case "0", "false":
		default:
			return fmt.Errorf("default_left[%d]: unexpected value %s", i, r)
		}
	}
	*f = out
	return nil
}

// LoadFile parses the model at path.
func LoadFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse reads and validates a JSON model.
func Parse(r io.Reader) (*Model, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}
	l := doc.Learner

	if name := l.GradientBooster.Name; name != "gbtree" {
		return nil, fmt.Errorf("%w: booster %q", ErrInvalidModel, name)
	}
	if !supportedObjectives[l.Objective.Name] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedObjective, l.Objective.Name)
	}
	if nc := l.LearnerModelParam.NumClass; nc != "" && nc != "0" && nc != "1" {
		return nil, fmt.Errorf("%w: num_class %s", ErrUnsupportedObjective, nc)
	}

	numFeature, err := strconv.Atoi(l.LearnerModelParam.NumFeature)
	if err != nil || numFeature <= 0 {
		return nil, fmt.Errorf("%w: num_feature %q", ErrInvalidModel, l.LearnerModelParam.NumFeature)
	}
	if len(l.FeatureNames) > 0 && len(l.FeatureNames) != numFeature {
		return nil, fmt.Errorf("%w: %d feature names for %d features", ErrInvalidModel, len(l.FeatureNames), numFeature)
	}

	base, err := parseBaseScore(l.LearnerModelParam.BaseScore)
	if err != nil {
		return nil, err
	}

	m := &Model{
		numFeature:   numFeature,
		featureNames: l.FeatureNames,
		baseMargin:   logit(base),
		objective:    l.Objective.Name,
		trees:        make([]tree, 0, len(l.GradientBooster.Model.Trees)),
	}
	for i, t := range l.GradientBooster.Model.Trees {
		tr := tree{
			left:        t.LeftChildren,
			right:       t.RightChildren,
			split:       t.SplitIndices,
			cond:        toFloat32(t.SplitConditions),
			defaultLeft: t.DefaultLeft,
		}
		if err := tr.validate(numFeature); err != nil {
			return nil, fmt.Errorf("%w: tree %d: %w", ErrInvalidModel, i, err)
		}
		m.trees = append(m.trees, tr)
	}
	if len(m.trees) == 0 {
		return nil, fmt.Errorf("%w: no trees", ErrInvalidModel)
	}
	return m, nil
}

// parseBaseScore accepts "5E-1" and the bracketed "[5E-1]" form.
func parseBaseScore(s string) (float64, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		return 0.5, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || v >= 1 {
		return 0, fmt.Errorf("%w: base_score %q", ErrInvalidModel, s)
	}
	return v, nil
}

func (t tree) validate(numFeature int) error {
	n := len(t.left)
	if n == 0 {
		return errors.New("empty tree")
	}
	if len(t.right) != n || len(t.split) != n || len(t.cond) != n || len(t.defaultLeft) != n {
		return errors.New("node arrays differ in length")
	}
	for i := 0; i < n; i++ {
		l, r := t.left[i], t.right[i]
		if l == leafMarker {
			continue
		}
		// children always follow their parent in XGBoost's layout, which also
		// rules out cycles
		if l <= int32(i) || r <= int32(i) || int(l) >= n || int(r) >= n {
			return fmt.Errorf("node %d: bad children %d/%d", i, l, r)
		}
		if s := t.split[i]; s < 0 || int(s) >= numFeature {
			return fmt.Errorf("node %d: split index %d out of range", i, s)
		}
	}
	return nil
}

// leaf walks the tree for x and returns the leaf value. Splits compare in
// float32, matching how XGBoost stores features and thresholds.
func (t tree) leaf(x []float64) float32 {
	i := int32(0)
	for t.left[i] != leafMarker {
		v := float32(x[t.split[i]])
		switch {
		case math.IsNaN(float64(v)):
			if t.defaultLeft[i] {
				i = t.left[i]
			} else {
				i = t.right[i]
			}
		case v < t.cond[i]:
			i = t.left[i]
		default:
			i = t.right[i]
		}
	}
	return t.cond[i]
}

// Margin is the raw boosted score before the logistic transform.
func (m *Model) Margin(x []float64) (float64, error) {
	if len(x) != m.numFeature {
		return 0, fmt.Errorf("%w: %w: got %d, want %d", classifier.ErrInvalidInput, ErrInputWidth, len(x), m.numFeature)
	}
	margin := float32(m.baseMargin)
	for _, t := range m.trees {
		margin += t.leaf(x)
	}
	return float64(margin), nil
}

// PredictProbability returns the positive-class probability.
func (m *Model) PredictProbability(x []float64) (float64, error) {
	margin, err := m.Margin(x)
	if err != nil {
		return 0, err
	}
	return sigmoid(margin), nil
}

// Predict returns the hard label for x.
func (m *Model) Predict(x []float64) (int, error) {
	p, err := m.PredictProbability(x)
	if err != nil {
		return 0, err
	}
	return classifier.LabelOf(p), nil
}

// NumFeature is the declared input width.
func (m *Model) NumFeature() int { return m.numFeature }

// FeatureNames returns the training column names, or nil when the model was
// saved without them.
func (m *Model) FeatureNames() []string {
	return append([]string(nil), m.featureNames...)
}

// NumTrees is the number of boosted trees.
func (m *Model) NumTrees() int { return len(m.trees) }

func sigmoid(z float64) float64 { return 1 / (1 + math.Exp(-z)) }

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

func logit(p float64) float64 { return math.Log(p / (1 - p)) }
