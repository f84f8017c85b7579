// Package models loads the per-variant classifier files from disk.
package models

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/okian/dropout/internal/adapters/models/onnx"
	"github.com/okian/dropout/internal/adapters/models/xgboost"
	"github.com/okian/dropout/internal/domain/classifier"
	"github.com/okian/dropout/internal/domain/variant"
	"github.com/okian/dropout/pkg/logger"
)

// Format selects the model backend.
type Format string

const (
	FormatXGBoost Format = "xgboost"
	FormatONNX    Format = "onnx"
)

// ErrUnknownFormat is returned for a format other than xgboost or onnx.
var ErrUnknownFormat = errors.New("unknown model format")

// ParseFormat validates a configured format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatXGBoost, FormatONNX:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// DefaultFile is the conventional file name for id, e.g. model_term1.json.
func DefaultFile(id variant.ID, f Format) string {
	ext := ".json"
	if f == FormatONNX {
		ext = ".onnx"
	}
	return "model_" + id.String() + ext
}

// FileLoader implements classifier.Loader over a directory of model files.
type FileLoader struct {
	dir         string
	format      Format
	files       map[variant.ID]string
	onnxLibrary string
	log         logger.Logger
}

// NewFileLoader creates a loader reading from dir.
func NewFileLoader(dir string, opts ...Option) (*FileLoader, error) {
	l := &FileLoader{
		dir:    dir,
		format: FormatXGBoost,
		files:  make(map[variant.ID]string, len(variant.All)),
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if _, err := ParseFormat(string(l.format)); err != nil {
		return nil, err
	}
	return l, nil
}

// Path returns the file loaded for id.
func (l *FileLoader) Path(id variant.ID) string {
	name, ok := l.files[id]
	if !ok || name == "" {
		name = DefaultFile(id, l.format)
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(l.dir, name)
}

// Load implements classifier.Loader. A model whose input schema disagrees
// with d fails with classifier.ErrFeatureMismatch.
func (l *FileLoader) Load(ctx context.Context, d variant.Descriptor) (classifier.Classifier, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := l.Path(d.ID)
	l.log.Debug(ctx, "reading model file",
		logger.String("variant", d.ID.String()),
		logger.String("path", path),
		logger.String("format", string(l.format)))

	switch l.format {
	case FormatONNX:
		return l.loadONNX(path, d)
	default:
		return loadXGBoost(path, d)
	}
}

func loadXGBoost(path string, d variant.Descriptor) (classifier.Classifier, error) {
	m, err := xgboost.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if m.NumFeature() != d.Len() {
		return nil, fmt.Errorf("%w: %s expects %d features, %s declares %d",
			classifier.ErrFeatureMismatch, path, m.NumFeature(), d.ID, d.Len())
	}
	if names := m.FeatureNames(); names != nil && !slices.Equal(names, d.Names()) {
		return nil, fmt.Errorf("%w: %s feature names differ from %s at %q",
			classifier.ErrFeatureMismatch, path, d.ID, firstDiff(names, d.Names()))
	}
	return m, nil
}

func (l *FileLoader) loadONNX(path string, d variant.Descriptor) (classifier.Classifier, error) {
	if err := onnx.Init(l.onnxLibrary); err != nil {
		return nil, fmt.Errorf("onnx runtime: %w", err)
	}
	m, err := onnx.Load(path, d.Len())
	if err != nil {
		return nil, err
	}
	return m, nil
}

func firstDiff(got, want []string) string {
	for i := range got {
		if i >= len(want) || got[i] != want[i] {
			return got[i]
		}
	}
	return ""
}
