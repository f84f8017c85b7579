package models

import (
	"github.com/okian/dropout/internal/domain/variant"
	"github.com/okian/dropout/pkg/logger"
)

// Option configures a FileLoader.
type Option func(*FileLoader)

// WithFormat selects the backend. NewFileLoader rejects unknown formats.
func WithFormat(f Format) Option {
	return func(l *FileLoader) {
		if f != "" {
			l.format = f
		}
	}
}

// WithFile overrides the file name (relative to the directory, or absolute)
// for one variant.
func WithFile(id variant.ID, name string) Option {
	return func(l *FileLoader) {
		if name != "" {
			l.files[id] = name
		}
	}
}

// WithONNXLibrary sets the onnxruntime shared library path.
func WithONNXLibrary(path string) Option {
	return func(l *FileLoader) {
		l.onnxLibrary = path
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(l *FileLoader) {
		if log != nil {
			l.log = log
		}
	}
}
