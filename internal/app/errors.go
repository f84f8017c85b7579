package service

import "errors"

var (
	// ErrNotStarted is returned by batch job operations before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrBusy means the job queue cannot take the submitted rows.
	ErrBusy = errors.New("batch queue is full")
)
