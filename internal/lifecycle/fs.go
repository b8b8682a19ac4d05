// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/modflow/modflow/internal/pipeline"
)

const spacer = "=========================================================="

type (
	// FS is the marker-file Tracker. Markers are empty files in the module
	// root; creation is verified with a stat before a transition counts.
	FS struct {
		logger *log.Logger
		clock  Clock
	}

	// Option configures an FS tracker.
	Option func(*FS)
)

// WithLogger sets the logger used for STARTING/FINISHED transition lines.
func WithLogger(l *log.Logger) Option {
	return func(f *FS) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithClock sets the clock stamped onto STARTED markers.
func WithClock(c Clock) Option {
	return func(f *FS) {
		if c != nil {
			f.clock = c
		}
	}
}

// NewFS returns a filesystem tracker.
func NewFS(opts ...Option) *FS {
	f := &FS{
		logger: log.New(io.Discard),
		clock:  realClock{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// MarkStarted creates the STARTED marker in the module root, creating the
// root when needed, and verifies it exists.
func (f *FS) MarkStarted(m *pipeline.Module) error {
	path := filepath.Join(m.Root(), StartedMarker)
	if err := os.MkdirAll(m.Root(), 0o755); err != nil {
		return &MarkerIOError{Marker: StartedMarker, Path: path, Err: err}
	}
	if err := f.touch(StartedMarker, path); err != nil {
		return err
	}
	f.logger.Info(spacer)
	f.logger.Info("STARTING " + m.DirName())
	f.logger.Info(spacer)
	return nil
}

// MarkComplete creates and verifies the COMPLETE marker, then removes
// STARTED. Until the removal succeeds the module reads as incomplete.
func (f *FS) MarkComplete(m *pipeline.Module) error {
	path := filepath.Join(m.Root(), CompleteMarker)
	if err := f.touch(CompleteMarker, path); err != nil {
		return err
	}
	started := filepath.Join(m.Root(), StartedMarker)
	if err := os.Remove(started); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &MarkerIOError{Marker: StartedMarker, Path: started, Err: err}
	}
	f.logger.Info(spacer)
	f.logger.Info("FINISHED " + m.DirName())
	f.logger.Info(spacer)
	return nil
}

// State reads the markers in the module root. STARTED wins over COMPLETE: a
// crash between creating COMPLETE and removing STARTED reads as incomplete,
// so the module is re-run.
func (f *FS) State(m *pipeline.Module) (State, error) {
	startedPath := filepath.Join(m.Root(), StartedMarker)
	started, err := markerExists(startedPath)
	if err != nil {
		return NotStarted, &MarkerIOError{Marker: StartedMarker, Path: startedPath, Err: err}
	}
	if started {
		return StartedIncomplete, nil
	}
	completePath := filepath.Join(m.Root(), CompleteMarker)
	complete, err := markerExists(completePath)
	if err != nil {
		return NotStarted, &MarkerIOError{Marker: CompleteMarker, Path: completePath, Err: err}
	}
	if complete {
		return Complete, nil
	}
	return NotStarted, nil
}

// StartTime returns the modification time of the STARTED marker.
func (f *FS) StartTime(m *pipeline.Module) (time.Time, bool, error) {
	path := filepath.Join(m.Root(), StartedMarker)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, &MarkerIOError{Marker: StartedMarker, Path: path, Err: err}
	}
	return info.ModTime(), true, nil
}

// touch creates an empty marker, stamps it with the tracker clock and
// verifies it with a fresh stat.
func (f *FS) touch(marker, path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return &MarkerIOError{Marker: marker, Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &MarkerIOError{Marker: marker, Path: path, Err: err}
	}
	now := f.clock.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		return &MarkerIOError{Marker: marker, Path: path, Err: err}
	}
	exists, err := markerExists(path)
	if err != nil || !exists {
		return &MarkerIOError{Marker: marker, Path: path, Err: err}
	}
	return nil
}

func markerExists(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		return !info.IsDir(), nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}
