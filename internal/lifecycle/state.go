// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/modflow/modflow/internal/pipeline"
)

const (
	// StartedMarker is created in the module root before any script runs.
	// Its modification time is the module start time.
	StartedMarker = "STARTED"
	// CompleteMarker is created in the module root once the module succeeded.
	CompleteMarker = "COMPLETE"
)

const (
	// NotStarted means no marker exists.
	NotStarted State = iota
	// StartedIncomplete means the module started and never completed, either
	// because it is still running or because it failed or crashed.
	StartedIncomplete
	// Complete means the module finished successfully.
	Complete
)

// ErrMarkerIO is the sentinel error wrapped by MarkerIOError.
var ErrMarkerIO = errors.New("lifecycle marker I/O failure")

type (
	// State is the lifecycle state of one module.
	State int

	// Clock supplies the current time for runtime reporting.
	Clock interface {
		Now() time.Time
	}

	// Tracker reads and writes module lifecycle markers. The filesystem
	// implementation is the system of record; Memory substitutes for it in
	// tests.
	Tracker interface {
		// MarkStarted records that m is about to run.
		MarkStarted(m *pipeline.Module) error
		// MarkComplete records that m finished and clears its STARTED marker.
		MarkComplete(m *pipeline.Module) error
		// State returns the current state of m.
		State(m *pipeline.Module) (State, error)
		// StartTime returns when m was marked started. ok is false when m
		// carries no STARTED marker.
		StartTime(m *pipeline.Module) (start time.Time, ok bool, err error)
	}

	// MarkerIOError reports a marker that could not be created, verified or
	// removed.
	MarkerIOError struct {
		Marker string
		Path   string
		Err    error
	}

	realClock struct{}
)

// String returns the state name used in logs and status output.
func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case StartedIncomplete:
		return "started-incomplete"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText renders the state name in YAML and JSON status output.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// HasExecuted reports whether the state shows any execution attempt.
func (s State) HasExecuted() bool { return s != NotStarted }

// Error implements the error interface for MarkerIOError.
func (e *MarkerIOError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lifecycle marker %s at %s: %v", e.Marker, e.Path, e.Err)
	}
	return fmt.Sprintf("lifecycle marker %s at %s could not be verified", e.Marker, e.Path)
}

// Unwrap returns ErrMarkerIO for errors.Is() compatibility.
func (e *MarkerIOError) Unwrap() error { return ErrMarkerIO }

func (realClock) Now() time.Time { return time.Now() }

// IsComplete reports whether m carries a COMPLETE marker.
func IsComplete(t Tracker, m *pipeline.Module) (bool, error) {
	s, err := t.State(m)
	return s == Complete, err
}

// IsIncomplete reports whether m started and never completed.
func IsIncomplete(t Tracker, m *pipeline.Module) (bool, error) {
	s, err := t.State(m)
	return s == StartedIncomplete, err
}

// HasExecuted reports whether m is either started or complete.
func HasExecuted(t Tracker, m *pipeline.Module) (bool, error) {
	s, err := t.State(m)
	return s.HasExecuted(), err
}

// Runtime returns how long m has been running according to clock, formatted
// by FormatRuntime. A module with no STARTED marker reports the minimum.
func Runtime(t Tracker, m *pipeline.Module, clock Clock) (string, error) {
	if clock == nil {
		clock = realClock{}
	}
	start, ok, err := t.StartTime(m)
	if err != nil {
		return "", err
	}
	if !ok {
		return FormatRuntime(0), nil
	}
	return FormatRuntime(clock.Now().Sub(start)), nil
}

// FormatRuntime renders d as "HH hours : MM minutes : SS seconds" at whole
// second precision. Negative durations count as zero, and a zero result is
// reported as one second so no module appears to run for no time at all.
func FormatRuntime(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	hours, minutes, seconds := secs/3600, secs%3600/60, secs%60
	if hours == 0 && minutes == 0 && seconds == 0 {
		seconds = 1
	}
	return fmt.Sprintf("%02d hours : %02d minutes : %02d seconds", hours, minutes, seconds)
}
