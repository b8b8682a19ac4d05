// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"sync"
	"time"

	"github.com/modflow/modflow/internal/pipeline"
)

// Memory is an in-memory Tracker for tests. It follows the same transition
// rules as FS without touching the filesystem. FailOn makes the next write
// of the named marker fail with a MarkerIOError.
type Memory struct {
	mu      sync.Mutex
	clock   Clock
	started map[pipeline.ModuleID]time.Time
	done    map[pipeline.ModuleID]bool
	failOn  map[string]bool
}

// NewMemory returns an empty in-memory tracker. A nil clock uses wall time.
func NewMemory(clock Clock) *Memory {
	if clock == nil {
		clock = realClock{}
	}
	return &Memory{
		clock:   clock,
		started: make(map[pipeline.ModuleID]time.Time),
		done:    make(map[pipeline.ModuleID]bool),
		failOn:  make(map[string]bool),
	}
}

// FailOn arranges for the next write of marker to fail.
func (t *Memory) FailOn(marker string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failOn[marker] = true
}

// MarkStarted implements Tracker.
func (t *Memory) MarkStarted(m *pipeline.Module) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.injected(StartedMarker, m); err != nil {
		return err
	}
	t.started[m.ID] = t.clock.Now()
	return nil
}

// MarkComplete implements Tracker.
func (t *Memory) MarkComplete(m *pipeline.Module) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.injected(CompleteMarker, m); err != nil {
		return err
	}
	t.done[m.ID] = true
	delete(t.started, m.ID)
	return nil
}

// State implements Tracker. As with FS, a started marker wins over a
// completed one.
func (t *Memory) State(m *pipeline.Module) (State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.started[m.ID]; ok {
		return StartedIncomplete, nil
	}
	if t.done[m.ID] {
		return Complete, nil
	}
	return NotStarted, nil
}

// StartTime implements Tracker.
func (t *Memory) StartTime(m *pipeline.Module) (time.Time, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	start, ok := t.started[m.ID]
	return start, ok, nil
}

func (t *Memory) injected(marker string, m *pipeline.Module) error {
	if !t.failOn[marker] {
		return nil
	}
	delete(t.failOn, marker)
	return &MarkerIOError{Marker: marker, Path: m.Root()}
}
