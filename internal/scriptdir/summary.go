// SPDX-License-Identifier: MPL-2.0

package scriptdir

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/modflow/modflow/internal/pipeline"
)

// Summary counts the artifacts in one script directory.
type Summary struct {
	Driver    string `json:"driver,omitempty" yaml:"driver,omitempty"`
	Workers   int    `json:"workers" yaml:"workers"`
	Started   int    `json:"started" yaml:"started"`
	Succeeded int    `json:"succeeded" yaml:"succeeded"`
	Failed    int    `json:"failed" yaml:"failed"`
}

// Summarize counts m's worker scripts and their status files.
func Summarize(m *pipeline.Module) (Summary, error) {
	var s Summary
	entries, err := os.ReadDir(m.ScriptDir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("list script directory of %s: %w", m.ID, err)
	}

	workerExt := m.WorkerExt()
	for _, e := range entries {
		name := e.Name()
		switch {
		case e.IsDir():
		case strings.HasSuffix(name, FailureSuffix):
			s.Failed++
		case strings.HasSuffix(name, SuccessSuffix):
			s.Succeeded++
		case strings.HasSuffix(name, StartedSuffix):
			s.Started++
		case IsReserved(name):
		case strings.HasPrefix(name, DriverPrefix):
			if s.Driver == "" {
				s.Driver = name
			}
		case strings.HasSuffix(name, workerExt):
			s.Workers++
		}
	}
	return s, nil
}

// String renders the summary as one line for the pipeline summary.
func (s Summary) String() string {
	if s.Driver == "" {
		return "no scripts generated"
	}
	return fmt.Sprintf("%d worker scripts: %d succeeded, %d failed, %d pending",
		s.Workers, s.Succeeded, s.Failed, s.Pending())
}

// Pending returns the number of workers without a success or failure file.
func (s Summary) Pending() int {
	n := s.Workers - s.Succeeded - s.Failed
	if n < 0 {
		return 0
	}
	return n
}
