// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"github.com/modflow/modflow/internal/lifecycle"
	"github.com/modflow/modflow/internal/pipeline"
	"github.com/modflow/modflow/internal/scriptdir"
)

// Status inspects every module without running or modifying anything.
// Started-incomplete modules report how long ago they started.
func Status(reg *pipeline.Registry, tracker lifecycle.Tracker, clock lifecycle.Clock) (*Summary, error) {
	sum := &Summary{OutputRoot: reg.OutputRoot()}
	for _, m := range reg.Modules() {
		rep := newReport(m)
		state, err := tracker.State(m)
		if err != nil {
			return nil, err
		}
		rep.State = state
		if state == lifecycle.StartedIncomplete {
			if rep.Runtime, err = lifecycle.Runtime(tracker, m, clock); err != nil {
				return nil, err
			}
		}
		if rep.Scripts, err = scriptdir.Summarize(m); err != nil {
			return nil, err
		}
		if rep.Failures, err = scriptdir.ModuleFailures(m); err != nil {
			return nil, err
		}
		sum.Modules = append(sum.Modules, rep)
	}
	return sum, nil
}
