// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"github.com/modflow/modflow/internal/lifecycle"
	"github.com/modflow/modflow/internal/pipeline"
	"github.com/modflow/modflow/internal/scriptdir"
)

type (
	// Summary is the outcome of one pipeline pass or status inspection.
	Summary struct {
		OutputRoot string         `json:"output_root" yaml:"output_root"`
		Modules    []ModuleReport `json:"modules" yaml:"modules"`
		// Elapsed is the total runtime of the pass; empty for status.
		Elapsed string `json:"elapsed,omitempty" yaml:"elapsed,omitempty"`
	}

	// ModuleReport describes one module in a Summary.
	ModuleReport struct {
		ID       pipeline.ModuleID   `json:"id" yaml:"id"`
		Type     pipeline.ModuleType `json:"type" yaml:"type"`
		Dir      string              `json:"dir" yaml:"dir"`
		State    lifecycle.State     `json:"state" yaml:"state"`
		Skipped  bool                `json:"skipped,omitempty" yaml:"skipped,omitempty"`
		Note     string              `json:"note,omitempty" yaml:"note,omitempty"`
		Inputs   int                 `json:"inputs" yaml:"inputs"`
		Runtime  string              `json:"runtime,omitempty" yaml:"runtime,omitempty"`
		Scripts  scriptdir.Summary   `json:"scripts" yaml:"scripts"`
		Failures []scriptdir.Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
	}
)

func newReport(m *pipeline.Module) ModuleReport {
	return ModuleReport{ID: m.ID, Type: m.Type, Dir: m.DirName()}
}

// Complete reports whether every module in the summary is complete.
func (s *Summary) Complete() bool {
	return len(s.Incomplete()) == 0
}

// Incomplete returns the modules that are not complete, in pipeline order.
func (s *Summary) Incomplete() []pipeline.ModuleID {
	var out []pipeline.ModuleID
	for _, m := range s.Modules {
		if m.State != lifecycle.Complete {
			out = append(out, m.ID)
		}
	}
	return out
}

// Failures returns the failure lines of every module, prefixed with the
// module id.
func (s *Summary) Failures() []string {
	var out []string
	for _, m := range s.Modules {
		for _, f := range m.Failures {
			out = append(out, string(m.ID)+": "+f.String())
		}
	}
	return out
}
