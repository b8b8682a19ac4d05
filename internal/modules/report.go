// SPDX-License-Identifier: MPL-2.0

package modules

import (
	"path/filepath"
	"strings"

	"github.com/modflow/modflow/internal/pipeline"
	"github.com/modflow/modflow/internal/scriptgen"
)

// SummaryExt is the extension of the per-sample summaries written by report modules.
const SummaryExt = ".summary.tsv"

// summaryProgram prints the sample, its number of features and its total
// count; the sample name is passed with -v.
const summaryProgram = `-F'\t' '{ total += $2 } END { print sample "\t" NR "\t" total + 0 }'`

// newReport builds a module summarizing the parser's count tables, one
// summary row per sample. It requires a count-parser earlier in the pipeline
// and reads that parser's output wherever it sits in the module order.
func newReport(spec Spec) (*pipeline.Module, error) {
	m := &pipeline.Module{
		ID:            spec.ID,
		Type:          TypeReport,
		Capabilities:  []pipeline.Capability{pipeline.CapabilityReport},
		Prerequisites: []pipeline.ModuleType{TypeCountParser},
		InputFrom:     pipeline.CapabilityParser,
		Output:        pipeline.OutputShell,
		Settings:      spec.Settings,
	}
	m.Build = func(inputs []string) ([][]string, error) {
		groups := make([][]string, 0, len(inputs))
		for _, in := range inputs {
			sample := strings.TrimSuffix(filepath.Base(in), CountsExt)
			src, err := scriptgen.Quote(in)
			if err != nil {
				return nil, err
			}
			name, err := scriptgen.Quote(sample)
			if err != nil {
				return nil, err
			}
			dst, err := scriptgen.Quote(filepath.Join(m.OutputDir(), sample+SummaryExt))
			if err != nil {
				return nil, err
			}
			groups = append(groups, []string{
				"awk -v sample=" + name + " " + summaryProgram + " " + src + " >" + dst,
			})
		}
		return groups, nil
	}
	return m, nil
}
