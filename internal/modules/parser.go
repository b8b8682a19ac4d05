// SPDX-License-Identifier: MPL-2.0

package modules

import (
	"path/filepath"

	"github.com/modflow/modflow/internal/pipeline"
	"github.com/modflow/modflow/internal/scriptgen"
)

// CountsExt is the extension of the count tables written by the parser.
const CountsExt = ".counts.tsv"

// countProgram tallies the first tab-separated column of a tool output file.
const countProgram = `-F'\t' 'NF && $1 !~ /^#/ { n[$1]++ } END { for (k in n) print k "\t" n[k] }'`

// newCountParser builds the singleton parser module. It turns every raw tool
// output file into a sorted two-column count table named after its sample.
func newCountParser(spec Spec) (*pipeline.Module, error) {
	m := &pipeline.Module{
		ID:           spec.ID,
		Type:         TypeCountParser,
		Capabilities: []pipeline.Capability{pipeline.CapabilityParser},
		Output:       pipeline.OutputShell,
		Settings:     spec.Settings,
	}
	paired := spec.Pipeline.PairedReads
	m.Build = func(inputs []string) ([][]string, error) {
		groups := make([][]string, 0, len(inputs))
		for _, in := range inputs {
			src, err := scriptgen.Quote(in)
			if err != nil {
				return nil, err
			}
			dst, err := scriptgen.Quote(filepath.Join(m.OutputDir(), SampleName(in, paired)+CountsExt))
			if err != nil {
				return nil, err
			}
			groups = append(groups, []string{"awk " + countProgram + " " + src + " | sort -k1,1 >" + dst})
		}
		return groups, nil
	}
	return m, nil
}
