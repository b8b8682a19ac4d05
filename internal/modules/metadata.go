// SPDX-License-Identifier: MPL-2.0

package modules

import (
	"fmt"
	"path/filepath"

	"github.com/modflow/modflow/internal/config"
	"github.com/modflow/modflow/internal/pipeline"
	"github.com/modflow/modflow/internal/scriptgen"
)

// newMetadata builds a module that publishes the pipeline's sample metadata
// table in its output directory and nothing else, which is what makes
// pipeline.IsMetadataModule recognise it. Every worker installs the same
// table through a temporary file and a rename, so concurrent workers never
// leave a partial copy behind.
func newMetadata(spec Spec) (*pipeline.Module, error) {
	if spec.Pipeline.MetadataFile == "" {
		return nil, &config.MissingError{Key: fmt.Sprintf("pipeline.metadata_file (required by modules[%d])", spec.Index)}
	}
	source, err := filepath.Abs(spec.Pipeline.MetadataFile)
	if err != nil {
		return nil, err
	}

	m := &pipeline.Module{
		ID:       spec.ID,
		Type:     TypeMetadata,
		Output:   pipeline.OutputShell,
		Settings: spec.Settings,
	}
	m.Build = func([]string) ([][]string, error) {
		name := filepath.Base(source)
		src, err := scriptgen.Quote(source)
		if err != nil {
			return nil, err
		}
		dst, err := scriptgen.Quote(filepath.Join(m.OutputDir(), name))
		if err != nil {
			return nil, err
		}
		tmp, err := scriptgen.Quote(filepath.Join(m.OutputDir(), "."+name+".tmp."))
		if err != nil {
			return nil, err
		}
		return [][]string{{
			"tmp=" + tmp + "$$.$RANDOM",
			"cp -f " + src + ` "$tmp"`,
			`mv -f "$tmp" ` + dst,
		}}, nil
	}
	return m, nil
}
