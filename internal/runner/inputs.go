// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/modflow/modflow/internal/config"
	"github.com/modflow/modflow/internal/pipeline"
)

// ErrNoInputDir is returned when the pipeline input directory is missing.
var ErrNoInputDir = errors.New("pipeline input directory not found")

// Inputs selects the files fed to the first module and filters the files
// handed from one module to the next.
type Inputs struct {
	// Dir is the pipeline input directory.
	Dir string
	// Patterns are doublestar globs relative to Dir. Empty means "**".
	Patterns []string
	// Ignore lists base names that are never treated as inputs.
	Ignore []string
	// MetadataFile is the base name of the sample metadata file, if any.
	MetadataFile string
}

// InputsFromConfig returns the input selection described by cfg.
func InputsFromConfig(cfg config.PipelineConfig) Inputs {
	return Inputs{
		Dir:          cfg.InputDir,
		Patterns:     cfg.InputPatterns,
		Ignore:       cfg.InputIgnoreFiles,
		MetadataFile: cfg.MetadataFile,
	}
}

// Resolve returns the sorted absolute input paths of m. A module naming an
// input capability reads the output of the module fulfilling it. Otherwise
// modules whose output holds only the metadata file are skipped when walking
// back to the data producer, and the first module reads the pipeline input
// directory.
func (in Inputs) Resolve(reg *pipeline.Registry, m *pipeline.Module) ([]string, error) {
	src, err := reg.InputSource(m)
	if err != nil {
		return nil, err
	}
	if src != nil {
		return in.listOutput(src)
	}

	metadata := ""
	if in.MetadataFile != "" {
		metadata = filepath.Base(in.MetadataFile)
	}
	for prev := reg.Previous(m); prev != nil; prev = reg.Previous(prev) {
		meta, err := pipeline.IsMetadataModule(prev, metadata, in.Ignore)
		if err != nil {
			return nil, err
		}
		if !meta {
			return in.listOutput(prev)
		}
	}
	return in.initial()
}

func (in Inputs) initial() ([]string, error) {
	dir, err := filepath.Abs(in.Dir)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNoInputDir, in.Dir)
	}

	patterns := in.Patterns
	if len(patterns) == 0 {
		patterns = config.DefaultInputPatterns
	}
	fsys := os.DirFS(dir)
	var out []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("input pattern %q: %w", pattern, err)
		}
		for _, rel := range matches {
			if in.ignored(rel) {
				continue
			}
			out = append(out, filepath.Join(dir, filepath.FromSlash(rel)))
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func (in Inputs) listOutput(m *pipeline.Module) ([]string, error) {
	dir, err := filepath.Abs(m.OutputDir())
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list output of module %s: %w", m.ID, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || in.ignored(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}

func (in Inputs) ignored(rel string) bool {
	return slices.Contains(in.Ignore, filepath.Base(filepath.FromSlash(rel)))
}
