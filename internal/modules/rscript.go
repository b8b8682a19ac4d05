// SPDX-License-Identifier: MPL-2.0

package modules

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/modflow/modflow/internal/config"
	"github.com/modflow/modflow/internal/pipeline"
)

const (
	// DefaultInterpreter runs the worker scripts of rscript modules.
	DefaultInterpreter = "Rscript"
	// RExt is the worker script extension of rscript modules.
	RExt = ".R"
	// RSampleFunction must be defined by the sourced script_file. It is
	// called once per input as run_sample(input, output_dir, threads).
	RSampleFunction = "run_sample"
)

// newRscript builds a module whose workers are R scripts. Every worker
// sources script_file and calls run_sample for each input of its batch.
func newRscript(spec Spec) (*pipeline.Module, error) {
	if strings.TrimSpace(spec.Config.ScriptFile) == "" {
		return nil, &config.MissingError{Key: fmt.Sprintf("modules[%d].script_file", spec.Index)}
	}
	scriptFile, err := filepath.Abs(spec.Config.ScriptFile)
	if err != nil {
		return nil, err
	}
	interpreter := spec.Config.Interpreter
	if interpreter == "" {
		interpreter = DefaultInterpreter
	}

	m := &pipeline.Module{
		ID:              spec.ID,
		Type:            TypeRscript,
		Output:          pipeline.OutputInterpreted,
		Interpreter:     pipeline.Interpreter{Command: interpreter, Ext: RExt},
		Settings:        spec.Settings,
		WorkerFunctions: []string{"source(" + rString(scriptFile) + ")"},
	}
	m.Build = func(inputs []string) ([][]string, error) {
		groups := make([][]string, 0, len(inputs))
		for _, in := range inputs {
			groups = append(groups, []string{fmt.Sprintf("%s(%s, %s, %dL)",
				RSampleFunction, rString(in), rString(m.OutputDir()), m.Settings.NumThreads.Int())})
		}
		return groups, nil
	}
	return m, nil
}

// rString renders s as an R string literal. R accepts the escapes produced
// by strconv.Quote for printable and control characters alike.
func rString(s string) string {
	return strconv.Quote(s)
}
