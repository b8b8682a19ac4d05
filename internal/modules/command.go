// SPDX-License-Identifier: MPL-2.0

package modules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/modflow/modflow/internal/config"
	"github.com/modflow/modflow/internal/pipeline"
	"github.com/modflow/modflow/internal/scriptgen"
)

// Placeholders expanded in a command template. Path and sample values are
// quoted as single shell words; {params} is inserted verbatim.
const (
	PlaceholderInput     = "{input}"
	PlaceholderInput2    = "{input2}"
	PlaceholderInputs    = "{inputs}"
	PlaceholderSample    = "{sample}"
	PlaceholderOutputDir = "{output_dir}"
	PlaceholderParams    = "{params}"
	PlaceholderThreads   = "{threads}"
)

// commandTemplate renders one command line per input unit.
type commandTemplate struct {
	module   *pipeline.Module
	template string
	params   string
}

// newCommand builds a module running a user supplied command template once
// per input file, or once per read pair in paired-read mode.
func newCommand(spec Spec) (*pipeline.Module, error) {
	if strings.TrimSpace(spec.Config.Command) == "" {
		return nil, &config.MissingError{Key: fmt.Sprintf("modules[%d].command", spec.Index)}
	}

	m := &pipeline.Module{
		ID:       spec.ID,
		Type:     TypeCommand,
		Output:   pipeline.OutputShell,
		Settings: spec.Settings,
	}
	tmpl := &commandTemplate{
		module:   m,
		template: spec.Config.Command,
		params:   scriptgen.RuntimeParams(spec.Config.ThreadsFlag, spec.Settings.NumThreads.Int(), spec.Config.Params),
	}
	m.Build = tmpl.buildSingle
	m.BuildPaired = tmpl.buildPaired
	return m, nil
}

func (c *commandTemplate) buildSingle(inputs []string) ([][]string, error) {
	groups := make([][]string, 0, len(inputs))
	for _, in := range inputs {
		line, err := c.render([]string{in}, false)
		if err != nil {
			return nil, err
		}
		groups = append(groups, []string{line})
	}
	return groups, nil
}

func (c *commandTemplate) buildPaired(inputs []string) ([][]string, error) {
	units := scriptgen.PairReads(inputs)
	groups := make([][]string, 0, len(units))
	for _, unit := range units {
		line, err := c.render(unit, true)
		if err != nil {
			return nil, err
		}
		groups = append(groups, []string{line})
	}
	return groups, nil
}

func (c *commandTemplate) render(unit []string, paired bool) (string, error) {
	all, err := scriptgen.QuoteAll(unit)
	if err != nil {
		return "", err
	}
	second := "''"
	if len(all) > 1 {
		second = all[1]
	}
	sample, err := scriptgen.Quote(SampleName(unit[0], paired))
	if err != nil {
		return "", err
	}
	outDir, err := scriptgen.Quote(c.module.OutputDir())
	if err != nil {
		return "", err
	}

	r := strings.NewReplacer(
		PlaceholderInputs, strings.Join(all, " "),
		PlaceholderInput2, second,
		PlaceholderInput, all[0],
		PlaceholderSample, sample,
		PlaceholderOutputDir, outDir,
		PlaceholderParams, c.params,
		PlaceholderThreads, strconv.Itoa(c.module.Settings.NumThreads.Int()),
	)
	return strings.TrimSpace(r.Replace(c.template)), nil
}
