// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/modflow/modflow/pkg/types"
)

const (
	// LauncherNative runs driver scripts with the host bash.
	LauncherNative = "native"
	// LauncherVirtual runs driver scripts in the embedded mvdan/sh interpreter.
	LauncherVirtual = "virtual"
)

var (
	// ErrConfigMissing is returned when a required setting is absent.
	ErrConfigMissing = errors.New("missing configuration")
	// ErrConfigFormat is returned when a setting is present but malformed.
	ErrConfigFormat = errors.New("malformed configuration")

	// DefaultInputPatterns selects every file below the input directory.
	DefaultInputPatterns = []string{"**"}
)

type (
	// Config is the complete pipeline configuration.
	Config struct {
		Pipeline PipelineConfig `json:"pipeline" mapstructure:"pipeline"`
		Script   ScriptConfig   `json:"script" mapstructure:"script"`
		Modules  []ModuleConfig `json:"modules" mapstructure:"modules"`
	}

	// PipelineConfig holds pipeline-wide settings.
	PipelineConfig struct {
		// Name labels the pipeline in logs and summaries.
		Name string `json:"name" mapstructure:"name"`
		// InputDir holds the raw input files of the first module.
		InputDir string `json:"input_dir" mapstructure:"input_dir"`
		// OutputRoot holds one directory per module.
		OutputRoot string `json:"output_root" mapstructure:"output_root"`
		// PairedReads switches every module to its paired-read build routine.
		PairedReads bool `json:"paired_reads" mapstructure:"paired_reads"`
		// InputIgnoreFiles are base names never treated as module inputs.
		InputIgnoreFiles []string `json:"input_ignore_files" mapstructure:"input_ignore_files"`
		// InputPatterns are doublestar globs, relative to InputDir, that
		// select the first module's inputs.
		InputPatterns []string `json:"input_patterns" mapstructure:"input_patterns"`
		// MetadataFile is the sample metadata table copied by metadata modules.
		MetadataFile string `json:"metadata_file" mapstructure:"metadata_file"`
		// Launcher selects how driver scripts are executed.
		Launcher string `json:"launcher" mapstructure:"launcher"`
	}

	// ScriptConfig holds script generation settings. The zero value of a
	// field means "not set", so the same type serves as a module override.
	ScriptConfig struct {
		Permissions string `json:"permissions" mapstructure:"permissions"`
		BatchSize   int    `json:"batch_size" mapstructure:"batch_size"`
		NumThreads  int    `json:"num_threads" mapstructure:"num_threads"`
		// Timeout is in minutes; nil means unbounded.
		Timeout *int `json:"timeout,omitempty" mapstructure:"timeout"`
	}

	// ModuleConfig configures one module. Fields other than Type, ID and
	// Script only apply to some module types.
	ModuleConfig struct {
		Type   string        `json:"type" mapstructure:"type"`
		ID     string        `json:"id,omitempty" mapstructure:"id"`
		Script *ScriptConfig `json:"script,omitempty" mapstructure:"script"`

		Command     string   `json:"command,omitempty" mapstructure:"command"`
		Params      []string `json:"params,omitempty" mapstructure:"params"`
		ThreadsFlag string   `json:"threads_flag,omitempty" mapstructure:"threads_flag"`

		ScriptFile  string `json:"script_file,omitempty" mapstructure:"script_file"`
		Interpreter string `json:"interpreter,omitempty" mapstructure:"interpreter"`
	}

	// MissingError reports a required setting that is absent.
	MissingError struct {
		Key string
	}

	// FormatError reports a setting whose value is malformed.
	FormatError struct {
		Key    string
		Value  any
		Reason string
	}
)

// DefaultConfig returns the configuration defaults. Required settings are
// left unset.
func DefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			InputPatterns: slices.Clone(DefaultInputPatterns),
			Launcher:      LauncherNative,
		},
	}
}

// Error implements the error interface for MissingError.
func (e *MissingError) Error() string {
	return fmt.Sprintf("%s is required", e.Key)
}

// Unwrap returns ErrConfigMissing for errors.Is() compatibility.
func (e *MissingError) Unwrap() error { return ErrConfigMissing }

// Error implements the error interface for FormatError.
func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: invalid value %v: %s", e.Key, e.Value, e.Reason)
}

// Unwrap returns ErrConfigFormat for errors.Is() compatibility.
func (e *FormatError) Unwrap() error { return ErrConfigFormat }

// Merge returns s with every field set in override replacing its value.
func (s ScriptConfig) Merge(override *ScriptConfig) ScriptConfig {
	if override == nil {
		return s
	}
	if override.Permissions != "" {
		s.Permissions = override.Permissions
	}
	if override.BatchSize != 0 {
		s.BatchSize = override.BatchSize
	}
	if override.NumThreads != 0 {
		s.NumThreads = override.NumThreads
	}
	if override.Timeout != nil {
		t := *override.Timeout
		s.Timeout = &t
	}
	return s
}

// Settings returns the script settings of the module at index i with the
// module's overrides applied.
func (c *Config) Settings(i int) ScriptConfig {
	return c.Script.Merge(c.Modules[i].Script)
}

// Validate checks every setting and returns all problems at once, joined.
// Each problem wraps ErrConfigMissing or ErrConfigFormat.
func (c *Config) Validate() error {
	var errs []error
	if c.Pipeline.InputDir == "" {
		errs = append(errs, &MissingError{Key: "pipeline.input_dir"})
	}
	if c.Pipeline.OutputRoot == "" {
		errs = append(errs, &MissingError{Key: "pipeline.output_root"})
	}
	switch c.Pipeline.Launcher {
	case LauncherNative, LauncherVirtual:
	default:
		errs = append(errs, &FormatError{Key: "pipeline.launcher", Value: c.Pipeline.Launcher, Reason: "must be native or virtual"})
	}
	if len(c.Modules) == 0 {
		errs = append(errs, &MissingError{Key: "modules"})
	}
	seen := make(map[string]bool)
	for i, m := range c.Modules {
		if m.Type == "" {
			errs = append(errs, &MissingError{Key: fmt.Sprintf("modules[%d].type", i)})
		}
		for _, err := range validateScript(c.Settings(i), scriptKey(i, m.Script)) {
			if !seen[err.Error()] {
				seen[err.Error()] = true
				errs = append(errs, err)
			}
		}
	}
	if len(c.Modules) == 0 {
		errs = append(errs, validateScript(c.Script, scriptKey(-1, nil))...)
	}
	return errors.Join(errs...)
}

// scriptKey names a script field as it appears in the file: under the
// module's own script block when the module overrides it, otherwise under
// the top-level script block.
func scriptKey(i int, override *ScriptConfig) func(field string) string {
	return func(field string) string {
		if override != nil {
			set := false
			switch field {
			case "permissions":
				set = override.Permissions != ""
			case "batch_size":
				set = override.BatchSize != 0
			case "num_threads":
				set = override.NumThreads != 0
			case "timeout":
				set = override.Timeout != nil
			}
			if set {
				return fmt.Sprintf("modules[%d].script.%s", i, field)
			}
		}
		return "script." + field
	}
}

// validateScript checks the effective settings of one module.
func validateScript(s ScriptConfig, key func(field string) string) []error {
	var errs []error
	switch {
	case s.Permissions == "":
		errs = append(errs, &MissingError{Key: key("permissions")})
	default:
		if valid, _ := types.Permissions(s.Permissions).IsValid(); !valid {
			errs = append(errs, &FormatError{Key: key("permissions"), Value: s.Permissions, Reason: "must be an octal mode such as 770"})
		}
	}
	errs = append(errs, validateCount(key("batch_size"), s.BatchSize)...)
	errs = append(errs, validateCount(key("num_threads"), s.NumThreads)...)
	if s.Timeout != nil && *s.Timeout <= 0 {
		errs = append(errs, &FormatError{Key: key("timeout"), Value: *s.Timeout, Reason: "must be a positive number of minutes"})
	}
	return errs
}

func validateCount(key string, n int) []error {
	switch {
	case n == 0:
		return []error{&MissingError{Key: key}}
	case n < 0:
		return []error{&FormatError{Key: key, Value: n, Reason: "must be a positive integer"}}
	}
	return nil
}
