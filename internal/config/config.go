// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/modflow/modflow/internal/issue"
	"github.com/modflow/modflow/pkg/cueutil"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "modflow"
	// FileName is the config file looked up in the working directory.
	FileName = "pipeline.cue"
	// EnvPrefix prefixes environment overrides, e.g. MODFLOW_SCRIPT_BATCH_SIZE.
	EnvPrefix = "MODFLOW"

	schemaDefinition = "#Pipeline"
)

//go:embed pipeline_schema.cue
var pipelineSchema string

// envKeys are the settings that may be overridden from the environment.
// Module lists cannot be expressed as environment variables.
var envKeys = []string{
	"pipeline.name",
	"pipeline.input_dir",
	"pipeline.output_root",
	"pipeline.paired_reads",
	"pipeline.input_ignore_files",
	"pipeline.input_patterns",
	"pipeline.metadata_file",
	"pipeline.launcher",
	"script.permissions",
	"script.batch_size",
	"script.num_threads",
	"script.timeout",
}

// loadWithOptions reads, validates and decodes the pipeline configuration.
// It returns the configuration and the path it was read from.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("pipeline.input_patterns", defaults.Pipeline.InputPatterns)
	v.SetDefault("pipeline.launcher", defaults.Pipeline.Launcher)
	v.SetDefault("pipeline.paired_reads", defaults.Pipeline.PairedReads)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, "", fmt.Errorf("bind environment for %s: %w", key, err)
		}
	}

	path := opts.Path()
	if !fileExists(path) {
		return nil, path, issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Verify the file path passed to --config is correct").
			WithSuggestion("Run modflow from the directory holding " + FileName).
			WithSuggestion("Run 'modflow explain config-missing' for an example configuration").
			Wrap(fmt.Errorf("%w: config file not found: %s", ErrConfigMissing, path)).
			BuildError()
	}
	if err := loadCUEIntoViper(v, path); err != nil {
		return nil, path, issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Check that the file contains valid CUE syntax").
			WithSuggestion("Verify the configuration values match the expected schema").
			Wrap(err).
			BuildError()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, path, issue.NewErrorContext().
			WithOperation("decode configuration").
			WithResource(path).
			WithSuggestion("Check " + EnvPrefix + "_* environment variables for values of the wrong type").
			Wrap(fmt.Errorf("%w: %w", ErrConfigFormat, err)).
			BuildError()
	}

	if err := cfg.Validate(); err != nil {
		return nil, path, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithSuggestion(validationSuggestions(err)...).
			Wrap(err).
			BuildError()
	}

	return &cfg, path, nil
}

// loadCUEIntoViper validates the CUE file against #Pipeline and merges its
// contents into Viper, keeping defaults and environment overrides in effect.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: failed to read config file: %w", ErrConfigMissing, err)
	}

	configMap, err := cueutil.DecodeMap(pipelineSchema, schemaDefinition, data, path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfigFormat, err)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func validationSuggestions(err error) []string {
	var sugs []string
	if errors.Is(err, ErrConfigMissing) {
		sugs = append(sugs, "Set the missing keys in the config file or through "+EnvPrefix+"_* environment variables")
	}
	if errors.Is(err, ErrConfigFormat) {
		sugs = append(sugs, "Permissions are octal strings such as \"770\"; batch_size, num_threads and timeout are positive integers")
	}
	return sugs
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// GenerateCUE renders the configuration as a CUE file that loads back into
// the same configuration.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// modflow pipeline configuration\n\n")

	sb.WriteString("pipeline: {\n")
	if cfg.Pipeline.Name != "" {
		fmt.Fprintf(&sb, "\tname: %q\n", cfg.Pipeline.Name)
	}
	fmt.Fprintf(&sb, "\tinput_dir: %q\n", cfg.Pipeline.InputDir)
	fmt.Fprintf(&sb, "\toutput_root: %q\n", cfg.Pipeline.OutputRoot)
	fmt.Fprintf(&sb, "\tpaired_reads: %v\n", cfg.Pipeline.PairedReads)
	if len(cfg.Pipeline.InputIgnoreFiles) > 0 {
		fmt.Fprintf(&sb, "\tinput_ignore_files: %s\n", cueList(cfg.Pipeline.InputIgnoreFiles))
	}
	if len(cfg.Pipeline.InputPatterns) > 0 {
		fmt.Fprintf(&sb, "\tinput_patterns: %s\n", cueList(cfg.Pipeline.InputPatterns))
	}
	if cfg.Pipeline.MetadataFile != "" {
		fmt.Fprintf(&sb, "\tmetadata_file: %q\n", cfg.Pipeline.MetadataFile)
	}
	fmt.Fprintf(&sb, "\tlauncher: %q\n", cfg.Pipeline.Launcher)
	sb.WriteString("}\n")

	sb.WriteString("\nscript: ")
	writeScript(&sb, cfg.Script, "")

	sb.WriteString("\nmodules: [\n")
	for _, m := range cfg.Modules {
		sb.WriteString("\t{\n")
		fmt.Fprintf(&sb, "\t\ttype: %q\n", m.Type)
		if m.ID != "" {
			fmt.Fprintf(&sb, "\t\tid: %q\n", m.ID)
		}
		if m.Command != "" {
			fmt.Fprintf(&sb, "\t\tcommand: %q\n", m.Command)
		}
		if len(m.Params) > 0 {
			fmt.Fprintf(&sb, "\t\tparams: %s\n", cueList(m.Params))
		}
		if m.ThreadsFlag != "" {
			fmt.Fprintf(&sb, "\t\tthreads_flag: %q\n", m.ThreadsFlag)
		}
		if m.ScriptFile != "" {
			fmt.Fprintf(&sb, "\t\tscript_file: %q\n", m.ScriptFile)
		}
		if m.Interpreter != "" {
			fmt.Fprintf(&sb, "\t\tinterpreter: %q\n", m.Interpreter)
		}
		if m.Script != nil {
			sb.WriteString("\t\tscript: ")
			writeScript(&sb, *m.Script, "\t\t")
		}
		sb.WriteString("\t},\n")
	}
	sb.WriteString("]\n")

	return sb.String()
}

func writeScript(sb *strings.Builder, s ScriptConfig, indent string) {
	sb.WriteString("{\n")
	if s.Permissions != "" {
		fmt.Fprintf(sb, "%s\tpermissions: %q\n", indent, s.Permissions)
	}
	if s.BatchSize != 0 {
		fmt.Fprintf(sb, "%s\tbatch_size: %d\n", indent, s.BatchSize)
	}
	if s.NumThreads != 0 {
		fmt.Fprintf(sb, "%s\tnum_threads: %d\n", indent, s.NumThreads)
	}
	if s.Timeout != nil {
		fmt.Fprintf(sb, "%s\ttimeout: %d\n", indent, *s.Timeout)
	}
	sb.WriteString(indent + "}\n")
}

func cueList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
