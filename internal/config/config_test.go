// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modflow/modflow/internal/issue"
	"github.com/modflow/modflow/internal/testutil"
)

const validPipeline = `
pipeline: {
	name:        "rnaseq"
	input_dir:   "raw"
	output_root: "out"
	input_ignore_files: ["README.txt"]
	metadata_file: "samples.tsv"
}

script: {
	permissions: "770"
	batch_size:  4
	num_threads: 2
}

modules: [
	{type: "command", id: "Trim", command: "trim {input} {output_dir}", threads_flag: "-p", params: ["-q", "20"]},
	{type: "count-parser"},
	{type: "report", script: {batch_size: 100, timeout: 30}},
]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	testutil.MustWriteFile(t, path, content)
	return path
}

func TestLoad_ValidPipeline(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, validPipeline)
	cfg, resolved, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if resolved != path {
		t.Errorf("resolved path = %q, want %q", resolved, path)
	}

	if cfg.Pipeline.Name != "rnaseq" || cfg.Pipeline.InputDir != "raw" || cfg.Pipeline.OutputRoot != "out" {
		t.Errorf("pipeline = %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.Launcher != LauncherNative {
		t.Errorf("launcher default = %q, want %q", cfg.Pipeline.Launcher, LauncherNative)
	}
	if len(cfg.Pipeline.InputPatterns) != 1 || cfg.Pipeline.InputPatterns[0] != "**" {
		t.Errorf("input_patterns default = %v, want [**]", cfg.Pipeline.InputPatterns)
	}
	if cfg.Pipeline.PairedReads {
		t.Error("paired_reads should default to false")
	}
	if cfg.Script.Permissions != "770" || cfg.Script.BatchSize != 4 || cfg.Script.NumThreads != 2 {
		t.Errorf("script = %+v", cfg.Script)
	}
	if cfg.Script.Timeout != nil {
		t.Errorf("timeout should be unbounded, got %d", *cfg.Script.Timeout)
	}

	if len(cfg.Modules) != 3 {
		t.Fatalf("modules = %d, want 3", len(cfg.Modules))
	}
	trim := cfg.Modules[0]
	if trim.Type != "command" || trim.ID != "Trim" || trim.ThreadsFlag != "-p" {
		t.Errorf("modules[0] = %+v", trim)
	}
	if strings.Join(trim.Params, " ") != "-q 20" {
		t.Errorf("modules[0].params = %v", trim.Params)
	}

	report := cfg.Settings(2)
	if report.BatchSize != 100 || report.NumThreads != 2 || report.Permissions != "770" {
		t.Errorf("report settings = %+v", report)
	}
	if report.Timeout == nil || *report.Timeout != 30 {
		t.Errorf("report timeout = %v, want 30", report.Timeout)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "absent.cue")
	_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: path})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, ErrConfigMissing) {
		t.Errorf("error should wrap ErrConfigMissing, got: %v", err)
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("error should be *issue.ActionableError, got %T", err)
	}
	if ae.Resource != path || len(ae.Suggestions) == 0 {
		t.Errorf("actionable error = %+v", ae)
	}
}

func TestLoad_DefaultsToBaseDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, FileName), validPipeline)

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{BaseDir: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Pipeline.Name != "rnaseq" {
		t.Errorf("name = %q", cfg.Pipeline.Name)
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		field   string
	}{
		{
			name:    "non octal permissions",
			content: strings.Replace(validPipeline, `permissions: "770"`, `permissions: "rwx"`, 1),
			field:   "permissions",
		},
		{
			name:    "zero batch size",
			content: strings.Replace(validPipeline, "batch_size:  4", "batch_size:  0", 1),
			field:   "batch_size",
		},
		{
			name:    "negative timeout",
			content: strings.Replace(validPipeline, "timeout: 30", "timeout: -5", 1),
			field:   "timeout",
		},
		{
			name:    "unknown module type",
			content: strings.Replace(validPipeline, `{type: "count-parser"}`, `{type: "aligner"}`, 1),
			field:   "type",
		},
		{
			name:    "unknown launcher",
			content: strings.Replace(validPipeline, `name:        "rnaseq"`, `launcher: "slurm"`, 1),
			field:   "launcher",
		},
		{
			name:    "unknown top-level key",
			content: validPipeline + "\nextra: true\n",
			field:   "extra",
		},
		{
			name:    "invalid syntax",
			content: "pipeline: {",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeConfig(t, tt.content)
			_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: path})
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrConfigFormat) {
				t.Errorf("error should wrap ErrConfigFormat, got: %v", err)
			}
			if tt.field != "" && !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error should mention %q, got: %v", tt.field, err)
			}
		})
	}
}

func TestLoad_MissingRequiredSettings(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
pipeline: {input_dir: "raw"}
script: {batch_size: 2}
modules: [{type: "command", command: "true"}]
`)
	_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: path})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrConfigMissing) {
		t.Errorf("error should wrap ErrConfigMissing, got: %v", err)
	}
	for _, key := range []string{"pipeline.output_root", "script.permissions", "script.num_threads"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error should mention %s, got: %v", key, err)
		}
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("MODFLOW_SCRIPT_BATCH_SIZE", "9")
	t.Setenv("MODFLOW_SCRIPT_TIMEOUT", "15")
	t.Setenv("MODFLOW_PIPELINE_LAUNCHER", "virtual")
	t.Setenv("MODFLOW_PIPELINE_PAIRED_READS", "true")

	path := writeConfig(t, validPipeline)
	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if cfg.Script.BatchSize != 9 {
		t.Errorf("batch_size = %d, want 9", cfg.Script.BatchSize)
	}
	if cfg.Script.Timeout == nil || *cfg.Script.Timeout != 15 {
		t.Errorf("timeout = %v, want 15", cfg.Script.Timeout)
	}
	if cfg.Pipeline.Launcher != LauncherVirtual {
		t.Errorf("launcher = %q, want virtual", cfg.Pipeline.Launcher)
	}
	if !cfg.Pipeline.PairedReads {
		t.Error("paired_reads should be overridden to true")
	}
	// Module overrides still win over the environment.
	if got := cfg.Settings(2).BatchSize; got != 100 {
		t.Errorf("report batch_size = %d, want 100", got)
	}
}

func TestLoad_EnvironmentSuppliesMissingSetting(t *testing.T) {
	t.Setenv("MODFLOW_PIPELINE_OUTPUT_ROOT", "/data/out")

	path := writeConfig(t, strings.Replace(validPipeline, `output_root: "out"`, "", 1))
	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if cfg.Pipeline.OutputRoot != "/data/out" {
		t.Errorf("output_root = %q", cfg.Pipeline.OutputRoot)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := loadWithOptions(ctx, LoadOptions{ConfigFilePath: writeConfig(t, validPipeline)}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, validPipeline)
	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}

	rendered := GenerateCUE(cfg)
	again, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: writeConfig(t, rendered)})
	if err != nil {
		t.Fatalf("rendered config does not load: %v\n%s", err, rendered)
	}
	if GenerateCUE(again) != rendered {
		t.Errorf("rendering is not stable:\n%s\n---\n%s", rendered, GenerateCUE(again))
	}
}
