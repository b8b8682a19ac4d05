// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"github.com/modflow/modflow/pkg/types"
)

const (
	// ScriptDirName is the module subdirectory holding generated scripts and
	// per-worker success/failure marker files.
	ScriptDirName = "script"
	// OutputDirName is the module subdirectory holding files produced for the
	// next module in the pipeline.
	OutputDirName = "output"

	// CapabilityParser marks the singleton module that parses raw tool output
	// into count tables.
	CapabilityParser Capability = "parser"
	// CapabilityReport marks modules that summarize parsed tables.
	CapabilityReport Capability = "report"

	// OutputShell modules emit bash worker scripts.
	OutputShell OutputKind = "shell"
	// OutputInterpreted modules emit worker scripts for an interpreter such as
	// Rscript; their driver may carry either extension.
	OutputInterpreted OutputKind = "interpreted"

	// ShellExt is the extension of bash scripts.
	ShellExt = ".sh"
)

var (
	// ErrInvalidModuleID is the sentinel error wrapped by InvalidModuleIDError.
	ErrInvalidModuleID = errors.New("invalid module id")
	// ErrInvalidModule is the sentinel error wrapped by InvalidModuleError.
	ErrInvalidModule = errors.New("invalid module")

	moduleIDPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)
)

type (
	// ModuleID names one configured module. It becomes part of the module's
	// directory name, so it is restricted to letters, digits, '_' and '-'.
	ModuleID string

	// ModuleType names the kind of module (for example "command" or "count-parser").
	ModuleType string

	// Capability is a role a module fulfils that other components look up
	// without caring about the module's type.
	Capability string

	// OutputKind selects the flavor of scripts a module emits. It is set once
	// at construction and consulted instead of inspecting the module's type.
	OutputKind string

	// BuildFunc turns the input files of one batch into the ordered command
	// lines of that batch's worker script. The outer slice groups lines per
	// input unit; the groups are concatenated in order into one worker.
	BuildFunc func(inputs []string) ([][]string, error)

	// Interpreter describes how worker scripts of an OutputInterpreted module
	// are executed.
	Interpreter struct {
		// Command is the interpreter executable, e.g. "Rscript".
		Command string `json:"command" mapstructure:"command"`
		// Ext is the worker script extension including the dot, e.g. ".R".
		Ext string `json:"ext" mapstructure:"ext"`
	}

	// ScriptSettings is the validated script configuration of one module.
	ScriptSettings struct {
		// Permissions is applied to every generated script.
		Permissions types.Permissions
		// BatchSize is the maximum number of input files per worker script.
		BatchSize types.PositiveInt
		// NumThreads is exported to workers and used by RuntimeParams.
		NumThreads types.PositiveInt
		// Timeout is the launcher wall-clock limit in minutes; nil means unbounded.
		Timeout *types.PositiveInt
	}

	// Module is one executable unit of the pipeline: configuration plus an
	// injected build capability. The registry assigns its position and root.
	Module struct {
		ID            ModuleID
		Type          ModuleType
		Capabilities  []Capability
		Prerequisites []ModuleType

		// InputFrom names the capability whose module output this module
		// reads. Empty reads the output of the previous module.
		InputFrom   Capability
		Output      OutputKind
		Interpreter Interpreter
		Settings    ScriptSettings

		// Build produces worker command lines for unpaired input.
		Build BuildFunc
		// BuildPaired produces worker command lines when the pipeline runs in
		// paired-read mode. When nil, Build is used for both.
		BuildPaired BuildFunc
		// WorkerFunctions are shell function definitions emitted at the top of
		// every worker script, before the command lines.
		WorkerFunctions []string

		index   int
		ordinal string
		root    string
	}

	// InvalidModuleIDError is returned when a ModuleID is empty or contains
	// characters unsafe for a directory name.
	InvalidModuleIDError struct {
		Value ModuleID
	}

	// InvalidModuleError collects field-level validation errors of a Module.
	InvalidModuleError struct {
		ID          ModuleID
		FieldErrors []error
	}
)

// String returns the id as a plain string.
func (id ModuleID) String() string { return string(id) }

// IsValid returns whether the id is safe to use in a directory name.
func (id ModuleID) IsValid() (bool, []error) {
	if !moduleIDPattern.MatchString(string(id)) {
		return false, []error{&InvalidModuleIDError{Value: id}}
	}
	return true, nil
}

// Error implements the error interface for InvalidModuleIDError.
func (e *InvalidModuleIDError) Error() string {
	return fmt.Sprintf("invalid module id %q: must start with a letter and contain only letters, digits, '_' or '-'", e.Value)
}

// Unwrap returns ErrInvalidModuleID for errors.Is() compatibility.
func (e *InvalidModuleIDError) Unwrap() error { return ErrInvalidModuleID }

// Error implements the error interface for InvalidModuleError.
func (e *InvalidModuleError) Error() string {
	return fmt.Sprintf("invalid module %s: %v", e.ID, errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidModule for errors.Is() compatibility.
func (e *InvalidModuleError) Unwrap() error { return ErrInvalidModule }

// IsValid checks the module's identity, build capability and script settings.
// It is the dependency check every module passes before any script is generated.
func (m *Module) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := m.ID.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if m.Type == "" {
		errs = append(errs, fmt.Errorf("module type is required"))
	}
	if m.Build == nil {
		errs = append(errs, fmt.Errorf("build capability is required"))
	}
	if valid, fieldErrs := m.Settings.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	switch m.Output {
	case OutputShell:
	case OutputInterpreted:
		if m.Interpreter.Command == "" || m.Interpreter.Ext == "" {
			errs = append(errs, fmt.Errorf("interpreted output requires an interpreter command and extension"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown output kind %q", m.Output))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidModuleError{ID: m.ID, FieldErrors: errs}}
	}
	return true, nil
}

// IsValid checks permissions, batch size and thread count are set, and that
// the timeout, when present, is positive.
func (s ScriptSettings) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := s.Permissions.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := s.BatchSize.IsValid(); !valid {
		errs = append(errs, fmt.Errorf("batch size: %w", fieldErrs[0]))
	}
	if valid, fieldErrs := s.NumThreads.IsValid(); !valid {
		errs = append(errs, fmt.Errorf("thread count: %w", fieldErrs[0]))
	}
	if s.Timeout != nil {
		if valid, fieldErrs := s.Timeout.IsValid(); !valid {
			errs = append(errs, fmt.Errorf("timeout: %w", fieldErrs[0]))
		}
	}
	return len(errs) == 0, errs
}

// HasCapability reports whether the module fulfils c.
func (m *Module) HasCapability(c Capability) bool {
	return slices.Contains(m.Capabilities, c)
}

// BuildFor returns the build capability for the pipeline's read layout.
// Paired-read mode uses BuildPaired when the module supplies one.
func (m *Module) BuildFor(pairedReads bool) BuildFunc {
	if pairedReads && m.BuildPaired != nil {
		return m.BuildPaired
	}
	return m.Build
}

// WorkerExt returns the extension of the module's worker scripts.
func (m *Module) WorkerExt() string {
	if m.Output == OutputInterpreted {
		return m.Interpreter.Ext
	}
	return ShellExt
}

// Index returns the module's zero-based position in the configured order.
func (m *Module) Index() int { return m.index }

// Ordinal returns the zero-padded position assigned by the Registry.
func (m *Module) Ordinal() string { return m.ordinal }

// Root returns the module's root directory. It is empty until the module has
// been added to a Registry.
func (m *Module) Root() string { return m.root }

// DirName returns the base name of the module's root directory.
func (m *Module) DirName() string { return filepath.Base(m.root) }

// ScriptDir returns the path of the module's script subdirectory.
func (m *Module) ScriptDir() string { return filepath.Join(m.root, ScriptDirName) }

// OutputDir returns the path of the module's output subdirectory.
func (m *Module) OutputDir() string { return filepath.Join(m.root, OutputDirName) }

// SubDir returns the path of the named subdirectory and whether it exists.
func (m *Module) SubDir(name string) (string, bool) {
	dir := filepath.Join(m.root, name)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return dir, false
	}
	return dir, true
}

// RequireSubDir returns the path of the named subdirectory, creating it
// (and the module root) when absent.
func (m *Module) RequireSubDir(name string) (string, error) {
	dir := filepath.Join(m.root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s directory for module %s: %w", name, m.ID, err)
	}
	return dir, nil
}
