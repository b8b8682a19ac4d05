// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/modflow/modflow/internal/dag"
)

var (
	// ErrMissingRequiredModule is the sentinel error wrapped by MissingRequiredModuleError.
	ErrMissingRequiredModule = errors.New("missing required module")
	// ErrPrerequisiteOrder is the sentinel error wrapped by PrerequisiteOrderError.
	ErrPrerequisiteOrder = errors.New("prerequisite configured after dependent module")
	// ErrDuplicateModuleID is returned when two configured modules share an id.
	ErrDuplicateModuleID = errors.New("duplicate module id")
	// ErrEmptyRegistry is returned when a pipeline has no modules configured.
	ErrEmptyRegistry = errors.New("no modules configured")
)

type (
	// Registry is the canonical, immutable module order of one pipeline
	// invocation. It is built once at pipeline start.
	Registry struct {
		outputRoot string
		modules    []*Module
		byID       map[ModuleID]*Module
	}

	// MissingRequiredModuleError reports that a required capability or
	// prerequisite module type is absent from the configured module list.
	// It is fatal and detected before any module runs.
	MissingRequiredModuleError struct {
		// Requirement is the capability or module type that was not found.
		Requirement string
		// RequiredBy names the module that declared the prerequisite; empty
		// for pipeline-wide capability lookups.
		RequiredBy ModuleID
	}

	// PrerequisiteOrderError reports a prerequisite configured after the
	// module that needs it.
	PrerequisiteOrderError struct {
		Module       ModuleID
		Prerequisite ModuleID
	}
)

// Error implements the error interface for MissingRequiredModuleError.
func (e *MissingRequiredModuleError) Error() string {
	if e.RequiredBy != "" {
		return fmt.Sprintf("unable to find required module %q (required by %s)", e.Requirement, e.RequiredBy)
	}
	return fmt.Sprintf("unable to find required module %q", e.Requirement)
}

// Unwrap returns ErrMissingRequiredModule for errors.Is() compatibility.
func (e *MissingRequiredModuleError) Unwrap() error { return ErrMissingRequiredModule }

// Error implements the error interface for PrerequisiteOrderError.
func (e *PrerequisiteOrderError) Error() string {
	return fmt.Sprintf("module %s must be configured after its prerequisite %s", e.Module, e.Prerequisite)
}

// Unwrap returns ErrPrerequisiteOrder for errors.Is() compatibility.
func (e *PrerequisiteOrderError) Unwrap() error { return ErrPrerequisiteOrder }

// NewRegistry validates the modules, assigns each its position and root
// directory under outputRoot, and checks declared prerequisites. No
// filesystem location is touched.
func NewRegistry(outputRoot string, modules []*Module) (*Registry, error) {
	if strings.TrimSpace(outputRoot) == "" {
		return nil, fmt.Errorf("pipeline output root is required")
	}
	if len(modules) == 0 {
		return nil, ErrEmptyRegistry
	}

	r := &Registry{
		outputRoot: outputRoot,
		modules:    make([]*Module, len(modules)),
		byID:       make(map[ModuleID]*Module, len(modules)),
	}
	copy(r.modules, modules)

	var errs []error
	for i, m := range r.modules {
		if m == nil {
			return nil, fmt.Errorf("module %d is nil", i)
		}
		if valid, fieldErrs := m.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
		if _, exists := r.byID[m.ID]; exists {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateModuleID, m.ID))
			continue
		}
		r.byID[m.ID] = m
		m.index = i
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	for _, m := range r.modules {
		m.ordinal = r.Ordinal(m)
		m.root = filepath.Join(outputRoot, m.ordinal+"_"+string(m.ID))
	}

	if err := r.checkPrerequisites(); err != nil {
		return nil, err
	}
	return r, nil
}

// checkPrerequisites resolves every declared prerequisite type to the first
// configured module of that type and rejects cycles. Prerequisites and input
// sources must run before their dependent.
func (r *Registry) checkPrerequisites() error {
	g := dag.New()
	for _, m := range r.modules {
		g.AddModule(string(m.ID))
		for _, prereqType := range m.Prerequisites {
			prereq := r.ByType(prereqType)
			if prereq == nil {
				return &MissingRequiredModuleError{Requirement: string(prereqType), RequiredBy: m.ID}
			}
			g.AddPrerequisite(string(prereq.ID), string(m.ID))
		}
	}
	if _, err := g.Order(); err != nil {
		return err
	}
	for _, m := range r.modules {
		for _, prereqID := range g.Prerequisites(string(m.ID)) {
			prereq := r.byID[ModuleID(prereqID)]
			if prereq.index > m.index {
				return &PrerequisiteOrderError{Module: m.ID, Prerequisite: prereq.ID}
			}
		}
		src, err := r.InputSource(m)
		if err != nil {
			var missing *MissingRequiredModuleError
			if errors.As(err, &missing) {
				missing.RequiredBy = m.ID
			}
			return err
		}
		if src != nil && src.index >= m.index {
			return &PrerequisiteOrderError{Module: m.ID, Prerequisite: src.ID}
		}
	}
	return nil
}

// OutputRoot returns the directory holding every module root.
func (r *Registry) OutputRoot() string { return r.outputRoot }

// Len returns the number of configured modules.
func (r *Registry) Len() int { return len(r.modules) }

// Modules returns the modules in configured execution order. The returned
// slice is a copy; the modules themselves are shared.
func (r *Registry) Modules() []*Module {
	out := make([]*Module, len(r.modules))
	copy(out, r.modules)
	return out
}

// Ordinal returns the zero-padded position of m. The width is the number of
// digits in the module count, so names sort lexically in execution order.
func (r *Registry) Ordinal(m *Module) string {
	width := len(strconv.Itoa(len(r.modules)))
	return fmt.Sprintf("%0*d", width, m.index)
}

// ByID returns the module with the given id, or nil.
func (r *Registry) ByID(id ModuleID) *Module {
	return r.byID[id]
}

// ByType returns the first configured module of type t, or nil.
func (r *Registry) ByType(t ModuleType) *Module {
	for _, m := range r.modules {
		if m.Type == t {
			return m
		}
	}
	return nil
}

// Require returns the first configured module fulfilling c. When more than
// one module claims c, the first configured wins.
func (r *Registry) Require(c Capability) (*Module, error) {
	for _, m := range r.modules {
		if m.HasCapability(c) {
			return m, nil
		}
	}
	return nil, &MissingRequiredModuleError{Requirement: string(c)}
}

// RequireParser returns the singleton module responsible for parsing raw
// tool output.
func (r *Registry) RequireParser() (*Module, error) {
	return r.Require(CapabilityParser)
}

// InputSource returns the module whose output m reads in place of the
// previous module's, or nil when m names no input capability.
func (r *Registry) InputSource(m *Module) (*Module, error) {
	switch m.InputFrom {
	case "":
		return nil, nil
	case CapabilityParser:
		return r.RequireParser()
	default:
		return r.Require(m.InputFrom)
	}
}

// Previous returns the module configured immediately before m, or nil when m
// is first or not part of this registry.
func (r *Registry) Previous(m *Module) *Module {
	if m == nil || r.byID[m.ID] != m || m.index == 0 {
		return nil
	}
	return r.modules[m.index-1]
}
