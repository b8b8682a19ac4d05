// SPDX-License-Identifier: MPL-2.0

package modules

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/modflow/modflow/internal/config"
	"github.com/modflow/modflow/internal/pipeline"
	"github.com/modflow/modflow/pkg/types"
)

// Module type names accepted in the modules list of a pipeline.
const (
	TypeCommand     pipeline.ModuleType = "command"
	TypeCountParser pipeline.ModuleType = "count-parser"
	TypeRscript     pipeline.ModuleType = "rscript"
	TypeReport      pipeline.ModuleType = "report"
	TypeMetadata    pipeline.ModuleType = "metadata"
)

// ErrUnknownType is the sentinel error wrapped by UnknownTypeError.
var ErrUnknownType = errors.New("unknown module type")

type (
	// Spec is everything a Factory needs to construct one module.
	Spec struct {
		// Index is the module's position in the modules list.
		Index    int
		ID       pipeline.ModuleID
		Config   config.ModuleConfig
		Settings pipeline.ScriptSettings
		Pipeline config.PipelineConfig
	}

	// Factory constructs a module of one type. The returned module's build
	// capability may only use its root directory once a pipeline.Registry
	// has assigned it.
	Factory func(spec Spec) (*pipeline.Module, error)

	// Catalog maps module type names to factories.
	Catalog struct {
		factories map[pipeline.ModuleType]Factory
	}

	// UnknownTypeError is returned when a module's type is not in the catalog.
	UnknownTypeError struct {
		Index int
		Type  string
	}
)

// Error implements the error interface for UnknownTypeError.
func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("modules[%d].type: unknown module type %q", e.Index, e.Type)
}

// Unwrap returns ErrUnknownType and config.ErrConfigFormat so callers can
// classify the problem either way.
func (e *UnknownTypeError) Unwrap() []error {
	return []error{ErrUnknownType, config.ErrConfigFormat}
}

// NewCatalog creates a catalog with every built-in module type.
func NewCatalog() *Catalog {
	c := &Catalog{factories: make(map[pipeline.ModuleType]Factory)}
	c.Register(TypeCommand, newCommand)
	c.Register(TypeCountParser, newCountParser)
	c.Register(TypeRscript, newRscript)
	c.Register(TypeReport, newReport)
	c.Register(TypeMetadata, newMetadata)
	return c
}

// Register adds or replaces the factory for a module type.
func (c *Catalog) Register(t pipeline.ModuleType, f Factory) {
	c.factories[t] = f
}

// Types returns the registered module types, sorted.
func (c *Catalog) Types() []pipeline.ModuleType {
	out := make([]pipeline.ModuleType, 0, len(c.factories))
	for t := range c.factories {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Build constructs the configured modules in order. All construction
// problems are reported together.
func (c *Catalog) Build(cfg *config.Config) ([]*pipeline.Module, error) {
	ids := AssignIDs(cfg.Modules)
	var (
		out  []*pipeline.Module
		errs []error
	)
	for i, mc := range cfg.Modules {
		factory, ok := c.factories[pipeline.ModuleType(mc.Type)]
		if !ok {
			errs = append(errs, &UnknownTypeError{Index: i, Type: mc.Type})
			continue
		}
		m, err := factory(Spec{
			Index:    i,
			ID:       ids[i],
			Config:   mc,
			Settings: Settings(cfg.Settings(i)),
			Pipeline: cfg.Pipeline,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, m)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// Settings converts configured script settings to module settings.
func Settings(s config.ScriptConfig) pipeline.ScriptSettings {
	out := pipeline.ScriptSettings{
		Permissions: types.Permissions(s.Permissions),
		BatchSize:   types.PositiveInt(s.BatchSize),
		NumThreads:  types.PositiveInt(s.NumThreads),
	}
	if s.Timeout != nil {
		t := types.PositiveInt(*s.Timeout)
		out.Timeout = &t
	}
	return out
}

// AssignIDs returns the id of every configured module. Explicit ids are kept;
// other modules are named after their type in CamelCase ("count-parser"
// becomes "CountParser"), with a numeric suffix from the second module of a
// type onwards ("Command", "Command2").
func AssignIDs(modules []config.ModuleConfig) []pipeline.ModuleID {
	taken := make(map[pipeline.ModuleID]bool)
	for _, m := range modules {
		if m.ID != "" {
			taken[pipeline.ModuleID(m.ID)] = true
		}
	}

	ids := make([]pipeline.ModuleID, len(modules))
	seen := make(map[string]int)
	for i, m := range modules {
		if m.ID != "" {
			ids[i] = pipeline.ModuleID(m.ID)
			continue
		}
		base := camelCase(m.Type)
		for {
			seen[base]++
			id := pipeline.ModuleID(base)
			if n := seen[base]; n > 1 {
				id = pipeline.ModuleID(base + strconv.Itoa(n))
			}
			if !taken[id] {
				taken[id] = true
				ids[i] = id
				break
			}
		}
	}
	return ids
}

func camelCase(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if r == '-' || r == '_' || r == ' ' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return "Module"
	}
	return b.String()
}
