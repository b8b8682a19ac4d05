// SPDX-License-Identifier: MPL-2.0

package scriptgen

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/modflow/modflow/internal/scriptdir"
)

// LaunchSpec is the metadata written next to a driver script for the
// launcher. The launcher enforces TimeoutMinutes; nothing here does.
type LaunchSpec struct {
	Module         string   `toml:"module"`
	Driver         string   `toml:"driver"`
	Permissions    string   `toml:"permissions"`
	Threads        int      `toml:"threads"`
	TimeoutMinutes int      `toml:"timeout_minutes,omitempty"`
	Interpreter    string   `toml:"interpreter,omitempty"`
	Workers        []string `toml:"workers"`
}

// Timeout returns the wall-clock limit, or zero when unbounded.
func (s LaunchSpec) Timeout() time.Duration {
	return time.Duration(s.TimeoutMinutes) * time.Minute
}

// ReadLaunchSpec reads the launch metadata from a script directory.
func ReadLaunchSpec(dir string) (*LaunchSpec, error) {
	data, err := os.ReadFile(filepath.Join(dir, scriptdir.LaunchFile))
	if err != nil {
		return nil, fmt.Errorf("read launch metadata: %w", err)
	}
	var spec LaunchSpec
	if err := toml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse launch metadata in %s: %w", dir, err)
	}
	return &spec, nil
}

func encodeLaunchSpec(spec LaunchSpec) ([]byte, error) {
	data, err := toml.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("encode launch metadata: %w", err)
	}
	return data, nil
}
