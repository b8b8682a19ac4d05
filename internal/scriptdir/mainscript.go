// SPDX-License-Identifier: MPL-2.0

package scriptdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modflow/modflow/internal/pipeline"
)

// MainScript returns the path of m's driver script. ok is false when the
// module produced no executable work; that is not an error.
func MainScript(m *pipeline.Module) (path string, ok bool, err error) {
	return FindMainScript(m.ScriptDir(), driverExts(m))
}

// FindMainScript returns the first file in dir, in listing order, whose name
// starts with DriverPrefix, is not reserved, and ends in one of exts.
func FindMainScript(dir string, exts []string) (string, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("list script directory %s: %w", dir, err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, DriverPrefix) || IsReserved(name) {
			continue
		}
		for _, ext := range exts {
			if strings.HasSuffix(name, ext) {
				return filepath.Join(dir, name), true, nil
			}
		}
	}
	return "", false, nil
}

// driverExts returns the driver extensions accepted for m's output kind.
// Interpreted modules may be driven by either an interpreter script or a
// shell wrapper.
func driverExts(m *pipeline.Module) []string {
	if m.Output == pipeline.OutputInterpreted && m.Interpreter.Ext != "" {
		return []string{m.Interpreter.Ext, pipeline.ShellExt}
	}
	return []string{pipeline.ShellExt}
}
