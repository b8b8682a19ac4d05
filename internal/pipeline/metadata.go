// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"fmt"
	"os"
	"slices"
)

// IsMetadataModule reports whether m produced only the metadata file: its
// output directory holds metadataFile and nothing else apart from names in
// ignore. Such modules annotate samples without touching sequence data, so
// the next module reads its inputs from further upstream.
func IsMetadataModule(m *Module, metadataFile string, ignore []string) (bool, error) {
	if metadataFile == "" {
		return false, nil
	}
	entries, err := os.ReadDir(m.OutputDir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("list output of module %s: %w", m.ID, err)
	}

	foundMeta, foundOther := false, false
	for _, e := range entries {
		switch {
		case e.Name() == metadataFile:
			foundMeta = true
		case !slices.Contains(ignore, e.Name()):
			foundOther = true
		}
	}
	return foundMeta && !foundOther, nil
}
