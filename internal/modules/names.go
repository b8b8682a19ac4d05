// SPDX-License-Identifier: MPL-2.0

package modules

import (
	"path/filepath"
	"regexp"
	"strings"
)

var directionSuffix = regexp.MustCompile(`_R?[12]$`)

// SampleName derives a sample identifier from an input path: the base name
// without extensions and, in paired-read mode, without the read direction
// marker. "raw/liver_R1.fastq.gz" is "liver" when paired, "liver_R1" when not.
func SampleName(path string, paired bool) string {
	name := filepath.Base(path)
	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	if paired {
		if trimmed := directionSuffix.ReplaceAllString(name, ""); trimmed != "" {
			name = trimmed
		}
	}
	return name
}
