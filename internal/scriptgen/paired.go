// SPDX-License-Identifier: MPL-2.0

package scriptgen

import (
	"path/filepath"
	"regexp"
)

// readDirection matches the forward/reverse marker of paired read files,
// such as sample_R1.fastq.gz or sample_2.fq.
var readDirection = regexp.MustCompile(`^(.+?)_R?[12]((?:\.[^.]+)*)$`)

// PairReads groups paired read files into units that must stay together in
// one batch. Files sharing a sample prefix and extension form one unit; a
// file with no direction marker forms a unit of its own. Units keep the
// order of their first file.
func PairReads(files []string) [][]string {
	index := make(map[string]int)
	var units [][]string
	for _, f := range files {
		key := f
		if m := readDirection.FindStringSubmatch(filepath.Base(f)); m != nil {
			key = filepath.Join(filepath.Dir(f), m[1]+m[2])
		}
		if i, ok := index[key]; ok {
			units[i] = append(units[i], f)
			continue
		}
		index[key] = len(units)
		units = append(units, []string{f})
	}
	return units
}

func singleUnits(files []string) [][]string {
	units := make([][]string, len(files))
	for i, f := range files {
		units[i] = []string{f}
	}
	return units
}
