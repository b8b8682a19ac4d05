// SPDX-License-Identifier: MPL-2.0

package scriptdir

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modflow/modflow/internal/pipeline"
)

// Failure is one line of one worker failure file.
type Failure struct {
	// File is the base name of the failure file.
	File string `json:"file" yaml:"file"`
	// Line is the raw line text without its newline.
	Line string `json:"line" yaml:"line"`
}

// String renders the entry as "file | line".
func (f Failure) String() string {
	return f.File + " | " + f.Line
}

// ModuleFailures returns the failure report of m's script directory.
func ModuleFailures(m *pipeline.Module) ([]Failure, error) {
	return Failures(m.ScriptDir())
}

// Failures reads every file in dir whose name ends in FailureSuffix and
// returns one entry per line, in directory listing order and then line
// order. The entries are not re-sorted. A missing directory yields no
// entries.
func Failures(dir string) ([]Failure, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list script directory %s: %w", dir, err)
	}

	var out []Failure
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), FailureSuffix) {
			continue
		}
		lines, err := readLines(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		for _, line := range lines {
			out = append(out, Failure{File: e.Name(), Line: line})
		}
	}
	return out, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open failure file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read failure file %s: %w", path, err)
	}
	return lines, nil
}
