// SPDX-License-Identifier: MPL-2.0

package scriptgen

import (
	"bytes"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/modflow/modflow/internal/pipeline"
	"github.com/modflow/modflow/internal/scriptdir"
)

const bashShebang = "#!/bin/bash"

// driverTemplate runs each worker in the background through run_worker,
// which records <worker>.started, then <worker>.success on exit status zero
// or <worker>.failed holding the exit status and captured stderr.
const driverTemplate = `%s
# modflow driver for module %s
# permissions: %s
# threads: %d
# timeout: %s
export NUM_THREADS=%d

run_worker() {
	worker="$1"
	shift
	touch "$worker%s"
	if "$@" "$worker" 2>"$worker.stderr"; then
		touch "$worker%s"
	else
		status=$?
		{
			echo "exit status $status"
			cat "$worker.stderr"
		} >"$worker%s"
	fi
	rm -f "$worker.stderr"
}

`

func renderWorker(m *pipeline.Module, n, total int, lines []string) (string, error) {
	var b strings.Builder
	if m.Output == pipeline.OutputInterpreted {
		fmt.Fprintf(&b, "#!/usr/bin/env %s\n", m.Interpreter.Command)
		fmt.Fprintf(&b, "# %s worker %d of %d\n", m.ID, n+1, total)
		writeLines(&b, m.WorkerFunctions)
		writeLines(&b, lines)
		return b.String(), nil
	}

	fmt.Fprintf(&b, "%s\n# %s worker %d of %d\nset -e\n", bashShebang, m.ID, n+1, total)
	writeLines(&b, m.WorkerFunctions)
	writeLines(&b, lines)
	return formatShell(b.String())
}

func renderDriver(m *pipeline.Module, workers []string) (string, error) {
	timeout := "unbounded"
	if m.Settings.Timeout != nil {
		timeout = fmt.Sprintf("%d minutes", m.Settings.Timeout.Int())
	}
	runner := "bash"
	if m.Output == pipeline.OutputInterpreted {
		runner = m.Interpreter.Command
	}
	quotedRunner, err := Quote(runner)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, driverTemplate, bashShebang, m.ID, m.Settings.Permissions,
		m.Settings.NumThreads.Int(), timeout, m.Settings.NumThreads.Int(),
		scriptdir.StartedSuffix, scriptdir.SuccessSuffix, scriptdir.FailureSuffix)
	for _, w := range workers {
		q, err := Quote(w)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "run_worker %s %s &\n", q, quotedRunner)
	}
	b.WriteString("wait\n")
	return formatShell(b.String())
}

// formatShell parses src as bash and prints it back in canonical form.
func formatShell(src string) (string, error) {
	file, err := syntax.NewParser(syntax.KeepComments(true), syntax.Variant(syntax.LangBash)).
		Parse(strings.NewReader(src), "")
	if err != nil {
		return "", fmt.Errorf("generated script is not valid bash: %w", err)
	}
	var buf bytes.Buffer
	if err := syntax.NewPrinter(syntax.Indent(0)).Print(&buf, file); err != nil {
		return "", fmt.Errorf("print generated script: %w", err)
	}
	return buf.String(), nil
}

func writeLines(b *strings.Builder, lines []string) {
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
}
