// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/modflow/modflow/internal/runner"
)

// renderSummary writes one block per module followed by the total runtime.
func renderSummary(w io.Writer, title string, sum *runner.Summary) error {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(title) + " " + SubtitleStyle.Render(sum.OutputRoot) + "\n\n")
	for _, m := range sum.Modules {
		b.WriteString("  " + moduleColumnStyle.Render(CmdStyle.Render(m.Dir)) +
			stateColumnStyle.Render(stateBadge(m.State)) +
			SubtitleStyle.Render(m.Scripts.String()) + "\n")
		if m.Note != "" {
			fmt.Fprintf(&b, "      note:    %s\n", m.Note)
		}
		if m.Runtime != "" {
			fmt.Fprintf(&b, "      runtime: %s\n", m.Runtime)
		}
		for _, f := range m.Failures {
			b.WriteString("      " + ErrorStyle.Render(f.String()) + "\n")
		}
	}
	if sum.Elapsed != "" {
		fmt.Fprintf(&b, "\n%s %s\n", SubtitleStyle.Render("total runtime:"), sum.Elapsed)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
