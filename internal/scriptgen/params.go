// SPDX-License-Identifier: MPL-2.0

package scriptgen

import (
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// RuntimeParams renders the runtime arguments of a tool invocation: the
// thread flag and count, then the free-form params joined by single spaces.
// Either part is omitted when not configured, and the result never has
// leading or trailing whitespace.
func RuntimeParams(threadsFlag string, threads int, params []string) string {
	var parts []string
	if flag := strings.TrimSpace(threadsFlag); flag != "" {
		parts = append(parts, flag+" "+strconv.Itoa(threads))
	}
	for _, p := range params {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Quote returns s quoted for use as a single bash word.
func Quote(s string) (string, error) {
	return syntax.Quote(s, syntax.LangBash)
}

// QuoteAll quotes every element of words.
func QuoteAll(words []string) ([]string, error) {
	out := make([]string, len(words))
	for i, w := range words {
		q, err := Quote(w)
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}
