// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and remediation
// hints. The issue catalog holds Markdown guidance for each failure class of a pipeline
// run (missing configuration, marker I/O failures, worker script failures and so on),
// rendered with glamour by 'modflow explain'.
package issue
