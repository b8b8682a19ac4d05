// SPDX-License-Identifier: MPL-2.0

// Package pipeline holds the module registry: the ordered list of configured
// modules, built once per pipeline invocation and passed explicitly to every
// component that needs ordering or lookup.
//
// Each module maps to a root directory named "<ordinal>_<id>" under the
// pipeline output root. The ordinal is zero-padded to the width of the total
// module count so directory listings sort in execution order. Under the root
// live the lifecycle marker files and the "script" and "output" subdirectories.
package pipeline
