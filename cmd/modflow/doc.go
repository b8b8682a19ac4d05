// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the modflow command tree.
package cmd
