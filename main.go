// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/modflow/modflow/cmd/modflow"

func main() {
	cmd.Execute()
}
