// SPDX-License-Identifier: MPL-2.0

// q8s bundles a Python entry script and its local imports into immutable
// Kubernetes ConfigMaps.
package main

import cmd "github.com/qubernetes/q8s/cmd/q8s"

func main() {
	cmd.Execute()
}
