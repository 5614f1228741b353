// Command kspace computes Brillouin zones and irreducible wedges from Lisp
// or YAML recipes.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
