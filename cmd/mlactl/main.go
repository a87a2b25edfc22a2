// Command mlactl works with saved chart files offline: it renders them,
// slices them at a date, merges imports into them and runs graph analysis.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
