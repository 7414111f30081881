// Command orientamada runs the OrientaMada API and its maintenance tasks.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "orientamada:", err)
		os.Exit(1)
	}
}
