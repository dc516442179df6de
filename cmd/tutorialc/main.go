// Command tutorialc compiles automation traces into interactive tutorial
// projects without running the API server.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
