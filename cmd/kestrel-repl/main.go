// Command kestrel-repl is a standalone entry point for the interactive
// REPL, for hosts that want "just the REPL" without kestrel's eval/config
// subcommand surface.
package main

import (
	"fmt"
	"os"

	"github.com/kestrelang/kestrel/engine"
	"github.com/kestrelang/kestrel/internal/replui"
)

func main() {
	eng := engine.New()
	if err := replui.Run(eng); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
