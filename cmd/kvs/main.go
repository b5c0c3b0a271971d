// Command kvs is the command-line front-end over the log-structured
// key/value engine in internal/engine. It is a thin shell: argument
// parsing and result printing only, with no algorithmic content of its
// own (§1).
package main

import (
	"os"
	"strings"

	"github.com/arlojansen/kvs/internal/cli"
)

func main() {
	environ := os.Environ()
	env := make(map[string]string, len(environ))
	for _, e := range environ {
		if k, v, ok := strings.Cut(e, "="); ok {
			env[k] = v
		}
	}

	os.Exit(cli.Run(os.Stdout, os.Stderr, os.Args[1:], env))
}
