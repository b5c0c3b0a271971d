package cli

import (
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// errSilent marks an Exec failure that has already printed its own
// user-facing message (e.g. "Key not found"), so Run shouldn't also print
// a redundant "error: ..." line.
var errSilent = errors.New("cli: silent failure")

// Command defines a CLI subcommand with unified help generation, the same
// shape calvinalkan/agent-task's internal/cli.Command uses.
type Command struct {
	// Flags defines command-specific flags. May be nil for commands that
	// take none.
	Flags *flag.FlagSet

	// Usage is the freeform usage string shown after "kvs". Command
	// identity is its first word.
	Usage string

	// Short is a one-line description shown in the root help listing.
	Short string

	// Exec runs the command after flags are parsed.
	Exec func(o *IO, args []string) error
}

// Name returns the command name (first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")
	return name
}

func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-24s %s", c.Usage, c.Short)
}

func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: kvs", c.Usage)
	o.Println()
	o.Println(c.Short)

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")

		var buf strings.Builder
		c.Flags.SetOutput(&buf)
		c.Flags.PrintDefaults()
		o.Printf("%s", buf.String())
	}
}

// Run parses flags and executes the command, returning an exit code.
func (c *Command) Run(o *IO, args []string) int {
	if c.Flags != nil {
		c.Flags.SetOutput(&strings.Builder{}) // discard pflag's own error/usage output

		if err := c.Flags.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				c.PrintHelp(o)
				return 0
			}
			o.ErrPrintln("error:", err)
			return 1
		}
		args = c.Flags.Args()
	}

	if err := c.Exec(o, args); err != nil {
		if !errors.Is(err, errSilent) {
			o.ErrPrintln("error:", err)
		}
		return 1
	}
	return 0
}
