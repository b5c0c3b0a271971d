// Package cli is the thin command-line front-end over internal/engine. It
// is explicitly out of scope for the storage engine's own specification
// (§1) — it exists only to parse subcommands, open the engine, and print
// results.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arlojansen/kvs/internal/config"
	"github.com/arlojansen/kvs/internal/engine"
	"github.com/arlojansen/kvs/internal/telemetry"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

const (
	appName    = "kvs"
	appVersion = "0.1.0"
	appAuthor  = "arlojansen"
	appAbout   = "A log-structured key/value store"
)

// Run is the process entry point's body, factored out for testability:
// tests call Run directly with buffers instead of os.Args/os.Stdout.
func Run(out, errOut io.Writer, args []string, env map[string]string) int {
	root := flag.NewFlagSet(appName, flag.ContinueOnError)
	root.SetInterspersed(false)
	root.Usage = func() {}
	root.SetOutput(&strings.Builder{})

	flagVersion := root.Bool("version", false, "Print version and exit")
	flagAuthor := root.Bool("author", false, "Print author and exit")
	flagAbout := root.Bool("about", false, "Print a short description and exit")
	flagHelp := root.BoolP("help", "h", false, "Show help")
	flagDir := root.String("dir", "", "Store directory (default: $KVS_DIR or the current directory)")
	flagVerbose := root.BoolP("verbose", "v", false, "Enable debug logging")

	cmdIO := NewIO(out, errOut)

	if err := root.Parse(args); err != nil {
		cmdIO.ErrPrintln("error:", err)
		return 1
	}

	switch {
	case *flagVersion:
		cmdIO.Println(appVersion)
		return 0
	case *flagAuthor:
		cmdIO.Println(appAuthor)
		return 0
	case *flagAbout:
		cmdIO.Println(appAbout)
		return 0
	}

	dir := resolveDir(*flagDir, env)

	log, err := telemetry.New(*flagVerbose)
	if err != nil {
		cmdIO.ErrPrintln("error:", err)
		return 1
	}
	defer log.Sync() //nolint:errcheck // best-effort flush on exit

	commands := allCommands(dir, log)
	commandMap := make(map[string]*Command, len(commands))
	for _, c := range commands {
		commandMap[c.Name()] = c
	}

	rest := root.Args()

	if *flagHelp || len(rest) == 0 {
		printUsage(cmdIO, commands)
		return 0
	}

	cmd, ok := commandMap[rest[0]]
	if !ok {
		cmdIO.ErrPrintln("error: unknown command:", rest[0])
		printUsage(cmdIO, commands)
		return 1
	}

	return cmd.Run(cmdIO, rest[1:])
}

// resolveDir applies --dir, then $KVS_DIR, then the current directory —
// matching the original implementation's KvStore::open(current_dir()?).
func resolveDir(flagDir string, env map[string]string) string {
	if flagDir != "" {
		return flagDir
	}
	if d, ok := env["KVS_DIR"]; ok && d != "" {
		return d
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func allCommands(dir string, log *zap.SugaredLogger) []*Command {
	return []*Command{
		getCmd(dir, log),
		setCmd(dir, log),
		rmCmd(dir, log),
		statsCmd(dir, log),
		configCmd(dir),
	}
}

func printUsage(o *IO, commands []*Command) {
	o.Println(appAbout)
	o.Println()
	o.Println("Usage: kvs [--dir <path>] [--verbose] <command> [args]")
	o.Println()
	o.Println("Commands:")
	for _, c := range commands {
		o.Println(c.HelpLine())
	}
	o.Println()
	o.Println("Global flags: --version, --help, --author, --about, --dir, --verbose")
}

// openEngine opens the store at dir with the config file's compaction
// threshold and the given logger. Each CLI invocation is one process: the
// engine is opened, one operation runs, and the engine is closed on exit —
// there is no resident server (§5: single-process, single-writer).
func openEngine(dir string, log *zap.SugaredLogger) (*engine.Engine, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}

	e, err := engine.Open(dir,
		engine.WithLogger(log),
		engine.WithCompactionThreshold(cfg.CompactionThresholdBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("open store at %s: %w", dir, err)
	}
	return e, nil
}
