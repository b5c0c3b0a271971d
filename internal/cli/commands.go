package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/arlojansen/kvs/internal/config"
	"github.com/arlojansen/kvs/internal/engine"

	"go.uber.org/zap"
)

// getCmd implements `kvs get <key>`: prints the value, or "Key not found"
// if absent. Either way it exits 0 on well-formed input (§6) — a missing
// key is not an error from the CLI's point of view, only from Remove's.
func getCmd(dir string, log *zap.SugaredLogger) *Command {
	return &Command{
		Usage: "get <key>",
		Short: "Get the value of a given key",
		Exec: func(o *IO, args []string) error {
			if len(args) != 1 {
				return errors.New("usage: kvs get <key>")
			}

			e, err := openEngine(dir, log)
			if err != nil {
				return err
			}
			defer e.Close()

			value, ok, err := e.Get(args[0])
			if err != nil {
				return err
			}
			if !ok {
				o.Println("Key not found")
				return nil
			}
			o.Println(value)
			return nil
		},
	}
}

// setCmd implements `kvs set <key> <value>`: prints nothing on success.
func setCmd(dir string, log *zap.SugaredLogger) *Command {
	return &Command{
		Usage: "set <key> <value>",
		Short: "Set the value of a key",
		Exec: func(o *IO, args []string) error {
			if len(args) != 2 {
				return errors.New("usage: kvs set <key> <value>")
			}

			e, err := openEngine(dir, log)
			if err != nil {
				return err
			}
			defer e.Close()

			return e.Set(args[0], args[1])
		},
	}
}

// rmCmd implements `kvs rm <key>`: prints "Key not found" and exits
// non-zero if the key is absent; silent success otherwise.
func rmCmd(dir string, log *zap.SugaredLogger) *Command {
	return &Command{
		Usage: "rm <key>",
		Short: "Remove a key",
		Exec: func(o *IO, args []string) error {
			if len(args) != 1 {
				return errors.New("usage: kvs rm <key>")
			}

			e, err := openEngine(dir, log)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.Remove(args[0]); err != nil {
				if errors.Is(err, engine.ErrKeyNotFound) {
					o.Println("Key not found")
					return errSilent
				}
				return err
			}
			return nil
		},
	}
}

// statsCmd implements `kvs stats`: prints the engine's Stats() snapshot as
// JSON (§3a).
func statsCmd(dir string, log *zap.SugaredLogger) *Command {
	return &Command{
		Usage: "stats",
		Short: "Print store statistics",
		Exec: func(o *IO, args []string) error {
			e, err := openEngine(dir, log)
			if err != nil {
				return err
			}
			defer e.Close()

			buf, err := json.MarshalIndent(e.Stats(), "", "  ")
			if err != nil {
				return err
			}
			o.Println(string(buf))
			return nil
		},
	}
}

// configCmd implements `kvs config get` and `kvs config set <option>
// <value>` over the JSONC config file (§2a/§9).
func configCmd(dir string) *Command {
	return &Command{
		Usage: "config <get|set> [option] [value]",
		Short: "Inspect or persist store configuration",
		Exec: func(o *IO, args []string) error {
			if len(args) == 0 {
				return errors.New("usage: kvs config <get|set> [option] [value]")
			}

			switch args[0] {
			case "get":
				cfg, err := config.Load(dir)
				if err != nil {
					return err
				}
				buf, err := json.MarshalIndent(cfg, "", "  ")
				if err != nil {
					return err
				}
				o.Println(string(buf))
				return nil

			case "set":
				if len(args) != 3 {
					return errors.New("usage: kvs config set <option> <value>")
				}
				return configSet(dir, args[1], args[2])

			default:
				return fmt.Errorf("unknown config subcommand: %s", args[0])
			}
		},
	}
}

func configSet(dir, option, value string) error {
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	switch option {
	case "compaction_threshold_bytes":
		var bytes int64
		if _, err := fmt.Sscanf(value, "%d", &bytes); err != nil {
			return fmt.Errorf("invalid integer %q: %w", value, err)
		}
		cfg.CompactionThresholdBytes = bytes
	default:
		return fmt.Errorf("unknown config option: %s", option)
	}

	return config.Save(dir, cfg)
}
