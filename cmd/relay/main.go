// edspec-relay follows the Elite Dangerous journal and relays commander
// location updates to the EDSpec API.
//
// Usage:
//
//	edspec-relay [--config path] [run]
//	edspec-relay test
//	edspec-relay prefs show
//	edspec-relay prefs set <key> <value>
//	edspec-relay history [-n 20]
//	edspec-relay init
//	edspec-relay version
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
)

const binName = "edspec-relay"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type globals struct {
	cfgPath string
	quiet   bool
	stdout  io.Writer
	stderr  io.Writer
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(dir, binName, "config.json")
}

func run(args []string, stdout, stderr io.Writer) error {
	g := globals{stdout: stdout, stderr: stderr}

	fs := pflag.NewFlagSet(binName, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&g.cfgPath, "config", "c", defaultConfigPath(), "path to config (.json, .jsonc, .yaml)")
	fs.BoolVarP(&g.quiet, "quiet", "q", false, "do not print status changes to stdout")
	fs.SetInterspersed(false)
	fs.Usage = func() { printUsage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	rest := fs.Args()
	cmd := "run"
	if len(rest) > 0 {
		cmd, rest = rest[0], rest[1:]
	}
	switch cmd {
	case "run":
		return cmdRun(g)
	case "test":
		return cmdTest(g)
	case "prefs":
		return cmdPrefs(g, rest)
	case "history":
		return cmdHistory(g, rest)
	case "init":
		return cmdInit(g)
	case "version":
		return cmdVersion(g)
	case "help":
		printUsage(stdout, fs)
		return nil
	default:
		printUsage(stderr, fs)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printUsage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintf(w, `%s relays Elite Dangerous journal updates to EDSpec.

Usage:
  %s [flags] [command]

Commands:
  run                     follow the journal and relay updates (default)
  test                    check the API key against the server
  prefs show              print the current preferences
  prefs set <key> <value> change one preference (%s)
  history [-n N]          list recent deliveries from the audit store
  init                    write a starter config if none exists
  version                 print build information

Flags:
%s`, binName, binName, prefKeysHelp(), fs.FlagUsages())
}
