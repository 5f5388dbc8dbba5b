package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"github.com/mna/mainer"
)

const binName = "callstack"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] analyze <program-ir> <object-or-archive>... <executable>
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] analyze <program-ir> <object-or-archive>... <executable>
       %[1]s -h|--help
       %[1]s -v|--version

Whole-program maximum-stack-usage analyzer for ARM Cortex-M firmware.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --target=<t>              One of thumbv6m, thumbv7m, other (default
                                  other). CALLSTACK_TARGET overrides the
                                  default before flags are parsed.
       --builtins-ir=<path>      Path to the compiler-builtins IR module,
                                  merged with the program IR per spec.
       --start=<symbol>          Restrict the report to the subgraph
                                  reachable from this symbol.
                                  CALLSTACK_START overrides the default.
       --list                    Print a sorted table instead of a graph
                                  description. CALLSTACK_LIST overrides the
                                  default.

More information on the %[1]s repository:
       https://github.com/mna/callstack
`, binName)
)

// Cmd is the top-level flag/argument target for mainer.Parser: a plain
// struct of flag/env-tagged fields plus a Validate method.
// github.com/caarlos0/env/v6 pre-populates Target/Start/List from
// CALLSTACK_* environment variables before mainer.Parser overlays whatever
// flags were actually given on argv -- flags always win, env only supplies
// defaults.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	Target     string `flag:"target" env:"CALLSTACK_TARGET"`
	BuiltinsIR string `flag:"builtins-ir"`
	Start      string `flag:"start" env:"CALLSTACK_START"`
	List       bool   `flag:"list" env:"CALLSTACK_LIST"`

	args []string
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}

	if len(c.args) == 0 {
		return errors.New("no command specified")
	}
	if c.args[0] != "analyze" {
		return fmt.Errorf("unknown command: %s", c.args[0])
	}
	if len(c.args[1:]) < 2 {
		return errors.New("analyze: at least <program-ir> and <executable> must be provided")
	}
	if c.Target != "" {
		if _, ok := parseTargetFlag(c.Target); !ok {
			return fmt.Errorf("analyze: invalid --target value: %s", c.Target)
		}
	}
	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	if err := env.Parse(c); err != nil {
		fmt.Fprintf(stdio.Stderr, "reading environment configuration: %s\n", err)
		return mainer.InvalidArgs
	}

	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: "CALLSTACK_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.Analyze(ctx, stdio, c.args[1:]); err != nil {
		return mainer.Failure
	}
	return mainer.Success
}
