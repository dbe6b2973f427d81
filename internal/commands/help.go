package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"firetodo/internal/exitcode"
	"firetodo/internal/nav"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command. It lists the commands available
// on the current route.
type HelpCmd struct{}

func (c *HelpCmd) Name() string       { return "help" }
func (c *HelpCmd) Aliases() []string  { return []string{"?"} }
func (c *HelpCmd) Synopsis() string   { return "Print usage" }
func (c *HelpCmd) Usage() string      { return "help" }
func (c *HelpCmd) Screen() nav.Screen { return nav.ScreenNone }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	cmds := env.registry().All()
	if env.Session != nil {
		cmds = env.registry().Available(env.Route())
	}

	fmt.Fprintln(out, "Commands:")
	for _, cmd := range cmds {
		fmt.Fprintf(out, "  %-16s %s\n", cmd.Usage(), cmd.Synopsis())
	}
	fmt.Fprint(out, helpFooter)
	return exitcode.Success
}

const helpFooter = `
Task refs are list numbers (1, 2, ...) or #<id>.

Start-up flags:
  --config <dir>     Override config directory
  --backend <name>   Backend: firebase (default) or memory
  --quiet            Suppress informational output
  --debug            Print debug logs to stderr
`
