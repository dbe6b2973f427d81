package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"firetodo/internal/exitcode"
	"firetodo/internal/nav"
)

// Version is the application version. Set at build time.
var Version = "0.1.0"

func init() {
	Register(&VersionCmd{})
	Register(&QuitCmd{})
}

// VersionCmd implements the version command.
type VersionCmd struct{}

func (c *VersionCmd) Name() string       { return "version" }
func (c *VersionCmd) Aliases() []string  { return nil }
func (c *VersionCmd) Synopsis() string   { return "Print version" }
func (c *VersionCmd) Usage() string      { return "version" }
func (c *VersionCmd) Screen() nav.Screen { return nav.ScreenNone }

func (c *VersionCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *VersionCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	fmt.Fprintf(out, "firetodo %s\n", Version)
	return exitcode.Success
}

// QuitCmd implements the quit command.
type QuitCmd struct{}

func (c *QuitCmd) Name() string       { return "quit" }
func (c *QuitCmd) Aliases() []string  { return []string{"exit"} }
func (c *QuitCmd) Synopsis() string   { return "Leave firetodo" }
func (c *QuitCmd) Usage() string      { return "quit" }
func (c *QuitCmd) Screen() nav.Screen { return nav.ScreenNone }

func (c *QuitCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *QuitCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	env.Quit()
	return exitcode.Success
}
