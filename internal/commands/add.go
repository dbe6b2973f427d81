package commands

import (
	"context"
	"flag"
	"io"
	"strings"

	"firetodo/internal/exitcode"
	"firetodo/internal/nav"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct{}

func (c *AddCmd) Name() string       { return "add" }
func (c *AddCmd) Aliases() []string  { return []string{"create"} }
func (c *AddCmd) Synopsis() string   { return "Add a task" }
func (c *AddCmd) Usage() string      { return "add <text...>" }
func (c *AddCmd) Screen() nav.Screen { return nav.ScreenTasks }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *AddCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	// Join args to form the task text
	text := strings.Join(args, " ")

	updated := env.Tasks.Updated()
	if err := env.Tasks.Add(ctx, text); err != nil {
		return alert(errOut, "Validation Error", "Error", err)
	}
	awaitUpdate(ctx, updated)

	notice(env, out, "ok")
	return exitcode.Success
}
