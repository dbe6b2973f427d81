package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"firetodo/internal/exitcode"
	"firetodo/internal/nav"
	"firetodo/internal/output"
	"firetodo/internal/screens"
	"firetodo/internal/service"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
type ListCmd struct {
	ids bool
}

func (c *ListCmd) Name() string       { return "list" }
func (c *ListCmd) Aliases() []string  { return []string{"ls"} }
func (c *ListCmd) Synopsis() string   { return "Show your tasks" }
func (c *ListCmd) Usage() string      { return "list [--ids]" }
func (c *ListCmd) Screen() nav.Screen { return nav.ScreenTasks }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.ids, "ids", false, "")
}

func (c *ListCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	// A failed subscription is reopened here.
	if env.Tasks.State() != screens.ListSubscribed {
		if prev := env.Tasks.Err(); prev != nil {
			output.FormatError(errOut, "Error", prev)
		}
		user, ok := env.Session.User()
		if !ok {
			return alert(errOut, "Error", "Error", service.ErrNotSignedIn)
		}
		if err := env.Tasks.Mount(ctx, user); err != nil {
			return alert(errOut, "Error", "Error", err)
		}
	}

	if !env.quiet() {
		output.FormatHeader(out, nav.ScreenTasks.Title())
	}
	tasks := env.liveTasks()
	env.remember(tasks)
	output.FormatTasks(out, tasks)
	if c.ids {
		for i, t := range tasks {
			fmt.Fprintf(out, "%4d  #%s\n", i+1, t.ID)
		}
	}
	if draft := env.Tasks.Draft(); draft != "" {
		fmt.Fprintf(out, "unsaved: %s\n", draft)
	}
	return exitcode.Success
}
