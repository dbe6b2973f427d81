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
	Register(&ToggleCmd{})
}

// ToggleCmd implements the toggle command.
type ToggleCmd struct{}

func (c *ToggleCmd) Name() string       { return "toggle" }
func (c *ToggleCmd) Aliases() []string  { return []string{"done"} }
func (c *ToggleCmd) Synopsis() string   { return "Flip tasks between open and completed" }
func (c *ToggleCmd) Usage() string      { return "toggle <ref...>" }
func (c *ToggleCmd) Screen() nav.Screen { return nav.ScreenTasks }

func (c *ToggleCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ToggleCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	// Parse task references
	refs, err := ParseTaskRefs(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	tasks, err := env.resolve(refs)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	for _, task := range tasks {
		updated := env.Tasks.Updated()
		if err := env.Tasks.Toggle(ctx, task.ID, task.Completed); err != nil {
			return alert(errOut, "Toggle Error", "Toggle Error", err)
		}
		awaitUpdate(ctx, updated)
	}

	notice(env, out, "ok")
	return exitcode.Success
}
